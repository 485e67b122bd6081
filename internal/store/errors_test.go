package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		notFound  bool
		duplicate bool
	}{
		{name: "nil error", err: nil},
		{name: "generic error", err: errors.New("some error")},
		{name: "ErrNotFound", err: ErrNotFound, notFound: true},
		{name: "wrapped rule not found", err: fmt.Errorf("load: %w", ErrRuleNotFound), notFound: true},
		{name: "occurrence not found", err: ErrOccurrenceNotFound, notFound: true},
		{name: "preference not found", err: ErrPreferenceNotFound, notFound: true},
		{name: "ErrDuplicate", err: ErrDuplicate, duplicate: true},
		{name: "already claimed", err: ErrAlreadyClaimed, duplicate: true},
		{
			name:      "store error wrapping duplicate",
			err:       NewStoreError("schedule_rule", "create", "conflict", ErrRuleExists),
			duplicate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.notFound, IsNotFoundError(tt.err))
			assert.Equal(t, tt.duplicate, IsDuplicateError(tt.err))
		})
	}
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	err := NewStoreError("device_token", "upsert", "failed to upsert", ErrInternal)
	assert.Equal(t, "upsert operation on device_token failed: failed to upsert: internal store error", err.Error())
	assert.ErrorIs(t, err, ErrInternal)

	bare := NewStoreError("delivery_record", "insert", "no rows", nil)
	assert.Equal(t, "insert operation on delivery_record failed: no rows", bare.Error())
}
