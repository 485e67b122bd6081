package domain

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// Channel is a reminder delivery channel.
type Channel string

// Delivery channels.
const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelPush
}

// NotificationKind is the reason a reminder is sent.
type NotificationKind string

// Notification kinds.
const (
	// NotificationKindDueToday reminds about occurrences due on the local date.
	NotificationKindDueToday NotificationKind = "due_today"

	// NotificationKindOverdue1D reminds about occurrences due on the previous local date.
	NotificationKindOverdue1D NotificationKind = "overdue_1d"
)

// Valid reports whether k is a known notification kind.
func (k NotificationKind) Valid() bool {
	return k == NotificationKindDueToday || k == NotificationKindOverdue1D
}

// DeliveryRecord is an entry in the delivery ledger.
// It is unique on (OwnerID, Channel, Kind, LocalDate) and immutable once written.
type DeliveryRecord struct {
	ID        uuid.UUID        `json:"id"`
	OwnerID   uuid.UUID        `json:"owner_id"`
	Channel   Channel          `json:"channel"`
	Kind      NotificationKind `json:"kind"`
	LocalDate civil.Date       `json:"local_date"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewDeliveryRecord creates a ledger entry for the given slot.
func NewDeliveryRecord(
	ownerID uuid.UUID,
	channel Channel,
	kind NotificationKind,
	localDate civil.Date,
	now time.Time,
) (*DeliveryRecord, error) {
	rec := &DeliveryRecord{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Channel:   channel,
		Kind:      kind,
		LocalDate: localDate,
		CreatedAt: now.UTC(),
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}

// Validate checks if the DeliveryRecord has valid data.
func (r *DeliveryRecord) Validate() error {
	if r.OwnerID == uuid.Nil {
		return NewValidationError("owner_id", "cannot be empty", ErrInvalidID)
	}
	if !r.Channel.Valid() {
		return NewValidationError("channel", "must be email or push", ErrInvalidChannel)
	}
	if !r.Kind.Valid() {
		return NewValidationError("kind", "must be due_today or overdue_1d", ErrInvalidNotificationKind)
	}
	if !r.LocalDate.IsValid() {
		return NewValidationError("local_date", "must be a valid calendar date", ErrValidation)
	}
	return nil
}

// Key returns the idempotency key of the record's slot.
func (r *DeliveryRecord) Key() string {
	return DeliveryKey(r.OwnerID, r.Channel, r.Kind, r.LocalDate)
}

// DeliveryKey formats the idempotency key for a (owner, channel, kind, day) slot.
func DeliveryKey(ownerID uuid.UUID, channel Channel, kind NotificationKind, day civil.Date) string {
	return fmt.Sprintf("%s:%s:%s:%s", ownerID, channel, kind, day)
}
