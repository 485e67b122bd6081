package redis

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = civil.Date{Year: 2025, Month: time.June, Day: 10}

func TestSlotKey(t *testing.T) {
	owner := uuid.MustParse("6f1c2f7e-3b7a-4d59-9a0e-1e2d3c4b5a69")
	assert.Equal(t,
		"sprout:delivery:6f1c2f7e-3b7a-4d59-9a0e-1e2d3c4b5a69:push:overdue_1d:2025-06-10",
		SlotKey(owner, domain.ChannelPush, domain.NotificationKindOverdue1D, day))
}

func TestNewDeliveryStore_RetentionFloor(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	s := NewDeliveryStore(client, time.Hour, nil)
	assert.Equal(t, 48*time.Hour, s.retention)

	s = NewDeliveryStore(client, 96*time.Hour, nil)
	assert.Equal(t, 96*time.Hour, s.retention)
}

func TestInsert_RejectsInvalidRecord(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	err := NewDeliveryStore(client, 0, nil).Insert(context.Background(), &domain.DeliveryRecord{})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestDeliveryStore_ConnectionFailureIsInternal(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:0",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	s := NewDeliveryStore(client, 0, nil)
	ctx := context.Background()

	rec, err := domain.NewDeliveryRecord(uuid.New(), domain.ChannelEmail, domain.NotificationKindDueToday, day, time.Now())
	require.NoError(t, err)

	err = s.Insert(ctx, rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInternal)
	assert.False(t, store.IsDuplicateError(err))
	var storeErr *store.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "insert", storeErr.Operation)

	_, err = s.Exists(ctx, rec.OwnerID, rec.Channel, rec.Kind, rec.LocalDate)
	assert.ErrorIs(t, err, store.ErrInternal)
}

// integrationStore connects to REDIS_ADDR or skips.
func integrationStore(t *testing.T) *DeliveryStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, Config{Addr: addr, DB: 15})
	require.NoError(t, err)
	t.Cleanup(func() {
		client.FlushDB(ctx)
		_ = client.Close()
	})
	return NewDeliveryStore(client, 0, nil)
}

func TestDeliveryStore_Integration(t *testing.T) {
	s := integrationStore(t)
	ctx := context.Background()
	owner := uuid.New()

	rec, err := domain.NewDeliveryRecord(owner, domain.ChannelEmail, domain.NotificationKindDueToday, day, time.Now())
	require.NoError(t, err)

	ok, err := s.Exists(ctx, owner, domain.ChannelEmail, domain.NotificationKindDueToday, day)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Insert(ctx, rec))
	assert.ErrorIs(t, s.Insert(ctx, rec), store.ErrAlreadyClaimed)

	ok, err = s.Exists(ctx, owner, domain.ChannelEmail, domain.NotificationKindDueToday, day)
	require.NoError(t, err)
	assert.True(t, ok)

	ttl, err := s.client.TTL(ctx, SlotKey(owner, domain.ChannelEmail, domain.NotificationKindDueToday, day)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 47*time.Hour)
}

func TestDeliveryStore_ConcurrentInsertIntegration(t *testing.T) {
	s := integrationStore(t)
	ctx := context.Background()
	owner := uuid.New()

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := domain.NewDeliveryRecord(owner, domain.ChannelPush, domain.NotificationKindDueToday, day, time.Now())
			if !assert.NoError(t, err) {
				return
			}
			if err := s.Insert(ctx, rec); err == nil {
				winners.Add(1)
			} else {
				assert.ErrorIs(t, err, store.ErrDuplicate)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}
