// Package redis provides a Redis-backed delivery ledger for deployments
// that run several scheduler processes without a shared Postgres ledger.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/store"
)

// KeyPrefix namespaces ledger keys.
const KeyPrefix = "sprout:delivery"

// Config holds connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Retention is how long a claim is kept. It must outlast the local day
	// in every zone, so anything under two days is raised to 48h.
	Retention time.Duration
}

// DeliveryStore implements store.DeliveryStore with SETNX keys that
// expire after the retention period.
type DeliveryStore struct {
	client    redis.UniversalClient
	retention time.Duration
	logger    *slog.Logger
}

var _ store.DeliveryStore = (*DeliveryStore)(nil)

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewDeliveryStore creates a ledger on client.
func NewDeliveryStore(client redis.UniversalClient, retention time.Duration, logger *slog.Logger) *DeliveryStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if retention < 48*time.Hour {
		retention = 48 * time.Hour
	}
	return &DeliveryStore{
		client:    client,
		retention: retention,
		logger:    logger.With(slog.String("component", "redis_delivery_store")),
	}
}

// SlotKey returns the ledger key for a slot.
func SlotKey(ownerID uuid.UUID, channel domain.Channel, kind domain.NotificationKind, day civil.Date) string {
	return KeyPrefix + ":" + domain.DeliveryKey(ownerID, channel, kind, day)
}

// Insert implements store.DeliveryStore. SETNX makes the first writer the
// only winner; later writers get store.ErrAlreadyClaimed.
func (s *DeliveryStore) Insert(ctx context.Context, rec *domain.DeliveryRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	key := SlotKey(rec.OwnerID, rec.Channel, rec.Kind, rec.LocalDate)
	ok, err := s.client.SetNX(ctx, key, rec.ID.String(), s.retention).Result()
	if err != nil {
		return store.NewStoreError("delivery_record", "insert", "redis setnx failed",
			fmt.Errorf("%w: %w", store.ErrInternal, err))
	}
	if !ok {
		return store.ErrAlreadyClaimed
	}
	return nil
}

// Exists implements store.DeliveryStore.
func (s *DeliveryStore) Exists(
	ctx context.Context,
	ownerID uuid.UUID,
	channel domain.Channel,
	kind domain.NotificationKind,
	localDate civil.Date,
) (bool, error) {
	n, err := s.client.Exists(ctx, SlotKey(ownerID, channel, kind, localDate)).Result()
	if err != nil {
		return false, store.NewStoreError("delivery_record", "exists", "redis exists failed",
			fmt.Errorf("%w: %w", store.ErrInternal, err))
	}
	return n > 0, nil
}
