package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/store"
)

const preferenceColumns = `owner_id, timezone, language,
	email_due_today, email_overdue_1d, email_hour, email_minute,
	push_due_today, push_overdue_1d, push_hour, push_minute,
	created_at, updated_at`

// PostgresPreferenceStore implements store.PreferenceStore and store.RecipientStore.
type PostgresPreferenceStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPreferenceStore creates a preference store on db.
func NewPostgresPreferenceStore(db store.DBTX, logger *slog.Logger) *PostgresPreferenceStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPreferenceStore{
		db:     db,
		logger: logger.With(slog.String("component", "preference_store")),
	}
}

var (
	_ store.PreferenceStore = (*PostgresPreferenceStore)(nil)
	_ store.RecipientStore  = (*PostgresPreferenceStore)(nil)
)

// Get implements store.PreferenceStore.
func (s *PostgresPreferenceStore) Get(ctx context.Context, ownerID uuid.UUID) (*domain.NotificationPreference, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+preferenceColumns+` FROM notification_preferences WHERE owner_id = $1`, ownerID)
	return scanPreference(row)
}

// CreateIfMissing implements store.PreferenceStore.
func (s *PostgresPreferenceStore) CreateIfMissing(
	ctx context.Context,
	p *domain.NotificationPreference,
) (*domain.NotificationPreference, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_preferences (`+preferenceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (owner_id) DO NOTHING`,
		p.OwnerID, p.Timezone, p.Language,
		p.EmailDueToday, p.EmailOverdue, p.EmailHour, p.EmailMinute,
		p.PushDueToday, p.PushOverdue, p.PushHour, p.PushMinute,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, MapError(err)
	}

	return s.Get(ctx, p.OwnerID)
}

// Update implements store.PreferenceStore.
func (s *PostgresPreferenceStore) Update(ctx context.Context, p *domain.NotificationPreference) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE notification_preferences
		SET timezone = $2, language = $3,
			email_due_today = $4, email_overdue_1d = $5, email_hour = $6, email_minute = $7,
			push_due_today = $8, push_overdue_1d = $9, push_hour = $10, push_minute = $11,
			updated_at = $12
		WHERE owner_id = $1`,
		p.OwnerID, p.Timezone, p.Language,
		p.EmailDueToday, p.EmailOverdue, p.EmailHour, p.EmailMinute,
		p.PushDueToday, p.PushOverdue, p.PushHour, p.PushMinute,
		p.UpdatedAt,
	)
	if err != nil {
		return MapError(err)
	}
	return checkRowsAffected(result, store.ErrPreferenceNotFound)
}

// ListEnabled implements store.PreferenceStore.
func (s *PostgresPreferenceStore) ListEnabled(ctx context.Context) ([]*domain.NotificationPreference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+preferenceColumns+`
		FROM notification_preferences
		WHERE email_due_today OR email_overdue_1d OR push_due_today OR push_overdue_1d`)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.NotificationPreference
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// GetRecipient implements store.RecipientStore.
func (s *PostgresPreferenceStore) GetRecipient(ctx context.Context, ownerID uuid.UUID) (*domain.Recipient, error) {
	var r domain.Recipient
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, COALESCE(p.language, $2)
		FROM users u
		LEFT JOIN notification_preferences p ON p.owner_id = u.id
		WHERE u.id = $1`,
		ownerID, domain.DefaultLanguage,
	).Scan(&r.OwnerID, &r.Email, &r.Language)
	if err != nil {
		return nil, mapNotFound(err, store.ErrRecipientNotFound)
	}
	return &r, nil
}

func scanPreference(row rowScanner) (*domain.NotificationPreference, error) {
	var p domain.NotificationPreference
	err := row.Scan(
		&p.OwnerID, &p.Timezone, &p.Language,
		&p.EmailDueToday, &p.EmailOverdue, &p.EmailHour, &p.EmailMinute,
		&p.PushDueToday, &p.PushOverdue, &p.PushHour, &p.PushMinute,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, mapNotFound(err, store.ErrPreferenceNotFound)
	}
	return &p, nil
}
