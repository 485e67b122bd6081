//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(context.Background(), db, "up", quietLogger()))
	return db
}

func createUser(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(`INSERT INTO users (id, email) VALUES ($1, $2)`, id, id.String()+"@example.com")
	require.NoError(t, err)
	return id
}

func TestIntegration_LedgerConcurrentClaims(t *testing.T) {
	db := openTestDB(t)
	owner := createUser(t, db)
	ledger := NewPostgresDeliveryStore(db, quietLogger())
	day := civil.Date{Year: 2024, Month: time.May, Day: 1}

	const attempts = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		claimed  int
		unexpect []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := domain.NewDeliveryRecord(owner, domain.ChannelPush, domain.NotificationKindDueToday, day, time.Now())
			if err != nil {
				panic(err)
			}
			err = ledger.Insert(context.Background(), rec)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case store.IsDuplicateError(err):
				claimed++
			default:
				unexpect = append(unexpect, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, unexpect)
	assert.Equal(t, 1, success)
	assert.Equal(t, attempts-1, claimed)

	exists, err := ledger.Exists(context.Background(), owner, domain.ChannelPush, domain.NotificationKindDueToday, day)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestIntegration_DeviceReassignment(t *testing.T) {
	db := openTestDB(t)
	first, second := createUser(t, db), createUser(t, db)
	devices := NewPostgresDeviceStore(db, quietLogger())
	token := "tok-" + uuid.NewString()

	dt, err := domain.NewDeviceToken(first, token, domain.PlatformAndroid, time.Now())
	require.NoError(t, err)
	created, err := devices.Upsert(context.Background(), dt)
	require.NoError(t, err)
	assert.True(t, created)

	n, err := devices.Deactivate(context.Background(), []string{token}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	again, err := domain.NewDeviceToken(second, token, domain.PlatformIOS, time.Now())
	require.NoError(t, err)
	created, err = devices.Upsert(context.Background(), again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, dt.ID, again.ID)

	mine, err := devices.ListActive(context.Background(), second)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, domain.PlatformIOS, mine[0].Platform)

	theirs, err := devices.ListActive(context.Background(), first)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestIntegration_ScheduleUnitOfWorkRollsBack(t *testing.T) {
	db := openTestDB(t)
	owner := createUser(t, db)
	uow := NewScheduleUnitOfWork(db, quietLogger())

	rule, err := domain.NewScheduleRule(owner, uuid.New(), domain.TaskKindWater,
		civil.Date{Year: 2024, Month: time.May, Day: 1}, 7, domain.IntervalUnitDays)
	require.NoError(t, err)

	boom := assert.AnError
	err = uow.WithinTx(context.Background(), func(ctx context.Context, rules store.RuleStore, occ store.OccurrenceStore) error {
		if err := rules.Create(ctx, rule); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = NewPostgresRuleStore(db, quietLogger()).GetByID(context.Background(), rule.ID)
	assert.ErrorIs(t, err, store.ErrRuleNotFound)
}
