package adapters

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"stock_alerts/internal/feature/alert/domain"
	"stock_alerts/internal/feature/alert/domain/entity"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// setupTestDB はテスト用のインメモリSQLiteデータベースを準備します。
// :memory: は接続ごとに別DBになるため、接続数を1に固定します。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&entity.Alert{}, &entity.AlertLog{}), "failed to migrate tables")
	return db
}

// seedAlert はテスト用のアラートを作成します。
// default:true のため、無効なアラートは作成後に更新します。
func seedAlert(t *testing.T, db *gorm.DB, owner uint, code string, active bool, cooldown time.Duration) *entity.Alert {
	t.Helper()

	a := &entity.Alert{
		OwnerUserID: owner,
		SymbolCode:  code,
		Name:        code + " breakout",
		Condition:   datatypes.JSON(`{"kind":"compare","left":{"field":"close"},"op":">","right":{"value":100}}`),
		Active:      true,
		Cooldown:    cooldown,
	}
	require.NoError(t, db.Create(a).Error, "failed to seed alert")
	if !active {
		require.NoError(t, db.Model(a).Update("active", false).Error)
		a.Active = false
	}
	return a
}

func newLog(a *entity.Alert, firedAt time.Time, eventID string) *entity.AlertLog {
	return &entity.AlertLog{
		AlertID:     a.ID,
		OwnerUserID: a.OwnerUserID,
		SymbolCode:  a.SymbolCode,
		Interval:    a.SeriesInterval(),
		FiredAt:     firedAt,
		SnapshotRef: a.SymbolCode + ":1day:" + firedAt.Format(time.RFC3339),
		Snapshot:    datatypes.JSON(`{"close":101}`),
		EventID:     eventID,
		Outcome:     entity.OutcomePending,
	}
}

func TestAlertRepository_ListActive(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	a := seedAlert(t, db, 1, "AAPL", true, time.Hour)
	seedAlert(t, db, 1, "MSFT", false, time.Hour)
	c := seedAlert(t, db, 2, "7203.T", true, 0)

	alerts, err := repo.ListActive(context.Background())

	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, a.ID, alerts[0].ID)
	assert.Equal(t, c.ID, alerts[1].ID)
	assert.Equal(t, time.Hour, alerts[0].Cooldown)
	assert.Equal(t, "1day", alerts[0].SeriesInterval())
}

func TestAlertRepository_FindAndSetActive(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()
	a := seedAlert(t, db, 1, "AAPL", true, time.Hour)

	tests := []struct {
		name    string
		id      uint
		owner   uint
		active  bool
		wantErr error
	}{
		{name: "success: disable", id: a.ID, owner: 1, active: false},
		{name: "success: disable twice is idempotent", id: a.ID, owner: 1, active: false},
		{name: "success: enable", id: a.ID, owner: 1, active: true},
		{name: "error: other owner", id: a.ID, owner: 2, active: false, wantErr: domain.ErrAlertNotFound},
		{name: "error: unknown id", id: 999, owner: 1, active: false, wantErr: domain.ErrAlertNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.SetActive(ctx, tt.id, tt.owner, tt.active)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.active, got.Active)

			stored, err := repo.FindByID(ctx, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.active, stored.Active)
		})
	}

	_, err := repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrAlertNotFound)
}

func TestAlertRepository_RecordFire(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()
	a := seedAlert(t, db, 1, "AAPL", true, time.Hour)

	// 初回発火
	updated, err := repo.RecordFire(ctx, *a, t0, newLog(a, t0, "00000000-0000-0000-0000-000000000001"))
	require.NoError(t, err)
	assert.Equal(t, 1, updated.TriggerCount)
	require.NotNil(t, updated.LastTriggeredAt)
	assert.True(t, t0.Equal(*updated.LastTriggeredAt))

	// クールダウン中は拒否され、ログも増えない
	_, err = repo.RecordFire(ctx, *a, t0.Add(30*time.Minute), newLog(a, t0.Add(30*time.Minute), "00000000-0000-0000-0000-000000000002"))
	assert.ErrorIs(t, err, domain.ErrNotEligible)

	// ちょうどクールダウン明けは発火できる
	updated, err = repo.RecordFire(ctx, *a, t0.Add(time.Hour), newLog(a, t0.Add(time.Hour), "00000000-0000-0000-0000-000000000003"))
	require.NoError(t, err)
	assert.Equal(t, 2, updated.TriggerCount)

	logs, err := repo.ListLogs(ctx, a.ID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.True(t, t0.Add(time.Hour).Equal(logs[0].FiredAt))
	assert.Equal(t, entity.OutcomePending, logs[0].Outcome)
}

func TestAlertRepository_RecordFire_Inactive(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	a := seedAlert(t, db, 1, "AAPL", false, 0)

	_, err := repo.RecordFire(context.Background(), *a, t0, newLog(a, t0, "00000000-0000-0000-0000-000000000001"))

	assert.ErrorIs(t, err, domain.ErrNotEligible)
	var count int64
	require.NoError(t, db.Model(&entity.AlertLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAlertRepository_RecordFire_RollsBackOnLogFailure(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()
	a := seedAlert(t, db, 1, "AAPL", true, 0)

	_, err := repo.RecordFire(ctx, *a, t0, newLog(a, t0, "dup"))
	require.NoError(t, err)

	// event_id の一意制約違反でログ挿入が失敗したらカウンタも戻る
	_, err = repo.RecordFire(ctx, *a, t0.Add(time.Minute), newLog(a, t0.Add(time.Minute), "dup"))
	assert.Error(t, err)

	stored, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TriggerCount)
	assert.True(t, t0.Equal(*stored.LastTriggeredAt))
}

func TestAlertRepository_RecordFire_Concurrent(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	a := seedAlert(t, db, 1, "AAPL", true, time.Hour)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.RecordFire(context.Background(), *a, t0, newLog(a, t0, fmt.Sprintf("event-%d", i)))
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	stored, err := repo.FindByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TriggerCount)
}

func TestAlertRepository_UpdateLogOutcome(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()
	a := seedAlert(t, db, 1, "AAPL", true, 0)

	delivered := newLog(a, t0, "e1")
	_, err := repo.RecordFire(ctx, *a, t0, delivered)
	require.NoError(t, err)
	failed := newLog(a, t0.Add(time.Minute), "e2")
	_, err = repo.RecordFire(ctx, *a, t0.Add(time.Minute), failed)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateLogOutcome(ctx, delivered.ID, entity.OutcomeDelivered, "", t0.Add(time.Second)))
	require.NoError(t, repo.UpdateLogOutcome(ctx, failed.ID, entity.OutcomeFailed, "notification delivery failed: 503", t0.Add(time.Minute)))

	logs, err := repo.ListLogs(ctx, a.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	assert.Equal(t, entity.OutcomeFailed, logs[0].Outcome)
	assert.Equal(t, "notification delivery failed: 503", logs[0].OutcomeError)
	assert.Nil(t, logs[0].DeliveredAt)

	assert.Equal(t, entity.OutcomeDelivered, logs[1].Outcome)
	require.NotNil(t, logs[1].DeliveredAt)
	assert.True(t, t0.Add(time.Second).Equal(*logs[1].DeliveredAt))
}

func TestAlertRepository_FlagCondition(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()
	a := seedAlert(t, db, 1, "AAPL", true, 0)

	require.NoError(t, repo.FlagCondition(ctx, a.ID, "unknown field \"macd\""))
	stored, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "unknown field \"macd\"", stored.ConditionError)
	assert.True(t, stored.Active)

	require.NoError(t, repo.FlagCondition(ctx, a.ID, ""))
	stored, err = repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.ConditionError)
}

func TestAlertRepository_ListLogsAndPurge(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()
	a := seedAlert(t, db, 1, "AAPL", true, 0)
	b := seedAlert(t, db, 1, "MSFT", true, 0)

	for i := range 5 {
		at := t0.Add(time.Duration(i) * 24 * time.Hour)
		_, err := repo.RecordFire(ctx, *a, at, newLog(a, at, fmt.Sprintf("a-%d", i)))
		require.NoError(t, err)
	}
	_, err := repo.RecordFire(ctx, *b, t0, newLog(b, t0, "b-0"))
	require.NoError(t, err)

	logs, err := repo.ListLogs(ctx, a.ID, 3)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.True(t, t0.Add(4*24*time.Hour).Equal(logs[0].FiredAt))

	deleted, err := repo.PurgeLogsBefore(ctx, t0.Add(2*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	logs, err = repo.ListLogs(ctx, a.ID, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 3)

	// ログを消してもカウンタは減らない
	stored, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.TriggerCount)
}

func TestAlertRepository_ListByOwner(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	seedAlert(t, db, 1, "AAPL", true, 0)
	seedAlert(t, db, 1, "MSFT", false, 0)
	seedAlert(t, db, 2, "7203.T", true, 0)

	alerts, err := repo.ListByOwner(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "AAPL", alerts[0].SymbolCode)
	assert.False(t, alerts[1].Active)
}
