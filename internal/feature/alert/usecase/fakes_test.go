package usecase

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"gorm.io/datatypes"

	"stock_alerts/internal/feature/alert/domain"
	"stock_alerts/internal/feature/alert/domain/entity"
	indentity "stock_alerts/internal/feature/indicator/domain/entity"
)

// fakeAlertRepo は条件付き更新まで再現したインメモリの AlertRepository です。
type fakeAlertRepo struct {
	mu      sync.Mutex
	alerts  map[uint]*entity.Alert
	logs    []entity.AlertLog
	nextLog uint

	ListErr     error
	RecordErr   error
	FlagCalls   []string
	PurgeCalls  []time.Time
	PurgeResult int64
}

func newFakeAlertRepo(alerts ...entity.Alert) *fakeAlertRepo {
	r := &fakeAlertRepo{alerts: make(map[uint]*entity.Alert)}
	for _, a := range alerts {
		r.alerts[a.ID] = &a
	}
	return r
}

func (r *fakeAlertRepo) ListActive(ctx context.Context) ([]entity.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	var out []entity.Alert
	for _, a := range r.alerts {
		if a.Active {
			out = append(out, *a)
		}
	}
	slices.SortFunc(out, func(a, b entity.Alert) int { return int(a.ID) - int(b.ID) })
	return out, nil
}

func (r *fakeAlertRepo) ListByOwner(ctx context.Context, ownerID uint) ([]entity.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Alert
	for _, a := range r.alerts {
		if a.OwnerUserID == ownerID {
			out = append(out, *a)
		}
	}
	slices.SortFunc(out, func(a, b entity.Alert) int { return int(a.ID) - int(b.ID) })
	return out, nil
}

func (r *fakeAlertRepo) FindByID(ctx context.Context, id uint) (*entity.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok {
		return nil, domain.ErrAlertNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAlertRepo) SetActive(ctx context.Context, id, ownerID uint, active bool) (*entity.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok || a.OwnerUserID != ownerID {
		return nil, domain.ErrAlertNotFound
	}
	a.Active = active
	cp := *a
	return &cp, nil
}

func (r *fakeAlertRepo) RecordFire(ctx context.Context, alert entity.Alert, firedAt time.Time, log *entity.AlertLog) (*entity.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.RecordErr != nil {
		return nil, r.RecordErr
	}
	a, ok := r.alerts[alert.ID]
	if !ok {
		return nil, domain.ErrAlertNotFound
	}
	if !a.Active || (a.LastTriggeredAt != nil && a.LastTriggeredAt.After(firedAt.Add(-a.Cooldown))) {
		return nil, domain.ErrNotEligible
	}
	a.TriggerCount++
	at := firedAt
	a.LastTriggeredAt = &at
	r.nextLog++
	log.ID = r.nextLog
	r.logs = append(r.logs, *log)
	cp := *a
	return &cp, nil
}

func (r *fakeAlertRepo) UpdateLogOutcome(ctx context.Context, logID uint, outcome entity.Outcome, errMsg string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.logs {
		if r.logs[i].ID == logID {
			r.logs[i].Outcome = outcome
			r.logs[i].OutcomeError = errMsg
			return nil
		}
	}
	return errors.New("log not found")
}

func (r *fakeAlertRepo) FlagCondition(ctx context.Context, id uint, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FlagCalls = append(r.FlagCalls, msg)
	if a, ok := r.alerts[id]; ok {
		a.ConditionError = msg
	}
	return nil
}

func (r *fakeAlertRepo) ListLogs(ctx context.Context, alertID uint, limit int) ([]entity.AlertLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.AlertLog
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].AlertID == alertID {
			out = append(out, r.logs[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeAlertRepo) PurgeLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.PurgeCalls = append(r.PurgeCalls, cutoff)
	return r.PurgeResult, nil
}

func (r *fakeAlertRepo) get(id uint) entity.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.alerts[id]
}

func (r *fakeAlertRepo) logsFor(id uint) []entity.AlertLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.AlertLog
	for _, l := range r.logs {
		if l.AlertID == id {
			out = append(out, l)
		}
	}
	return out
}

// fakeEngine は銘柄ごとに設定したスナップショットかエラーを返します。
type fakeEngine struct {
	mu    sync.Mutex
	snaps map[string]indentity.Snapshot
	errs  map[string]error
	calls map[string]int
	hook  func(ctx context.Context, symbol string)
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		snaps: make(map[string]indentity.Snapshot),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (e *fakeEngine) set(symbol string, close float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snaps[symbol] = indentity.Snapshot{Symbol: symbol, Interval: "1day", Close: close, Candles: 21}
}

func (e *fakeEngine) setSnap(symbol string, s indentity.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snaps[symbol] = s
}

func (e *fakeEngine) fail(symbol string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs[symbol] = err
}

func (e *fakeEngine) callsFor(symbol, interval string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[symbol+"/"+interval]
}

func (e *fakeEngine) ComputeSnapshot(ctx context.Context, symbol, interval string, asOf time.Time) (indentity.Snapshot, error) {
	if e.hook != nil {
		e.hook(ctx, symbol)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls[symbol+"/"+interval]++
	if err := e.errs[symbol]; err != nil {
		return indentity.Snapshot{}, err
	}
	s, ok := e.snaps[symbol]
	if !ok {
		return indentity.Snapshot{}, errors.New("no candles")
	}
	s.Interval = interval
	s.AsOf = asOf
	return s, nil
}

// fakeSink は受け取ったイベントを記録します。
type fakeSink struct {
	mu     sync.Mutex
	events []entity.AlertFiredEvent
	err    error
	block  bool
}

func (s *fakeSink) OnAlertFired(ctx context.Context, event entity.AlertFiredEvent) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// fakeWatchlist はウォッチリストの銘柄を返します。
type fakeWatchlist struct {
	symbols []string
	err     error
}

func (w *fakeWatchlist) ListWatchedSymbols(ctx context.Context) ([]string, error) {
	return w.symbols, w.err
}

// memorySnapshotStore はインメモリの SnapshotStore です。
type memorySnapshotStore struct {
	mu    sync.Mutex
	snaps map[string]indentity.Snapshot
}

func (m *memorySnapshotStore) Put(ctx context.Context, snap indentity.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snaps == nil {
		m.snaps = make(map[string]indentity.Snapshot)
	}
	m.snaps[snap.Symbol+"/"+snap.Interval] = snap
	return nil
}

func (m *memorySnapshotStore) Get(ctx context.Context, symbol, interval string) (*indentity.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snaps[symbol+"/"+interval]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// countingRecorder はメトリクス呼び出しを数えます。
type countingRecorder struct {
	mu        sync.Mutex
	skipped   int
	failures  map[string]int
	fired     int
	delivered map[entity.Outcome]int
	malformed int
	cycles    int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{failures: map[string]int{}, delivered: map[entity.Outcome]int{}}
}

func (c *countingRecorder) ObserveCycle(time.Duration, CycleReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cycles++
}
func (c *countingRecorder) IncCycleSkipped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skipped++
}
func (c *countingRecorder) IncUnitFailure(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[reason]++
}
func (c *countingRecorder) IncFired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fired++
}
func (c *countingRecorder) IncDelivery(o entity.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delivered[o]++
}
func (c *countingRecorder) IncMalformed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.malformed++
}

func closeAbove(v string) datatypes.JSON {
	return datatypes.JSON(`{"kind":"compare","left":{"field":"close"},"op":">","right":{"value":` + v + `}}`)
}

var crossesAboveResistance = datatypes.JSON(`{"kind":"crosses_above","left":{"field":"close"},"right":{"field":"resistance"}}`)
