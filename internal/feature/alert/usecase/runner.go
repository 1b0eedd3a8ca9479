package usecase

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"stock_alerts/internal/feature/alert/domain"
	"stock_alerts/internal/feature/alert/domain/entity"
	inddomain "stock_alerts/internal/feature/indicator/domain"
	indentity "stock_alerts/internal/feature/indicator/domain/entity"
)

// ErrCycleInProgress は前回のサイクルが実行中のためサイクルを見送ったことを示します。
var ErrCycleInProgress = errors.New("evaluation cycle already in progress")

// Config はスケジューラの設定です。
type Config struct {
	// Interval はサイクルの実行間隔です。
	Interval time.Duration
	// Workers は同時に処理する (銘柄, 時間足) の最大数です。
	Workers int
	// FetchTimeout はスナップショット計算1回あたりのタイムアウトです。
	FetchTimeout time.Duration
	// WatchIntervals はウォッチリスト銘柄のスナップショットを更新する時間足です。
	WatchIntervals []string
	// LogRetention が正ならアラートログをこの期間だけ保持します。
	LogRetention time.Duration
}

// DefaultConfig はスケジューラの既定設定を返します。
func DefaultConfig() Config {
	return Config{
		Interval:       time.Minute,
		Workers:        4,
		FetchTimeout:   15 * time.Second,
		WatchIntervals: []string{entity.DefaultInterval},
	}
}

// CycleReport は1サイクルの集計です。
type CycleReport struct {
	Cycle     uint64
	StartedAt time.Time
	Units     int
	Failed    int
	Skipped   int
	Evaluated int
	Fired     int
	Malformed int
}

type seriesKey struct {
	symbol   string
	interval string
}

type unit struct {
	key    seriesKey
	alerts []entity.Alert
}

type unitResult struct {
	failed    bool
	evaluated int
	fired     int
	malformed int
}

// Runner は評価サイクルを駆動するスケジューラです。
//
// 1サイクルでは (銘柄, 時間足) ごとにスナップショットを1回だけ計算し、
// その銘柄のアラートを同じスナップショットで順に評価します。
// 単位ごとの失敗はそのサイクルの他の単位に影響しません。
type Runner struct {
	cfg       Config
	alerts    AlertRepository
	watchlist WatchlistRepository
	engine    SnapshotComputer
	machine   *StateMachine
	evaluator Evaluator
	snapshots SnapshotStore
	recorder  Recorder
	now       func() time.Time

	running sync.Mutex

	mu        sync.Mutex
	cycle     uint64
	prev      map[seriesKey]indentity.Snapshot
	seen      map[uint]uint64
	lastPurge time.Time
}

// RunnerOption は Runner の任意設定です。
type RunnerOption func(*Runner)

// WithClock は現在時刻の取得関数を差し替えます。
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithSnapshotStore は計算したスナップショットの公開先を設定します。
func WithSnapshotStore(s SnapshotStore) RunnerOption {
	return func(r *Runner) { r.snapshots = s }
}

// WithRecorder はメトリクスの記録先を設定します。
func WithRecorder(rec Recorder) RunnerOption {
	return func(r *Runner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// NewRunner は Runner を生成します。watchlist は nil でも構いません。
func NewRunner(
	cfg Config,
	alerts AlertRepository,
	watchlist WatchlistRepository,
	engine SnapshotComputer,
	machine *StateMachine,
	opts ...RunnerOption,
) *Runner {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	r := &Runner{
		cfg:       cfg,
		alerts:    alerts,
		watchlist: watchlist,
		engine:    engine,
		machine:   machine,
		recorder:  nopRecorder{},
		now:       time.Now,
		prev:      make(map[seriesKey]indentity.Snapshot),
		seen:      make(map[uint]uint64),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start は ctx がキャンセルされるまで一定間隔でサイクルを実行します。
// 実行中のサイクルが終わってから戻るため、呼び出し側は戻りを待てば安全に停止できます。
func (r *Runner) Start(ctx context.Context) {
	slog.Info("alert scheduler started", "interval", r.cfg.Interval, "workers", r.cfg.Workers)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("alert scheduler stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	if _, err := r.RunCycle(ctx); err != nil {
		switch {
		case errors.Is(err, ErrCycleInProgress):
			slog.Warn("evaluation cycle skipped: previous cycle still running")
		case errors.Is(err, context.Canceled):
		default:
			slog.Error("evaluation cycle failed", "error", err)
		}
	}
}

// RunCycle は評価サイクルを1回実行します。
//
// 前回のサイクルが実行中なら ErrCycleInProgress を返して何もしません。
// アラート一覧の取得に失敗した場合のみエラーを返し、単位ごとの失敗は集計に含めます。
// ctx がキャンセルされると新しい単位は開始せず、開始済みの単位は完了まで処理します。
func (r *Runner) RunCycle(ctx context.Context) (CycleReport, error) {
	if !r.running.TryLock() {
		r.recorder.IncCycleSkipped()
		return CycleReport{}, ErrCycleInProgress
	}
	defer r.running.Unlock()

	if err := ctx.Err(); err != nil {
		return CycleReport{}, err
	}

	started := time.Now()
	now := r.now()
	report, err := r.runCycle(ctx, now)
	r.recorder.ObserveCycle(time.Since(started), report, err)
	if err != nil {
		return report, err
	}

	slog.Info("evaluation cycle finished",
		"cycle", report.Cycle,
		"units", report.Units,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"evaluated", report.Evaluated,
		"fired", report.Fired,
		"malformed", report.Malformed,
		"elapsed", time.Since(started),
	)
	r.purgeLogs(ctx, now)
	return report, nil
}

func (r *Runner) runCycle(ctx context.Context, now time.Time) (CycleReport, error) {
	alerts, err := r.alerts.ListActive(ctx)
	if err != nil {
		return CycleReport{StartedAt: now}, fmt.Errorf("list active alerts: %w", err)
	}
	units := r.plan(ctx, alerts)

	r.mu.Lock()
	r.cycle++
	cycle := r.cycle
	r.mu.Unlock()

	report := CycleReport{Cycle: cycle, StartedAt: now, Units: len(units)}

	// 開始済みの単位はシャットダウン要求後も完了させる
	work := context.WithoutCancel(ctx)

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(r.cfg.Workers)
	for _, u := range units {
		if ctx.Err() != nil {
			report.Skipped++
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				return nil
			}
			res := r.runUnit(work, cycle, now, u)
			mu.Lock()
			defer mu.Unlock()
			if res.failed {
				report.Failed++
			}
			report.Evaluated += res.evaluated
			report.Fired += res.fired
			report.Malformed += res.malformed
			return nil
		})
	}
	_ = g.Wait()

	r.forgetStale(cycle)
	return report, nil
}

// plan はアラートとウォッチリストから (銘柄, 時間足) の単位を組み立てます。
func (r *Runner) plan(ctx context.Context, alerts []entity.Alert) []unit {
	byKey := make(map[seriesKey]*unit)
	add := func(k seriesKey) *unit {
		u, ok := byKey[k]
		if !ok {
			u = &unit{key: k}
			byKey[k] = u
		}
		return u
	}

	seenIDs := make(map[uint]struct{}, len(alerts))
	for _, a := range alerts {
		if _, dup := seenIDs[a.ID]; dup {
			continue
		}
		seenIDs[a.ID] = struct{}{}
		u := add(seriesKey{symbol: a.SymbolCode, interval: a.SeriesInterval()})
		u.alerts = append(u.alerts, a)
	}

	if r.watchlist != nil {
		symbols, err := r.watchlist.ListWatchedSymbols(ctx)
		if err != nil {
			slog.Warn("failed to list watched symbols; evaluating alerts only", "error", err)
		}
		for _, s := range symbols {
			for _, iv := range r.cfg.WatchIntervals {
				add(seriesKey{symbol: s, interval: iv})
			}
		}
	}

	units := make([]unit, 0, len(byKey))
	for _, u := range byKey {
		slices.SortFunc(u.alerts, func(a, b entity.Alert) int { return cmp.Compare(a.ID, b.ID) })
		units = append(units, *u)
	}
	slices.SortFunc(units, func(a, b unit) int {
		return cmp.Or(cmp.Compare(a.key.symbol, b.key.symbol), cmp.Compare(a.key.interval, b.key.interval))
	})
	return units
}

// runUnit は1単位のスナップショットを計算し、その銘柄のアラートを順に評価します。
func (r *Runner) runUnit(ctx context.Context, cycle uint64, now time.Time, u unit) unitResult {
	var res unitResult
	logger := slog.With("symbol", u.key.symbol, "interval", u.key.interval, "cycle", cycle)

	fctx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	snap, err := r.engine.ComputeSnapshot(fctx, u.key.symbol, u.key.interval, now)
	cancel()
	if err != nil {
		reason := "error"
		switch {
		case errors.Is(err, inddomain.ErrInsufficientData):
			reason = "insufficient_data"
			logger.Warn("snapshot skipped: insufficient data", "error", err)
		case errors.Is(err, context.DeadlineExceeded):
			reason = "timeout"
			logger.Warn("snapshot skipped: candle fetch timed out", "timeout", r.cfg.FetchTimeout)
		default:
			logger.Error("snapshot skipped: candle fetch failed", "error", err)
		}
		r.recorder.IncUnitFailure(reason)
		res.failed = true
		return res
	}

	if r.snapshots != nil {
		if err := r.snapshots.Put(ctx, snap); err != nil {
			logger.Warn("failed to publish snapshot", "error", err)
		}
	}

	r.mu.Lock()
	prevSnap, hasPrev := r.prev[u.key]
	r.prev[u.key] = snap
	r.mu.Unlock()

	for _, a := range u.alerts {
		if a.StateAt(now) != entity.StateActive {
			continue
		}

		r.mu.Lock()
		last := r.seen[a.ID]
		r.seen[a.ID] = cycle
		r.mu.Unlock()

		// 前回サイクルで評価されたアラートにだけ前回スナップショットを見せる
		var prev *indentity.Snapshot
		if hasPrev && last != 0 && last == cycle-1 {
			p := prevSnap
			prev = &p
		}

		res.evaluated++
		ok, err := r.evaluator.Evaluate(a, snap, prev)
		if err != nil {
			if errors.Is(err, domain.ErrMalformedCondition) {
				res.malformed++
				r.flagMalformed(ctx, a, err)
				continue
			}
			logger.Error("alert evaluation failed", "alert_id", a.ID, "error", err)
			continue
		}
		if a.ConditionError != "" {
			r.clearMalformed(ctx, a)
		}
		if !ok {
			continue
		}

		if _, err := r.machine.Fire(ctx, a, snap, now); err != nil {
			if errors.Is(err, domain.ErrNotEligible) {
				logger.Debug("alert fire rejected", "alert_id", a.ID, "error", err)
				continue
			}
			logger.Error("alert fire failed", "alert_id", a.ID, "error", err)
			continue
		}
		res.fired++
	}
	return res
}

func (r *Runner) flagMalformed(ctx context.Context, a entity.Alert, cause error) {
	r.recorder.IncMalformed()
	msg := truncate(cause.Error(), 512)
	slog.Warn("alert condition is malformed; skipping", "alert_id", a.ID, "error", cause)
	if a.ConditionError == msg {
		return
	}
	if err := r.alerts.FlagCondition(ctx, a.ID, msg); err != nil {
		slog.Error("failed to flag malformed condition", "alert_id", a.ID, "error", err)
	}
}

func (r *Runner) clearMalformed(ctx context.Context, a entity.Alert) {
	if err := r.alerts.FlagCondition(ctx, a.ID, ""); err != nil {
		slog.Error("failed to clear condition flag", "alert_id", a.ID, "error", err)
	}
}

// forgetStale は前回サイクルより古い評価履歴を破棄します。
func (r *Runner) forgetStale(cycle uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, last := range r.seen {
		if last+1 < cycle {
			delete(r.seen, id)
		}
	}
}

// purgeLogs は保持期間を過ぎたアラートログを1日1回まで削除します。
func (r *Runner) purgeLogs(ctx context.Context, now time.Time) {
	if r.cfg.LogRetention <= 0 {
		return
	}
	r.mu.Lock()
	due := r.lastPurge.IsZero() || now.Sub(r.lastPurge) >= 24*time.Hour
	if due {
		r.lastPurge = now
	}
	r.mu.Unlock()
	if !due {
		return
	}

	cutoff := now.Add(-r.cfg.LogRetention)
	n, err := r.alerts.PurgeLogsBefore(context.WithoutCancel(ctx), cutoff)
	if err != nil {
		slog.Error("failed to purge alert logs", "cutoff", cutoff, "error", err)
		return
	}
	slog.Info("purged alert logs", "cutoff", cutoff, "deleted", n)
}
