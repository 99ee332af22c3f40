package world

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/Flavius4914/RTS-Engine/internal/persistence/snapshot"
	"github.com/Flavius4914/RTS-Engine/internal/protocol"
	"github.com/Flavius4914/RTS-Engine/internal/sim/catalogs"
	"github.com/Flavius4914/RTS-Engine/internal/sim/grid"
	"github.com/Flavius4914/RTS-Engine/internal/sim/path"
	"github.com/Flavius4914/RTS-Engine/internal/sim/tuning"
)

// Config is the per-session simulation configuration, resolved from tuning
// plus the scenario seed.
type Config struct {
	TickRateHz           int
	Seed                 int64
	PhaseTicks           int
	WeatherEveryTicks    int
	WeatherWeights       map[string]int
	CommandBudgetPerTick int
	AIEveryTicks         int
	SnapshotEveryTicks   int
}

func ConfigFrom(t tuning.Tuning, seed int64) Config {
	return Config{
		TickRateHz:           t.TickRateHz,
		Seed:                 seed,
		PhaseTicks:           t.PhaseTicks,
		WeatherEveryTicks:    t.WeatherEveryTicks,
		WeatherWeights:       t.WeatherWeights,
		CommandBudgetPerTick: t.CommandBudgetPerTick,
		AIEveryTicks:         t.AIEveryTicks,
		SnapshotEveryTicks:   t.SnapshotEveryTicks,
	}
}

// RecordedCommand is one externally submitted command with its assigned id,
// as written to the tick log for replay.
type RecordedCommand struct {
	ID  string           `json:"id"`
	Cmd protocol.Command `json:"cmd"`
}

// TickLogEntry is the per-tick replay record: the external commands enqueued
// since the previous tick boundary and the state digest after the tick ran.
// AI commands are not recorded; the controller is deterministic and re-issues
// them during replay.
type TickLogEntry struct {
	Tick      uint64            `json:"t"`
	Submitted []RecordedCommand `json:"submitted,omitempty"`
	Digest    string            `json:"digest"`
}

// TickLogger receives one entry per tick on the simulation goroutine.
type TickLogger interface {
	LogTick(TickLogEntry) error
}

// SnapshotFunc persists a state export, called on the simulation goroutine.
type SnapshotFunc func(snapshot.SnapshotV1) error

// WorldMetrics is a point-in-time operational summary, readable from any
// goroutine.
type WorldMetrics struct {
	Tick         uint64
	Units        int
	Buildings    int
	Kingdoms     int
	QueueDepth   int
	Observers    int
	StepMS       float64
	Phase        string
	Weather      string
}

type queuedCommand struct {
	id       string
	cmd      protocol.Command
	internal bool
}

type submitReq struct {
	cmd  protocol.Command
	resp chan submitResp
}

type submitResp struct {
	id   string
	code string
}

type cancelReq struct {
	id      string
	kingdom string
	resp    chan bool
}

// ObserverSession is a spectator stream registration. The world writes one
// marshaled state message per tick with send-latest semantics: when the
// channel is full the stale payload is dropped first.
type ObserverSession struct {
	ID  string
	Out chan []byte
}

// World is the authoritative simulation. All state is owned by the single
// goroutine running Run (or the test caller driving StepOnce); everything
// else talks to it through channels.
type World struct {
	cfg  Config
	cats *catalogs.Catalogs
	gmap *grid.Map

	index   *grid.SpatialIndex
	planner *path.Planner

	tick atomic.Uint64

	kingdoms  map[string]*Kingdom
	units     map[EntityID]*Unit
	buildings map[EntityID]*Building

	nextEntity  uint64
	nextCommand uint64

	// queue is the FIFO command backlog. Per tick at most CommandBudgetPerTick
	// entries are admitted and processed; the rest carry over.
	queue []queuedCommand

	// submitted holds external commands enqueued since the last tick,
	// drained into the tick log entry.
	submitted []RecordedCommand

	weather string
	env     EnvironmentState
	hadKeep map[string]bool

	submitCh chan submitReq
	cancelCh chan cancelReq
	viewCh   chan chan *View
	obsJoin  chan ObserverSession
	obsLeave chan string
	stopCh   chan struct{}

	observers map[string]chan []byte

	tickLog  TickLogger
	snapshot SnapshotFunc

	metrics atomic.Value // WorldMetrics

	logger *log.Logger
}

// New builds a world from a loaded scenario. Map-placed buildings start
// complete; map-placed units start idle.
func New(cfg Config, cats *catalogs.Catalogs, m *grid.Map, mf *grid.MapFile, logger *log.Logger) (*World, error) {
	if logger == nil {
		logger = log.Default()
	}
	w := &World{
		cfg:       cfg,
		cats:      cats,
		gmap:      m,
		index:     grid.NewSpatialIndex(m.Width, m.Height),
		planner:   path.New(m),
		kingdoms:  map[string]*Kingdom{},
		units:     map[EntityID]*Unit{},
		buildings: map[EntityID]*Building{},
		weather:   WeatherClear,
		submitCh:  make(chan submitReq, 64),
		cancelCh:  make(chan cancelReq, 16),
		viewCh:    make(chan chan *View, 16),
		obsJoin:   make(chan ObserverSession, 16),
		obsLeave:  make(chan string, 16),
		stopCh:    make(chan struct{}),
		observers: map[string]chan []byte{},
		logger:    logger,
	}
	for _, mk := range mf.Kingdoms {
		if _, dup := w.kingdoms[mk.ID]; dup {
			return nil, fmt.Errorf("map %s: duplicate kingdom %q", mf.ID, mk.ID)
		}
		w.kingdoms[mk.ID] = &Kingdom{
			ID:     mk.ID,
			Name:   mk.Name,
			AI:     mk.AI,
			Ledger: NewLedger(mk.Stock),
		}
	}
	for _, me := range mf.Entities {
		if _, ok := w.kingdoms[me.Kingdom]; !ok {
			return nil, fmt.Errorf("map %s: entity %s of unknown kingdom %q", mf.ID, me.Kind, me.Kingdom)
		}
		pos := grid.Point{X: me.Pos[0], Y: me.Pos[1]}
		if _, ok := cats.Buildings.Defs[me.Kind]; ok {
			if _, code := w.SpawnBuilding(me.Kind, me.Kingdom, pos, true); code != "" {
				return nil, fmt.Errorf("map %s: place %s at %v: %s", mf.ID, me.Kind, pos, code)
			}
			continue
		}
		if _, ok := cats.Units.Defs[me.Kind]; ok {
			if _, code := w.SpawnUnit(me.Kind, me.Kingdom, pos); code != "" {
				return nil, fmt.Errorf("map %s: place %s at %v: %s", mf.ID, me.Kind, pos, code)
			}
			continue
		}
		return nil, fmt.Errorf("map %s: unknown entity kind %q", mf.ID, me.Kind)
	}
	w.updateEnvironment(0)
	return w, nil
}

// SetTickLogger installs the replay log sink. Call before Run.
func (w *World) SetTickLogger(l TickLogger) { w.tickLog = l }

// SetSnapshotFunc installs the periodic snapshot sink. Call before Run.
func (w *World) SetSnapshotFunc(fn SnapshotFunc) { w.snapshot = fn }

// CurrentTick is safe from any goroutine.
func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) Config() Config               { return w.cfg }
func (w *World) Map() *grid.Map               { return w.gmap }
func (w *World) Catalogs() *catalogs.Catalogs { return w.cats }

// Metrics returns the summary stored at the last tick boundary.
func (w *World) Metrics() WorldMetrics {
	m, _ := w.metrics.Load().(WorldMetrics)
	return m
}

// SubmitCommand queues a command for a future tick and returns its id. The
// returned code is nonempty only for requests malformed beyond queueing
// (unknown kingdom or kind); rule failures surface later as COMMAND_RESULT
// events.
func (w *World) SubmitCommand(ctx context.Context, cmd protocol.Command) (string, string, error) {
	req := submitReq{cmd: cmd, resp: make(chan submitResp, 1)}
	select {
	case w.submitCh <- req:
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
	select {
	case r := <-req.resp:
		return r.id, r.code, nil
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
}

// CancelCommand withdraws a queued command on behalf of kingdom. Reports
// false once the command has been admitted into a tick, was never known, or
// was submitted by a different kingdom.
func (w *World) CancelCommand(ctx context.Context, id, kingdom string) (bool, error) {
	req := cancelReq{id: id, kingdom: kingdom, resp: make(chan bool, 1)}
	select {
	case w.cancelCh <- req:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-req.resp:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// ViewState returns a copy of the observable state, consistent as of a tick
// boundary.
func (w *World) ViewState(ctx context.Context) (*View, error) {
	resp := make(chan *View, 1)
	select {
	case w.viewCh <- resp:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case v := <-resp:
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *World) AddObserver(s ObserverSession) { w.obsJoin <- s }
func (w *World) RemoveObserver(id string)      { w.obsLeave <- id }

// Stop asks Run to exit after the current select iteration.
func (w *World) Stop() { close(w.stopCh) }

// Run drives the fixed-timestep loop until ctx is done or Stop is called.
// Channel requests are absorbed between ticks; each tick then runs on this
// goroutine with exclusive state access.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Printf("world %s running: %d Hz, seed %d", w.gmap.ID, w.cfg.TickRateHz, w.cfg.Seed)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case req := <-w.submitCh:
			id, code := w.enqueue(req.cmd)
			req.resp <- submitResp{id: id, code: code}
		case req := <-w.cancelCh:
			req.resp <- w.withdraw(req.id, req.kingdom)
		case resp := <-w.viewCh:
			resp <- w.buildView()
		case s := <-w.obsJoin:
			w.observers[s.ID] = s.Out
		case id := <-w.obsLeave:
			delete(w.observers, id)
		case <-ticker.C:
			w.StepOnce()
		}
	}
}

// EnqueueCommand is the synchronous form of SubmitCommand for callers on the
// simulation goroutine (tests, replay).
func (w *World) EnqueueCommand(cmd protocol.Command) (string, string) {
	return w.enqueue(cmd)
}

// WithdrawCommand is the synchronous form of CancelCommand.
func (w *World) WithdrawCommand(id, kingdom string) bool { return w.withdraw(id, kingdom) }

// StepOnce advances the world one tick using the same ordering as the
// server loop, returning the tick it ran and the resulting state digest.
// Exposed for tests and replay.
func (w *World) StepOnce() (uint64, string) {
	stepStart := time.Now()
	now := w.tick.Load()

	w.updateEnvironment(now)
	w.admitCommands(now)
	w.systemMovement(now)
	w.systemCombat(now)
	w.systemConstruction(now)
	w.checkDefeats(now)
	w.verifyInvariants()
	w.systemAI(now)

	digest := w.StateDigest()
	entry := TickLogEntry{Tick: now, Submitted: w.submitted, Digest: digest}
	w.submitted = nil
	if w.tickLog != nil {
		if err := w.tickLog.LogTick(entry); err != nil {
			w.logger.Printf("tick log t=%d: %v", now, err)
		}
	}
	w.publishObservers(now)

	w.metrics.Store(WorldMetrics{
		Tick:       now + 1,
		Units:      len(w.units),
		Buildings:  len(w.buildings),
		Kingdoms:   len(w.kingdoms),
		QueueDepth: len(w.queue),
		Observers:  len(w.observers),
		StepMS:     float64(time.Since(stepStart).Microseconds()) / 1000.0,
		Phase:      w.env.Phase,
		Weather:    w.env.Weather,
	})

	w.tick.Store(now + 1)

	// Snapshot after the counter advance so a resumed session starts on the
	// next unprocessed tick.
	if w.snapshot != nil && w.cfg.SnapshotEveryTicks > 0 && now > 0 && now%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		if err := w.snapshot(w.Export()); err != nil {
			w.logger.Printf("snapshot t=%d: %v", now, err)
		}
	}
	return now, digest
}
