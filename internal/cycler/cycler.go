// Package cycler implements the deterministic multi-cycler pipeline
// runtime: a fixed-rate (or perception-driven) loop that runs a plan of
// nodes once per tick, publishes its output database to the last-value
// watch channel other cyclers subscribe to, and classifies every error
// into a handling policy rather than letting any one node's failure take
// the whole process down.
package cycler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hulks-go/motioncore/internal/hardware"
	"github.com/hulks-go/motioncore/internal/paramtree"
	"github.com/hulks-go/motioncore/internal/watch"
)

// Kind distinguishes a cycler driven by a fixed-rate clock (the motion
// and control loops) from one driven by whenever its upstream perception
// arrives (vision, audio).
type Kind int

const (
	KindRealTime Kind = iota
	KindPerception
)

// Config is the static configuration a Cycler is built from; it never
// changes after New.
type Config struct {
	Name   string
	Kind   Kind
	Period time.Duration // only meaningful for KindRealTime

	Plan *Plan

	// Subscriptions names the other cyclers' published databases this
	// cycler's nodes may read via CrossInput.
	Subscriptions map[string]*watch.Channel[*Database]

	// AdditionalOutputPaths is the set of debug output paths a watcher has
	// asked to see; any other additional output a node writes is dropped.
	AdditionalOutputPaths map[string]bool

	HistoricWindow time.Duration
	HistoricMargin time.Duration

	Params *paramtree.Tree
	HW     hardware.Interface
	Log    *slog.Logger
}

// Cycler runs one Plan on a loop and publishes its Database after every
// successful tick.
type Cycler struct {
	cfg Config

	published *watch.Channel[*Database]
	historic  *HistoricStore
	perSource map[string]*PerceptionSource
	state     *State

	crossAges map[string]uint64

	log *slog.Logger
}

// New constructs a Cycler ready to Run. consumerCount bounds how many
// goroutines will call Read/AwaitChange on the published channel
// concurrently (other cyclers subscribing, plus any introspection
// watcher), sizing the slot pool so none of them ever blocks the
// producer.
func New(cfg Config, consumerCount int) *Cycler {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	perSource := make(map[string]*PerceptionSource, len(cfg.Subscriptions))
	for name := range cfg.Subscriptions {
		perSource[name] = NewPerceptionSource()
	}
	return &Cycler{
		cfg:       cfg,
		published: watch.New[*Database](watch.DefaultSlots+consumerCount, consumerCount),
		historic:  NewHistoricStore(cfg.HistoricWindow, cfg.HistoricMargin),
		perSource: perSource,
		state:     NewState(),
		crossAges: map[string]uint64{},
		log:       log.With("cycler", cfg.Name),
	}
}

// Published returns the watch channel this cycler's own output database
// is broadcast over.
func (c *Cycler) Published() *watch.Channel[*Database] { return c.published }

// PerceptionSource returns the producer-side queue a perception cycler
// named name can publish frames into for this cycler to consume; callers
// wire this between Cyclers at startup, not from inside a node.
func (c *Cycler) PerceptionSource(name string) *PerceptionSource {
	return c.perSource[name]
}

// Run drives the cycler's tick loop until ctx is cancelled or a fatal
// error occurs, in which case it returns that error so an errgroup
// joining every cycler in the process can cancel the others.
func (c *Cycler) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)

	_, paramAge := c.cfg.Params.Changes().Latest()

	group.Go(func() error {
		return c.tickLoop(groupCtx, paramAge)
	})

	return group.Wait()
}

func (c *Cycler) tickLoop(ctx context.Context, paramAge uint64) error {
	var ticker *time.Ticker
	if c.cfg.Kind == KindRealTime && c.cfg.Period > 0 {
		ticker = time.NewTicker(c.cfg.Period)
		defer ticker.Stop()
	}

	lastTick := time.Now()
	params := c.cfg.Params.Snapshot()

	for {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		} else {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
		}

		if snap, age := c.cfg.Params.Changes().Latest(); age > paramAge {
			params = snap
			paramAge = age
		}

		now := time.Now()
		cycleTime := now.Sub(lastTick)
		lastTick = now

		if err := c.tick(ctx, now, cycleTime, params); err != nil {
			if errors.Is(err, ErrChannelSenderDropped) {
				c.log.Info("upstream sender dropped, stopping cycler", "error", err)
				return nil
			}
			sev := Classify(err)
			switch sev {
			case SeverityFatal:
				c.log.Error("fatal tick error, tearing down cycler", "error", err)
				return err
			case SeverityRecoverable:
				c.log.Warn("tick aborted, no output committed", "error", err)
			case SeveritySkip:
				c.log.Debug("tick skipped, required input not yet available", "error", err)
			}
		}
	}
}

func (c *Cycler) tick(ctx context.Context, start time.Time, cycleTime time.Duration, params paramtree.Snapshot) error {
	crossDBs := make(map[string]*Database, len(c.cfg.Subscriptions))
	for name, ch := range c.cfg.Subscriptions {
		db, age := ch.Latest()
		crossDBs[name] = db
		c.crossAges[name] = age
	}

	perception := make(map[string]PerceptionGroup, len(c.perSource))
	for name, src := range c.perSource {
		perception[name] = src.DrainForTick(start)
	}

	tc := &TickContext{
		CyclerName:     c.cfg.Name,
		StartTime:      start,
		CycleTime:      cycleTime,
		db:             newDatabase(),
		crossCyclerDBs: crossDBs,
		historic:       c.historic,
		perception:     perception,
		params:         params,
		state:          c.state,
		hw:             c.cfg.HW,
		subscriptions:  c.cfg.AdditionalOutputPaths,
	}

	for _, spec := range c.cfg.Plan.Setup {
		if err := spec.Node.Cycle(tc); err != nil {
			return err
		}
	}
	for _, spec := range c.cfg.Plan.Cycle {
		if err := spec.Node.Cycle(tc); err != nil {
			return err
		}
	}

	for path, value := range tc.db.MainOutputs {
		c.historic.Push(path, start, value)
	}

	guard, err := c.published.Write()
	if err != nil {
		return &FatalError{Err: err}
	}
	*guard.Value() = tc.db
	guard.Release()

	return nil
}
