package scheduler

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/servicemonitor/internal/domain"
	"github.com/hamed0406/servicemonitor/internal/notify"
	"github.com/hamed0406/servicemonitor/internal/probe"
	"github.com/hamed0406/servicemonitor/internal/repo"
)

type Options struct {
	StartupDelay time.Duration
	CycleDelay   time.Duration
	ProbeTimeout time.Duration
	Concurrency  int
	Debug        bool
	// DebugOut receives rendered messages in debug mode; nil means stdout.
	DebugOut io.Writer
	// Journal records notification attempts; nil disables it.
	Journal repo.JournalStore
}

// Daemon owns the probes and their index-aligned state and drives the
// polling cycle.
type Daemon struct {
	logger   *zap.Logger
	probes   []probe.Probe
	policy   Policy
	notifier notify.Notifier
	opts     Options

	mu      sync.RWMutex
	states  []ProbeState
	results []*domain.Message
	cycles  uint64
}

func New(
	logger *zap.Logger,
	probes []probe.Probe,
	policy Policy,
	notifier notify.Notifier,
	opts Options,
) *Daemon {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 10 * time.Second
	}
	if opts.CycleDelay < 0 {
		opts.CycleDelay = 0
	}
	if opts.DebugOut == nil {
		opts.DebugOut = os.Stdout
	}
	return &Daemon{
		logger:   logger,
		probes:   probes,
		policy:   policy,
		notifier: notifier,
		opts:     opts,
		states:   make([]ProbeState, len(probes)),
		results:  make([]*domain.Message, len(probes)),
	}
}

// Run waits for the startup delay, then runs cycles until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) {
	d.logger.Info("daemon_started",
		zap.Int("probes", len(d.probes)),
		zap.Duration("startup_delay", d.opts.StartupDelay),
		zap.Duration("cycle_delay", d.opts.CycleDelay),
		zap.Bool("debug", d.opts.Debug),
	)
	if !sleepCtx(ctx, d.opts.StartupDelay) {
		d.logger.Info("daemon_stopped")
		return
	}

	for {
		if ctx.Err() != nil {
			break
		}
		d.RunCycle(ctx)
		if !sleepCtx(ctx, d.opts.CycleDelay) {
			break
		}
	}
	d.logger.Info("daemon_stopped")
}

// RunCycle runs every probe once, then applies the policy to each result
// in configured order.
func (d *Daemon) RunCycle(ctx context.Context) {
	start := time.Now()
	out := d.runProbes(ctx)

	// results of a pass cut short by shutdown are not trustworthy
	if ctx.Err() != nil {
		d.logger.Info("cycle_aborted", zap.Error(ctx.Err()))
		return
	}

	d.mu.Lock()
	d.cycles++
	for i := range out {
		m := out[i]
		d.results[i] = &m
	}
	d.mu.Unlock()

	var sent, failed int
	for i, m := range out {
		if d.opts.Debug {
			fmt.Fprintf(d.opts.DebugOut, "%s\n\n", m)
			continue
		}
		switch d.handle(ctx, i, m) {
		case sendOK:
			sent++
		case sendFailed:
			failed++
		}
	}

	d.logger.Info("cycle_completed",
		zap.Int("probes", len(out)),
		zap.Int("sent", sent),
		zap.Int("send_failed", failed),
		zap.Duration("took", time.Since(start)),
	)
}

type sendResult int

const (
	sendNone sendResult = iota
	sendOK
	sendFailed
)

func (d *Daemon) handle(ctx context.Context, i int, m domain.Message) sendResult {
	d.mu.Lock()
	decision := d.policy.Evaluate(&d.states[i], m)
	counter := d.states[i].RepeatCounter
	d.mu.Unlock()

	d.logger.Debug("probe_evaluated",
		zap.Int("probe", i),
		zap.String("service", m.Service),
		zap.String("kind", string(m.Probe)),
		zap.Stringer("severity", m.Severity),
		zap.String("header", m.Header),
		zap.Stringer("decision", decision),
		zap.Int("repeat_counter", counter),
	)
	if !decision.Emit() {
		return sendNone
	}

	err := d.notifier.Send(ctx, m)
	d.record(ctx, repo.NewEntry(i, m, decision.String(), err))
	if err != nil {
		d.logger.Error("notify_failed",
			zap.Int("probe", i),
			zap.String("service", m.Service),
			zap.Stringer("severity", m.Severity),
			zap.String("header", m.Header),
			zap.Error(err),
		)
		return sendFailed
	}
	d.logger.Info("notify_sent",
		zap.Int("probe", i),
		zap.String("service", m.Service),
		zap.Stringer("severity", m.Severity),
		zap.String("header", m.Header),
		zap.Stringer("decision", decision),
	)
	return sendOK
}

func (d *Daemon) record(ctx context.Context, e *repo.Entry) {
	if d.opts.Journal == nil {
		return
	}
	if err := d.opts.Journal.Record(ctx, e); err != nil {
		d.logger.Warn("journal_record_error", zap.Int("probe", e.ProbeIndex), zap.Error(err))
	}
}

func (d *Daemon) runProbes(ctx context.Context) []domain.Message {
	out := make([]domain.Message, len(d.probes))

	sem := make(chan struct{}, d.opts.Concurrency)
	var wg sync.WaitGroup

	for i, p := range d.probes {
		i, p := i, p
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() { <-sem }()
			defer wg.Done()

			pctx, cancel := context.WithTimeout(ctx, d.opts.ProbeTimeout)
			defer cancel()

			out[i] = p.Run(pctx)
		}()
	}

	wg.Wait()
	return out
}

// Snapshot returns the current view of every probe, in configured order.
func (d *Daemon) Snapshot() []domain.ProbeStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]domain.ProbeStatus, len(d.probes))
	for i, p := range d.probes {
		st := domain.ProbeStatus{
			Index:         i,
			Service:       p.Service(),
			Probe:         p.Kind(),
			RepeatCounter: d.states[i].RepeatCounter,
		}
		if r := d.results[i]; r != nil {
			cp := *r
			st.LastResult = &cp
		}
		if last := d.states[i].LastMessage; last.Service != "" {
			st.LastMessage = &last
		}
		out[i] = st
	}
	return out
}

// Cycles returns how many full passes have completed.
func (d *Daemon) Cycles() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cycles
}

// sleepCtx waits for dur and reports false if ctx was cancelled first.
func sleepCtx(ctx context.Context, dur time.Duration) bool {
	if dur <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
