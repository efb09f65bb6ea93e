// Package bot turns queued Telegram updates into purchase-list operations.
package bot

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"purchasebot/internal/cache"
	"purchasebot/internal/metrics"
	"purchasebot/internal/model"
)

// State is the lifecycle phase of a Processor.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateDispatching
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateDispatching:
		return "DISPATCHING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	}
	return "UNKNOWN"
}

// ProcessorConfig holds the processor settings.
type ProcessorConfig struct {
	// WebhookURL is registered with the messenger by Start.
	WebhookURL string
	// PollInterval bounds how long Run waits for an event before re-checking Stop.
	PollInterval time.Duration
	// HandlerTimeout bounds a single dispatch.
	HandlerTimeout time.Duration
	// DedupTTL is how long a seen update id is remembered.
	DedupTTL time.Duration
}

// Processor is the single consumer of the ingestion queue. Events are handled
// one at a time, in dequeue order, which makes it the only writer of the
// inventory.
type Processor struct {
	cfg       ProcessorConfig
	source    Source
	commands  *Commands
	messenger Messenger
	dedup     cache.Cache
	recorder  Recorder

	state    atomic.Int32
	stopping atomic.Bool

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once

	processed atomic.Uint64
}

// NewProcessor creates a processor. dedup and recorder may be nil.
func NewProcessor(cfg ProcessorConfig, source Source, commands *Commands, messenger Messenger, dedup cache.Cache, recorder Recorder) *Processor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 30 * time.Second
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 24 * time.Hour
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Processor{
		cfg:       cfg,
		source:    source,
		commands:  commands,
		messenger: messenger,
		dedup:     dedup,
		recorder:  recorder,
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start registers the webhook and marks the processor ready.
// A registration failure is returned and the processor stays STARTING.
func (p *Processor) Start(ctx context.Context) error {
	if err := p.messenger.RegisterWebhook(ctx, p.cfg.WebhookURL); err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}

	p.state.CompareAndSwap(int32(StateStarting), int32(StateRunning))
	p.readyOnce.Do(func() { close(p.ready) })
	log.Printf("[Processor] Ready")
	return nil
}

// Ready is closed once Start has succeeded.
func (p *Processor) Ready() <-chan struct{} {
	return p.ready
}

// Done is closed when Run has returned.
func (p *Processor) Done() <-chan struct{} {
	return p.done
}

// State returns the current lifecycle phase.
func (p *Processor) State() State {
	return State(p.state.Load())
}

// Processed returns the number of events dispatched so far.
func (p *Processor) Processed() uint64 {
	return p.processed.Load()
}

// Run consumes events until Stop is called or ctx is cancelled. It returns
// after the in-flight event, if any, has been handled.
func (p *Processor) Run(ctx context.Context) {
	defer p.doneOnce.Do(func() { close(p.done) })
	defer p.state.Store(int32(StateStopped))

	log.Printf("[Processor] Running (poll interval %s)", p.cfg.PollInterval)
	for !p.stopping.Load() && ctx.Err() == nil {
		ev, ok := p.source.Dequeue(p.cfg.PollInterval)
		if !ok {
			continue
		}

		p.state.CompareAndSwap(int32(StateRunning), int32(StateDispatching))
		p.dispatch(ctx, ev)
		p.state.CompareAndSwap(int32(StateDispatching), int32(StateRunning))
	}
	log.Printf("[Processor] Stopped after %d events", p.processed.Load())
}

// Stop asks Run to return. It does not wait; use Done for that.
func (p *Processor) Stop() {
	if !p.stopping.CompareAndSwap(false, true) {
		return
	}
	for {
		s := p.state.Load()
		if State(s) == StateStopped || p.state.CompareAndSwap(s, int32(StateStopping)) {
			break
		}
	}
	log.Printf("[Processor] Stopping")
}

// commandLabel maps ev onto a fixed set of metric label values. Command names
// come from chat members, so anything unrecognised shares one label.
func commandLabel(ev model.Event) string {
	switch ev.Kind {
	case model.EventCallback:
		return "callback"
	case model.EventCommand:
		switch ev.Command {
		case "start", "help", "add", "list", "clear", "stats":
			return ev.Command
		}
	}
	return "unknown"
}

// dispatch handles one event. Panics and errors are logged and never escape.
func (p *Processor) dispatch(ctx context.Context, ev model.Event) {
	start := time.Now()
	label := commandLabel(ev)
	outcome := metrics.OutcomeFailed

	defer func() {
		if r := recover(); r != nil {
			outcome = metrics.OutcomePanic
			log.Printf("[Processor] PANIC handling update %d (%s): %v\n%s", ev.UpdateID, label, r, debug.Stack())
		}
		p.processed.Add(1)
		p.recorder.Processed(label, outcome, time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.HandlerTimeout)
	defer cancel()

	if p.seen(ctx, ev) {
		outcome = metrics.OutcomeDuplicate
		log.Printf("[Processor] Skipping duplicate update %d", ev.UpdateID)
		return
	}

	result, err := p.commands.Handle(ctx, ev)
	outcome = result
	if err != nil {
		log.Printf("[Processor] Update %d (%s) in chat %d failed: %v", ev.UpdateID, label, ev.ChatID, err)
	}
}

// seen records ev's update id and reports whether it had been recorded before.
// Cache errors let the event through.
func (p *Processor) seen(ctx context.Context, ev model.Event) bool {
	if p.dedup == nil || ev.UpdateID == 0 {
		return false
	}

	key := "update:" + strconv.FormatInt(ev.UpdateID, 10)
	stored, err := p.dedup.SetIfAbsent(ctx, key, []byte(ev.ID), p.cfg.DedupTTL)
	if err != nil {
		log.Printf("[Processor] Dedup check failed for update %d: %v", ev.UpdateID, err)
		return false
	}
	return !stored
}
