package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gangwayhq/gangway/internal/logging"
	"github.com/gangwayhq/gangway/pkg/flow"
	"github.com/gangwayhq/gangway/pkg/ports"
)

// OpKind identifies a remote write operation.
type OpKind string

const (
	OpSaveProgress OpKind = "save-progress"
	OpMarkComplete OpKind = "mark-complete"
)

// Operation is one pending remote write. Operations are durable: they
// are persisted to the local cache on enqueue and removed only after
// the server acknowledges them, so a crashed or offline session resumes
// syncing where it left off.
type Operation struct {
	Seq        uint64            `json:"seq"`
	Kind       OpKind            `json:"kind"`
	Request    ports.SaveRequest `json:"request"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
	Attempts   int               `json:"attempts"`
}

// Outbox is the background half of the dual-write model: a durable
// queue of remote operations flushed with exponential backoff. Enqueue
// never fails the caller and never blocks on the network; a failed
// dispatch leaves local truth ahead of server truth until a later flush
// succeeds.
type Outbox struct {
	store   ports.BlobStore
	keys    Keyspace
	api     ports.OnboardingAPI
	logger  *slog.Logger
	clock   ports.Clock
	metrics *Metrics

	flushInterval time.Duration
	maxRetries    uint64

	mu      sync.Mutex
	seq     uint64
	pending map[uint64]*Operation
	status  flow.SaveStatus

	// flushMu serializes flush passes so the background worker and an
	// explicit Flush never dispatch the same operation twice.
	flushMu sync.Mutex

	wake   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// OutboxOption configures an Outbox.
type OutboxOption func(*Outbox)

// WithOutboxLogger sets the logger.
func WithOutboxLogger(logger *slog.Logger) OutboxOption {
	return func(o *Outbox) { o.logger = logger }
}

// WithOutboxClock injects the clock.
func WithOutboxClock(clock ports.Clock) OutboxOption {
	return func(o *Outbox) { o.clock = clock }
}

// WithOutboxMetrics attaches Prometheus metrics.
func WithOutboxMetrics(m *Metrics) OutboxOption {
	return func(o *Outbox) { o.metrics = m }
}

// WithFlushInterval sets how often the worker retries pending
// operations absent new enqueues.
func WithFlushInterval(d time.Duration) OutboxOption {
	return func(o *Outbox) { o.flushInterval = d }
}

// NewOutbox creates an outbox for one session scope, recovers any
// operations persisted by a previous run, and starts the background
// worker.
func NewOutbox(store ports.BlobStore, api ports.OnboardingAPI, scope string, opts ...OutboxOption) *Outbox {
	o := &Outbox{
		store:         store,
		keys:          NewKeyspace(scope),
		api:           api,
		logger:        logging.NewNop(),
		clock:         ports.SystemClock{},
		metrics:       NopMetrics(),
		flushInterval: 15 * time.Second,
		maxRetries:    3,
		pending:       make(map[uint64]*Operation),
		wake:          make(chan struct{}, 1),
		status:        flow.SaveStatus{State: flow.SaveIdle},
	}
	for _, opt := range opts {
		opt(o)
	}

	o.recover()

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.wg.Add(1)
	go o.worker(ctx)

	return o
}

// recover loads previously persisted operations back into the queue.
func (o *Outbox) recover() {
	ctx := context.Background()
	keys, err := o.store.Keys(ctx, o.keys.OutboxPrefix())
	if err != nil {
		o.logger.Warn("failed to scan persisted outbox entries", "err", err)
		return
	}
	for _, key := range keys {
		blob, err := o.store.Get(ctx, key)
		if err != nil {
			continue
		}
		var op Operation
		if err := json.Unmarshal(blob, &op); err != nil {
			// Corrupted entry: drop it rather than wedge the queue.
			o.logger.Warn("dropping corrupted outbox entry", "key", key, "err", err)
			_ = o.store.Delete(ctx, key)
			continue
		}
		o.pending[op.Seq] = &op
		if op.Seq >= o.seq {
			o.seq = op.Seq + 1
		}
	}
	o.status.PendingRemote = len(o.pending)
	o.metrics.OutboxDepth.Set(float64(len(o.pending)))
}

// Enqueue appends a remote operation. The bulky-field strip happens
// here so oversized document payloads never hit the wire. Persisting
// the entry is itself best-effort: a cache write error only costs
// crash-durability for this one operation.
func (o *Outbox) Enqueue(ctx context.Context, kind OpKind, req ports.SaveRequest) {
	req.FormData = StripBulky(req.FormData, DefaultMaxFieldBytes)

	o.mu.Lock()
	op := &Operation{
		Seq:        o.seq,
		Kind:       kind,
		Request:    req,
		EnqueuedAt: o.clock.Now(),
	}
	o.seq++
	o.pending[op.Seq] = op
	o.status.State = flow.SaveSaving
	o.status.PendingRemote = len(o.pending)
	o.metrics.OutboxDepth.Set(float64(len(o.pending)))
	o.mu.Unlock()

	o.persist(ctx, op)

	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *Outbox) persist(ctx context.Context, op *Operation) {
	blob, err := json.Marshal(op)
	if err != nil {
		o.logger.Warn("failed to encode outbox entry", "seq", op.Seq, "err", err)
		return
	}
	if err := o.store.Put(ctx, o.keys.Outbox(seqKey(op.Seq)), blob); err != nil {
		o.logger.Warn("failed to persist outbox entry", "seq", op.Seq, "err", err)
	}
}

func seqKey(seq uint64) string {
	return fmt.Sprintf("%020d", seq)
}

// Pending returns a snapshot of queued operations in enqueue order.
func (o *Outbox) Pending() []Operation {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Operation, 0, len(o.pending))
	for _, op := range o.pending {
		out = append(out, *op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Status returns the save-status summary the auto-save coordinator
// polls.
func (o *Outbox) Status() flow.SaveStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Flush synchronously attempts every pending operation. Used by tests
// and by the CLI before exit; the background worker calls the same path.
func (o *Outbox) Flush(ctx context.Context) {
	o.flushMu.Lock()
	defer o.flushMu.Unlock()

	for _, op := range o.Pending() {
		o.dispatch(ctx, op.Seq)
	}

	o.mu.Lock()
	if len(o.pending) == 0 && o.status.State == flow.SaveSaving {
		o.status.State = flow.SaveIdle
	}
	o.mu.Unlock()
}

// dispatch sends one operation with exponential backoff. On success the
// durable entry is removed; on exhaustion the operation stays queued
// for the next flush pass.
func (o *Outbox) dispatch(ctx context.Context, seq uint64) {
	o.mu.Lock()
	op, ok := o.pending[seq]
	if !ok {
		o.mu.Unlock()
		return
	}
	kind := op.Kind
	req := op.Request
	o.mu.Unlock()

	send := func() error {
		switch kind {
		case OpMarkComplete:
			return o.api.MarkStepComplete(ctx, req)
		default:
			return o.api.SaveStepProgress(ctx, req)
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), o.maxRetries), ctx)
	err := backoff.Retry(send, policy)

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, stillPending := o.pending[seq]; !stillPending {
		return // raced with Close/Purge
	}

	if err != nil {
		op.Attempts++
		o.status.State = flow.SaveError
		o.status.LastError = err.Error()
		o.metrics.RemoteSync.WithLabelValues(string(kind), "error").Inc()
		o.logger.Warn("remote sync failed, keeping local truth ahead of server",
			"kind", kind,
			"step", req.StepID,
			"attempts", op.Attempts,
			"err", err,
		)
		return
	}

	delete(o.pending, seq)
	o.status.LastSavedAt = o.clock.Now()
	o.status.LastError = ""
	o.status.PendingRemote = len(o.pending)
	if len(o.pending) == 0 {
		o.status.State = flow.SaveIdle
	}
	o.metrics.OutboxDepth.Set(float64(len(o.pending)))
	o.metrics.RemoteSync.WithLabelValues(string(kind), "ok").Inc()

	// The durable copy is only deleted after acknowledgement.
	if derr := o.store.Delete(context.WithoutCancel(ctx), o.keys.Outbox(seqKey(seq))); derr != nil {
		o.logger.Warn("failed to remove acknowledged outbox entry", "seq", seq, "err", derr)
	}
}

// worker flushes on wake-ups and on the periodic interval.
func (o *Outbox) worker(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.wake:
		case <-ticker.C:
		}
		o.Flush(ctx)
	}
}

// Close stops the background worker. In-flight dispatches finish their
// current attempt but no new ones start; the durable queue remains in
// the cache for the next session.
func (o *Outbox) Close() {
	o.cancel()
	o.wg.Wait()
}
