package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/study-share/internal/config"
	"github.com/spec-kit/study-share/internal/observability"
)

// Status is the terminal state of a dispatch.
type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Reason classifies a failed dispatch.
type Reason string

const (
	ReasonTransport        Reason = "transport"
	ReasonAuthentication   Reason = "authentication"
	ReasonInvalidRecipient Reason = "invalid_recipient"
	ReasonTimeout          Reason = "timeout"
	ReasonQueueFull        Reason = "queue_full"
	ReasonClosed           Reason = "closed"
)

// retryable reports whether a later attempt could succeed.
func (r Reason) retryable() bool {
	return r != ReasonInvalidRecipient
}

// Result is delivered exactly once on the channel SendWelcome returns.
type Result struct {
	JobID  string
	Status Status
	Reason Reason
	Err    error
}

// OK reports a successful send.
func (r Result) OK() bool {
	return r.Status == StatusSent
}

// Job identifies one welcome mail. It is what the FailureStore persists.
type Job struct {
	ID       string    `json:"id"`
	To       string    `json:"to"`
	Name     string    `json:"name"`
	// Attempt counts sends that reached the transport.
	Attempt  int       `json:"attempt"`
	Enqueued time.Time `json:"enqueued_at"`
}

// MetricsRecorder is the subset of metrics the dispatcher feeds.
type MetricsRecorder interface {
	RecordDispatch(status, reason string)
}

// recordMode says where a failure is persisted from.
type recordMode int

const (
	recordInline recordMode = iota
	// recordTracked runs in the background and Close waits for it.
	recordTracked
	// recordDetached runs in the background after Close has begun.
	recordDetached
)

type envelope struct {
	job  Job
	msg  Message
	done chan Result
}

// Dispatcher sends welcome mail on a bounded pool of workers. Callers never
// block on delivery and never see a delivery error synchronously.
type Dispatcher struct {
	transport Transport
	failures  FailureStore
	logger    *zap.Logger
	metrics   MetricsRecorder
	timeout   time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan envelope

	workers sync.WaitGroup
	pending sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// DispatcherDependencies bundles collaborators; Failures and Metrics are optional.
type DispatcherDependencies struct {
	Transport Transport
	Failures  FailureStore
	Logger    *zap.Logger
	Metrics   MetricsRecorder
}

// NewDispatcher starts cfg.Workers workers reading from a queue of cfg.QueueSize.
func NewDispatcher(cfg config.NotificationConfig, deps DispatcherDependencies) *Dispatcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	size := cfg.QueueSize
	if size < 0 {
		size = 0
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		transport: deps.Transport,
		failures:  deps.Failures,
		logger:    logger.Named("notify"),
		metrics:   deps.Metrics,
		timeout:   cfg.SendTimeout(),
		queue:     make(chan envelope, size),
		ctx:       ctx,
		cancel:    cancel,
	}
	for i := 0; i < workers; i++ {
		d.workers.Add(1)
		go d.run()
	}
	return d
}

// SendWelcome queues the welcome mail for to. The returned channel yields one
// Result and is then closed.
func (d *Dispatcher) SendWelcome(to, displayName string) <-chan Result {
	done, _ := d.enqueue(Job{
		ID:       uuid.NewString(),
		To:       to,
		Name:     displayName,
		Enqueued: time.Now().UTC(),
	})
	return done
}

// enqueue reports whether the job reached the queue.
func (d *Dispatcher) enqueue(job Job) (<-chan Result, bool) {
	done := make(chan Result, 1)

	if !ValidAddress(job.To) {
		d.finish(job, done, Result{JobID: job.ID, Status: StatusFailed, Reason: ReasonInvalidRecipient,
			Err: errors.New("invalid recipient address")}, recordInline)
		return done, false
	}
	msg, err := WelcomeMessage(job.To, job.Name)
	if err != nil {
		d.finish(job, done, Result{JobID: job.ID, Status: StatusFailed, Reason: ReasonTransport, Err: err}, recordDetached)
		return done, false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.finish(job, done, Result{JobID: job.ID, Status: StatusFailed, Reason: ReasonClosed,
			Err: errors.New("dispatcher closed")}, recordDetached)
		return done, false
	}
	select {
	case d.queue <- envelope{job: job, msg: msg, done: done}:
		return done, true
	default:
		d.finish(job, done, Result{JobID: job.ID, Status: StatusFailed, Reason: ReasonQueueFull,
			Err: errors.New("notification queue full")}, recordTracked)
		return done, false
	}
}

func (d *Dispatcher) run() {
	defer d.workers.Done()
	for env := range d.queue {
		env.job.Attempt++
		d.finish(env.job, env.done, d.deliver(env), recordInline)
	}
}

func (d *Dispatcher) deliver(env envelope) Result {
	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	err := d.transport.Send(ctx, env.msg)
	if err == nil {
		return Result{JobID: env.job.ID, Status: StatusSent}
	}

	reason := ReasonTransport
	var transportErr *TransportError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		reason = ReasonTimeout
	case errors.As(err, &transportErr):
		reason = transportErr.Reason
	case errors.Is(ctx.Err(), context.Canceled):
		reason = ReasonClosed
	}
	return Result{JobID: env.job.ID, Status: StatusFailed, Reason: reason, Err: err}
}

// finish records the outcome and publishes it.
func (d *Dispatcher) finish(job Job, done chan Result, res Result, mode recordMode) {
	if d.metrics != nil {
		d.metrics.RecordDispatch(string(res.Status), string(res.Reason))
	}
	if res.OK() {
		d.logger.Info("welcome mail sent", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	} else {
		d.logger.Warn("welcome mail failed",
			zap.String("job_id", job.ID),
			zap.String("reason", string(res.Reason)),
			zap.Int("attempt", job.Attempt),
			zap.Error(res.Err),
		)
		observability.CaptureError(res.Err, map[string]string{
			"component": "notify",
			"reason":    string(res.Reason),
		})
		switch mode {
		case recordTracked:
			d.pending.Add(1)
			go func() {
				defer d.pending.Done()
				d.recordFailure(job, res)
			}()
		case recordDetached:
			go d.recordFailure(job, res)
		default:
			d.recordFailure(job, res)
		}
	}
	done <- res
	close(done)
}

func (d *Dispatcher) recordFailure(job Job, res Result) {
	if d.failures == nil || !res.Reason.retryable() {
		return
	}
	if job.Attempt >= MaxAttempts {
		d.logger.Error("welcome mail abandoned", zap.String("job_id", job.ID), zap.Int("attempts", job.Attempt))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	failed := FailedJob{Job: job, Reason: res.Reason, FailedAt: time.Now().UTC()}
	if res.Err != nil {
		failed.Error = res.Err.Error()
	}
	if err := d.failures.Record(ctx, failed); err != nil {
		d.logger.Error("record welcome mail failure", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// Close stops accepting work and waits for queued jobs to drain. When ctx ends
// first, in-flight sends are cancelled and ctx.Err is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		d.workers.Wait()
		d.pending.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-drained
		return ctx.Err()
	}
}
