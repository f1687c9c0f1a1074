package gojob

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-bankid/adapters/gologger"
	"github.com/goliatone/go-bankid/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	JobIDCheck = "bankid.transaction.check"

	ParamTransactionID = "transaction_id"
	ParamRequest       = "request"
	ParamAttempt       = "attempt"

	defaultPollInterval = 2 * time.Second
)

// Checker is the part of *core.Engine the poll worker drives.
type Checker interface {
	Check(ctx context.Context, id core.TransactionID, request any) (core.CheckResult, error)
}

// ResultHandler observes every settled check: terminal results, expired
// transactions and dead-lettered failures. Pending results are not reported.
type ResultHandler func(ctx context.Context, id core.TransactionID, result core.CheckResult, err error)

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation. An
// unset disposition means retry; retries past MaxAttempts become dead-letter
// or failed depending on DeadLetterOnMax.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	var unset queue.NackOptions
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Disposition == unset.Disposition {
		out.Disposition = queue.NackDispositionRetry
	}
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.Disposition == queue.NackDispositionRetry && p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Delay = 0
		if p.DeadLetterOnMax {
			out.Disposition = queue.NackDispositionDeadLetter
		} else {
			out.Disposition = queue.NackDispositionFailed
		}
	}
	return out
}

// NewCheckMessage builds the job message that asks the poll worker to check
// id. Request must be serializable by the queue backend.
func NewCheckMessage(id core.TransactionID, request any) *job.ExecutionMessage {
	params := map[string]any{ParamTransactionID: string(id)}
	if request != nil {
		params[ParamRequest] = request
	}
	return &job.ExecutionMessage{
		JobID:          JobIDCheck,
		ScriptPath:     JobIDCheck,
		Parameters:     params,
		IdempotencyKey: JobIDCheck + ":" + strings.TrimSpace(string(id)),
	}
}

// EnqueueCheck schedules background polling for id, typically right after
// InitAuth or InitSign.
func EnqueueCheck(ctx context.Context, enqueuer queue.Enqueuer, id core.TransactionID, request any) error {
	if enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if strings.TrimSpace(string(id)) == "" {
		return fmt.Errorf("gojob: transaction id is required")
	}
	_, err := enqueuer.Enqueue(ctx, NewCheckMessage(id, request))
	return err
}

type PollWorkerOption func(*PollWorker)

func WithPollInterval(interval time.Duration) PollWorkerOption {
	return func(w *PollWorker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

func WithRetryPolicy(policy RetryPolicy) PollWorkerOption {
	return func(w *PollWorker) {
		w.policy = policy
	}
}

func WithHook(hook worker.Hook) PollWorkerOption {
	return func(w *PollWorker) {
		w.hook = hook
	}
}

func WithResultHandler(handler ResultHandler) PollWorkerOption {
	return func(w *PollWorker) {
		w.onResult = handler
	}
}

func WithLogger(provider glog.LoggerProvider, logger glog.Logger) PollWorkerOption {
	return func(w *PollWorker) {
		w.logger = gologger.Component("bankid.poll", provider, logger)
	}
}

// PollWorker drains check jobs from a go-job queue. Pending orders are
// nacked back onto the queue with the poll interval as delay; terminal and
// expired ones are acked. Transport faults and provider maintenance are
// retried within the retry policy, anything else is dead-lettered.
type PollWorker struct {
	dequeuer queue.Dequeuer
	checker  Checker
	interval time.Duration
	policy   RetryPolicy
	hook     worker.Hook
	onResult ResultHandler
	logger   glog.Logger
	now      func() time.Time
}

func NewPollWorker(dequeuer queue.Dequeuer, checker Checker, opts ...PollWorkerOption) *PollWorker {
	w := &PollWorker{
		dequeuer: dequeuer,
		checker:  checker,
		interval: defaultPollInterval,
		policy:   RetryPolicy{MaxAttempts: 5, DeadLetterOnMax: true},
		logger:   gologger.Component("bankid.poll", nil, nil),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Run dequeues and processes deliveries until ctx is done.
func (w *PollWorker) Run(ctx context.Context) error {
	if w == nil || w.dequeuer == nil || w.checker == nil {
		return fmt.Errorf("gojob: poll worker is not configured")
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delivery, err := w.dequeuer.Dequeue(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			w.logger.Warn("dequeue failed", "error", err)
			if !w.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}
		if delivery == nil {
			if !w.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}
		if err := w.Process(ctx, delivery); err != nil {
			w.logger.Error("settle delivery failed", "error", err)
		}
	}
}

// Process runs one check for delivery and settles it. The returned error
// only reports a failure to ack or nack.
func (w *PollWorker) Process(ctx context.Context, delivery queue.Delivery) error {
	if w == nil || w.checker == nil {
		return fmt.Errorf("gojob: poll worker is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}
	msg := delivery.Message()
	attempt := attemptOf(msg)
	event := worker.Event{Message: msg, Delivery: delivery, Attempt: attempt, StartedAt: w.now()}
	w.onStart(ctx, event)

	id, err := transactionIDOf(msg)
	if err != nil {
		event.Err = err
		return w.deadLetter(ctx, delivery, event, err.Error())
	}

	result, err := w.checker.Check(ctx, id, msg.Parameters[ParamRequest])
	event.Duration = w.now().Sub(event.StartedAt)
	event.Err = err

	switch {
	case err == nil && !core.IsTerminal(result.Collect):
		opts := w.policy.NormalizeAttempt(queue.NackOptions{
			Disposition: queue.NackDispositionRetry,
			Delay:       w.interval,
			Reason:      "pending",
		}, 0)
		event.Delay = opts.Delay
		w.onRetry(ctx, event)
		return delivery.Nack(ctx, opts)
	case err == nil:
		w.notify(ctx, id, result, nil)
		w.onSuccess(ctx, event)
		return delivery.Ack(ctx)
	case errors.Is(err, core.ErrTransactionExpired):
		w.logger.Info("transaction no longer pollable", "transaction_id", string(id))
		w.notify(ctx, id, result, err)
		w.onSuccess(ctx, event)
		return delivery.Ack(ctx)
	case retryable(err):
		opts := w.policy.NormalizeAttempt(queue.NackOptions{
			Disposition: queue.NackDispositionRetry,
			Delay:       w.interval,
			Reason:      err.Error(),
		}, attempt)
		if opts.Disposition == queue.NackDispositionRetry {
			event.Delay = opts.Delay
			w.onRetry(ctx, event)
		} else {
			w.notify(ctx, id, result, err)
			w.onFailure(ctx, event)
		}
		w.logger.Warn("check failed", "transaction_id", string(id), "attempt", attempt, "error", err)
		return delivery.Nack(ctx, opts)
	default:
		w.notify(ctx, id, result, err)
		return w.deadLetter(ctx, delivery, event, err.Error())
	}
}

func (w *PollWorker) deadLetter(ctx context.Context, delivery queue.Delivery, event worker.Event, reason string) error {
	w.onFailure(ctx, event)
	w.logger.Error("dead-lettering check job", "reason", reason)
	return delivery.Nack(ctx, w.policy.NormalizeAttempt(queue.NackOptions{
		Disposition: queue.NackDispositionDeadLetter,
		Reason:      reason,
	}, event.Attempt))
}

func (w *PollWorker) notify(ctx context.Context, id core.TransactionID, result core.CheckResult, err error) {
	if w.onResult != nil {
		w.onResult(ctx, id, result, err)
	}
}

func (w *PollWorker) onStart(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnStart(ctx, event)
	}
}

func (w *PollWorker) onSuccess(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnSuccess(ctx, event)
	}
}

func (w *PollWorker) onFailure(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnFailure(ctx, event)
	}
}

func (w *PollWorker) onRetry(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnRetry(ctx, event)
	}
}

func (w *PollWorker) sleep(ctx context.Context) bool {
	timer := time.NewTimer(w.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func retryable(err error) bool {
	var transportErr *core.TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	return errors.Is(err, core.ErrServiceUnavailable) ||
		errors.Is(err, core.ErrInternalServerError) ||
		errors.Is(err, core.ErrRequestTimeout)
}

func transactionIDOf(msg *job.ExecutionMessage) (core.TransactionID, error) {
	if msg == nil {
		return "", fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDCheck {
		return "", fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}
	raw, _ := msg.Parameters[ParamTransactionID].(string)
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("gojob: %s parameter is required", ParamTransactionID)
	}
	return core.TransactionID(strings.TrimSpace(raw)), nil
}

// attemptOf reads the delivery attempt recorded by the queue backend in the
// message parameters. Backends that do not track attempts report zero.
func attemptOf(msg *job.ExecutionMessage) int {
	if msg == nil {
		return 0
	}
	switch value := msg.Parameters[ParamAttempt].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
	}
	return 0
}
