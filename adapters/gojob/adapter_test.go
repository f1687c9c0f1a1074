package gojob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-bankid/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

func TestEnqueueCheckBuildsMessage(t *testing.T) {
	enqueuer := &stubQueueEnqueuer{}
	if err := EnqueueCheck(context.Background(), enqueuer, "txn-1", map[string]any{"next": "/"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	msg := enqueuer.last
	if msg == nil || msg.JobID != JobIDCheck {
		t.Fatalf("expected check job message, got %#v", msg)
	}
	if msg.Parameters[ParamTransactionID] != "txn-1" {
		t.Fatalf("expected transaction id parameter, got %#v", msg.Parameters)
	}
	if msg.IdempotencyKey != "bankid.transaction.check:txn-1" {
		t.Fatalf("unexpected idempotency key %q", msg.IdempotencyKey)
	}
	if err := EnqueueCheck(context.Background(), enqueuer, " ", nil); err == nil {
		t.Fatalf("expected empty transaction id to be rejected")
	}
}

func TestPollWorker_PendingIsRequeuedWithPollInterval(t *testing.T) {
	checker := &stubChecker{result: core.CheckResult{Collect: core.PendingCollect{OrderRef: "order-1", HintCode: core.PendingHintOutstandingTransaction}}}
	hook := &capturingHook{}
	delivery := &stubQueueDelivery{msg: NewCheckMessage("txn-1", "req")}

	w := NewPollWorker(nil, checker, WithPollInterval(3*time.Second), WithHook(hook))
	if err := w.Process(context.Background(), delivery); err != nil {
		t.Fatalf("process: %v", err)
	}
	if delivery.acked {
		t.Fatalf("pending result must not be acked")
	}
	if !delivery.nacked || delivery.nackOpts.Disposition != queue.NackDispositionRetry || delivery.nackOpts.Delay != 3*time.Second {
		t.Fatalf("expected requeue with poll delay, got %#v", delivery.nackOpts)
	}
	if checker.id != "txn-1" || checker.request != "req" {
		t.Fatalf("checker received %q %#v", checker.id, checker.request)
	}
	if hook.retries != 1 || hook.last.Delay != 3*time.Second {
		t.Fatalf("expected retry hook with delay, got %d %s", hook.retries, hook.last.Delay)
	}
}

func TestPollWorker_TerminalResultsAreAcked(t *testing.T) {
	cases := map[string]core.CollectResponse{
		"complete": core.CompleteCollect{OrderRef: "order-1"},
		"failed":   core.FailedCollect{OrderRef: "order-1", HintCode: core.FailedHintUserCancel},
	}
	for name, collect := range cases {
		t.Run(name, func(t *testing.T) {
			checker := &stubChecker{result: core.CheckResult{Collect: collect}}
			delivery := &stubQueueDelivery{msg: NewCheckMessage("txn-1", nil)}
			var settled core.CheckResult
			w := NewPollWorker(nil, checker, WithResultHandler(func(_ context.Context, id core.TransactionID, result core.CheckResult, err error) {
				if id != "txn-1" || err != nil {
					t.Errorf("unexpected settle %q %v", id, err)
				}
				settled = result
			}))
			if err := w.Process(context.Background(), delivery); err != nil {
				t.Fatalf("process: %v", err)
			}
			if !delivery.acked || delivery.nacked {
				t.Fatalf("expected ack only")
			}
			if settled.Collect == nil || settled.Collect.Status() != collect.Status() {
				t.Fatalf("expected result handler to see %q", collect.Status())
			}
		})
	}
}

func TestPollWorker_ExpiredTransactionIsAcked(t *testing.T) {
	checker := &stubChecker{err: core.ErrTransactionExpired}
	delivery := &stubQueueDelivery{msg: NewCheckMessage("gone", nil)}

	if err := NewPollWorker(nil, checker).Process(context.Background(), delivery); err != nil {
		t.Fatalf("process: %v", err)
	}
	if !delivery.acked {
		t.Fatalf("expected expired transaction to be acked")
	}
}

func TestPollWorker_TransportFaultRetriesWithinPolicy(t *testing.T) {
	checker := &stubChecker{err: &core.TransportError{Op: "collect", Err: errors.New("connection refused")}}
	policy := RetryPolicy{MaxAttempts: 3, MaxDelay: time.Second, DeadLetterOnMax: true}
	w := NewPollWorker(nil, checker, WithPollInterval(5*time.Second), WithRetryPolicy(policy))

	first := &stubQueueDelivery{msg: withAttempt(NewCheckMessage("txn-1", nil), 1)}
	if err := w.Process(context.Background(), first); err != nil {
		t.Fatalf("process: %v", err)
	}
	if first.nackOpts.Disposition != queue.NackDispositionRetry {
		t.Fatalf("expected requeue before max attempts, got %#v", first.nackOpts)
	}
	if first.nackOpts.Delay != time.Second {
		t.Fatalf("expected delay bounded by policy, got %s", first.nackOpts.Delay)
	}

	last := &stubQueueDelivery{msg: withAttempt(NewCheckMessage("txn-1", nil), 3)}
	if err := w.Process(context.Background(), last); err != nil {
		t.Fatalf("process: %v", err)
	}
	if last.nackOpts.Disposition != queue.NackDispositionDeadLetter {
		t.Fatalf("expected dead letter once attempts are exhausted, got %#v", last.nackOpts)
	}
}

func TestPollWorker_FatalErrorsAreDeadLettered(t *testing.T) {
	checker := &stubChecker{err: core.NewFinalizeFailed("blocked", 403)}
	hook := &capturingHook{}
	delivery := &stubQueueDelivery{msg: NewCheckMessage("txn-1", nil)}

	if err := NewPollWorker(nil, checker, WithHook(hook)).Process(context.Background(), delivery); err != nil {
		t.Fatalf("process: %v", err)
	}
	if delivery.nackOpts.Disposition != queue.NackDispositionDeadLetter {
		t.Fatalf("expected dead letter, got %#v", delivery.nackOpts)
	}
	if hook.failures != 1 {
		t.Fatalf("expected failure hook, got %d", hook.failures)
	}
}

func TestPollWorker_MalformedMessageIsDeadLettered(t *testing.T) {
	checker := &stubChecker{}
	delivery := &stubQueueDelivery{msg: &job.ExecutionMessage{JobID: "other.job"}}

	if err := NewPollWorker(nil, checker).Process(context.Background(), delivery); err != nil {
		t.Fatalf("process: %v", err)
	}
	if delivery.nackOpts.Disposition != queue.NackDispositionDeadLetter {
		t.Fatalf("expected malformed message to be dead-lettered")
	}
	if checker.calls != 0 {
		t.Fatalf("checker must not run for malformed messages")
	}
}

func TestPollWorker_RunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	checker := &stubChecker{result: core.CheckResult{Collect: core.CompleteCollect{OrderRef: "order-1"}}}
	delivery := &stubQueueDelivery{msg: NewCheckMessage("txn-1", nil)}
	dequeuer := &stubQueueDequeuer{deliveries: []queue.Delivery{delivery}, onEmpty: cancel}

	err := NewPollWorker(dequeuer, checker, WithPollInterval(time.Millisecond)).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if !delivery.acked {
		t.Fatalf("expected dequeued delivery to be processed")
	}
}

func TestNackRetryPolicyBoundaries(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2, MaxDelay: 10 * time.Second}
	opts := policy.NormalizeAttempt(queue.NackOptions{Delay: -time.Second}, 0)
	if opts.Delay != 0 || opts.Disposition != queue.NackDispositionRetry {
		t.Fatalf("expected clamped delay and default retry disposition, got %#v", opts)
	}
	opts = policy.NormalizeAttempt(queue.NackOptions{Disposition: queue.NackDispositionRetry, Delay: time.Minute}, 1)
	if opts.Disposition != queue.NackDispositionRetry || opts.Delay != 10*time.Second {
		t.Fatalf("expected bounded retry before max attempts, got %#v", opts)
	}
	opts = policy.NormalizeAttempt(queue.NackOptions{Disposition: queue.NackDispositionRetry}, 2)
	if opts.Disposition != queue.NackDispositionFailed {
		t.Fatalf("expected failed disposition without DeadLetterOnMax, got %#v", opts)
	}
	policy.DeadLetterOnMax = true
	opts = policy.NormalizeAttempt(queue.NackOptions{Disposition: queue.NackDispositionRetry}, 2)
	if opts.Disposition != queue.NackDispositionDeadLetter {
		t.Fatalf("expected dead letter once attempts are exhausted, got %#v", opts)
	}
	opts = policy.NormalizeAttempt(queue.NackOptions{Disposition: queue.NackDispositionDeadLetter}, 0)
	if opts.Disposition != queue.NackDispositionDeadLetter {
		t.Fatalf("expected explicit dead letter to be kept, got %#v", opts)
	}
}

func withAttempt(msg *job.ExecutionMessage, attempt int) *job.ExecutionMessage {
	msg.Parameters[ParamAttempt] = attempt
	return msg
}

type stubChecker struct {
	result  core.CheckResult
	err     error
	calls   int
	id      core.TransactionID
	request any
}

func (s *stubChecker) Check(_ context.Context, id core.TransactionID, request any) (core.CheckResult, error) {
	s.calls++
	s.id = id
	s.request = request
	return s.result, s.err
}

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) (queue.EnqueueReceipt, error) {
	s.last = msg
	var receipt queue.EnqueueReceipt
	return receipt, nil
}

type stubQueueDequeuer struct {
	deliveries []queue.Delivery
	onEmpty    func()
}

func (s *stubQueueDequeuer) Dequeue(ctx context.Context) (queue.Delivery, error) {
	if len(s.deliveries) == 0 {
		if s.onEmpty != nil {
			s.onEmpty()
		}
		return nil, ctx.Err()
	}
	next := s.deliveries[0]
	s.deliveries = s.deliveries[1:]
	return next, nil
}

type stubQueueDelivery struct {
	msg      *job.ExecutionMessage
	acked    bool
	nacked   bool
	nackOpts queue.NackOptions
}

func (s *stubQueueDelivery) Message() *job.ExecutionMessage {
	return s.msg
}

func (s *stubQueueDelivery) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *stubQueueDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	s.nacked = true
	s.nackOpts = opts
	return nil
}

type capturingHook struct {
	last     worker.Event
	retries  int
	failures int
}

func (h *capturingHook) OnStart(context.Context, worker.Event)   {}
func (h *capturingHook) OnSuccess(context.Context, worker.Event) {}
func (h *capturingHook) OnFailure(_ context.Context, event worker.Event) {
	h.failures++
	h.last = event
}
func (h *capturingHook) OnRetry(_ context.Context, event worker.Event) {
	h.retries++
	h.last = event
}

var (
	_ queue.Enqueuer = (*stubQueueEnqueuer)(nil)
	_ queue.Dequeuer = (*stubQueueDequeuer)(nil)
	_ queue.Delivery = (*stubQueueDelivery)(nil)
	_ worker.Hook    = (*capturingHook)(nil)
)
