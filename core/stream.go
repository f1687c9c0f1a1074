package core

import (
	"context"
	"fmt"
	"time"
)

type StreamEventKind string

const (
	StreamEventPending  StreamEventKind = "pending"
	StreamEventComplete StreamEventKind = "complete"
	StreamEventFailed   StreamEventKind = "failed"
	StreamEventError    StreamEventKind = "error"
)

type StreamEvent struct {
	Kind   StreamEventKind
	Result CheckResult
	Err    error
}

// Stream checks id repeatedly, emitting one event per check and waiting the
// configured poll interval between pending results. It returns nil after a
// complete or failed event, the check error after an error event, the emit
// error if emit fails, and ctx.Err() once ctx is done.
func (e *Engine) Stream(ctx context.Context, id TransactionID, request any, emit func(StreamEvent) error) error {
	if e == nil {
		return &ConfigurationError{Field: "engine"}
	}
	if emit == nil {
		return fmt.Errorf("core: stream emitter is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	interval := e.config.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := e.Check(ctx, id, request)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			_ = emit(StreamEvent{Kind: StreamEventError, Result: result, Err: err})
			return err
		}

		kind := streamEventKind(result.Collect)
		if err := emit(StreamEvent{Kind: kind, Result: result}); err != nil {
			return err
		}
		if kind != StreamEventPending {
			return nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func streamEventKind(result CollectResponse) StreamEventKind {
	switch result.(type) {
	case CompleteCollect:
		return StreamEventComplete
	case FailedCollect:
		return StreamEventFailed
	default:
		return StreamEventPending
	}
}
