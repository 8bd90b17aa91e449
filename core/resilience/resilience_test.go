package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"coordex/core/backoff"
	"coordex/core/hook"
	"coordex/core/timespan"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	var calls int32
	fn := func(ctx context.Context) (int, error) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	}
	policy := backoff.Constant(backoff.ConstantOptions{
		Delay:  backoff.Const(timespan.FromMilliseconds(1)),
		Jitter: backoff.Const(0.0),
	})
	mw := Retry[int](RetryOptions{MaxAttempts: 5, BackoffPolicy: policy})
	p := hook.New(hook.Func[int](fn), mw)

	v, err := p.Run(context.Background())
	if err != nil || v != 42 {
		t.Fatalf("Run() = %d, %v, want 42, nil", v, err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestRetryExhaustsAndWrapsHistory(t *testing.T) {
	sentinel := errors.New("permanent")
	fn := func(ctx context.Context) (int, error) { return 0, sentinel }
	mw := Retry[int](RetryOptions{MaxAttempts: 3})
	p := hook.New(hook.Func[int](fn), mw)

	_, err := p.Run(context.Background())
	var re *ResilienceError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *ResilienceError", err)
	}
	if re.Attempts != 3 || len(re.History) != 3 {
		t.Fatalf("Attempts/History = %d/%d, want 3/3", re.Attempts, len(re.History))
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("errors.Is(err, sentinel) = false, want true")
	}
}

func TestRetryErrorPolicyRejectsImmediately(t *testing.T) {
	sentinel := errors.New("fatal")
	var calls int32
	fn := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, sentinel
	}
	mw := Retry[int](RetryOptions{
		MaxAttempts: 5,
		ErrorPolicy: func(error) bool { return false },
	})
	p := hook.New(hook.Func[int](fn), mw)
	if _, err := p.Run(context.Background()); !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want wrapping %v", err, sentinel)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls = %d, want 1 (no retries)", got)
	}
}

func TestTimeoutFiresOnSlowCall(t *testing.T) {
	var timedOut bool
	fn := func(ctx context.Context) (int, error) {
		select {
		case <-time.After(time.Second):
			return 1, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	mw := Timeout[int](TimeoutOptions{
		WaitTime:  timespan.FromMilliseconds(10),
		OnTimeout: func() { timedOut = true },
	})
	p := hook.New(hook.Func[int](fn), mw)

	_, err := p.Run(context.Background())
	if !IsTimeout(err) {
		t.Fatalf("err = %v, want TimeoutResilienceError", err)
	}
	if !timedOut {
		t.Fatalf("OnTimeout callback was not invoked")
	}
}

func TestTimeoutDoesNotFireOnFastCall(t *testing.T) {
	fn := func(ctx context.Context) (int, error) { return 9, nil }
	mw := Timeout[int](TimeoutOptions{WaitTime: timespan.FromMilliseconds(500)})
	p := hook.New(hook.Func[int](fn), mw)

	v, err := p.Run(context.Background())
	if err != nil || v != 9 {
		t.Fatalf("Run() = %d, %v, want 9, nil", v, err)
	}
}

func TestHedgingResolvesWithFirstSuccess(t *testing.T) {
	var started int32
	fn := func(ctx context.Context) (string, error) {
		idx := atomic.AddInt32(&started, 1)
		if idx == 2 {
			time.Sleep(20 * time.Millisecond)
			return "winner", nil
		}
		select {
		case <-time.After(time.Second):
			return "late", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	mw := Hedging[string](HedgingOptions{Attempts: 3, Delay: timespan.FromMilliseconds(10)})
	p := hook.New(hook.Func[string](fn), mw)

	start := time.Now()
	v, err := p.Run(context.Background())
	elapsed := time.Since(start)
	if err != nil || v != "winner" {
		t.Fatalf("Run() = %q, %v, want winner, nil", v, err)
	}
	if elapsed > 200*time.Millisecond {
		t.Fatalf("hedging took too long: %v", elapsed)
	}
}

func TestHedgingAllFail(t *testing.T) {
	fn := func(ctx context.Context) (int, error) { return 0, errors.New("nope") }
	mw := Hedging[int](HedgingOptions{Attempts: 3, Delay: timespan.FromMilliseconds(1)})
	p := hook.New(hook.Func[int](fn), mw)

	_, err := p.Run(context.Background())
	if !IsHedgingExhausted(err) {
		t.Fatalf("err = %v, want HedgingResilienceError", err)
	}
	var he *HedgingResilienceError
	errors.As(err, &he)
	if len(he.Errors) != 3 {
		t.Fatalf("len(Errors) = %d, want 3", len(he.Errors))
	}
}

func TestAbortableRejectsOnExternalSignal(t *testing.T) {
	fn := func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	reason := errors.New("caller gave up")
	signal, cancel := context.WithCancelCause(context.Background())
	mw := Abortable[int](signal)
	p := hook.New(hook.Func[int](fn), mw)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel(reason)
	}()

	_, err := p.Run(context.Background())
	if !IsAbort(err) {
		t.Fatalf("err = %v, want AbortError", err)
	}
	if !errors.Is(err, reason) {
		t.Fatalf("err = %v, want to wrap %v", err, reason)
	}
}

func TestAbortableSucceedsWhenFasterThanSignal(t *testing.T) {
	fn := func(ctx context.Context) (int, error) { return 5, nil }
	signal, cancel := context.WithCancel(context.Background())
	defer cancel()
	mw := Abortable[int](signal)
	p := hook.New(hook.Func[int](fn), mw)

	v, err := p.Run(context.Background())
	if err != nil || v != 5 {
		t.Fatalf("Run() = %d, %v, want 5, nil", v, err)
	}
}
