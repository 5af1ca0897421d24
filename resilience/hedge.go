package resilience

import (
	"context"
	"time"
)

type hedgeResult[T any] struct {
	value T
	err   error
}

// Hedge races primaryFn against secondaryFn, where secondaryFn only starts
// after delay has elapsed and primaryFn has not yet returned. The first
// successful result wins; if both fail, primaryFn's error is returned.
func Hedge[T any](ctx context.Context, primaryFn, secondaryFn func(context.Context) (T, error), delay time.Duration) (T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	primaryCh := make(chan hedgeResult[T], 1)
	go func() {
		v, err := primaryFn(ctx)
		primaryCh <- hedgeResult[T]{v, err}
	}()

	var zero T
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case r := <-primaryCh:
		if r.err == nil {
			return r.value, nil
		}
		// Primary failed before the delay elapsed: fall through to
		// secondary and report primary's error if secondary also fails.
		return raceSecondary(ctx, secondaryFn, primaryCh, r.err)

	case <-timer.C:
		// Delay elapsed without a primary result: launch secondary and
		// race both.
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	secondaryCh := make(chan hedgeResult[T], 1)
	go func() {
		v, err := secondaryFn(ctx)
		secondaryCh <- hedgeResult[T]{v, err}
	}()

	var primaryErr, secondaryErr error
	var primaryDone, secondaryDone bool
	for {
		select {
		case r := <-primaryCh:
			primaryDone = true
			if r.err == nil {
				return r.value, nil
			}
			primaryErr = r.err
			if secondaryDone {
				return zero, firstErr(primaryErr, secondaryErr)
			}
		case r := <-secondaryCh:
			secondaryDone = true
			if r.err == nil {
				return r.value, nil
			}
			secondaryErr = r.err
			if primaryDone {
				return zero, firstErr(primaryErr, secondaryErr)
			}
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

func raceSecondary[T any](ctx context.Context, secondaryFn func(context.Context) (T, error), primaryCh chan hedgeResult[T], primaryErr error) (T, error) {
	var zero T
	v, err := secondaryFn(ctx)
	if err == nil {
		return v, nil
	}
	return zero, primaryErr
}

func firstErr(primary, secondary error) error {
	if primary != nil {
		return primary
	}
	return secondary
}
