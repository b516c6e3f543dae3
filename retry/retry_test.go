// Copyright 2026, Square, Inc.

package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-test/deep"

	"github.com/square/vertigo/retry"
)

var errTry = errors.New("try failed")

func TestSucceedsEventually(t *testing.T) {
	calls := 0
	logged := []int{}
	err := retry.Do(context.Background(), 5, time.Millisecond,
		func() error {
			calls++
			if calls < 3 {
				return errTry
			}
			return nil
		},
		func(try int, err error) { logged = append(logged, try) },
	)
	if err != nil {
		t.Errorf("got error %v, expected nil", err)
	}
	if calls != 3 {
		t.Errorf("called %d times, expected 3", calls)
	}
	if diff := deep.Equal(logged, []int{1, 2}); diff != nil {
		t.Error(diff)
	}
}

func TestGivesUp(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return errTry
	}, nil)
	if err != errTry {
		t.Errorf("got error %v, expected %v", err, errTry)
	}
	if calls != 3 {
		t.Errorf("called %d times, expected 3", calls)
	}

	// tries < 1 still calls once
	calls = 0
	retry.Do(context.Background(), 0, time.Millisecond, func() error { calls++; return errTry }, nil)
	if calls != 1 {
		t.Errorf("called %d times, expected 1", calls)
	}
}

func TestContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry.Do(ctx, 10, time.Hour, func() error {
		calls++
		return errTry
	}, func(int, error) { cancel() })
	if err != context.Canceled {
		t.Errorf("got error %v, expected context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("called %d times, expected 1", calls)
	}
}
