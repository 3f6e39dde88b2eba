package devkit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-vdrpool/core"
)

// ValidatePoolConformance drives one GetTransactions and one SendRequest
// through pool and checks that each reports through done exactly once.
func ValidatePoolConformance(ctx context.Context, pool core.Pool, req *core.Request) error {
	if pool == nil {
		return fmt.Errorf("devkit: pool is required")
	}
	if req == nil {
		return fmt.Errorf("devkit: request is required")
	}

	var txnCalls atomic.Int32
	txnDone := make(chan error, 2)
	if err := pool.GetTransactions(ctx, func(transactions []string, err error) {
		txnCalls.Add(1)
		if err == nil && len(transactions) == 0 {
			err = fmt.Errorf("devkit: pool reported no transactions")
		}
		txnDone <- err
	}); err != nil {
		return fmt.Errorf("devkit: schedule get transactions: %w", err)
	}
	if err := awaitOnce(ctx, txnDone, &txnCalls); err != nil {
		return err
	}

	var sendCalls atomic.Int32
	sendDone := make(chan error, 2)
	if err := pool.SendRequest(ctx, req, func(result core.RequestResult, _ core.RequestTiming, err error) {
		sendCalls.Add(1)
		if err == nil && result.Failed == nil && result.Reply == "" {
			err = fmt.Errorf("devkit: pool replied with an empty body")
		}
		sendDone <- err
	}); err != nil {
		return fmt.Errorf("devkit: schedule send request: %w", err)
	}
	return awaitOnce(ctx, sendDone, &sendCalls)
}

func awaitOnce(ctx context.Context, done <-chan error, calls *atomic.Int32) error {
	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return fmt.Errorf("devkit: pool did not report: %w", ctx.Err())
	}
	// give a misbehaving engine a moment to report twice
	time.Sleep(10 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		return fmt.Errorf("devkit: expected one report, got %d", n)
	}
	return nil
}
