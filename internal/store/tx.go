package store

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
)

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// TxOptions configures RunInTx.
type TxOptions struct {
	IsoLevel   pgx.TxIsoLevel
	MaxRetries int
	// Backoff is the initial delay between attempts; it doubles per retry.
	Backoff time.Duration
}

// DefaultTxOptions returns read-committed with three retries.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		MaxRetries: 3,
		Backoff:    50 * time.Millisecond,
	}
}

// RunInTx runs fn inside a transaction, retrying serialization, deadlock and
// lock-not-available failures with jittered exponential backoff.
func RunInTx(ctx context.Context, db TxBeginner, opts TxOptions, fn func(q *Queries) error) error {
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}
	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := runOnce(ctx, db, opts.IsoLevel, fn)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err
		if attempt == opts.MaxRetries {
			break
		}
		sleep := backoff + time.Duration(rand.Int63n(int64(backoff/4)+1))
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return fmt.Errorf("store: max retries (%d) exceeded: %w", opts.MaxRetries, lastErr)
}

func runOnce(ctx context.Context, db TxBeginner, iso pgx.TxIsoLevel, fn func(q *Queries) error) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{IsoLevel: iso})
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	if err := fn(New(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("store: rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit transaction: %w", err)
	}
	return nil
}
