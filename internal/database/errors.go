package database

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/lib/pq"
)

// PostgreSQL error codes this service reacts to
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqUniqueViolation      = "23505"
)

// weekLockKey is the advisory lock shared by ledger writes and taken
// exclusively by week lock and unlock
const weekLockKey = "payroll-week-lock"

// isRetryable reports whether err means the transaction lost a race with a
// concurrent writer and can be re-run as a whole
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case pqSerializationFailure, pqDeadlockDetected, pqUniqueViolation:
		return true
	}
	return false
}

// IsUniqueViolation reports whether err is a unique constraint violation
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// LockKeys takes a transaction-scoped advisory lock on every key. Keys are
// deduplicated and sorted so concurrent callers acquire them in the same order.
func LockKeys(ctx context.Context, q Queryer, keys []string) error {
	seen := make(map[string]bool, len(keys))
	sorted := make([]string, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			sorted = append(sorted, k)
		}
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, k); err != nil {
			return fmt.Errorf("failed to acquire lock %s: %w", k, err)
		}
	}
	return nil
}

// LockWeekShared blocks while a week lock or unlock is in progress
func LockWeekShared(ctx context.Context, q Queryer) error {
	if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock_shared(hashtext($1))`, weekLockKey); err != nil {
		return fmt.Errorf("failed to acquire shared week lock: %w", err)
	}
	return nil
}

// LockWeekExclusive waits for in-flight ledger writes and holds off new ones
// until the transaction ends
func LockWeekExclusive(ctx context.Context, q Queryer) error {
	if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, weekLockKey); err != nil {
		return fmt.Errorf("failed to acquire exclusive week lock: %w", err)
	}
	return nil
}
