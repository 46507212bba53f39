package store

import "github.com/VioletaStepanyan/ukv/pkg/kverrors"

// WithRetry runs fn against a fresh transaction, retrying from a new
// TxnBegin whenever the commit fails with TransactionConflict, up to
// maxAttempts times. This is the ergonomic retry wrapper spec §8 scenario 3
// implies callers need around optimistic-concurrency commits ("T1 retried
// (new begin) then commits -> Ok").
func WithRetry(db *Database, maxAttempts int, fn func(txn *Transaction) error) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		txn := db.TxnBegin(8)

		if err := fn(txn); err != nil {
			db.TxnAbort(txn)
			return err
		}

		err := db.TxnCommit(txn, CommitOptions{})
		if err == nil {
			return nil
		}
		if kverrors.KindOf(err) != kverrors.TransactionConflict {
			return err
		}
		lastErr = err
	}
	return lastErr
}
