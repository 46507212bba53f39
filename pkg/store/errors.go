package store

import "github.com/VioletaStepanyan/ukv/pkg/kverrors"

// Sentinel errors for store operations, following the teacher's pattern of
// a per-package errors.go (pkg/transaction/errors.go, pkg/engine/errors.go).
var (
	ErrDatabaseClosed      = kverrors.New(kverrors.InvalidArgument, "database is closed")
	ErrCollectionNotFound  = kverrors.New(kverrors.NotFound, "collection not found")
	ErrTransactionClosed   = kverrors.New(kverrors.InvalidArgument, "transaction already committed or aborted")
	ErrTransactionConflict = kverrors.New(kverrors.TransactionConflict, "transaction read or write set conflicts with a newer commit")
	ErrDuplicateKeyInBatch = kverrors.New(kverrors.InvalidArgument, "duplicate (collection, key) within a single batch")
	ErrMismatchedLengths   = kverrors.New(kverrors.InvalidArgument, "parallel batch sequences have mismatched lengths")
)
