package store

// Flags is the operation options bitmask of spec §6.
type Flags uint32

const (
	// TrackReads (reads): append each observed (coll,key,seq) to the
	// transaction's read set. Off by default.
	TrackReads Flags = 1 << iota

	// Flush (writes/commit): a durability hint, ignored by this in-memory
	// engine but reserved for a future persistent backend.
	Flush

	// SharedMemoryOK (reads): allow returning slices that alias engine
	// memory instead of copying into the caller's arena; valid only until
	// the next operation on the same database.
	SharedMemoryOK

	// DontDiscardMemory (scans): reuse the existing arena contents where
	// possible instead of resetting it first.
	DontDiscardMemory
)

func (f Flags) has(bit Flags) bool { return f&bit != 0 }

// ReadOptions configures a Read call.
type ReadOptions struct {
	Flags Flags
	// Txn, if non-nil, routes the read through the transaction's buffer
	// and (if Flags has TrackReads) its read set. Nil means HEAD.
	Txn *Transaction
	// WantValues controls whether the value tape is populated; when false
	// only presence/offsets/lengths metadata is produced and no tape is
	// allocated (spec §4.1).
	WantValues bool
}

// WriteOptions configures a Write call.
type WriteOptions struct {
	Flags Flags
	// Txn, if non-nil, buffers the write in the transaction instead of
	// applying it to HEAD.
	Txn *Transaction
}

// ScanOptions configures a Scan call.
type ScanOptions struct {
	Flags Flags
	Txn   *Transaction
}

// CommitOptions configures a TxnCommit call.
type CommitOptions struct {
	Flags Flags
}
