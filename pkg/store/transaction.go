package store

import "time"

// rwKey is the (collection, key) pair used as the read-set/write-set index,
// spec §3's "tagged pair of (CollectionId, Key) with value equality".
type rwKey struct {
	coll uint64
	key  Key
}

// writeBuf is a buffered write: present=false encodes a deletion.
type writeBuf struct {
	present bool
	value   []byte
}

// Transaction is a snapshot-reading, write-buffering handle (spec §3): it
// carries a start sequence, a read set and a write set, and commits
// atomically against HEAD with optimistic validation.
type Transaction struct {
	db       *Database
	startSeq Seq

	readSet  map[rwKey]Seq
	writeSet map[rwKey]writeBuf

	active bool
}

// TxnBegin starts a new transaction. seqHint sizes the internal read/write
// set maps; it is a performance hint only and has no effect on semantics.
func (db *Database) TxnBegin(seqHint int) *Transaction {
	if seqHint < 0 {
		seqHint = 0
	}
	db.mu.RLock()
	start := db.youngestSeq
	closed := db.closed
	db.mu.RUnlock()

	txn := &Transaction{
		db:       db,
		startSeq: start,
		readSet:  make(map[rwKey]Seq, seqHint),
		writeSet: make(map[rwKey]writeBuf, seqHint),
		active:   !closed,
	}
	db.stats.Track(OpTxnBegin, 0)
	return txn
}

// IsActive reports whether the transaction is still open (not committed or
// aborted).
func (txn *Transaction) IsActive() bool { return txn.active }

// StartSeq returns the sequence number observed when the transaction began.
func (txn *Transaction) StartSeq() Seq { return txn.startSeq }

func (txn *Transaction) recordRead(coll uint64, key Key, seq Seq) {
	k := rwKey{coll, key}
	if _, exists := txn.readSet[k]; !exists {
		txn.readSet[k] = seq
	}
}

// bufferedValue returns the buffered write for (coll,key), if any.
func (txn *Transaction) bufferedValue(coll uint64, key Key) (writeBuf, bool) {
	w, ok := txn.writeSet[rwKey{coll, key}]
	return w, ok
}

// TxnAbort discards the transaction's buffered writes and releases the
// handle. It does not interrupt an in-flight commit (there is none, since
// operations run to completion synchronously).
func (db *Database) TxnAbort(txn *Transaction) (err error) {
	end := db.instrument(OpTxnAbort)
	defer func() { end(&err) }()

	if !txn.active {
		return ErrTransactionClosed
	}
	txn.active = false
	txn.readSet = nil
	txn.writeSet = nil
	db.stats.Track(OpTxnAbort, 0)
	return nil
}

// seqInOpenClosedInterval implements the §4.1 overwrite-interval predicate:
// entrySeq ∈ (start, youngest], computed modulo 2^64. When start <= youngest
// this is the direct half-open interval; otherwise (start has wrapped past
// youngest) it is the interval's complement.
func seqInOpenClosedInterval(entrySeq, start, youngest Seq) bool {
	if start <= youngest {
		return entrySeq > start && entrySeq <= youngest
	}
	return entrySeq > start || entrySeq <= youngest
}

// TxnCommit validates and applies the transaction's buffered writes
// atomically against HEAD, following the five-step algorithm of spec
// §4.1.
func (db *Database) TxnCommit(txn *Transaction, opts CommitOptions) (err error) {
	end := db.instrument(OpTxnCommit)
	defer func() { end(&err) }()

	if !txn.active {
		return ErrTransactionClosed
	}

	start := time.Now()

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrDatabaseClosed
	}

	youngest := db.youngestSeq

	// Step 2: read validation.
	for k, seqAtRead := range txn.readSet {
		c, ok := db.resolveLocked(CollectionHandle{id: k.coll})
		var curSeq Seq = seqMissing
		exists := false
		if ok {
			if e := c.index.Get(k.key); e != nil {
				curSeq = e.Seq
				exists = true
			}
		}
		if exists {
			if curSeq != seqAtRead {
				db.stats.TrackError("TransactionConflict")
				return ErrTransactionConflict
			}
		} else if seqAtRead != seqMissing {
			db.stats.TrackError("TransactionConflict")
			return ErrTransactionConflict
		}
	}

	// Step 3: write-write conflict detection.
	for k := range txn.writeSet {
		c, ok := db.resolveLocked(CollectionHandle{id: k.coll})
		if !ok {
			continue
		}
		e := c.index.Get(k.key)
		if e == nil {
			continue
		}
		if e.Seq == txn.startSeq {
			// "self": this transaction's own prior write is not a conflict.
			continue
		}
		if seqInOpenClosedInterval(e.Seq, txn.startSeq, youngest) {
			db.stats.TrackError("TransactionConflict")
			return ErrTransactionConflict
		}
	}

	// Step 4: apply.
	db.youngestSeq++
	commitSeq := db.youngestSeq
	for k, w := range txn.writeSet {
		c, ok := db.resolveLocked(CollectionHandle{id: k.coll})
		if !ok {
			continue
		}
		if w.present {
			c.index.Put(k.key, &Entry{Value: w.value, Seq: commitSeq})
		} else {
			c.index.Delete(k.key)
		}
	}

	txn.active = false
	db.stats.Track(OpTxnCommit, time.Since(start))
	return nil
}
