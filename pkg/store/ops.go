package store

import (
	"time"

	"github.com/VioletaStepanyan/ukv/pkg/arena"
)

// ReadRequest is a batch of (collection, key) addresses to read, passed as
// parallel strided sequences (spec §4.1) so callers may build either SoA or
// AoS representations without copying into this shape.
type ReadRequest struct {
	Collections []CollectionHandle
	Keys        []Key
}

// ReadResult holds the columnar output of a batch Read: a presence bitmap
// plus, when values were requested, offsets/lengths into a shared tape cut
// from the caller's arena.
type ReadResult struct {
	// Presence is a ceil(n/8)-byte bitmap, LSB-first, one bit per row.
	Presence []byte
	// Offsets[i] is the byte offset of row i's value within Tape, valid
	// only when Presence bit i is set and values were requested.
	Offsets []uint32
	// Lengths[i] is the byte length of row i's value (0 for absent rows).
	Lengths []uint32
	// Tape holds the concatenated value bytes of all present rows, or nil
	// if WantValues was false.
	Tape []byte
}

// Read performs a batch read on HEAD, or within opts.Txn if non-nil.
func (db *Database) Read(req ReadRequest, opts ReadOptions, ar *arena.Arena) (result *ReadResult, err error) {
	end := db.instrument(OpRead)
	defer func() { end(&err) }()

	if len(req.Collections) != len(req.Keys) {
		return nil, ErrMismatchedLengths
	}
	n := len(req.Keys)
	start := time.Now()

	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, ErrDatabaseClosed
	}

	type rowResult struct {
		value   []byte
		present bool
	}
	rows := make([]rowResult, n)

	for i := 0; i < n; i++ {
		coll, ok := db.resolveLocked(req.Collections[i])
		if !ok {
			rows[i] = rowResult{present: false}
			continue
		}

		var buffered bool
		if opts.Txn != nil {
			if w, ok := opts.Txn.bufferedValue(coll.id, req.Keys[i]); ok {
				buffered = true
				if w.present {
					rows[i] = rowResult{value: w.value, present: true}
				} else {
					rows[i] = rowResult{present: false}
				}
			}
		}
		if buffered {
			continue
		}

		entry := coll.index.Get(req.Keys[i])
		if entry != nil {
			if opts.Txn != nil && opts.Flags.has(TrackReads) && entry.Seq > opts.Txn.startSeq {
				// This key was overwritten after our snapshot began; we
				// cannot honor a consistent read any further (spec §3
				// invariant: reads that already observed a post-start
				// overwrite abort early with a conflict).
				db.stats.TrackError("TransactionConflict")
				return nil, ErrTransactionConflict
			}
			rows[i] = rowResult{value: entry.Value, present: true}
			if opts.Txn != nil && opts.Flags.has(TrackReads) {
				opts.Txn.recordRead(coll.id, req.Keys[i], entry.Seq)
			}
		} else {
			rows[i] = rowResult{present: false}
			if opts.Txn != nil && opts.Flags.has(TrackReads) {
				opts.Txn.recordRead(coll.id, req.Keys[i], seqMissing)
			}
		}
	}

	presence := make([]byte, (n+7)/8)
	lengths := make([]uint32, n)
	offsets := make([]uint32, n)
	var tape []byte
	var totalBytes uint64

	if opts.WantValues {
		var total int
		for _, r := range rows {
			if r.present {
				total += len(r.value)
			}
		}
		buf, err := ar.Alloc(total, 1)
		if err != nil {
			return nil, err
		}
		tape = buf
		var off uint32
		for i, r := range rows {
			if r.present {
				presence[i>>3] |= 1 << uint(i&7)
				lengths[i] = uint32(len(r.value))
				offsets[i] = off
				copy(tape[off:off+uint32(len(r.value))], r.value)
				off += uint32(len(r.value))
				totalBytes += uint64(len(r.value))
			}
		}
	} else {
		for i, r := range rows {
			if r.present {
				presence[i>>3] |= 1 << uint(i&7)
				lengths[i] = uint32(len(r.value))
				totalBytes += uint64(len(r.value))
			}
		}
	}

	db.stats.Track(OpRead, time.Since(start))
	db.stats.TrackBytes(false, totalBytes)
	return &ReadResult{Presence: presence, Offsets: offsets, Lengths: lengths, Tape: tape}, nil
}

// WriteRequest is a batch of upserts/deletes. A row with Presence[i]=false
// deletes that key; Presence[i]=true with a zero-length Values[i] inserts
// or overwrites an empty value (spec §4.1, distinguished from deletion).
type WriteRequest struct {
	Collections []CollectionHandle
	Keys        []Key
	Presence    []bool
	Values      [][]byte
}

// Write performs a batch upsert/delete on HEAD, or buffers it within
// opts.Txn if non-nil. The whole batch is validated before any row is
// applied, and applied atomically under the database lock (spec §7
// "partial batches").
func (db *Database) Write(req WriteRequest, opts WriteOptions) (err error) {
	end := db.instrument(OpWrite)
	defer func() { end(&err) }()

	n := len(req.Keys)
	if len(req.Collections) != n || len(req.Presence) != n || len(req.Values) != n {
		return ErrMismatchedLengths
	}

	seen := make(map[rwKey]bool, n)
	for i := 0; i < n; i++ {
		k := rwKey{coll: req.Collections[i].id, key: req.Keys[i]}
		if seen[k] {
			return ErrDuplicateKeyInBatch
		}
		seen[k] = true
	}

	start := time.Now()

	if opts.Txn != nil {
		if !opts.Txn.active {
			return ErrTransactionClosed
		}
		for i := 0; i < n; i++ {
			k := rwKey{coll: req.Collections[i].id, key: req.Keys[i]}
			if req.Presence[i] {
				valCopy := append([]byte(nil), req.Values[i]...)
				opts.Txn.writeSet[k] = writeBuf{present: true, value: valCopy}
			} else {
				opts.Txn.writeSet[k] = writeBuf{present: false}
			}
		}
		db.stats.Track(OpWrite, time.Since(start))
		return nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrDatabaseClosed
	}

	for i := 0; i < n; i++ {
		if _, ok := db.resolveLocked(req.Collections[i]); !ok {
			return ErrCollectionNotFound
		}
	}

	db.youngestSeq++
	commitSeq := db.youngestSeq

	var totalBytes uint64
	for i := 0; i < n; i++ {
		coll, _ := db.resolveLocked(req.Collections[i])
		if req.Presence[i] {
			valCopy := append([]byte(nil), req.Values[i]...)
			coll.index.Put(req.Keys[i], &Entry{Value: valCopy, Seq: commitSeq})
			totalBytes += uint64(len(valCopy))
		} else {
			coll.index.Delete(req.Keys[i])
		}
	}

	db.stats.Track(OpWrite, time.Since(start))
	db.stats.TrackBytes(true, totalBytes)
	return nil
}

// ScanRequest is a batch of per-task forward scans over a shared or
// per-task collection.
type ScanRequest struct {
	Collections []CollectionHandle
	MinKeys     []Key
	MaxCounts   []int
}

// ScanResult holds, per task, the keys found (ascending order, up to
// MaxCounts[i]).
type ScanResult struct {
	Counts []int
	Keys   [][]Key
}

// Scan performs an ordered forward scan per task, starting at MinKeys[i]
// (inclusive of MinKeys[i] itself when present; otherwise the next greater
// key). KeyUnknown means "start from the smallest key".
func (db *Database) Scan(req ScanRequest, opts ScanOptions, ar *arena.Arena) (result *ScanResult, err error) {
	end := db.instrument(OpScan)
	defer func() { end(&err) }()

	n := len(req.Collections)
	if len(req.MinKeys) != n || len(req.MaxCounts) != n {
		return nil, ErrMismatchedLengths
	}

	start := time.Now()

	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, ErrDatabaseClosed
	}

	counts := make([]int, n)
	keysOut := make([][]Key, n)

	for i := 0; i < n; i++ {
		coll, ok := db.resolveLocked(req.Collections[i])
		if !ok {
			keysOut[i] = nil
			continue
		}
		found := coll.index.Scan(req.MinKeys[i], req.MaxCounts[i])
		if opts.Txn != nil {
			found = mergeScanWithBuffer(found, coll.id, req.MinKeys[i], req.MaxCounts[i], opts.Txn)
		}
		keysOut[i] = found
		counts[i] = len(found)
	}

	db.stats.Track(OpScan, time.Since(start))
	return &ScanResult{Counts: counts, Keys: keysOut}, nil
}

// scanCandidate pairs a key with whether it should ultimately be visible,
// used by mergeScanWithBuffer to reconcile HEAD keys with a transaction's
// buffered overlay.
type scanCandidate struct {
	key     Key
	present bool
}

// mergeScanWithBuffer folds a transaction's buffered writes for a
// collection into an already-computed HEAD scan window, respecting
// ascending order, tombstones, and the requested max count.
func mergeScanWithBuffer(headKeys []Key, collID uint64, minKey Key, maxCount int, txn *Transaction) []Key {
	overlay := make(map[Key]bool, len(txn.writeSet))
	for rk, w := range txn.writeSet {
		if rk.coll == collID {
			overlay[rk.key] = w.present
		}
	}

	seen := make(map[Key]bool, len(headKeys))
	cands := make([]scanCandidate, 0, len(headKeys)+len(overlay))
	for _, k := range headKeys {
		seen[k] = true
		present := true
		if p, ok := overlay[k]; ok {
			present = p
		}
		cands = append(cands, scanCandidate{key: k, present: present})
	}
	for k, present := range overlay {
		if seen[k] {
			continue
		}
		if minKey != KeyUnknown && k < minKey {
			continue
		}
		cands = append(cands, scanCandidate{key: k, present: present})
	}

	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && cands[j].key < cands[j-1].key; j-- {
			cands[j], cands[j-1] = cands[j-1], cands[j]
		}
	}

	out := make([]Key, 0, maxCount)
	for _, c := range cands {
		if len(out) >= maxCount {
			break
		}
		if c.present {
			out = append(out, c.key)
		}
	}
	return out
}
