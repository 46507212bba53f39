package store

import (
	"testing"

	"github.com/VioletaStepanyan/ukv/pkg/arena"
	"github.com/VioletaStepanyan/ukv/pkg/kverrors"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	db := Open(nil)
	defer db.Close()
	coll := db.MainHandle()
	ar := arena.New(256, 2.0)

	err := db.Write(WriteRequest{
		Collections: []CollectionHandle{coll, coll},
		Keys:        []Key{1, 2},
		Presence:    []bool{true, true},
		Values:      [][]byte{[]byte("one"), []byte("two")},
	}, WriteOptions{})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	res, err := db.Read(ReadRequest{
		Collections: []CollectionHandle{coll, coll, coll},
		Keys:        []Key{1, 2, 3},
	}, ReadOptions{WantValues: true}, ar)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if !boolBit(res.Presence, 0) || !boolBit(res.Presence, 1) || boolBit(res.Presence, 2) {
		t.Fatalf("presence = %v, want [true true false]", res.Presence)
	}
	v0 := res.Tape[res.Offsets[0] : res.Offsets[0]+res.Lengths[0]]
	v1 := res.Tape[res.Offsets[1] : res.Offsets[1]+res.Lengths[1]]
	if string(v0) != "one" || string(v1) != "two" {
		t.Fatalf("values = %q %q, want one two", v0, v1)
	}
}

func TestWriteDeleteRemovesKey(t *testing.T) {
	db := Open(nil)
	defer db.Close()
	coll := db.MainHandle()
	ar := arena.New(256, 2.0)

	if err := db.Write(WriteRequest{
		Collections: []CollectionHandle{coll},
		Keys:        []Key{1},
		Presence:    []bool{true},
		Values:      [][]byte{[]byte("x")},
	}, WriteOptions{}); err != nil {
		t.Fatalf("Write insert: %v", err)
	}
	if err := db.Write(WriteRequest{
		Collections: []CollectionHandle{coll},
		Keys:        []Key{1},
		Presence:    []bool{false},
		Values:      [][]byte{nil},
	}, WriteOptions{}); err != nil {
		t.Fatalf("Write delete: %v", err)
	}

	res, err := db.Read(ReadRequest{Collections: []CollectionHandle{coll}, Keys: []Key{1}}, ReadOptions{}, ar)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if boolBit(res.Presence, 0) {
		t.Fatal("key should be absent after delete")
	}
}

func TestWriteDuplicateKeyInBatchRejected(t *testing.T) {
	db := Open(nil)
	defer db.Close()
	coll := db.MainHandle()

	err := db.Write(WriteRequest{
		Collections: []CollectionHandle{coll, coll},
		Keys:        []Key{1, 1},
		Presence:    []bool{true, true},
		Values:      [][]byte{[]byte("a"), []byte("b")},
	}, WriteOptions{})
	if kverrors.KindOf(err) != kverrors.InvalidArgument {
		t.Fatalf("err kind = %v, want InvalidArgument", kverrors.KindOf(err))
	}
}

func TestScanAscendingOrder(t *testing.T) {
	db := Open(nil)
	defer db.Close()
	coll := db.MainHandle()
	ar := arena.New(256, 2.0)

	keys := []Key{30, 10, 20}
	colls := make([]CollectionHandle, len(keys))
	presence := make([]bool, len(keys))
	values := make([][]byte, len(keys))
	for i := range keys {
		colls[i] = coll
		presence[i] = true
		values[i] = []byte("v")
	}
	if err := db.Write(WriteRequest{Collections: colls, Keys: keys, Presence: presence, Values: values}, WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	res, err := db.Scan(ScanRequest{
		Collections: []CollectionHandle{coll},
		MinKeys:     []Key{KeyUnknown},
		MaxCounts:   []int{10},
	}, ScanOptions{}, ar)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got := res.Keys[0]
	want := []Key{10, 20, 30}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestTransactionCommitAppliesWrites(t *testing.T) {
	db := Open(nil)
	defer db.Close()
	coll := db.MainHandle()
	ar := arena.New(256, 2.0)

	txn := db.TxnBegin(0)
	if err := db.Write(WriteRequest{
		Collections: []CollectionHandle{coll},
		Keys:        []Key{1},
		Presence:    []bool{true},
		Values:      [][]byte{[]byte("committed")},
	}, WriteOptions{Txn: txn}); err != nil {
		t.Fatalf("buffered write: %v", err)
	}

	// Not yet visible on HEAD.
	res, err := db.Read(ReadRequest{Collections: []CollectionHandle{coll}, Keys: []Key{1}}, ReadOptions{}, ar)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if boolBit(res.Presence, 0) {
		t.Fatal("uncommitted write should not be visible on HEAD")
	}

	if err := db.TxnCommit(txn, CommitOptions{}); err != nil {
		t.Fatalf("TxnCommit: %v", err)
	}

	res, err = db.Read(ReadRequest{Collections: []CollectionHandle{coll}, Keys: []Key{1}}, ReadOptions{WantValues: true}, ar)
	if err != nil {
		t.Fatalf("Read after commit: %v", err)
	}
	if !boolBit(res.Presence, 0) {
		t.Fatal("committed write should now be visible")
	}
	v := res.Tape[res.Offsets[0] : res.Offsets[0]+res.Lengths[0]]
	if string(v) != "committed" {
		t.Fatalf("value = %q, want committed", v)
	}
}

func TestTransactionConflictOnOverlappingCommit(t *testing.T) {
	db := Open(nil)
	defer db.Close()
	coll := db.MainHandle()
	ar := arena.New(256, 2.0)

	if err := db.Write(WriteRequest{
		Collections: []CollectionHandle{coll},
		Keys:        []Key{1},
		Presence:    []bool{true},
		Values:      [][]byte{[]byte("initial")},
	}, WriteOptions{}); err != nil {
		t.Fatalf("seed write: %v", err)
	}

	t1 := db.TxnBegin(0)
	t2 := db.TxnBegin(0)

	if _, err := db.Read(ReadRequest{Collections: []CollectionHandle{coll}, Keys: []Key{1}}, ReadOptions{Txn: t1, Flags: TrackReads}, ar); err != nil {
		t.Fatalf("t1 read: %v", err)
	}
	if _, err := db.Read(ReadRequest{Collections: []CollectionHandle{coll}, Keys: []Key{1}}, ReadOptions{Txn: t2, Flags: TrackReads}, ar); err != nil {
		t.Fatalf("t2 read: %v", err)
	}

	if err := db.Write(WriteRequest{
		Collections: []CollectionHandle{coll},
		Keys:        []Key{1},
		Presence:    []bool{true},
		Values:      [][]byte{[]byte("from-t1")},
	}, WriteOptions{Txn: t1}); err != nil {
		t.Fatalf("t1 buffered write: %v", err)
	}
	if err := db.TxnCommit(t1, CommitOptions{}); err != nil {
		t.Fatalf("t1 commit: %v", err)
	}

	if err := db.Write(WriteRequest{
		Collections: []CollectionHandle{coll},
		Keys:        []Key{1},
		Presence:    []bool{true},
		Values:      [][]byte{[]byte("from-t2")},
	}, WriteOptions{Txn: t2}); err != nil {
		t.Fatalf("t2 buffered write: %v", err)
	}
	err := db.TxnCommit(t2, CommitOptions{})
	if kverrors.KindOf(err) != kverrors.TransactionConflict {
		t.Fatalf("t2 commit kind = %v, want TransactionConflict", kverrors.KindOf(err))
	}
}

func TestTransactionRetrySucceedsAfterConflict(t *testing.T) {
	db := Open(nil)
	defer db.Close()
	coll := db.MainHandle()

	if err := db.Write(WriteRequest{
		Collections: []CollectionHandle{coll},
		Keys:        []Key{1},
		Presence:    []bool{true},
		Values:      [][]byte{[]byte("0")},
	}, WriteOptions{}); err != nil {
		t.Fatalf("seed write: %v", err)
	}

	attempts := 0
	err := WithRetry(db, 5, func(txn *Transaction) error {
		attempts++
		if attempts == 1 {
			// Force a conflict on the first attempt by mutating HEAD out
			// from under this transaction's eventual commit.
			if werr := db.Write(WriteRequest{
				Collections: []CollectionHandle{coll},
				Keys:        []Key{1},
				Presence:    []bool{true},
				Values:      [][]byte{[]byte("interloper")},
			}, WriteOptions{}); werr != nil {
				return werr
			}
		}
		return db.Write(WriteRequest{
			Collections: []CollectionHandle{coll},
			Keys:        []Key{1},
			Presence:    []bool{true},
			Values:      [][]byte{[]byte("retried")},
		}, WriteOptions{Txn: txn})
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if attempts < 2 {
		t.Fatalf("attempts = %d, want at least 2 (first should have conflicted)", attempts)
	}
}

func TestTransactionAbortDiscardsBufferedWrites(t *testing.T) {
	db := Open(nil)
	defer db.Close()
	coll := db.MainHandle()
	ar := arena.New(256, 2.0)

	txn := db.TxnBegin(0)
	if err := db.Write(WriteRequest{
		Collections: []CollectionHandle{coll},
		Keys:        []Key{1},
		Presence:    []bool{true},
		Values:      [][]byte{[]byte("x")},
	}, WriteOptions{Txn: txn}); err != nil {
		t.Fatalf("buffered write: %v", err)
	}
	if err := db.TxnAbort(txn); err != nil {
		t.Fatalf("TxnAbort: %v", err)
	}
	if txn.IsActive() {
		t.Fatal("transaction should be inactive after abort")
	}

	res, err := db.Read(ReadRequest{Collections: []CollectionHandle{coll}, Keys: []Key{1}}, ReadOptions{}, ar)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if boolBit(res.Presence, 0) {
		t.Fatal("aborted write should not be visible")
	}
}

func TestTxnCommitOnClosedTransactionFails(t *testing.T) {
	db := Open(nil)
	defer db.Close()
	txn := db.TxnBegin(0)
	if err := db.TxnAbort(txn); err != nil {
		t.Fatalf("TxnAbort: %v", err)
	}
	if err := db.TxnCommit(txn, CommitOptions{}); err != ErrTransactionClosed {
		t.Fatalf("TxnCommit on aborted txn = %v, want ErrTransactionClosed", err)
	}
}

func TestCollectionUpsertIsIdempotent(t *testing.T) {
	db := Open(nil)
	defer db.Close()
	h1, err := db.CollectionUpsert("widgets")
	if err != nil {
		t.Fatalf("CollectionUpsert: %v", err)
	}
	h2, err := db.CollectionUpsert("widgets")
	if err != nil {
		t.Fatalf("CollectionUpsert: %v", err)
	}
	if h1 != h2 {
		t.Fatal("CollectionUpsert on an existing name should return the same handle")
	}
}

func TestCollectionRemoveMainRejected(t *testing.T) {
	db := Open(nil)
	defer db.Close()
	if err := db.CollectionRemove(""); err != ErrCollectionNotFound {
		t.Fatalf("CollectionRemove(main) = %v, want ErrCollectionNotFound", err)
	}
}

func boolBit(bm []byte, i int) bool {
	return bm[i>>3]&(1<<uint(i&7)) != 0
}
