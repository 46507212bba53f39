package paths

import (
	"testing"

	"github.com/VioletaStepanyan/ukv/pkg/arena"
	"github.com/VioletaStepanyan/ukv/pkg/config"
	"github.com/VioletaStepanyan/ukv/pkg/store"
)

func newTestPaths(cfg *config.Config) (*Paths, store.CollectionHandle) {
	db := store.Open(cfg)
	p := New(db, cfg)
	return p, db.MainHandle()
}

func TestPathsWriteReadRoundTrip(t *testing.T) {
	p, coll := newTestPaths(nil)
	ar := arena.New(1024, 2.0)

	err := p.Write([]WriteTask{
		{Collection: coll, Name: "a/b/c", Value: []byte("hello")},
		{Collection: coll, Name: "a/b/d", Value: []byte("world")},
	}, store.WriteOptions{}, ar)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	res, err := p.Read([]ReadTask{
		{Collection: coll, Name: "a/b/c"},
		{Collection: coll, Name: "a/b/d"},
		{Collection: coll, Name: "nonexistent"},
	}, ar)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if !bitAt(res.Presence, 0) || !bitAt(res.Presence, 1) || bitAt(res.Presence, 2) {
		t.Fatalf("presence = %v, want [true true false]", res.Presence)
	}
	v0 := res.Tape[res.Offsets[0] : res.Offsets[0]+res.Lengths[0]]
	v1 := res.Tape[res.Offsets[1] : res.Offsets[1]+res.Lengths[1]]
	if string(v0) != "hello" || string(v1) != "world" {
		t.Fatalf("values = %q %q, want hello world", v0, v1)
	}
}

func TestPathsWriteDeleteRemovesName(t *testing.T) {
	p, coll := newTestPaths(nil)
	ar := arena.New(1024, 2.0)

	if err := p.Write([]WriteTask{{Collection: coll, Name: "k", Value: []byte("v")}}, store.WriteOptions{}, ar); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := p.Write([]WriteTask{{Collection: coll, Name: "k", Delete: true}}, store.WriteOptions{}, ar); err != nil {
		t.Fatalf("Write delete: %v", err)
	}

	res, err := p.Read([]ReadTask{{Collection: coll, Name: "k"}}, ar)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if bitAt(res.Presence, 0) {
		t.Fatal("deleted name should no longer be present")
	}
}

func TestPathsCollisionBucketHoldsMultipleNames(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.SetHashDebugModulus(4) // force frequent bucket collisions
	p, coll := newTestPaths(cfg)
	ar := arena.New(4096, 2.0)

	names := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta"}
	tasks := make([]WriteTask, len(names))
	for i, n := range names {
		tasks[i] = WriteTask{Collection: coll, Name: n, Value: []byte(n + "-value")}
	}
	if err := p.Write(tasks, store.WriteOptions{}, ar); err != nil {
		t.Fatalf("Write: %v", err)
	}

	readTasks := make([]ReadTask, len(names))
	for i, n := range names {
		readTasks[i] = ReadTask{Collection: coll, Name: n}
	}
	res, err := p.Read(readTasks, ar)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i, n := range names {
		if !bitAt(res.Presence, i) {
			t.Fatalf("name %q should be present despite hash collisions", n)
		}
		v := res.Tape[res.Offsets[i] : res.Offsets[i]+res.Lengths[i]]
		if string(v) != n+"-value" {
			t.Fatalf("name %q value = %q, want %q", n, v, n+"-value")
		}
	}
}

func TestPathsMatchPrefixAndContinuation(t *testing.T) {
	p, coll := newTestPaths(nil)
	ar := arena.New(4096, 2.0)

	names := []string{"users/alice", "users/bob", "users/carol", "groups/admins"}
	tasks := make([]WriteTask, len(names))
	for i, n := range names {
		tasks[i] = WriteTask{Collection: coll, Name: n, Value: []byte(n)}
	}
	if err := p.Write(tasks, store.WriteOptions{}, ar); err != nil {
		t.Fatalf("Write: %v", err)
	}

	res, err := p.Match([]MatchTask{{Collection: coll, Prefix: "users/", MaxCount: 100}}, ar)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	got := res.Names[0]
	if len(got) != 3 {
		t.Fatalf("Match found %d names, want 3: %v", len(got), got)
	}
	seen := map[string]bool{}
	for _, n := range got {
		seen[n] = true
	}
	for _, want := range []string{"users/alice", "users/bob", "users/carol"} {
		if !seen[want] {
			t.Fatalf("Match result %v missing %q", got, want)
		}
	}

	// Continuing after the first name yields the remaining names in order.
	res, err = p.Match([]MatchTask{{Collection: coll, Prefix: "users/", PreviousKey: got[0], MaxCount: 100}}, ar)
	if err != nil {
		t.Fatalf("Match continuation: %v", err)
	}
	rest := res.Names[0]
	if len(rest) != 2 || rest[0] != got[1] || rest[1] != got[2] {
		t.Fatalf("Match after %q = %v, want %v", got[0], rest, got[1:])
	}
}

func TestPathsMatchMaxCountLimitsResults(t *testing.T) {
	p, coll := newTestPaths(nil)
	ar := arena.New(4096, 2.0)

	tasks := make([]WriteTask, 0, 5)
	for i := 0; i < 5; i++ {
		tasks = append(tasks, WriteTask{Collection: coll, Name: "item/" + string(rune('a'+i)), Value: []byte("v")})
	}
	if err := p.Write(tasks, store.WriteOptions{}, ar); err != nil {
		t.Fatalf("Write: %v", err)
	}

	res, err := p.Match([]MatchTask{{Collection: coll, Prefix: "item/", MaxCount: 2}}, ar)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(res.Names[0]) != 2 {
		t.Fatalf("Match with MaxCount=2 returned %d names, want 2", len(res.Names[0]))
	}
}

func TestPathsDirectoryMirrorListsChildren(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.PathsDirectoryMirror = true
	p, coll := newTestPaths(cfg)
	ar := arena.New(4096, 2.0)

	if err := p.Write([]WriteTask{
		{Collection: coll, Name: "a/b/c", Value: []byte("1")},
		{Collection: coll, Name: "a/b/d", Value: []byte("2")},
		{Collection: coll, Name: "a/e", Value: []byte("3")},
	}, store.WriteOptions{}, ar); err != nil {
		t.Fatalf("Write: %v", err)
	}

	children, err := p.ListDirectory(coll, "a/b", ar)
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}
	seen := map[string]bool{}
	for _, c := range children {
		seen[c] = true
	}
	if !seen["c"] || !seen["d"] {
		t.Fatalf("ListDirectory(a/b) = %v, want to include c and d", children)
	}
}

func bitAt(bm []byte, i int) bool {
	if i>>3 >= len(bm) {
		return false
	}
	return bm[i>>3]&(1<<uint(i&7)) != 0
}
