package paths

import (
	"strings"

	"github.com/VioletaStepanyan/ukv/pkg/arena"
	"github.com/VioletaStepanyan/ukv/pkg/bitmap"
	"github.com/VioletaStepanyan/ukv/pkg/store"
)

// dirEntry is one (directory prefix -> immediate child segment) edge to
// maintain in the directory-mirror namespace.
type dirEntry struct {
	coll   store.CollectionHandle
	prefix string
	child  string
}

// writeDirectoryMirror maintains the hierarchical directory-mirror buckets
// for a set of freshly-written path names, gated behind
// Config.PathsDirectoryMirror (spec §9's resolved open question). For each
// name, every ancestor prefix gets a member recording its immediate child
// segment; child buckets live in the tagged directory-hash namespace so
// they can never collide with ordinary path buckets in the same
// collection.
//
// This pass is additive and idempotent: re-inserting the same name is a
// no-op once its ancestor edges already exist. It does not attempt to
// remove ancestor edges on paths_write deletes, since garbage-collecting a
// directory edge correctly requires knowing whether any other surviving
// path still depends on it, which this translation leaves as a refcounting
// problem out of scope (recorded in DESIGN.md).
func (p *Paths) writeDirectoryMirror(names []string, collsByName map[string]store.CollectionHandle, opts store.WriteOptions, ar *arena.Arena) error {
	sep := string(p.cfg.DirectorySeparator())

	seen := make(map[dirEntry]bool)
	var entries []dirEntry
	for _, name := range names {
		coll := collsByName[name]
		segs := strings.Split(name, sep)
		prefix := ""
		for i := 0; i < len(segs); i++ {
			e := dirEntry{coll: coll, prefix: prefix, child: segs[i]}
			if !seen[e] {
				seen[e] = true
				entries = append(entries, e)
			}
			if prefix == "" {
				prefix = segs[i]
			} else {
				prefix = prefix + sep + segs[i]
			}
		}
	}
	if len(entries) == 0 {
		return nil
	}

	type bucketIdent struct {
		coll store.CollectionHandle
		key  store.Key
	}
	bucketOf := make(map[bucketIdent]int)
	var uniqueColls []store.CollectionHandle
	var uniqueKeys []store.Key
	entryBucketIdx := make([]int, len(entries))

	for i, e := range entries {
		key := p.directoryHash(e.prefix)
		ident := bucketIdent{coll: e.coll, key: key}
		idx, ok := bucketOf[ident]
		if !ok {
			idx = len(uniqueColls)
			bucketOf[ident] = idx
			uniqueColls = append(uniqueColls, e.coll)
			uniqueKeys = append(uniqueKeys, key)
		}
		entryBucketIdx[i] = idx
	}

	readRes, err := p.db.Read(store.ReadRequest{Collections: uniqueColls, Keys: uniqueKeys}, store.ReadOptions{
		Flags:      opts.Flags,
		Txn:        opts.Txn,
		WantValues: true,
	}, ar)
	if err != nil {
		return err
	}

	current := make([][]byte, len(uniqueColls))
	for i := range uniqueColls {
		if bitmap.Get(readRes.Presence, i) {
			off := readRes.Offsets[i]
			length := readRes.Lengths[i]
			current[i] = readRes.Tape[off : off+length]
		}
	}

	for i, e := range entries {
		idx := entryBucketIdx[i]
		if _, found, _ := bucketRead(current[idx], e.child); found {
			continue
		}
		updated, uerr := bucketUpsert(current[idx], e.child, nil)
		if uerr != nil {
			return uerr
		}
		current[idx] = updated
	}

	writeReq := store.WriteRequest{
		Collections: uniqueColls,
		Keys:        uniqueKeys,
		Presence:    make([]bool, len(uniqueColls)),
		Values:      make([][]byte, len(uniqueColls)),
	}
	for i := range uniqueColls {
		writeReq.Presence[i] = true
		writeReq.Values[i] = current[i]
	}

	return p.db.Write(writeReq, store.WriteOptions{Flags: opts.Flags, Txn: opts.Txn})
}

// ListDirectory returns the immediate child segments recorded under
// prefix, reading the directory-mirror bucket directly. It returns an
// empty, non-error result when the mirror was never populated (mirror
// disabled or prefix unseen).
func (p *Paths) ListDirectory(coll store.CollectionHandle, prefix string, ar *arena.Arena) ([]string, error) {
	key := p.directoryHash(prefix)
	res, err := p.db.Read(store.ReadRequest{Collections: []store.CollectionHandle{coll}, Keys: []store.Key{key}}, store.ReadOptions{WantValues: true}, ar)
	if err != nil {
		return nil, err
	}
	if !bitmap.Get(res.Presence, 0) {
		return nil, nil
	}
	off := res.Offsets[0]
	length := res.Lengths[0]
	members, err := decodeBucket(res.Tape[off : off+length])
	if err != nil {
		return nil, err
	}
	children := make([]string, len(members))
	for i, m := range members {
		children[i] = m.name
	}
	return children, nil
}
