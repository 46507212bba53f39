package paths

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/VioletaStepanyan/ukv/pkg/arena"
	"github.com/VioletaStepanyan/ukv/pkg/bitmap"
	"github.com/VioletaStepanyan/ukv/pkg/config"
	"github.com/VioletaStepanyan/ukv/pkg/log"
	"github.com/VioletaStepanyan/ukv/pkg/store"
	"github.com/VioletaStepanyan/ukv/pkg/telemetry"
)

// Paths provides paths_write, paths_read and paths_match (spec §4.2) over
// a store.Database.
type Paths struct {
	db     *store.Database
	cfg    *config.Config
	logger log.Logger
	tel    telemetry.Telemetry
}

// New creates a Paths modality bound to db. A nil cfg selects
// config.NewDefaultConfig().
func New(db *store.Database, cfg *config.Config) *Paths {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	return &Paths{
		db:     db,
		cfg:    cfg,
		logger: log.Default().WithField("component", "paths"),
		tel:    telemetry.NewNoop(),
	}
}

// SetTelemetry installs tel as this modality's telemetry sink, replacing
// the no-op default. Passing nil restores the no-op.
func (p *Paths) SetTelemetry(tel telemetry.Telemetry) {
	if tel == nil {
		tel = telemetry.NewNoop()
	}
	p.tel = tel
}

// instrument mirrors store.Database.instrument: paths operations carry no
// context.Context of their own, so spans root on a fresh background
// context. The returned context carries the new span, so callers can hand
// it to log.Logger.WithContext and have their log lines show up as span
// events too.
func (p *Paths) instrument(op string) (context.Context, func(err *error)) {
	ctx, span := p.tel.StartSpan(context.Background(), "paths."+op,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentPaths),
		attribute.String(telemetry.AttrOperation, op),
	)
	start := time.Now()
	return ctx, func(errp *error) {
		defer span.End()
		status := telemetry.StatusOk
		if errp != nil && *errp != nil {
			status = telemetry.StatusError
			span.SetStatus(codes.Error, (*errp).Error())
		}
		telemetry.RecordDuration(ctx, p.tel, "ukv.paths.op.duration", start,
			attribute.String(telemetry.AttrOperation, op),
			attribute.String(telemetry.AttrStatus, status),
		)
	}
}

// bucketKey identifies one (collection, hashed-key) bucket.
type bucketKey struct {
	coll store.CollectionHandle
	key  store.Key
}

// WriteTask is one paths_write input row: set Name to Value, or (if Delete)
// remove Name, within Collection.
type WriteTask struct {
	Collection store.CollectionHandle
	Name       string
	Value      []byte
	Delete     bool
}

// Write applies a batch of named upserts/removals, following the four-step
// algorithm of spec §4.2: dedup bucket keys, one batched read, per-task
// bucket rebuild, one batched write.
func (p *Paths) Write(tasks []WriteTask, opts store.WriteOptions, ar *arena.Arena) (err error) {
	ctx, end := p.instrument(telemetry.OpPathsWrite)
	defer func() { end(&err) }()

	if len(tasks) == 0 {
		return nil
	}

	taskBucketKey := make([]store.Key, len(tasks))
	seen := make(map[bucketKey]bool)
	var unique []bucketKey

	for i, t := range tasks {
		bk := p.hash(t.Name)
		taskBucketKey[i] = bk
		bucket := bucketKey{coll: t.Collection, key: bk}
		if !seen[bucket] {
			seen[bucket] = true
			unique = append(unique, bucket)
		}
	}
	sortUniqueBuckets(unique)

	uniqueIndex := make(map[bucketKey]int, len(unique))
	uniqueColls := make([]store.CollectionHandle, len(unique))
	uniqueKeys := make([]store.Key, len(unique))
	for i, b := range unique {
		uniqueIndex[b] = i
		uniqueColls[i] = b.coll
		uniqueKeys[i] = b.key
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

	var insertedNames []string
	for i, t := range tasks {
		bucket := bucketKey{coll: t.Collection, key: taskBucketKey[i]}
		idx := uniqueIndex[bucket]
		if t.Delete {
			updated, _, rerr := bucketRemove(current[idx], t.Name)
			if rerr != nil {
				return rerr
			}
			current[idx] = updated
		} else {
			updated, uerr := bucketUpsert(current[idx], t.Name, t.Value)
			if uerr != nil {
				return uerr
			}
			current[idx] = updated
			insertedNames = append(insertedNames, t.Name)
		}
	}

	writeReq := store.WriteRequest{
		Collections: uniqueColls,
		Keys:        uniqueKeys,
		Presence:    make([]bool, len(uniqueColls)),
		Values:      make([][]byte, len(uniqueColls)),
	}
	for i := range uniqueColls {
		size, serr := bucketSize(current[i])
		if serr != nil {
			return serr
		}
		if size == 0 {
			writeReq.Presence[i] = false
			writeReq.Values[i] = nil
		} else {
			writeReq.Presence[i] = true
			writeReq.Values[i] = current[i]
		}
	}

	if err := p.db.Write(writeReq, store.WriteOptions{Flags: opts.Flags, Txn: opts.Txn}); err != nil {
		return err
	}
	p.logger.WithContext(ctx).
		WithField("tasks", len(tasks)).
		WithField("buckets", len(uniqueColls)).
		Debug("paths write committed")

	if p.cfg.DirectoryMirrorEnabled() && len(insertedNames) > 0 {
		// Second pass, gated behind the flag (spec §4.2/§9): idempotent,
		// order-independent across the batch.
		collsByName := make(map[string]store.CollectionHandle, len(tasks))
		for _, t := range tasks {
			if !t.Delete {
				collsByName[t.Name] = t.Collection
			}
		}
		return p.writeDirectoryMirror(insertedNames, collsByName, opts, ar)
	}
	return nil
}

// ReadTask is one paths_read input row: look up Name within Collection.
type ReadTask struct {
	Collection store.CollectionHandle
	Name       string
}

// ReadResult is the columnar output of a batch Read.
type ReadResult struct {
	Presence []byte
	Offsets  []uint32
	Lengths  []uint32
	Tape     []byte
}

// Read resolves a batch of named lookups. No dedup is needed (per spec
// §4.2, repeat hash hits are cheap); each task hashes independently.
func (p *Paths) Read(tasks []ReadTask, ar *arena.Arena) (result *ReadResult, err error) {
	_, end := p.instrument(telemetry.OpPathsRead)
	defer func() { end(&err) }()

	n := len(tasks)
	colls := make([]store.CollectionHandle, n)
	keys := make([]store.Key, n)
	for i, t := range tasks {
		colls[i] = t.Collection
		keys[i] = p.hash(t.Name)
	}

	bucketsRes, err := p.db.Read(store.ReadRequest{Collections: colls, Keys: keys}, store.ReadOptions{WantValues: true}, ar)
	if err != nil {
		return nil, err
	}

	presence := bitmap.New(n)
	lengths := make([]uint32, n)
	offsets := make([]uint32, n)
	var total int

	rowVals := make([][]byte, n)
	for i, t := range tasks {
		if !bitmap.Get(bucketsRes.Presence, i) {
			continue
		}
		off := bucketsRes.Offsets[i]
		length := bucketsRes.Lengths[i]
		raw := bucketsRes.Tape[off : off+length]
		v, found, derr := bucketRead(raw, t.Name)
		if derr != nil {
			return nil, derr
		}
		if found {
			rowVals[i] = v
			total += len(v)
		}
	}

	buf, err := ar.Alloc(total, 1)
	if err != nil {
		return nil, err
	}
	var pos uint32
	for i, v := range rowVals {
		if v == nil {
			continue
		}
		bitmap.Set(presence, i)
		lengths[i] = uint32(len(v))
		offsets[i] = pos
		copy(buf[pos:pos+uint32(len(v))], v)
		pos += uint32(len(v))
	}

	return &ReadResult{Presence: presence, Offsets: offsets, Lengths: lengths, Tape: buf}, nil
}

// MatchTask is one prefix-scan continuation request.
type MatchTask struct {
	Collection  store.CollectionHandle
	Prefix      string
	PreviousKey string
	MaxCount    int
}

// MatchResult holds, per task, the matching names (and their values) found
// in bucket-then-key order.
type MatchResult struct {
	Names  [][]string
	Values [][][]byte
}

const matchScanChunk = 256

// Match performs prefix scan-with-continuation over names (spec §4.2): for
// each task, scan buckets in key order, iterate members in bucket order,
// filter by prefix, skip members already seen (up to and including
// PreviousKey), and emit until MaxCount is reached or the collection is
// exhausted. The implementation tolerates hash collisions implicitly since
// matching is against name, never against the hash.
func (p *Paths) Match(tasks []MatchTask, ar *arena.Arena) (result *MatchResult, err error) {
	_, end := p.instrument(telemetry.OpPathsMatch)
	defer func() { end(&err) }()

	result = &MatchResult{
		Names:  make([][]string, len(tasks)),
		Values: make([][][]byte, len(tasks)),
	}

	for ti, t := range tasks {
		names, values, merr := p.matchOne(t, ar)
		if merr != nil {
			return nil, merr
		}
		result.Names[ti] = names
		result.Values[ti] = values
	}
	return result, nil
}

func (p *Paths) matchOne(t MatchTask, ar *arena.Arena) ([]string, [][]byte, error) {
	var names []string
	var values [][]byte
	skipping := t.PreviousKey != ""
	minKey := store.KeyUnknown

	for {
		scanRes, err := p.db.Scan(store.ScanRequest{
			Collections: []store.CollectionHandle{t.Collection},
			MinKeys:     []store.Key{minKey},
			MaxCounts:   []int{matchScanChunk},
		}, store.ScanOptions{}, ar)
		if err != nil {
			return nil, nil, err
		}
		keys := scanRes.Keys[0]
		if len(keys) == 0 {
			break
		}

		readRes, err := p.db.Read(store.ReadRequest{
			Collections: repeatHandle(t.Collection, len(keys)),
			Keys:        keys,
		}, store.ReadOptions{WantValues: true}, ar)
		if err != nil {
			return nil, nil, err
		}

		done := false
		for ki := range keys {
			if !bitmap.Get(readRes.Presence, ki) {
				continue
			}
			off := readRes.Offsets[ki]
			length := readRes.Lengths[ki]
			members, derr := decodeBucket(readRes.Tape[off : off+length])
			if derr != nil {
				return nil, nil, derr
			}
			for _, m := range members {
				if !strings.HasPrefix(m.name, t.Prefix) {
					continue
				}
				if skipping {
					if m.name == t.PreviousKey {
						skipping = false
					}
					continue
				}
				names = append(names, m.name)
				values = append(values, m.value)
				if len(names) >= t.MaxCount {
					done = true
					break
				}
			}
			if done {
				break
			}
		}
		if done || len(keys) < matchScanChunk {
			break
		}
		minKey = keys[len(keys)-1] + 1
	}

	return names, values, nil
}

func repeatHandle(h store.CollectionHandle, n int) []store.CollectionHandle {
	out := make([]store.CollectionHandle, n)
	for i := range out {
		out[i] = h
	}
	return out
}

// sortUniqueBuckets orders the unique (collection, bucket_key) set by key,
// matching spec §4.2's "build the set U of unique (collection, bucket_key)
// pairs, sorted." CollectionHandle carries no externally comparable
// ordering, so key is the sort key; this is enough to make batch
// construction deterministic across repeated calls with the same tasks.
func sortUniqueBuckets(buckets []bucketKey) {
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].key < buckets[j].key })
}
