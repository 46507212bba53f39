package store

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Op identifies a trackable store operation, adapted from the teacher's
// pkg/stats.OperationType enumeration, trimmed to the operations this core
// actually performs (no flush/compaction/recovery — those are persistence
// concerns, out of scope here).
type Op string

const (
	OpRead       Op = "read"
	OpWrite      Op = "write"
	OpScan       Op = "scan"
	OpTxnBegin   Op = "txn_begin"
	OpTxnCommit  Op = "txn_commit"
	OpTxnAbort   Op = "txn_abort"
	OpCollUpsert Op = "collection_upsert"
	OpCollRemove Op = "collection_remove"
)

// latencyTracker keeps running count/sum/min/max of an operation's latency
// in nanoseconds, updated lock-free via CAS loops like the teacher's
// pkg/stats.LatencyTracker.
type latencyTracker struct {
	count atomic.Uint64
	sum   atomic.Uint64
	max   atomic.Uint64
	min   atomic.Uint64
}

func (t *latencyTracker) observe(latencyNs uint64) {
	t.count.Add(1)
	t.sum.Add(latencyNs)

	for {
		cur := t.max.Load()
		if latencyNs <= cur {
			break
		}
		if t.max.CompareAndSwap(cur, latencyNs) {
			break
		}
	}
	for {
		cur := t.min.Load()
		if cur == 0 {
			if t.min.CompareAndSwap(0, latencyNs) {
				break
			}
			continue
		}
		if latencyNs >= cur {
			break
		}
		if t.min.CompareAndSwap(cur, latencyNs) {
			break
		}
	}
}

// Collector is an atomic, low-contention statistics collector for the
// database, adapted from the teacher's pkg/stats.AtomicCollector.
type Collector struct {
	countsMu sync.RWMutex
	counts   map[Op]*atomic.Uint64

	latenciesMu sync.RWMutex
	latencies   map[Op]*latencyTracker

	errorsMu sync.RWMutex
	errors   map[string]*atomic.Uint64

	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		counts:    make(map[Op]*atomic.Uint64),
		latencies: make(map[Op]*latencyTracker),
		errors:    make(map[string]*atomic.Uint64),
	}
}

func (c *Collector) counter(op Op) *atomic.Uint64 {
	c.countsMu.RLock()
	ctr, ok := c.counts[op]
	c.countsMu.RUnlock()
	if ok {
		return ctr
	}
	c.countsMu.Lock()
	defer c.countsMu.Unlock()
	if ctr, ok = c.counts[op]; ok {
		return ctr
	}
	ctr = &atomic.Uint64{}
	c.counts[op] = ctr
	return ctr
}

func (c *Collector) tracker(op Op) *latencyTracker {
	c.latenciesMu.RLock()
	t, ok := c.latencies[op]
	c.latenciesMu.RUnlock()
	if ok {
		return t
	}
	c.latenciesMu.Lock()
	defer c.latenciesMu.Unlock()
	if t, ok = c.latencies[op]; ok {
		return t
	}
	t = &latencyTracker{}
	c.latencies[op] = t
	return t
}

// Track records one occurrence of op with its latency.
func (c *Collector) Track(op Op, latency time.Duration) {
	c.counter(op).Add(1)
	c.tracker(op).observe(uint64(latency.Nanoseconds()))
}

// TrackError increments the counter for the given error kind string.
func (c *Collector) TrackError(kind string) {
	c.errorsMu.RLock()
	ctr, ok := c.errors[kind]
	c.errorsMu.RUnlock()
	if !ok {
		c.errorsMu.Lock()
		if ctr, ok = c.errors[kind]; !ok {
			ctr = &atomic.Uint64{}
			c.errors[kind] = ctr
		}
		c.errorsMu.Unlock()
	}
	ctr.Add(1)
}

// TrackBytes adds to the read or write byte counters.
func (c *Collector) TrackBytes(isWrite bool, n uint64) {
	if isWrite {
		c.bytesWritten.Add(n)
	} else {
		c.bytesRead.Add(n)
	}
}

// Snapshot returns a view of all counters. Each value is loaded atomically,
// but the counters are not all read at one single instant.
func (c *Collector) Snapshot() map[string]interface{} {
	out := make(map[string]interface{})

	c.countsMu.RLock()
	for op, ctr := range c.counts {
		out[fmt.Sprintf("op.%s.count", op)] = ctr.Load()
	}
	c.countsMu.RUnlock()

	c.latenciesMu.RLock()
	for op, t := range c.latencies {
		count := t.count.Load()
		out[fmt.Sprintf("op.%s.latency_count", op)] = count
		out[fmt.Sprintf("op.%s.latency_sum_ns", op)] = t.sum.Load()
		out[fmt.Sprintf("op.%s.latency_max_ns", op)] = t.max.Load()
		out[fmt.Sprintf("op.%s.latency_min_ns", op)] = t.min.Load()
		if count > 0 {
			out[fmt.Sprintf("op.%s.latency_avg_ns", op)] = t.sum.Load() / count
		}
	}
	c.latenciesMu.RUnlock()

	c.errorsMu.RLock()
	for kind, ctr := range c.errors {
		out[fmt.Sprintf("error.%s.count", kind)] = ctr.Load()
	}
	c.errorsMu.RUnlock()

	out["bytes_read"] = c.bytesRead.Load()
	out["bytes_written"] = c.bytesWritten.Load()
	return out
}
