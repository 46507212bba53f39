package paths

import (
	"github.com/cespare/xxhash/v2"

	"github.com/VioletaStepanyan/ukv/pkg/store"
)

// directoryTagBit marks a Key as belonging to the directory-mirror
// namespace rather than an ordinary path bucket (spec §9's "negative-tagged
// keys"): setting the sign bit of a signed 64-bit Key always produces a
// negative value, while clearing it always produces a non-negative one, so
// the two namespaces partition the Key space without ever colliding.
const directoryTagBit = uint64(1) << 63

// hash reduces a string path to an integer bucket key. H is deterministic,
// independent of process lifetime, and uniform enough that typical
// workloads keep average bucket size ~= 1 (spec §4.2). When the owning
// Paths has a non-zero debug modulus configured, H's output range is
// reduced to force collisions for testing the collision-resolution path.
func (p *Paths) hash(name string) store.Key {
	h := xxhash.Sum64String(name)
	if modulus := p.cfg.HashDebugModulus(); modulus > 0 {
		h = h % modulus
	}
	return store.Key(h &^ directoryTagBit)
}

// directoryHash reduces an ancestor-prefix string to its directory-mirror
// bucket key, tagged so it can never collide with an ordinary path bucket
// key produced by hash.
func (p *Paths) directoryHash(prefix string) store.Key {
	h := xxhash.Sum64String(prefix)
	if modulus := p.cfg.HashDebugModulus(); modulus > 0 {
		h = h % modulus
	}
	return store.Key(h | directoryTagBit)
}
