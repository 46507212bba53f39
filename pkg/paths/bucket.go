// Package paths implements the paths modality of spec §4.2: variable-length
// string keys mapped onto fixed-width integer keys via hashing plus
// collision buckets layered on top of pkg/store's binary KV primitive.
package paths

import (
	"encoding/binary"

	"github.com/VioletaStepanyan/ukv/pkg/kverrors"
)

// member is one (name, value) pair inside a bucket.
type member struct {
	name  string
	value []byte
}

// decodeBucket parses the bucket wire layout of spec §3:
//
//	[ N: u32 ]
//	[ name_len_0 … name_len_{N-1} : u32 ]
//	[ val_len_0  … val_len_{N-1}  : u32 ]
//	[ name_bytes_0 || … || name_bytes_{N-1} ]
//	[ val_bytes_0  || … || val_bytes_{N-1}  ]
//
// A nil/empty raw slice decodes to zero members (the "totally-empty slot"
// of §3, which is never actually stored — it is represented by entry
// absence — but decoding treats it uniformly for callers building a bucket
// from scratch).
func decodeBucket(raw []byte) ([]member, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if len(raw) < 4 {
		return nil, kverrors.New(kverrors.InvalidArgument, "paths: truncated bucket header")
	}
	n := binary.LittleEndian.Uint32(raw[0:4])
	headerLen := 4 + 4*int(n) + 4*int(n)
	if len(raw) < headerLen {
		return nil, kverrors.New(kverrors.InvalidArgument, "paths: truncated bucket length tables")
	}

	nameLens := make([]uint32, n)
	valLens := make([]uint32, n)
	off := 4
	for i := uint32(0); i < n; i++ {
		nameLens[i] = binary.LittleEndian.Uint32(raw[off : off+4])
		off += 4
	}
	for i := uint32(0); i < n; i++ {
		valLens[i] = binary.LittleEndian.Uint32(raw[off : off+4])
		off += 4
	}

	members := make([]member, n)
	pos := off
	for i := uint32(0); i < n; i++ {
		end := pos + int(nameLens[i])
		if end > len(raw) {
			return nil, kverrors.New(kverrors.InvalidArgument, "paths: truncated bucket names")
		}
		members[i].name = string(raw[pos:end])
		pos = end
	}
	for i := uint32(0); i < n; i++ {
		end := pos + int(valLens[i])
		if end > len(raw) {
			return nil, kverrors.New(kverrors.InvalidArgument, "paths: truncated bucket values")
		}
		v := make([]byte, valLens[i])
		copy(v, raw[pos:end])
		members[i].value = v
		pos = end
	}
	return members, nil
}

// encodeBucket serializes members into the wire layout described above,
// allocating a single fresh buffer sized exactly for the result.
func encodeBucket(members []member) []byte {
	n := len(members)
	headerLen := 4 + 4*n + 4*n
	bodyLen := 0
	for _, m := range members {
		bodyLen += len(m.name) + len(m.value)
	}

	buf := make([]byte, headerLen+bodyLen)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(n))
	off := 4
	for _, m := range members {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(m.name)))
		off += 4
	}
	for _, m := range members {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(m.value)))
		off += 4
	}
	for _, m := range members {
		off += copy(buf[off:], m.name)
	}
	for _, m := range members {
		off += copy(buf[off:], m.value)
	}
	return buf
}

// bucketRead locates name within raw and returns its value.
func bucketRead(raw []byte, name string) ([]byte, bool, error) {
	members, err := decodeBucket(raw)
	if err != nil {
		return nil, false, err
	}
	for _, m := range members {
		if m.name == name {
			return m.value, true, nil
		}
	}
	return nil, false, nil
}

// bucketSize reports the number of members encoded in raw.
func bucketSize(raw []byte) (int, error) {
	members, err := decodeBucket(raw)
	if err != nil {
		return 0, err
	}
	return len(members), nil
}

// bucketUpsert rebuilds raw with name set to value. An existing member is
// overwritten in place (keeping its position); a new member is appended at
// the end, preserving insertion order of everything else (spec §4.2).
func bucketUpsert(raw []byte, name string, value []byte) ([]byte, error) {
	members, err := decodeBucket(raw)
	if err != nil {
		return nil, err
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	for i := range members {
		if members[i].name == name {
			members[i].value = valueCopy
			return encodeBucket(members), nil
		}
	}
	members = append(members, member{name: name, value: valueCopy})
	return encodeBucket(members), nil
}

// bucketRemove rebuilds raw with name removed, equivalent to a
// memmove-compaction of the bucket's four regions (spec §4.2). It reports
// whether name was present.
func bucketRemove(raw []byte, name string) ([]byte, bool, error) {
	members, err := decodeBucket(raw)
	if err != nil {
		return nil, false, err
	}

	for i := range members {
		if members[i].name == name {
			members = append(members[:i], members[i+1:]...)
			return encodeBucket(members), true, nil
		}
	}
	return raw, false, nil
}
