package store

// collection is the internal representation of a named, ordered-by-key
// mapping from Key to Entry (spec §3).
type collection struct {
	name  string
	id    uint64
	index *skipList
}

func newCollection(name string, id uint64, seed int64) *collection {
	return &collection{
		name:  name,
		id:    id,
		index: newSkipList(seed),
	}
}

func (c *collection) handle() CollectionHandle {
	return CollectionHandle{id: c.id}
}
