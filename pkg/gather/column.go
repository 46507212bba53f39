package gather

// Column is one field's output: three per-row bitmaps plus either packed
// scalars (fixed-width types) or offsets/lengths into the shared Result
// tape (variable-length types).
type Column struct {
	Name      string
	Type      FieldType
	Validity  []byte
	Converted []byte
	Collided  []byte

	// Scalars holds docsCount cells packed contiguously at Type.Width()
	// bytes each, valid only when !Type.Variable().
	Scalars []byte

	// Offsets and Lengths index into Result.Tape, valid only when
	// Type.Variable(). Offsets has docsCount entries (spec §6 describes
	// an (N+1)-th sentinel offset for a single column's own private tape;
	// since Result shares one tape across columns, Lengths is carried
	// explicitly instead of relying on the next offset).
	Offsets []uint32
	Lengths []uint32
}

// Result is the full output of one Gather call: one Column per requested
// field, all variable-length columns' bytes packed into one shared Tape.
type Result struct {
	Columns []Column
	Tape    []byte
}
