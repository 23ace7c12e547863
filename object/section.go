package object

// Section is a bytecode container: a totally ordered sequence of bytecodes
// within which distances are computable. Every section begins with an empty
// sentinel head bytecode at offset 0, which keeps label anchoring and
// distance queries uniform.
type Section struct {
	name   string
	object *Object
	bcs    []*Bytecode
}

func newSection(obj *Object, name string) *Section {
	s := &Section{name: name, object: obj}
	head := &Bytecode{container: s}
	s.bcs = append(s.bcs, head)
	return s
}

// Name returns the section name.
func (s *Section) Name() string { return s.name }

// Object returns the owning object.
func (s *Section) Object() *Object { return s.object }

// Bytecodes returns the section's bytecodes in order, including the sentinel
// head.
func (s *Section) Bytecodes() []*Bytecode { return s.bcs }

// Last returns the last bytecode in the section.
func (s *Section) Last() *Bytecode { return s.bcs[len(s.bcs)-1] }

// StartBytecode appends a fresh empty bytecode and returns it.
func (s *Section) StartBytecode(line int) *Bytecode {
	bc := &Bytecode{container: s, line: line}
	s.bcs = append(s.bcs, bc)
	return bc
}

// FreshBytecode returns the last bytecode if it can still accept fixed data
// (it has no contents), or starts a new one.
func (s *Section) FreshBytecode(line int) *Bytecode {
	bc := s.Last()
	if !bc.HasContents() {
		if bc.line == 0 {
			bc.line = line
		}
		return bc
	}
	return s.StartBytecode(line)
}

// FreshLocation returns the location of the next byte to be assembled:
// the fresh bytecode at its current fixed length.
func (s *Section) FreshLocation(line int) Location {
	bc := s.FreshBytecode(line)
	return Location{BC: bc, Off: bc.FixedLen()}
}

// AppendData appends raw bytes at the current assembly position.
func (s *Section) AppendData(data []byte, line int) {
	bc := s.FreshBytecode(line)
	bc.AppendFixed(data)
}

// AppendFixup appends a value of the given size at the current assembly
// position.
func (s *Section) AppendFixup(size int, val Value, line int) {
	bc := s.FreshBytecode(line)
	bc.AppendFixup(size, val, line)
}

// AppendBytecode attaches the given contents to the last bytecode when that
// bytecode is empty (no contents, no fixed data, not the sentinel head), or
// else starts a new bytecode for them, and returns it. Contents-carrying
// bytecodes never share fixed data with other statements, so their tail
// stays last.
func (s *Section) AppendBytecode(contents Contents, line int) *Bytecode {
	bc := s.Last()
	if bc.HasContents() || bc.FixedLen() > 0 || len(s.bcs) == 1 {
		bc = s.StartBytecode(line)
	}
	bc.contents = contents
	bc.line = line
	return bc
}

// UpdateOffsets re-derives every bytecode's offset from its predecessor.
// The returned error is the first offset-update failure, tagged with its
// bytecode; remaining bytecodes are left untouched after a failure.
func (s *Section) UpdateOffsets() (*Bytecode, error) {
	offset := int64(0)
	s.bcs[0].SetOffset(0)
	for _, bc := range s.bcs {
		next, err := bc.UpdateOffset(offset)
		if err != nil {
			return bc, err
		}
		offset = next
	}
	return nil, nil
}
