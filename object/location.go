package object

// Location is a cheap value type identifying a byte position inside a
// bytecode: the bytecode plus an offset into its fixed portion. Locations
// refer to bytecodes by handle, never by address, so they stay valid as the
// layout is mutated.
type Location struct {
	BC  *Bytecode
	Off int64
}

// Offset returns the location's offset within its section. Only meaningful
// once bytecode offsets have been assigned.
func (l Location) Offset() int64 {
	return l.BC.Offset() + l.Off
}

// Container returns the section holding the location's bytecode.
func (l Location) Container() *Section {
	return l.BC.Container()
}

// CalcDist returns the signed byte distance loc2-loc1. It succeeds only when
// both locations lie in the same container; a cross-section distance is not
// computable and the caller must treat the value as too complex.
func CalcDist(loc1, loc2 Location) (IntNum, bool) {
	if loc1.BC == nil || loc2.BC == nil {
		return IntNum{}, false
	}
	if loc1.Container() != loc2.Container() {
		return IntNum{}, false
	}
	return NewIntNum(loc2.Offset() - loc1.Offset()), true
}
