package object

import "fmt"

// Symbol is a named point in the layout (a label) or a named constant (equ).
// Label symbols resolve to a Location whose offset becomes meaningful only
// after optimization.
type Symbol struct {
	name    string
	object  *Object
	loc     Location
	equ     *IntNum
	defined bool
	defLine int
	used    bool
	useLine int // earliest use line
}

// Name returns the symbol name.
func (s *Symbol) Name() string { return s.name }

// IsDefined returns true once the symbol has been given a location or a
// constant value.
func (s *Symbol) IsDefined() bool { return s.defined }

// IsConstant returns true for equ-style symbols.
func (s *Symbol) IsConstant() bool { return s.equ != nil }

// DefineLabel binds the symbol to a location. Redefinition is an error.
func (s *Symbol) DefineLabel(loc Location, line int) error {
	if s.defined {
		return fmt.Errorf("symbol `%s' redefined (first defined on line %d)", s.name, s.defLine)
	}
	s.loc = loc
	s.defined = true
	s.defLine = line
	loc.BC.addSymbol(s)
	return nil
}

// DefineConstant binds the symbol to a constant value. Redefinition is an
// error.
func (s *Symbol) DefineConstant(val IntNum, line int) error {
	if s.defined {
		return fmt.Errorf("symbol `%s' redefined (first defined on line %d)", s.name, s.defLine)
	}
	v := val
	s.equ = &v
	s.defined = true
	s.defLine = line
	return nil
}

// Use records a reference to the symbol, keeping the earliest use line for
// the undefined-symbol policy.
func (s *Symbol) Use(line int) {
	if !s.used {
		s.used = true
		s.useLine = line
	}
}

// Location returns the symbol's location. Only valid for defined label
// symbols.
func (s *Symbol) Location() Location { return s.loc }

// Constant returns the equ value for constant symbols.
func (s *Symbol) Constant() (IntNum, bool) {
	if s.equ == nil {
		return IntNum{}, false
	}
	return *s.equ, true
}

// DefLine returns the definition line, or 0 for undefined symbols.
func (s *Symbol) DefLine() int { return s.defLine }
