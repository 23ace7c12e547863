// Package object defines the layout model the optimizer operates on: an
// Object holds Sections, Sections hold Bytecodes, and Bytecodes carry fixed
// bytes plus a variable-length tail driven by their Contents. The package
// also provides the symbolic value machinery (IntNum, Expr, Value) used to
// express layout-dependent quantities such as branch displacements and
// replication counts.
package object

import (
	"github.com/deepnoodle-ai/anvil/diag"
)

// Object is a container of sections plus the symbol table for one
// translation unit. It is built by a front-end, finalized once, and then
// handed to the optimizer, which mutates bytecode indexes, offsets and tail
// lengths in place.
type Object struct {
	name     string
	sections []*Section
	symbols  map[string]*Symbol
	symOrder []*Symbol // creation order, for deterministic diagnostics
}

// New creates an empty object with the given name (typically the source
// filename).
func New(name string) *Object {
	return &Object{
		name:    name,
		symbols: make(map[string]*Symbol),
	}
}

// Name returns the object name.
func (o *Object) Name() string {
	return o.name
}

// NewSection appends a new section with the given name and returns it.
func (o *Object) NewSection(name string) *Section {
	s := newSection(o, name)
	o.sections = append(o.sections, s)
	return s
}

// Sections returns the object's sections in order.
func (o *Object) Sections() []*Section {
	return o.sections
}

// FindSection returns the section with the given name, or nil.
func (o *Object) FindSection(name string) *Section {
	for _, s := range o.sections {
		if s.name == name {
			return s
		}
	}
	return nil
}

// Symbol interns a symbol by name, creating an undefined symbol on first
// reference.
func (o *Object) Symbol(name string) *Symbol {
	if sym, ok := o.symbols[name]; ok {
		return sym
	}
	sym := &Symbol{name: name, object: o}
	o.symbols[name] = sym
	o.symOrder = append(o.symOrder, sym)
	return sym
}

// LookupSymbol returns the symbol with the given name, or nil if it was
// never referenced.
func (o *Object) LookupSymbol(name string) *Symbol {
	return o.symbols[name]
}

// Symbols returns all symbols in creation order.
func (o *Object) Symbols() []*Symbol {
	return o.symOrder
}

// Finalize checks symbol resolution after parsing and before optimization.
// Every undefined symbol is reported exactly once, at its earliest use line
// (later uses are not reported); if any such error is reported, a single closing note is appended
// at the line of the first one.
func (o *Object) Finalize(sink *diag.Sink) {
	firstLine := -1
	for _, sym := range o.symOrder {
		if sym.IsDefined() || !sym.used {
			continue
		}
		sink.Errorf(sym.useLine, "symbol `%s' undefined", sym.name)
		if firstLine < 0 {
			firstLine = sym.useLine
		}
	}
	if firstLine >= 0 {
		sink.Errorf(firstLine, "(Each undefined symbol is reported only once.)")
	}
}
