// Package objfile writes finalized, optimized objects: a flat binary image
// of the emitted bytes, or a CBOR-encoded dump of sections and resolved
// symbols for toolchain debugging.
package objfile

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/deepnoodle-ai/anvil/object"
)

// FormatTag identifies the CBOR object dump format.
const FormatTag = "anvil-obj"

// FormatVersion is the current CBOR object dump version.
const FormatVersion = 1

// File is the CBOR object dump structure.
type File struct {
	Format   string    `cbor:"format"`
	Version  int       `cbor:"version"`
	Name     string    `cbor:"name"`
	Sections []Section `cbor:"sections"`
	Symbols  []Symbol  `cbor:"symbols"`
}

// Section is one emitted section in a dump.
type Section struct {
	Name string `cbor:"name"`
	Data []byte `cbor:"data"`
}

// Symbol is one resolved symbol in a dump.
type Symbol struct {
	Name     string `cbor:"name"`
	Section  string `cbor:"section,omitempty"`
	Value    int64  `cbor:"value"`
	Constant bool   `cbor:"constant,omitempty"`
}

// EmitSection renders one section's bytes.
func EmitSection(s *object.Section) ([]byte, error) {
	var buf bytes.Buffer
	for _, bc := range s.Bytecodes() {
		if err := bc.Emit(&buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// WriteBin writes the flat binary image: every section's bytes in object
// order.
func WriteBin(obj *object.Object, w io.Writer) error {
	for _, s := range obj.Sections() {
		data, err := EmitSection(s)
		if err != nil {
			return fmt.Errorf("section %s: %w", s.Name(), err)
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// WriteObj writes the CBOR object dump.
func WriteObj(obj *object.Object, w io.Writer) error {
	f := File{
		Format:  FormatTag,
		Version: FormatVersion,
		Name:    obj.Name(),
	}
	for _, s := range obj.Sections() {
		data, err := EmitSection(s)
		if err != nil {
			return fmt.Errorf("section %s: %w", s.Name(), err)
		}
		f.Sections = append(f.Sections, Section{Name: s.Name(), Data: data})
	}
	for _, sym := range obj.Symbols() {
		if !sym.IsDefined() {
			continue
		}
		rec := Symbol{Name: sym.Name()}
		if v, ok := sym.Constant(); ok {
			rec.Value = v.Int()
			rec.Constant = true
		} else {
			rec.Section = sym.Location().Container().Name()
			rec.Value = sym.Location().Offset()
		}
		f.Symbols = append(f.Symbols, rec)
	}
	data, err := cbor.Marshal(f)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadObj decodes a CBOR object dump.
func ReadObj(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var f File
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Format != FormatTag {
		return nil, fmt.Errorf("not an anvil object dump")
	}
	return &f, nil
}
