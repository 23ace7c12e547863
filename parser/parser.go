// Package parser assembles a NASM-flavored source subset into an object:
// sections, labels, data definitions, replication, alignment/origin
// directives and the short/near branch family. The parser reports problems
// to a diagnostic sink and never stops at the first error.
package parser

import (
	"strings"

	"github.com/deepnoodle-ai/anvil/diag"
	"github.com/deepnoodle-ai/anvil/object"
)

// Option is a configuration function for a Parser.
type Option func(*Parser)

// WithFilename sets the name recorded on the produced object.
func WithFilename(filename string) Option {
	return func(p *Parser) {
		p.filename = filename
	}
}

// Parser builds an object from assembly source, one line at a time.
type Parser struct {
	obj      *object.Object
	sect     *object.Section
	sink     *diag.Sink
	filename string
	line     int
}

// Parse assembles the given source, reporting problems to sink. The
// returned object is complete but unoptimized; it is usable only if the
// sink holds no errors.
func Parse(source string, sink *diag.Sink, opts ...Option) *object.Object {
	p := &Parser{sink: sink, filename: "-"}
	for _, opt := range opts {
		opt(p)
	}
	p.obj = object.New(p.filename)
	for i, raw := range strings.Split(source, "\n") {
		p.line = i + 1
		p.parseLine(raw)
	}
	p.obj.Finalize(sink)
	return p.obj
}

// section returns the current section, creating a default .text section on
// first use.
func (p *Parser) section() *object.Section {
	if p.sect == nil {
		p.sect = p.obj.NewSection(".text")
	}
	return p.sect
}

func (p *Parser) errorf(format string, args ...any) {
	p.sink.Errorf(p.line, format, args...)
}

func (p *Parser) parseLine(raw string) {
	line := strings.TrimSpace(stripComment(raw))
	if line == "" {
		return
	}

	// Label definition, possibly followed by a statement on the same line.
	if name, rest, ok := splitLabel(line); ok {
		sym := p.obj.Symbol(name)
		loc := p.section().FreshLocation(p.line)
		if err := sym.DefineLabel(loc, p.line); err != nil {
			p.errorf("%s", err)
		}
		line = strings.TrimSpace(rest)
		if line == "" {
			return
		}
	}

	fields := strings.Fields(line)
	mnemonic := strings.ToLower(fields[0])
	rest := strings.TrimSpace(line[len(fields[0]):])

	// name equ expr
	if len(fields) >= 2 && strings.ToLower(fields[1]) == "equ" {
		p.parseEqu(fields[0], strings.TrimSpace(rest[len(fields[1]):]))
		return
	}

	switch mnemonic {
	case "section":
		p.parseSection(rest)
	case "org":
		p.parseOrg(rest)
	case "align":
		p.parseAlign(rest)
	case "times":
		p.parseTimes(rest)
	case "db":
		p.parseData(1, rest)
	case "dw":
		p.parseData(2, rest)
	case "dd":
		p.parseData(4, rest)
	case "resb":
		p.parseResb(rest)
	default:
		if spec, ok := branchOps[mnemonic]; ok {
			p.parseBranch(spec, rest)
			return
		}
		if code, ok := simpleOps[mnemonic]; ok {
			if rest != "" {
				p.errorf("%s takes no operands", mnemonic)
				return
			}
			p.section().AppendData(code, p.line)
			return
		}
		p.errorf("unknown mnemonic or directive `%s'", mnemonic)
	}
}

func (p *Parser) parseSection(rest string) {
	name := strings.TrimSpace(rest)
	if name == "" {
		p.errorf("section requires a name")
		return
	}
	if s := p.obj.FindSection(name); s != nil {
		p.sect = s
		return
	}
	p.sect = p.obj.NewSection(name)
}

func (p *Parser) parseEqu(name, rest string) {
	e, err := p.parseExpr(rest)
	if err != nil {
		p.errorf("equ: %s", err)
		return
	}
	v, ok := p.constValue(e)
	if !ok {
		p.errorf("equ value must be a constant")
		return
	}
	if err := p.obj.Symbol(name).DefineConstant(object.NewIntNum(v), p.line); err != nil {
		p.errorf("%s", err)
	}
}

func (p *Parser) parseOrg(rest string) {
	v, ok := p.parseConst(rest, "org")
	if !ok {
		return
	}
	if v < 0 {
		p.errorf("org offset must not be negative")
		return
	}
	p.section().AppendBytecode(object.NewOrg(v, 0), p.line)
}

func (p *Parser) parseAlign(rest string) {
	args := splitOperands(rest)
	if len(args) == 0 || len(args) > 2 {
		p.errorf("align requires a boundary and an optional fill byte")
		return
	}
	boundary, ok := p.parseConst(args[0], "align")
	if !ok {
		return
	}
	if boundary <= 0 || boundary&(boundary-1) != 0 {
		p.errorf("align boundary must be a power of two")
		return
	}
	fill := byte(0)
	if len(args) == 2 {
		v, ok := p.parseConst(args[1], "align")
		if !ok {
			return
		}
		fill = byte(v)
	}
	p.section().AppendBytecode(object.NewAlign(boundary, fill), p.line)
}

// parseTimes parses "times <count-expr> <data statement>". The count may
// reference labels; the replicated statement must produce fixed bytes.
func (p *Parser) parseTimes(rest string) {
	ep := &exprParser{s: rest, p: p}
	count, err := ep.parse()
	if err != nil {
		p.errorf("times: %s", err)
		return
	}
	stmt := strings.TrimSpace(ep.rest())
	if stmt == "" {
		p.errorf("times requires a statement to repeat")
		return
	}
	unit, ok := p.parseUnit(stmt)
	if !ok {
		return
	}
	p.section().AppendBytecode(object.NewTimes(count, unit), p.line)
}

// parseUnit assembles the repeated statement of a times directive into its
// fixed bytes.
func (p *Parser) parseUnit(stmt string) ([]byte, bool) {
	fields := strings.Fields(stmt)
	mnemonic := strings.ToLower(fields[0])
	rest := strings.TrimSpace(stmt[len(fields[0]):])

	if code, ok := simpleOps[mnemonic]; ok {
		if rest != "" {
			p.errorf("%s takes no operands", mnemonic)
			return nil, false
		}
		return code, true
	}

	var size int
	switch mnemonic {
	case "db":
		size = 1
	case "dw":
		size = 2
	case "dd":
		size = 4
	default:
		p.errorf("cannot repeat `%s' with times", mnemonic)
		return nil, false
	}

	var unit []byte
	for _, op := range splitOperands(rest) {
		if size == 1 && isStringLiteral(op) {
			s, err := unquote(op)
			if err != nil {
				p.errorf("%s", err)
				return nil, false
			}
			unit = append(unit, s...)
			continue
		}
		v, ok := p.parseConst(op, "times data")
		if !ok {
			return nil, false
		}
		unit = append(unit, encodeLE(v, size)...)
	}
	if len(unit) == 0 {
		p.errorf("times data is empty")
		return nil, false
	}
	return unit, true
}

func (p *Parser) parseData(size int, rest string) {
	ops := splitOperands(rest)
	if len(ops) == 0 {
		p.errorf("data directive requires at least one operand")
		return
	}
	sect := p.section()
	for _, op := range ops {
		if size == 1 && isStringLiteral(op) {
			s, err := unquote(op)
			if err != nil {
				p.errorf("%s", err)
				continue
			}
			sect.AppendData([]byte(s), p.line)
			continue
		}
		e, err := p.parseExpr(op)
		if err != nil {
			p.errorf("%s", err)
			continue
		}
		if v, ok := p.constValue(e); ok {
			sect.AppendData(encodeLE(v, size), p.line)
			continue
		}
		// Symbolic data becomes a fixup resolved at emit time.
		sect.AppendFixup(size, object.NewValue(e), p.line)
	}
}

func (p *Parser) parseResb(rest string) {
	v, ok := p.parseConst(rest, "resb")
	if !ok {
		return
	}
	if v < 0 {
		p.errorf("resb size must not be negative")
		return
	}
	p.section().AppendBytecode(object.NewGap(v), p.line)
}

func (p *Parser) parseBranch(spec branchSpec, rest string) {
	if strings.TrimSpace(rest) == "" {
		p.errorf("branch requires a target")
		return
	}
	target, err := p.parseExpr(rest)
	if err != nil {
		p.errorf("%s", err)
		return
	}
	p.section().AppendBytecode(object.NewBranch(spec.short, spec.near, target), p.line)
}

// parseExpr parses a complete operand as an expression.
func (p *Parser) parseExpr(s string) (*object.Expr, error) {
	ep := &exprParser{s: s, p: p}
	e, err := ep.parse()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(ep.rest()) != "" {
		return nil, errTrailing(ep.rest())
	}
	return e, nil
}

// parseConst parses an operand that must reduce to a constant.
func (p *Parser) parseConst(s, what string) (int64, bool) {
	e, err := p.parseExpr(s)
	if err != nil {
		p.errorf("%s: %s", what, err)
		return 0, false
	}
	v, ok := p.constValue(e)
	if !ok {
		p.errorf("%s value must be a constant", what)
		return 0, false
	}
	return v, true
}

func (p *Parser) constValue(e *object.Expr) (int64, bool) {
	if e.ContainsLayoutRef() {
		return 0, false
	}
	return e.Eval(nil)
}
