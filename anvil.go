// Package anvil assembles NASM-flavored source into laid-out objects. The
// heart of the package is the span optimizer, which decides the final
// encoded length of every length-variable bytecode (short vs. near
// branches, alignment padding, replication counts) and resolves the
// resulting ripple effects on all symbol addresses.
package anvil

import (
	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/anvil/diag"
	"github.com/deepnoodle-ai/anvil/object"
	"github.com/deepnoodle-ai/anvil/optimizer"
	"github.com/deepnoodle-ai/anvil/parser"
)

// Option configures an assembly run.
type Option func(*options)

type options struct {
	filename string
	sink     *diag.Sink
	logger   zerolog.Logger
}

func collectOptions(opts ...Option) *options {
	o := &options{
		filename: "-",
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.sink == nil {
		o.sink = diag.NewSink()
	}
	return o
}

// WithFilename sets the filename used in diagnostics and the object name.
func WithFilename(filename string) Option {
	return func(o *options) {
		o.filename = filename
	}
}

// WithSink supplies the diagnostic sink to report into. Useful when the
// caller wants the individual records rather than a combined error.
func WithSink(sink *diag.Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithLogger sets the logger passed to the optimizer for per-run
// statistics. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Parse assembles source into an unoptimized object. The object is usable
// only if the returned error is nil.
func Parse(source string, opts ...Option) (*object.Object, error) {
	o := collectOptions(opts...)
	obj := parser.Parse(source, o.sink, parser.WithFilename(o.filename))
	return obj, o.sink.Err()
}

// Assemble parses source and runs the optimizer, producing an object with
// final bytecode offsets and lengths. It is equivalent to Parse followed by
// optimizer.Optimize.
func Assemble(source string, opts ...Option) (*object.Object, error) {
	o := collectOptions(opts...)
	obj := parser.Parse(source, o.sink, parser.WithFilename(o.filename))
	if o.sink.HasErrors() {
		return nil, o.sink.Err()
	}
	optimizer.Optimize(obj, o.sink, optimizer.WithLogger(o.logger))
	if o.sink.HasErrors() {
		return nil, o.sink.Err()
	}
	return obj, nil
}
