// Package diag collects assembler diagnostics. Components report errors and
// warnings with source line numbers into a Sink; phases of the optimizer
// check the running error count at their boundaries.
package diag

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Severity classifies a diagnostic record.
type Severity int

const (
	Warning Severity = iota
	Error
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Record is one diagnostic: a severity, a source line and a message.
type Record struct {
	Line     int
	Severity Severity
	Message  string
}

// Sink accumulates diagnostic records and a running error count.
type Sink struct {
	records []Record
	errors  int
}

// NewSink creates an empty sink.
func NewSink() *Sink {
	return &Sink{}
}

// Errorf records an error at the given line.
func (s *Sink) Errorf(line int, format string, args ...any) {
	s.records = append(s.records, Record{
		Line:     line,
		Severity: Error,
		Message:  fmt.Sprintf(format, args...),
	})
	s.errors++
}

// Warningf records a warning at the given line.
func (s *Sink) Warningf(line int, format string, args ...any) {
	s.records = append(s.records, Record{
		Line:     line,
		Severity: Warning,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Records returns all records in the order they were reported.
func (s *Sink) Records() []Record {
	return s.records
}

// ErrorCount returns the number of error-severity records.
func (s *Sink) ErrorCount() int {
	return s.errors
}

// HasErrors returns true if any error was recorded.
func (s *Sink) HasErrors() bool {
	return s.errors > 0
}

// Err returns all error-severity records combined into a single error, or
// nil if none were recorded.
func (s *Sink) Err() error {
	var result *multierror.Error
	for _, r := range s.records {
		if r.Severity != Error {
			continue
		}
		result = multierror.Append(result, fmt.Errorf("line %d: %s", r.Line, r.Message))
	}
	return result.ErrorOrNil()
}
