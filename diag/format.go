package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Colors used for diagnostic formatting
var (
	colorError    = color.New(color.FgRed, color.Bold)
	colorWarning  = color.New(color.FgYellow, color.Bold)
	colorLocation = color.New(color.FgCyan)
)

// Formatter renders diagnostic records in a compiler-style
// "file:line: severity: message" form, optionally colored.
type Formatter struct {
	Filename string
	UseColor bool
}

// NewFormatter creates a formatter for the given filename.
func NewFormatter(filename string, useColor bool) *Formatter {
	return &Formatter{Filename: filename, UseColor: useColor}
}

// Format renders a single record.
func (f *Formatter) Format(r Record) string {
	loc := fmt.Sprintf("%s:%d:", f.Filename, r.Line)
	sev := r.Severity.String() + ":"
	if f.UseColor {
		loc = colorLocation.Sprint(loc)
		if r.Severity == Error {
			sev = colorError.Sprint(sev)
		} else {
			sev = colorWarning.Sprint(sev)
		}
	}
	return fmt.Sprintf("%s %s %s", loc, sev, r.Message)
}

// Print writes every record in the sink to w, one per line.
func (f *Formatter) Print(w io.Writer, sink *Sink) {
	for _, r := range sink.Records() {
		fmt.Fprintln(w, f.Format(r))
	}
}
