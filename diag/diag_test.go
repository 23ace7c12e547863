package diag

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSinkCounts(t *testing.T) {
	sink := NewSink()
	require.False(t, sink.HasErrors())
	require.Nil(t, sink.Err())

	sink.Warningf(3, "suspicious %s", "thing")
	require.False(t, sink.HasErrors())
	require.Equal(t, 0, sink.ErrorCount())

	sink.Errorf(5, "bad %s", "thing")
	sink.Errorf(9, "worse thing")
	require.True(t, sink.HasErrors())
	require.Equal(t, 2, sink.ErrorCount())
	require.Len(t, sink.Records(), 3)
}

func TestErrAggregatesErrorsOnly(t *testing.T) {
	sink := NewSink()
	sink.Warningf(1, "just a warning")
	sink.Errorf(2, "first")
	sink.Errorf(4, "second")

	err := sink.Err()
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2: first")
	require.Contains(t, err.Error(), "line 4: second")
	require.NotContains(t, err.Error(), "warning")
}

func TestFormatter(t *testing.T) {
	f := NewFormatter("prog.asm", false)
	got := f.Format(Record{Line: 12, Severity: Error, Message: "boom"})
	require.Equal(t, "prog.asm:12: error: boom", got)

	got = f.Format(Record{Line: 3, Severity: Warning, Message: "hmm"})
	require.Equal(t, "prog.asm:3: warning: hmm", got)
}

func TestFormatterPrint(t *testing.T) {
	sink := NewSink()
	sink.Errorf(1, "one")
	sink.Warningf(2, "two")

	var buf bytes.Buffer
	NewFormatter("x.asm", false).Print(&buf, sink)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "x.asm:1: error: one", lines[0])
	require.Equal(t, "x.asm:2: warning: two", lines[1])
}
