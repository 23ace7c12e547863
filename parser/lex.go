package parser

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// stripComment removes a trailing ; comment, ignoring semicolons inside
// quoted strings.
func stripComment(line string) string {
	inQuote := byte(0)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			}
		case c == '\'' || c == '"':
			inQuote = c
		case c == ';':
			return line[:i]
		}
	}
	return line
}

// splitLabel recognizes a leading "name:" label definition and returns the
// name and the remainder of the line.
func splitLabel(line string) (name, rest string, ok bool) {
	if len(line) == 0 || !isIdentStart(line[0]) {
		return "", "", false
	}
	i := 0
	for i < len(line) && isIdentChar(line[i]) {
		i++
	}
	if i >= len(line) || line[i] != ':' {
		return "", "", false
	}
	return line[:i], line[i+1:], true
}

// splitOperands splits a comma-separated operand list, ignoring commas
// inside quoted strings.
func splitOperands(s string) []string {
	var out []string
	start := 0
	inQuote := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			}
		case c == '\'' || c == '"':
			inQuote = c
		case c == ',':
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

func isStringLiteral(s string) bool {
	return len(s) >= 2 &&
		((s[0] == '"' && s[len(s)-1] == '"') ||
			(s[0] == '\'' && s[len(s)-1] == '\'' && len(s) != 3))
}

func unquote(s string) (string, error) {
	if len(s) < 2 || s[0] != s[len(s)-1] {
		return "", fmt.Errorf("malformed string literal %s", s)
	}
	return s[1 : len(s)-1], nil
}

func encodeLE(v int64, size int) []byte {
	switch size {
	case 1:
		return []byte{byte(v)}
	case 2:
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(v))
		return buf[:]
	default:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(v))
		return buf[:]
	}
}
