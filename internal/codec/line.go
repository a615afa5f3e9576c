// Package codec reads and writes the on-disk formats that feed a dataset: the
// quoted-CSV region and matrix files, and the compact binary case file.
package codec

import "strings"

// ParseLine splits one CSV line into fields. A double quote toggles quoted
// mode and is dropped; commas inside quotes are kept. Carriage returns and
// newlines are removed wherever they appear. The field count is not checked
// and a trailing comma yields a trailing empty field.
func ParseLine(line string) []string {
	var (
		fields  []string
		val     strings.Builder
		inQuote bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\r' || c == '\n':
		case c == '"':
			inQuote = !inQuote
		case c == ',' && !inQuote:
			fields = append(fields, val.String())
			val.Reset()
		default:
			val.WriteByte(c)
		}
	}
	return append(fields, val.String())
}

// splitLines breaks text on '\n' and drops empty lines.
func splitLines(data []byte) []string {
	raw := strings.Split(string(data), "\n")
	lines := raw[:0]
	for _, l := range raw {
		if strings.TrimRight(l, "\r") != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
