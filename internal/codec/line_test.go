package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"plain", "a,b,c", []string{"a", "b", "c"}},
		{"quoted comma", `a,"b,c",d`, []string{"a", "b,c", "d"}},
		{"trailing empty field", "a,b,", []string{"a", "b", ""}},
		{"crlf stripped", "a,b\r\n", []string{"a", "b"}},
		{"doubled quotes are not an escape", `"say ""hi""",x`, []string{"say hi", "x"}},
		{"empty line", "", []string{""}},
		{"quote mid field", `Bonaire, "Sint Eustatius",x`, []string{"Bonaire", " Sint Eustatius", "x"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseLine(tc.line))
		})
	}
}

func TestSplitLines_DropsBlank(t *testing.T) {
	got := splitLines([]byte("h1,h2\r\n\na,b\n\r\n"))
	assert.Equal(t, []string{"h1,h2\r", "a,b"}, got)
}
