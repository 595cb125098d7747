package markup

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestEscapeForMarkdown(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{src: "plain text", want: "plain text"},
		{src: "v1.2 - beta!", want: "v1\\.2 \\- beta\\!"},
		{src: "a_b*c", want: "a\\_b\\*c"},
		{src: "(see [docs])", want: "\\(see \\[docs\\]\\)"},
		{src: "C:\\path", want: "C:\\\\path"},
		{src: "Привет", want: "Привет"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapeForMarkdown(tt.src))
		})
	}
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "*Go 1\\.24*", Bold("Go 1.24"))
	assert.Equal(t, "_5 мин\\._", Italic("5 мин."))
	assert.Equal(t, "`a\\`b`", Code("a`b"))
	assert.Equal(t, "[Go \\(blog\\)](https://go.dev/wiki/A_(b\\))", Link("Go (blog)", "https://go.dev/wiki/A_(b)"))
}
