package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Please SEND me", "please send me"},
		{"drops digits and punctuation", "Call me at 5pm, OK?", "call me at pm ok"},
		{"collapses whitespace", "  one\t\ttwo\n\nthree  ", "one two three"},
		{"drops non ascii letters", "café résumé", "caf rsum"},
		{"empty", "", ""},
		{"only symbols", "!!! 123 ???", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.in))
		})
	}
}

func TestCleanMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "header passes run one name at a time",
			in:   "To: x From: y\nhello",
			want: "to x hello",
		},
		{
			name: "signature removed",
			in:   "Thanks for the update.\n-- \nJane Doe\nSenior Manager\n",
			want: "thanks for the update",
		},
		{
			name: "forward headers removed",
			in:   "See below.\nFrom: Bob\nSent: Monday\nTo: Jane\nSubject: Budget\nNumbers attached.\n",
			want: "see below numbers attached",
		},
		{
			name: "urls removed",
			in:   "Docs at https://example.com/a?b=1 and www.example.org/x today",
			want: "docs at and today",
		},
		{
			name: "addresses removed",
			in:   "Ping bob@example.com about it",
			want: "ping about it",
		},
		{
			name: "html flattened",
			in:   "<html><head><style>p{color:red}</style></head><body><p>Hello</p><p>World</p><script>var x;</script></body></html>",
			want: "hello world",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanMessage(tt.in))
		})
	}
}

func TestTokenizeNeverYieldsEmptyTokens(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Tokenize("  a   b "))
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("   "))
}

func TestHTMLToText(t *testing.T) {
	got := HTMLToText("<div>one<span>two</span></div><p>three</p>")
	assert.Equal(t, "one two three", got)
}
