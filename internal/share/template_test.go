package share

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	post := Post{
		Title:     "Hello <em>World</em> &amp; more",
		Excerpt:   "<p>A short\n excerpt.</p>",
		Permalink: "https://blog.example/hello ",
		Tags:      []string{"go", "open source", "c++"},
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "all placeholders",
			template: "%title%\n\n%excerpt%\n\n%tags% %permalink%",
			want:     "Hello World & more\n\nA short excerpt.\n\n#go #OpenSource #c https://blog.example/hello",
		},
		{
			name:     "unknown placeholders are kept",
			template: "%title% %author% %permalink%",
			want:     "Hello World & more %author% https://blog.example/hello",
		},
		{
			name:     "empty template uses default",
			template: "",
			want:     "Hello World & more https://blog.example/hello",
		},
		{
			name:     "blank template uses default",
			template: "   ",
			want:     "Hello World & more https://blog.example/hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.template, post))
		})
	}
}

func TestRenderFallbackMatchesDefault(t *testing.T) {
	post := Post{Title: "Title", Permalink: "https://blog.example/p/1"}
	assert.Equal(t, Render("%title% %permalink%", post), Render("", post))
}

func TestRenderEmptyPost(t *testing.T) {
	assert.Equal(t, "", Render("%title% %excerpt%", Post{}))
}

func TestExcerptFallsBackToContent(t *testing.T) {
	words := make([]string, 60)
	for i := range words {
		words[i] = "word"
	}
	post := Post{Content: "<p>" + strings.Join(words, " ") + "</p>"}

	got := Render("%excerpt%", post)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Len(t, strings.Fields(strings.TrimSuffix(got, "…")), excerptWords)

	short := Post{Content: "<p>only <b>three</b> words</p>"}
	assert.Equal(t, "only three words", Render("%excerpt%", short))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		permalink string
		limit     int
		want      string
	}{
		{
			name:  "short text untouched",
			text:  "hello world",
			limit: 20,
			want:  "hello world",
		},
		{
			name:  "cuts on word boundary",
			text:  "hello wonderful world",
			limit: 12,
			want:  "hello…",
		},
		{
			name:      "keeps trailing permalink",
			text:      "aaaa bbbb cccc dddd https://x.io/p",
			permalink: "https://x.io/p",
			limit:     25,
			want:      "aaaa bbbb… https://x.io/p",
		},
		{
			name:      "permalink too long to keep",
			text:      "title https://example.com/a/very/long/permalink",
			permalink: "https://example.com/a/very/long/permalink",
			limit:     10,
			want:      "title…",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.text, tt.permalink, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), tt.limit)
		})
	}
}
