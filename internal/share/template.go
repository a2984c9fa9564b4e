package share

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const excerptWords = 55

var stripPolicy = bluemonday.StrictPolicy()

// Render expands the status template against the post. Recognized
// placeholders are %title%, %excerpt%, %tags% and %permalink%; anything else
// is left as is. An empty template renders as DefaultTemplate.
func Render(template string, post Post) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}

	r := strings.NewReplacer(
		"%title%", PlainText(post.Title),
		"%excerpt%", excerpt(post),
		"%tags%", hashtags(post.Tags),
		"%permalink%", strings.TrimSpace(post.Permalink),
	)
	return strings.TrimSpace(r.Replace(template))
}

// PlainText strips markup and entities and collapses whitespace.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	text := html.UnescapeString(stripPolicy.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}

func excerpt(post Post) string {
	if text := PlainText(post.Excerpt); text != "" {
		return text
	}
	words := strings.Fields(PlainText(post.Content))
	if len(words) <= excerptWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:excerptWords], " ") + "…"
}

func hashtags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if h := hashtag(tag); h != "" {
			out = append(out, "#"+h)
		}
	}
	return strings.Join(out, " ")
}

// hashtag camel-cases multi-word tags and drops anything that cannot appear
// in a Mastodon hashtag.
func hashtag(tag string) string {
	words := strings.FieldsFunc(PlainText(tag), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	if len(words) == 1 {
		return words[0]
	}

	var b strings.Builder
	for _, w := range words {
		first, size := utf8.DecodeRuneInString(w)
		b.WriteRune(unicode.ToUpper(first))
		b.WriteString(w[size:])
	}
	return b.String()
}

// truncate shortens text to at most limit runes, cutting on a word boundary
// and appending an ellipsis. A trailing permalink is kept whole.
func truncate(text, permalink string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	suffix := ""
	permalink = strings.TrimSpace(permalink)
	if permalink != "" && strings.HasSuffix(text, permalink) && utf8.RuneCountInString(permalink)+2 < limit {
		suffix = " " + permalink
		text = strings.TrimSpace(strings.TrimSuffix(text, permalink))
	}

	budget := limit - utf8.RuneCountInString(suffix) - 1
	runes := []rune(text)
	if len(runes) <= budget {
		return text + suffix
	}
	cut := string(runes[:budget])
	if !unicode.IsSpace(runes[budget]) {
		if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimRightFunc(cut, unicode.IsSpace) + "…" + suffix
}
