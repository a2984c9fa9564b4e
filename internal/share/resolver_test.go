package share

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uploads = "https://blog.example/wp-content/uploads/2025/01/"

func resolverLibrary() *fakeLibrary {
	lib := newFakeLibrary()
	lib.add(Attachment{ID: 5, URL: uploads + "sunset.jpg", Alt: "stored sunset"})
	lib.add(Attachment{ID: 6, URL: uploads + "harbor.jpg", Alt: "", Caption: "<em>Harbor</em> at dawn"})
	lib.add(Attachment{ID: 7, URL: uploads + "bridge.jpg", Alt: "a bridge"})
	lib.add(Attachment{ID: 8, URL: uploads + "blank.jpg"})
	return lib
}

func TestResolveNoSourcesEnabled(t *testing.T) {
	lib := resolverLibrary()
	r := NewResolver(lib, Hooks{})

	got, err := r.Resolve(context.Background(), Post{ID: 1, Content: `<img src="` + uploads + `sunset.jpg">`}, ImageOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, lib.calls)
}

func TestResolveDedupPrefersEarlierAlt(t *testing.T) {
	lib := resolverLibrary()
	lib.featured[1] = 5
	lib.attached[1] = []int64{5, 6, 7}

	post := Post{
		ID:      1,
		Content: `<p>Intro</p><img src="` + uploads + `sunset-1024x768.jpg" alt="sunset from content"><img src="` + uploads + `bridge.jpg">`,
	}
	r := NewResolver(lib, Hooks{})

	got, err := r.Resolve(context.Background(), post, ImageOptions{Referenced: true, Featured: true, Attached: true})
	require.NoError(t, err)
	assert.Equal(t, []ImageRef{
		{ID: 5, Alt: "sunset from content"},
		{ID: 7, Alt: ""},
		{ID: 6, Alt: "Harbor at dawn"},
	}, got)
}

func TestResolveReferencedAltUsedWhenToggleOff(t *testing.T) {
	lib := resolverLibrary()
	lib.featured[1] = 5
	lib.attached[1] = []int64{7, 8}

	post := Post{
		ID:      1,
		Content: `<img src="` + uploads + `sunset-scaled.jpg" alt="content alt"><img src="` + uploads + `bridge.jpg" alt="">`,
	}
	r := NewResolver(lib, Hooks{})

	got, err := r.Resolve(context.Background(), post, ImageOptions{Featured: true, Attached: true})
	require.NoError(t, err)
	assert.Equal(t, []ImageRef{
		{ID: 5, Alt: "content alt"},
		{ID: 7, Alt: "a bridge"},
		{ID: 8, Alt: ""},
	}, got)
}

func TestResolveSkipsUnknownAndMalformed(t *testing.T) {
	lib := resolverLibrary()
	post := Post{
		ID: 1,
		Content: `<img src="https://cdn.example/elsewhere.jpg" alt="remote">` +
			`<img alt="no src"><img src="">` +
			`<img src="` + uploads + `harbor-rotated.jpg" alt="harbor"><p>unclosed <b>bold`,
	}
	r := NewResolver(lib, Hooks{})

	got, err := r.Resolve(context.Background(), post, ImageOptions{Referenced: true})
	require.NoError(t, err)
	assert.Equal(t, []ImageRef{{ID: 6, Alt: "harbor"}}, got)
}

func TestResolveImagesHookLegacyShape(t *testing.T) {
	lib := resolverLibrary()
	lib.featured[1] = 5

	var seen []ImageRef
	hooks := Hooks{
		Images: func(_ Post, images []ImageRef) []any {
			seen = images
			return []any{7, "5", map[string]any{"id": 6, "alt": "from hook"}, "nope", 7}
		},
	}
	r := NewResolver(lib, hooks)

	got, err := r.Resolve(context.Background(), Post{ID: 1}, ImageOptions{Featured: true})
	require.NoError(t, err)
	assert.Equal(t, []ImageRef{{ID: 5, Alt: "stored sunset"}}, seen)
	assert.Equal(t, []ImageRef{{ID: 7}, {ID: 5}, {ID: 6, Alt: "from hook"}}, got)
}

func TestExtractImages(t *testing.T) {
	content := `<figure><img src=" a.jpg " alt="A"></figure><IMG SRC="b.png"><img data-src="lazy.jpg">`

	got := ExtractImages(content)
	assert.Equal(t, []HTMLImage{{Src: "a.jpg", Alt: "A"}, {Src: "b.png"}}, got)
	assert.Nil(t, ExtractImages("  "))
}

func TestOriginalImageURL(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{uploads + "photo-1920x1080.jpg", uploads + "photo.jpg"},
		{uploads + "photo-scaled.jpeg", uploads + "photo.jpeg"},
		{uploads + "photo-rotated.png", uploads + "photo.png"},
		{uploads + "photo-150x150.webp?resize=1", uploads + "photo.webp"},
		{uploads + "photo.jpg", uploads + "photo.jpg"},
		{uploads + "my-photo-2.jpg", uploads + "my-photo-2.jpg"},
		{uploads + "photo-1920x1080-edited.jpg", uploads + "photo-1920x1080-edited.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, OriginalImageURL(tt.src))
		})
	}
}

func TestResizedURLResolvesToOriginalID(t *testing.T) {
	lib := resolverLibrary()
	r := NewResolver(lib, Hooks{})

	for _, suffix := range []string{"-1920x1080", "-scaled", "-rotated", ""} {
		post := Post{ID: 1, Content: `<img src="` + uploads + "sunset" + suffix + `.jpg">`}
		got, err := r.Resolve(context.Background(), post, ImageOptions{Referenced: true})
		require.NoError(t, err)
		require.Len(t, got, 1, suffix)
		assert.Equal(t, int64(5), got[0].ID, suffix)
	}
}
