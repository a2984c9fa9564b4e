package share

// Hooks are optional extension points applied during a run. Nil fields are
// skipped.
type Hooks struct {
	// StatusText may replace the rendered status before length handling.
	StatusText func(text string, post Post) string

	// Images may rewrite the resolved image list. It may return ImageRef
	// values, {"id", "alt"} maps, or the legacy flat list of ids.
	Images func(post Post, images []ImageRef) []any

	// Enabled may override whether the post is shared.
	Enabled func(enabled bool, post Post) bool
}

func (h Hooks) statusText(text string, post Post) string {
	if h.StatusText == nil {
		return text
	}
	return h.StatusText(text, post)
}

func (h Hooks) images(post Post, images []ImageRef) []any {
	if h.Images == nil {
		out := make([]any, len(images))
		for i, img := range images {
			out[i] = img
		}
		return out
	}
	return h.Images(post, images)
}

func (h Hooks) enabled(enabled bool, post Post) bool {
	if h.Enabled == nil {
		return enabled
	}
	return h.Enabled(enabled, post)
}
