package share

import (
	"net/url"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	DefaultTemplate   = "%title% %permalink%"
	DefaultMaxLength  = 500
	DefaultVisibility = "public"

	// DefaultMaxUploadSize matches Mastodon's default image size limit.
	DefaultMaxUploadSize = "16MB"

	// MaxImages is the most media a Mastodon status accepts.
	MaxImages = 4
)

// ImageOptions selects which image sources the resolver uses.
type ImageOptions struct {
	Featured   bool
	Attached   bool
	Referenced bool
}

// Any reports whether at least one source is enabled.
func (o ImageOptions) Any() bool {
	return o.Featured || o.Attached || o.Referenced
}

// Options is the typed plugin configuration.
type Options struct {
	Instance    string
	AccessToken string
	PostTypes   []string
	Images      ImageOptions
	MaxImages   int

	StatusTemplate    string
	ContentWarning    bool
	CustomStatusField bool
	OptIn             bool
	MaxLength         int
	Visibility        string
	// MaxUploadBytes rejects larger images before upload. Zero disables the check.
	MaxUploadBytes uint64
}

// DefaultOptions returns options with every field at its default.
func DefaultOptions() Options {
	return Options{
		PostTypes:      []string{"post"},
		Images:         ImageOptions{Featured: true, Attached: true},
		MaxImages:      MaxImages,
		StatusTemplate: DefaultTemplate,
		MaxLength:      DefaultMaxLength,
		Visibility:     DefaultVisibility,
		MaxUploadBytes: 16 * humanize.MByte,
	}
}

// Validate checks that the instance and token are usable.
func (o Options) Validate() error {
	var missing []string
	if strings.TrimSpace(o.Instance) == "" {
		missing = append(missing, "instance")
	}
	if strings.TrimSpace(o.AccessToken) == "" {
		missing = append(missing, "access_token")
	}
	if len(missing) > 0 {
		return ConfigError{Fields: missing}
	}

	u, err := url.Parse(strings.TrimSpace(o.Instance))
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return ConfigError{Fields: []string{"instance"}, Reason: "instance must be an http(s) URL"}
	}
	return nil
}

// SupportsType reports whether sharing is enabled for the post type.
func (o Options) SupportsType(postType string) bool {
	return slices.Contains(o.PostTypes, postType)
}

func (o Options) imageLimit() int {
	switch {
	case o.MaxImages < 0:
		return 0
	case o.MaxImages > MaxImages:
		return MaxImages
	}
	return o.MaxImages
}

func (o Options) lengthLimit() int {
	if o.MaxLength <= 0 {
		return DefaultMaxLength
	}
	return o.MaxLength
}
