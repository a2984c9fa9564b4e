package share

import "context"

// Post statuses the composer cares about.
const (
	StatusPublish = "publish"
	StatusDraft   = "draft"
)

// Post is a read-only view of a host post.
type Post struct {
	ID        int64
	Title     string
	Excerpt   string
	Content   string
	Permalink string
	Password  string
	Type      string
	Status    string
	Tags      []string

	// StatusTemplate is the per-post custom status text, if any.
	StatusTemplate string
	ContentWarning string

	// ShareEnabled is the stored per-post flag; nil means unset.
	ShareEnabled *bool

	// SupportsCustomFields reports whether the post type carries custom fields.
	SupportsCustomFields bool
}

// Transition describes a post status change.
type Transition struct {
	From string
	To   string
}

// ImageRef is one candidate image.
type ImageRef struct {
	ID  int64  `json:"id" yaml:"id"`
	Alt string `json:"alt" yaml:"alt"`
}

// Rendition is an alternate size of an attachment.
type Rendition struct {
	URL  string
	File string
}

// Attachment is a media library entry.
type Attachment struct {
	ID       int64
	URL      string
	File     string
	MimeType string
	Alt      string
	Caption  string
	Large    *Rendition
}

// ShareResult is the persisted outcome of sharing a post.
type ShareResult struct {
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

// MediaFile is a resolved local file ready for upload.
type MediaFile struct {
	Path        string
	MimeType    string
	Description string
}

// StatusRequest is the payload of the status create call.
type StatusRequest struct {
	Text        string
	MediaIDs    []string
	SpoilerText string
	Visibility  string
	// IdempotencyKey is sent as the Idempotency-Key header. The server
	// returns the existing status for a repeated key.
	IdempotencyKey string
}

// MediaLibrary is the host's media library.
type MediaLibrary interface {
	// AttachmentIDByURL returns 0 when the URL is unknown.
	AttachmentIDByURL(ctx context.Context, url string) (int64, error)
	// FeaturedImageID returns 0 when the post has none.
	FeaturedImageID(ctx context.Context, postID int64) (int64, error)
	AttachedImageIDs(ctx context.Context, postID int64) ([]int64, error)
	Attachment(ctx context.Context, id int64) (Attachment, error)
}

// MetaStore persists share results per post.
type MetaStore interface {
	ShareResult(ctx context.Context, postID int64) (ShareResult, error)
	SaveShareResult(ctx context.Context, postID int64, result ShareResult) error
}

// Remote abstracts the Mastodon-compatible API.
type Remote interface {
	UploadMedia(ctx context.Context, file MediaFile) (string, error)
	PostStatus(ctx context.Context, req StatusRequest) (string, error)
}
