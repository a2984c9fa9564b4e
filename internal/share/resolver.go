package share

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/blacktop/tootshare/internal/logutil"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// resizedSuffix matches the suffix WordPress-style hosts add to generated
// renditions: -WxH, -scaled or -rotated right before the extension.
var resizedSuffix = regexp.MustCompile(`-(?:\d+x\d+|scaled|rotated)(\.[A-Za-z0-9]+)$`)

// HTMLImage is an <img> found in post content.
type HTMLImage struct {
	Src string
	Alt string
}

// Resolver builds the ordered, deduplicated list of images for a post.
type Resolver struct {
	library MediaLibrary
	hooks   Hooks
}

// NewResolver returns a resolver backed by the host media library.
func NewResolver(library MediaLibrary, hooks Hooks) *Resolver {
	return &Resolver{library: library, hooks: hooks}
}

// Resolve returns the post's candidate images: referenced images first, then
// the featured image, then attached images. Ids are unique and the first
// occurrence wins.
func (r *Resolver) Resolve(ctx context.Context, post Post, opts ImageOptions) ([]ImageRef, error) {
	if !opts.Any() {
		return []ImageRef{}, nil
	}

	// Always computed: it is the preferred alt text source for the other paths.
	referenced, err := r.referencedImages(ctx, post.Content)
	if err != nil {
		return nil, err
	}

	var images []ImageRef
	if opts.Referenced {
		images = append(images, referenced...)
	}

	if opts.Featured {
		id, err := r.library.FeaturedImageID(ctx, post.ID)
		if err != nil {
			return nil, fmt.Errorf("featured image: %w", err)
		}
		if id > 0 {
			alt, err := r.lookupAlt(ctx, id, referenced)
			if err != nil {
				return nil, err
			}
			images = append(images, ImageRef{ID: id, Alt: alt})
		}
	}

	if opts.Attached {
		ids, err := r.library.AttachedImageIDs(ctx, post.ID)
		if err != nil {
			return nil, fmt.Errorf("attached images: %w", err)
		}
		for _, id := range ids {
			alt, err := r.lookupAlt(ctx, id, referenced)
			if err != nil {
				return nil, err
			}
			images = append(images, ImageRef{ID: id, Alt: alt})
		}
	}

	return NormalizeImageRefs(r.hooks.images(post, DedupImageRefs(images))), nil
}

func (r *Resolver) referencedImages(ctx context.Context, content string) ([]ImageRef, error) {
	var refs []ImageRef
	for _, img := range ExtractImages(content) {
		original := OriginalImageURL(img.Src)
		id, err := r.library.AttachmentIDByURL(ctx, original)
		if err != nil {
			return nil, fmt.Errorf("lookup %q: %w", original, err)
		}
		if id <= 0 {
			logutil.Debugf("skipping unknown image: src=%s", img.Src)
			continue
		}
		refs = append(refs, ImageRef{ID: id, Alt: img.Alt})
	}
	return refs, nil
}

// lookupAlt prefers alt text from the content markup, then the library's
// stored alt text, then the caption.
func (r *Resolver) lookupAlt(ctx context.Context, id int64, referenced []ImageRef) (string, error) {
	for _, ref := range referenced {
		if ref.ID == id && strings.TrimSpace(ref.Alt) != "" {
			return ref.Alt, nil
		}
	}

	att, err := r.library.Attachment(ctx, id)
	if err != nil {
		return "", fmt.Errorf("attachment %d: %w", id, err)
	}
	if alt := strings.TrimSpace(att.Alt); alt != "" {
		return alt, nil
	}
	return strings.TrimSpace(PlainText(att.Caption)), nil
}

// ExtractImages returns every <img> with a non-empty src, in document order.
// The markup is wrapped in a root element so fragments parse cleanly.
func ExtractImages(content string) []HTMLImage {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	doc, err := html.Parse(strings.NewReader("<div>" + content + "</div>"))
	if err != nil {
		logutil.Debugf("parse content: %v", err)
		return nil
	}

	var images []HTMLImage
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			var img HTMLImage
			for _, attr := range n.Attr {
				switch attr.Key {
				case "src":
					img.Src = strings.TrimSpace(attr.Val)
				case "alt":
					img.Alt = attr.Val
				}
			}
			if img.Src != "" {
				images = append(images, img)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return images
}

// OriginalImageURL strips a resize suffix from the filename so that a
// rendition URL maps back to the uploaded original. Query and fragment are
// dropped.
func OriginalImageURL(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return resizedSuffix.ReplaceAllString(src, "$1")
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = resizedSuffix.ReplaceAllString(u.Path, "$1")
	u.RawPath = ""
	return u.String()
}
