package share

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/blacktop/tootshare/internal/logutil"
	"github.com/dustin/go-humanize"
)

// Uploader turns a media library id into an uploaded media handle.
type Uploader struct {
	library  MediaLibrary
	remote   Remote
	maxBytes uint64
}

// NewUploader returns an uploader that reads from the library and posts to
// remote. Files over maxBytes are rejected; zero means no limit.
func NewUploader(library MediaLibrary, remote Remote, maxBytes uint64) *Uploader {
	return &Uploader{library: library, remote: remote, maxBytes: maxBytes}
}

// Upload sends one image and returns its media handle.
func (u *Uploader) Upload(ctx context.Context, ref ImageRef) (string, error) {
	file, err := u.Prepare(ctx, ref)
	if err != nil {
		return "", err
	}

	handle, err := u.remote.UploadMedia(ctx, file)
	if err != nil {
		return "", fmt.Errorf("upload media %d: %w", ref.ID, err)
	}
	if handle == "" {
		return "", fmt.Errorf("upload media %d: empty media id", ref.ID)
	}
	return handle, nil
}

// Prepare resolves the local file, MIME type and description for an image.
func (u *Uploader) Prepare(ctx context.Context, ref ImageRef) (MediaFile, error) {
	att, err := u.library.Attachment(ctx, ref.ID)
	if err != nil {
		return MediaFile{}, fmt.Errorf("attachment %d: %w", ref.ID, err)
	}

	path := localFile(att)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return MediaFile{}, ValidationError{Reason: fmt.Sprintf("image %d: file %q not found", ref.ID, path)}
		}
		return MediaFile{}, fmt.Errorf("stat image: %w", err)
	}
	if info.IsDir() {
		return MediaFile{}, ValidationError{Reason: fmt.Sprintf("image %d: %q is a directory", ref.ID, path)}
	}
	size := uint64(info.Size())
	if u.maxBytes > 0 && size > u.maxBytes {
		return MediaFile{}, ValidationError{Reason: fmt.Sprintf("image %d: %s exceeds the %s upload limit",
			ref.ID, humanize.Bytes(size), humanize.Bytes(u.maxBytes))}
	}

	mimeType, err := detectMimeType(path, att.MimeType)
	if err != nil {
		return MediaFile{}, err
	}

	logutil.Debugf("prepared media: id=%d path=%s type=%s size=%s", ref.ID, path, mimeType, humanize.Bytes(size))
	return MediaFile{
		Path:        path,
		MimeType:    mimeType,
		Description: strings.TrimSpace(ref.Alt),
	}, nil
}

// localFile prefers the large rendition when it lives on the same origin as
// the original and exists on disk.
func localFile(att Attachment) string {
	if att.Large != nil && att.Large.File != "" && sameOrigin(att.URL, att.Large.URL) {
		if _, err := os.Stat(att.Large.File); err == nil {
			return att.Large.File
		}
	}
	return att.File
}

func sameOrigin(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(ua.Scheme, ub.Scheme) && strings.EqualFold(ua.Host, ub.Host)
}

func detectMimeType(path, stored string) (string, error) {
	if stored != "" {
		return stored, nil
	}

	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t, nil
	}

	// fallback to content sniffing
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read image: %w", err)
	}
	detected := http.DetectContentType(head[:n])
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = detected[:i]
	}
	return detected, nil
}
