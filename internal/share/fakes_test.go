package share

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type fakeLibrary struct {
	byURL       map[string]int64
	featured    map[int64]int64
	attached    map[int64][]int64
	attachments map[int64]Attachment
	calls       int
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{
		byURL:       map[string]int64{},
		featured:    map[int64]int64{},
		attached:    map[int64][]int64{},
		attachments: map[int64]Attachment{},
	}
}

func (f *fakeLibrary) add(att Attachment) {
	f.attachments[att.ID] = att
	f.byURL[att.URL] = att.ID
}

func (f *fakeLibrary) AttachmentIDByURL(_ context.Context, url string) (int64, error) {
	f.calls++
	return f.byURL[url], nil
}

func (f *fakeLibrary) FeaturedImageID(_ context.Context, postID int64) (int64, error) {
	f.calls++
	return f.featured[postID], nil
}

func (f *fakeLibrary) AttachedImageIDs(_ context.Context, postID int64) ([]int64, error) {
	f.calls++
	return f.attached[postID], nil
}

func (f *fakeLibrary) Attachment(_ context.Context, id int64) (Attachment, error) {
	f.calls++
	att, ok := f.attachments[id]
	if !ok {
		return Attachment{}, fmt.Errorf("attachment %d not found", id)
	}
	return att, nil
}

type fakeMeta struct {
	results map[int64]ShareResult
	saves   int
}

func newFakeMeta() *fakeMeta {
	return &fakeMeta{results: map[int64]ShareResult{}}
}

func (f *fakeMeta) ShareResult(_ context.Context, postID int64) (ShareResult, error) {
	return f.results[postID], nil
}

func (f *fakeMeta) SaveShareResult(_ context.Context, postID int64, result ShareResult) error {
	f.saves++
	f.results[postID] = result
	return nil
}

type fakeRemote struct {
	failUploads map[string]bool
	statusURL   string
	statusErr   error

	uploads  []MediaFile
	statuses []StatusRequest
}

func (f *fakeRemote) UploadMedia(_ context.Context, file MediaFile) (string, error) {
	f.uploads = append(f.uploads, file)
	if f.failUploads[filepath.Base(file.Path)] {
		return "", RemoteError{Endpoint: "/api/v1/media", StatusCode: 500, Body: "boom"}
	}
	return fmt.Sprintf("m%d", len(f.uploads)), nil
}

func (f *fakeRemote) PostStatus(_ context.Context, req StatusRequest) (string, error) {
	f.statuses = append(f.statuses, req)
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return f.statusURL, nil
}

func (f *fakeRemote) calls() int {
	return len(f.uploads) + len(f.statuses)
}

var errTransport = errors.New("connection reset")

// writeImage creates a small file under dir and returns its path.
func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("\x89PNG\r\n\x1a\nfake"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}
