package mastodon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/blacktop/tootshare/internal/logutil"
	"github.com/blacktop/tootshare/internal/share"
	mastodonapi "github.com/mattn/go-mastodon"
)

const (
	mediaEndpoint  = "/api/v1/media"
	statusEndpoint = "/api/v1/statuses"

	providerName   = "mastodon"
	userAgent      = "tootshare/1"
	requestTimeout = 30 * time.Second
	uploadTimeout  = 20 * time.Second

	maxResponseBytes = 1 << 20
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Config contains the settings needed to reach a Mastodon server.
type Config struct {
	Server      string
	AccessToken string
}

// Client implements share.Remote against a Mastodon-compatible server.
type Client struct {
	client     *mastodonapi.Client
	httpClient *http.Client
	server     string
	token      string
}

var _ share.Remote = (*Client)(nil)

// New constructs a Mastodon client.
func New(cfg Config) (*Client, error) {
	server := strings.TrimRight(strings.TrimSpace(cfg.Server), "/")
	token := strings.TrimSpace(cfg.AccessToken)

	var missing []string
	if server == "" {
		missing = append(missing, "instance")
	}
	if token == "" {
		missing = append(missing, "access_token")
	}
	if len(missing) > 0 {
		return nil, share.ConfigError{Fields: missing}
	}

	mastodonClient := mastodonapi.NewClient(&mastodonapi.Config{
		Server:      server,
		AccessToken: token,
	})
	mastodonClient.Timeout = requestTimeout
	mastodonClient.UserAgent = userAgent
	mastodonClient.Transport = &captureTransport{base: http.DefaultTransport}

	return &Client{
		client:     mastodonClient,
		httpClient: &http.Client{Timeout: uploadTimeout},
		server:     server,
		token:      token,
	}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return providerName }

// PostStatus creates a status and returns its public URL.
func (c *Client) PostStatus(ctx context.Context, req share.StatusRequest) (string, error) {
	mediaIDs := make([]mastodonapi.ID, 0, len(req.MediaIDs))
	for _, id := range req.MediaIDs {
		mediaIDs = append(mediaIDs, mastodonapi.ID(id))
	}

	call := &capturedCall{idempotencyKey: req.IdempotencyKey}
	status, err := c.client.PostStatus(withCapture(ctx, call), &mastodonapi.Toot{
		Status:      req.Text,
		MediaIDs:    mediaIDs,
		SpoilerText: req.SpoilerText,
		Visibility:  req.Visibility,
	})
	if err != nil {
		if call.statusCode != 0 {
			return "", fmt.Errorf("post status: %w", share.RemoteError{
				Endpoint:   statusEndpoint,
				StatusCode: call.statusCode,
				Body:       call.body,
			})
		}
		return "", fmt.Errorf("post status: %w", err)
	}
	if status == nil {
		return "", fmt.Errorf("post status: empty response")
	}

	return status.URL, nil
}

// UploadMedia sends one file to the media endpoint and returns its id.
func (c *Client) UploadMedia(ctx context.Context, file share.MediaFile) (string, error) {
	body, contentType, err := mediaBody(file)
	if err != nil {
		return "", err
	}

	endpoint, err := c.endpoint(mediaEndpoint)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", share.RemoteError{Endpoint: mediaEndpoint, StatusCode: resp.StatusCode, Body: string(data)}
	}

	var attachment mastodonapi.Attachment
	if err := json.Unmarshal(data, &attachment); err != nil {
		logutil.DebugResponse("media upload", string(data))
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if attachment.ID == "" {
		logutil.DebugResponse("media upload", string(data))
		return "", fmt.Errorf("upload media: response has no id")
	}

	return string(attachment.ID), nil
}

func (c *Client) endpoint(p string) (string, error) {
	u, err := url.Parse(c.server)
	if err != nil {
		return "", share.ConfigError{Fields: []string{"instance"}, Reason: err.Error()}
	}
	u.Path = path.Join(u.Path, p)
	return u.String(), nil
}

func mediaBody(file share.MediaFile) (io.Reader, string, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", share.ValidationError{Reason: fmt.Sprintf("image %q not found", file.Path)}
		}
		return nil, "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	if file.Description != "" {
		if err := w.WriteField("description", file.Description); err != nil {
			return nil, "", fmt.Errorf("write description: %w", err)
		}
	}

	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filepath.Base(file.Path))))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}

	return buf, w.FormDataContentType(), nil
}
