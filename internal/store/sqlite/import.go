package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blacktop/tootshare/internal/share"
)

// Document is the YAML import format.
type Document struct {
	Posts []PostDoc  `yaml:"posts"`
	Media []MediaDoc `yaml:"media"`
}

// PostDoc describes one post.
type PostDoc struct {
	ID             int64    `yaml:"id"`
	Title          string   `yaml:"title"`
	Excerpt        string   `yaml:"excerpt"`
	Content        string   `yaml:"content"`
	Permalink      string   `yaml:"permalink"`
	Password       string   `yaml:"password"`
	Type           string   `yaml:"type"`
	Status         string   `yaml:"status"`
	Tags           []string `yaml:"tags"`
	StatusTemplate string   `yaml:"status_template"`
	ContentWarning string   `yaml:"content_warning"`
	CustomFields   *bool    `yaml:"custom_fields"`
	Featured       int64    `yaml:"featured"`
	Share          *bool    `yaml:"share"`
}

// MediaDoc describes one media library entry. Relative file paths are
// resolved against the directory of the imported file.
type MediaDoc struct {
	ID          int64  `yaml:"id"`
	Parent      int64  `yaml:"parent"`
	Order       int    `yaml:"order"`
	URL         string `yaml:"url"`
	OriginalURL string `yaml:"original_url"`
	File        string `yaml:"file"`
	MimeType    string `yaml:"mime_type"`
	Alt         string `yaml:"alt"`
	Caption     string `yaml:"caption"`
	Large       *struct {
		URL  string `yaml:"url"`
		File string `yaml:"file"`
	} `yaml:"large"`
}

// ImportStats counts imported rows.
type ImportStats struct {
	Posts int
	Media int
}

// Import reads a YAML document and upserts its posts and media in one
// transaction. Any invalid entry leaves the store unchanged.
func (s *Store) Import(ctx context.Context, r io.Reader, baseDir string) (ImportStats, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return ImportStats{}, nil
		}
		return ImportStats{}, fmt.Errorf("decode import: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportStats{}, fmt.Errorf("import: begin: %w", err)
	}
	defer tx.Rollback()

	var stats ImportStats
	for i, m := range doc.Media {
		if m.ID <= 0 || m.URL == "" {
			return ImportStats{}, fmt.Errorf("media[%d]: id and url are required", i)
		}
		file := resolvePath(baseDir, m.File)
		mimeType := strings.TrimSpace(m.MimeType)
		if mimeType == "" {
			mimeType = inferMimeType(file, m.URL)
		}
		rec := MediaRecord{
			Attachment: share.Attachment{
				ID:       m.ID,
				URL:      m.URL,
				File:     file,
				MimeType: mimeType,
				Alt:      m.Alt,
				Caption:  m.Caption,
			},
			ParentID:    m.Parent,
			MenuOrder:   m.Order,
			OriginalURL: m.OriginalURL,
		}
		if m.Large != nil {
			rec.Large = &share.Rendition{URL: m.Large.URL, File: resolvePath(baseDir, m.Large.File)}
		}
		if err := s.saveAttachment(ctx, tx, rec); err != nil {
			return ImportStats{}, err
		}
		stats.Media++
	}

	for i, p := range doc.Posts {
		if p.ID <= 0 {
			return ImportStats{}, fmt.Errorf("posts[%d]: id is required", i)
		}
		customFields := true
		if p.CustomFields != nil {
			customFields = *p.CustomFields
		}
		rec := PostRecord{
			Post: share.Post{
				ID:                   p.ID,
				Title:                p.Title,
				Excerpt:              p.Excerpt,
				Content:              p.Content,
				Permalink:            p.Permalink,
				Password:             p.Password,
				Type:                 p.Type,
				Status:               p.Status,
				Tags:                 p.Tags,
				StatusTemplate:       p.StatusTemplate,
				ContentWarning:       p.ContentWarning,
				ShareEnabled:         p.Share,
				SupportsCustomFields: customFields,
			},
			FeaturedID: p.Featured,
		}
		if err := s.savePost(ctx, tx, rec); err != nil {
			return ImportStats{}, err
		}
		stats.Posts++
	}

	if err := tx.Commit(); err != nil {
		return ImportStats{}, fmt.Errorf("import: commit: %w", err)
	}
	return stats, nil
}

// inferMimeType fills in a missing type from the file or URL extension, then
// from the file content. Only image types make an entry an attached image.
func inferMimeType(file, rawURL string) string {
	exts := []string{filepath.Ext(file)}
	if u, err := url.Parse(rawURL); err == nil {
		exts = append(exts, path.Ext(u.Path))
	}
	for _, ext := range exts {
		if t := mime.TypeByExtension(strings.ToLower(ext)); t != "" {
			return stripParams(t)
		}
	}

	if file == "" {
		return ""
	}
	f, err := os.Open(file)
	if err != nil {
		return ""
	}
	defer f.Close()
	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	if n == 0 {
		return ""
	}
	return stripParams(http.DetectContentType(head[:n]))
}

func stripParams(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}
