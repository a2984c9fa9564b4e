// Package sqlite stores posts, the media library and post metadata in a
// local SQLite database. It stands in for the host CMS.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/blacktop/tootshare/internal/share"
)

//go:embed schema.sql
var schemaSQL string

// Post meta keys.
const (
	MetaShareURL     = "share_url"
	MetaShareError   = "share_error"
	MetaShareEnabled = "share_enabled"
)

var (
	ErrPostNotFound       = errors.New("post not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
)

// PostRecord is a post as stored, with its featured image.
type PostRecord struct {
	share.Post
	FeaturedID int64
}

// MediaRecord is a media library row.
type MediaRecord struct {
	share.Attachment
	ParentID    int64
	MenuOrder   int
	OriginalURL string
}

// Store implements share.MediaLibrary and share.MetaStore.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var (
	_ share.MediaLibrary = (*Store)(nil)
	_ share.MetaStore    = (*Store)(nil)
)

// Open opens (and if needed creates) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer; keeps read-then-write meta access serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SavePost inserts or replaces a post.
func (s *Store) SavePost(ctx context.Context, rec PostRecord) error {
	return s.savePost(ctx, s.db, rec)
}

func (s *Store) savePost(ctx context.Context, db execer, rec PostRecord) error {
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	postType := rec.Type
	if postType == "" {
		postType = "post"
	}
	status := rec.Status
	if status == "" {
		status = share.StatusDraft
	}

	query, args, err := s.sb.
		Replace("posts").
		Columns(
			"post_id", "title", "excerpt", "content", "permalink", "password",
			"post_type", "status", "tags", "status_template", "content_warning",
			"custom_fields", "featured_id",
		).
		Values(
			rec.ID, rec.Title, rec.Excerpt, rec.Content, rec.Permalink, rec.Password,
			postType, status, string(tags), rec.StatusTemplate, rec.ContentWarning,
			rec.SupportsCustomFields, rec.FeaturedID,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("SavePost: build query: %w", err)
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("SavePost: %w", err)
	}

	if rec.ShareEnabled != nil {
		if err := s.putMeta(ctx, db, rec.ID, MetaShareEnabled, flagValue(*rec.ShareEnabled)); err != nil {
			return fmt.Errorf("SavePost: %w", err)
		}
	}
	return nil
}

// Post loads a post with its share_enabled flag.
func (s *Store) Post(ctx context.Context, id int64) (share.Post, error) {
	query, args, err := s.sb.
		Select(
			"post_id", "title", "excerpt", "content", "permalink", "password",
			"post_type", "status", "tags", "status_template", "content_warning",
			"custom_fields",
		).
		From("posts").
		Where(sq.Eq{"post_id": id}).
		ToSql()
	if err != nil {
		return share.Post{}, fmt.Errorf("Post: build query: %w", err)
	}

	var (
		post share.Post
		tags string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&post.ID, &post.Title, &post.Excerpt, &post.Content, &post.Permalink, &post.Password,
		&post.Type, &post.Status, &tags, &post.StatusTemplate, &post.ContentWarning,
		&post.SupportsCustomFields,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return share.Post{}, ErrPostNotFound
	}
	if err != nil {
		return share.Post{}, fmt.Errorf("Post: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &post.Tags); err != nil {
		return share.Post{}, fmt.Errorf("Post: decode tags: %w", err)
	}

	meta, err := s.meta(ctx, id, MetaShareEnabled)
	if err != nil {
		return share.Post{}, err
	}
	if v, ok := meta[MetaShareEnabled]; ok {
		enabled := v == "1"
		post.ShareEnabled = &enabled
	}

	return post, nil
}

// SetStatus moves a post to status and returns the previous one.
func (s *Store) SetStatus(ctx context.Context, id int64, status string) (string, error) {
	post, err := s.Post(ctx, id)
	if err != nil {
		return "", err
	}

	query, args, err := s.sb.
		Update("posts").
		Set("status", status).
		Where(sq.Eq{"post_id": id}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("SetStatus: build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("SetStatus: %w", err)
	}
	return post.Status, nil
}

// SaveAttachment inserts or replaces a media library entry.
func (s *Store) SaveAttachment(ctx context.Context, rec MediaRecord) error {
	return s.saveAttachment(ctx, s.db, rec)
}

func (s *Store) saveAttachment(ctx context.Context, db execer, rec MediaRecord) error {
	var largeURL, largeFile string
	if rec.Large != nil {
		largeURL, largeFile = rec.Large.URL, rec.Large.File
	}

	query, args, err := s.sb.
		Replace("media").
		Columns(
			"media_id", "parent_id", "menu_order", "url", "original_url", "file",
			"mime_type", "alt", "caption", "large_url", "large_file",
		).
		Values(
			rec.ID, rec.ParentID, rec.MenuOrder, rec.URL, rec.OriginalURL, rec.File,
			rec.MimeType, rec.Alt, rec.Caption, largeURL, largeFile,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("SaveAttachment: build query: %w", err)
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("SaveAttachment: %w", err)
	}
	return nil
}

// AttachmentIDByURL matches either the attachment URL or the URL of the
// original upload. Unknown URLs yield 0.
func (s *Store) AttachmentIDByURL(ctx context.Context, url string) (int64, error) {
	query, args, err := s.sb.
		Select("media_id").
		From("media").
		Where(sq.Or{sq.Eq{"url": url}, sq.Eq{"original_url": url}}).
		OrderBy("media_id").
		Limit(1).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("AttachmentIDByURL: build query: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("AttachmentIDByURL: %w", err)
	}
	return id, nil
}

// FeaturedImageID returns the post's featured image, or 0.
func (s *Store) FeaturedImageID(ctx context.Context, postID int64) (int64, error) {
	query, args, err := s.sb.
		Select("featured_id").
		From("posts").
		Where(sq.Eq{"post_id": postID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("FeaturedImageID: build query: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("FeaturedImageID: %w", err)
	}
	return id, nil
}

// AttachedImageIDs lists image attachments of a post in menu order.
func (s *Store) AttachedImageIDs(ctx context.Context, postID int64) ([]int64, error) {
	query, args, err := s.sb.
		Select("media_id").
		From("media").
		Where(sq.Eq{"parent_id": postID}).
		Where(sq.Like{"mime_type": "image/%"}).
		OrderBy("menu_order", "media_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("AttachedImageIDs: build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("AttachedImageIDs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("AttachedImageIDs: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Attachment loads a media library entry.
func (s *Store) Attachment(ctx context.Context, id int64) (share.Attachment, error) {
	query, args, err := s.sb.
		Select("media_id", "url", "file", "mime_type", "alt", "caption", "large_url", "large_file").
		From("media").
		Where(sq.Eq{"media_id": id}).
		ToSql()
	if err != nil {
		return share.Attachment{}, fmt.Errorf("Attachment: build query: %w", err)
	}

	var (
		att                 share.Attachment
		largeURL, largeFile string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&att.ID, &att.URL, &att.File, &att.MimeType, &att.Alt, &att.Caption, &largeURL, &largeFile,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return share.Attachment{}, ErrAttachmentNotFound
	}
	if err != nil {
		return share.Attachment{}, fmt.Errorf("Attachment: %w", err)
	}
	if largeURL != "" || largeFile != "" {
		att.Large = &share.Rendition{URL: largeURL, File: largeFile}
	}
	return att, nil
}

// ShareResult reads the stored share url and error.
func (s *Store) ShareResult(ctx context.Context, postID int64) (share.ShareResult, error) {
	meta, err := s.meta(ctx, postID, MetaShareURL, MetaShareError)
	if err != nil {
		return share.ShareResult{}, err
	}
	return share.ShareResult{URL: meta[MetaShareURL], Error: meta[MetaShareError]}, nil
}

// SaveShareResult stores the result. Empty fields are removed, so a stored
// URL clears a previous error and the other way round.
func (s *Store) SaveShareResult(ctx context.Context, postID int64, result share.ShareResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SaveShareResult: begin: %w", err)
	}
	defer tx.Rollback()

	for key, value := range map[string]string{MetaShareURL: result.URL, MetaShareError: result.Error} {
		if err := s.putMeta(ctx, tx, postID, key, value); err != nil {
			return fmt.Errorf("SaveShareResult: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SaveShareResult: commit: %w", err)
	}
	return nil
}

// ClearShareResult removes the stored url and error so the post can be
// shared again.
func (s *Store) ClearShareResult(ctx context.Context, postID int64) error {
	return s.SaveShareResult(ctx, postID, share.ShareResult{})
}

// SetShareEnabled stores the per-post share flag.
func (s *Store) SetShareEnabled(ctx context.Context, postID int64, enabled bool) error {
	if err := s.putMeta(ctx, s.db, postID, MetaShareEnabled, flagValue(enabled)); err != nil {
		return fmt.Errorf("SetShareEnabled: %w", err)
	}
	return nil
}

func flagValue(enabled bool) string {
	if enabled {
		return "1"
	}
	return "0"
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) putMeta(ctx context.Context, db execer, postID int64, key, value string) error {
	var (
		query string
		args  []any
		err   error
	)
	if value == "" {
		query, args, err = s.sb.
			Delete("post_meta").
			Where(sq.Eq{"post_id": postID, "meta_key": key}).
			ToSql()
	} else {
		query, args, err = s.sb.
			Replace("post_meta").
			Columns("post_id", "meta_key", "meta_value").
			Values(postID, key, value).
			ToSql()
	}
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = db.ExecContext(ctx, query, args...)
	return err
}

func (s *Store) meta(ctx context.Context, postID int64, keys ...string) (map[string]string, error) {
	query, args, err := s.sb.
		Select("meta_key", "meta_value").
		From("post_meta").
		Where(sq.Eq{"post_id": postID, "meta_key": keys}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("meta: build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("meta: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string, len(keys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("meta: scan: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}
