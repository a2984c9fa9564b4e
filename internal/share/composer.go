package share

import (
	"context"
	"errors"
	"fmt"

	"github.com/blacktop/tootshare/internal/logutil"
	"github.com/google/uuid"
)

// State is the outcome of a composition run.
type State string

const (
	StateSkipped       State = "skipped"
	StateAlreadyShared State = "already_shared"
	StateShared        State = "shared"
	StateFailed        State = "failed"
)

// Outcome is what ComposeAndPost reports back to the caller.
type Outcome struct {
	State  State
	Result ShareResult
	// Reason explains a skip.
	Reason string
}

// Composer drives a post through render, media upload and status creation.
type Composer struct {
	opts     Options
	meta     MetaStore
	remote   Remote
	hooks    Hooks
	resolver *Resolver
	uploader *Uploader
}

// NewComposer wires the composition pipeline.
func NewComposer(opts Options, library MediaLibrary, meta MetaStore, remote Remote, hooks Hooks) *Composer {
	return &Composer{
		opts:     opts,
		meta:     meta,
		remote:   remote,
		hooks:    hooks,
		resolver: NewResolver(library, hooks),
		uploader: NewUploader(library, remote, opts.MaxUploadBytes),
	}
}

// ComposeAndPost shares the post once. Unmet preconditions yield StateSkipped
// and never touch the remote API. A post that already has a stored URL yields
// StateAlreadyShared with that URL. Upload failures drop the image; a status
// failure is recorded on the post and reported as StateFailed.
func (c *Composer) ComposeAndPost(ctx context.Context, post Post, tr Transition) Outcome {
	stored, err := c.meta.ShareResult(ctx, post.ID)
	if err != nil {
		logutil.Errorf("read share result: post=%d err=%v", post.ID, err)
		return skipped("share state unavailable")
	}
	if stored.URL != "" {
		logutil.Debugf("already shared: post=%d url=%s", post.ID, stored.URL)
		return Outcome{State: StateAlreadyShared, Result: ShareResult{URL: stored.URL}}
	}

	if reason := c.gate(post, tr); reason != "" {
		logutil.Debugf("skipping post %d: %s", post.ID, reason)
		return skipped(reason)
	}

	run := uuid.NewString()
	logutil.Infof("sharing post: post=%d run=%s", post.ID, run)

	text := c.StatusText(post)

	var spoiler string
	if c.opts.ContentWarning && post.SupportsCustomFields {
		spoiler = PlainText(post.ContentWarning)
	}

	mediaIDs := c.uploadImages(ctx, post, run)

	logutil.Debugf("posting status: run=%s media_count=%d", run, len(mediaIDs))
	statusURL, err := c.remote.PostStatus(ctx, StatusRequest{
		Text:           text,
		MediaIDs:       mediaIDs,
		SpoilerText:    spoiler,
		Visibility:     c.opts.Visibility,
		IdempotencyKey: IdempotencyKey(post, text),
	})
	if err == nil && statusURL == "" {
		err = errors.New("response did not include a status url")
	}
	if err != nil {
		var remoteErr RemoteError
		if errors.As(err, &remoteErr) {
			logutil.DebugResponse("status "+run, remoteErr.Body)
		}
		result := ShareResult{Error: fmt.Sprintf("post status: %v", err)}
		logutil.Errorf("share failed: post=%d run=%s err=%v", post.ID, run, err)
		c.save(ctx, post.ID, result)
		return Outcome{State: StateFailed, Result: result}
	}

	result := ShareResult{URL: statusURL}
	c.save(ctx, post.ID, result)
	logutil.Infof("shared post: post=%d run=%s url=%s", post.ID, run, statusURL)
	return Outcome{State: StateShared, Result: result}
}

// StatusText renders the status for the post, applies the StatusText hook and
// enforces the length limit.
func (c *Composer) StatusText(post Post) string {
	template := c.opts.StatusTemplate
	if c.opts.CustomStatusField && post.StatusTemplate != "" {
		template = post.StatusTemplate
	}
	text := c.hooks.statusText(Render(template, post), post)
	return truncate(text, post.Permalink, c.opts.lengthLimit())
}

// Images returns the images that would be attached, capped at MaxImages.
func (c *Composer) Images(ctx context.Context, post Post) ([]ImageRef, error) {
	limit := c.opts.imageLimit()
	if limit == 0 || !c.opts.Images.Any() {
		return nil, nil
	}
	refs, err := c.resolver.Resolve(ctx, post, c.opts.Images)
	if err != nil {
		return nil, err
	}
	if len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

// Uploader exposes the media uploader, mainly for previews.
func (c *Composer) Uploader() *Uploader { return c.uploader }

func (c *Composer) gate(post Post, tr Transition) string {
	enabled := !c.opts.OptIn
	if post.ShareEnabled != nil {
		enabled = *post.ShareEnabled
	}
	switch {
	case !c.hooks.enabled(enabled, post):
		return "sharing disabled for post"
	case tr.To != StatusPublish:
		return fmt.Sprintf("transition to %q is not a publish", tr.To)
	case tr.From == StatusPublish:
		return "post was already published"
	case post.Password != "":
		return "post is password protected"
	case !c.opts.SupportsType(post.Type):
		return fmt.Sprintf("post type %q not enabled", post.Type)
	}
	if err := c.opts.Validate(); err != nil {
		return err.Error()
	}
	return ""
}

func (c *Composer) uploadImages(ctx context.Context, post Post, run string) []string {
	refs, err := c.Images(ctx, post)
	if err != nil {
		logutil.Warnf("resolve images: run=%s err=%v", run, err)
		return nil
	}

	var handles []string
	for _, ref := range refs {
		handle, err := c.uploader.Upload(ctx, ref)
		if err != nil {
			var remoteErr RemoteError
			if errors.As(err, &remoteErr) {
				logutil.DebugResponse(fmt.Sprintf("media %d run %s", ref.ID, run), remoteErr.Body)
			}
			logutil.Warnf("skipping image: run=%s id=%d err=%v", run, ref.ID, err)
			continue
		}
		logutil.Debugf("media uploaded: run=%s id=%d media_id=%s", run, ref.ID, handle)
		handles = append(handles, handle)
	}
	return handles
}

func (c *Composer) save(ctx context.Context, postID int64, result ShareResult) {
	if err := c.meta.SaveShareResult(ctx, postID, result); err != nil {
		logutil.Errorf("save share result: post=%d err=%v", postID, err)
	}
}

// IdempotencyKey derives a stable key from the post and its status text, so
// a retried create for unchanged text maps to the status the server already
// made.
func IdempotencyKey(post Post, text string) string {
	name := fmt.Sprintf("%d\n%s\n%s", post.ID, post.Permalink, text)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func skipped(reason string) Outcome {
	return Outcome{State: StateSkipped, Reason: reason}
}
