package form

import (
	"context"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/hooks"
)

// EventFilesDropped is the default event pushed after a drop.
const EventFilesDropped = "files_dropped"

// FileDrop attributes and classes.
const (
	AttrAccept  = "data-accept"
	AttrMaxSize = "data-max-size"
	AttrEvent   = "data-event"

	DragOverClass = "drag-over"
)

// Reasons a dropped file is rejected.
const (
	RejectType   = "type"
	RejectSize   = "size"
	RejectUpload = "upload"
)

// Uploader stores a dropped file and returns a reference the server can
// resolve.
type Uploader interface {
	Upload(ctx context.Context, f dom.File) (ref string, err error)
}

// UploaderFunc adapts a function to Uploader.
type UploaderFunc func(ctx context.Context, f dom.File) (string, error)

// Upload calls fn.
func (fn UploaderFunc) Upload(ctx context.Context, f dom.File) (string, error) {
	return fn(ctx, f)
}

// BlockingUploader is implemented by uploaders whose Upload waits on I/O.
// FileDrop runs them off the loop and posts the result back to it.
type BlockingUploader interface {
	Uploader
	Blocking() bool
}

// FileDrop is a drop zone. Files are filtered by data-accept and
// data-max-size, accepted ones are uploaded one at a time, and one event
// describing both lists is pushed. Uploads run on the loop unless the
// uploader is a BlockingUploader.
type FileDrop struct {
	Uploader Uploader
}

// Mounted binds the drag listeners.
func (h *FileDrop) Mounted(ctx *hooks.Context) {
	zone := ctx.El
	over := func(ev *dom.Event) {
		ev.PreventDefault()
		zone.AddClass(DragOverClass)
	}
	ctx.Listen(zone, dom.EventDragEnter, over)
	ctx.Listen(zone, dom.EventDragOver, over)
	ctx.Listen(zone, dom.EventDragLeave, func(*dom.Event) {
		zone.RemoveClass(DragOverClass)
	})
	ctx.Listen(zone, dom.EventDrop, func(ev *dom.Event) {
		ev.PreventDefault()
		zone.RemoveClass(DragOverClass)
		if len(ev.Files) == 0 {
			return
		}
		h.drop(ctx, ev.Files)
	})
}

func (h *FileDrop) drop(ctx *hooks.Context, files []dom.File) {
	zone := ctx.El
	accept := ParseAccept(zone.GetAttribute(AttrAccept))
	maxSize := int64(-1)
	if v, ok := zone.Attr(AttrMaxSize); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || n < 0 {
			ctx.Logger.Warn("invalid max size, ignoring limit", "value", v)
		} else {
			maxSize = n
		}
	}

	var (
		pending  []dom.File
		rejected = []map[string]any{}
	)
	for _, f := range files {
		switch {
		case !accept.Match(f):
			rejected = append(rejected, rejection(f, RejectType))
		case maxSize >= 0 && f.Size > maxSize:
			rejected = append(rejected, rejection(f, RejectSize))
		default:
			pending = append(pending, f)
		}
	}

	event := zone.GetAttribute(AttrEvent)
	if event == "" {
		event = EventFilesDropped
	}
	finish := func(accepted []map[string]any, failed []map[string]any, errs []error) {
		for _, err := range errs {
			ctx.Report(slog.LevelWarn, errors.FromError(err, errors.CodeUploadStore))
		}
		ctx.PushEvent(event, map[string]any{"files": accepted, "rejected": append(rejected, failed...)})
	}

	if b, ok := h.Uploader.(BlockingUploader); ok && b.Blocking() && len(pending) > 0 {
		run := ctx.Context()
		go func() {
			accepted, failed, errs := h.upload(run, pending)
			ctx.Post(func() { finish(accepted, failed, errs) })
		}()
		return
	}
	finish(h.upload(ctx.Context(), pending))
}

// upload stores files in order. It touches no DOM state and may run off
// the loop.
func (h *FileDrop) upload(ctx context.Context, files []dom.File) (accepted, failed []map[string]any, errs []error) {
	accepted = []map[string]any{}
	for _, f := range files {
		ref := ""
		if h.Uploader != nil {
			var err error
			ref, err = h.Uploader.Upload(ctx, f)
			if err != nil {
				errs = append(errs, err)
				failed = append(failed, rejection(f, RejectUpload))
				continue
			}
		}
		accepted = append(accepted, map[string]any{
			"name": f.Name,
			"type": f.Type,
			"size": f.Size,
			"ref":  ref,
		})
	}
	return accepted, failed, errs
}

func rejection(f dom.File, reason string) map[string]any {
	return map[string]any{"name": f.Name, "reason": reason}
}

// Accept is a parsed accept list: extensions (".png"), exact MIME types
// ("application/pdf") and wildcards ("image/*"). An empty list accepts
// everything.
type Accept []string

// ParseAccept splits a comma-separated accept attribute.
func ParseAccept(s string) Accept {
	var out Accept
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Match reports whether f satisfies the list.
func (a Accept) Match(f dom.File) bool {
	if len(a) == 0 {
		return true
	}
	ext := strings.ToLower(path.Ext(f.Name))
	typ := strings.ToLower(f.Type)
	for _, rule := range a {
		switch {
		case strings.HasPrefix(rule, "."):
			if ext == rule {
				return true
			}
		case strings.HasSuffix(rule, "/*"):
			if strings.HasPrefix(typ, strings.TrimSuffix(rule, "*")) {
				return true
			}
		case rule == typ:
			return true
		}
	}
	return false
}
