// Package form implements the form builder hooks: submit interception
// with required-field validation, the condition logic editor, the builder
// item list, file drop zones and the passive item editor.
package form

import (
	"github.com/vango-dev/livehooks/pkg/hooks"
	"github.com/vango-dev/livehooks/pkg/hooks/reorder"
)

// Options configures the form hooks.
type Options struct {
	// Submit configures FormSubmit.
	Submit SubmitOptions

	// Uploader stores files dropped on a FileDrop zone. Nil reports
	// accepted files without a ref.
	Uploader Uploader
}

// ItemEditor logs its mount and nothing else. The server drives the
// editor entirely through patches.
type ItemEditor struct{}

// Mounted logs the editor id.
func (ItemEditor) Mounted(ctx *hooks.Context) {
	ctx.Logger.Info("item editor mounted", "id", ctx.El.ID())
}

// Register adds FormSubmit, ConditionLogicEditor, FormBuilder, FileDrop
// and FormItemEditor to r.
func Register(r *hooks.Registry, opts Options) *hooks.Registry {
	return r.
		Register("FormSubmit", func() hooks.Hook { return &Submit{Options: opts.Submit} }).
		Register("ConditionLogicEditor", func() hooks.Hook { return &ConditionEditor{} }).
		Register("FormBuilder", func() hooks.Hook {
			return &Builder{Hook: reorder.Hook{Config: reorder.FormBuilderItems()}}
		}).
		Register("FileDrop", func() hooks.Hook { return &FileDrop{Uploader: opts.Uploader} }).
		Register("FormItemEditor", func() hooks.Hook { return ItemEditor{} })
}
