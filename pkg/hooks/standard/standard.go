// Package standard assembles the full hook bundle.
package standard

import (
	"github.com/vango-dev/livehooks/pkg/hooks"
	"github.com/vango-dev/livehooks/pkg/hooks/form"
	"github.com/vango-dev/livehooks/pkg/hooks/message"
	"github.com/vango-dev/livehooks/pkg/hooks/page"
	"github.com/vango-dev/livehooks/pkg/hooks/region"
	"github.com/vango-dev/livehooks/pkg/hooks/reorder"
)

// Options configures the bundle.
type Options struct {
	// MobileBreakpoint is the max-width, in px, treated as mobile.
	// Zero uses dom.DefaultMobileBreakpoint.
	MobileBreakpoint float64

	// Uploader handles FileDrop uploads.
	Uploader form.Uploader

	// Submit configures FormSubmit messages and timing.
	Submit form.SubmitOptions

	// Message configures the textarea hooks. Its MobileBreakpoint
	// defaults to the bundle's.
	Message message.Options
}

// Hooks returns a registry holding every hook in the bundle.
func Hooks(opts Options) *hooks.Registry {
	msg := opts.Message
	if msg.MobileBreakpoint <= 0 {
		msg.MobileBreakpoint = opts.MobileBreakpoint
	}

	r := hooks.NewRegistry().
		Register("Sortable", reorder.New(reorder.Sortable())).
		Register("DecorationSortable", reorder.New(reorder.DecorationSortable())).
		Register("FormPagesList", reorder.New(reorder.FormPagesList()))
	region.Register(r)
	message.Register(r, msg)
	page.Register(r, opts.MobileBreakpoint)
	form.Register(r, form.Options{Submit: opts.Submit, Uploader: opts.Uploader})
	return r
}

// Names lists the hook names Hooks registers.
var Names = []string{
	"ConditionLogicEditor",
	"DecorationSortable",
	"EditInput",
	"FileDrop",
	"FormBuilder",
	"FormBuilderSidebar",
	"FormItemEditor",
	"FormPagesList",
	"FormSubmit",
	"LiveMessageInput",
	"MessageInput",
	"PageHook",
	"RegionSelectCity",
	"RegionSelectDistrict",
	"RegionSelectProvince",
	"Sortable",
}
