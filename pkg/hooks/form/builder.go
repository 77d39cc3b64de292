package form

import (
	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/hooks"
	"github.com/vango-dev/livehooks/pkg/hooks/reorder"
)

// Builder events.
const (
	EventSelectItemType = "select-item-type"
	EventToggleRequired = "toggle-required"
)

// Builder selectors.
const (
	TypeSelectorSelector   = ".form-item-type-selector"
	ToggleRequiredSelector = ".toggle-required"
	BuilderItemSelector    = ".form-builder-item"
)

// Builder is the form builder canvas: its items reorder through the
// embedded reorder hook and a few controls push edits directly.
type Builder struct {
	reorder.Hook
}

// Mounted binds the reorder engine and the delegated controls.
func (h *Builder) Mounted(ctx *hooks.Context) {
	h.Hook.Mounted(ctx)

	ctx.Listen(ctx.El, dom.EventChange, func(ev *dom.Event) {
		sel := closestIn(ctx.El, ev.Target, TypeSelectorSelector)
		if sel == nil {
			return
		}
		ctx.PushEvent(EventSelectItemType, map[string]any{"type": sel.Value()})
	})
	ctx.Listen(ctx.El, dom.EventClick, func(ev *dom.Event) {
		if closestIn(ctx.El, ev.Target, ToggleRequiredSelector) == nil {
			return
		}
		item := ev.Target.Closest(BuilderItemSelector)
		if item == nil {
			ctx.Logger.Debug("toggle-required outside an item")
			return
		}
		ctx.PushEvent(EventToggleRequired, map[string]any{"item_id": item.GetAttribute("data-item-id")})
	})
}

// Updated rebinds items added by a patch.
func (h *Builder) Updated(ctx *hooks.Context) {
	h.Hook.Updated(ctx)
}

func closestIn(root, target *dom.Element, sel string) *dom.Element {
	if target == nil {
		return nil
	}
	el := target.Closest(sel)
	if el == nil || !root.Contains(el) {
		return nil
	}
	return el
}
