// Package reorder implements drag-and-drop reordering of a container's
// items with a single order notification per completed drag.
//
// One parameterized engine serves every reorderable list; the presets in
// this file configure it for the standard hooks.
package reorder

import (
	"github.com/vango-dev/livehooks/pkg/dom"
)

// Guard attributes written to bound nodes.
const (
	AttrItemBound      = "data-reorder-bound"
	AttrContainerBound = "data-reorder-container"
)

// DefaultDraggingClass marks the item being dragged.
const DefaultDraggingClass = "dragging"

// Config parameterizes an Engine.
type Config struct {
	// IDAttr holds an item's identifier. Default "data-id".
	IDAttr string

	// Event is the notification pushed when a drag changed the order.
	Event string

	// PayloadKey holds the ordered identifiers in the default payload.
	PayloadKey string

	// ContainerSelector locates the container inside the hooked element.
	// Empty means the hooked element itself.
	ContainerSelector string

	// ItemSelector matches items inside the container. Empty means the
	// container's element children.
	ItemSelector string

	// HandleSelector locates the drag handle inside an item. The handle
	// gets the move cursor; without one the whole item does.
	HandleSelector string

	// PlaceholderClasses mark items excluded from reordering.
	PlaceholderClasses []string

	// IsPlaceholder overrides PlaceholderClasses when set.
	IsPlaceholder func(*dom.Element) bool

	// DraggingClass overrides DefaultDraggingClass.
	DraggingClass string

	// Encode shapes the payload from a commit. The default is
	// {PayloadKey: Order}.
	Encode func(Commit) map[string]any

	// Skip suppresses the notification for a commit when it returns true.
	Skip func(Commit) bool
}

// Commit describes a completed drag that changed the order.
type Commit struct {
	// Order is the final order.
	Order []string

	// Initial is the order when the drag started.
	Initial []string

	// Dragged is the identifier of the dragged item.
	Dragged string

	// From and To are the dragged item's indexes in Initial and Order.
	From int
	To   int
}

func (c Config) withDefaults() Config {
	if c.IDAttr == "" {
		c.IDAttr = "data-id"
	}
	if c.DraggingClass == "" {
		c.DraggingClass = DefaultDraggingClass
	}
	if c.PayloadKey == "" {
		c.PayloadKey = "ordered_ids"
	}
	if c.Encode == nil {
		key := c.PayloadKey
		c.Encode = func(cm Commit) map[string]any {
			return map[string]any{key: cm.Order}
		}
	}
	return c
}

func (c Config) placeholder(el *dom.Element) bool {
	if c.IsPlaceholder != nil {
		return c.IsPlaceholder(el)
	}
	for _, class := range c.PlaceholderClasses {
		if el.HasClass(class) {
			return true
		}
	}
	return false
}

// Sortable orders structure items.
func Sortable() Config {
	return Config{
		IDAttr:             "data-id",
		Event:              "update_structure_order",
		PayloadKey:         "ordered_ids",
		HandleSelector:     ".drag-handle",
		PlaceholderClasses: []string{"empty", "placeholder"},
	}
}

// DecorationSortable orders decoration items.
func DecorationSortable() Config {
	c := Sortable()
	c.Event = "update_decoration_order"
	return c
}

// FormPagesList orders form pages.
func FormPagesList() Config {
	return Config{
		IDAttr:       "data-page-id",
		Event:        "pages_reordered",
		PayloadKey:   "pageIds",
		ItemSelector: "[data-page-id]",
	}
}

// FormBuilderItems orders form builder items and reports the move as
// indexes.
func FormBuilderItems() Config {
	return Config{
		IDAttr:            "data-item-id",
		Event:             "reorder-items",
		ContainerSelector: ".form-builder-items",
		ItemSelector:      ".form-builder-item",
		HandleSelector:    ".drag-handle",
		Encode: func(cm Commit) map[string]any {
			return map[string]any{"from_index": cm.From, "to_index": cm.To}
		},
		Skip: func(cm Commit) bool { return cm.From == cm.To },
	}
}
