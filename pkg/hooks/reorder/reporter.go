package reorder

import (
	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/hooks"
)

// Reporter turns the container's DOM order into a single notification.
type Reporter struct {
	cfg       Config
	container *dom.Element
}

// NewReporter creates a reporter for container.
func NewReporter(container *dom.Element, cfg Config) *Reporter {
	return &Reporter{cfg: cfg.withDefaults(), container: container}
}

// Collect returns the identifiers of the container's items in DOM order,
// skipping placeholders and items without an identifier.
func (r *Reporter) Collect() []string {
	var candidates []*dom.Element
	if r.cfg.ItemSelector == "" {
		candidates = r.container.Children()
	} else {
		candidates = r.container.QueryAll(r.cfg.ItemSelector)
	}
	ids := make([]string, 0, len(candidates))
	for _, el := range candidates {
		if r.cfg.placeholder(el) {
			continue
		}
		if id := el.GetAttribute(r.cfg.IDAttr); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Report builds the commit for a drag of dragged that started at initial
// and pushes one notification unless Config.Skip rejects it. It reports
// whether the notification was sent.
func (r *Reporter) Report(ctx *hooks.Context, dragged string, initial []string) (Commit, bool) {
	order := r.Collect()
	c := Commit{
		Order:   order,
		Initial: initial,
		Dragged: dragged,
		From:    indexOf(initial, dragged),
		To:      indexOf(order, dragged),
	}
	if r.cfg.Skip != nil && r.cfg.Skip(c) {
		return c, false
	}
	ctx.PushEvent(r.cfg.Event, r.cfg.Encode(c))
	return c, true
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
