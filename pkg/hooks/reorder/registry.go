package reorder

import (
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/hooks"
)

var tokens atomic.Uint64

// NewToken returns a guard value unique to one binder in this process.
func NewToken() string {
	return strconv.FormatUint(tokens.Add(1), 36)
}

// Registry tracks the reorderable items of one container.
//
// Refresh enumerates the container, assigns identifiers and binds new
// items once. Items already bound by this registry carry its token in
// AttrItemBound and are skipped. Items that drop out of the container lose
// their listeners.
type Registry struct {
	cfg       Config
	ctx       *hooks.Context
	container *dom.Element
	token     string
	bind      func(item *dom.Element) (unbind func())

	items  []*dom.Element
	ids    map[*dom.Element]string
	unbind map[*dom.Element]func()
}

// NewRegistry creates a registry for container. bind is called once per
// newly eligible item; the func it returns runs when the item drops out.
func NewRegistry(ctx *hooks.Context, container *dom.Element, cfg Config, bind func(*dom.Element) func()) *Registry {
	return &Registry{
		cfg:       cfg.withDefaults(),
		ctx:       ctx,
		container: container,
		token:     NewToken(),
		bind:      bind,
		ids:       make(map[*dom.Element]string),
		unbind:    make(map[*dom.Element]func()),
	}
}

// Refresh re-reads the container and returns the eligible items in DOM
// order.
func (r *Registry) Refresh() []*dom.Element {
	r.items = r.items[:0]
	r.ids = make(map[*dom.Element]string)
	seen := make(map[string]*dom.Element)

	for _, el := range r.candidates() {
		if r.cfg.placeholder(el) {
			continue
		}
		id := el.GetAttribute(r.cfg.IDAttr)
		if id == "" {
			if domID := el.ID(); domID != "" {
				id = domID
				el.SetAttribute(r.cfg.IDAttr, id)
			}
		}
		if id == "" {
			r.ctx.Report(slog.LevelWarn, errors.New(errors.CodeMissingIdentifier).
				WithDetailf("<%s> without %s or id", el.Tag(), r.cfg.IDAttr))
			continue
		}
		if _, dup := seen[id]; dup {
			r.ctx.Report(slog.LevelWarn, errors.New(errors.CodeDuplicateIdentifier).WithDetail(id))
			continue
		}
		seen[id] = el
		r.items = append(r.items, el)
		r.ids[el] = id

		if el.GetAttribute(AttrItemBound) == r.token {
			continue
		}
		el.SetAttribute(AttrItemBound, r.token)
		el.SetAttribute("draggable", "true")
		handle := el
		if r.cfg.HandleSelector != "" {
			if h := el.Query(r.cfg.HandleSelector); h != nil {
				handle = h
			}
		}
		handle.SetStyle("cursor", "move")
		if r.bind != nil {
			r.unbind[el] = r.bind(el)
		}
	}
	for el := range r.unbind {
		if _, ok := r.ids[el]; !ok {
			r.release(el)
		}
	}
	return r.items
}

// Release unbinds every item.
func (r *Registry) Release() {
	for el := range r.unbind {
		r.release(el)
	}
	r.items = r.items[:0]
	r.ids = make(map[*dom.Element]string)
}

func (r *Registry) release(el *dom.Element) {
	if fn := r.unbind[el]; fn != nil {
		fn()
	}
	delete(r.unbind, el)
	if el.GetAttribute(AttrItemBound) == r.token {
		el.RemoveAttribute(AttrItemBound)
	}
}

// Items returns the eligible items found by the last Refresh.
func (r *Registry) Items() []*dom.Element {
	return r.items
}

// ID returns an eligible item's identifier.
func (r *Registry) ID(el *dom.Element) (string, bool) {
	id, ok := r.ids[el]
	return id, ok
}

// Eligible reports whether el was accepted by the last Refresh.
func (r *Registry) Eligible(el *dom.Element) bool {
	_, ok := r.ids[el]
	return ok
}

// Token returns the registry's guard value.
func (r *Registry) Token() string {
	return r.token
}

func (r *Registry) candidates() []*dom.Element {
	if r.cfg.ItemSelector == "" {
		return r.container.Children()
	}
	return r.container.QueryAll(r.cfg.ItemSelector)
}

// Order returns the identifiers of the eligible items in current DOM order.
func (r *Registry) Order() []string {
	order := make([]string, 0, len(r.items))
	for _, el := range r.candidates() {
		if id, ok := r.ids[el]; ok {
			order = append(order, id)
		}
	}
	return order
}
