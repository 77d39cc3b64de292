// Package region implements cascading province, city and district selects.
//
// The three selects of one field share a field id, read from
// data-field-id, and are found by element id:
//
//	<select id="addr_province" data-field-id="addr" phx-hook="RegionSelectProvince">
//	<select id="addr_city"     data-field-id="addr" phx-hook="RegionSelectCity">
//	<select id="addr_district" data-field-id="addr" phx-hook="RegionSelectDistrict">
//
// Choosing a level clears and disables the levels below it and asks the
// server for the next level's options, which arrive as update_cities or
// update_districts.
package region

import (
	"log/slog"
	"strings"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/hooks"
)

// Level is one tier of the region hierarchy.
type Level string

const (
	Province Level = "province"
	City     Level = "city"
	District Level = "district"
)

// Events exchanged with the server.
const (
	EventProvinceChange  = "handle_province_change"
	EventCityChange      = "handle_city_change"
	EventDistrictChange  = "handle_district_change"
	EventUpdateCities    = "update_cities"
	EventUpdateDistricts = "update_districts"
)

// AttrFieldID names the field shared by the three selects.
const AttrFieldID = "data-field-id"

// SelectID returns the element id of a field's select for level.
func SelectID(field string, level Level) string {
	return field + "_" + string(level)
}

// FieldID returns the field of a region select: data-field-id, or the
// element id without its level suffix.
func FieldID(el *dom.Element, level Level) string {
	if v := el.GetAttribute(AttrFieldID); v != "" {
		return v
	}
	return strings.TrimSuffix(el.ID(), "_"+string(level))
}

// Option is one selectable region.
type Option struct {
	Name string
}

// Reset removes every option except a leading placeholder (an option
// with an empty value) and disables the select.
func Reset(sel *dom.Element) {
	for i, opt := range sel.Options() {
		if i == 0 && opt.Value() == "" {
			opt.SetAttribute("selected", "")
			continue
		}
		opt.Remove()
	}
	sel.SetDisabled(true)
}

// Populate replaces the options of sel with opts, keeping a placeholder,
// and enables it when opts is not empty.
func Populate(sel *dom.Element, opts []Option) {
	Reset(sel)
	for _, o := range opts {
		sel.AddOption(o.Name, o.Name)
	}
	sel.SetDisabled(len(opts) == 0)
}

// base is shared by the three hooks.
type base struct {
	level Level
	field string
}

func (b *base) mount(ctx *hooks.Context, level Level) {
	b.level = level
	b.field = FieldID(ctx.El, level)
}

// sibling returns the field's select for level, reporting H003 when it
// is missing.
func (b *base) sibling(ctx *hooks.Context, level Level) *dom.Element {
	id := SelectID(b.field, level)
	el := ctx.Doc.GetElementByID(id)
	if el == nil {
		ctx.Report(slog.LevelDebug, errors.New(errors.CodeMissingTarget).WithDetail("#"+id))
	}
	return el
}

// options handles an update_* push for this field. It returns false for
// other fields and malformed payloads.
func (b *base) options(ctx *hooks.Context, event, key string, p hooks.Payload) ([]Option, bool) {
	field, ok := p.String("field_id")
	if !ok {
		ctx.Malformed(event, "field_id is not a string")
		return nil, false
	}
	if field != b.field {
		return nil, false
	}
	objs, ok := p.Objects(key)
	if !ok {
		ctx.Malformed(event, key+" is not a list of objects")
		return nil, false
	}
	out := make([]Option, 0, len(objs))
	for _, o := range objs {
		name, ok := o.String("name")
		if !ok {
			ctx.Malformed(event, key+" entry without name")
			return nil, false
		}
		out = append(out, Option{Name: name})
	}
	return out, true
}

// ProvinceSelect pushes province changes and resets the lower levels.
type ProvinceSelect struct{ base }

// Mounted binds the change listener.
func (h *ProvinceSelect) Mounted(ctx *hooks.Context) {
	h.mount(ctx, Province)
	ctx.Listen(ctx.El, dom.EventChange, func(*dom.Event) {
		province := ctx.El.Value()
		for _, lvl := range []Level{City, District} {
			if sel := h.sibling(ctx, lvl); sel != nil {
				Reset(sel)
			}
		}
		ctx.PushEvent(EventProvinceChange, map[string]any{
			"field_id": h.field,
			"province": province,
		})
	})
}

// CitySelect pushes city changes and is repopulated by update_cities.
type CitySelect struct{ base }

// Mounted binds the change listener and the update handler.
func (h *CitySelect) Mounted(ctx *hooks.Context) {
	h.mount(ctx, City)
	ctx.Listen(ctx.El, dom.EventChange, func(*dom.Event) {
		city := ctx.El.Value()
		province := ""
		if sel := h.sibling(ctx, Province); sel != nil {
			province = sel.Value()
		}
		if sel := h.sibling(ctx, District); sel != nil {
			Reset(sel)
		}
		ctx.PushEvent(EventCityChange, map[string]any{
			"field_id": h.field,
			"province": province,
			"city":     city,
		})
	})
	ctx.HandleEvent(EventUpdateCities, func(p hooks.Payload) {
		if opts, ok := h.options(ctx, EventUpdateCities, "cities", p); ok {
			Populate(ctx.El, opts)
		}
	})
}

// DistrictSelect pushes district changes and is repopulated by
// update_districts.
type DistrictSelect struct{ base }

// Mounted binds the change listener and the update handler.
func (h *DistrictSelect) Mounted(ctx *hooks.Context) {
	h.mount(ctx, District)
	ctx.Listen(ctx.El, dom.EventChange, func(*dom.Event) {
		ctx.PushEvent(EventDistrictChange, map[string]any{
			"field_id": h.field,
			"district": ctx.El.Value(),
		})
	})
	ctx.HandleEvent(EventUpdateDistricts, func(p hooks.Payload) {
		if opts, ok := h.options(ctx, EventUpdateDistricts, "districts", p); ok {
			Populate(ctx.El, opts)
		}
	})
}

// Register adds the three region hooks to r.
func Register(r *hooks.Registry) *hooks.Registry {
	return r.
		Register("RegionSelectProvince", func() hooks.Hook { return &ProvinceSelect{} }).
		Register("RegionSelectCity", func() hooks.Hook { return &CitySelect{} }).
		Register("RegionSelectDistrict", func() hooks.Hook { return &DistrictSelect{} })
}
