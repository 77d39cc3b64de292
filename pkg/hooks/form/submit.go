package form

import (
	"strings"
	"time"

	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/hooks"
)

// EventSubmit carries the form data of a valid submission.
const EventSubmit = "submit-form"

// Selectors and classes used by FormSubmit.
const (
	RequiredSelector = "input[required], select[required], textarea[required]"
	SubmitSelector   = `button[type="submit"], input[type="submit"], button:not([type])`
	ErrorSelector    = ".form-error"
	ErrorClass       = "error"
)

// SubmitOptions configures FormSubmit.
type SubmitOptions struct {
	// RequiredMessage is shown under an empty required field.
	RequiredMessage string

	// SelectMessage is shown under a required radio group or checkbox
	// with nothing checked.
	SelectMessage string

	// Reenable is how long submit buttons stay disabled after a push.
	Reenable time.Duration
}

func (o SubmitOptions) withDefaults() SubmitOptions {
	if o.RequiredMessage == "" {
		o.RequiredMessage = "This field is required"
	}
	if o.SelectMessage == "" {
		o.SelectMessage = "Please select an option"
	}
	if o.Reenable <= 0 {
		o.Reenable = time.Second
	}
	return o
}

// Submit intercepts a form's submit. Required fields are checked and
// their errors shown; a valid form pushes submit-form with its data and
// locks the submit buttons until Reenable elapses.
type Submit struct {
	Options SubmitOptions

	fields map[*dom.Element]func()
}

// Mounted binds submit and per-field blur validation.
func (h *Submit) Mounted(ctx *hooks.Context) {
	h.Options = h.Options.withDefaults()
	form := ctx.El

	ctx.Listen(form, dom.EventSubmit, func(ev *dom.Event) {
		ev.PreventDefault()
		if !h.Validate(form) {
			ctx.Logger.Debug("submit blocked by validation")
			return
		}
		ctx.PushEvent(EventSubmit, Data(form))
		h.lock(ctx)
	})
	h.bindFields(ctx)
}

// Updated binds blur validation on required fields added by a patch.
func (h *Submit) Updated(ctx *hooks.Context) {
	h.bindFields(ctx)
}

// bindFields listens for blur on each required field once and drops the
// listeners of fields that left the form.
func (h *Submit) bindFields(ctx *hooks.Context) {
	if h.fields == nil {
		h.fields = make(map[*dom.Element]func())
	}
	current := make(map[*dom.Element]bool)
	for _, field := range ctx.El.QueryAll(RequiredSelector) {
		current[field] = true
		if _, ok := h.fields[field]; ok {
			continue
		}
		h.fields[field] = ctx.Listen(field, dom.EventBlur, func(*dom.Event) {
			h.ValidateField(field)
		})
	}
	for field, remove := range h.fields {
		if !current[field] {
			remove()
			delete(h.fields, field)
		}
	}
}

func (h *Submit) lock(ctx *hooks.Context) {
	var locked []*dom.Element
	for _, btn := range ctx.El.QueryAll(SubmitSelector) {
		if btn.Disabled() {
			continue
		}
		btn.SetDisabled(true)
		locked = append(locked, btn)
	}
	ctx.AfterFunc(h.Options.Reenable, func() {
		for _, btn := range locked {
			btn.SetDisabled(false)
		}
	})
}

// Validate checks every required field of form and reports whether all
// passed. Every field is checked so all errors show at once.
func (h *Submit) Validate(form *dom.Element) bool {
	ok := true
	for _, field := range form.QueryAll(RequiredSelector) {
		if !h.ValidateField(field) {
			ok = false
		}
	}
	return ok
}

// ValidateField checks one required field and updates the .form-error
// element next to it.
func (h *Submit) ValidateField(field *dom.Element) bool {
	opts := h.Options.withDefaults()
	msg := ""
	switch field.GetAttribute("type") {
	case "radio":
		if !groupChecked(field) {
			msg = opts.SelectMessage
		}
	case "checkbox":
		if !field.Checked() {
			msg = opts.SelectMessage
		}
	default:
		if strings.TrimSpace(field.Value()) == "" {
			msg = opts.RequiredMessage
		}
	}

	var errEl *dom.Element
	if parent := field.Parent(); parent != nil {
		errEl = parent.Query(ErrorSelector)
	}
	if msg != "" {
		if errEl != nil {
			errEl.SetText(msg)
			errEl.SetStyle("display", "block")
		}
		field.AddClass(ErrorClass)
		return false
	}
	if errEl != nil {
		errEl.SetText("")
		errEl.SetStyle("display", "none")
	}
	field.RemoveClass(ErrorClass)
	return true
}

func groupChecked(radio *dom.Element) bool {
	name := radio.GetAttribute("name")
	if name == "" {
		return radio.Checked()
	}
	scope := radio.Closest("form")
	if scope == nil {
		scope = radio.Document().Body()
	}
	for _, r := range scope.QueryAll(`input[type="radio"]`) {
		if r.GetAttribute("name") == name && r.Checked() {
			return true
		}
	}
	return false
}

// Data collects the named, enabled controls of form. Checkboxes and
// radios contribute only when checked. A repeated name keeps the last
// value.
func Data(form *dom.Element) map[string]any {
	data := make(map[string]any)
	for _, el := range form.QueryAll("input[name], select[name], textarea[name]") {
		if el.Disabled() {
			continue
		}
		name := el.GetAttribute("name")
		switch el.GetAttribute("type") {
		case "submit", "button", "reset", "file", "image":
			continue
		case "checkbox", "radio":
			if !el.Checked() {
				continue
			}
			value, ok := el.Attr("value")
			if !ok {
				value = "on"
			}
			data[name] = value
			continue
		}
		data[name] = el.Value()
	}
	return data
}
