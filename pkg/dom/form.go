package dom

import (
	"strings"
)

// Value returns the live value of a form control.
//
//   - textarea: edited value, else its text content
//   - select: value of the selected option, else of the first option
//   - option: value attribute, else text
//   - anything else: edited value, else the value attribute
func (e *Element) Value() string {
	switch e.n.Data {
	case "select":
		if opt := e.SelectedOption(); opt != nil {
			return opt.Value()
		}
		return ""
	case "option":
		if v, ok := e.Attr("value"); ok {
			return v
		}
		return strings.TrimSpace(e.Text())
	case "textarea":
		if e.value != nil {
			return *e.value
		}
		return e.Text()
	}
	if e.value != nil {
		return *e.value
	}
	return attr(e.n, "value")
}

// SetValue sets the live value. For a select it selects the first option
// with that value; an unknown value leaves nothing selected.
func (e *Element) SetValue(v string) {
	if e.n.Data == "select" {
		for _, opt := range e.Options() {
			opt.RemoveAttribute("selected")
		}
		for _, opt := range e.Options() {
			if opt.Value() == v {
				opt.SetAttribute("selected", "")
				break
			}
		}
		return
	}
	e.value = &v
	if n := len(v); e.selStart > n || e.selEnd > n {
		e.selStart, e.selEnd = n, n
	}
}

// Options returns the option elements of a select.
func (e *Element) Options() []*Element {
	return e.QueryAll("option")
}

// SelectedOption returns the selected option of a select. Without an
// explicit selection the first option is selected, as in a browser.
func (e *Element) SelectedOption() *Element {
	opts := e.Options()
	for _, opt := range opts {
		if opt.HasAttribute("selected") {
			return opt
		}
	}
	if len(opts) > 0 && !e.HasAttribute("multiple") {
		return opts[0]
	}
	return nil
}

// AddOption appends <option value="value">label</option> to a select.
func (e *Element) AddOption(value, label string) *Element {
	opt := e.doc.CreateElement("option")
	opt.SetAttribute("value", value)
	opt.SetText(label)
	e.AppendChild(opt)
	return opt
}

// Checked reports whether a checkbox or radio is checked.
func (e *Element) Checked() bool {
	if e.checked != nil {
		return *e.checked
	}
	return e.HasAttribute("checked")
}

// SetChecked checks or unchecks a control. Checking a radio unchecks the
// other radios of its group in the same form.
func (e *Element) SetChecked(on bool) {
	e.checked = &on
	if !on || e.GetAttribute("type") != "radio" {
		return
	}
	name := e.GetAttribute("name")
	if name == "" {
		return
	}
	scope := e.Closest("form")
	var radios []*Element
	if scope != nil {
		radios = scope.QueryAll(`input[type="radio"]`)
	} else {
		radios = e.doc.QueryAll(`input[type="radio"]`)
	}
	for _, r := range radios {
		if r != e && r.GetAttribute("name") == name {
			off := false
			r.checked = &off
		}
	}
}

// Disabled reports whether the disabled attribute is present.
func (e *Element) Disabled() bool {
	return e.HasAttribute("disabled")
}

// SetDisabled adds or removes the disabled attribute.
func (e *Element) SetDisabled(on bool) {
	if on {
		e.SetAttribute("disabled", "")
	} else {
		e.RemoveAttribute("disabled")
	}
}

// SelectionStart returns the caret start offset.
func (e *Element) SelectionStart() int {
	return e.selStart
}

// SelectionEnd returns the caret end offset.
func (e *Element) SelectionEnd() int {
	return e.selEnd
}

// SetSelectionRange sets the selection, clamped to the value length.
func (e *Element) SetSelectionRange(start, end int) {
	n := len(e.Value())
	start = clamp(start, 0, n)
	end = clamp(end, start, n)
	e.selStart, e.selEnd = start, end
}

// Select selects the whole value.
func (e *Element) Select() {
	e.SetSelectionRange(0, len(e.Value()))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
