package scenario

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
)

func (ru *run) expect(e *Expect) error {
	var failures []string
	fail := func(format string, args ...any) {
		failures = append(failures, fmt.Sprintf(format, args...))
	}

	if e.Push != nil {
		got := ru.tap.named(e.Push.Event)
		switch {
		case len(got) == 0:
			fail("no %s push", e.Push.Event)
		case e.Push.Payload != nil:
			last := got[len(got)-1].Payload
			if diff := cmp.Diff(normalize(e.Push.Payload), normalize(last)); diff != "" {
				fail("%s payload mismatch (-want +got):\n%s", e.Push.Event, diff)
			}
		}
	}

	if e.Pushes != nil {
		if n := len(ru.tap.named(e.Pushes.Event)); n != e.Pushes.Count {
			fail("%s pushes = %d, want %d", e.Pushes.Event, n, e.Pushes.Count)
		}
	}

	if e.Element != nil {
		ru.expectElement(e.Element, fail)
	}

	if e.Order != nil {
		ru.expectOrder(e.Order, fail)
	}

	if len(failures) > 0 {
		return fmt.Errorf("%s", strings.Join(failures, "; "))
	}
	return nil
}

func (ru *run) expectElement(x *ElementExpect, fail func(string, ...any)) {
	el, err := ru.el(x.Target)
	if err != nil {
		fail("%v", err)
		return
	}
	for name, want := range x.Attrs {
		switch {
		case want == nil && el.HasAttribute(name):
			fail("#%s[%s] = %q, want absent", x.Target, name, el.GetAttribute(name))
		case want != nil && !el.HasAttribute(name):
			fail("#%s[%s] absent, want %q", x.Target, name, *want)
		case want != nil && el.GetAttribute(name) != *want:
			fail("#%s[%s] = %q, want %q", x.Target, name, el.GetAttribute(name), *want)
		}
	}
	for prop, want := range x.Styles {
		if got := el.Style(prop); got != want {
			fail("#%s style %s = %q, want %q", x.Target, prop, got, want)
		}
	}
	for _, c := range x.HasClass {
		if !el.HasClass(c) {
			fail("#%s lacks class %s", x.Target, c)
		}
	}
	for _, c := range x.LacksClass {
		if el.HasClass(c) {
			fail("#%s has class %s", x.Target, c)
		}
	}
	if x.Value != nil && el.Value() != *x.Value {
		fail("#%s value = %q, want %q", x.Target, el.Value(), *x.Value)
	}
	if x.Text != nil && strings.TrimSpace(el.Text()) != *x.Text {
		fail("#%s text = %q, want %q", x.Target, strings.TrimSpace(el.Text()), *x.Text)
	}
	if x.Disabled != nil && el.Disabled() != *x.Disabled {
		fail("#%s disabled = %v, want %v", x.Target, el.Disabled(), *x.Disabled)
	}
	if x.Options != nil {
		var got []string
		for _, opt := range el.Options() {
			got = append(got, strings.TrimSpace(opt.Text()))
		}
		if diff := cmp.Diff(x.Options, got); diff != "" {
			fail("#%s options mismatch (-want +got):\n%s", x.Target, diff)
		}
	}
}

func (ru *run) expectOrder(x *OrderExpect, fail func(string, ...any)) {
	container, err := ru.el(x.Container)
	if err != nil {
		fail("%v", err)
		return
	}
	attr := x.Attr
	if attr == "" {
		attr = "data-id"
	}
	var got []string
	for _, child := range container.Children() {
		if child.HasAttribute(attr) {
			got = append(got, child.GetAttribute(attr))
		}
	}
	if diff := cmp.Diff(x.Want, got); diff != "" {
		fail("#%s order mismatch (-want +got):\n%s", x.Container, diff)
	}
}

// normalize maps a payload onto JSON's value space so YAML-decoded
// expectations compare equal to hook payloads ([]string vs []any, int vs
// float64).
func normalize(v map[string]any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
