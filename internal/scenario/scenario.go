// Package scenario replays scripted user interactions against a hook
// View and checks the pushes and DOM state they produce.
//
// A scenario is a YAML document:
//
//	name: reorder structure
//	html: |
//	  <ul id="list" phx-hook="Sortable">
//	    <li id="a" data-id="a">A</li>
//	    <li id="b" data-id="b">B</li>
//	  </ul>
//	steps:
//	  - drag: {source: a, over: b, y: [70]}
//	  - expect:
//	      push:
//	        event: update_structure_order
//	        payload: {ordered_ids: [b, a]}
//
// Scenarios run against an in-memory channel, optionally answering pushes
// from the responses table, or against a live server.
package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/channel"
)

// Scenario is one scripted session.
type Scenario struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Viewport    *Viewport  `yaml:"viewport,omitempty"`
	HTML        string     `yaml:"html"`
	Responses   []Response `yaml:"responses,omitempty"`
	Steps       []Step     `yaml:"steps"`
}

// Viewport overrides the document viewport.
type Viewport struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Response answers a push named On with Reply when running in memory.
type Response struct {
	On    string            `yaml:"on"`
	Reply []channel.Message `yaml:"reply"`
}

// Step is one action or expectation. Exactly one field is set.
type Step struct {
	Click    string           `yaml:"click,omitempty"`
	Submit   string           `yaml:"submit,omitempty"`
	Focus    string           `yaml:"focus,omitempty"`
	Blur     string           `yaml:"blur,omitempty"`
	Input    *ValueStep       `yaml:"input,omitempty"`
	Change   *ValueStep       `yaml:"change,omitempty"`
	Check    *CheckStep       `yaml:"check,omitempty"`
	KeyDown  *KeyStep         `yaml:"keydown,omitempty"`
	Drag     *DragStep        `yaml:"drag,omitempty"`
	Drop     *DropStep        `yaml:"drop,omitempty"`
	Deliver  *channel.Message `yaml:"deliver,omitempty"`
	Patch    *PatchStep       `yaml:"patch,omitempty"`
	Advance  time.Duration    `yaml:"advance,omitempty"`
	Keyboard float64          `yaml:"keyboard,omitempty"`
	Wait     *WaitStep        `yaml:"wait,omitempty"`
	Expect   *Expect          `yaml:"expect,omitempty"`
}

// ValueStep sets a control's value and fires input or change.
type ValueStep struct {
	Target string `yaml:"target"`
	Value  string `yaml:"value"`
}

// CheckStep sets a checkbox or radio and fires change.
type CheckStep struct {
	Target  string `yaml:"target"`
	Checked bool   `yaml:"checked"`
}

// KeyStep fires a keydown.
type KeyStep struct {
	Target string `yaml:"target"`
	Key    string `yaml:"key"`
	Shift  bool   `yaml:"shift,omitempty"`
}

// DragStep drags Source over Over through pointer positions Y and drops.
type DragStep struct {
	Source string    `yaml:"source"`
	Over   string    `yaml:"over"`
	Y      []float64 `yaml:"y"`
}

// DropStep drops files on Target.
type DropStep struct {
	Target string     `yaml:"target"`
	Files  []FileSpec `yaml:"files"`
}

// FileSpec describes a dropped file. Size defaults to len(Data).
type FileSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Size int64  `yaml:"size,omitempty"`
	Data string `yaml:"data,omitempty"`
}

// PatchStep replaces Target's children with HTML.
type PatchStep struct {
	Target string `yaml:"target"`
	HTML   string `yaml:"html"`
}

// WaitStep waits for the next server push named Event that no earlier
// wait consumed.
type WaitStep struct {
	Event   string        `yaml:"event"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Expect checks recorded pushes or DOM state. Every set field must hold.
type Expect struct {
	// Push matches the most recent push of Event. A nil Payload only
	// checks that one was sent.
	Push *channel.Message `yaml:"push,omitempty"`

	// Pushes checks how many pushes of an event were sent.
	Pushes *CountExpect `yaml:"pushes,omitempty"`

	Element *ElementExpect `yaml:"element,omitempty"`
	Order   *OrderExpect   `yaml:"order,omitempty"`
}

// CountExpect checks a push count.
type CountExpect struct {
	Event string `yaml:"event"`
	Count int    `yaml:"count"`
}

// ElementExpect checks one element. Nil fields are not checked. An Attrs
// entry with a null value expects the attribute to be absent.
type ElementExpect struct {
	Target     string             `yaml:"target"`
	Attrs      map[string]*string `yaml:"attrs,omitempty"`
	Styles     map[string]string  `yaml:"styles,omitempty"`
	HasClass   []string           `yaml:"has_class,omitempty"`
	LacksClass []string           `yaml:"lacks_class,omitempty"`
	Value      *string            `yaml:"value,omitempty"`
	Text       *string            `yaml:"text,omitempty"`
	Disabled   *bool              `yaml:"disabled,omitempty"`
	Options    []string           `yaml:"options,omitempty"`
}

// OrderExpect checks the identifiers of a container's children in DOM
// order.
type OrderExpect struct {
	Container string   `yaml:"container"`
	Attr      string   `yaml:"attr,omitempty"`
	Want      []string `yaml:"want"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeConfigRead).WithDetail(path).Wrap(err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).Wrap(err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks that the scenario has markup and that every step sets
// exactly one field.
func (s *Scenario) Validate() error {
	if s.HTML == "" {
		return errors.New(errors.CodeConfigInvalid).WithDetail("scenario has no html")
	}
	for i, r := range s.Responses {
		if r.On == "" {
			return errors.New(errors.CodeConfigInvalid).WithDetailf("response %d has no event", i)
		}
	}
	for i, st := range s.Steps {
		kinds := st.kinds()
		if len(kinds) != 1 {
			return errors.New(errors.CodeConfigInvalid).WithDetailf("step %d sets %d actions %v, want 1", i+1, len(kinds), kinds)
		}
	}
	return nil
}

// Kind names the step's action.
func (s Step) Kind() string {
	if k := s.kinds(); len(k) == 1 {
		return k[0]
	}
	return "invalid"
}

func (s Step) kinds() []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(s.Click != "", "click")
	add(s.Submit != "", "submit")
	add(s.Focus != "", "focus")
	add(s.Blur != "", "blur")
	add(s.Input != nil, "input")
	add(s.Change != nil, "change")
	add(s.Check != nil, "check")
	add(s.KeyDown != nil, "keydown")
	add(s.Drag != nil, "drag")
	add(s.Drop != nil, "drop")
	add(s.Deliver != nil, "deliver")
	add(s.Patch != nil, "patch")
	add(s.Advance > 0, "advance")
	add(s.Keyboard > 0, "keyboard")
	add(s.Wait != nil, "wait")
	add(s.Expect != nil, "expect")
	return out
}
