package message_test

import (
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/hooks"
	"github.com/vango-dev/livehooks/pkg/hooks/hookstest"
	"github.com/vango-dev/livehooks/pkg/hooks/message"
)

const chatPage = `<html><head><meta name="viewport" content="width=device-width, initial-scale=1.0"></head><body>
<div class="messages-container" id="messages">
	<div class="msg">one</div><div class="msg">two</div><div class="msg">three</div>
</div>
<div class="input-container" id="bar">
	<textarea id="input" phx-hook="MessageInput"></textarea>
</div>
<textarea id="live" phx-hook="LiveMessageInput"></textarea>
<input id="edit" value="rename me" phx-hook="EditInput">
</body></html>`

func newHarness(t *testing.T, opts ...hookstest.Option) *hookstest.Harness {
	return hookstest.New(t, message.Register(hooks.NewRegistry(), message.Options{}), chatPage, opts...)
}

func TestResizeCaps(t *testing.T) {
	tests := []struct {
		name   string
		mobile bool
		value  string
		want   string
	}{
		{"one line", false, "hi", "36px"},
		{"three lines", false, "a\nb\nc", "76px"},
		{"desktop cap", false, strings.Repeat("x\n", 9), "120px"},
		{"mobile cap", true, strings.Repeat("x\n", 9), "80px"},
		{"mobile short", true, "a\nb", "56px"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []hookstest.Option
			if tt.mobile {
				opts = append(opts, hookstest.Mobile())
			}
			h := newHarness(t, opts...)
			live := h.El("live")
			live.Input(tt.value)
			if got := live.Style("height"); got != tt.want {
				t.Errorf("height = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShiftEnterInsertsNewline(t *testing.T) {
	h := newHarness(t)
	live := h.El("live")
	live.SetValue("helloworld")
	live.SetSelectionRange(5, 5)

	if live.KeyDown("Enter", true) {
		t.Error("Expected Shift+Enter default to be prevented")
	}
	if live.Value() != "hello\nworld" {
		t.Errorf("Value() = %q", live.Value())
	}
	if live.SelectionStart() != 6 || live.SelectionEnd() != 6 {
		t.Errorf("caret = %d..%d, want 6..6", live.SelectionStart(), live.SelectionEnd())
	}

	live.SetSelectionRange(0, 5)
	live.KeyDown("Enter", true)
	if live.Value() != "\n\nworld" {
		t.Errorf("Value() = %q, want selection replaced", live.Value())
	}

	if !live.KeyDown("Enter", false) {
		t.Error("Expected plain Enter to pass through")
	}
}

func TestShiftEnterStopsPropagation(t *testing.T) {
	h := newHarness(t)
	bubbled := false
	h.Doc.Body().AddEventListener(dom.EventKeyDown, func(*dom.Event) { bubbled = true })

	h.El("live").KeyDown("Enter", true)
	if bubbled {
		t.Error("Expected Shift+Enter not to bubble")
	}
}

func TestClearMessageInput(t *testing.T) {
	h := newHarness(t)
	live, input := h.El("live"), h.El("input")
	live.Input("a\nb\nc")
	input.Input("draft")

	h.Deliver(message.EventClear, map[string]any{})

	for _, el := range []*dom.Element{live, input} {
		if el.Value() != "" {
			t.Errorf("#%s value = %q, want cleared", el.ID(), el.Value())
		}
		if el.Style("height") != "36px" {
			t.Errorf("#%s height = %q, want 36px", el.ID(), el.Style("height"))
		}
	}
}

func TestMobileFocusLocksViewport(t *testing.T) {
	h := newHarness(t, hookstest.Mobile())
	meta := h.Doc.Query("meta[name=viewport]")
	bar, msgs := h.El("bar"), h.El("messages")

	h.El("input").Focus()
	if meta.GetAttribute("content") != message.ViewportLocked {
		t.Errorf("content = %q", meta.GetAttribute("content"))
	}
	if !bar.HasClass(message.KeyboardActiveClass) {
		t.Error("Expected keyboard-active on the input container")
	}
	if msgs.ScrollTop() != 120 {
		t.Errorf("ScrollTop = %v, want 120", msgs.ScrollTop())
	}

	msgs.SetScrollTop(0)
	h.Advance(99 * time.Millisecond)
	if msgs.ScrollTop() != 0 {
		t.Error("Expected the second scroll to wait 100ms")
	}
	h.Advance(time.Millisecond)
	if msgs.ScrollTop() != 120 {
		t.Errorf("ScrollTop = %v after 100ms, want 120", msgs.ScrollTop())
	}

	h.El("input").Blur()
	if meta.GetAttribute("content") != message.ViewportRestored {
		t.Errorf("content = %q after blur", meta.GetAttribute("content"))
	}
	if bar.HasClass(message.KeyboardActiveClass) {
		t.Error("Expected keyboard-active removed on blur")
	}
}

func TestMobileKeyboardRepositionsBar(t *testing.T) {
	h := newHarness(t, hookstest.Mobile())
	bar := h.El("bar")

	h.Doc.ResizeVisualViewport(400)
	if bar.Style("position") != "" {
		t.Error("Expected no repositioning while the input is not focused")
	}

	h.El("input").Focus()
	h.Doc.ResizeVisualViewport(400)
	if bar.Style("position") != "absolute" || bar.Style("bottom") != "267px" {
		t.Errorf("style = %q", bar.GetAttribute("style"))
	}

	h.Doc.ResizeVisualViewport(667)
	if bar.Style("position") != "fixed" || bar.Style("bottom") != "0" {
		t.Errorf("style = %q", bar.GetAttribute("style"))
	}
}

func TestDesktopSkipsKeyboardHandling(t *testing.T) {
	h := newHarness(t)
	meta := h.Doc.Query("meta[name=viewport]")
	before := meta.GetAttribute("content")

	h.El("input").Focus()
	if meta.GetAttribute("content") != before {
		t.Error("Expected desktop focus to leave the viewport meta alone")
	}
	if h.Doc.WindowListenerCount(dom.EventViewportResize) != 0 {
		t.Error("Expected no visual viewport listener on desktop")
	}
}

func TestEditInputSelectsAfterDelay(t *testing.T) {
	h := newHarness(t)
	edit := h.El("edit")
	if edit.SelectionEnd() != 0 {
		t.Fatal("Expected no selection before the delay")
	}
	h.Advance(50 * time.Millisecond)
	if edit.SelectionStart() != 0 || edit.SelectionEnd() != len("rename me") {
		t.Errorf("selection = %d..%d", edit.SelectionStart(), edit.SelectionEnd())
	}
}

func TestDestroyRemovesWindowListener(t *testing.T) {
	h := newHarness(t, hookstest.Mobile())
	if h.Doc.WindowListenerCount(dom.EventViewportResize) != 1 {
		t.Fatalf("window listeners = %d, want 1", h.Doc.WindowListenerCount(dom.EventViewportResize))
	}
	h.Patch("bar", `<p>closed</p>`)
	if h.Doc.WindowListenerCount(dom.EventViewportResize) != 0 {
		t.Error("Expected destroy to remove the window listener")
	}
}
