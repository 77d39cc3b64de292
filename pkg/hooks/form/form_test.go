package form_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/hooks"
	"github.com/vango-dev/livehooks/pkg/hooks/form"
	"github.com/vango-dev/livehooks/pkg/hooks/hookstest"
)

func newHarness(t *testing.T, opts form.Options, src string) *hookstest.Harness {
	return hookstest.New(t, form.Register(hooks.NewRegistry(), opts), src)
}

const signupForm = `<form id="signup" phx-hook="FormSubmit">
	<div><input id="name" name="name" required><span class="form-error" id="name-err"></span></div>
	<div><textarea id="bio" name="bio"></textarea></div>
	<div>
		<input type="radio" id="plan-a" name="plan" value="a" required>
		<input type="radio" id="plan-b" name="plan" value="b">
		<span class="form-error" id="plan-err"></span>
	</div>
	<div><input type="checkbox" id="news" name="news"></div>
	<div><input id="off" name="off" value="x" disabled></div>
	<button type="submit" id="send">Send</button>
	<button type="button" id="other">Other</button>
</form>`

func TestSubmitBlocksInvalid(t *testing.T) {
	h := newHarness(t, form.Options{}, signupForm)
	h.El("name").SetValue("   ")

	if h.El("signup").Submit() {
		t.Error("Expected submit default to be prevented")
	}
	if n := len(h.Pushes(form.EventSubmit)); n != 0 {
		t.Fatalf("Expected no submit push, got %d", n)
	}

	nameErr, planErr := h.El("name-err"), h.El("plan-err")
	if nameErr.Text() != "This field is required" || nameErr.Style("display") != "block" {
		t.Errorf("name error = %q (%s)", nameErr.Text(), nameErr.GetAttribute("style"))
	}
	if planErr.Text() != "Please select an option" {
		t.Errorf("plan error = %q", planErr.Text())
	}
	if !h.El("name").HasClass(form.ErrorClass) {
		t.Error("Expected error class on name")
	}
}

func TestSubmitPushesDataAndLocks(t *testing.T) {
	h := newHarness(t, form.Options{}, signupForm)
	h.El("name").SetValue("Ada")
	h.El("bio").SetValue("hi")
	h.El("plan-b").SetChecked(true)
	h.El("news").SetChecked(true)

	h.El("signup").Submit()

	pushes := h.Pushes(form.EventSubmit)
	if len(pushes) != 1 {
		t.Fatalf("Expected 1 submit push, got %d", len(pushes))
	}
	want := map[string]any{"name": "Ada", "bio": "hi", "plan": "b", "news": "on"}
	if diff := cmp.Diff(want, pushes[0].Payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
	if h.El("name-err").Style("display") != "none" {
		t.Error("Expected name error hidden")
	}

	send, other := h.El("send"), h.El("other")
	if !send.Disabled() {
		t.Error("Expected submit button disabled")
	}
	if other.Disabled() {
		t.Error("Expected plain button untouched")
	}

	h.Advance(999 * time.Millisecond)
	if !send.Disabled() {
		t.Error("Expected submit button disabled until 1s")
	}
	h.Advance(time.Millisecond)
	if send.Disabled() {
		t.Error("Expected submit button re-enabled after 1s")
	}
}

func TestReenableCancelledOnDestroy(t *testing.T) {
	h := hookstest.New(t, form.Register(hooks.NewRegistry(), form.Options{}),
		`<div id="root">`+signupForm+`</div>`)
	h.El("name").SetValue("Ada")
	h.El("plan-a").SetChecked(true)
	h.El("signup").Submit()
	send := h.El("send")

	h.Patch("root", `<p>done</p>`)
	h.Advance(2 * time.Second)
	if !send.Disabled() {
		t.Error("Expected the re-enable timer to die with the hook")
	}
}

func TestBlurValidatesField(t *testing.T) {
	h := newHarness(t, form.Options{Submit: form.SubmitOptions{RequiredMessage: "必填"}}, signupForm)
	name := h.El("name")

	name.Focus()
	name.Blur()
	if got := h.El("name-err").Text(); got != "必填" {
		t.Errorf("error text = %q, want custom message", got)
	}

	name.SetValue("x")
	name.Focus()
	name.Blur()
	if name.HasClass(form.ErrorClass) || h.El("name-err").Text() != "" {
		t.Error("Expected error cleared after a valid blur")
	}
	if h.El("plan-err").Text() != "" {
		t.Error("Expected blur to validate only the blurred field")
	}
}

func TestBlurValidationFollowsPatches(t *testing.T) {
	h := newHarness(t, form.Options{}, signupForm)
	signup := h.El("signup")
	if got := h.View.ListenerCount(signup); got != 3 {
		t.Fatalf("ListenerCount = %d, want 3", got)
	}
	old := h.El("name")

	h.Patch("signup", `<div><input id="email" name="email" required><span class="form-error" id="email-err"></span></div>
		<button type="submit" id="send">Send</button>`)
	if got := h.View.ListenerCount(signup); got != 2 {
		t.Errorf("ListenerCount after patch = %d, want 2", got)
	}
	if got := old.ListenerCount(dom.EventBlur); got != 0 {
		t.Errorf("removed field listeners = %d, want 0", got)
	}

	email := h.El("email")
	email.Focus()
	email.Blur()
	if !email.HasClass(form.ErrorClass) || h.El("email-err").Text() == "" {
		t.Error("Expected blur on a patched-in field to validate it")
	}
}

func TestData(t *testing.T) {
	doc := dom.MustParse(`<form id="f">
		<input name="a" value="1"><input name="a" value="2">
		<select name="s"><option value="x">X</option><option value="y" selected>Y</option></select>
		<input type="checkbox" name="c" value="yes">
		<input type="file" name="upload">
		<input type="submit" name="go" value="Go">
	</form>`)
	got := form.Data(doc.GetElementByID("f"))
	want := map[string]any{"a": "2", "s": "y"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Data mismatch (-want +got):\n%s", diff)
	}
}

const conditionEditor = `<div id="cond" phx-hook="ConditionLogicEditor">
	<button class="add-condition-btn" id="add"><i id="add-icon"></i></button>
	<button class="add-condition-group-btn" id="add-group"></button>
	<div class="condition-group" data-group-id="g1">
		<select class="condition-group-type-select" id="group-type" data-group-id="g1">
			<option value="and">AND</option><option value="or">OR</option>
		</select>
		<div class="condition" data-condition-id="c1">
			<select class="condition-source-select" id="source" data-condition-id="c1">
				<option value="">-</option><option value="item-9">Q9</option>
			</select>
			<select class="condition-operator-select" id="op" data-condition-id="c1">
				<option value="equals">=</option><option value="contains">contains</option>
			</select>
			<input class="condition-value-input" id="value" data-condition-id="c1">
			<button class="delete-condition-btn" id="delete" data-condition-id="c1"></button>
			<button class="delete-condition-btn" id="delete-broken"></button>
		</div>
	</div>
</div>
<button class="add-condition-btn" id="outside"></button>`

func TestConditionEditor(t *testing.T) {
	tests := []struct {
		name  string
		act   func(h *hookstest.Harness)
		event string
		want  map[string]any
	}{
		{"add", func(h *hookstest.Harness) { h.El("add").Click() }, form.EventAddCondition, map[string]any{}},
		{"add via icon", func(h *hookstest.Harness) { h.El("add-icon").Click() }, form.EventAddCondition, map[string]any{}},
		{"add group", func(h *hookstest.Harness) { h.El("add-group").Click() }, form.EventAddConditionGroup, map[string]any{}},
		{"delete", func(h *hookstest.Harness) { h.El("delete").Click() }, form.EventDeleteCondition,
			map[string]any{"condition_id": "c1"}},
		{"operator", func(h *hookstest.Harness) { h.El("op").Change("contains") }, form.EventUpdateOperator,
			map[string]any{"condition_id": "c1", "operator": "contains"}},
		{"source", func(h *hookstest.Harness) { h.El("source").Change("item-9") }, form.EventUpdateSource,
			map[string]any{"condition_id": "c1", "source_id": "item-9"}},
		{"value", func(h *hookstest.Harness) { h.El("value").Change("42") }, form.EventUpdateValue,
			map[string]any{"condition_id": "c1", "value": "42"}},
		{"group type", func(h *hookstest.Harness) { h.El("group-type").Change("or") }, form.EventUpdateGroupType,
			map[string]any{"group_id": "g1", "group_type": "or"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, form.Options{}, conditionEditor)
			tt.act(h)
			pushes := h.Channel.Pushes()
			if len(pushes) != 1 {
				t.Fatalf("Expected 1 push, got %d", len(pushes))
			}
			if pushes[0].Event != tt.event {
				t.Errorf("event = %q, want %q", pushes[0].Event, tt.event)
			}
			if diff := cmp.Diff(tt.want, pushes[0].Payload); diff != "" {
				t.Errorf("payload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConditionEditorIgnoresStrays(t *testing.T) {
	h := newHarness(t, form.Options{}, conditionEditor)

	h.El("outside").Click()
	h.El("delete-broken").Click()
	h.El("cond").Click()

	if n := len(h.Channel.Pushes()); n != 0 {
		t.Errorf("Expected no pushes, got %d", n)
	}
	if !h.Logs.Has(errors.CodeMissingIdentifier) {
		t.Errorf("codes = %v, want %s for the broken delete", h.Logs.Codes(), errors.CodeMissingIdentifier)
	}
}

const builder = `<div id="builder" phx-hook="FormBuilder">
	<select class="form-item-type-selector" id="type">
		<option value="text">Text</option><option value="radio">Radio</option>
	</select>
	<div class="form-builder-items" id="items">
		<div class="form-builder-item" data-item-id="i1" id="i1"><span class="drag-handle" id="h1"></span><button class="toggle-required" id="req1"></button></div>
		<div class="form-builder-item" data-item-id="i2" id="i2"><span class="drag-handle" id="h2"></span><button class="toggle-required" id="req2"></button></div>
	</div>
</div>`

func TestBuilderControls(t *testing.T) {
	h := newHarness(t, form.Options{}, builder)

	h.El("type").Change("radio")
	h.El("req2").Click()

	if diff := cmp.Diff(map[string]any{"type": "radio"}, h.Pushes(form.EventSelectItemType)[0].Payload); diff != "" {
		t.Errorf("select-item-type mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"item_id": "i2"}, h.Pushes(form.EventToggleRequired)[0].Payload); diff != "" {
		t.Errorf("toggle-required mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilderReorders(t *testing.T) {
	h := newHarness(t, form.Options{}, builder)
	hook, ok := h.View.Hook(h.El("builder"))
	if !ok {
		t.Fatal("Expected FormBuilder mounted")
	}
	e := hook.(*form.Builder).Engine()
	if e == nil || e.Container() != h.El("items") {
		t.Fatal("Expected the engine bound to .form-builder-items")
	}
	if h.El("h1").GetAttribute("draggable") != "true" {
		t.Error("Expected the drag handle to be draggable")
	}

	e.Start(h.El("i1"))
	e.Move(h.El("i2").BoundingClientRect().MidY())
	e.End()

	pushes := h.Pushes("reorder-items")
	if len(pushes) != 1 {
		t.Fatalf("reorder-items = %d, want 1", len(pushes))
	}
	if diff := cmp.Diff(map[string]any{"from_index": 0, "to_index": 1}, pushes[0].Payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestItemEditorLogsMount(t *testing.T) {
	h := newHarness(t, form.Options{}, `<div id="editor" phx-hook="FormItemEditor"></div>`)
	found := false
	for _, m := range h.Logs.Messages() {
		if m == "item editor mounted" {
			found = true
		}
	}
	if !found {
		t.Errorf("messages = %v", h.Logs.Messages())
	}
	if n := len(h.Channel.Pushes()); n != 0 {
		t.Errorf("Expected no pushes, got %d", n)
	}
}

type memUploader struct {
	got  []string
	fail string
}

func (u *memUploader) Upload(_ context.Context, f dom.File) (string, error) {
	if f.Name == u.fail {
		return "", fmt.Errorf("disk full")
	}
	u.got = append(u.got, f.Name)
	return "ref-" + f.Name, nil
}

func TestFileDrop(t *testing.T) {
	up := &memUploader{fail: "broken.png"}
	h := newHarness(t, form.Options{Uploader: up},
		`<div id="zone" phx-hook="FileDrop" data-accept="image/*, .pdf" data-max-size="1000"></div>`)
	zone := h.El("zone")

	zone.Dispatch(&dom.Event{Type: dom.EventDragEnter})
	if !zone.HasClass(form.DragOverClass) {
		t.Error("Expected drag-over on dragenter")
	}
	zone.Dispatch(&dom.Event{Type: dom.EventDragLeave})
	if zone.HasClass(form.DragOverClass) {
		t.Error("Expected drag-over removed on dragleave")
	}

	if zone.DropFiles(
		dom.File{Name: "cat.png", Type: "image/png", Size: 10},
		dom.File{Name: "doc.PDF", Type: "application/pdf", Size: 20},
		dom.File{Name: "notes.txt", Type: "text/plain", Size: 5},
		dom.File{Name: "huge.jpg", Type: "image/jpeg", Size: 5000},
		dom.File{Name: "broken.png", Type: "image/png", Size: 1},
	) {
		t.Error("Expected drop default to be prevented")
	}
	if zone.HasClass(form.DragOverClass) {
		t.Error("Expected drag-over removed after drop")
	}

	pushes := h.Pushes(form.EventFilesDropped)
	if len(pushes) != 1 {
		t.Fatalf("Expected 1 push, got %d", len(pushes))
	}
	want := map[string]any{
		"files": []map[string]any{
			{"name": "cat.png", "type": "image/png", "size": int64(10), "ref": "ref-cat.png"},
			{"name": "doc.PDF", "type": "application/pdf", "size": int64(20), "ref": "ref-doc.PDF"},
		},
		"rejected": []map[string]any{
			{"name": "notes.txt", "reason": form.RejectType},
			{"name": "huge.jpg", "reason": form.RejectSize},
			{"name": "broken.png", "reason": form.RejectUpload},
		},
	}
	if diff := cmp.Diff(want, pushes[0].Payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
	if !h.Logs.Has(errors.CodeUploadStore) {
		t.Errorf("codes = %v, want %s", h.Logs.Codes(), errors.CodeUploadStore)
	}
}

// gatedUploader blocks every upload until release is closed.
type gatedUploader struct {
	started chan string
	release chan struct{}
}

func (u *gatedUploader) Blocking() bool { return true }

func (u *gatedUploader) Upload(ctx context.Context, f dom.File) (string, error) {
	u.started <- f.Name
	select {
	case <-u.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if f.Name == "broken.png" {
		return "", fmt.Errorf("disk full")
	}
	return "ref-" + f.Name, nil
}

func TestFileDropBlockingUploaderKeepsLoopRunning(t *testing.T) {
	up := &gatedUploader{started: make(chan string, 4), release: make(chan struct{})}
	h := newHarness(t, form.Options{Uploader: up}, `<div id="zone" phx-hook="FileDrop"></div>`)
	zone := h.El("zone")

	zone.DropFiles(
		dom.File{Name: "cat.png", Type: "image/png", Size: 10},
		dom.File{Name: "broken.png", Type: "image/png", Size: 1},
	)
	select {
	case <-up.started:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the upload to start")
	}

	// The upload is parked; the loop still serves events.
	ran := false
	h.View.Post(func() { ran = true })
	h.Settle()
	if !ran {
		t.Error("Expected the loop to run while an upload is in flight")
	}
	zone.Dispatch(&dom.Event{Type: dom.EventDragEnter})
	if !zone.HasClass(form.DragOverClass) {
		t.Error("Expected drag-over while an upload is in flight")
	}
	if n := len(h.Pushes(form.EventFilesDropped)); n != 0 {
		t.Fatalf("Expected no push before the upload finishes, got %d", n)
	}

	close(up.release)
	deadline := time.Now().Add(2 * time.Second)
	for len(h.Pushes(form.EventFilesDropped)) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for files_dropped")
		}
		time.Sleep(5 * time.Millisecond)
		h.Settle()
	}

	want := map[string]any{
		"files": []map[string]any{
			{"name": "cat.png", "type": "image/png", "size": int64(10), "ref": "ref-cat.png"},
		},
		"rejected": []map[string]any{
			{"name": "broken.png", "reason": form.RejectUpload},
		},
	}
	if diff := cmp.Diff(want, h.Pushes(form.EventFilesDropped)[0].Payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
	if !h.Logs.Has(errors.CodeUploadStore) {
		t.Errorf("codes = %v, want %s", h.Logs.Codes(), errors.CodeUploadStore)
	}
}

func TestFileDropEventOverrideWithoutUploader(t *testing.T) {
	h := newHarness(t, form.Options{}, `<div id="zone" phx-hook="FileDrop" data-event="avatar_dropped"></div>`)

	h.El("zone").DropFiles(dom.File{Name: "me.gif", Type: "image/gif", Size: 3})
	h.El("zone").DropFiles()

	pushes := h.Pushes("avatar_dropped")
	if len(pushes) != 1 {
		t.Fatalf("Expected 1 push, got %d", len(pushes))
	}
	want := map[string]any{
		"files":    []map[string]any{{"name": "me.gif", "type": "image/gif", "size": int64(3), "ref": ""}},
		"rejected": []map[string]any{},
	}
	if diff := cmp.Diff(want, pushes[0].Payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestAcceptMatch(t *testing.T) {
	tests := []struct {
		accept string
		file   dom.File
		want   bool
	}{
		{"", dom.File{Name: "any.bin"}, true},
		{".png", dom.File{Name: "A.PNG"}, true},
		{".png", dom.File{Name: "a.jpg", Type: "image/png"}, false},
		{"image/*", dom.File{Name: "x", Type: "image/webp"}, true},
		{"image/*", dom.File{Name: "x", Type: "video/mp4"}, false},
		{"application/pdf, .doc", dom.File{Name: "x.doc"}, true},
		{"application/pdf", dom.File{Name: "x", Type: "Application/PDF"}, true},
	}
	for _, tt := range tests {
		if got := form.ParseAccept(tt.accept).Match(tt.file); got != tt.want {
			t.Errorf("ParseAccept(%q).Match(%+v) = %v, want %v", tt.accept, tt.file, got, tt.want)
		}
	}
}
