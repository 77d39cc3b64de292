package hooks

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	noop := func() Hook { return Func(func(*Context) {}) }
	r.Register("Sortable", noop).Register("FileDrop", noop).Register("PageHook", noop)

	want := []string{"FileDrop", "PageHook", "Sortable"}
	if diff := cmp.Diff(want, r.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := r.Lookup("Missing"); ok {
		t.Error("Lookup(Missing) = true, want false")
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
}

func TestRegisterRejectsEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected Register with an empty name to panic")
		}
	}()
	NewRegistry().Register("", func() Hook { return nil })
}

func TestAttribute(t *testing.T) {
	a := Attribute("Sortable")
	if a.Key != "phx-hook" || a.Val != "Sortable" {
		t.Errorf("Attribute() = %+v", a)
	}
}

func TestPayloadAccessors(t *testing.T) {
	p := Payload{
		"field_id": "addr",
		"show":     true,
		"count":    float64(3),
		"half":     1.5,
		"ids":      []any{"a", "b"},
		"mixed":    []any{"a", 1},
		"cities":   []any{map[string]any{"name": "Hangzhou"}},
		"typed":    []map[string]any{{"name": "Ningbo"}},
	}

	if s, ok := p.String("field_id"); !ok || s != "addr" {
		t.Errorf("String(field_id) = %q, %v", s, ok)
	}
	if _, ok := p.String("show"); ok {
		t.Error("String(show) should reject a bool")
	}
	if b, ok := p.Bool("show"); !ok || !b {
		t.Errorf("Bool(show) = %v, %v", b, ok)
	}
	if n, ok := p.Int("count"); !ok || n != 3 {
		t.Errorf("Int(count) = %d, %v", n, ok)
	}
	if _, ok := p.Int("half"); ok {
		t.Error("Int(half) should reject a fraction")
	}
	if ids, ok := p.Strings("ids"); !ok || len(ids) != 2 {
		t.Errorf("Strings(ids) = %v, %v", ids, ok)
	}
	if _, ok := p.Strings("mixed"); ok {
		t.Error("Strings(mixed) should reject a non-string item")
	}
	if objs, ok := p.Objects("cities"); !ok || objs[0]["name"] != "Hangzhou" {
		t.Errorf("Objects(cities) = %v, %v", objs, ok)
	}
	if objs, ok := p.Objects("typed"); !ok || len(objs) != 1 {
		t.Errorf("Objects(typed) = %v, %v", objs, ok)
	}
	if _, ok := p.Objects("ids"); ok {
		t.Error("Objects(ids) should reject strings")
	}
	if p.Has("missing") || !p.Has("show") {
		t.Error("Has() mismatch")
	}
	var nilPayload Payload
	if _, ok := nilPayload.String("x"); ok {
		t.Error("nil payload should have no keys")
	}
}

func TestLoopFlushRunsNestedPosts(t *testing.T) {
	l := NewLoop(nil)
	var order []int
	l.Post(func() {
		order = append(order, 1)
		l.Post(func() { order = append(order, 3) })
	})
	l.Post(func() { order = append(order, 2) })

	if n := l.Flush(); n != 3 {
		t.Errorf("Flush() = %d, want 3", n)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestLoopRecoversPanics(t *testing.T) {
	l := NewLoop(nil)
	ran := false
	l.Post(func() { panic("boom") })
	l.Post(func() { ran = true })
	l.Flush()
	if !ran {
		t.Error("Expected the loop to continue after a panicking task")
	}
}

func TestLoopRun(t *testing.T) {
	l := NewLoop(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	ran := make(chan struct{})
	l.Post(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected Run to execute posted tasks")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected Run to return after cancel")
	}
}
