package standard_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/livehooks/pkg/hooks/hookstest"
	"github.com/vango-dev/livehooks/pkg/hooks/standard"
)

func TestHooksRegistersBundle(t *testing.T) {
	r := standard.Hooks(standard.Options{})
	if diff := cmp.Diff(standard.Names, r.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

const page = `<html><head><meta name="viewport" content="width=device-width"></head><body>
<div id="app" phx-hook="PageHook">
	<nav id="sidebar"></nav>
	<ul id="structure" phx-hook="Sortable">
		<li id="s1" data-id="s1"><span class="drag-handle"></span></li>
		<li id="s2" data-id="s2"><span class="drag-handle"></span></li>
	</ul>
	<select id="home_province" data-field-id="home" phx-hook="RegionSelectProvince">
		<option value="">-</option><option value="Sichuan">Sichuan</option>
	</select>
	<select id="home_city" data-field-id="home" phx-hook="RegionSelectCity"><option value="">-</option></select>
	<select id="home_district" data-field-id="home" phx-hook="RegionSelectDistrict"><option value="">-</option></select>
	<div class="input-container"><textarea id="msg" phx-hook="MessageInput"></textarea></div>
</div>
</body></html>`

func TestBundleMountsPage(t *testing.T) {
	h := hookstest.New(t, standard.Hooks(standard.Options{}), page)
	if n := h.View.Len(); n != 6 {
		t.Errorf("mounted = %d, want 6", n)
	}
	if h.Logs.Has("H005") {
		t.Error("Expected every hook on the page to be known")
	}

	h.El("s1").DragTo(h.El("s2"), h.El("s2").BoundingClientRect().MidY())
	h.Settle()
	pushes := h.Pushes("update_structure_order")
	if len(pushes) != 1 {
		t.Fatalf("update_structure_order = %d, want 1", len(pushes))
	}
	if diff := cmp.Diff(map[string]any{"ordered_ids": []string{"s2", "s1"}}, pushes[0].Payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	h.El("home_province").Change("Sichuan")
	h.Deliver("update_cities", map[string]any{"field_id": "home", "cities": []any{map[string]any{"name": "Chengdu"}}})
	if h.El("home_city").Disabled() {
		t.Error("Expected city enabled after update_cities")
	}

	h.Deliver("sidebar_toggled", map[string]any{"show": false})
	if !h.El("sidebar").HasClass("hidden") {
		t.Error("Expected sidebar hidden")
	}
}
