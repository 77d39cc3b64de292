package scenario

import (
	"context"
	stderrors "errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/internal/regiondata"
	"github.com/vango-dev/livehooks/pkg/channel"
	"github.com/vango-dev/livehooks/pkg/hooks/standard"
	"github.com/vango-dev/livehooks/pkg/server"
)

const reorderScenario = `
name: reorder structure
html: |
  <ul id="list" phx-hook="Sortable">
    <li id="a" data-id="a">A</li>
    <li id="b" data-id="b">B</li>
    <li id="c" data-id="c">C</li>
  </ul>
steps:
  - drag: {source: a, over: b, y: [70]}
  - expect:
      push:
        event: update_structure_order
        payload: {ordered_ids: [b, a, c]}
      order: {container: list, want: [b, a, c]}
  - expect:
      pushes: {event: update_structure_order, count: 1}
`

const regionPage = `
  <select id="home_province" data-field-id="home" phx-hook="RegionSelectProvince">
    <option value="">-</option><option value="Bali">Bali</option>
  </select>
  <select id="home_city" data-field-id="home" phx-hook="RegionSelectCity"><option value="">-</option></select>
  <select id="home_district" data-field-id="home" phx-hook="RegionSelectDistrict"><option value="">-</option></select>
`

func newRunner() *Runner {
	return &Runner{Registry: standard.Hooks(standard.Options{})}
}

func TestRunReorder(t *testing.T) {
	sc, err := Parse([]byte(reorderScenario))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	res, err := newRunner().Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Steps != 3 {
		t.Errorf("Steps = %d, want 3", res.Steps)
	}
	if len(res.Pushed) != 1 || res.Pushed[0].Event != "update_structure_order" {
		t.Errorf("Pushed = %+v", res.Pushed)
	}
}

func TestRunResponses(t *testing.T) {
	src := `
name: cascading selects
html: |` + indent(regionPage) + `
responses:
  - on: handle_province_change
    reply:
      - event: update_cities
        payload:
          field_id: home
          cities: [{name: Badung}, {name: Denpasar}]
steps:
  - change: {target: home_province, value: Bali}
  - expect:
      push:
        event: handle_province_change
        payload: {field_id: home, province: Bali}
      element:
        target: home_city
        disabled: false
        options: ["-", Badung, Denpasar]
  - expect:
      element:
        target: home_district
        disabled: true
`
	sc, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	res, err := newRunner().Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(res.Received) != 1 || res.Received[0].Event != "update_cities" {
		t.Errorf("Received = %+v", res.Received)
	}
}

func TestRunDeliverAndAdvance(t *testing.T) {
	src := `
name: submit lock
html: |
  <div id="app" phx-hook="PageHook"><nav id="sidebar"></nav></div>
  <form id="f" phx-hook="FormSubmit">
    <input name="title" value="Survey">
    <button id="go" type="submit">Go</button>
  </form>
steps:
  - deliver: {event: sidebar_toggled, payload: {show: false}}
  - expect:
      element: {target: sidebar, has_class: [hidden]}
  - submit: f
  - expect:
      push: {event: submit-form, payload: {title: Survey}}
      element: {target: go, disabled: true}
  - advance: 1s
  - expect:
      element: {target: go, disabled: false}
`
	sc, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if _, err := newRunner().Run(context.Background(), sc); err != nil {
		t.Fatalf("Run error: %v", err)
	}
}

func TestRunReportsFailingStep(t *testing.T) {
	src := `
name: wrong order
html: |
  <ul id="list" phx-hook="Sortable">
    <li id="a" data-id="a">A</li>
    <li id="b" data-id="b">B</li>
  </ul>
steps:
  - drag: {source: a, over: b, y: [70]}
  - expect:
      order: {container: list, want: [a, b]}
      element:
        target: a
        attrs: {data-id: z, title: null}
`
	sc, err := Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	res, err := newRunner().Run(context.Background(), sc)

	var stepErr *StepError
	if !stderrors.As(err, &stepErr) {
		t.Fatalf("Run error = %v, want *StepError", err)
	}
	if stepErr.Index != 2 || stepErr.Kind != "expect" {
		t.Errorf("StepError = %d %s, want 2 expect", stepErr.Index, stepErr.Kind)
	}
	for _, want := range []string{"order mismatch", `#a[data-id] = "a", want "z"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
	if strings.Contains(err.Error(), "title") {
		t.Errorf("absent attribute reported as failure: %v", err)
	}
	if res == nil || res.Steps != 1 {
		t.Errorf("Result = %+v, want 1 completed step", res)
	}
}

func TestRunMissingTarget(t *testing.T) {
	sc := &Scenario{HTML: "<p></p>", Steps: []Step{{Click: "ghost"}}}
	_, err := newRunner().Run(context.Background(), sc)
	if err == nil || !strings.Contains(err.Error(), "no element #ghost") {
		t.Errorf("Run error = %v, want missing element", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		detail string
	}{
		{"no html", "name: x\nsteps: []\n", "no html"},
		{"two actions", "html: <p></p>\nsteps:\n  - {click: a, submit: b}\n", "step 1 sets 2 actions"},
		{"empty step", "html: <p></p>\nsteps:\n  - {}\n", "step 1 sets 0 actions"},
		{"response without event", "html: <p></p>\nresponses:\n  - reply: []\n", "response 0 has no event"},
		{"bad yaml", "html: [", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			if errors.CodeOf(err) != errors.CodeConfigInvalid {
				t.Fatalf("Parse() = %v, want %s", err, errors.CodeConfigInvalid)
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("Parse() = %q, want it to mention %q", err, tt.detail)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reorder.yaml")
	if err := os.WriteFile(path, []byte(reorderScenario), 0o644); err != nil {
		t.Fatal(err)
	}
	sc, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	var kinds []string
	for _, st := range sc.Steps {
		kinds = append(kinds, st.Kind())
	}
	if diff := cmp.Diff([]string{"drag", "expect", "expect"}, kinds); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "none.yaml")); errors.CodeOf(err) != errors.CodeConfigRead {
		t.Errorf("Load(missing) = %v, want %s", err, errors.CodeConfigRead)
	}
}

func TestRunLive(t *testing.T) {
	srv := server.New(server.Config{})
	regiondata.NewHandlers(regiondata.Builtin(), nil).Register(srv)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	defer srv.Close()

	sock, err := channel.Dial(context.Background(), "ws"+strings.TrimPrefix(ts.URL, "http")+"/live", channel.SocketConfig{})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer sock.Close()

	src := `
name: live cascade
html: |` + indent(regionPage) + `
steps:
  - change: {target: home_province, value: Bali}
  - wait: {event: update_cities, timeout: 2s}
  - expect:
      element:
        target: home_city
        disabled: false
        options: ["-", Badung, Denpasar]
  - change: {target: home_city, value: Denpasar}
  - wait: {event: update_districts, timeout: 2s}
  - expect:
      element:
        target: home_district
        options: ["-", Denpasar Barat, Denpasar Selatan]
`
	sc, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	r := newRunner()
	r.Channel = sock
	res, err := r.Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(res.Received) != 2 {
		t.Errorf("Received = %d pushes, want 2", len(res.Received))
	}
}

func TestWaitTimesOut(t *testing.T) {
	sc := &Scenario{HTML: "<p></p>", Steps: []Step{{Wait: &WaitStep{Event: "never", Timeout: 10_000_000}}}}
	_, err := newRunner().Run(context.Background(), sc)
	if err == nil || !strings.Contains(err.Error(), "no never push within 10ms") {
		t.Errorf("Run error = %v, want timeout", err)
	}
}

func indent(s string) string {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + strings.TrimLeft(l, " ")
	}
	return "\n" + strings.Join(lines, "\n")
}
