package regiondata

import (
	"context"
	"log/slog"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/hooks"
	"github.com/vango-dev/livehooks/pkg/hooks/region"
	"github.com/vango-dev/livehooks/pkg/server"
)

// Handlers answers region select events from a Dataset.
type Handlers struct {
	data   *Dataset
	logger *slog.Logger
}

// NewHandlers creates handlers over data. A nil logger uses slog.Default().
func NewHandlers(data *Dataset, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{data: data, logger: logger.With("component", "regiondata")}
}

// Register installs the province, city and district handlers on srv.
func (h *Handlers) Register(srv *server.Server) {
	srv.Handle(region.EventProvinceChange, h.provinceChanged)
	srv.Handle(region.EventCityChange, h.cityChanged)
	srv.Handle(region.EventDistrictChange, h.districtChanged)
}

// CitiesFor builds the update_cities payload. An unknown province yields
// an empty list, which leaves the city select disabled.
func (h *Handlers) CitiesFor(p hooks.Payload) (map[string]any, error) {
	field, ok := p.String("field_id")
	if !ok {
		return nil, errors.New(errors.CodeMalformedPayload).WithDetail("field_id is not a string")
	}
	province, _ := p.String("province")
	cities, _ := h.data.Cities(province)
	return map[string]any{"field_id": field, "cities": named(cities)}, nil
}

// DistrictsFor builds the update_districts payload.
func (h *Handlers) DistrictsFor(p hooks.Payload) (map[string]any, error) {
	field, ok := p.String("field_id")
	if !ok {
		return nil, errors.New(errors.CodeMalformedPayload).WithDetail("field_id is not a string")
	}
	province, _ := p.String("province")
	city, _ := p.String("city")
	districts, _ := h.data.Districts(province, city)
	return map[string]any{"field_id": field, "districts": named(districts)}, nil
}

func (h *Handlers) provinceChanged(ctx context.Context, s *server.Session, p hooks.Payload) error {
	out, err := h.CitiesFor(p)
	if err != nil {
		return err
	}
	return s.Push(ctx, region.EventUpdateCities, out)
}

func (h *Handlers) cityChanged(ctx context.Context, s *server.Session, p hooks.Payload) error {
	out, err := h.DistrictsFor(p)
	if err != nil {
		return err
	}
	return s.Push(ctx, region.EventUpdateDistricts, out)
}

func (h *Handlers) districtChanged(_ context.Context, s *server.Session, p hooks.Payload) error {
	field, _ := p.String("field_id")
	district, _ := p.String("district")
	h.logger.Info("district selected", "session", s.ID, "field_id", field, "district", district)
	return nil
}

func named(names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = map[string]any{"name": n}
	}
	return out
}
