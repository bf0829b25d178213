// Package handler wires the gateway's aggregation endpoints to the router.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"attendgate/internal/aggregate"
	"attendgate/internal/registry"
	dErrors "attendgate/pkg/domain-errors"
	"attendgate/pkg/platform/httputil"
)

const serviceVersion = "1.0.0"

// Service defines the aggregation operations the handler exposes.
type Service interface {
	AllDevices(ctx context.Context) aggregate.Merged[aggregate.Device]
	AllAttendance(ctx context.Context, params aggregate.AttendanceParams) aggregate.Merged[aggregate.AttendanceRecord]
	AllUsers(ctx context.Context) aggregate.Merged[aggregate.User]
	AllSummaries(ctx context.Context, params aggregate.AttendanceParams) aggregate.Merged[aggregate.PlaceSummary]
	Health(ctx context.Context) aggregate.HealthReport

	PlaceDevices(ctx context.Context, place string) (aggregate.Merged[aggregate.Device], error)
	PlaceAttendance(ctx context.Context, place string, params aggregate.AttendanceParams) (aggregate.Merged[aggregate.AttendanceRecord], error)
	PlaceUsers(ctx context.Context, place string) (aggregate.Merged[aggregate.User], error)
	PlaceSummary(ctx context.Context, place string, params aggregate.AttendanceParams) (aggregate.Merged[aggregate.PlaceSummary], error)

	DeviceAttendance(ctx context.Context, device string, params aggregate.AttendanceParams) (aggregate.Merged[aggregate.AttendanceRecord], error)
	DeviceInfo(ctx context.Context, device string) (aggregate.Device, error)
}

// Handler serves the gateway's public API.
type Handler struct {
	service  Service
	registry *registry.Registry
}

// New constructs the gateway handler.
func New(service Service, reg *registry.Registry) *Handler {
	return &Handler{service: service, registry: reg}
}

// RegisterPublic mounts the endpoints that bypass authentication.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/", h.HandleRoot)
	r.Get("/health", h.HandleHealth)
}

// Register mounts the authenticated aggregation endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/places", h.HandlePlaces)
	r.Get("/backends/list", h.HandleBackendsList)
	r.Get("/holidays", h.HandleHolidays)
	r.Get("/holidays/{year}", h.HandleHolidaysByYear)

	r.Get("/devices/all", h.HandleAllDevices)
	r.Get("/attendance/all", h.HandleAllAttendance)
	r.Get("/users/all", h.HandleAllUsers)
	r.Get("/summary/all", h.HandleAllSummaries)

	r.Get("/place/{name}/devices", h.HandlePlaceDevices)
	r.Get("/place/{name}/attendance", h.HandlePlaceAttendance)
	r.Get("/place/{name}/users", h.HandlePlaceUsers)
	r.Get("/place/{name}/summary", h.HandlePlaceSummary)

	r.Get("/device/{name}/attendance", h.HandleDeviceAttendance)
	r.Get("/device/{name}/info", h.HandleDeviceInfo)
}

// HandleRoot handles GET / requests.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	places := make([]PlaceInfo, 0, h.registry.Len())
	for _, t := range h.registry.All() {
		places = append(places, placeInfo(t))
	}

	httputil.WriteJSON(w, http.StatusOK, RootResponse{
		Service:     "Attendance Aggregation Gateway",
		Version:     serviceVersion,
		Status:      "running",
		TotalPlaces: h.registry.Len(),
		Places:      places,
		Endpoints: map[string][]string{
			"unified_all": {
				"/devices/all", "/attendance/all", "/users/all", "/summary/all", "/health",
			},
			"place_specific": {
				"/place/{place_name}/devices", "/place/{place_name}/attendance",
				"/place/{place_name}/users", "/place/{place_name}/summary",
			},
			"device_specific": {
				"/device/{device_name}/attendance", "/device/{device_name}/info",
			},
		},
	})
}

// HandleHealth handles GET /health requests. Aggregated health is reported
// with 200 regardless of backend state; the body carries the verdict.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.Health(r.Context()))
}

// HandlePlaces handles GET /places requests.
func (h *Handler) HandlePlaces(w http.ResponseWriter, r *http.Request) {
	places := make([]PlaceInfo, 0, h.registry.Len())
	for _, t := range h.registry.All() {
		places = append(places, placeInfo(t))
	}
	httputil.WriteJSON(w, http.StatusOK, PlacesResponse{
		Success:     true,
		Places:      places,
		TotalPlaces: len(places),
		Message:     fmt.Sprintf("Retrieved %d places", len(places)),
	})
}

// HandleBackendsList handles GET /backends/list requests. Same data as
// /places plus the per-target timeout.
func (h *Handler) HandleBackendsList(w http.ResponseWriter, r *http.Request) {
	backends := make([]PlaceInfo, 0, h.registry.Len())
	for _, t := range h.registry.All() {
		info := placeInfo(t)
		info.Timeout = int(t.Timeout.Seconds())
		backends = append(backends, info)
	}
	httputil.WriteJSON(w, http.StatusOK, PlacesResponse{
		Success:    true,
		Backends:   backends,
		TotalCount: len(backends),
		Message:    fmt.Sprintf("Retrieved %d backend configurations", len(backends)),
	})
}

// HandleHolidays handles GET /holidays requests.
func (h *Handler) HandleHolidays(w http.ResponseWriter, r *http.Request) {
	holidays := h.registry.Holidays()
	httputil.WriteJSON(w, http.StatusOK, HolidaysResponse{
		Success:       true,
		Holidays:      emptied(holidays),
		TotalHolidays: len(holidays),
		Message:       fmt.Sprintf("Retrieved %d holidays", len(holidays)),
	})
}

// HandleHolidaysByYear handles GET /holidays/{year} requests.
func (h *Handler) HandleHolidaysByYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "year must be numeric"))
		return
	}
	holidays := h.registry.HolidaysForYear(year)
	httputil.WriteJSON(w, http.StatusOK, HolidaysResponse{
		Success:       true,
		Holidays:      emptied(holidays),
		TotalHolidays: len(holidays),
		Year:          year,
		Message:       fmt.Sprintf("Retrieved %d holidays for year %d", len(holidays), year),
	})
}

// HandleAllDevices handles GET /devices/all requests.
func (h *Handler) HandleAllDevices(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, devicesResponse(h.service.AllDevices(r.Context())))
}

// HandleAllAttendance handles GET /attendance/all requests.
func (h *Handler) HandleAllAttendance(w http.ResponseWriter, r *http.Request) {
	params, ok := attendanceParams(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, attendanceResponse(h.service.AllAttendance(r.Context(), params)))
}

// HandleAllUsers handles GET /users/all requests.
func (h *Handler) HandleAllUsers(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, usersResponse(h.service.AllUsers(r.Context())))
}

// HandleAllSummaries handles GET /summary/all requests.
func (h *Handler) HandleAllSummaries(w http.ResponseWriter, r *http.Request) {
	params, ok := attendanceParams(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summariesResponse(h.service.AllSummaries(r.Context(), params)))
}

// HandlePlaceDevices handles GET /place/{name}/devices requests.
func (h *Handler) HandlePlaceDevices(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.PlaceDevices(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, devicesResponse(m))
}

// HandlePlaceAttendance handles GET /place/{name}/attendance requests.
func (h *Handler) HandlePlaceAttendance(w http.ResponseWriter, r *http.Request) {
	params, ok := attendanceParams(w, r)
	if !ok {
		return
	}
	m, err := h.service.PlaceAttendance(r.Context(), chi.URLParam(r, "name"), params)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, attendanceResponse(m))
}

// HandlePlaceUsers handles GET /place/{name}/users requests.
func (h *Handler) HandlePlaceUsers(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.PlaceUsers(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, usersResponse(m))
}

// HandlePlaceSummary handles GET /place/{name}/summary requests.
func (h *Handler) HandlePlaceSummary(w http.ResponseWriter, r *http.Request) {
	params, ok := attendanceParams(w, r)
	if !ok {
		return
	}
	m, err := h.service.PlaceSummary(r.Context(), chi.URLParam(r, "name"), params)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summariesResponse(m))
}

// HandleDeviceAttendance handles GET /device/{name}/attendance requests.
func (h *Handler) HandleDeviceAttendance(w http.ResponseWriter, r *http.Request) {
	params, ok := attendanceParams(w, r)
	if !ok {
		return
	}
	m, err := h.service.DeviceAttendance(r.Context(), chi.URLParam(r, "name"), params)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, attendanceResponse(m))
}

// HandleDeviceInfo handles GET /device/{name}/info requests.
func (h *Handler) HandleDeviceInfo(w http.ResponseWriter, r *http.Request) {
	device, err := h.service.DeviceInfo(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, device)
}

// attendanceParams decodes the shared date-range query filters. start_date
// and end_date are mandatory; missing either one is a 400.
func attendanceParams(w http.ResponseWriter, r *http.Request) (aggregate.AttendanceParams, bool) {
	q := r.URL.Query()
	params := aggregate.AttendanceParams{
		StartDate:          q.Get("start_date"),
		EndDate:            q.Get("end_date"),
		UserName:           q.Get("user_name"),
		AdditionalHolidays: q.Get("additional_holidays"),
	}
	if params.StartDate == "" || params.EndDate == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "start_date and end_date are required"))
		return aggregate.AttendanceParams{}, false
	}
	return params, true
}
