package aggregate

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"attendgate/internal/platform/metrics"
	"attendgate/internal/registry"
	"attendgate/internal/security"
	"attendgate/internal/security/audit"
	dErrors "attendgate/pkg/domain-errors"
)

// Upstream payload shapes, per the collector REST contract. Each carries its
// own success flag; a 200 with success=false is classified as a bad response
// so it never pollutes a merge.

type devicesPayload struct {
	Success bool             `json:"success"`
	Devices []upstreamDevice `json:"devices"`
}

type upstreamDevice struct {
	DeviceName  string `json:"device_name"`
	DeviceIP    string `json:"device_ip"`
	DevicePort  int    `json:"device_port"`
	IsConnected bool   `json:"is_connected"`
	LastSync    string `json:"last_sync"`
}

type attendancePayload struct {
	Success bool               `json:"success"`
	Data    []AttendanceRecord `json:"data"`
}

type usersPayload struct {
	Success bool           `json:"success"`
	Users   []upstreamUser `json:"users"`
}

type upstreamUser struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Privilege int    `json:"privilege"`
}

type summaryPayload struct {
	Success      bool         `json:"success"`
	OverallStats SummaryStats `json:"overall_stats"`
}

type healthPayload struct {
	Status string `json:"status"`
}

type deviceInfoPayload struct {
	Success bool `json:"success"`
	upstreamDevice
}

func (p deviceInfoPayload) ok() bool { return p.Success }

func (p devicesPayload) ok() bool    { return p.Success }
func (p attendancePayload) ok() bool { return p.Success }
func (p usersPayload) ok() bool      { return p.Success }
func (p summaryPayload) ok() bool    { return p.Success }

// Service is the aggregation gateway: fan-out, merge, dedup, and direct
// per-place calls on top of the read-only registry.
type Service struct {
	registry *registry.Registry
	client   *Client
	logger   *slog.Logger
	audit    *audit.Recorder
	metrics  *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithAudit(recorder *audit.Recorder) Option {
	return func(s *Service) { s.audit = recorder }
}

func WithServiceMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates the aggregation service.
func New(reg *registry.Registry, client *Client, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{registry: reg, client: client, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AttendanceParams are the caller-supplied filters for attendance queries.
type AttendanceParams struct {
	StartDate          string
	EndDate            string
	UserName           string
	DeviceName         string
	AdditionalHolidays string
}

func (p AttendanceParams) values() url.Values {
	v := url.Values{}
	v.Set("start_date", p.StartDate)
	v.Set("end_date", p.EndDate)
	if p.UserName != "" {
		v.Set("user_name", p.UserName)
	}
	if p.DeviceName != "" {
		v.Set("device_name", p.DeviceName)
	}
	if p.AdditionalHolidays != "" {
		v.Set("additional_holidays", p.AdditionalHolidays)
	}
	return v
}

// AllDevices fans out /devices and merges every reachable collector's fleet.
func (s *Service) AllDevices(ctx context.Context) Merged[Device] {
	results := settle(ctx, s, fanOut[devicesPayload](ctx, s.client, s.registry.All(), "/devices", nil))
	return counted(s, merge(results, func(p devicesPayload, tag BackendTag) []Device {
		return tagDevices(p.Devices, tag)
	}))
}

// AllAttendance fans out /attendance/all with the given filters.
func (s *Service) AllAttendance(ctx context.Context, params AttendanceParams) Merged[AttendanceRecord] {
	results := settle(ctx, s, fanOut[attendancePayload](ctx, s.client, s.registry.All(), "/attendance/all", params.values()))
	return counted(s, merge(results, tagRecords))
}

// AllUsers fans out /users/all and deduplicates on (name, user_id). The first
// occurrence keeps its identity fields; later duplicates contribute their
// place to the entry's Locations set instead of being discarded outright.
func (s *Service) AllUsers(ctx context.Context) Merged[User] {
	results := settle(ctx, s, fanOut[usersPayload](ctx, s.client, s.registry.All(), "/users/all", nil))
	m := merge(results, func(p usersPayload, tag BackendTag) []User {
		return tagUsers(p.Users, tag)
	})

	type userKey struct{ name, id string }
	index := make(map[userKey]int)
	deduped := m.Items[:0]
	for _, u := range m.Items {
		key := userKey{name: u.Name, id: u.UserID}
		if at, dup := index[key]; dup {
			if s.metrics != nil {
				s.metrics.FanoutDuplicates.Inc()
			}
			existing := &deduped[at]
			if !containsString(existing.Locations, u.PlaceLocation) {
				existing.Locations = append(existing.Locations, u.PlaceLocation)
			}
			continue
		}
		index[key] = len(deduped)
		u.Locations = []string{u.PlaceLocation}
		deduped = append(deduped, u)
	}
	m.Items = deduped
	return counted(s, m)
}

// AllSummaries fans out /attendance/summary/all; each collector contributes
// one tagged summary entity.
func (s *Service) AllSummaries(ctx context.Context, params AttendanceParams) Merged[PlaceSummary] {
	results := settle(ctx, s, fanOut[summaryPayload](ctx, s.client, s.registry.All(), "/attendance/summary/all", params.values()))
	return counted(s, merge(results, func(p summaryPayload, tag BackendTag) []PlaceSummary {
		return []PlaceSummary{{OverallStats: p.OverallStats, BackendTag: tag}}
	}))
}

// Health fans out /health. Overall status is "healthy" while at least one
// collector is; per-place detail lets operators gate on stricter policies.
func (s *Service) Health(ctx context.Context) HealthReport {
	results := fanOut[healthPayload](ctx, s.client, s.registry.All(), "/health", nil)

	report := HealthReport{
		TotalPlaces: s.registry.Len(),
		Places:      make(map[string]PlaceHealth, len(results)),
	}
	for _, r := range results {
		ph := PlaceHealth{
			Status:   "unhealthy",
			Location: r.Backend.PlaceLocation,
			URL:      r.Backend.BackendURL,
		}
		switch {
		case !r.OK():
			ph.Error = r.Err.Message
		case r.Value.Status == "healthy":
			ph.Status = "healthy"
			report.HealthyPlaces++
		}
		report.Places[r.Backend.BackendName] = ph
	}

	if report.HealthyPlaces > 0 {
		report.Status = "healthy"
	} else {
		report.Status = "unhealthy"
	}
	s.logger.DebugContext(ctx, "health fan-out complete",
		"healthy", report.HealthyPlaces, "total", report.TotalPlaces)
	return report
}

// PlaceDevices calls a single named collector's /devices.
func (s *Service) PlaceDevices(ctx context.Context, place string) (Merged[Device], error) {
	return directCall(ctx, s, place, "/devices", nil, func(p devicesPayload, tag BackendTag) []Device {
		return tagDevices(p.Devices, tag)
	})
}

// PlaceAttendance calls a single named collector's /attendance/all.
func (s *Service) PlaceAttendance(ctx context.Context, place string, params AttendanceParams) (Merged[AttendanceRecord], error) {
	return directCall(ctx, s, place, "/attendance/all", params.values(), tagRecords)
}

// PlaceUsers calls a single named collector's /users/all, no dedup needed.
func (s *Service) PlaceUsers(ctx context.Context, place string) (Merged[User], error) {
	return directCall(ctx, s, place, "/users/all", nil, func(p usersPayload, tag BackendTag) []User {
		return tagUsers(p.Users, tag)
	})
}

// PlaceSummary calls a single named collector's /attendance/summary/all.
func (s *Service) PlaceSummary(ctx context.Context, place string, params AttendanceParams) (Merged[PlaceSummary], error) {
	return directCall(ctx, s, place, "/attendance/summary/all", params.values(), func(p summaryPayload, tag BackendTag) []PlaceSummary {
		return []PlaceSummary{{OverallStats: p.OverallStats, BackendTag: tag}}
	})
}

// DeviceAttendance fans out a device-filtered attendance query and keeps the
// records from whichever collectors know the device.
func (s *Service) DeviceAttendance(ctx context.Context, device string, params AttendanceParams) (Merged[AttendanceRecord], error) {
	params.DeviceName = device
	results := settle(ctx, s, fanOut[attendancePayload](ctx, s.client, s.registry.All(), "/attendance", params.values()))
	m := counted(s, merge(results, tagRecords))

	kept := m.Items[:0]
	for _, rec := range m.Items {
		if rec.DeviceName == device {
			kept = append(kept, rec)
		}
	}
	m.Items = kept
	if len(m.Items) == 0 {
		return m, dErrors.Newf(dErrors.CodeNotFound, "no attendance data found for device %q", device)
	}
	return m, nil
}

type settleable interface {
	ok() bool
}

// directCall resolves the named target, performs one call, and merges it like
// a single-target fan-out so tagging stays uniform.
func directCall[P settleable, T any](ctx context.Context, s *Service, place, endpoint string, params url.Values, extract func(P, BackendTag) []T) (Merged[T], error) {
	target, err := s.registry.Get(place)
	if err != nil {
		return Merged[T]{}, err
	}

	results := settle(ctx, s, []Result[P]{Call[P](ctx, s.client, target, endpoint, params)})
	m := counted(s, merge(results, extract))
	return m, nil
}

// DeviceInfo fans out a device lookup and returns the first collector that
// knows the device by name.
func (s *Service) DeviceInfo(ctx context.Context, device string) (Device, error) {
	params := url.Values{}
	params.Set("device_name", device)
	results := settle(ctx, s, fanOut[deviceInfoPayload](ctx, s.client, s.registry.All(), "/device/info", params))

	for _, r := range results {
		if r.OK() && r.Value.DeviceName == device {
			d := tagDevices([]upstreamDevice{r.Value.upstreamDevice}, r.Backend)
			return d[0], nil
		}
	}
	return Device{}, dErrors.Newf(dErrors.CodeNotFound, "device %q not found in any place", device)
}

// settle converts 200-but-success=false payloads into classified failures and
// records every failure as a backend security event.
func settle[P settleable](ctx context.Context, s *Service, results []Result[P]) []Result[P] {
	for i := range results {
		r := &results[i]
		if r.OK() && !r.Value.ok() {
			r.Err = &BackendError{Code: ErrBadResponse, Message: "upstream reported failure", Backend: r.Backend}
		}
		if !r.OK() && s.audit != nil {
			s.audit.Record(ctx, security.EventBackendFailure, security.SeverityMedium, "gateway",
				r.Backend.BackendName+": "+string(r.Err.Code)+" "+r.Err.Message)
		}
	}
	return results
}

func counted[T any](s *Service, m Merged[T]) Merged[T] {
	if s.metrics != nil {
		s.metrics.FanoutMerged.Add(float64(len(m.Items)))
	}
	return m
}

func tagDevices(devices []upstreamDevice, tag BackendTag) []Device {
	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		out = append(out, Device{
			DeviceName:  d.DeviceName,
			DeviceIP:    d.DeviceIP,
			DevicePort:  d.DevicePort,
			IsConnected: d.IsConnected,
			LastSync:    d.LastSync,
			BackendTag:  tag,
		})
	}
	return out
}

func tagRecords(p attendancePayload, tag BackendTag) []AttendanceRecord {
	out := make([]AttendanceRecord, 0, len(p.Data))
	for _, rec := range p.Data {
		rec.BackendTag = tag
		out = append(out, rec)
	}
	return out
}

func tagUsers(users []upstreamUser, tag BackendTag) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, User{
			UserID:     strings.TrimSpace(u.UserID),
			Name:       strings.TrimSpace(u.Name),
			Privilege:  u.Privilege,
			BackendTag: tag,
		})
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
