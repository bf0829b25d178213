package handler

import (
	"fmt"

	"attendgate/internal/aggregate"
	"attendgate/internal/registry"
)

// DevicesResponse is the HTTP response for unified and per-place device
// listings.
type DevicesResponse struct {
	Success        bool                     `json:"success"`
	Devices        []aggregate.Device       `json:"devices"`
	TotalDevices   int                      `json:"total_devices"`
	BackendSources []string                 `json:"backend_sources"`
	Places         []string                 `json:"places"`
	Diagnostics    []aggregate.BackendError `json:"diagnostics,omitempty"`
	Message        string                   `json:"message"`
}

// AttendanceResponse is the HTTP response for attendance listings.
type AttendanceResponse struct {
	Success        bool                         `json:"success"`
	Data           []aggregate.AttendanceRecord `json:"data"`
	TotalRecords   int                          `json:"total_records"`
	BackendSources []string                     `json:"backend_sources"`
	Places         []string                     `json:"places"`
	Diagnostics    []aggregate.BackendError     `json:"diagnostics,omitempty"`
	Message        string                       `json:"message"`
}

// UsersResponse is the HTTP response for user listings.
type UsersResponse struct {
	Success        bool                     `json:"success"`
	Users          []aggregate.User         `json:"users"`
	TotalUsers     int                      `json:"total_users"`
	BackendSources []string                 `json:"backend_sources"`
	Places         []string                 `json:"places"`
	Diagnostics    []aggregate.BackendError `json:"diagnostics,omitempty"`
	Message        string                   `json:"message"`
}

// SummariesResponse is the HTTP response for attendance summaries.
type SummariesResponse struct {
	Success        bool                     `json:"success"`
	Summaries      []aggregate.PlaceSummary `json:"summaries"`
	TotalPlaces    int                      `json:"total_places"`
	BackendSources []string                 `json:"backend_sources"`
	Places         []string                 `json:"places"`
	Diagnostics    []aggregate.BackendError `json:"diagnostics,omitempty"`
	Message        string                   `json:"message"`
}

// PlaceInfo is one registered collector as exposed to clients.
type PlaceInfo struct {
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	URL         string   `json:"url"`
	Devices     []string `json:"devices"`
	Description string   `json:"description,omitempty"`
	Timeout     int      `json:"timeout,omitempty"`
}

// PlacesResponse is the HTTP response for GET /places and /backends/list.
type PlacesResponse struct {
	Success     bool        `json:"success"`
	Places      []PlaceInfo `json:"places,omitempty"`
	Backends    []PlaceInfo `json:"backends,omitempty"`
	TotalPlaces int         `json:"total_places,omitempty"`
	TotalCount  int         `json:"total_backends,omitempty"`
	Message     string      `json:"message"`
}

// HolidaysResponse is the HTTP response for holiday listings.
type HolidaysResponse struct {
	Success       bool               `json:"success"`
	Holidays      []registry.Holiday `json:"holidays"`
	TotalHolidays int                `json:"total_holidays"`
	Year          int                `json:"year,omitempty"`
	Message       string             `json:"message"`
}

// RootResponse describes the gateway and its surface.
type RootResponse struct {
	Service     string              `json:"service"`
	Version     string              `json:"version"`
	Status      string              `json:"status"`
	TotalPlaces int                 `json:"total_places"`
	Places      []PlaceInfo         `json:"places"`
	Endpoints   map[string][]string `json:"endpoints"`
}

func devicesResponse(m aggregate.Merged[aggregate.Device]) DevicesResponse {
	return DevicesResponse{
		Success:        true,
		Devices:        emptied(m.Items),
		TotalDevices:   len(m.Items),
		BackendSources: emptied(m.BackendSources),
		Places:         emptied(m.Places),
		Diagnostics:    m.Failures,
		Message:        fmt.Sprintf("Retrieved %d devices from %d places", len(m.Items), len(m.BackendSources)),
	}
}

func attendanceResponse(m aggregate.Merged[aggregate.AttendanceRecord]) AttendanceResponse {
	return AttendanceResponse{
		Success:        true,
		Data:           emptied(m.Items),
		TotalRecords:   len(m.Items),
		BackendSources: emptied(m.BackendSources),
		Places:         emptied(m.Places),
		Diagnostics:    m.Failures,
		Message:        fmt.Sprintf("Retrieved %d attendance records from %d places", len(m.Items), len(m.BackendSources)),
	}
}

func usersResponse(m aggregate.Merged[aggregate.User]) UsersResponse {
	return UsersResponse{
		Success:        true,
		Users:          emptied(m.Items),
		TotalUsers:     len(m.Items),
		BackendSources: emptied(m.BackendSources),
		Places:         emptied(m.Places),
		Diagnostics:    m.Failures,
		Message:        fmt.Sprintf("Retrieved %d unique users from %d places", len(m.Items), len(m.BackendSources)),
	}
}

func summariesResponse(m aggregate.Merged[aggregate.PlaceSummary]) SummariesResponse {
	return SummariesResponse{
		Success:        true,
		Summaries:      emptied(m.Items),
		TotalPlaces:    len(m.Items),
		BackendSources: emptied(m.BackendSources),
		Places:         emptied(m.Places),
		Diagnostics:    m.Failures,
		Message:        fmt.Sprintf("Retrieved summaries from %d places", len(m.BackendSources)),
	}
}

func placeInfo(t *registry.Target) PlaceInfo {
	return PlaceInfo{
		Name:        t.Name,
		Location:    t.Location,
		URL:         t.BaseURL,
		Devices:     emptied(t.Devices),
		Description: t.Description,
	}
}

// emptied keeps list fields as [] instead of null in JSON.
func emptied[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
