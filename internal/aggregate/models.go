// Package aggregate fans logical requests out to every registered site
// collector and merges the tagged results.
package aggregate

import "time"

// ErrorCode classifies a failed outbound call.
type ErrorCode string

const (
	ErrAuthFailed      ErrorCode = "auth_failed"
	ErrForbidden       ErrorCode = "access_denied"
	ErrServerError     ErrorCode = "server_error"
	ErrHTTPError       ErrorCode = "http_error"
	ErrTimeout         ErrorCode = "timeout"
	ErrConnectionError ErrorCode = "connection_error"
	// ErrBadResponse marks an upstream body that did not parse into the
	// expected shape.
	ErrBadResponse ErrorCode = "bad_response"
)

// BackendTag is the mandatory origin identity attached to every entity that
// crosses the merge step.
type BackendTag struct {
	BackendName   string `json:"backend_name"`
	BackendURL    string `json:"backend_url,omitempty"`
	PlaceLocation string `json:"place_location"`
}

// BackendError is a classified per-target failure. It never propagates as an
// error value; it rides inside Result so siblings are unaffected.
type BackendError struct {
	Code    ErrorCode  `json:"error_code"`
	Message string     `json:"error"`
	Backend BackendTag `json:"backend"`
}

// Result is the all-settled outcome of one outbound call: either a decoded
// value or a classified failure, always carrying backend identity.
type Result[T any] struct {
	Value        T
	Err          *BackendError
	Backend      BackendTag
	ResponseTime time.Duration
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Merged is an order-independent collection drawn from the succeeding targets
// of one fan-out, plus diagnostics for the failing ones.
type Merged[T any] struct {
	Items          []T
	BackendSources []string
	Places         []string
	Failures       []BackendError
}

// Device is a fingerprint device as reported by a site collector.
type Device struct {
	DeviceName  string `json:"device_name"`
	DeviceIP    string `json:"device_ip"`
	DevicePort  int    `json:"device_port"`
	IsConnected bool   `json:"is_connected"`
	LastSync    string `json:"last_sync,omitempty"`
	BackendTag
}

// User is a device-registered person. Duplicate (Name, UserID) pairs across
// collectors collapse into one entry whose Locations set accumulates every
// place the user was seen at.
type User struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Privilege int    `json:"privilege,omitempty"`
	BackendTag
	Locations []string `json:"locations,omitempty"`
}

// AttendanceRecord is one user-day of attendance at one device.
type AttendanceRecord struct {
	UserName      string  `json:"user_name"`
	Date          string  `json:"date"`
	DayName       string  `json:"day_name"`
	CheckIn       string  `json:"check_in"`
	CheckOut      string  `json:"check_out"`
	WorkingTime   string  `json:"working_time"`
	WorkingHours  float64 `json:"working_hours"`
	Status        string  `json:"status"`
	DeviceName    string  `json:"device_name"`
	ExpectedHours float64 `json:"expected_hours,omitempty"`
	BackendTag
}

// SummaryStats are the aggregate counters a collector reports for a range.
type SummaryStats struct {
	TotalRecords    int `json:"total_records"`
	WorkingDays     int `json:"working_days_count"`
	Holidays        int `json:"holiday_count"`
	PresentCount    int `json:"present_count"`
	AbsentCount     int `json:"absent_count"`
	IncompleteCount int `json:"incomplete_count"`
}

// PlaceSummary is one collector's attendance summary, tagged with its origin.
type PlaceSummary struct {
	OverallStats SummaryStats `json:"overall_stats"`
	BackendTag
}

// PlaceHealth is one collector's health as seen from the gateway.
type PlaceHealth struct {
	Status   string `json:"status"`
	Location string `json:"location"`
	URL      string `json:"url"`
	Error    string `json:"error,omitempty"`
}

// HealthReport aggregates collector health. Status is "healthy" while at
// least one collector responds healthy; callers needing stricter gating can
// compare HealthyPlaces against TotalPlaces.
type HealthReport struct {
	Status        string                 `json:"status"`
	TotalPlaces   int                    `json:"total_places"`
	HealthyPlaces int                    `json:"healthy_places"`
	Places        map[string]PlaceHealth `json:"place_health"`
}
