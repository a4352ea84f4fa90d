// Package policy decides whether a requester may decrypt a file right now.
//
// Three independent signals are combined: physical proximity to an approved
// location, presence on an approved network, and a permitted time-of-day
// window. An approved work-from-home override bypasses all three.
// Evaluation is a pure function of its inputs and never returns an error:
// access requests originate from less-trusted clients and must degrade
// gracefully, not crash the decision path.
package policy

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// earthRadiusMeters is the mean Earth radius used by the great-circle
// distance computation.
const earthRadiusMeters = 6371000

// Defaults applied to a config with missing fields.
const (
	defaultRadiusMeters = 100
	defaultStartTime    = "09:00"
	defaultEndTime      = "17:00"
)

// Config is the admin-controlled access policy: the approved geofence, the
// approved network name and the allowed time-of-day window. Times are local
// wall-clock "HH:MM" strings; windows spanning midnight are not supported.
type Config struct {
	Latitude       float64 `json:"latitude" koanf:"latitude"`
	Longitude      float64 `json:"longitude" koanf:"longitude"`
	Radius         float64 `json:"radius" koanf:"radius"`
	AllowedNetwork string  `json:"allowed_network" koanf:"allowed_network"`
	StartTime      string  `json:"start_time" koanf:"start_time"`
	EndTime        string  `json:"end_time" koanf:"end_time"`
}

// Request is one decrypt request as claimed by the requester. It exists only
// for the duration of a single evaluation.
type Request struct {
	Identity  string
	Latitude  float64
	Longitude float64
	Network   string
	FileID    string
}

// Validations holds the per-signal diagnostic messages. All three are always
// populated, pass or fail, so the audit record is complete.
type Validations struct {
	Location string `json:"location"`
	Network  string `json:"network"`
	Time     string `json:"time"`
}

// Decision is the outcome of one evaluation. Reason is "Access granted" when
// all signals pass, otherwise every failing signal's diagnostic joined with
// "; " in location, network, time order.
type Decision struct {
	Allowed     bool        `json:"allowed"`
	Reason      string      `json:"reason"`
	Validations Validations `json:"validations"`
}

// Evaluator evaluates access requests. The time signal is checked at
// decision time, not request-submission time; Now is replaceable in tests.
type Evaluator struct {
	Now func() time.Time
}

// NewEvaluator returns an Evaluator using the system clock.
func NewEvaluator() *Evaluator {
	return &Evaluator{Now: time.Now}
}

// Evaluate applies the access policy to one request. When overrideActive is
// set the request is allowed outright and all signal checks are bypassed;
// otherwise all three signals are computed (never short-circuited) and the
// request is allowed only when every one of them passes.
func (e *Evaluator) Evaluate(req Request, cfg Config, overrideActive bool) Decision {
	if overrideActive {
		return Decision{
			Allowed: true,
			Reason:  "Work from home approved",
			Validations: Validations{
				Location: "bypassed",
				Network:  "bypassed",
				Time:     "bypassed",
			},
		}
	}

	cfg = cfg.withDefaults()

	locOK, locMsg := validateLocation(req.Latitude, req.Longitude, cfg)
	netOK, netMsg := validateNetwork(req.Network, cfg.AllowedNetwork)
	timeOK, timeMsg := validateTime(e.Now(), cfg.StartTime, cfg.EndTime)

	var reasons []string
	if !locOK {
		reasons = append(reasons, locMsg)
	}
	if !netOK {
		reasons = append(reasons, netMsg)
	}
	if !timeOK {
		reasons = append(reasons, timeMsg)
	}

	allowed := locOK && netOK && timeOK
	reason := "Access granted"
	if !allowed {
		reason = strings.Join(reasons, "; ")
	}

	return Decision{
		Allowed: allowed,
		Reason:  reason,
		Validations: Validations{
			Location: locMsg,
			Network:  netMsg,
			Time:     timeMsg,
		},
	}
}

// Distance returns the great-circle distance in meters between two
// coordinates using the haversine formula on a spherical earth.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1rad := lat1 * math.Pi / 180
	lat2rad := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1rad)*math.Cos(lat2rad)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

func validateLocation(lat, lon float64, cfg Config) (bool, string) {
	distance := Distance(lat, lon, cfg.Latitude, cfg.Longitude)
	if distance <= cfg.Radius {
		return true, fmt.Sprintf("Location validated (distance: %.2fm)", distance)
	}
	return false, fmt.Sprintf("Outside allowed area (distance: %.2fm, max: %gm)", distance, cfg.Radius)
}

func validateNetwork(claimed, allowed string) (bool, string) {
	if claimed == "" {
		return false, "Network name not provided"
	}
	if strings.EqualFold(claimed, allowed) {
		return true, fmt.Sprintf("Network validated (%s)", claimed)
	}
	return false, fmt.Sprintf("Unauthorized network (%s)", claimed)
}

// validateTime compares zero-padded "HH:MM" strings lexicographically with
// inclusive bounds. A window crossing midnight (start > end) can never pass;
// same-day windows only.
func validateTime(now time.Time, start, end string) (bool, string) {
	current := now.Format("15:04")
	if start <= current && current <= end {
		return true, fmt.Sprintf("Time validated (%s)", current)
	}
	return false, fmt.Sprintf("Outside allowed hours (current: %s, allowed: %s-%s)", current, start, end)
}

func (c Config) withDefaults() Config {
	if c.Radius <= 0 {
		c.Radius = defaultRadiusMeters
	}
	if c.StartTime == "" {
		c.StartTime = defaultStartTime
	}
	if c.EndTime == "" {
		c.EndTime = defaultEndTime
	}
	return c
}
