package policy

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evaluatorAt returns an evaluator whose clock is pinned to the given
// wall-clock time.
func evaluatorAt(hhmm string) *Evaluator {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(err)
	}
	fixed := time.Date(2025, time.March, 3, t.Hour(), t.Minute(), 0, 0, time.UTC)
	return &Evaluator{Now: func() time.Time { return fixed }}
}

func officeConfig() Config {
	return Config{
		Latitude:       10.0,
		Longitude:      76.0,
		Radius:         100,
		AllowedNetwork: "Office",
		StartTime:      "09:00",
		EndTime:        "17:00",
	}
}

func TestEvaluateAllSignalsPass(t *testing.T) {
	e := evaluatorAt("10:30")
	req := Request{Identity: "alice", Latitude: 10.0, Longitude: 76.0, Network: "Office"}

	d := e.Evaluate(req, officeConfig(), false)

	assert.True(t, d.Allowed)
	assert.Equal(t, "Access granted", d.Reason)
	assert.Contains(t, d.Validations.Location, "Location validated")
	assert.Contains(t, d.Validations.Network, "Network validated")
	assert.Contains(t, d.Validations.Time, "Time validated")
}

func TestEvaluateUnauthorizedNetwork(t *testing.T) {
	e := evaluatorAt("10:30")
	req := Request{Identity: "alice", Latitude: 10.0, Longitude: 76.0, Network: "Guest"}

	d := e.Evaluate(req, officeConfig(), false)

	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "Unauthorized")
	// The other two diagnostics still read as passing.
	assert.Contains(t, d.Validations.Location, "Location validated")
	assert.Contains(t, d.Validations.Time, "Time validated")
}

func TestNetworkCaseInsensitive(t *testing.T) {
	e := evaluatorAt("10:30")
	cfg := officeConfig()
	cfg.AllowedNetwork = "OfficeWiFi"

	for _, name := range []string{"OfficeWiFi", "officewifi", "OFFICEWIFI"} {
		req := Request{Latitude: 10.0, Longitude: 76.0, Network: name}
		d := e.Evaluate(req, cfg, false)
		assert.True(t, d.Allowed, "network %q", name)
	}
}

func TestNetworkEmptyAlwaysFails(t *testing.T) {
	e := evaluatorAt("10:30")
	cfg := officeConfig()
	cfg.AllowedNetwork = ""

	req := Request{Latitude: 10.0, Longitude: 76.0, Network: ""}
	d := e.Evaluate(req, cfg, false)

	assert.False(t, d.Allowed)
	assert.Equal(t, "Network name not provided", d.Validations.Network)
}

func TestDistanceBoundary(t *testing.T) {
	e := evaluatorAt("10:30")
	cfg := officeConfig()

	// A point offset north of the configured center; its exact haversine
	// distance becomes the configured radius, so the request sits exactly
	// on the boundary.
	req := Request{Latitude: 10.001, Longitude: 76.0, Network: "Office"}
	boundary := Distance(req.Latitude, req.Longitude, cfg.Latitude, cfg.Longitude)
	require.Greater(t, boundary, 0.0)

	cfg.Radius = boundary
	d := e.Evaluate(req, cfg, false)
	assert.True(t, d.Allowed, "distance == radius must be allowed")

	cfg.Radius = boundary - 0.01
	d = e.Evaluate(req, cfg, false)
	assert.False(t, d.Allowed, "distance just over radius must be denied")
	assert.Contains(t, d.Reason, "Outside allowed area")
}

func TestTimeWindowInclusive(t *testing.T) {
	cfg := officeConfig()
	req := Request{Latitude: 10.0, Longitude: 76.0, Network: "Office"}

	cases := []struct {
		clock   string
		allowed bool
	}{
		{"08:59", false},
		{"09:00", true},
		{"12:00", true},
		{"17:00", true},
		{"17:01", false},
		{"23:30", false},
	}
	for _, tc := range cases {
		d := evaluatorAt(tc.clock).Evaluate(req, cfg, false)
		assert.Equal(t, tc.allowed, d.Allowed, "clock %s", tc.clock)
	}
}

func TestTimeWindowNoMidnightWrap(t *testing.T) {
	// start > end can never pass under lexicographic comparison; overnight
	// windows are deliberately unsupported.
	cfg := officeConfig()
	cfg.StartTime = "22:00"
	cfg.EndTime = "06:00"
	req := Request{Latitude: 10.0, Longitude: 76.0, Network: "Office"}

	for _, clock := range []string{"23:00", "03:00", "12:00"} {
		d := evaluatorAt(clock).Evaluate(req, cfg, false)
		assert.False(t, d.Allowed, "clock %s", clock)
	}
}

func TestOverrideAbsolute(t *testing.T) {
	e := evaluatorAt("03:00")
	// Wrong location, wrong network, outside hours: override still wins.
	req := Request{Identity: "bob", Latitude: -45.0, Longitude: 170.0, Network: "CoffeeShop"}

	d := e.Evaluate(req, officeConfig(), true)

	assert.True(t, d.Allowed)
	assert.Equal(t, "Work from home approved", d.Reason)
	assert.Equal(t, "bypassed", d.Validations.Location)
	assert.Equal(t, "bypassed", d.Validations.Network)
	assert.Equal(t, "bypassed", d.Validations.Time)
}

func TestReasonJoinsFailuresInOrder(t *testing.T) {
	e := evaluatorAt("20:00")
	req := Request{Latitude: 50.0, Longitude: 50.0, Network: "Guest"}

	d := e.Evaluate(req, officeConfig(), false)

	require.False(t, d.Allowed)
	parts := strings.Split(d.Reason, "; ")
	require.Len(t, parts, 3)
	assert.Contains(t, parts[0], "Outside allowed area")
	assert.Contains(t, parts[1], "Unauthorized network")
	assert.Contains(t, parts[2], "Outside allowed hours")
}

func TestZeroConfigDefaults(t *testing.T) {
	// A genuinely absent configuration gets a degenerate but well-defined
	// evaluation: zero coordinates, 100m radius, 09:00-17:00 window.
	e := evaluatorAt("10:00")
	req := Request{Latitude: 0, Longitude: 0, Network: ""}

	d := e.Evaluate(req, Config{}, false)

	assert.False(t, d.Allowed)
	assert.Contains(t, d.Validations.Location, "Location validated")
	assert.Equal(t, "Network name not provided", d.Validations.Network)
	assert.Contains(t, d.Validations.Time, "Time validated")

	d = evaluatorAt("08:00").Evaluate(req, Config{}, false)
	assert.Contains(t, d.Validations.Time, "allowed: 09:00-17:00")
}

func TestDistanceKnownValue(t *testing.T) {
	// One degree of latitude on the spherical model is about 111.2 km.
	d := Distance(0, 0, 1, 0)
	assert.InDelta(t, 111194.9, d, 10.0)

	assert.Zero(t, Distance(10.0, 76.0, 10.0, 76.0))
}

func TestDiagnosticDistanceFormat(t *testing.T) {
	e := evaluatorAt("10:30")
	req := Request{Latitude: 10.001, Longitude: 76.0, Network: "Office"}

	d := e.Evaluate(req, officeConfig(), false)

	require.False(t, d.Allowed)
	// Distance to two decimals plus the configured maximum.
	assert.Regexp(t, `distance: \d+\.\d\dm`, d.Validations.Location)
	assert.Contains(t, d.Validations.Location, "max: 100m")
}
