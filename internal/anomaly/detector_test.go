package anomaly

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geocrypt/internal/audit"
)

// entryAt builds an allowed audit entry at the given time.
func entryAt(ts time.Time) audit.Entry {
	return audit.Entry{
		Identity:  "alice",
		FileID:    "f-1",
		Timestamp: ts.Format(time.RFC3339),
		Allowed:   true,
		Reason:    "Access granted",
	}
}

// weekdayHistory returns n entries spread over business hours on weekdays.
func weekdayHistory(n int) []audit.Entry {
	entries := make([]audit.Entry, 0, n)
	base := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC) // a Monday
	for i := 0; i < n; i++ {
		ts := base.AddDate(0, 0, i%5).Add(time.Duration(i%8) * time.Hour)
		entries = append(entries, entryAt(ts))
	}
	return entries
}

func TestExtractFeatures(t *testing.T) {
	ts := time.Date(2025, time.March, 5, 14, 30, 0, 0, time.UTC) // a Wednesday
	features := ExtractFeatures([]audit.Entry{entryAt(ts)})

	require.Len(t, features, 1)
	assert.Equal(t, 14.0, features[0].Hour)
	assert.Equal(t, float64(time.Wednesday), features[0].Weekday)
	assert.Equal(t, 1.0, features[0].Weight)
}

func TestExtractFeaturesEmpty(t *testing.T) {
	assert.Empty(t, ExtractFeatures(nil))
	assert.Empty(t, ExtractFeatures([]audit.Entry{}))
}

func TestExtractFeaturesSkipsMalformedTimestamps(t *testing.T) {
	entries := weekdayHistory(3)
	entries = append(entries, audit.Entry{Identity: "alice", Timestamp: "yesterday-ish"})

	features := ExtractFeatures(entries)
	assert.Len(t, features, 3)
}

func TestFitMinimumDataGate(t *testing.T) {
	d := NewDetector()

	ok := d.Fit(weekdayHistory(9))
	assert.False(t, ok)
	assert.False(t, d.Trained())

	ok = d.Fit(weekdayHistory(10))
	assert.True(t, ok)
	assert.True(t, d.Trained())
}

func TestFitCountsOnlyParseableEntries(t *testing.T) {
	// Nine good entries plus a malformed one stays below the gate.
	entries := weekdayHistory(9)
	entries = append(entries, audit.Entry{Timestamp: "not a time"})

	d := NewDetector()
	assert.False(t, d.Fit(entries))
	assert.False(t, d.Trained())
}

func TestScoreUntrained(t *testing.T) {
	d := NewDetector()
	entries := weekdayHistory(5)

	flags := d.Score(entries)
	require.Len(t, flags, len(entries))
	for _, f := range flags {
		assert.False(t, f)
	}

	assert.Empty(t, d.Score(nil))
}

func TestFitDeterministic(t *testing.T) {
	history := weekdayHistory(40)
	history = append(history, entryAt(time.Date(2025, time.March, 8, 3, 0, 0, 0, time.UTC)))
	history = append(history, entryAt(time.Date(2025, time.March, 9, 4, 0, 0, 0, time.UTC)))

	a := NewDetector()
	require.True(t, a.Fit(history))
	b := NewDetector()
	require.True(t, b.Fit(history))

	assert.Equal(t, a.Score(history), b.Score(history))
}

func TestAnalyzeEmptyHistory(t *testing.T) {
	d := NewDetector()
	report := d.Analyze(nil)

	assert.Equal(t, Report{
		TotalActivities: 0,
		SuspiciousCount: 0,
		RiskLevel:       RiskLow,
		Patterns:        []string{},
	}, report)
}

func TestAnalyzeUntrainedIsAllTypical(t *testing.T) {
	d := NewDetector()
	entries := weekdayHistory(5)

	report := d.Analyze(entries)

	assert.Equal(t, 5, report.TotalActivities)
	assert.Zero(t, report.SuspiciousCount)
	assert.Equal(t, RiskLow, report.RiskLevel)
	assert.Empty(t, report.Patterns)
}

func TestAnalyzeTrained(t *testing.T) {
	history := weekdayHistory(60)

	d := NewDetector()
	require.True(t, d.Fit(history))
	report := d.Analyze(history)

	assert.Equal(t, 60, report.TotalActivities)
	assert.Equal(t, RiskLow, report.RiskLevel, "uniform business-hours history must not be high risk")
	// The contamination threshold caps training-set flags at roughly 10%.
	assert.LessOrEqual(t, report.SuspiciousCount, 60/5)
}

func TestRiskLevelThresholds(t *testing.T) {
	cases := []struct {
		ratio float64
		want  string
	}{
		{0.0, RiskLow},
		{0.15, RiskLow},
		{0.1501, RiskMedium},
		{0.30, RiskMedium},
		{0.3001, RiskHigh},
		{1.0, RiskHigh},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, riskLevel(tc.ratio), "ratio %v", tc.ratio)
	}
}

func TestBuildPatterns(t *testing.T) {
	entries := []audit.Entry{
		entryAt(time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)),
		entryAt(time.Date(2025, time.March, 3, 3, 0, 0, 0, time.UTC)),
		entryAt(time.Date(2025, time.March, 3, 22, 0, 0, 0, time.UTC)),
		entryAt(time.Date(2025, time.March, 3, 11, 0, 0, 0, time.UTC)),
	}

	patterns := buildPatterns(entries, []bool{true, true, true, false})
	require.Len(t, patterns, 2)
	assert.Equal(t, "Detected 3 unusual access patterns", patterns[0])
	assert.Equal(t, "Off-hours access detected: 2 instances", patterns[1])

	patterns = buildPatterns(entries, []bool{false, false, false, false})
	assert.Empty(t, patterns)

	// A business-hours anomaly alone produces no off-hours note.
	patterns = buildPatterns(entries, []bool{true, false, false, false})
	require.Len(t, patterns, 1)
	assert.Equal(t, "Detected 1 unusual access patterns", patterns[0])
}

func TestScoreFlagsRareOffHoursAccess(t *testing.T) {
	// A dense cluster of business-hours accesses with a couple of 3am
	// entries: determinism is the contract here, so just require the model
	// trains and the flag slice lines up with the input.
	history := make([]audit.Entry, 0, 52)
	for i := 0; i < 50; i++ {
		history = append(history, entryAt(time.Date(2025, time.March, 3+(i%5), 10+(i%3), 0, 0, 0, time.UTC)))
	}
	nightA := entryAt(time.Date(2025, time.March, 8, 3, 0, 0, 0, time.UTC))
	nightB := entryAt(time.Date(2025, time.March, 9, 4, 15, 0, 0, time.UTC))
	history = append(history, nightA, nightB)

	d := NewDetector()
	require.True(t, d.Fit(history))

	flags := d.Score(history)
	require.Len(t, flags, len(history))

	report := d.Analyze(history)
	assert.Equal(t, len(history), report.TotalActivities)
	if report.SuspiciousCount > 0 {
		require.NotEmpty(t, report.Patterns)
		assert.Contains(t, report.Patterns[0], fmt.Sprintf("Detected %d", report.SuspiciousCount))
	}
}
