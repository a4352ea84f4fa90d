package anomaly

import (
	"fmt"
	"math/rand"

	"geocrypt/internal/audit"
)

// Risk levels reported by Analyze.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// minTrainingEntries is the smallest history a model can be fitted on.
const minTrainingEntries = 10

// Report summarizes one identity's access history.
type Report struct {
	TotalActivities int      `json:"total_activities"`
	SuspiciousCount int      `json:"suspicious_count"`
	RiskLevel       string   `json:"risk_level"`
	Patterns        []string `json:"patterns"`
}

// Detector scores audit entries against a fitted isolation forest. A zero
// Detector is untrained; it becomes trained only after a successful Fit.
// Detectors are cheap and analyses construct their own, so there is no
// cross-identity sharing.
type Detector struct {
	forest *forest
}

// NewDetector returns an untrained detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Trained reports whether the detector has been fitted.
func (d *Detector) Trained() bool {
	return d.forest != nil
}

// Fit trains the model on the given history. It requires at least
// minTrainingEntries parseable entries and returns false, leaving the model
// untrained, otherwise. Fitting is deterministic: a fixed seed means the
// same history always produces the same model.
func (d *Detector) Fit(entries []audit.Entry) bool {
	features := ExtractFeatures(entries)
	if len(features) < minTrainingEntries {
		return false
	}
	rng := rand.New(rand.NewSource(randomSeed))
	d.forest = fitForest(features, rng)
	return true
}

// Score returns one flag per input entry, true meaning anomalous. An
// untrained model scores everything false; entries with malformed
// timestamps are never anomalous.
func (d *Detector) Score(entries []audit.Entry) []bool {
	if len(entries) == 0 {
		return []bool{}
	}
	flags := make([]bool, len(entries))
	if !d.Trained() {
		return flags
	}
	for i, e := range entries {
		fv, err := extractFeature(e)
		if err != nil {
			continue
		}
		flags[i] = d.forest.anomalous(fv)
	}
	return flags
}

// Analyze scores the history and aggregates it into a report. An empty
// history yields a zero report with low risk without invoking the model.
func (d *Detector) Analyze(entries []audit.Entry) Report {
	if len(entries) == 0 {
		return Report{RiskLevel: RiskLow, Patterns: []string{}}
	}

	flags := d.Score(entries)
	suspicious := 0
	for _, f := range flags {
		if f {
			suspicious++
		}
	}

	return Report{
		TotalActivities: len(entries),
		SuspiciousCount: suspicious,
		RiskLevel:       riskLevel(float64(suspicious) / float64(len(entries))),
		Patterns:        buildPatterns(entries, flags),
	}
}

func riskLevel(ratio float64) string {
	switch {
	case ratio > 0.30:
		return RiskHigh
	case ratio > 0.15:
		return RiskMedium
	default:
		return RiskLow
	}
}

// buildPatterns produces the human-readable observations: an anomaly count
// note whenever anything was flagged, plus an off-hours note when a flagged
// entry falls outside the 09:00-17:00 reference window.
func buildPatterns(entries []audit.Entry, flags []bool) []string {
	patterns := []string{}

	suspicious := 0
	offHours := 0
	for i, flagged := range flags {
		if !flagged {
			continue
		}
		suspicious++
		t, err := entries[i].Time()
		if err != nil {
			continue
		}
		if t.Hour() < 9 || t.Hour() > 17 {
			offHours++
		}
	}

	if suspicious > 0 {
		patterns = append(patterns, fmt.Sprintf("Detected %d unusual access patterns", suspicious))
	}
	if offHours > 0 {
		patterns = append(patterns, fmt.Sprintf("Off-hours access detected: %d instances", offHours))
	}
	return patterns
}
