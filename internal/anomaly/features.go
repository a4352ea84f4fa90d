// Package anomaly flags atypical access patterns in a requester's audit
// history. Each analysis fits a fresh isolation forest over time-of-day and
// day-of-week features and reports suspicious entries with an aggregate risk
// level. Models are never shared across identities or reused between
// analyses.
package anomaly

import (
	"errors"
	"fmt"

	"geocrypt/internal/audit"
)

// ErrMalformedTimestamp is returned for an audit entry whose timestamp
// cannot be parsed. The entry is excluded from the feature set; it never
// aborts the whole analysis.
var ErrMalformedTimestamp = errors.New("malformed audit timestamp")

// FeatureVector is the per-entry activity feature set: hour-of-day (0-23),
// day-of-week (0-6, Sunday = 0) and an access-count weight. Transient,
// recomputed on demand, never persisted.
type FeatureVector struct {
	Hour    float64
	Weekday float64
	Weight  float64
}

// extractFeature maps one audit entry's timestamp to its feature vector.
func extractFeature(e audit.Entry) (FeatureVector, error) {
	t, err := e.Time()
	if err != nil {
		return FeatureVector{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, e.Timestamp)
	}
	return FeatureVector{
		Hour:    float64(t.Hour()),
		Weekday: float64(t.Weekday()),
		Weight:  1,
	}, nil
}

// ExtractFeatures maps entries to feature vectors, skipping entries whose
// timestamps cannot be parsed. An empty input produces an empty sequence.
func ExtractFeatures(entries []audit.Entry) []FeatureVector {
	features := make([]FeatureVector, 0, len(entries))
	for _, e := range entries {
		fv, err := extractFeature(e)
		if err != nil {
			continue
		}
		features = append(features, fv)
	}
	return features
}
