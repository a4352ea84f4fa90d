// Package audit defines the access-decision audit record and the append
// contract its sink must honor. Exactly one entry is written per evaluated
// decrypt request, granted or denied; entries are immutable once written and
// ordered by timestamp for later feature extraction.
package audit

import (
	"context"
	"time"
)

// Location is the coordinate pair claimed by the requester.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Entry is one immutable audit record. Filename may be empty when the
// referenced file record cannot be resolved at logging time; that is
// tolerated, not fatal. Timestamp is RFC 3339.
type Entry struct {
	Identity  string   `json:"identity"`
	FileID    string   `json:"file_id"`
	Filename  string   `json:"filename"`
	Timestamp string   `json:"timestamp"`
	Location  Location `json:"location"`
	Network   string   `json:"network"`
	Allowed   bool     `json:"allowed"`
	Reason    string   `json:"reason"`
}

// Recorder is the append-only sink for audit entries. Implementations must
// write each entry exactly once and never edit it retroactively.
type Recorder interface {
	Append(ctx context.Context, entry Entry) error
}

// Time parses the entry's timestamp. Entries are produced by this system
// with RFC 3339 timestamps; anything else is a malformed record.
func (e Entry) Time() (time.Time, error) {
	return time.Parse(time.RFC3339, e.Timestamp)
}
