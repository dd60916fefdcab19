package models

import "time"

// SnapshotPair is the persisted JSON shape of one snapshot entry:
// {"rate": "...", "updated_at": ISO8601, "source": "..."} keyed by "FROM_TO".
type SnapshotPair struct {
	Rate      string    `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
	Source    string    `json:"source"`
}
