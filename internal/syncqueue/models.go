package syncqueue

import "time"

// Status represents the lifecycle of a queued request. Success is terminal by
// removal, so no "done" row ever persists.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusInFlight Status = "in_flight"
	// StatusFailed marks an entry abandoned after exhausting its retry
	// budget. Failed entries stay visible for inspection but are never
	// replayed again.
	StatusFailed Status = "failed"
)

// KindTranscription is the only request kind the queue currently carries.
const KindTranscription = "ai-transcription"

// Entry is one durable offline request. ID is the enqueue timestamp in
// milliseconds, which doubles as the replay ordering key.
type Entry struct {
	ID            int64
	Kind          string
	AudioRecordID string
	PayloadRef    string
	Status        Status
	RetryCount    int
	LastError     string
	EnqueuedAt    time.Time
	UpdatedAt     time.Time
}

// Stats summarizes queue occupancy by status.
type Stats struct {
	Queued   int
	InFlight int
	Failed   int
}

// Total returns the number of entries across all statuses.
func (s Stats) Total() int {
	return s.Queued + s.InFlight + s.Failed
}
