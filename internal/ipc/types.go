package ipc

import "time"

// StopRequest stops the daemon components.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// ServerStats mirrors the line server counters.
type ServerStats struct {
	Accepted  int64 `json:"accepted"`
	Committed int64 `json:"committed"`
	Failed    int64 `json:"failed"`
	Active    int   `json:"active"`
}

// StatusResponse represents daemon status information.
type StatusResponse struct {
	Running         bool        `json:"running"`
	PID             int         `json:"pid"`
	StartedAt       time.Time   `json:"started_at"`
	LockPath        string      `json:"lock_path"`
	LogPath         string      `json:"log_path"`
	Listen          string      `json:"listen"`
	SinkKind        string      `json:"sink_kind"`
	SinkPath        string      `json:"sink_path"`
	DeviceAvailable *bool       `json:"device_available,omitempty"`
	Capacity        int         `json:"capacity"`
	Records         int         `json:"records"`
	TotalBytes      int64       `json:"total_bytes"`
	Server          ServerStats `json:"server"`
	ArchiveEnabled  bool        `json:"archive_enabled"`
	ArchivePath     string      `json:"archive_path"`
	ArchiveCount    int64       `json:"archive_count"`
	TimestampEvery  string      `json:"timestamp_every,omitempty"`
}

// RecordsRequest lists the stored records.
type RecordsRequest struct{}

// Record is one stored record with its position in the concatenated log.
type Record struct {
	Index  int    `json:"index"`
	Offset int64  `json:"offset"`
	Data   []byte `json:"data"`
}

// RecordsResponse contains the records oldest first.
type RecordsResponse struct {
	Records []Record `json:"records"`
}

// ReadRequest seeks to a record/offset pair and reads from there.
type ReadRequest struct {
	Record uint32 `json:"record"`
	Offset uint32 `json:"offset"`
	Limit  int    `json:"limit"`
}

// ReadResponse carries the bytes read.
type ReadResponse struct {
	Data []byte `json:"data"`
}

// HistoryRequest fetches journaled records.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryEntry is one journaled record.
type HistoryEntry struct {
	ID           int64     `json:"id"`
	RecordedAt   time.Time `json:"recorded_at"`
	Source       string    `json:"source"`
	ConnectionID string    `json:"connection_id,omitempty"`
	Payload      []byte    `json:"payload"`
}

// HistoryResponse contains journal entries newest first.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}
