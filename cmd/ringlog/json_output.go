package main

import (
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"ringlog/internal/ipc"
)

// writeJSON encodes v as indented JSON to the command's stdout. Record text
// is written as-is, so HTML escaping is off.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// payloadJSON carries record bytes as text when they are valid UTF-8 and as
// base64 otherwise.
type payloadJSON struct {
	Size int    `json:"size"`
	Text string `json:"text,omitempty"`
	Data []byte `json:"data,omitempty"`
}

func newPayloadJSON(data []byte) payloadJSON {
	p := payloadJSON{Size: len(data)}
	if utf8.Valid(data) {
		p.Text = string(data)
	} else {
		p.Data = data
	}
	return p
}

type recordJSON struct {
	Index  int   `json:"index"`
	Offset int64 `json:"offset"`
	payloadJSON
}

func recordsJSON(records []ipc.Record) []recordJSON {
	out := make([]recordJSON, 0, len(records))
	for _, r := range records {
		out = append(out, recordJSON{Index: r.Index, Offset: r.Offset, payloadJSON: newPayloadJSON(r.Data)})
	}
	return out
}

type historyJSON struct {
	ID           int64     `json:"id"`
	RecordedAt   time.Time `json:"recorded_at"`
	Source       string    `json:"source"`
	ConnectionID string    `json:"connection_id,omitempty"`
	payloadJSON
}

func historyEntriesJSON(entries []ipc.HistoryEntry) []historyJSON {
	out := make([]historyJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyJSON{
			ID:           e.ID,
			RecordedAt:   e.RecordedAt,
			Source:       e.Source,
			ConnectionID: e.ConnectionID,
			payloadJSON:  newPayloadJSON(e.Payload),
		})
	}
	return out
}
