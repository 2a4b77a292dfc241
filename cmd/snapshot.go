package cmd

import (
	"encoding/json"
	"os"
)

// statusSnapshot is what start periodically writes to statusFile and what
// status/stats read back — the closest thing this no-daemon CLI has to the
// teacher's UDS status/stats RPCs.
type statusSnapshot struct {
	RunID      string            `json:"run_id"`
	Status     string            `json:"status"`
	StageStats map[string]uint64 `json:"stage_stats"`
}

func writeSnapshot(path string, snap statusSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readSnapshot(path string) (statusSnapshot, error) {
	var snap statusSnapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, err
	}
	err = json.Unmarshal(data, &snap)
	return snap, err
}
