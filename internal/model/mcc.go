package model

import "time"

// MccRecord is one entry of the merchant category code reference list.
type MccRecord struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Active      bool   `json:"active"`
}

// MccSource records how a final MCC was chosen.
type MccSource string

const (
	// MccSourceSystem means the operator accepted the suggested primary MCC.
	MccSourceSystem MccSource = "system"
	// MccSourceOverride means the operator picked a different code.
	MccSourceOverride MccSource = "manual_override"
)

// MccDecision is the operator's final MCC for a task.
type MccDecision struct {
	TaskID         string    `json:"task_id,omitempty"`
	MccCode        string    `json:"mcc_code"`
	OverrideReason string    `json:"override_reason"`
	Source         MccSource `json:"source"`
	SelectedBy     string    `json:"selected_by"`
	CreatedAt      time.Time `json:"created_at,omitzero"`
}

// FindMcc returns the record with the given code, or nil.
func FindMcc(list []MccRecord, code string) *MccRecord {
	for i := range list {
		if list[i].Code == code {
			return &list[i]
		}
	}
	return nil
}
