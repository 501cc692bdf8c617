// Package mccflow holds the view state of the MCC finalization workflow and
// the rule for when an operator may save it.
package mccflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/agent-console/internal/model"
)

// Phase is the save lifecycle of the workflow.
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseSaving Phase = "saving"
	PhaseSaved  Phase = "saved"
	PhaseFailed Phase = "failed"
)

var (
	// ErrNoSelection is returned when no MCC is selected.
	ErrNoSelection = eris.New("mccflow: no MCC selected")
	// ErrReasonRequired is returned when an override has no reason.
	ErrReasonRequired = eris.New("mccflow: override reason required")
	// ErrSaving is returned when a save is already in flight.
	ErrSaving = eris.New("mccflow: save in progress")
)

// Finalizer persists an MCC decision for a task.
type Finalizer interface {
	FinalizeMcc(ctx context.Context, taskID string, d model.MccDecision) (*model.MccDecision, error)
}

// Choice is one dropdown entry.
type Choice struct {
	Code      string
	Label     string
	Suggested bool
	Selected  bool
}

// Workflow is the state of one report's MCC finalization form.
type Workflow struct {
	// Primary is the scan's suggested primary MCC; may be empty.
	Primary  string
	Selected string
	Reason   string
	Options  []model.MccRecord
	Phase    Phase
	// Message is the success banner or inline error for the last save.
	Message string
}

// New starts a workflow with the suggested primary MCC pre-selected.
func New(primary string, options []model.MccRecord) *Workflow {
	primary = strings.TrimSpace(primary)
	return &Workflow{
		Primary:  primary,
		Selected: primary,
		Options:  options,
		Phase:    PhaseIdle,
	}
}

// Select changes the selected MCC. A finished save is reset to idle.
func (w *Workflow) Select(code string) {
	w.Selected = strings.TrimSpace(code)
	w.settle()
}

// SetReason records the override reason.
func (w *Workflow) SetReason(reason string) {
	w.Reason = reason
	w.settle()
}

func (w *Workflow) settle() {
	if w.Phase == PhaseSaved || w.Phase == PhaseFailed {
		w.Phase = PhaseIdle
		w.Message = ""
	}
}

// OverrideRequired reports whether the selection departs from the suggested
// primary MCC, which makes a reason mandatory.
func (w *Workflow) OverrideRequired() bool {
	return w.Selected != "" && w.Selected != w.Primary
}

// Validate returns why the current state cannot be saved, or nil.
func (w *Workflow) Validate() error {
	if w.Selected == "" {
		return ErrNoSelection
	}
	if w.OverrideRequired() && strings.TrimSpace(w.Reason) == "" {
		return ErrReasonRequired
	}
	return nil
}

// CanSave reports whether the save control is enabled.
func (w *Workflow) CanSave() bool {
	return w.Phase != PhaseSaving && w.Validate() == nil
}

// Source reports how the current selection was reached.
func (w *Workflow) Source() model.MccSource {
	if w.OverrideRequired() {
		return model.MccSourceOverride
	}
	return model.MccSourceSystem
}

// Submission builds the decision payload for the current state.
func (w *Workflow) Submission(selectedBy string) model.MccDecision {
	return model.MccDecision{
		MccCode:        w.Selected,
		OverrideReason: strings.TrimSpace(w.Reason),
		Source:         w.Source(),
		SelectedBy:     selectedBy,
	}
}

// Submit validates and posts the decision. On success it reports that the
// task list must be refreshed; on failure the error is also kept in Message
// for inline display.
func (w *Workflow) Submit(ctx context.Context, f Finalizer, taskID, selectedBy string) (bool, error) {
	if w.Phase == PhaseSaving {
		return false, ErrSaving
	}
	if err := w.Validate(); err != nil {
		w.Phase = PhaseFailed
		w.Message = validationMessage(err)
		return false, err
	}

	w.Phase = PhaseSaving
	w.Message = ""
	if _, err := f.FinalizeMcc(ctx, taskID, w.Submission(selectedBy)); err != nil {
		w.Phase = PhaseFailed
		w.Message = err.Error()
		return false, eris.Wrapf(err, "mccflow: finalize task %s", taskID)
	}

	w.Phase = PhaseSaved
	w.Message = fmt.Sprintf("MCC %s saved", w.Selected)
	return true, nil
}

func validationMessage(err error) string {
	switch {
	case eris.Is(err, ErrNoSelection):
		return "Select an MCC before saving."
	case eris.Is(err, ErrReasonRequired):
		return "Enter a reason for overriding the suggested MCC."
	default:
		return err.Error()
	}
}

// Choices returns the dropdown entries. The suggested primary MCC is always
// offered, even when the reference list does not contain it.
func (w *Workflow) Choices() []Choice {
	out := make([]Choice, 0, len(w.Options)+1)
	seen := false
	for _, o := range w.Options {
		c := Choice{
			Code:      o.Code,
			Label:     label(o),
			Suggested: o.Code == w.Primary,
			Selected:  o.Code == w.Selected,
		}
		if c.Suggested {
			seen = true
		}
		out = append(out, c)
	}
	if w.Primary != "" && !seen {
		out = append([]Choice{{
			Code:      w.Primary,
			Label:     w.Primary + " (suggested)",
			Suggested: true,
			Selected:  w.Selected == w.Primary,
		}}, out...)
	}
	return out
}

func label(r model.MccRecord) string {
	if r.Description == "" {
		return r.Code
	}
	return r.Code + " - " + r.Description
}
