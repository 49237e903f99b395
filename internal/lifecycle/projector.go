package lifecycle

import "github.com/noah-isme/agent-portal-api/internal/models"

// StageState is the display state of a stage in the journey trail.
type StageState string

const (
	StageDone      StageState = "done"
	StageCurrent   StageState = "current"
	StageUpcoming  StageState = "upcoming"
	StageCancelled StageState = "cancelled"
	StageRejected  StageState = "rejected"
)

// StageView is one render-ready entry of the journey trail.
type StageView struct {
	StageID     string     `json:"stageId,omitempty"`
	Name        string     `json:"name"`
	State       StageState `json:"state"`
	StatusLabel string     `json:"statusLabel,omitempty"`
	Synthetic   bool       `json:"synthetic,omitempty"`
}

// Project builds the progress trail of an application. Cancelled and rejected
// applications are cut at the stage they reached and closed with a synthetic entry.
func Project(process *models.Process, app *models.Application) ([]StageView, error) {
	if app == nil {
		return nil, newValidationError(KindInvalidPayload, "application is required")
	}
	loc, ok := Locate(process, app.CurrentStatusID)
	if !ok {
		processID := ""
		if process != nil {
			processID = process.ID
		}
		return nil, statusNotFound(processID, app.CurrentStatusID)
	}
	current := loc.StageIndex

	views := make([]StageView, 0, len(process.Stages)+1)
	for i, stage := range process.Stages {
		if app.Terminated() && i > current {
			break
		}
		view := StageView{StageID: stage.ID, Name: stage.Name}
		switch {
		case i < current:
			view.State = StageDone
		case i == current:
			view.State = StageCurrent
			view.StatusLabel = loc.Binding.Status.Name
		default:
			view.State = StageUpcoming
		}
		views = append(views, view)
	}

	switch {
	case app.IsCancelled:
		views = append(views, StageView{Name: "Cancelled", State: StageCancelled, Synthetic: true})
	case app.IsRejected:
		views = append(views, StageView{Name: "Rejected", State: StageRejected, Synthetic: true})
	}
	return views, nil
}
