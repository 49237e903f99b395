package lifecycle

import (
	"fmt"

	"github.com/noah-isme/agent-portal-api/internal/models"
	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
)

// Outcome is the result kind of a transition request.
type Outcome string

const (
	OutcomeApplied Outcome = "APPLIED"
	OutcomeBlocked Outcome = "BLOCKED"
)

// Decision is the pure verdict on a transition request. Blocked decisions carry the
// outstanding required milestones and must not be persisted.
type Decision struct {
	Outcome    Outcome
	Target     models.Status
	Evaluation *Evaluation
}

// Applied reports whether the transition may be persisted.
func (d *Decision) Applied() bool {
	return d != nil && d.Outcome == OutcomeApplied
}

// DecideTransition checks whether app may move to targetStatusID. Terminated
// applications are refused; unknown statuses fail with STATUS_NOT_FOUND.
func DecideTransition(process *models.Process, app *models.Application, targetStatusID string) (*Decision, error) {
	if app == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}
	if app.Terminated() {
		return nil, appErrors.Clone(appErrors.ErrApplicationTerminated, fmt.Sprintf("application %s no longer accepts transitions", app.ID))
	}
	eval, err := EvaluateMissing(process, targetStatusID, app.Milestones)
	if err != nil {
		return nil, err
	}
	decision := &Decision{Outcome: OutcomeApplied, Target: eval.TargetStatus, Evaluation: eval}
	if eval.Blocked() {
		decision.Outcome = OutcomeBlocked
	}
	return decision, nil
}
