package lifecycle

import "github.com/noah-isme/agent-portal-api/internal/models"

// Evaluation is the milestone checklist of a target status.
type Evaluation struct {
	TargetStatus      models.Status                `json:"targetStatus"`
	MissingRequired   []models.MilestoneDefinition `json:"missingRequired"`
	SatisfiedRequired []models.MilestoneDefinition `json:"satisfiedRequired"`
	OptionalRemaining []models.MilestoneDefinition `json:"optionalRemaining"`
}

// Blocked reports whether required milestones are still outstanding.
func (e *Evaluation) Blocked() bool {
	return e != nil && len(e.MissingRequired) > 0
}

// MissingKeys lists the keys of the outstanding required milestones.
func (e *Evaluation) MissingKeys() []string {
	if e == nil {
		return nil
	}
	keys := make([]string, 0, len(e.MissingRequired))
	for _, def := range e.MissingRequired {
		keys = append(keys, def.Key)
	}
	return keys
}

// EvaluateMissing reports which milestones of targetStatusID are still outstanding
// given the recorded milestones. Output order follows the process definition.
func EvaluateMissing(process *models.Process, targetStatusID string, records []models.MilestoneRecord) (*Evaluation, error) {
	loc, ok := Locate(process, targetStatusID)
	if !ok {
		processID := ""
		if process != nil {
			processID = process.ID
		}
		return nil, statusNotFound(processID, targetStatusID)
	}
	completed := make(map[string]bool, len(records))
	for _, record := range records {
		if record.Completed {
			completed[record.Key] = true
		}
	}
	result := &Evaluation{
		TargetStatus:      loc.Binding.Status,
		MissingRequired:   []models.MilestoneDefinition{},
		SatisfiedRequired: []models.MilestoneDefinition{},
		OptionalRemaining: []models.MilestoneDefinition{},
	}
	for _, def := range loc.Binding.Milestones {
		switch {
		case def.Required && completed[def.Key]:
			result.SatisfiedRequired = append(result.SatisfiedRequired, def)
		case def.Required:
			result.MissingRequired = append(result.MissingRequired, def)
		case !completed[def.Key]:
			result.OptionalRemaining = append(result.OptionalRemaining, def)
		}
	}
	return result, nil
}
