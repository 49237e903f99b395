package lifecycle

import (
	"fmt"
	"strings"

	"github.com/noah-isme/agent-portal-api/internal/models"
	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
)

// Location pins a status to its stage within a process.
type Location struct {
	StageIndex int
	Stage      *models.Stage
	Binding    *models.StatusBinding
}

// Locate finds the stage and binding holding statusID.
func Locate(process *models.Process, statusID string) (Location, bool) {
	if process == nil {
		return Location{}, false
	}
	for i := range process.Stages {
		stage := &process.Stages[i]
		for j := range stage.Statuses {
			if stage.Statuses[j].Status.ID == statusID {
				return Location{StageIndex: i, Stage: stage, Binding: &stage.Statuses[j]}, true
			}
		}
	}
	return Location{}, false
}

// FindMilestone returns the definition registered under key anywhere in the process.
func FindMilestone(process *models.Process, key string) (models.MilestoneDefinition, bool) {
	if process == nil {
		return models.MilestoneDefinition{}, false
	}
	for _, stage := range process.Stages {
		for _, binding := range stage.Statuses {
			for _, def := range binding.Milestones {
				if def.Key == key {
					return def, true
				}
			}
		}
	}
	return models.MilestoneDefinition{}, false
}

// ValidateProcess checks the structural rules every process definition must satisfy.
func ValidateProcess(process *models.Process) error {
	if process == nil {
		return appErrors.Clone(appErrors.ErrValidation, "process is required")
	}
	if strings.TrimSpace(process.ID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "process id is required")
	}
	if len(process.Stages) == 0 {
		return invalidProcess(process.ID, "at least one stage is required")
	}
	stageIDs := make(map[string]struct{}, len(process.Stages))
	statusIDs := make(map[string]struct{})
	keys := make(map[string]struct{})
	for _, stage := range process.Stages {
		if strings.TrimSpace(stage.ID) == "" {
			return invalidProcess(process.ID, "stage id is required")
		}
		if _, dup := stageIDs[stage.ID]; dup {
			return invalidProcess(process.ID, fmt.Sprintf("duplicate stage id %q", stage.ID))
		}
		stageIDs[stage.ID] = struct{}{}
		if len(stage.Statuses) == 0 {
			return invalidProcess(process.ID, fmt.Sprintf("stage %q has no statuses", stage.ID))
		}
		for _, binding := range stage.Statuses {
			statusID := binding.Status.ID
			if strings.TrimSpace(statusID) == "" {
				return invalidProcess(process.ID, fmt.Sprintf("stage %q has a status without id", stage.ID))
			}
			if _, dup := statusIDs[statusID]; dup {
				return invalidProcess(process.ID, fmt.Sprintf("duplicate status id %q", statusID))
			}
			statusIDs[statusID] = struct{}{}
			for _, def := range binding.Milestones {
				if strings.TrimSpace(def.Key) == "" {
					return invalidProcess(process.ID, fmt.Sprintf("status %q has a milestone without key", statusID))
				}
				if _, dup := keys[def.Key]; dup {
					return invalidProcess(process.ID, fmt.Sprintf("duplicate milestone key %q", def.Key))
				}
				keys[def.Key] = struct{}{}
				if !def.Type.Valid() {
					return invalidProcess(process.ID, fmt.Sprintf("milestone %q has unsupported type %q", def.Key, def.Type))
				}
				if def.Type == models.MilestoneTypeForm && strings.TrimSpace(def.FormSchema) == "" {
					return invalidProcess(process.ID, fmt.Sprintf("form milestone %q needs a schema reference", def.Key))
				}
			}
		}
	}
	return nil
}

func invalidProcess(id, reason string) error {
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("process %s: %s", id, reason))
}
