package lifecycle

import (
	"strings"

	"github.com/noah-isme/agent-portal-api/internal/models"
	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
)

// CancelPolicy decides which statuses allow cancellation. An empty list restricts
// cancellation to the first status of the process.
type CancelPolicy struct {
	CancellableStatuses []string
}

// Allows reports whether app may be cancelled from its current status.
func (p CancelPolicy) Allows(process *models.Process, app *models.Application) bool {
	if app == nil || app.Terminated() {
		return false
	}
	if len(p.CancellableStatuses) == 0 {
		first := process.FirstStatusID()
		return first != "" && app.CurrentStatusID == first
	}
	for _, id := range p.CancellableStatuses {
		if id == app.CurrentStatusID {
			return true
		}
	}
	return false
}

// NormalizeReason trims a cancellation or rejection reason and rejects blanks.
func NormalizeReason(reason string) (string, error) {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}
	return trimmed, nil
}
