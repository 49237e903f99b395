package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agent-portal-api/internal/models"
	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
)

func TestLocate(t *testing.T) {
	process := sampleProcess()

	loc, ok := Locate(process, "offer-received")
	require.True(t, ok)
	assert.Equal(t, 2, loc.StageIndex)
	assert.Equal(t, "offer", loc.Stage.ID)
	assert.Equal(t, "Offer Received", loc.Binding.Status.Name)

	_, ok = Locate(process, "missing")
	assert.False(t, ok)

	_, ok = Locate(nil, "new")
	assert.False(t, ok)
}

func TestFindMilestone(t *testing.T) {
	def, ok := FindMilestone(sampleProcess(), "essay")
	require.True(t, ok)
	assert.Equal(t, models.MilestoneTypeForm, def.Type)

	_, ok = FindMilestone(sampleProcess(), "nope")
	assert.False(t, ok)
}

func TestValidateProcess(t *testing.T) {
	require.NoError(t, ValidateProcess(sampleProcess()))

	cases := map[string]func(p *models.Process){
		"missing id":       func(p *models.Process) { p.ID = "" },
		"no stages":        func(p *models.Process) { p.Stages = nil },
		"duplicate stage":  func(p *models.Process) { p.Stages[1].ID = "intake" },
		"empty stage":      func(p *models.Process) { p.Stages[0].Statuses = nil },
		"duplicate status": func(p *models.Process) { p.Stages[3].Statuses[0].Status.ID = "new" },
		"duplicate milestone": func(p *models.Process) {
			p.Stages[1].Statuses[0].Milestones[2].Key = "passport"
		},
		"unknown type": func(p *models.Process) { p.Stages[1].Statuses[0].Milestones[0].Type = "video" },
		"form without schema": func(p *models.Process) {
			p.Stages[1].Statuses[0].Milestones[1].FormSchema = ""
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			process := sampleProcess()
			mutate(process)
			err := ValidateProcess(process)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
		})
	}
}

func TestFirstStatusID(t *testing.T) {
	assert.Equal(t, "new", sampleProcess().FirstStatusID())
	assert.Equal(t, "", (&models.Process{}).FirstStatusID())
}
