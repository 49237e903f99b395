package lifecycle

import "github.com/noah-isme/agent-portal-api/internal/models"

func sampleProcess() *models.Process {
	return &models.Process{
		ID:   "proc-uk",
		Name: "UK Undergraduate",
		Stages: []models.Stage{
			{
				ID:   "intake",
				Name: "Intake",
				Statuses: []models.StatusBinding{
					{Status: models.Status{ID: "new", Name: "New"}},
				},
			},
			{
				ID:   "documents",
				Name: "Documents",
				Statuses: []models.StatusBinding{
					{
						Status: models.Status{ID: "docs-pending", Name: "Docs Pending"},
						Milestones: []models.MilestoneDefinition{
							{Key: "passport", Title: "Passport", Type: models.MilestoneTypeFile, Required: true},
							{Key: "essay", Title: "Personal essay", Type: models.MilestoneTypeForm, Required: false, FormSchema: "essay-v1"},
							{Key: "transcript", Title: "Transcript", Type: models.MilestoneTypeFile, Required: true},
						},
					},
				},
			},
			{
				ID:   "offer",
				Name: "Offer",
				Statuses: []models.StatusBinding{
					{Status: models.Status{ID: "offer-pending", Name: "Offer Pending"}},
					{Status: models.Status{ID: "offer-received", Name: "Offer Received"}},
				},
			},
			{
				ID:   "visa",
				Name: "Visa",
				Statuses: []models.StatusBinding{
					{Status: models.Status{ID: "visa-lodged", Name: "Visa Lodged"}},
				},
			},
			{
				ID:   "enrolment",
				Name: "Enrolment",
				Statuses: []models.StatusBinding{
					{Status: models.Status{ID: "enrolled", Name: "Enrolled"}},
				},
			},
		},
	}
}
