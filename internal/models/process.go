package models

import "time"

// MilestoneType discriminates the milestone variants.
type MilestoneType string

const (
	MilestoneTypeForm MilestoneType = "form"
	MilestoneTypeFile MilestoneType = "file"
)

// Valid reports whether the type is one of the supported variants.
func (t MilestoneType) Valid() bool {
	return t == MilestoneTypeForm || t == MilestoneTypeFile
}

// Process is the ordered pipeline template an application moves through.
type Process struct {
	ID        string    `db:"id" json:"id" yaml:"id"`
	Name      string    `db:"name" json:"name" yaml:"name"`
	Stages    []Stage   `db:"-" json:"stages" yaml:"stages"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt,omitempty" yaml:"-"`
}

// Stage is a named phase of a process.
type Stage struct {
	ID       string          `json:"id" yaml:"id"`
	Name     string          `json:"name" yaml:"name"`
	Statuses []StatusBinding `json:"statuses" yaml:"statuses"`
}

// Status identifies a state within a stage.
type Status struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// StatusBinding attaches the milestones gating a status.
type StatusBinding struct {
	Status     Status                `json:"status" yaml:"status"`
	Milestones []MilestoneDefinition `json:"milestones" yaml:"milestones"`
}

// MilestoneDefinition describes one task required (or suggested) for a status.
type MilestoneDefinition struct {
	Key         string        `json:"key" yaml:"key"`
	Title       string        `json:"title" yaml:"title"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Type        MilestoneType `json:"type" yaml:"type"`
	Required    bool          `json:"required" yaml:"required"`
	FormSchema  string        `json:"formSchema,omitempty" yaml:"form_schema,omitempty"`
}

// FirstStatusID returns the first status of the first stage, or empty for an empty process.
func (p *Process) FirstStatusID() string {
	if p == nil {
		return ""
	}
	for _, stage := range p.Stages {
		if len(stage.Statuses) > 0 {
			return stage.Statuses[0].Status.ID
		}
	}
	return ""
}
