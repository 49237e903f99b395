package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ReferralChannel records how the applicant reached the institution.
type ReferralChannel string

const (
	ReferralChannelAgent  ReferralChannel = "AGENT"
	ReferralChannelDirect ReferralChannel = "DIRECT"
)

// CompletionFlags are the institution-side checkpoints that unlock enrollment booking.
type CompletionFlags struct {
	SubmittedToInstitute      bool `db:"submitted_to_institute" json:"submittedToInstitute"`
	UnconditionalReceived     bool `db:"unconditional_received" json:"unconditionalReceived"`
	FeePaid                   bool `db:"fee_paid" json:"feePaid"`
	SponsorshipLetterReceived bool `db:"sponsorship_letter_received" json:"sponsorshipLetterReceived"`
	VisaGranted               bool `db:"visa_granted" json:"visaGranted"`
	Enrolled                  bool `db:"enrolled" json:"enrolled"`
}

// All reports whether every completion flag is set.
func (f CompletionFlags) All() bool {
	return f.SubmittedToInstitute &&
		f.UnconditionalReceived &&
		f.FeePaid &&
		f.SponsorshipLetterReceived &&
		f.VisaGranted &&
		f.Enrolled
}

// Application is an applicant's progress through a process.
type Application struct {
	ID              string          `db:"id" json:"id"`
	ProcessID       string          `db:"process_id" json:"processId"`
	ApplicantName   string          `db:"applicant_name" json:"applicantName"`
	ReferralChannel ReferralChannel `db:"referral_channel" json:"referralChannel"`
	CurrentStatusID string          `db:"current_status_id" json:"currentStatusId"`
	CompletionFlags

	IsCancelled  bool       `db:"is_cancelled" json:"isCancelled"`
	CancelledBy  *string    `db:"cancelled_by" json:"cancelledBy,omitempty"`
	CancelReason *string    `db:"cancel_reason" json:"cancelReason,omitempty"`
	CancelledAt  *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`

	IsRejected   bool       `db:"is_rejected" json:"isRejected"`
	RejectedBy   *string    `db:"rejected_by" json:"rejectedBy,omitempty"`
	RejectReason *string    `db:"reject_reason" json:"rejectReason,omitempty"`
	RejectedAt   *time.Time `db:"rejected_at" json:"rejectedAt,omitempty"`

	UpdatedAt  time.Time         `db:"updated_at" json:"updatedAt"`
	Milestones []MilestoneRecord `db:"-" json:"milestones"`
}

// Terminated reports whether the application has been cancelled or rejected.
func (a *Application) Terminated() bool {
	return a != nil && (a.IsCancelled || a.IsRejected)
}

// Milestone returns the record stored for key, if any.
func (a *Application) Milestone(key string) *MilestoneRecord {
	if a == nil {
		return nil
	}
	for i := range a.Milestones {
		if a.Milestones[i].Key == key {
			return &a.Milestones[i]
		}
	}
	return nil
}

// MilestoneRecord is an application's stored completion state for one milestone.
type MilestoneRecord struct {
	ApplicationID string         `db:"application_id" json:"applicationId"`
	Key           string         `db:"milestone_key" json:"key"`
	Type          MilestoneType  `db:"type" json:"type"`
	Data          types.JSONText `db:"data" json:"data"`
	Completed     bool           `db:"completed" json:"completed"`
	CompletedAt   *time.Time     `db:"completed_at" json:"completedAt,omitempty"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
}

// FileRef is an opaque reference returned by the upload widget.
type FileRef struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
	Size int64  `json:"size" validate:"gte=0"`
	Path string `json:"path"`
}

// FileMilestoneData is the stored payload of a file milestone.
type FileMilestoneData struct {
	Files []FileRef `json:"files"`
}

// FormMilestoneData is the stored payload of a form milestone.
type FormMilestoneData struct {
	Schema string                 `json:"schema,omitempty"`
	Values map[string]interface{} `json:"values"`
}
