package lifecycle

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/agent-portal-api/internal/models"
)

// MilestonePayload is the tagged union of milestone submissions.
type MilestonePayload interface {
	MilestoneType() models.MilestoneType
	isMilestonePayload()
}

// FilePayload collects uploaded file references. Save marks the explicit save action;
// collecting files without saving never completes the milestone.
type FilePayload struct {
	Files []models.FileRef
	Save  bool
}

// MilestoneType implements MilestonePayload.
func (FilePayload) MilestoneType() models.MilestoneType { return models.MilestoneTypeFile }

func (FilePayload) isMilestonePayload() {}

// FormPayload carries the field values produced by the form renderer.
type FormPayload struct {
	Values map[string]interface{}
}

// MilestoneType implements MilestonePayload.
func (FormPayload) MilestoneType() models.MilestoneType { return models.MilestoneTypeForm }

func (FormPayload) isMilestonePayload() {}

// RecordMilestone derives the record that results from applying payload to existing.
// existing is never modified; the caller persists the returned record and only then
// treats it as current state.
func RecordMilestone(applicationID string, existing *models.MilestoneRecord, def models.MilestoneDefinition, payload MilestonePayload, now time.Time) (models.MilestoneRecord, error) {
	payload = derefPayload(payload)
	if payload == nil {
		return models.MilestoneRecord{}, newValidationError(KindInvalidPayload, "payload is required for milestone %q", def.Key)
	}
	if payload.MilestoneType() != def.Type {
		return models.MilestoneRecord{}, newValidationError(KindPayloadMismatch, "milestone %q expects %s payload, got %s", def.Key, def.Type, payload.MilestoneType())
	}
	if existing != nil && existing.Key != def.Key {
		return models.MilestoneRecord{}, newValidationError(KindInvalidPayload, "record %q does not belong to milestone %q", existing.Key, def.Key)
	}

	switch p := payload.(type) {
	case FilePayload:
		return recordFile(applicationID, existing, def, p, now)
	case FormPayload:
		return recordForm(applicationID, existing, def, p, now)
	default:
		return models.MilestoneRecord{}, newValidationError(KindPayloadMismatch, "milestone %q has unsupported payload %T", def.Key, payload)
	}
}

// derefPayload turns pointer payloads into their value form; nil pointers become nil.
func derefPayload(payload MilestonePayload) MilestonePayload {
	switch p := payload.(type) {
	case *FilePayload:
		if p == nil {
			return nil
		}
		return *p
	case *FormPayload:
		if p == nil {
			return nil
		}
		return *p
	}
	return payload
}

func recordFile(applicationID string, existing *models.MilestoneRecord, def models.MilestoneDefinition, payload FilePayload, now time.Time) (models.MilestoneRecord, error) {
	var prior []models.FileRef
	if existing != nil && existing.Type == models.MilestoneTypeFile && len(existing.Data) > 0 {
		files, err := DecodeFiles(existing.Data)
		if err != nil {
			return models.MilestoneRecord{}, err
		}
		prior = files
	}
	for _, file := range payload.Files {
		if strings.TrimSpace(file.ID) == "" {
			return models.MilestoneRecord{}, newValidationError(KindInvalidPayload, "file reference without id for milestone %q", def.Key)
		}
	}
	merged := MergeFiles(prior, payload.Files)
	data, err := json.Marshal(models.FileMilestoneData{Files: merged})
	if err != nil {
		return models.MilestoneRecord{}, fmt.Errorf("encode file milestone %s: %w", def.Key, err)
	}

	record := newRecord(applicationID, existing, def, data, now)
	if !record.Completed && payload.Save && len(merged) > 0 {
		record.Completed = true
		stamp := now
		record.CompletedAt = &stamp
	}
	return record, nil
}

func recordForm(applicationID string, existing *models.MilestoneRecord, def models.MilestoneDefinition, payload FormPayload, now time.Time) (models.MilestoneRecord, error) {
	if payload.Values == nil {
		return models.MilestoneRecord{}, newValidationError(KindInvalidPayload, "form values are required for milestone %q", def.Key)
	}
	values := make(map[string]interface{}, len(payload.Values))
	for k, v := range payload.Values {
		values[k] = v
	}
	data, err := json.Marshal(models.FormMilestoneData{Schema: def.FormSchema, Values: values})
	if err != nil {
		return models.MilestoneRecord{}, newValidationError(KindInvalidPayload, "form values for milestone %q are not serialisable", def.Key)
	}

	record := newRecord(applicationID, existing, def, data, now)
	record.Completed = true
	stamp := now
	record.CompletedAt = &stamp
	return record, nil
}

func newRecord(applicationID string, existing *models.MilestoneRecord, def models.MilestoneDefinition, data []byte, now time.Time) models.MilestoneRecord {
	record := models.MilestoneRecord{
		ApplicationID: applicationID,
		Key:           def.Key,
		Type:          def.Type,
		Data:          data,
		UpdatedAt:     now,
	}
	if existing != nil && existing.Completed {
		record.Completed = true
		if existing.CompletedAt != nil {
			stamp := *existing.CompletedAt
			record.CompletedAt = &stamp
		}
	}
	return record
}

// MergeFiles unions two file lists by id, keeping first-seen order.
func MergeFiles(existing, incoming []models.FileRef) []models.FileRef {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]models.FileRef, 0, len(existing)+len(incoming))
	for _, list := range [][]models.FileRef{existing, incoming} {
		for _, file := range list {
			if _, dup := seen[file.ID]; dup {
				continue
			}
			seen[file.ID] = struct{}{}
			merged = append(merged, file)
		}
	}
	return merged
}

// DecodeFiles reads the file list stored in a file milestone record.
func DecodeFiles(raw []byte) ([]models.FileRef, error) {
	var data models.FileMilestoneData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, newValidationError(KindInvalidPayload, "stored file milestone data is unreadable")
	}
	return data.Files, nil
}

// DecodeForm reads the field values stored in a form milestone record.
func DecodeForm(raw []byte) (map[string]interface{}, error) {
	var data models.FormMilestoneData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, newValidationError(KindInvalidPayload, "stored form milestone data is unreadable")
	}
	return data.Values, nil
}
