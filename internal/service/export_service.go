package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/agent-portal-api/internal/lifecycle"
	"github.com/noah-isme/agent-portal-api/internal/models"
	appErrors "github.com/noah-isme/agent-portal-api/pkg/errors"
	"github.com/noah-isme/agent-portal-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ExportResult is a rendered journey document ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders an application's journey and milestone checklist.
type ExportService struct {
	journeys *JourneyService
	csv      documentRenderer
	pdf      documentRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(journeys *JourneyService, logger *zap.Logger, csv, pdf documentRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{journeys: journeys, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Export renders the journey of applicationID in the requested format.
func (s *ExportService) Export(ctx context.Context, applicationID, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	var (
		renderer    documentRenderer
		contentType string
	)
	switch format {
	case ExportFormatCSV:
		renderer, contentType = s.csv, "text/csv"
	case ExportFormatPDF:
		renderer, contentType = s.pdf, "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %s", format))
	}

	app, process, err := s.journeys.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	stages, err := lifecycle.Project(process, app)
	if err != nil {
		return nil, err
	}
	doc := buildJourneyDocument(process, app, stages)
	payload, err := renderer.Render(doc)
	if err != nil {
		s.logger.Error("failed to render journey export", zap.String("application_id", applicationID), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("journey_%s_%s.%s", sanitizeFilename(applicationID), s.now().UTC().Format("20060102_150405"), format)
	return &ExportResult{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

func buildJourneyDocument(process *models.Process, app *models.Application, stages []lifecycle.StageView) export.Document {
	journey := export.Dataset{
		Name:    "Journey",
		Headers: []string{"Stage", "State", "Status"},
	}
	for _, stage := range stages {
		journey.Rows = append(journey.Rows, map[string]string{
			"Stage":  stage.Name,
			"State":  string(stage.State),
			"Status": stage.StatusLabel,
		})
	}

	items := checklist(process, app)
	list := export.Dataset{
		Name:    "Milestones",
		Headers: []string{"Stage", "Status", "Milestone", "Type", "Required", "Completed", "Completed At"},
		Rows:    make([]map[string]string, 0, len(items)),
	}
	for _, item := range items {
		completed, completedAt := false, ""
		if item.Record != nil {
			completed = item.Record.Completed
			if item.Record.CompletedAt != nil {
				completedAt = item.Record.CompletedAt.UTC().Format(time.RFC3339)
			}
		}
		list.Rows = append(list.Rows, map[string]string{
			"Stage":        item.StageName,
			"Status":       item.StatusName,
			"Milestone":    item.Definition.Title,
			"Type":         string(item.Definition.Type),
			"Required":     strconv.FormatBool(item.Definition.Required),
			"Completed":    strconv.FormatBool(completed),
			"Completed At": completedAt,
		})
	}

	title := fmt.Sprintf("%s - %s (%s)", process.Name, app.ApplicantName, app.ID)
	return export.Document{Title: title, Sections: []export.Dataset{journey, list}}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
