package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	return Document{
		Title: "Journey app-1",
		Sections: []Dataset{
			{
				Name:    "Journey",
				Headers: []string{"Stage", "State"},
				Rows: []map[string]string{
					{"Stage": "Intake", "State": "done"},
					{"Stage": "Documents", "State": "current"},
				},
			},
			{
				Name:    "Checklist",
				Headers: []string{"Milestone", "Completed"},
				Rows:    []map[string]string{{"Milestone": "passport", "Completed": "yes"}},
			},
		},
	}
}

func TestCSVExporterRendersSections(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDocument())
	require.NoError(t, err)

	text := string(out)
	assert.True(t, strings.HasPrefix(text, "Stage,State\nIntake,done\nDocuments,current\n"))
	assert.True(t, strings.HasSuffix(text, "Checklist\nMilestone,Completed\npassport,yes\n"))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Document{Sections: []Dataset{{Name: "empty"}}})
	assert.Error(t, err)

	_, err = NewCSVExporter().Render(Document{})
	assert.Error(t, err)
}

func TestPDFExporterProducesPDF(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDocument())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}
