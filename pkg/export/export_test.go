package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:    "Math - 10A",
		Subtitle: []string{"Teacher: Mr. Smith", "Due: 2025-06-01"},
		Headers:  []string{"Student", "Submitted At", "Late", "Grade", "Feedback"},
		Rows: [][]string{
			{"S1", "2025-06-02T00:00:00Z", "yes", "85", "Good, \"clear\""},
			{"S2", "2025-05-31T10:00:00Z", "no", "", ""},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" PDF ")
	require.NoError(t, err)
	require.Equal(t, FormatPDF, f)
	require.Equal(t, "application/pdf", f.ContentType())
	require.Equal(t, ".pdf", f.Extension())

	_, err = ParseFormat("xlsx")
	require.Error(t, err)
}

func TestCSVExporterQuotesValues(t *testing.T) {
	out, err := Render(FormatCSV, sampleDataset())
	require.NoError(t, err)
	require.Equal(t,
		"Student,Submitted At,Late,Grade,Feedback\n"+
			"S1,2025-06-02T00:00:00Z,yes,85,\"Good, \"\"clear\"\"\"\n"+
			"S2,2025-05-31T10:00:00Z,no,,\n",
		string(out))
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	data := sampleDataset()
	data.Rows = append(data.Rows, []string{"S3"})
	_, err := NewCSVExporter().Render(data)
	require.Error(t, err)

	_, err = NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	out, err := Render(FormatPDF, sampleDataset())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	_, err = NewPDFExporter().Render(Dataset{})
	require.Error(t, err)
}
