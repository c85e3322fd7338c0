package export

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset(rows int) Dataset {
	data := Dataset{Headers: []string{"Class", "Student", "Date"}, Summary: []string{"Total classes: 8.5"}}
	for i := 0; i < rows; i++ {
		data.Rows = append(data.Rows, map[string]string{"Class": fmt.Sprintf("K%d", i), "Student": "A + B", "Date": "2025-01-02 16:00"})
	}
	return data
}

func TestCSVRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset(2))
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, utf8BOM))
	assert.Equal(t, "Class,Student,Date\nK0,A + B,2025-01-02 16:00\nK1,A + B,2025-01-02 16:00\n", string(out[len(utf8BOM):]))
}

func TestPDFRenderPaginates(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(120), "Absences")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "")
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "application/pdf", f.ContentType())

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}
