package export

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVRenderWritesHeaderAndRows(t *testing.T) {
	exporter := NewCSVExporter()

	out, err := exporter.Render(Dataset{
		Headers: []string{"Region", "Student"},
		Rows: [][]string{
			{"Dhaka", "Amina"},
			{"Khulna", "Karim, Jr."},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Region,Student\nDhaka,Amina\nKhulna,\"Karim, Jr.\"\n", string(out))
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}

func TestCSVRenderRejectsRaggedRows(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{
		Headers: []string{"Region", "Student"},
		Rows:    [][]string{{"Dhaka"}},
	})
	require.ErrorContains(t, err, "fields")
}
