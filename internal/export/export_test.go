package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/salonscope/harvest-cli/internal/model"
)

func sampleResults() []model.SalonDetails {
	phone := "03-1234-5678"
	return []model.SalonDetails{
		{
			Name:         "サロンABC",
			URL:          "https://example.com/slnH1/",
			StableID:     "1",
			Address:      "東京都渋谷区1-2-3",
			Phone:        &phone,
			InstagramURL: "https://instagram.com/salonabc_hair",
		},
		{
			Name:     "欠損サロン",
			URL:      "https://example.com/slnH2/",
			StableID: "N/A",
		},
	}
}

func TestCSV(t *testing.T) {
	data, err := CSV(sampleResults())
	require.NoError(t, err)

	require.True(t, bytes.HasPrefix(data, utf8BOM))

	r := csv.NewReader(bytes.NewReader(data[3:]))
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, columnHeaders, rows[0])
	assert.Equal(t, "サロンABC", rows[1][0])
	assert.Equal(t, "03-1234-5678", rows[1][2])
	assert.Equal(t, "https://instagram.com/salonabc_hair", rows[1][5])

	// Unresolved phone renders empty, not a sentinel.
	assert.Equal(t, "", rows[2][2])
	assert.Equal(t, "N/A", rows[2][4])
}

func TestXLSX(t *testing.T) {
	data, err := XLSX(sampleResults())
	require.NoError(t, err)

	path := t.TempDir() + "/out.xlsx"
	require.NoError(t, os.WriteFile(path, data, 0o644))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "サロン名", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "サロンABC", sheet.Rows[1].Cells[0].String())
}

func TestDirSink(t *testing.T) {
	sink, err := NewDirSink(t.TempDir() + "/exports")
	require.NoError(t, err)

	id, err := sink.Put("harvest.csv", "text/csv", []byte("a,b,c"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	path, ok := sink.Path(id)
	require.True(t, ok)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b,c", string(data))

	_, ok = sink.Path("unknown-id")
	assert.False(t, ok)
}
