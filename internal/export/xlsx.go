package export

import (
	"bytes"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/salonscope/harvest-cli/internal/model"
)

// XLSX renders the result set as a single-sheet workbook.
func XLSX(results []model.SalonDetails) ([]byte, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("results")
	if err != nil {
		return nil, eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range columnHeaders {
		header.AddCell().SetString(h)
	}
	for _, r := range results {
		row := sheet.AddRow()
		for _, v := range recordRow(r) {
			row.AddCell().SetString(v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "export: write workbook")
	}
	return buf.Bytes(), nil
}
