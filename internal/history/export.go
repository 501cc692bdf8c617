package history

import (
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// SheetName is the worksheet the export writes to.
const SheetName = "Task History"

var exportHeader = []string{"ID", "Action", "Topic", "Filters", "Status", "Error", "Created", "Updated"}

// ExportXLSX writes rows as a single-sheet workbook.
func ExportXLSX(w io.Writer, rows []Row) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "history: add sheet")
	}

	addRow(sheet, exportHeader)
	for _, r := range rows {
		addRow(sheet, []string{
			r.ID,
			r.Action,
			r.Topic,
			r.Filters,
			r.StatusLabel,
			r.ErrorPreview,
			formatTime(r.CreatedAt),
			formatTime(r.UpdatedAt),
		})
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "history: write workbook")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
