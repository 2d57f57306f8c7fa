package master

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
)

const (
	pathColWidth = 30
	keyColWidth  = 20
	langColWidth = 65
)

func readXLSX(fs afero.Fs, path string) (*Table, error) {
	r, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer r.Close()

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: missing header row", path)
	}
	return &Table{Header: rows[0], Rows: rows[1:]}, nil
}

func writeXLSX(fs afero.Fs, path string, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	for i, row := range append([][]string{t.Header}, t.Rows...) {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cellRef, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	if err := setColumnWidths(f, len(t.Header)); err != nil {
		return err
	}
	// Keep path, key and the reference locale visible while scrolling.
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      3,
		YSplit:      1,
		TopLeftCell: "D2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return fmt.Errorf("freezing panes: %w", err)
	}

	out, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer out.Close()
	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return out.Close()
}

func setColumnWidths(f *excelize.File, columns int) error {
	for col := 1; col <= columns; col++ {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return err
		}
		width := float64(langColWidth)
		switch col {
		case 1:
			width = pathColWidth
		case 2:
			width = keyColWidth
		}
		if err := f.SetColWidth(SheetName, name, name, width); err != nil {
			return fmt.Errorf("setting column width: %w", err)
		}
	}
	return nil
}
