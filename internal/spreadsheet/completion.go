package spreadsheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	model "picking-control.com/picking-control/internal/models"
)

// ParseCompletionSheet validates the sheet a picker uploads to close a task.
// Movement date, movement type and material quantity are all required; every
// missing column is named in the error.
func ParseCompletionSheet(r io.Reader) (*model.CompletionSheet, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, invalidSheet("could not read completion sheet", nil)
	}
	defer workbook.Close()

	rows, err := workbook.GetRows(workbook.GetSheetList()[0])
	if err != nil {
		return nil, invalidSheet("could not read completion sheet", nil)
	}
	if len(rows) < 2 {
		return nil, invalidSheet("completion sheet is empty", nil)
	}

	headers := rows[0]
	dateIdx := columnIndex(headers, movementDateColumns)
	typeIdx := columnIndex(headers, movementTypeColumns)
	qtyIdx := columnIndex(headers, movementQuantityColumns)

	var missing []string
	if dateIdx < 0 {
		missing = append(missing, movementDateColumns[0])
	}
	if typeIdx < 0 {
		missing = append(missing, movementTypeColumns[0])
	}
	if qtyIdx < 0 {
		missing = append(missing, movementQuantityColumns[0])
	}
	if len(missing) > 0 {
		return nil, invalidSheet(
			fmt.Sprintf("required columns missing from completion sheet: %s", strings.Join(missing, ", ")),
			map[string]any{"missingColumns": missing},
		)
	}

	sheet := &model.CompletionSheet{}
	for _, row := range rows[1:] {
		movement := model.Movement{
			Date:     cell(row, dateIdx),
			Type:     cell(row, typeIdx),
			Quantity: parseInt(cell(row, qtyIdx)),
		}
		sheet.Movements = append(sheet.Movements, movement)
		sheet.TotalQuantity += movement.Quantity
	}
	sheet.TotalRows = len(sheet.Movements)

	return sheet, nil
}
