package spreadsheet

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "picking-control.com/picking-control/internal/errors"
	model "picking-control.com/picking-control/internal/models"
)

// Sheet named like this is preferred when the workbook has several.
const preferredSheet = "picking"

// PickList is a decoded upload, ready for preview or task creation.
type PickList struct {
	Items      []model.LineItem `json:"items"`
	TotalItems int              `json:"totalItems"`
	UniqueSKUs int              `json:"uniqueSkus"`
}

func invalidSheet(message string, details map[string]any) error {
	return (&apperrors.Exception{
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}).WithDetails(details)
}

// ParsePickList reads an xlsx pick list. SKU and description columns are
// required; quantity may be absent because the attendant fills it in on the
// preview screen. Duplicate SKUs are merged by summing quantities.
func ParsePickList(r io.Reader) (*PickList, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, invalidSheet("could not read spreadsheet", nil)
	}
	defer workbook.Close()

	rows, err := workbook.GetRows(selectSheet(workbook))
	if err != nil {
		return nil, invalidSheet("could not read spreadsheet", nil)
	}
	if len(rows) == 0 {
		return nil, invalidSheet("spreadsheet is empty", nil)
	}

	headers := rows[0]
	skuIdx := columnIndex(headers, skuColumns)
	descIdx := columnIndex(headers, descriptionColumns)

	var missing []string
	if skuIdx < 0 {
		missing = append(missing, skuColumns[0])
	}
	if descIdx < 0 {
		missing = append(missing, descriptionColumns[0])
	}
	if len(missing) > 0 {
		return nil, invalidSheet(
			fmt.Sprintf("required columns missing: %s", strings.Join(missing, ", ")),
			map[string]any{"missingColumns": missing},
		)
	}

	qtyIdx := columnIndex(headers, quantityColumns)
	availIdx := columnIndex(headers, availableColumns)
	physIdx := columnIndex(headers, physicalColumns)
	allocIdx := columnIndex(headers, allocatedColumns)

	var locationIdx []int
	for _, name := range locationColumns {
		locationIdx = append(locationIdx, columnIndex(headers, []string{name}))
	}

	index := make(map[string]int)
	list := &PickList{}

	for _, row := range rows[1:] {
		sku := cell(row, skuIdx)
		if sku == "" {
			continue
		}

		qty := parseInt(cell(row, qtyIdx))
		if at, seen := index[sku]; seen {
			list.Items[at].QuantityToPick += qty
			continue
		}

		description := cell(row, descIdx)
		if description == "" {
			description = "No description"
		}

		var parts []string
		for _, idx := range locationIdx {
			if v := cell(row, idx); v != "" {
				parts = append(parts, v)
			}
		}
		location := strings.Join(parts, " - ")
		if location == "" {
			location = "Not informed"
		}

		index[sku] = len(list.Items)
		list.Items = append(list.Items, model.LineItem{
			SKU:            sku,
			Description:    description,
			Location:       location,
			QuantityToPick: qty,
			AvailableStock: parseInt(cell(row, availIdx)),
			TotalPhysical:  parseInt(cell(row, physIdx)),
			TotalAllocated: parseInt(cell(row, allocIdx)),
		})
	}

	for _, item := range list.Items {
		list.TotalItems += item.QuantityToPick
	}
	list.UniqueSKUs = len(list.Items)

	return list, nil
}

func selectSheet(workbook *excelize.File) string {
	sheets := workbook.GetSheetList()
	for _, name := range sheets {
		if strings.EqualFold(name, preferredSheet) {
			return name
		}
	}
	return sheets[0]
}

// parseInt tolerates the formats warehouse exports produce: blanks, floats
// formatted as "3.0", thousand separators.
func parseInt(s string) int {
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}
