package spreadsheet

import "strings"

// Warehouse exports name the same columns in many ways; each lookup accepts
// the known variations, matched case-insensitively.
var (
	skuColumns = []string{
		"SKU", "Material Code", "Item Code", "Cod Material", "Product Code",
	}
	descriptionColumns = []string{
		"Description", "Material Description", "Item Description", "Material",
	}
	quantityColumns = []string{
		"Quantity", "Qty", "Quantity To Pick", "Qty To Pick",
		"Requested Quantity", "Requested Qty",
	}
	availableColumns = []string{
		"Available Stock", "Available", "Total Available",
		"Qty Available", "Available Qty",
	}
	physicalColumns = []string{
		"Total Physical", "Physical Stock", "Physical Qty",
	}
	allocatedColumns = []string{
		"Total Allocated", "Allocated Stock", "Allocated Qty",
	}
	locationColumns = []string{
		"Column", "Station", "Rack", "Allocated Row", "Allocated Column",
	}

	movementDateColumns = []string{
		"Movement Date", "Date", "Movement Day",
	}
	movementTypeColumns = []string{
		"Movement Type", "Type",
	}
	movementQuantityColumns = []string{
		"Material Quantity", "Quantity", "Qty", "Material Qty",
	}
)

// columnIndex maps a variation list to the position of the first header that
// matches any variation, or -1.
func columnIndex(headers []string, variations []string) int {
	for i, header := range headers {
		trimmed := strings.TrimSpace(header)
		for _, variation := range variations {
			if strings.EqualFold(trimmed, variation) {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
