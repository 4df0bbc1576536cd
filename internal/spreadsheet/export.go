package spreadsheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	model "picking-control.com/picking-control/internal/models"
)

const exportSheet = "Task Items"

// TaskWorkbook renders a task's item table as a four-column xlsx for the
// picker to print or take along.
func TaskWorkbook(task *model.Task) ([]byte, error) {
	workbook := excelize.NewFile()
	defer workbook.Close()

	if err := workbook.SetSheetName(workbook.GetSheetName(0), exportSheet); err != nil {
		return nil, err
	}

	headers := []any{"SKU", "Description", "Location", "Qty To Pick"}
	if err := workbook.SetSheetRow(exportSheet, "A1", &headers); err != nil {
		return nil, err
	}

	for i, item := range task.Items {
		row := []any{item.SKU, item.Description, item.Location, item.QuantityToPick}
		cellRef := fmt.Sprintf("A%d", i+2)
		if err := workbook.SetSheetRow(exportSheet, cellRef, &row); err != nil {
			return nil, err
		}
	}

	widths := map[string]float64{"A": 15, "B": 50, "C": 35, "D": 15}
	for col, width := range widths {
		if err := workbook.SetColWidth(exportSheet, col, col, width); err != nil {
			return nil, err
		}
	}

	buf, err := workbook.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFilename names a task workbook download uniquely enough to defeat
// browser caching.
func ExportFilename(task *model.Task, now time.Time) string {
	short := task.ID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("task_%s_%s_%d.xlsx", short, now.Format("2006-01-02"), now.UnixMilli())
}

// CompletedCSV writes the completed-tasks report.
func CompletedCSV(tasks []model.Task, w io.Writer) error {
	writer := csv.NewWriter(w)

	header := []string{
		"ID", "Attendant", "Picker", "Priority", "Created At",
		"Started At", "Completed At", "Duration", "Unique SKUs", "Total Items",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, task := range tasks {
		record := []string{
			task.ID,
			task.RequesterName,
			task.PickerName,
			string(task.Priority),
			task.CreatedAt.Format(time.RFC3339),
			formatTime(task.StartTime),
			formatTime(task.EndTime),
			task.DurationFormatted,
			strconv.Itoa(task.UniqueSKUs),
			strconv.Itoa(task.TotalItems),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
