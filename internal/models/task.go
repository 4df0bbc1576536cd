package model

import (
	"time"

	"picking-control.com/picking-control/internal/constants"
)

// LineItem is one row of a pick list. PickStatus stays empty until the picker
// marks the item while working the task.
type LineItem struct {
	SKU            string                `json:"sku" bson:"sku"`
	Description    string                `json:"description" bson:"description"`
	Location       string                `json:"location" bson:"location"`
	QuantityToPick int                   `json:"quantityToPick" bson:"quantityToPick"`
	AvailableStock int                   `json:"availableStock" bson:"availableStock"`
	TotalPhysical  int                   `json:"totalPhysical,omitempty" bson:"totalPhysical,omitempty"`
	TotalAllocated int                   `json:"totalAllocated,omitempty" bson:"totalAllocated,omitempty"`
	PickStatus     constants.PickOutcome `json:"pickStatus,omitempty" bson:"pickStatus,omitempty"`
	PickNote       string                `json:"pickNote,omitempty" bson:"pickNote,omitempty"`
}

// Pause is a closed paused interval inside the active span of a task.
type Pause struct {
	Start           time.Time `json:"start" bson:"start"`
	End             time.Time `json:"end" bson:"end"`
	DurationSeconds float64   `json:"durationSeconds" bson:"durationSeconds"`
}

// TimelineEntry is one line of the append-only audit trail.
type TimelineEntry struct {
	Action    string    `json:"action" bson:"action"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Actor     string    `json:"actor" bson:"actor"`
	Details   string    `json:"details,omitempty" bson:"details,omitempty"`
}

// Movement is one row of the completion sheet a picker uploads to close a task.
type Movement struct {
	Date     string `json:"date" bson:"date"`
	Type     string `json:"type" bson:"type"`
	Quantity int    `json:"quantity" bson:"quantity"`
}

// CompletionSheet is the validated completion artifact attached to a DONE task.
type CompletionSheet struct {
	File          string     `json:"file,omitempty" bson:"file,omitempty"`
	Movements     []Movement `json:"movements" bson:"movements"`
	TotalRows     int        `json:"totalRows" bson:"totalRows"`
	TotalQuantity int        `json:"totalQuantity" bson:"totalQuantity"`
	UploadedAt    time.Time  `json:"uploadedAt" bson:"uploadedAt"`
}

// Task is the central record of one picking job. Nested sequences are stored
// as JSON columns under gorm and as subdocuments under mongo.
type Task struct {
	ID                string               `gorm:"primaryKey;size:36" json:"id" bson:"_id"`
	RequesterName     string               `gorm:"not null;index" json:"requesterName" bson:"requesterName"`
	PickerName        string               `json:"pickerName,omitempty" bson:"pickerName,omitempty"`
	Priority          constants.Priority   `gorm:"type:varchar(10);not null" json:"priority" bson:"priority"`
	Notes             string               `json:"notes,omitempty" bson:"notes,omitempty"`
	Status            constants.TaskStatus `gorm:"type:varchar(20);not null;index" json:"status" bson:"status"`
	Items             []LineItem           `gorm:"serializer:json" json:"items" bson:"items"`
	TotalItems        int                  `json:"totalItems" bson:"totalItems"`
	UniqueSKUs        int                  `json:"uniqueSkus" bson:"uniqueSkus"`
	OriginalFile      string               `json:"originalFile,omitempty" bson:"originalFile,omitempty"`
	StartTime         *time.Time           `json:"startTime,omitempty" bson:"startTime,omitempty"`
	EndTime           *time.Time           `json:"endTime,omitempty" bson:"endTime,omitempty"`
	IsPaused          bool                 `json:"isPaused" bson:"isPaused"`
	PauseStartTime    *time.Time           `json:"pauseStartTime,omitempty" bson:"pauseStartTime,omitempty"`
	Pauses            []Pause              `gorm:"serializer:json" json:"pauses" bson:"pauses"`
	ActiveTimeSeconds float64              `json:"activeTimeSeconds" bson:"activeTimeSeconds"`
	DurationFormatted string               `json:"durationFormatted,omitempty" bson:"durationFormatted,omitempty"`
	Completion        *CompletionSheet     `gorm:"serializer:json" json:"completion,omitempty" bson:"completion,omitempty"`
	Timeline          []TimelineEntry      `gorm:"serializer:json" json:"timeline" bson:"timeline"`
	CanceledBy        string               `json:"canceledBy,omitempty" bson:"canceledBy,omitempty"`
	CanceledAt        *time.Time           `json:"canceledAt,omitempty" bson:"canceledAt,omitempty"`
	CreatedAt         time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time            `json:"updatedAt" bson:"updatedAt"`
	Version           uint                 `gorm:"not null;default:1" json:"version" bson:"version"`
}

// Item returns the line item with the given SKU, or nil.
func (t *Task) Item(sku string) *LineItem {
	for i := range t.Items {
		if t.Items[i].SKU == sku {
			return &t.Items[i]
		}
	}
	return nil
}
