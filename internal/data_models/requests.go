package dto

import (
	"picking-control.com/picking-control/internal/constants"
	model "picking-control.com/picking-control/internal/models"
)

// CreateTaskRequest carries a preview-confirmed item list. Items arrive as a
// JSON-encoded string when posted alongside a multipart upload.
type CreateTaskRequest struct {
	RequesterName    string             `json:"requesterName" form:"requesterName"`
	Priority         constants.Priority `json:"priority" form:"priority"`
	Notes            string             `json:"notes" form:"notes"`
	Items            []model.LineItem   `json:"items"`
	OriginalFilename string             `json:"originalFilename" form:"originalFilename"`
}

type StartTaskRequest struct {
	PickerName string `json:"pickerName"`
}

type CancelTaskRequest struct {
	RequesterName string `json:"requesterName"`
}

type MarkItemRequest struct {
	Status constants.PickOutcome `json:"status"`
	Note   string                `json:"note"`
}

type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
