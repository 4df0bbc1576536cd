package errors

import "net/http"

// InvalidItem describes one line item rejected at task creation.
type InvalidItem struct {
	SKU         string `json:"sku"`
	Description string `json:"description"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
	Reason      string `json:"reason"`
}

// ValidationFailed carries the full list of offending line items.
func ValidationFailed(items []InvalidItem) *Exception {
	return errValidationFailed.WithDetails(map[string]any{"invalidItems": items})
}

var errValidationFailed = &Exception{
	Message:    "cannot request items without stock or above the available quantity",
	StatusCode: http.StatusBadRequest,
}

var ErrValidationFailed = errValidationFailed

var ErrMissingCompletionSheet = &Exception{
	Message:    "a completion sheet with movement date, movement type and material quantity is required",
	StatusCode: http.StatusBadRequest,
}
