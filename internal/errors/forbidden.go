package errors

import "net/http"

var ErrDeleteForbidden = &Exception{
	Message:    "only administrators can delete tasks",
	StatusCode: http.StatusForbidden,
}

var ErrAdminRequired = &Exception{
	Message:    "administrator token required",
	StatusCode: http.StatusForbidden,
}

// CancelForbidden names the task creator and the rejected requester.
func CancelForbidden(creator, requester string, status string) *Exception {
	return errCancelForbidden.WithDetails(map[string]any{
		"creator":   creator,
		"requester": requester,
		"status":    status,
	})
}

var errCancelForbidden = &Exception{
	Message:    "you can only cancel tasks you created or tasks still pending or in progress",
	StatusCode: http.StatusForbidden,
}

var ErrCancelForbidden = errCancelForbidden
