package errors

import "net/http"

// Invalid-state failures: the operation was attempted from a status that
// forbids it. All map to 400 like every state rejection the API reports.

var ErrAlreadyDone = &Exception{
	Message:    "task already completed",
	StatusCode: http.StatusBadRequest,
}

var ErrAlreadyCanceled = &Exception{
	Message:    "task already canceled",
	StatusCode: http.StatusBadRequest,
}

var ErrNotInProgress = &Exception{
	Message:    "task is not in progress",
	StatusCode: http.StatusBadRequest,
}

var ErrAlreadyPaused = &Exception{
	Message:    "task is already paused",
	StatusCode: http.StatusBadRequest,
}

var ErrNotPaused = &Exception{
	Message:    "task is not paused",
	StatusCode: http.StatusBadRequest,
}

// AlreadyInProgress reports the picker currently holding the task so the
// client can name the conflict.
func AlreadyInProgress(picker string) *Exception {
	return errAlreadyInProgress.WithDetails(map[string]any{"picker": picker})
}

var errAlreadyInProgress = &Exception{
	Message:    "task is already being picked",
	StatusCode: http.StatusBadRequest,
}

var ErrAlreadyInProgress = errAlreadyInProgress
