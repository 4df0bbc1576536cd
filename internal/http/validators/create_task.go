package validators

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"picking-control.com/picking-control/internal/constants"
	dto "picking-control.com/picking-control/internal/data_models"
)

func ValidateCreateTaskRequest(r *dto.CreateTaskRequest) error {
	if r.RequesterName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "requester name is required")
	}
	if len(r.Items) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one item is required")
	}
	if r.Priority != "" && !constants.ValidPriority(r.Priority) {
		return echo.NewHTTPError(http.StatusBadRequest, "priority must be low, medium or high")
	}
	return nil
}
