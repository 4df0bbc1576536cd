package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"picking-control.com/picking-control/internal/constants"
	dto "picking-control.com/picking-control/internal/data_models"
	apperrors "picking-control.com/picking-control/internal/errors"
	"picking-control.com/picking-control/internal/http/validators"
	repository "picking-control.com/picking-control/internal/repositories"
	"picking-control.com/picking-control/internal/services"
	"picking-control.com/picking-control/internal/spreadsheet"
)

type Handler struct {
	lifecycle *services.LifecycleService
	metrics   *services.MetricsService
	auth      *services.AuthService
	store     *spreadsheet.Storage
}

func NewHandler(
	lifecycle *services.LifecycleService,
	metrics *services.MetricsService,
	auth *services.AuthService,
	store *spreadsheet.Storage,
) *Handler {
	return &Handler{
		lifecycle: lifecycle,
		metrics:   metrics,
		auth:      auth,
		store:     store,
	}
}

// respondError maps business failures to their status with structured details;
// anything unexpected becomes an opaque 500.
func respondError(c echo.Context, err error) error {
	status := apperrors.StatusCode(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request().Method, c.Path(), err)
		return c.JSON(status, echo.Map{"error": "internal error"})
	}

	payload := echo.Map{"error": err.Error()}
	for key, value := range apperrors.Details(err) {
		payload[key] = value
	}
	return c.JSON(status, payload)
}

// PreviewTask parses an uploaded pick list and returns its rows for review.
// The stored filename is echoed back so the confirm call can reference it.
func (h *Handler) PreviewTask(c echo.Context) error {
	file, err := c.FormFile("sheet")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no file uploaded")
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not open uploaded file")
	}
	defer src.Close()

	list, err := spreadsheet.ParsePickList(src)
	if err != nil {
		return respondError(c, err)
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not rewind upload")
	}
	stored, err := h.store.Store(file.Filename, src)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"filename": stored,
		"items":    list.Items,
		"summary": echo.Map{
			"totalItems": list.TotalItems,
			"uniqueSkus": list.UniqueSKUs,
			"rows":       len(list.Items),
		},
	})
}

// CreateTask accepts either preview-confirmed items or a direct upload.
func (h *Handler) CreateTask(c echo.Context) error {
	req, err := h.decodeCreateRequest(c)
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		return respondError(c, err)
	}
	if err := validators.ValidateCreateTaskRequest(req); err != nil {
		return err
	}

	task, err := h.lifecycle.Create(c.Request().Context(), services.CreateTaskParams{
		RequesterName: req.RequesterName,
		Priority:      req.Priority,
		Notes:         req.Notes,
		OriginalFile:  req.OriginalFilename,
		Items:         req.Items,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"taskId":  task.ID,
		"summary": echo.Map{
			"totalItems": task.TotalItems,
			"uniqueSkus": task.UniqueSKUs,
		},
	})
}

func (h *Handler) decodeCreateRequest(c echo.Context) (*dto.CreateTaskRequest, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		var req dto.CreateTaskRequest
		if err := c.Bind(&req); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
		}
		return &req, nil
	}

	req := &dto.CreateTaskRequest{
		RequesterName:    c.FormValue("requesterName"),
		Priority:         constants.Priority(c.FormValue("priority")),
		Notes:            c.FormValue("notes"),
		OriginalFilename: c.FormValue("originalFilename"),
	}

	if itemsJSON := c.FormValue("items"); itemsJSON != "" {
		if err := json.Unmarshal([]byte(itemsJSON), &req.Items); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid items payload")
		}
		return req, nil
	}

	// Direct upload without the preview round trip.
	file, err := c.FormFile("sheet")
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "no file or item data provided")
	}
	src, err := file.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "could not open uploaded file")
	}
	defer src.Close()

	list, err := spreadsheet.ParsePickList(src)
	if err != nil {
		return nil, err
	}

	if _, err := src.Seek(0, io.SeekStart); err == nil {
		if stored, storeErr := h.store.Store(file.Filename, src); storeErr == nil {
			req.OriginalFilename = stored
		}
	}

	req.Items = list.Items
	return req, nil
}

func (h *Handler) ListTasks(c echo.Context) error {
	filter := repository.TaskFilter{
		Status:        constants.TaskStatus(c.QueryParam("status")),
		RequesterName: c.QueryParam("requester"),
	}
	filter.From = parseDate(c.QueryParam("from"))
	filter.To = parseDate(c.QueryParam("to"))

	tasks, err := h.lifecycle.List(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tasks)
}

func (h *Handler) GetTask(c echo.Context) error {
	task, err := h.lifecycle.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (h *Handler) StartTask(c echo.Context) error {
	var req dto.StartTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	if req.PickerName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "picker name is required")
	}

	task, err := h.lifecycle.Start(c.Request().Context(), c.Param("id"), req.PickerName)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "picking started",
		"task": echo.Map{
			"id":        task.ID,
			"status":    task.Status,
			"startTime": task.StartTime,
		},
	})
}

func (h *Handler) PauseTask(c echo.Context) error {
	if _, err := h.lifecycle.Pause(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "picking paused"})
}

func (h *Handler) ResumeTask(c echo.Context) error {
	if _, err := h.lifecycle.Resume(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "picking resumed"})
}

func (h *Handler) MarkItem(c echo.Context) error {
	var req dto.MarkItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	if req.Status != constants.PickOK && req.Status != constants.PickMissing {
		return echo.NewHTTPError(http.StatusBadRequest, "status must be OK or MISSING")
	}

	item, err := h.lifecycle.MarkItem(c.Request().Context(), c.Param("id"), c.Param("sku"), req.Status, req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "item": item})
}

// CompleteTask requires a completion sheet upload; the task stays untouched
// when the sheet is absent or invalid.
func (h *Handler) CompleteTask(c echo.Context) error {
	file, err := c.FormFile("completionSheet")
	if err != nil {
		return respondError(c, apperrors.ErrMissingCompletionSheet)
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not open uploaded file")
	}
	defer src.Close()

	sheet, err := spreadsheet.ParseCompletionSheet(src)
	if err != nil {
		return respondError(c, err)
	}

	if _, seekErr := src.Seek(0, io.SeekStart); seekErr == nil {
		if stored, storeErr := h.store.Store(file.Filename, src); storeErr == nil {
			sheet.File = stored
		}
	}

	task, err := h.lifecycle.Complete(c.Request().Context(), c.Param("id"), sheet)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"message":    "picking completed",
		"duration":   task.DurationFormatted,
		"activeTime": task.ActiveTimeSeconds,
		"completionSheet": echo.Map{
			"totalRows":     task.Completion.TotalRows,
			"totalQuantity": task.Completion.TotalQuantity,
		},
	})
}

func (h *Handler) CancelTask(c echo.Context) error {
	var req dto.CancelTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	if req.RequesterName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "requester name is required")
	}

	if _, err := h.lifecycle.Cancel(c.Request().Context(), c.Param("id"), req.RequesterName); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "task canceled"})
}

func (h *Handler) DeleteTask(c echo.Context) error {
	isAdmin := h.auth.IsAdmin(bearerToken(c))
	if err := h.lifecycle.Delete(c.Request().Context(), c.Param("id"), isAdmin); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "task deleted"})
}

func (h *Handler) Metrics(c echo.Context) error {
	period := repository.Period(c.QueryParam("period"))
	response, err := h.metrics.Overview(c.Request().Context(), period)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, response)
}

func (h *Handler) AdminDashboard(c echo.Context) error {
	if !h.auth.IsAdmin(bearerToken(c)) {
		return respondError(c, apperrors.ErrAdminRequired)
	}
	response, err := h.metrics.AdminDashboard(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, response)
}

func (h *Handler) AdminLogin(c echo.Context) error {
	var req dto.AdminLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}

	token, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "token": token})
}

func (h *Handler) ExportCSV(c echo.Context) error {
	filter := repository.TaskFilter{Status: constants.StatusDone}
	filter.From = parseDate(c.QueryParam("from"))
	filter.To = parseDate(c.QueryParam("to"))

	tasks, err := h.lifecycle.List(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename=report.csv`)
	c.Response().WriteHeader(http.StatusOK)
	return spreadsheet.CompletedCSV(tasks, c.Response())
}

func (h *Handler) ExportTaskExcel(c echo.Context) error {
	task, err := h.lifecycle.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	payload, err := spreadsheet.TaskWorkbook(task)
	if err != nil {
		return respondError(c, err)
	}

	filename := spreadsheet.ExportFilename(task, time.Now())
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", payload)
}

func (h *Handler) Download(c echo.Context) error {
	name := c.Param("filename")
	return c.Attachment(h.store.Path(name), name)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	return strings.TrimPrefix(header, "Bearer ")
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
