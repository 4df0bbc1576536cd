package services

import (
	"context"
	"encoding/json"
	"sort"

	"picking-control.com/picking-control/internal/cache"
	"picking-control.com/picking-control/internal/constants"
	dto "picking-control.com/picking-control/internal/data_models"
	model "picking-control.com/picking-control/internal/models"
	repository "picking-control.com/picking-control/internal/repositories"
)

// MetricsService is a read-only reducer over the task set. Running it twice
// over the same tasks yields the same output; it never mutates anything.
type MetricsService struct {
	repo  repository.TaskRepository
	cache *cache.MetricsCache
}

func NewMetricsService(repo repository.TaskRepository, metricsCache *cache.MetricsCache) *MetricsService {
	return &MetricsService{repo: repo, cache: metricsCache}
}

// Overview computes the per-period rollups and the picker ranking
// (fastest average first, stable on ties).
func (s *MetricsService) Overview(ctx context.Context, period repository.Period) (*dto.MetricsResponse, error) {
	cacheKey := "metrics:" + string(period)
	if payload, ok := s.cache.Get(ctx, cacheKey); ok {
		var cached dto.MetricsResponse
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
	}

	tasks, err := s.repo.ListCompleted(ctx, period)
	if err != nil {
		return nil, err
	}

	response := reduceOverview(tasks, period)

	if payload, err := json.Marshal(response); err == nil {
		s.cache.Set(ctx, cacheKey, payload)
	}
	return response, nil
}

func reduceOverview(tasks []model.Task, period repository.Period) *dto.MetricsResponse {
	response := &dto.MetricsResponse{
		Period:              string(period),
		TotalCompletedTasks: len(tasks),
		ByAttendant:         make(map[string]dto.ActorRollup),
		ByPicker:            make(map[string]dto.ActorRollup),
		PickerRanking:       []dto.PickerRank{},
	}

	totalActive := 0.0
	var pickerOrder []string
	for _, task := range tasks {
		totalActive += task.ActiveTimeSeconds

		if task.RequesterName != "" {
			rollup := response.ByAttendant[task.RequesterName]
			rollup.Count++
			rollup.TotalActiveTime += task.ActiveTimeSeconds
			response.ByAttendant[task.RequesterName] = rollup
		}
		if task.PickerName != "" {
			if _, seen := response.ByPicker[task.PickerName]; !seen {
				pickerOrder = append(pickerOrder, task.PickerName)
			}
			rollup := response.ByPicker[task.PickerName]
			rollup.Count++
			rollup.TotalActiveTime += task.ActiveTimeSeconds
			response.ByPicker[task.PickerName] = rollup
		}
	}

	if len(tasks) > 0 {
		response.AverageActiveTime = totalActive / float64(len(tasks))
	}

	for _, name := range pickerOrder {
		rollup := response.ByPicker[name]
		response.PickerRanking = append(response.PickerRanking, dto.PickerRank{
			Name:          name,
			Count:         rollup.Count,
			AvgActiveTime: rollup.TotalActiveTime / float64(rollup.Count),
		})
	}
	sort.SliceStable(response.PickerRanking, func(i, j int) bool {
		return response.PickerRanking[i].AvgActiveTime < response.PickerRanking[j].AvgActiveTime
	})

	return response
}

// AdminDashboard computes the administrator rollups: picker efficiency in
// items per minute (descending) and attendant totals by task count.
func (s *MetricsService) AdminDashboard(ctx context.Context) (*dto.AdminDashboardResponse, error) {
	const cacheKey = "metrics:dashboard"
	if payload, ok := s.cache.Get(ctx, cacheKey); ok {
		var cached dto.AdminDashboardResponse
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
	}

	tasks, err := s.repo.List(ctx, repository.TaskFilter{})
	if err != nil {
		return nil, err
	}

	response := reduceDashboard(tasks)

	if payload, err := json.Marshal(response); err == nil {
		s.cache.Set(ctx, cacheKey, payload)
	}
	return response, nil
}

func reduceDashboard(tasks []model.Task) *dto.AdminDashboardResponse {
	response := &dto.AdminDashboardResponse{
		Pickers:    []dto.PickerEfficiency{},
		Attendants: []dto.AttendantSummary{},
	}

	pickers := make(map[string]*dto.PickerEfficiency)
	attendants := make(map[string]*dto.AttendantSummary)
	completedActive := 0.0

	for _, task := range tasks {
		response.Stats.TotalTasks++
		response.Stats.TotalItems += task.TotalItems

		switch task.Status {
		case constants.StatusPending:
			response.Stats.PendingTasks++
		case constants.StatusInProgress:
			response.Stats.InProgressTasks++
		case constants.StatusDone:
			response.Stats.CompletedTasks++
			completedActive += task.ActiveTimeSeconds

			if task.PickerName != "" {
				picker, ok := pickers[task.PickerName]
				if !ok {
					picker = &dto.PickerEfficiency{Name: task.PickerName}
					pickers[task.PickerName] = picker
				}
				picker.TasksCompleted++
				picker.TotalItems += task.TotalItems
				picker.TotalActiveTime += task.ActiveTimeSeconds
			}
		}

		attendant, ok := attendants[task.RequesterName]
		if !ok {
			attendant = &dto.AttendantSummary{Name: task.RequesterName}
			attendants[task.RequesterName] = attendant
		}
		attendant.TotalTasks++
		attendant.TotalItems += task.TotalItems
		if task.Status == constants.StatusDone {
			attendant.Completed++
		} else {
			attendant.Open++
		}
	}

	if response.Stats.CompletedTasks > 0 {
		response.Stats.AverageActiveTime = completedActive / float64(response.Stats.CompletedTasks)
	}

	for _, picker := range pickers {
		picker.AvgActiveTime = picker.TotalActiveTime / float64(picker.TasksCompleted)
		picker.AvgFormatted = FormatDuration(picker.AvgActiveTime)
		if picker.TotalActiveTime > 0 {
			picker.ItemsPerMinute = float64(picker.TotalItems) / (picker.TotalActiveTime / 60)
		}
		picker.EfficiencyLabel = FormatEfficiency(picker.ItemsPerMinute)
		response.Pickers = append(response.Pickers, *picker)
	}
	sort.SliceStable(response.Pickers, func(i, j int) bool {
		return response.Pickers[i].ItemsPerMinute > response.Pickers[j].ItemsPerMinute
	})

	for _, attendant := range attendants {
		response.Attendants = append(response.Attendants, *attendant)
	}
	sort.SliceStable(response.Attendants, func(i, j int) bool {
		return response.Attendants[i].TotalTasks > response.Attendants[j].TotalTasks
	})

	// List is already newest-first; keep the ten most recent.
	recent := tasks
	if len(recent) > 10 {
		recent = recent[:10]
	}
	response.RecentTasks = recent

	return response
}
