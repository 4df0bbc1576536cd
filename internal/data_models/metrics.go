package dto

import (
	model "picking-control.com/picking-control/internal/models"
)

// ActorRollup aggregates completed work for one attendant or picker.
type ActorRollup struct {
	Count           int     `json:"count"`
	TotalActiveTime float64 `json:"totalActiveTime"`
}

// PickerRank is one row of the fastest-average ranking.
type PickerRank struct {
	Name          string  `json:"name"`
	Count         int     `json:"count"`
	AvgActiveTime float64 `json:"avgActiveTime"`
}

type MetricsResponse struct {
	Period              string                 `json:"period"`
	TotalCompletedTasks int                    `json:"totalCompletedTasks"`
	AverageActiveTime   float64                `json:"averageActiveTime"`
	ByAttendant         map[string]ActorRollup `json:"byAttendant"`
	ByPicker            map[string]ActorRollup `json:"byPicker"`
	PickerRanking       []PickerRank           `json:"pickerRanking"`
}

// PickerEfficiency is the admin view of one picker: items per minute of
// active time, higher is better.
type PickerEfficiency struct {
	Name            string  `json:"name"`
	TasksCompleted  int     `json:"tasksCompleted"`
	TotalItems      int     `json:"totalItems"`
	TotalActiveTime float64 `json:"totalActiveTime"`
	AvgActiveTime   float64 `json:"avgActiveTime"`
	AvgFormatted    string  `json:"avgFormatted"`
	ItemsPerMinute  float64 `json:"itemsPerMinute"`
	EfficiencyLabel string  `json:"efficiencyLabel"`
}

// AttendantSummary is the admin view of one attendant's submissions.
type AttendantSummary struct {
	Name       string `json:"name"`
	TotalTasks int    `json:"totalTasks"`
	TotalItems int    `json:"totalItems"`
	Completed  int    `json:"completed"`
	Open       int    `json:"open"`
}

type DashboardStats struct {
	TotalTasks        int     `json:"totalTasks"`
	PendingTasks      int     `json:"pendingTasks"`
	InProgressTasks   int     `json:"inProgressTasks"`
	CompletedTasks    int     `json:"completedTasks"`
	TotalItems        int     `json:"totalItems"`
	AverageActiveTime float64 `json:"averageActiveTime"`
}

type AdminDashboardResponse struct {
	Stats       DashboardStats     `json:"stats"`
	Pickers     []PickerEfficiency `json:"pickers"`
	Attendants  []AttendantSummary `json:"attendants"`
	RecentTasks []model.Task       `json:"recentTasks"`
}
