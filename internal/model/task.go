package model

import (
	"fmt"
	"strings"
	"time"

	"todoist-git-sync/internal/todoist"
)

// TaskInfo is the normalized task record the renderer consumes. Records
// are built fresh from the API each run and never persisted.
type TaskInfo struct {
	ID          string
	URL         string
	Title       string
	Description *string
	DueAt       *time.Time
	IsCompleted bool
	Priority    int
}

// NewTaskInfo normalizes a raw API task. An empty description becomes
// nil, an absent due field leaves DueAt nil (the task is a backlog
// item), and due timestamps are parsed as naive values.
func NewTaskInfo(task todoist.Task) (TaskInfo, error) {
	info := TaskInfo{
		ID:          task.ID,
		URL:         task.URL,
		Title:       task.Content,
		IsCompleted: task.IsCompleted,
		Priority:    task.Priority,
	}
	if task.Description != "" {
		description := task.Description
		info.Description = &description
	}
	if task.Due != nil {
		var (
			dueAt time.Time
			err   error
		)
		if task.Due.Datetime != "" {
			dueAt, err = ParseTimestamp(task.Due.Datetime)
		} else {
			dueAt, err = time.Parse("2006-01-02", task.Due.Date)
		}
		if err != nil {
			return TaskInfo{}, fmt.Errorf("task %s: parse due date: %w", task.ID, err)
		}
		info.DueAt = &dueAt
	}
	return info, nil
}

// ParseTimestamp parses an ISO-8601 timestamp as a timezone-naive
// value. A trailing UTC "Z" marker is stripped rather than converted:
// the exporter compares and formats all times in one frame.
func ParseTimestamp(value string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05", strings.TrimSuffix(value, "Z"))
}

// WeekNumber returns the Monday-start week of year, equivalent to
// strftime %W: days before the year's first Monday fall in week 0.
// Week numbers are not unique across years; the overdue/future cutoff
// compares against the current week computed by this same function, so
// the comparison stays internally consistent (accepted limitation at
// the year boundary).
func WeekNumber(t time.Time) int {
	yearDay := t.YearDay() - 1
	mondayWeekday := (int(t.Weekday()) + 6) % 7
	return (yearDay + 7 - mondayWeekday) / 7
}

// WeekBounds returns the Monday and Sunday of t's week.
func WeekBounds(t time.Time) (monday, sunday time.Time) {
	monday = t.AddDate(0, 0, -((int(t.Weekday()) + 6) % 7))
	sunday = monday.AddDate(0, 0, 6)
	return monday, sunday
}
