package domain

import "time"

type AlertKind string

const (
	AlertTaskCreated AlertKind = "task_created"
	AlertTaskFailed  AlertKind = "task_failed"
)

// Alert is emitted fire-and-forget to the notification collaborator.
type Alert struct {
	Kind       AlertKind
	TaskID     string
	TaskNumber string
	TaskType   TaskType
	Priority   int
	Message    string
	At         time.Time
}
