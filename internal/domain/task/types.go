// Package task defines the task and subtask domain model and payloads.
package task

import (
	"time"

	"github.com/taskboard/taskboard-cli/internal/domain/comment"
	"github.com/taskboard/taskboard-cli/internal/domain/identity"
	"github.com/taskboard/taskboard-cli/internal/domain/project"
	"github.com/taskboard/taskboard-cli/internal/domain/ref"
)

// Status is the task lifecycle state. Values are fixed by the backend.
type Status string

const (
	StatusNew        Status = "new"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "inprogress"
	StatusTesting    Status = "testing"
	StatusDone       Status = "done"
	StatusBlock      Status = "block"
	StatusWontDone   Status = "wont-done"
)

// Statuses lists every valid task status, in workflow order.
var Statuses = []Status{
	StatusNew,
	StatusTodo,
	StatusInProgress,
	StatusTesting,
	StatusDone,
	StatusBlock,
	StatusWontDone,
}

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Task is a task record as returned by the backend. A task with a parent is
// a subtask; the backend expands Subtasks on single-task fetches.
type Task struct {
	ID                 string                   `json:"_id"`
	Title              string                   `json:"title"`
	Description        string                   `json:"description"`
	AcceptanceCriteria string                   `json:"acceptanceCriteria"`
	Project            ref.Ref[project.Project] `json:"project"`
	ParentTask         *ref.Ref[Task]           `json:"parentTask,omitempty"`
	Members            []ref.Ref[identity.User] `json:"members"`
	Deadline           time.Time                `json:"deadline,omitzero"`
	Status             Status                   `json:"status"`
	Assignee           ref.Ref[identity.User]   `json:"assignee"`
	CreatedBy          ref.Ref[identity.User]   `json:"createdBy"`
	Comments           []comment.Comment        `json:"comments,omitempty"`
	Subtasks           []Task                   `json:"subtasks,omitempty"`
	SubtaskCount       int                      `json:"subtaskCount,omitempty"`
	CreatedAt          time.Time                `json:"createdAt,omitzero"`
	UpdatedAt          time.Time                `json:"updatedAt,omitzero"`
}

// EntityID implements ref.Entity.
func (t Task) EntityID() string { return t.ID }

// CreatePayload is the request body for creating a task. References are
// always sent as bare IDs; ParentTask marks the new task as a subtask.
type CreatePayload struct {
	Title              string   `json:"title" validate:"required"`
	Description        string   `json:"description" validate:"required"`
	AcceptanceCriteria string   `json:"acceptanceCriteria" validate:"required"`
	Project            string   `json:"project" validate:"required"`
	ParentTask         string   `json:"parentTask,omitempty"`
	Members            []string `json:"members" validate:"dive,required"`
	Deadline           string   `json:"deadline" validate:"required"`
	Status             Status   `json:"status,omitempty"`
	Assignee           string   `json:"assignee" validate:"required"`
}

// UpdatePayload is the request body for updating a task. Nil fields are
// omitted so the backend only touches what the caller set.
type UpdatePayload struct {
	Title              *string   `json:"title,omitempty"`
	Description        *string   `json:"description,omitempty"`
	AcceptanceCriteria *string   `json:"acceptanceCriteria,omitempty"`
	Members            *[]string `json:"members,omitempty"`
	Deadline           *string   `json:"deadline,omitempty"`
	Status             *Status   `json:"status,omitempty"`
	Assignee           *string   `json:"assignee,omitempty"`
	ParentTask         *string   `json:"parentTask,omitempty"`
}
