// Package project defines the project domain model and payloads.
package project

import (
	"time"

	"github.com/taskboard/taskboard-cli/internal/domain/comment"
	"github.com/taskboard/taskboard-cli/internal/domain/identity"
	"github.com/taskboard/taskboard-cli/internal/domain/ref"
)

// Status is the project lifecycle state. Values are fixed by the backend.
type Status string

const (
	StatusNew                  Status = "new"
	StatusRequirementGathering Status = "requirement-gathering"
	StatusPlanning             Status = "planning"
	StatusExecution            Status = "execution"
	StatusMonitoringAndControl Status = "monitoring-and-control"
	StatusClose                Status = "close"
	StatusBlock                Status = "block"
	StatusWontDone             Status = "wont-done"
)

// Statuses lists every valid project status, in workflow order.
var Statuses = []Status{
	StatusNew,
	StatusRequirementGathering,
	StatusPlanning,
	StatusExecution,
	StatusMonitoringAndControl,
	StatusClose,
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

// Project is a project record as returned by the backend. Assignee, creator
// and member references may arrive expanded or as bare IDs depending on the
// endpoint; ref.Ref normalizes both shapes.
type Project struct {
	ID                 string                   `json:"_id"`
	Title              string                   `json:"title"`
	Description        string                   `json:"description"`
	AcceptanceCriteria string                   `json:"acceptanceCriteria"`
	Members            []ref.Ref[identity.User] `json:"members"`
	Deadline           time.Time                `json:"deadline,omitzero"`
	ClientDetails      string                   `json:"clientDetails,omitempty"`
	Status             Status                   `json:"status"`
	Comments           []comment.Comment        `json:"comments,omitempty"`
	CommentCount       int                      `json:"commentCount,omitempty"`
	Assignee           ref.Ref[identity.User]   `json:"assignee"`
	CreatedBy          ref.Ref[identity.User]   `json:"createdBy"`
	CreatedAt          time.Time                `json:"createdAt,omitzero"`
	UpdatedAt          time.Time                `json:"updatedAt,omitzero"`
}

// EntityID implements ref.Entity.
func (p Project) EntityID() string { return p.ID }

// CreatePayload is the request body for creating a project. Member and
// assignee references are always sent as bare IDs.
type CreatePayload struct {
	Title              string   `json:"title" validate:"required"`
	Description        string   `json:"description" validate:"required"`
	AcceptanceCriteria string   `json:"acceptanceCriteria" validate:"required"`
	Members            []string `json:"members" validate:"dive,required"`
	Deadline           string   `json:"deadline" validate:"required"`
	ClientDetails      string   `json:"clientDetails,omitempty"`
	Status             Status   `json:"status" validate:"required"`
	Assignee           string   `json:"assignee" validate:"required"`
}

// UpdatePayload is the request body for updating a project. Nil fields are
// omitted so the backend only touches what the caller set.
type UpdatePayload struct {
	Title              *string   `json:"title,omitempty"`
	Description        *string   `json:"description,omitempty"`
	AcceptanceCriteria *string   `json:"acceptanceCriteria,omitempty"`
	Members            *[]string `json:"members,omitempty"`
	Deadline           *string   `json:"deadline,omitempty"`
	ClientDetails      *string   `json:"clientDetails,omitempty"`
	Status             *Status   `json:"status,omitempty"`
	Assignee           *string   `json:"assignee,omitempty"`
}

// StatusCount is one bucket of the dashboard status breakdown.
type StatusCount struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

// Stats are the aggregate counts shown on the dashboard.
type Stats struct {
	TotalProjects     int           `json:"totalProjects"`
	ActiveProjects    int           `json:"activeProjects"`
	CompletedProjects int           `json:"completedProjects"`
	BlockedProjects   int           `json:"blockedProjects"`
	TotalMembers      int           `json:"totalMembers"`
	ProjectsByStatus  []StatusCount `json:"projectsByStatus"`
}
