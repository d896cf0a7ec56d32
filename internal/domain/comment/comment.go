// Package comment holds the threaded comment type shared by projects and tasks.
package comment

import (
	"time"

	"github.com/taskboard/taskboard-cli/internal/domain/identity"
	"github.com/taskboard/taskboard-cli/internal/domain/ref"
)

// Comment is a single comment on a project or a task. Exactly one of
// ProjectID and TaskID is set, matching the parent the comment belongs to.
type Comment struct {
	ID        string                  `json:"_id,omitempty"`
	Text      string                  `json:"text"`
	SentBy    ref.Ref[identity.User]  `json:"sentBy"`
	ProjectID string                  `json:"project,omitempty"`
	TaskID    string                  `json:"task,omitempty"`
	CreatedAt time.Time               `json:"createdAt,omitzero"`
	UpdatedAt time.Time               `json:"updatedAt,omitzero"`
}

// EntityID implements ref.Entity.
func (c Comment) EntityID() string { return c.ID }

// AddPayload is the request body for creating a comment.
type AddPayload struct {
	Text string `json:"text" validate:"required"`
}
