package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/taskboard/taskboard-cli/internal/api"
	"github.com/taskboard/taskboard-cli/internal/domain/comment"
	"github.com/taskboard/taskboard-cli/internal/domain/project"
)

// ProjectService wraps the /projects endpoints.
type ProjectService struct {
	client *api.Client
}

// NewProjectService creates a ProjectService over the piped API client.
func NewProjectService(client *api.Client) *ProjectService {
	return &ProjectService{client: client}
}

// ProjectsResponse wraps the project listing.
type ProjectsResponse struct {
	api.Envelope
	Projects []project.Project `json:"projects"`
}

// ProjectResponse wraps a single project.
type ProjectResponse struct {
	api.Envelope
	Project project.Project `json:"project"`
}

// StatsResponse wraps the dashboard aggregates.
type StatsResponse struct {
	api.Envelope
	Stats project.Stats `json:"stats"`
}

// List returns every project visible to the current user.
func (s *ProjectService) List(ctx context.Context) ([]project.Project, error) {
	var resp ProjectsResponse
	if err := s.client.Get(ctx, "/projects", &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("list projects: %s", resp.Message)
	}
	return resp.Projects, nil
}

// Get returns one project with comments and members expanded.
func (s *ProjectService) Get(ctx context.Context, projectID string) (*project.Project, error) {
	var resp ProjectResponse
	if err := s.client.Get(ctx, "/projects/"+url.PathEscape(projectID), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("get project: %s", resp.Message)
	}
	return &resp.Project, nil
}

// Create creates a project from the given payload.
func (s *ProjectService) Create(ctx context.Context, payload project.CreatePayload) (*project.Project, error) {
	if err := validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("invalid project payload: %w", err)
	}
	if !payload.Status.Valid() {
		return nil, fmt.Errorf("invalid project status %q", payload.Status)
	}

	var resp ProjectResponse
	if err := s.client.Post(ctx, "/projects", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("create project: %s", resp.Message)
	}
	return &resp.Project, nil
}

// Update applies a partial update; only the payload's non-nil fields change.
func (s *ProjectService) Update(ctx context.Context, projectID string, payload project.UpdatePayload) (*project.Project, error) {
	if payload.Status != nil && !payload.Status.Valid() {
		return nil, fmt.Errorf("invalid project status %q", *payload.Status)
	}

	var resp ProjectResponse
	if err := s.client.Put(ctx, "/projects/"+url.PathEscape(projectID), payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("update project: %s", resp.Message)
	}
	return &resp.Project, nil
}

// Delete removes a project.
func (s *ProjectService) Delete(ctx context.Context, projectID string) error {
	var resp api.Envelope
	if err := s.client.Delete(ctx, "/projects/"+url.PathEscape(projectID), &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("delete project: %s", resp.Message)
	}
	return nil
}

// DashboardStats returns the aggregate project counts.
func (s *ProjectService) DashboardStats(ctx context.Context) (*project.Stats, error) {
	var resp StatsResponse
	if err := s.client.Get(ctx, "/projects/stats/dashboard", &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("dashboard stats: %s", resp.Message)
	}
	return &resp.Stats, nil
}

// AddComment appends a comment to the project's thread and returns the
// updated project.
func (s *ProjectService) AddComment(ctx context.Context, projectID string, payload comment.AddPayload) (*project.Project, error) {
	if err := validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("invalid comment: %w", err)
	}
	var resp ProjectResponse
	if err := s.client.Post(ctx, "/projects/"+url.PathEscape(projectID)+"/comments", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("add comment: %s", resp.Message)
	}
	return &resp.Project, nil
}

// DeleteComment removes a comment from the project's thread.
func (s *ProjectService) DeleteComment(ctx context.Context, projectID, commentID string) (*project.Project, error) {
	path := "/projects/" + url.PathEscape(projectID) + "/comments/" + url.PathEscape(commentID)
	var resp ProjectResponse
	if err := s.client.Delete(ctx, path, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("delete comment: %s", resp.Message)
	}
	return &resp.Project, nil
}
