package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/taskboard/taskboard-cli/internal/api"
	"github.com/taskboard/taskboard-cli/internal/domain/comment"
	"github.com/taskboard/taskboard-cli/internal/domain/task"
)

// TaskService wraps the /tasks endpoints.
type TaskService struct {
	client *api.Client
}

// NewTaskService creates a TaskService over the piped API client.
func NewTaskService(client *api.Client) *TaskService {
	return &TaskService{client: client}
}

// TasksResponse wraps a task listing.
type TasksResponse struct {
	api.Envelope
	Tasks []task.Task `json:"tasks"`
}

// TaskResponse wraps a single task.
type TaskResponse struct {
	api.Envelope
	Task task.Task `json:"task"`
}

// ListByProject returns the tasks of one project.
func (s *TaskService) ListByProject(ctx context.Context, projectID string) ([]task.Task, error) {
	var resp TasksResponse
	if err := s.client.Get(ctx, "/tasks/project/"+url.PathEscape(projectID), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("list tasks: %s", resp.Message)
	}
	return resp.Tasks, nil
}

// Get returns one task with subtasks and comments expanded.
func (s *TaskService) Get(ctx context.Context, taskID string) (*task.Task, error) {
	var resp TaskResponse
	if err := s.client.Get(ctx, "/tasks/"+url.PathEscape(taskID), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("get task: %s", resp.Message)
	}
	return &resp.Task, nil
}

// Create creates a task; a ParentTask in the payload makes it a subtask.
func (s *TaskService) Create(ctx context.Context, payload task.CreatePayload) (*task.Task, error) {
	if err := validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("invalid task payload: %w", err)
	}
	if payload.Status != "" && !payload.Status.Valid() {
		return nil, fmt.Errorf("invalid task status %q", payload.Status)
	}

	var resp TaskResponse
	if err := s.client.Post(ctx, "/tasks", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("create task: %s", resp.Message)
	}
	return &resp.Task, nil
}

// Update applies a partial update; only the payload's non-nil fields change.
func (s *TaskService) Update(ctx context.Context, taskID string, payload task.UpdatePayload) (*task.Task, error) {
	if payload.Status != nil && !payload.Status.Valid() {
		return nil, fmt.Errorf("invalid task status %q", *payload.Status)
	}

	var resp TaskResponse
	if err := s.client.Put(ctx, "/tasks/"+url.PathEscape(taskID), payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("update task: %s", resp.Message)
	}
	return &resp.Task, nil
}

// Delete removes a task and its subtasks.
func (s *TaskService) Delete(ctx context.Context, taskID string) error {
	var resp api.Envelope
	if err := s.client.Delete(ctx, "/tasks/"+url.PathEscape(taskID), &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("delete task: %s", resp.Message)
	}
	return nil
}

// AddComment appends a comment to the task's thread and returns the
// updated task.
func (s *TaskService) AddComment(ctx context.Context, taskID string, payload comment.AddPayload) (*task.Task, error) {
	if err := validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("invalid comment: %w", err)
	}
	var resp TaskResponse
	if err := s.client.Post(ctx, "/tasks/"+url.PathEscape(taskID)+"/comments", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("add comment: %s", resp.Message)
	}
	return &resp.Task, nil
}

// DeleteComment removes a comment from the task's thread.
func (s *TaskService) DeleteComment(ctx context.Context, taskID, commentID string) (*task.Task, error) {
	path := "/tasks/" + url.PathEscape(taskID) + "/comments/" + url.PathEscape(commentID)
	var resp TaskResponse
	if err := s.client.Delete(ctx, path, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("delete comment: %s", resp.Message)
	}
	return &resp.Task, nil
}
