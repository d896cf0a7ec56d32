package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/taskboard/taskboard-cli/internal/api"
	"github.com/taskboard/taskboard-cli/internal/domain/task"
)

func newTaskService(t *testing.T, handler http.Handler) *TaskService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewTaskService(api.NewClient(api.WithBaseURL(server.URL)))
}

func TestTaskListByProject(t *testing.T) {
	s := newTaskService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks/project/p1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"success":true,"tasks":[
			{"_id":"t1","title":"Design schema","project":"p1","status":"todo"},
			{"_id":"t2","title":"Write migration","project":"p1","parentTask":"t1","status":"new"}
		]}`)
	}))

	tasks, err := s.ListByProject(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks", len(tasks))
	}
	if tasks[0].ParentTask != nil {
		t.Errorf("top-level task has a parent: %+v", tasks[0].ParentTask)
	}
	if tasks[1].ParentTask == nil || tasks[1].ParentTask.ID() != "t1" {
		t.Errorf("subtask parent = %+v, want t1", tasks[1].ParentTask)
	}
	if tasks[0].Project.ID() != "p1" {
		t.Errorf("project ref = %q", tasks[0].Project.ID())
	}
}

func TestTaskGetExpandsSubtasks(t *testing.T) {
	s := newTaskService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"task":{
			"_id":"t1","title":"Design schema","status":"inprogress",
			"project":{"_id":"p1","title":"Billing revamp","status":"execution"},
			"subtasks":[{"_id":"t2","title":"Draft tables","project":"p1","status":"done"}],
			"subtaskCount":1
		}}`)
	}))

	got, err := s.Get(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p, ok := got.Project.Value(); !ok || p.Title != "Billing revamp" {
		t.Errorf("expanded project = %+v ok=%v", p, ok)
	}
	if len(got.Subtasks) != 1 || got.Subtasks[0].Status != task.StatusDone {
		t.Errorf("subtasks = %+v", got.Subtasks)
	}
}

func TestTaskCreateStatusRules(t *testing.T) {
	var hits int
	s := newTaskService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, `{"success":true,"task":{"_id":"t1","title":"X","project":"p1","status":"new"}}`)
	}))

	valid := task.CreatePayload{
		Title:              "Wire up invoice export",
		Description:        "CSV export",
		AcceptanceCriteria: "Matches the on-screen filter",
		Project:            "p1",
		Deadline:           "2026-09-15",
		Assignee:           "u1",
	}

	// Status is optional on create; the backend defaults it.
	if _, err := s.Create(context.Background(), valid); err != nil {
		t.Fatalf("Create without status: %v", err)
	}

	bad := valid
	bad.Status = "paused"
	if _, err := s.Create(context.Background(), bad); err == nil {
		t.Fatal("unknown status accepted")
	}
	if hits != 1 {
		t.Errorf("backend hits = %d, want invalid payload stopped locally", hits)
	}

	// Project statuses are not task statuses.
	bad.Status = "execution"
	if _, err := s.Create(context.Background(), bad); err == nil {
		t.Fatal("project-only status accepted for a task")
	}
}

func TestTaskUpdateRejectsInvalidStatus(t *testing.T) {
	s := newTaskService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid update reached the backend")
	}))

	bad := task.Status("paused")
	if _, err := s.Update(context.Background(), "t1", task.UpdatePayload{Status: &bad}); err == nil {
		t.Fatal("unknown status accepted")
	}
}

func TestTaskDeleteComment(t *testing.T) {
	s := newTaskService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/tasks/t1/comments/c1" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		fmt.Fprint(w, `{"success":true,"task":{"_id":"t1","title":"X","project":"p1","status":"new"}}`)
	}))

	if _, err := s.DeleteComment(context.Background(), "t1", "c1"); err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
}
