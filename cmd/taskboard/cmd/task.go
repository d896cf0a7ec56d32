package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskboard/taskboard-cli/internal/domain/comment"
	"github.com/taskboard/taskboard-cli/internal/domain/task"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks and subtasks",
}

var taskListProject string

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tasks of a project",
	RunE:  runTaskList,
}

var taskGetCmd = &cobra.Command{
	Use:   "get <task-id>",
	Short: "Show one task with subtasks and comments",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskGet,
}

var (
	taskTitle       string
	taskDescription string
	taskCriteria    string
	taskProject     string
	taskParent      string
	taskMembers     []string
	taskDeadline    string
	taskStatus      string
	taskAssignee    string
)

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task",
	Long: `Create a task. Pass --parent to create it as a subtask.

Example:
  taskboard task create \
    --project 665f1c2e9d1a4b0012ab34ff \
    --title "Wire up invoice export" \
    --description "CSV export from the invoices list" \
    --criteria "Exports match the on-screen filter" \
    --assignee 665f1c2e9d1a4b0012ab34cd \
    --deadline 2026-09-15`,
	RunE: runTaskCreate,
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <task-id>",
	Short: "Update a task",
	Long:  `Update a task. Only the flags you pass are changed.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskUpdate,
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task and its subtasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDelete,
}

var taskCommentText string

var taskCommentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Manage task comments",
}

var taskCommentAddCmd = &cobra.Command{
	Use:   "add <task-id>",
	Short: "Comment on a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskCommentAdd,
}

var taskCommentDeleteCmd = &cobra.Command{
	Use:   "delete <task-id> <comment-id>",
	Short: "Delete a task comment",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskCommentDelete,
}

func init() {
	taskListCmd.Flags().StringVar(&taskListProject, "project", "", "Project ID (required)")

	for _, c := range []*cobra.Command{taskCreateCmd, taskUpdateCmd} {
		c.Flags().StringVar(&taskTitle, "title", "", "Task title")
		c.Flags().StringVar(&taskDescription, "description", "", "Task description")
		c.Flags().StringVar(&taskCriteria, "criteria", "", "Acceptance criteria")
		c.Flags().StringArrayVar(&taskMembers, "member", nil, "Member user ID (repeatable)")
		c.Flags().StringVar(&taskDeadline, "deadline", "", "Deadline (YYYY-MM-DD)")
		c.Flags().StringVar(&taskStatus, "status", "", "Task status")
		c.Flags().StringVar(&taskAssignee, "assignee", "", "Assignee user ID")
		c.Flags().StringVar(&taskParent, "parent", "", "Parent task ID (makes this a subtask)")
	}
	taskCreateCmd.Flags().StringVar(&taskProject, "project", "", "Project ID (required)")
	taskCommentAddCmd.Flags().StringVar(&taskCommentText, "text", "", "Comment text")

	taskCommentCmd.AddCommand(taskCommentAddCmd, taskCommentDeleteCmd)
	taskCmd.AddCommand(taskListCmd, taskGetCmd, taskCreateCmd,
		taskUpdateCmd, taskDeleteCmd, taskCommentCmd)
	rootCmd.AddCommand(taskCmd)
}

func runTaskList(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := requireAuth(app, "taskboard task list"); err != nil {
		return err
	}
	if taskListProject == "" {
		return fmt.Errorf("--project is required")
	}

	tasks, err := app.Tasks.ListByProject(app.ctx(cmd), taskListProject)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		marker := ""
		if t.ParentTask != nil && !t.ParentTask.IsZero() {
			marker = "  ↳ "
		}
		fmt.Printf("%-26s %s%-24s %-12s due %s\n",
			t.ID, marker, truncate(t.Title, 24), t.Status, formatDate(t.Deadline))
	}
	return nil
}

func runTaskGet(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := requireAuth(app, "taskboard task get"); err != nil {
		return err
	}

	t, err := app.Tasks.Get(app.ctx(cmd), args[0])
	if err != nil {
		return err
	}
	printTask(t)
	return nil
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := requireAuth(app, "taskboard task create"); err != nil {
		return err
	}

	payload := task.CreatePayload{
		Title:              taskTitle,
		Description:        taskDescription,
		AcceptanceCriteria: taskCriteria,
		Project:            taskProject,
		ParentTask:         taskParent,
		Members:            taskMembers,
		Deadline:           taskDeadline,
		Status:             task.Status(taskStatus),
		Assignee:           taskAssignee,
	}
	t, err := app.Tasks.Create(app.ctx(cmd), payload)
	if err != nil {
		return err
	}
	fmt.Printf("Created task %s (%s)\n", t.Title, t.ID)
	return nil
}

func runTaskUpdate(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := requireAuth(app, "taskboard task update"); err != nil {
		return err
	}

	var payload task.UpdatePayload
	flags := cmd.Flags()
	if flags.Changed("title") {
		payload.Title = &taskTitle
	}
	if flags.Changed("description") {
		payload.Description = &taskDescription
	}
	if flags.Changed("criteria") {
		payload.AcceptanceCriteria = &taskCriteria
	}
	if flags.Changed("member") {
		payload.Members = &taskMembers
	}
	if flags.Changed("deadline") {
		payload.Deadline = &taskDeadline
	}
	if flags.Changed("status") {
		status := task.Status(taskStatus)
		payload.Status = &status
	}
	if flags.Changed("assignee") {
		payload.Assignee = &taskAssignee
	}
	if flags.Changed("parent") {
		payload.ParentTask = &taskParent
	}

	t, err := app.Tasks.Update(app.ctx(cmd), args[0], payload)
	if err != nil {
		return err
	}
	fmt.Printf("Updated task %s (%s)\n", t.Title, t.ID)
	return nil
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := requireAuth(app, "taskboard task delete"); err != nil {
		return err
	}

	if err := app.Tasks.Delete(app.ctx(cmd), args[0]); err != nil {
		return err
	}
	fmt.Println("Task deleted.")
	return nil
}

func runTaskCommentAdd(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := requireAuth(app, "taskboard task comment add"); err != nil {
		return err
	}

	text := taskCommentText
	if text == "" {
		text = promptLine("Comment: ")
	}
	t, err := app.Tasks.AddComment(app.ctx(cmd), args[0], comment.AddPayload{Text: text})
	if err != nil {
		return err
	}
	fmt.Printf("Comment added to %s (%d comments)\n", t.Title, len(t.Comments))
	return nil
}

func runTaskCommentDelete(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := requireAuth(app, "taskboard task comment delete"); err != nil {
		return err
	}

	if _, err := app.Tasks.DeleteComment(app.ctx(cmd), args[0], args[1]); err != nil {
		return err
	}
	fmt.Println("Comment deleted.")
	return nil
}

// printTask renders one task in full.
func printTask(t *task.Task) {
	fmt.Printf("%s (%s)\n", t.Title, t.ID)
	fmt.Printf("  Status:      %s\n", t.Status)
	fmt.Printf("  Project:     %s\n", t.Project.ID())
	if t.ParentTask != nil && !t.ParentTask.IsZero() {
		fmt.Printf("  Parent:      %s\n", t.ParentTask.ID())
	}
	fmt.Printf("  Deadline:    %s\n", formatDate(t.Deadline))
	fmt.Printf("  Assignee:    %s\n", refName(t.Assignee))
	fmt.Printf("  Created by:  %s\n", refName(t.CreatedBy))
	fmt.Printf("  Description: %s\n", t.Description)
	fmt.Printf("  Criteria:    %s\n", t.AcceptanceCriteria)
	if len(t.Members) > 0 {
		fmt.Println("  Members:")
		for _, m := range t.Members {
			fmt.Printf("    - %s\n", refName(m))
		}
	}
	if len(t.Subtasks) > 0 {
		fmt.Println("  Subtasks:")
		for _, st := range t.Subtasks {
			fmt.Printf("    - %-24s %s\n", truncate(st.Title, 24), st.Status)
		}
	}
	if len(t.Comments) > 0 {
		fmt.Println("  Comments:")
		for _, c := range t.Comments {
			fmt.Printf("    [%s] %s: %s\n", formatDate(c.CreatedAt), refName(c.SentBy), c.Text)
		}
	}
}
