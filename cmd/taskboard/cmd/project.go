package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskboard/taskboard-cli/internal/domain/comment"
	"github.com/taskboard/taskboard-cli/internal/domain/identity"
	"github.com/taskboard/taskboard-cli/internal/domain/project"
	"github.com/taskboard/taskboard-cli/internal/domain/ref"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE:  runProjectList,
}

var projectGetCmd = &cobra.Command{
	Use:   "get <project-id>",
	Short: "Show one project with members and comments",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectGet,
}

var (
	projectTitle       string
	projectDescription string
	projectCriteria    string
	projectMembers     []string
	projectDeadline    string
	projectClient      string
	projectStatus      string
	projectAssignee    string
)

var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project",
	Long: `Create a project.

Example:
  taskboard project create \
    --title "Billing revamp" \
    --description "Replace the legacy invoicing flow" \
    --criteria "Invoices reconcile to the cent" \
    --assignee 665f1c2e9d1a4b0012ab34cd \
    --member 665f1c2e9d1a4b0012ab34cd --member 665f1c2e9d1a4b0012ab34ce \
    --deadline 2026-10-01 \
    --status planning`,
	RunE: runProjectCreate,
}

var projectUpdateCmd = &cobra.Command{
	Use:   "update <project-id>",
	Short: "Update a project",
	Long:  `Update a project. Only the flags you pass are changed.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectUpdate,
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectDelete,
}

var projectStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the dashboard aggregates",
	RunE:  runProjectStats,
}

var projectCommentText string

var projectCommentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Manage project comments",
}

var projectCommentAddCmd = &cobra.Command{
	Use:   "add <project-id>",
	Short: "Comment on a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectCommentAdd,
}

var projectCommentDeleteCmd = &cobra.Command{
	Use:   "delete <project-id> <comment-id>",
	Short: "Delete a project comment",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectCommentDelete,
}

func init() {
	for _, c := range []*cobra.Command{projectCreateCmd, projectUpdateCmd} {
		c.Flags().StringVar(&projectTitle, "title", "", "Project title")
		c.Flags().StringVar(&projectDescription, "description", "", "Project description")
		c.Flags().StringVar(&projectCriteria, "criteria", "", "Acceptance criteria")
		c.Flags().StringArrayVar(&projectMembers, "member", nil, "Member user ID (repeatable)")
		c.Flags().StringVar(&projectDeadline, "deadline", "", "Deadline (YYYY-MM-DD)")
		c.Flags().StringVar(&projectClient, "client", "", "Client details")
		c.Flags().StringVar(&projectStatus, "status", "", "Project status")
		c.Flags().StringVar(&projectAssignee, "assignee", "", "Assignee user ID")
	}
	projectCommentAddCmd.Flags().StringVar(&projectCommentText, "text", "", "Comment text")

	projectCommentCmd.AddCommand(projectCommentAddCmd, projectCommentDeleteCmd)
	projectCmd.AddCommand(projectListCmd, projectGetCmd, projectCreateCmd,
		projectUpdateCmd, projectDeleteCmd, projectStatsCmd, projectCommentCmd)
	rootCmd.AddCommand(projectCmd)
}

func runProjectList(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := requireAuth(app, "taskboard project list"); err != nil {
		return err
	}

	projects, err := app.Projects.List(app.ctx(cmd))
	if err != nil {
		return err
	}
	for _, p := range projects {
		fmt.Printf("%-26s %-24s %-22s due %s\n",
			p.ID, truncate(p.Title, 24), p.Status, formatDate(p.Deadline))
	}
	return nil
}

func runProjectGet(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := requireAuth(app, "taskboard project get"); err != nil {
		return err
	}

	p, err := app.Projects.Get(app.ctx(cmd), args[0])
	if err != nil {
		return err
	}
	printProject(p)
	return nil
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := requireAuth(app, "taskboard project create"); err != nil {
		return err
	}

	status := project.Status(projectStatus)
	if status == "" {
		status = project.StatusNew
	}
	payload := project.CreatePayload{
		Title:              projectTitle,
		Description:        projectDescription,
		AcceptanceCriteria: projectCriteria,
		Members:            projectMembers,
		Deadline:           projectDeadline,
		ClientDetails:      projectClient,
		Status:             status,
		Assignee:           projectAssignee,
	}
	p, err := app.Projects.Create(app.ctx(cmd), payload)
	if err != nil {
		return err
	}
	fmt.Printf("Created project %s (%s)\n", p.Title, p.ID)
	return nil
}

func runProjectUpdate(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := requireAuth(app, "taskboard project update"); err != nil {
		return err
	}

	var payload project.UpdatePayload
	flags := cmd.Flags()
	if flags.Changed("title") {
		payload.Title = &projectTitle
	}
	if flags.Changed("description") {
		payload.Description = &projectDescription
	}
	if flags.Changed("criteria") {
		payload.AcceptanceCriteria = &projectCriteria
	}
	if flags.Changed("member") {
		payload.Members = &projectMembers
	}
	if flags.Changed("deadline") {
		payload.Deadline = &projectDeadline
	}
	if flags.Changed("client") {
		payload.ClientDetails = &projectClient
	}
	if flags.Changed("status") {
		status := project.Status(projectStatus)
		payload.Status = &status
	}
	if flags.Changed("assignee") {
		payload.Assignee = &projectAssignee
	}

	p, err := app.Projects.Update(app.ctx(cmd), args[0], payload)
	if err != nil {
		return err
	}
	fmt.Printf("Updated project %s (%s)\n", p.Title, p.ID)
	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := requireAuth(app, "taskboard project delete"); err != nil {
		return err
	}

	if err := app.Projects.Delete(app.ctx(cmd), args[0]); err != nil {
		return err
	}
	fmt.Println("Project deleted.")
	return nil
}

func runProjectStats(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := requireAuth(app, "taskboard project stats"); err != nil {
		return err
	}

	stats, err := app.Projects.DashboardStats(app.ctx(cmd))
	if err != nil {
		return err
	}
	fmt.Printf("Projects:  %d total, %d active, %d completed, %d blocked\n",
		stats.TotalProjects, stats.ActiveProjects, stats.CompletedProjects, stats.BlockedProjects)
	fmt.Printf("Members:   %d\n", stats.TotalMembers)
	for _, bucket := range stats.ProjectsByStatus {
		fmt.Printf("  %-24s %d\n", bucket.Status, bucket.Count)
	}
	return nil
}

func runProjectCommentAdd(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := requireAuth(app, "taskboard project comment add"); err != nil {
		return err
	}

	text := projectCommentText
	if text == "" {
		text = promptLine("Comment: ")
	}
	p, err := app.Projects.AddComment(app.ctx(cmd), args[0], comment.AddPayload{Text: text})
	if err != nil {
		return err
	}
	fmt.Printf("Comment added to %s (%d comments)\n", p.Title, len(p.Comments))
	return nil
}

func runProjectCommentDelete(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := requireAuth(app, "taskboard project comment delete"); err != nil {
		return err
	}

	if _, err := app.Projects.DeleteComment(app.ctx(cmd), args[0], args[1]); err != nil {
		return err
	}
	fmt.Println("Comment deleted.")
	return nil
}

// printProject renders one project in full.
func printProject(p *project.Project) {
	fmt.Printf("%s (%s)\n", p.Title, p.ID)
	fmt.Printf("  Status:      %s\n", p.Status)
	fmt.Printf("  Deadline:    %s\n", formatDate(p.Deadline))
	fmt.Printf("  Assignee:    %s\n", refName(p.Assignee))
	fmt.Printf("  Created by:  %s\n", refName(p.CreatedBy))
	if p.ClientDetails != "" {
		fmt.Printf("  Client:      %s\n", p.ClientDetails)
	}
	fmt.Printf("  Description: %s\n", p.Description)
	fmt.Printf("  Criteria:    %s\n", p.AcceptanceCriteria)
	if len(p.Members) > 0 {
		fmt.Println("  Members:")
		for _, m := range p.Members {
			fmt.Printf("    - %s\n", refName(m))
		}
	}
	if len(p.Comments) > 0 {
		fmt.Println("  Comments:")
		for _, c := range p.Comments {
			fmt.Printf("    [%s] %s: %s\n", formatDate(c.CreatedAt), refName(c.SentBy), c.Text)
		}
	}
}

// refName renders a user reference: the name when the backend expanded it,
// the bare ID otherwise.
func refName(r ref.Ref[identity.User]) string {
	if u, ok := r.Value(); ok {
		return u.Name
	}
	return r.ID()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
