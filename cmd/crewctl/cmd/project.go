package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tidewater-dev/crewdeck/internal/models"
	"github.com/tidewater-dev/crewdeck/internal/reporting"
	"github.com/tidewater-dev/crewdeck/internal/storage"
)

var (
	projectDBPath string
	projectName   string
	projectID     string
	projectForce  bool
)

// projectCmd represents the project command group
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project inspection commands",
	Long: `Commands for inspecting CrewDeck projects.

These commands operate directly on the database file. Project creation
and editing go through the API so ownership and notifications are
handled correctly; crewctl covers listing, inspection, and emergency
deletion.

Examples:
  # List all projects
  crewctl project list

  # Show project details
  crewctl project show --name "Website Redesign"

  # Delete a project and its tasks
  crewctl project delete --name "Website Redesign" --force`,
}

// projectListCmd lists all projects
var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	Long: `List all projects in the database.

Displays project ID, name, status, owner, and creation date.

Example:
  crewctl project list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		projects, err := store.Projects().List(ctx)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}

		if len(projects) == 0 {
			fmt.Println("No projects found.")
			return nil
		}

		// Print header
		fmt.Printf("\n%-36s  %-24s  %-12s  %-36s  %s\n",
			"ID", "NAME", "STATUS", "OWNER", "CREATED")
		fmt.Println(strings.Repeat("-", 130))

		for _, p := range projects {
			fmt.Printf("%-36s  %-24s  %-12s  %-36s  %s\n",
				p.ID,
				truncate(p.Name, 24),
				p.Status,
				p.OwnerID,
				p.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		fmt.Printf("\nTotal: %d project(s)\n", len(projects))

		return nil
	},
}

// projectShowCmd shows project details
var projectShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show project details",
	Long: `Show detailed information about a project, including its task
counts, weighted progress, and budget summary.

You can identify the project by either --name or --id.

Examples:
  crewctl project show --name "Website Redesign"
  crewctl project show --id 550e8400-e29b-41d4-a716-446655440000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		project, err := resolveProject(ctx, store.Projects(), projectName, projectID)
		if err != nil {
			return err
		}

		tasks, err := store.Tasks().ListByProject(ctx, project.ID)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		counts := reporting.CountTasks(tasks)
		budget := reporting.Budget(project)

		fmt.Println("\nProject Details:")
		fmt.Printf("  ID:          %s\n", project.ID)
		fmt.Printf("  Name:        %s\n", project.Name)
		fmt.Printf("  Description: %s\n", project.Description)
		fmt.Printf("  Status:      %s\n", project.Status)
		fmt.Printf("  Owner:       %s\n", project.OwnerID)
		if project.ManagerID != "" {
			fmt.Printf("  Manager:     %s\n", project.ManagerID)
		}
		fmt.Printf("  Created:     %s\n", project.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Updated:     %s\n", project.UpdatedAt.Format("2006-01-02 15:04:05"))
		fmt.Println("\nTasks:")
		fmt.Printf("  Total: %d (todo %d, in progress %d, review %d, completed %d)\n",
			counts.Total, counts.Todo, counts.InProgress, counts.Review, counts.Completed)
		fmt.Printf("  Progress: %.2f%%\n", reporting.Progress(tasks))
		fmt.Println("\nBudget:")
		fmt.Printf("  Allocated: %.2f\n", budget.Allocated)
		fmt.Printf("  Spent:     %.2f\n", budget.Spent)
		fmt.Printf("  Remaining: %.2f\n", budget.Remaining)

		return nil
	},
}

// projectDeleteCmd deletes a project
var projectDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a project",
	Long: `Delete a project from the database.

Tasks, comments, and risks belonging to the project are removed by the
schema's cascade rules.

Examples:
  crewctl project delete --name "Website Redesign"
  crewctl project delete --name "Website Redesign" --force  # skip confirmation`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		project, err := resolveProject(ctx, store.Projects(), projectName, projectID)
		if err != nil {
			return err
		}

		if !projectForce {
			fmt.Printf("Delete project '%s'? [y/N]: ", project.Name)
			var confirm string
			fmt.Scanln(&confirm)
			if !strings.EqualFold(confirm, "y") {
				fmt.Println("Canceled.")
				return nil
			}
		}

		if err := store.Projects().Delete(ctx, project.ID); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}

		fmt.Printf("Project deleted: %s\n", project.Name)
		return nil
	},
}

// projectTrendCmd prints the completion trend for a project
var projectTrendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show per-day completed task counts",
	Long: `Show the completion trend for a project: how many tasks were
completed on each day.

Examples:
  crewctl project trend --name "Website Redesign"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		project, err := resolveProject(ctx, store.Projects(), projectName, projectID)
		if err != nil {
			return err
		}

		trend, err := store.Tasks().CompletionTrend(ctx, project.ID)
		if err != nil {
			return fmt.Errorf("completion trend: %w", err)
		}

		if len(trend) == 0 {
			fmt.Println("No completed tasks yet.")
			return nil
		}

		fmt.Printf("\nCompletion trend for '%s':\n\n", project.Name)
		for _, point := range trend {
			fmt.Printf("  %s  %3d  %s\n", point.Date, point.Count, strings.Repeat("#", point.Count))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	projectCmd.AddCommand(projectTrendCmd)

	allCmds := []*cobra.Command{
		projectListCmd, projectShowCmd, projectDeleteCmd, projectTrendCmd,
	}
	for _, cmd := range allCmds {
		cmd.Flags().StringVar(&projectDBPath, "db", defaultDBPath, "path to SQLite database file")
	}

	// Show flags
	projectShowCmd.Flags().StringVar(&projectName, "name", "", "project name")
	projectShowCmd.Flags().StringVar(&projectID, "id", "", "project ID")

	// Delete flags
	projectDeleteCmd.Flags().StringVar(&projectName, "name", "", "project name")
	projectDeleteCmd.Flags().StringVar(&projectID, "id", "", "project ID")
	projectDeleteCmd.Flags().BoolVar(&projectForce, "force", false, "skip confirmation prompt")

	// Trend flags
	projectTrendCmd.Flags().StringVar(&projectName, "name", "", "project name")
	projectTrendCmd.Flags().StringVar(&projectID, "id", "", "project ID")
}

// resolveProject finds a project by name or ID (ID takes precedence).
func resolveProject(ctx context.Context, repo storage.ProjectRepository, name, id string) (*models.Project, error) {
	if id == "" && name == "" {
		return nil, fmt.Errorf("specify --name or --id")
	}
	if id != "" {
		p, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get project: %w", err)
		}
		if p == nil {
			return nil, fmt.Errorf("project not found: %s", id)
		}
		return p, nil
	}
	p, err := repo.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("project not found: %s", name)
	}
	return p, nil
}
