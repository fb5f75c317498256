package reporting

import (
	"testing"

	"github.com/tidewater-dev/crewdeck/internal/models"
)

func tasksWith(statuses ...models.TaskStatus) []*models.Task {
	tasks := make([]*models.Task, len(statuses))
	for i, s := range statuses {
		tasks[i] = &models.Task{ID: "t", Status: s}
	}
	return tasks
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name  string
		tasks []*models.Task
		want  float64
	}{
		{
			name:  "no tasks",
			tasks: nil,
			want:  0,
		},
		{
			name:  "all todo",
			tasks: tasksWith(models.TaskTodo, models.TaskTodo),
			want:  0,
		},
		{
			name:  "all completed",
			tasks: tasksWith(models.TaskCompleted, models.TaskCompleted, models.TaskCompleted),
			want:  100,
		},
		{
			name: "mixed statuses",
			tasks: tasksWith(
				models.TaskCompleted, models.TaskCompleted, models.TaskCompleted, models.TaskCompleted,
				models.TaskReview, models.TaskReview,
				models.TaskInProgress, models.TaskInProgress,
				models.TaskTodo, models.TaskTodo,
			),
			want: 56.00,
		},
		{
			name:  "single review task",
			tasks: tasksWith(models.TaskReview),
			want:  75,
		},
		{
			name:  "rounding",
			tasks: tasksWith(models.TaskCompleted, models.TaskInProgress, models.TaskTodo),
			want:  50.00,
		},
		{
			name:  "two decimal rounding",
			tasks: tasksWith(models.TaskCompleted, models.TaskTodo, models.TaskTodo),
			want:  33.33,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Progress(tt.tasks); got != tt.want {
				t.Errorf("Progress() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountTasks(t *testing.T) {
	counts := CountTasks(tasksWith(
		models.TaskCompleted,
		models.TaskReview, models.TaskReview,
		models.TaskInProgress,
		models.TaskTodo,
	))

	if counts.Total != 5 {
		t.Errorf("Total = %d, want 5", counts.Total)
	}
	if counts.Completed != 1 || counts.Review != 2 || counts.InProgress != 1 || counts.Todo != 1 {
		t.Errorf("unexpected counts: %+v", counts)
	}
}

func TestBudget(t *testing.T) {
	p := &models.Project{
		Budget: []models.BudgetItem{
			{Item: "design", Amount: 1000},
			{Item: "build", Amount: 4000.555},
		},
		ActualExpenditure: 1500.25,
	}

	summary := Budget(p)
	if summary.Allocated != 5000.56 {
		t.Errorf("Allocated = %v, want 5000.56", summary.Allocated)
	}
	if summary.Spent != 1500.25 {
		t.Errorf("Spent = %v, want 1500.25", summary.Spent)
	}
	if summary.Remaining != 3500.31 {
		t.Errorf("Remaining = %v, want 3500.31", summary.Remaining)
	}
}

func TestValidateExpenditure(t *testing.T) {
	p := &models.Project{
		Budget: []models.BudgetItem{{Item: "all", Amount: 100}},
	}

	if err := ValidateExpenditure(p, 100); err != nil {
		t.Errorf("spend equal to budget should be allowed: %v", err)
	}
	if err := ValidateExpenditure(p, 100.01); err == nil {
		t.Error("spend above budget should be rejected")
	}
	if err := ValidateExpenditure(p, -1); err == nil {
		t.Error("negative spend should be rejected")
	}
}

func TestRisks(t *testing.T) {
	risks := []*models.Risk{
		{Severity: models.RiskCritical, Status: models.RiskActive},
		{Severity: models.RiskHigh, Status: models.RiskInMitigation},
		{Severity: models.RiskHigh, Status: models.RiskMitigated},
		{Severity: models.RiskLow, Status: models.RiskMitigated},
	}

	m := Risks(risks)
	if m.Total != 4 {
		t.Errorf("Total = %d, want 4", m.Total)
	}
	if m.Active != 2 {
		t.Errorf("Active = %d, want 2 (in-progress counts as active)", m.Active)
	}
	if m.Mitigated != 2 {
		t.Errorf("Mitigated = %d, want 2", m.Mitigated)
	}
	if m.BySeverity.High != 2 || m.BySeverity.Critical != 1 || m.BySeverity.Low != 1 {
		t.Errorf("unexpected severity counts: %+v", m.BySeverity)
	}
}
