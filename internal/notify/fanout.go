// Package notify computes notification fan-out for domain events and
// delivers the resulting rows through an outbox, decoupling notification
// persistence from the request that triggered it. A fan-out failure is
// logged and dropped; it never fails the triggering action.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/tidewater-dev/crewdeck/internal/models"
	"github.com/tidewater-dev/crewdeck/internal/storage"
)

// Event describes a state change that fans out to notifications.
type Event struct {
	Type      models.NotificationType
	ActorID   string
	ActorName string
	Title     string // resource title embedded in the message
	ProjectID string
	TaskID    string
	// OwnerID is the resource owner (task creator or project owner).
	OwnerID string
	// AssigneeID is the task assignee, when the event concerns a task.
	AssigneeID string
	// Detail adds event-specific context (e.g. the new status).
	Detail string
}

// Message renders the human-readable notification text for an event.
func (e Event) Message() string {
	switch e.Type {
	case models.NotifyProjectCreated:
		return fmt.Sprintf("%s created a new project: %s", e.ActorName, e.Title)
	case models.NotifyTaskCreated:
		return fmt.Sprintf("%s created a new task: %s", e.ActorName, e.Title)
	case models.NotifyTaskAssigned:
		return fmt.Sprintf("%s assigned you to task: %s", e.ActorName, e.Title)
	case models.NotifyTaskStatus:
		return fmt.Sprintf("%s updated task status to %s: %s", e.ActorName, e.Detail, e.Title)
	case models.NotifyTaskDeleted:
		return fmt.Sprintf("%s deleted task: %s", e.ActorName, e.Title)
	case models.NotifyComment:
		return fmt.Sprintf("%s commented on task: %s", e.ActorName, e.Title)
	case models.NotifyFile:
		return fmt.Sprintf("%s uploaded a file: %s", e.ActorName, e.Title)
	case models.NotifyRiskCreated:
		return fmt.Sprintf("%s reported a new risk: %s", e.ActorName, e.Title)
	case models.NotifyRiskMitigated:
		return fmt.Sprintf("%s mitigated risk: %s", e.ActorName, e.Title)
	default:
		return fmt.Sprintf("%s updated %s", e.ActorName, e.Title)
	}
}

// Fanout computes recipient sets and queues delivery intents.
type Fanout struct {
	storage storage.Storage
	outbox  *Outbox
}

// NewFanout creates a fan-out service writing to the given outbox.
func NewFanout(store storage.Storage, outbox *Outbox) *Fanout {
	return &Fanout{storage: store, outbox: outbox}
}

// Emit computes the recipient set for the event and queues one intent per
// recipient. Best-effort: any error is logged and swallowed so the caller's
// primary action cannot fail because of notification bookkeeping.
func (f *Fanout) Emit(ctx context.Context, event Event) {
	recipients, err := f.recipients(ctx, event)
	if err != nil {
		log.Printf("notification fan-out failed for %s: %v", event.Type, err)
		return
	}

	message := event.Message()
	for _, userID := range recipients {
		intent := Intent{
			Type:        event.Type,
			Message:     message,
			RecipientID: userID,
			ProjectID:   event.ProjectID,
			TaskID:      event.TaskID,
		}
		// Assignment events carry a personalized message for the assignee.
		if event.Type == models.NotifyTaskAssigned && userID != event.AssigneeID {
			intent.Message = fmt.Sprintf("%s assigned %s: %s", event.ActorName, event.Detail, event.Title)
		}
		f.outbox.Queue(intent)
	}
}

// recipients builds the deduplicated recipient set, never including the
// actor:
//  1. all admins
//  2. all project managers
//  3. the resource owner
//  4. the task assignee
//  5. remaining project members (users with a task assigned in the project)
func (f *Fanout) recipients(ctx context.Context, event Event) ([]string, error) {
	seen := map[string]bool{event.ActorID: true}
	var recipients []string

	add := func(userID string) {
		if userID == "" || seen[userID] {
			return
		}
		seen[userID] = true
		recipients = append(recipients, userID)
	}

	admins, err := f.storage.Users().ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	for _, u := range admins {
		add(u.ID)
	}

	managers, err := f.storage.Users().ListByRole(ctx, models.RoleProjectManager)
	if err != nil {
		return nil, fmt.Errorf("list project managers: %w", err)
	}
	for _, u := range managers {
		add(u.ID)
	}

	add(event.OwnerID)
	add(event.AssigneeID)

	if event.ProjectID != "" {
		members, err := f.storage.Tasks().AssigneesForProject(ctx, event.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("list project members: %w", err)
		}
		for _, id := range members {
			add(id)
		}
	}

	return recipients, nil
}
