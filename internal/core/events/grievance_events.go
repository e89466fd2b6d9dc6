package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeGrievanceCreated     = "grievance.created"
	EventTypeGrievanceAssigned    = "grievance.assigned"
	EventTypeGrievanceResolved    = "grievance.resolved"
	EventTypeGrievanceClosed      = "grievance.closed"
	EventTypeGrievanceTransferred = "grievance.transferred"
)

// GrievanceEventTypes lists every lifecycle event the engine publishes.
var GrievanceEventTypes = []string{
	EventTypeGrievanceCreated,
	EventTypeGrievanceAssigned,
	EventTypeGrievanceResolved,
	EventTypeGrievanceClosed,
	EventTypeGrievanceTransferred,
}

// GrievanceEvent describes one committed lifecycle change.
type GrievanceEvent struct {
	BaseEvent
	GrievanceID  int64  `json:"grievance_id"`
	TicketID     string `json:"ticket_id"`
	DepartmentID int64  `json:"department_id"`
	ActorID      int64  `json:"actor_id"`
	Status       string `json:"status"`
}

func NewGrievanceEvent(eventType string, grievanceID int64, ticketID string, departmentID, actorID int64, status string) *GrievanceEvent {
	return &GrievanceEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"grievance_id":  grievanceID,
				"ticket_id":     ticketID,
				"department_id": departmentID,
				"actor_id":      actorID,
				"status":        status,
			},
		},
		GrievanceID:  grievanceID,
		TicketID:     ticketID,
		DepartmentID: departmentID,
		ActorID:      actorID,
		Status:       status,
	}
}

// GrievancesAssignedEvent is published once per assignment batch.
type GrievancesAssignedEvent struct {
	BaseEvent
	ActorID     int64           `json:"actor_id"`
	Assignments map[int64]int64 `json:"assignments"`
}

func NewGrievancesAssignedEvent(actorID int64, assignments map[int64]int64) *GrievancesAssignedEvent {
	return &GrievancesAssignedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeGrievanceAssigned,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"actor_id": actorID,
				"count":    len(assignments),
			},
		},
		ActorID:     actorID,
		Assignments: assignments,
	}
}

// Count is the number of grievances assigned in the batch.
func (e *GrievancesAssignedEvent) Count() int {
	return len(e.Assignments)
}
