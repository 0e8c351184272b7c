package models

import "time"

// ClassStatus enumerates server-owned class lifecycle states.
type ClassStatus string

const (
	ClassStatusActive    ClassStatus = "active"
	ClassStatusCancelled ClassStatus = "cancelled"
	ClassStatusCompleted ClassStatus = "completed"
)

// ClassOffering is a bookable class as served by GET /classes.
// Read-only on the client; occupancy and status are authoritative server-side.
type ClassOffering struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	TrainerID   int64       `json:"trainer"`
	StartTime   time.Time   `json:"start_time"`
	EndTime     time.Time   `json:"end_time"`
	Capacity    int         `json:"max_members"`
	Occupancy   int         `json:"current_members"`
	Price       int64       `json:"price"`
	Status      ClassStatus `json:"status"`
}

// SpotsLeft is display-only; the server is the authority on capacity.
func (c *ClassOffering) SpotsLeft() int {
	left := c.Capacity - c.Occupancy
	if left < 0 {
		return 0
	}
	return left
}

// ClassFilter narrows GET /classes queries.
type ClassFilter struct {
	TrainerID int64
	Search    string
	Limit     int
}
