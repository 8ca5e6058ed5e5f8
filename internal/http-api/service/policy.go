package service

import "bookhub/internal/http-api/models"

// Action identifies a book mutation guarded by the policy.
type Action string

const (
	ActionCreateBook Action = "create"
	ActionUpdateBook Action = "update"
	ActionDeleteBook Action = "delete"
)

// CanPerform is the entity-level policy: only admins may mutate books.
// Owning a book as its author is deliberately not sufficient. The route
// middleware already checks the coarse permission; this runs again inside
// the service so both layers deny independently.
func CanPerform(actor models.Actor, action Action) bool {
	switch action {
	case ActionCreateBook, ActionUpdateBook, ActionDeleteBook:
		return actor.IsAdmin()
	default:
		return false
	}
}
