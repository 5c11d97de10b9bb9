package lesson

import "github.com/edufi/backend/core/user"

// Action is an operation an actor may attempt on a lesson or its modules.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionEnroll Action = "enroll"
)

var AllActions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionEnroll}

// Allowed decides whether an actor may perform action on a lesson (or a
// module of it, which follows its parent lesson's rules). It is pure; the
// caller resolves ownership and enrollment beforehand. Rules in priority
// order:
//
//  1. admins may do everything
//  2. teachers may create, and read/update/delete only their own lessons
//  3. students may read published lessons or lessons they are enrolled in,
//     and enroll in published lessons only
//  4. anything else is denied
//
// Resource absence is NOT decided here: callers report a missing lesson as
// not-found before consulting the table.
func Allowed(role string, actorID int, teacherID *int, status Status, enrolled bool, action Action) bool {
	switch role {
	case user.RoleAdmin:
		return true

	case user.RoleTeacher:
		switch action {
		case ActionCreate:
			return true
		case ActionRead, ActionUpdate, ActionDelete:
			return teacherID != nil && *teacherID == actorID
		}
		return false

	case user.RoleStudent:
		switch action {
		case ActionRead:
			return status == StatusPublished || enrolled
		case ActionEnroll:
			return status == StatusPublished
		}
		return false
	}
	return false
}
