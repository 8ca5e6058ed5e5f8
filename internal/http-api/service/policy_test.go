package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bookhub/internal/http-api/models"
)

func TestCanPerform_AdminMayMutate(t *testing.T) {
	admin := models.Actor{ID: 1, Roles: []string{models.RoleAdmin}}

	assert.True(t, CanPerform(admin, ActionCreateBook))
	assert.True(t, CanPerform(admin, ActionUpdateBook))
	assert.True(t, CanPerform(admin, ActionDeleteBook))
}

func TestCanPerform_AuthorMayNotMutate(t *testing.T) {
	author := models.Actor{
		ID:          5,
		Roles:       []string{models.RoleAuthor},
		Permissions: []string{models.PermissionViewBooks},
	}

	assert.False(t, CanPerform(author, ActionCreateBook))
	assert.False(t, CanPerform(author, ActionUpdateBook))
	assert.False(t, CanPerform(author, ActionDeleteBook))
}

func TestCanPerform_OwnershipDoesNotGrantMutation(t *testing.T) {
	// even with write permissions attached, a non-admin actor is denied
	author := models.Actor{
		ID:          5,
		Roles:       []string{models.RoleAuthor},
		Permissions: []string{models.PermissionCreateBooks, models.PermissionEditBooks, models.PermissionDeleteBooks},
	}

	assert.False(t, CanPerform(author, ActionCreateBook))
}

func TestCanPerform_UnknownActionDenied(t *testing.T) {
	admin := models.Actor{ID: 1, Roles: []string{models.RoleAdmin}}

	assert.False(t, CanPerform(admin, Action("publish")))
}
