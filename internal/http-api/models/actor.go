package models

// Actor is the authenticated user attached to a request. It is built from
// verified token claims by the auth middleware and threaded explicitly
// through every service call, so the access layer never reaches for global
// request state.
type Actor struct {
	ID          uint
	Name        string
	Email       string
	Roles       []string
	Permissions []string
}

func (a Actor) HasRole(name string) bool {
	for _, r := range a.Roles {
		if r == name {
			return true
		}
	}
	return false
}

func (a Actor) HasPermission(name string) bool {
	for _, p := range a.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

// ActorFromUser derives an Actor from a persisted user with roles and
// permissions preloaded.
func ActorFromUser(u *User) Actor {
	return Actor{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Roles:       u.RoleNames(),
		Permissions: u.PermissionNames(),
	}
}
