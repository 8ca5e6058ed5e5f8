package models

// Role names and permission names are fixed at seed time. Roles carry
// permissions; users carry roles.
const (
	RoleAdmin  = "admin"
	RoleAuthor = "author"
)

const (
	PermissionViewBooks   = "view books"
	PermissionCreateBooks = "create books"
	PermissionEditBooks   = "edit books"
	PermissionDeleteBooks = "delete books"
	PermissionViewReports = "view reports"
)

type Role struct {
	ID   uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"uniqueIndex;size:50;not null"`

	Permissions []Permission `json:"permissions,omitempty" gorm:"many2many:role_permissions;constraint:OnDelete:CASCADE;"`
}

func (Role) TableName() string {
	return "roles"
}

type Permission struct {
	ID   uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"uniqueIndex;size:50;not null"`
}

func (Permission) TableName() string {
	return "permissions"
}
