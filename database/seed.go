package database

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"bookhub/internal/http-api/middleware/auth"
	"bookhub/internal/http-api/models"
)

var categoryNames = []string{
	"Fiction",
	"Non-Fiction",
	"Science Fiction",
	"Mystery",
	"Romance",
	"Fantasy",
	"Horror",
	"Biography",
	"History",
	"Technology",
}

var publisherNames = []string{
	"Gramedia",
	"Grasindo",
	"Bukunesia",
	"Erlangga",
	"Nasmedia",
	"Rajawali",
}

var rolePermissions = map[string][]string{
	models.RoleAuthor: {
		models.PermissionViewBooks,
	},
	models.RoleAdmin: {
		models.PermissionViewBooks,
		models.PermissionCreateBooks,
		models.PermissionEditBooks,
		models.PermissionDeleteBooks,
		models.PermissionViewReports,
	},
}

// Seed populates the fixed dimensions: permissions, roles, categories and
// publishers. Idempotent, safe to run on every startup.
func Seed(db *gorm.DB, logger *slog.Logger) error {
	if err := seedRolesAndPermissions(db); err != nil {
		return fmt.Errorf("seed roles and permissions: %w", err)
	}

	for _, name := range categoryNames {
		if err := db.FirstOrCreate(&models.Category{}, models.Category{Name: name}).Error; err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}

	for _, name := range publisherNames {
		if err := db.FirstOrCreate(&models.Publisher{}, models.Publisher{Name: name}).Error; err != nil {
			return fmt.Errorf("seed publisher %q: %w", name, err)
		}
	}

	logger.Info("Database seed applied successfully")
	return nil
}

func seedRolesAndPermissions(db *gorm.DB) error {
	permissions := make(map[string]*models.Permission)
	for _, names := range rolePermissions {
		for _, name := range names {
			if permissions[name] != nil {
				continue
			}
			p := &models.Permission{}
			if err := db.FirstOrCreate(p, models.Permission{Name: name}).Error; err != nil {
				return err
			}
			permissions[name] = p
		}
	}

	for roleName, permNames := range rolePermissions {
		role := &models.Role{}
		if err := db.FirstOrCreate(role, models.Role{Name: roleName}).Error; err != nil {
			return err
		}
		grant := make([]*models.Permission, 0, len(permNames))
		for _, name := range permNames {
			grant = append(grant, permissions[name])
		}
		if err := db.Model(role).Association("Permissions").Replace(grant); err != nil {
			return err
		}
	}
	return nil
}

// SeedDemoUsers creates an admin and an author account for development
// environments. Existing users are left untouched.
func SeedDemoUsers(db *gorm.DB, logger *slog.Logger) error {
	demo := []struct {
		name, email, password, role string
	}{
		{"Admin User", "admin@example.com", "password123", models.RoleAdmin},
		{"Author User", "author@example.com", "password123", models.RoleAuthor},
	}

	for _, d := range demo {
		var count int64
		if err := db.Model(&models.User{}).Where("email = ?", d.email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		hashed, err := auth.HashPassword(d.password)
		if err != nil {
			return err
		}
		user := &models.User{Name: d.name, Email: d.email, Password: hashed}
		if err := db.Create(user).Error; err != nil {
			return err
		}

		var role models.Role
		if err := db.Where("name = ?", d.role).First(&role).Error; err != nil {
			return err
		}
		if err := db.Model(user).Association("Roles").Append(&role); err != nil {
			return err
		}
		logger.Info("Seeded demo user", "email", d.email, "role", d.role)
	}
	return nil
}
