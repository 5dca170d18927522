package auth

import "errors"

// RBAC роли и разрешения
const (
	RoleAdmin     = "admin"
	RoleUser      = "user"
	RoleModerator = "moderator"
)

// Permissions список разрешений
var Permissions = map[string][]string{
	RoleAdmin: {
		"messages:read",
		"messages:write",
		"messages:delete:self",
		"messages:delete:any",
		"chats:read:any",
		"presence:read:any",
		"system:admin",
	},
	RoleModerator: {
		"messages:read",
		"messages:write",
		"messages:delete:self",
		"messages:delete:any",
		"chats:read:any",
		"presence:read:any",
	},
	RoleUser: {
		"messages:read",
		"messages:write",
		"messages:delete:self",
	},
}

// HasPermission проверяет есть ли у роли указанное разрешение
func HasPermission(role, permission string) bool {
	permissions, exists := Permissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidateRole проверяет валидность роли
func ValidateRole(role string) error {
	switch role {
	case RoleAdmin, RoleUser, RoleModerator:
		return nil
	default:
		return errors.New("invalid role")
	}
}
