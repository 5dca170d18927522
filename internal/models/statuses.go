package models

type UserRole string

const (
	UserRoleUser      UserRole = "user"
	UserRoleModerator UserRole = "moderator"
	UserRoleAdmin     UserRole = "admin"
)

// IsModeratorOrHigher - модераторы и админы могут удалять чужие сообщения
func (r UserRole) IsModeratorOrHigher() bool {
	return r == UserRoleModerator || r == UserRoleAdmin
}

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleUser, UserRoleModerator, UserRoleAdmin:
		return true
	}
	return false
}
