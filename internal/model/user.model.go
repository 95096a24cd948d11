package model

// UserRole scopes what an operator account may do.
type UserRole string

const (
	UserRoleAdmin     UserRole = "admin"
	UserRoleCollector UserRole = "collector"
	UserRoleViewer    UserRole = "viewer"
)

type User struct {
	UserID       string   `json:"userId"`
	Name         string   `json:"name"`
	Role         UserRole `json:"role"`
	Username     string   `json:"username"`
	PasswordHash string   `json:"passwordHash"`
	IsActive     bool     `json:"isActive"`
}
