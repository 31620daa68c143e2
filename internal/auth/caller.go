package auth

// Role is the authorization role carried in the token.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleManager  Role = "manager"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleManager
}

// Caller is the authenticated principal behind a request.
type Caller struct {
	UserID string
	Role   Role
}

// IsManager reports whether the caller may perform manager-only operations.
func (c Caller) IsManager() bool {
	return c.Role == RoleManager
}
