package metadata

// UserContext represents the authenticated user, set by the session gate.
type UserContext struct {
	ID           string `json:"id"`
	Role         string `json:"role"`
	SessionID    string `json:"session_id"`
	SessionToken string `json:"-"`
}

// HasRole checks whether the user carries a specific role.
func (u *UserContext) HasRole(role string) bool {
	return u != nil && u.Role == role
}

