package services

import "github.com/cppla/boardhub/models"

// Caller is the authenticated identity attached to a request, with the role as currently stored.
type Caller struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (c Caller) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// CanMutate reports whether caller may edit or delete a resource owned by ownerID.
func CanMutate(ownerID uint, caller Caller) bool {
	if caller.ID == 0 {
		return false
	}
	return ownerID == caller.ID || caller.IsAdmin()
}
