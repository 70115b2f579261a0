package domain

const (
	RoleUser       = "user"
	RoleTechnician = "technician"
	RoleDelivery   = "delivery"
	RoleAdmin      = "admin"
	RoleShop       = "shop"
)

var validRoles = map[string]bool{
	RoleUser:       true,
	RoleTechnician: true,
	RoleDelivery:   true,
	RoleAdmin:      true,
	RoleShop:       true,
}

func IsValidRole(role string) bool {
	return validRoles[role]
}

// Actor is the authenticated caller as resolved by the auth middleware.
// Role is read from the users table on every request, never from the token.
type Actor struct {
	ID   uint
	Role string
}
