package user

import "time"

const (
	RoleAdministrator = "administrator"
	RoleContributor   = "contributor"
	RoleViewer        = "viewer"
)

type User struct {
	ID               int       `json:"id"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	Unrestricted     bool      `json:"unrestricted"`
	DatetimeEntered  time.Time `json:"datetime_entered"`
	DatetimeModified time.Time `json:"datetime_modified"`

	passwordHash string
}

// Mini is the abbreviated representation embedded in new/edit payloads and
// other resources.
type Mini struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func ValidRole(role string) bool {
	switch role {
	case RoleAdministrator, RoleContributor, RoleViewer:
		return true
	}
	return false
}
