package auth

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// User is the session-visible identity. It never carries a secret.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// State is a snapshot of a gate.
type State struct {
	User    *User `json:"user"`
	Loading bool  `json:"loading"`
}

func (s State) Authenticated() bool { return s.User != nil }
