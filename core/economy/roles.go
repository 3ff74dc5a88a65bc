package economy

// Roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

var AllRoles = []string{RoleStudent, RoleTeacher, RoleAdmin}

func IsRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Actor is whoever forwarded an intent: a verified claim, never a client-editable field.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}
