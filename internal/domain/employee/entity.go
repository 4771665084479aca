package employee

import "strings"

type Employee struct {
	ID        string
	FirstName string
	LastName  string
}

// FullName returns "First Last".
func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}
