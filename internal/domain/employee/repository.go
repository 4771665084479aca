package employee

import "context"

// EmployeeRepository is the read-only employee directory.
type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (Employee, error)
	// ListActive returns every employee currently employed, the candidate set for name matching.
	ListActive(ctx context.Context) ([]Employee, error)
}
