package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/bio-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/bio-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepository struct {
	db *database.DB
}

// GetByID implements employee.EmployeeRepository.
func (r *employeeRepository) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	var e employee.Employee
	err := q.QueryRow(ctx, `SELECT id, first_name, last_name FROM employees WHERE id = $1`, id).
		Scan(&e.ID, &e.FirstName, &e.LastName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}
	return e, nil
}

// ListActive implements employee.EmployeeRepository.
func (r *employeeRepository) ListActive(ctx context.Context) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, first_name, last_name
		FROM employees
		WHERE is_active
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}

	employees, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (employee.Employee, error) {
		var e employee.Employee
		err := row.Scan(&e.ID, &e.FirstName, &e.LastName)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan employees: %w", err)
	}
	return employees, nil
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepository{db: db}
}
