package biometric

import (
	"errors"
	"fmt"
)

var (
	ErrParse              = errors.New("malformed export line")
	ErrUnresolvedIdentity = errors.New("name token did not resolve to exactly one employee")
	ErrNoActiveSchedule   = errors.New("employee has no active schedule for the shift window")
	ErrEmptyWorkbook      = errors.New("export workbook has no worksheet")

	ErrImportNotFound         = errors.New("biometric import not found")
	ErrImportAlreadyProcessed = errors.New("biometric import has already been processed")
	ErrImportInProgress       = errors.New("biometric import is being processed by another run")
)

// ParseError describes one skipped line. It wraps ErrParse.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}
