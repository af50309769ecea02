package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrFamilyScope is a configuration error: the caller did not name a family.
	ErrFamilyScope = errors.New("family scope not established")

	ErrNotFound = errors.New("not found")

	// ErrDuplicateInstance means the (family, template, date) key is already taken.
	ErrDuplicateInstance = errors.New("task instance already exists for template and date")
)

// PersistenceError wraps a storage failure with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

func requireFamily(familyID string) error {
	if familyID == "" {
		return ErrFamilyScope
	}
	return nil
}
