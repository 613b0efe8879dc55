package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yeremiapane/dinein-app/database"
)

var (
	ErrNotFound                = database.ErrNotFound
	ErrTransientStore          = database.ErrTransientStore
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrSessionNotOpen          = errors.New("session is not open")
	ErrCustomerSessionMismatch = errors.New("customer does not belong to session")
	ErrTableAlreadyOccupied    = errors.New("table already has an open session")
	ErrInvalidOrder            = errors.New("invalid order")
	ErrInvalidBill             = errors.New("invalid bill")
	ErrBillExists              = errors.New("an open bill already exists")
)

// TableOccupiedError is returned when a session cannot be created because
// the table already has one. SessionID is the open session when known, so
// callers can join it instead.
type TableOccupiedError struct {
	TableID   uint
	SessionID uint
}

func (e *TableOccupiedError) Error() string {
	if e.SessionID == 0 {
		return fmt.Sprintf("table %d already has an open session", e.TableID)
	}
	return fmt.Sprintf("table %d already has open session %d", e.TableID, e.SessionID)
}

func (e *TableOccupiedError) Is(target error) bool {
	return target == ErrTableAlreadyOccupied
}

// TransitionError describes a rejected status change and the legal
// alternatives.
type TransitionError struct {
	Entity  string
	From    string
	To      string
	Allowed []string
}

func (e *TransitionError) Error() string {
	allowed := "none"
	if len(e.Allowed) > 0 {
		allowed = strings.Join(e.Allowed, ", ")
	}
	return fmt.Sprintf("%s cannot move from %s to %s (allowed: %s)", e.Entity, e.From, e.To, allowed)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
