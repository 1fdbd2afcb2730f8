package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

// Actor is the authenticated caller of a scheduling operation. It is
// resolved by the identity collaborator and passed explicitly into every
// core call; it is never taken from client-supplied parameters.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

var (
	ErrForbidden         = errors.New("forbidden")
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrCancelWindowClosed is the requester-side cancellation cutoff: a
	// patient cannot cancel once the slot's start time has passed. It is a
	// refinement of ErrIllegalTransition, so errors.Is matches both.
	ErrCancelWindowClosed = fmt.Errorf("%w: cancellation window closed", ErrIllegalTransition)

	// ErrInvalidState marks an operation applied in a status that does not
	// permit it, such as setting notes on a pending appointment.
	ErrInvalidState = errors.New("invalid state for operation")
)

// transitions maps (from, to) to the roles that may request the change.
// Completed and cancelled are terminal and have no outbound entries.
var transitions = map[Status]map[Status][]Role{
	StatusPending: {
		StatusApproved:  {RoleDoctor},
		StatusCancelled: {RolePatient, RoleDoctor},
	},
	StatusApproved: {
		StatusCompleted: {RoleDoctor},
		StatusCancelled: {RolePatient, RoleDoctor},
	},
}

// Transition validates that actor may move appt to the target status at
// time now. It returns ErrForbidden when the actor is not a party to the
// appointment or the transition is reserved for the other role, and
// ErrIllegalTransition when no such edge exists in the state machine.
func Transition(appt Appointment, to Status, actor Actor, now time.Time) error {
	if err := authorizeParty(appt, actor); err != nil {
		return err
	}

	allowed, ok := transitions[appt.Status][to]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, appt.Status, to)
	}

	roleOK := false
	for _, r := range allowed {
		if r == actor.Role {
			roleOK = true
			break
		}
	}
	if !roleOK {
		return fmt.Errorf("%w: %s may not %s -> %s", ErrForbidden, actor.Role, appt.Status, to)
	}

	// A patient cannot cancel an appointment whose slot has already
	// started; the doctor can, which covers walk-ins and no-shows.
	if to == StatusCancelled && actor.Role == RolePatient && !appt.SlotStart().After(now) {
		return ErrCancelWindowClosed
	}

	return nil
}

// AuthorizeNotes validates that actor may set medical notes on appt: only
// the assigned doctor, and only once the appointment has been approved.
func AuthorizeNotes(appt Appointment, actor Actor) error {
	if actor.Role != RoleDoctor || appt.DoctorID != actor.ID {
		return fmt.Errorf("%w: only the assigned doctor may set notes", ErrForbidden)
	}
	if !appt.Status.NotesAllowed() {
		return fmt.Errorf("%w: notes not allowed while %s", ErrInvalidState, appt.Status)
	}
	return nil
}

func authorizeParty(appt Appointment, actor Actor) error {
	switch actor.Role {
	case RolePatient:
		if appt.PatientID != actor.ID {
			return fmt.Errorf("%w: appointment belongs to another patient", ErrForbidden)
		}
	case RoleDoctor:
		if appt.DoctorID != actor.ID {
			return fmt.Errorf("%w: appointment is assigned to another doctor", ErrForbidden)
		}
	default:
		return fmt.Errorf("%w: unknown role %q", ErrForbidden, actor.Role)
	}
	return nil
}
