package store

import (
	"context"

	"github.com/google/uuid"

	"medbook/backend/internal/domain"
)

// PageSize is the fixed listing page size.
const PageSize = 10

type DateRange string

const (
	DateRangeAny      DateRange = ""
	DateRangeUpcoming DateRange = "upcoming"
	DateRangePast     DateRange = "past"
)

func (r DateRange) Valid() bool {
	return r == DateRangeAny || r == DateRangeUpcoming || r == DateRangePast
}

// AppointmentFilter selects appointments for listing and counting. The
// PatientID/DoctorID scope fields are set server-side from the
// authenticated actor, never from client input.
type AppointmentFilter struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID

	Status domain.Status // optional exact status
	Date   domain.Date   // optional exact date
	Range  DateRange     // optional upcoming/past relative to today
	Search string        // optional case-insensitive match on names and symptoms

	Page int // 1-based
}

// StatusCounts are per-status appointment totals over a scope filter.
type StatusCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

// PatientSummary is one row of a doctor's patient roster: a distinct
// patient with aggregates over their appointments with that doctor.
type PatientSummary struct {
	PatientID  uuid.UUID   `json:"patient_id"`
	Name       string      `json:"name"`
	Phone      string      `json:"phone"`
	Email      string      `json:"email"`
	FirstVisit domain.Date `json:"first_visit"`
	LastVisit  domain.Date `json:"last_visit"`

	Appointments StatusCounts `json:"appointments"`
}

type AppointmentRepository interface {
	// Create inserts the appointment, atomically reserving its slot.
	// Returns ErrSlotConflict when a live appointment already holds the
	// (doctor, date, time) slot.
	Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)

	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)

	// Update loads the appointment with a row lock, applies mutate, and
	// persists the result in the same transaction. Any error returned by
	// mutate aborts the transaction unchanged.
	Update(ctx context.Context, id uuid.UUID, mutate func(domain.Appointment) (domain.Appointment, error)) (domain.Appointment, error)

	// List returns one page of matching appointments plus the total count
	// computed from the same predicate.
	List(ctx context.Context, f AppointmentFilter) ([]domain.Appointment, int, error)

	// CountByStatus aggregates per-status totals over the filter's scope
	// fields only; status/date/search filters are not applied.
	CountByStatus(ctx context.Context, f AppointmentFilter) (StatusCounts, error)

	// PatientRoster lists the distinct patients who have booked with the
	// doctor, with per-patient appointment aggregates, optionally narrowed
	// by a case-insensitive search on name, email and phone.
	PatientRoster(ctx context.Context, doctorID uuid.UUID, search string) ([]PatientSummary, error)
}

// DoctorDirectory is the provider-directory collaborator, consumed
// read-only: booking validates the referenced doctor exists through it.
type DoctorDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Doctor, error)
	List(ctx context.Context, search string) ([]domain.Doctor, error)
}
