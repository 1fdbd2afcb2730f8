package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"medbook/backend/internal/domain"
	"medbook/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// SummaryCache is an optional read-through cache for per-status counts.
// Implementations are best-effort: a miss or failure falls back to the
// store.
type SummaryCache interface {
	Get(ctx context.Context, actor domain.Actor) (store.StatusCounts, bool)
	Set(ctx context.Context, actor domain.Actor, counts store.StatusCounts)
	Invalidate(ctx context.Context, patientID, doctorID uuid.UUID)
}

type Service struct {
	repo    store.AppointmentRepository
	doctors store.DoctorDirectory
	cache   SummaryCache
	now     func() time.Time
}

func NewService(repo store.AppointmentRepository, doctors store.DoctorDirectory, cache SummaryCache) *Service {
	return &Service{
		repo:    repo,
		doctors: doctors,
		cache:   cache,
		now:     time.Now,
	}
}

type BookInput struct {
	DoctorID uuid.UUID
	Date     string
	Time     string
	Symptoms string
}

// Book creates a pending appointment for the acting patient, reserving the
// (doctor, date, time) slot. Two concurrent bookings of the same slot yield
// exactly one success; the loser sees store.ErrSlotConflict.
func (s *Service) Book(ctx context.Context, actor domain.Actor, in BookInput) (domain.Appointment, error) {
	if actor.Role != domain.RolePatient {
		return domain.Appointment{}, fmt.Errorf("%w: only patients book appointments", domain.ErrForbidden)
	}
	if in.DoctorID == uuid.Nil {
		return domain.Appointment{}, validationError("doctor_id is required")
	}

	symptoms := strings.TrimSpace(in.Symptoms)
	if symptoms == "" {
		return domain.Appointment{}, validationError("symptoms are required")
	}

	date, err := domain.ParseDate(in.Date)
	if err != nil {
		return domain.Appointment{}, validationError(err.Error())
	}
	tod, err := domain.ParseTimeOfDay(in.Time)
	if err != nil {
		return domain.Appointment{}, validationError(err.Error())
	}
	if !domain.SlotStart(date, tod).After(s.now().UTC()) {
		return domain.Appointment{}, validationError("appointment time is in the past")
	}

	if _, err := s.doctors.Get(ctx, in.DoctorID); err != nil {
		if err == store.ErrNotFound {
			return domain.Appointment{}, fmt.Errorf("doctor %s: %w", in.DoctorID, store.ErrNotFound)
		}
		return domain.Appointment{}, err
	}

	appt, err := s.repo.Create(ctx, domain.Appointment{
		PatientID: actor.ID,
		DoctorID:  in.DoctorID,
		Date:      date,
		Time:      tod,
		Symptoms:  symptoms,
		Status:    domain.StatusPending,
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	s.invalidateSummaries(ctx, appt)
	return appt, nil
}

// ChangeStatus applies one status transition on behalf of actor. Legality
// and authorization are checked inside the store transaction, so two
// concurrent transitions on the same appointment cannot both apply.
func (s *Service) ChangeStatus(ctx context.Context, actor domain.Actor, appointmentID uuid.UUID, to domain.Status) (domain.Appointment, error) {
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if !to.Valid() {
		return domain.Appointment{}, validationError(fmt.Sprintf("unknown status %q", to))
	}

	appt, err := s.repo.Update(ctx, appointmentID, func(curr domain.Appointment) (domain.Appointment, error) {
		if err := domain.Transition(curr, to, actor, s.now().UTC()); err != nil {
			return domain.Appointment{}, err
		}
		curr.Status = to
		return curr, nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	s.invalidateSummaries(ctx, appt)
	return appt, nil
}

// SetNotes records the doctor's notes on an approved or completed
// appointment.
func (s *Service) SetNotes(ctx context.Context, actor domain.Actor, appointmentID uuid.UUID, notes string) (domain.Appointment, error) {
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return domain.Appointment{}, validationError("medical_notes are required")
	}

	return s.repo.Update(ctx, appointmentID, func(curr domain.Appointment) (domain.Appointment, error) {
		if err := domain.AuthorizeNotes(curr, actor); err != nil {
			return domain.Appointment{}, err
		}
		curr.MedicalNotes = notes
		return curr, nil
	})
}

// Get returns a single appointment the actor is party to. Appointments
// outside the actor's scope read as not found, so ids cannot be probed.
func (s *Service) Get(ctx context.Context, actor domain.Actor, appointmentID uuid.UUID) (domain.Appointment, error) {
	appt, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !inScope(appt, actor) {
		return domain.Appointment{}, store.ErrNotFound
	}
	return appt, nil
}

type ListInput struct {
	Status string
	Date   string
	Range  string
	Search string
	Page   int
}

// List returns one page of the actor's appointments plus the total count
// for the same predicate. The actor scope is injected here and cannot be
// widened by the input.
func (s *Service) List(ctx context.Context, actor domain.Actor, in ListInput) ([]domain.Appointment, int, error) {
	f, err := s.scopedFilter(actor)
	if err != nil {
		return nil, 0, err
	}

	if in.Status != "" {
		status := domain.Status(in.Status)
		if !status.Valid() {
			return nil, 0, validationError(fmt.Sprintf("unknown status %q", in.Status))
		}
		f.Status = status
	}
	if in.Date != "" {
		date, err := domain.ParseDate(in.Date)
		if err != nil {
			return nil, 0, validationError(err.Error())
		}
		f.Date = date
	}
	dateRange := store.DateRange(in.Range)
	if !dateRange.Valid() {
		return nil, 0, validationError(fmt.Sprintf("unknown date range %q", in.Range))
	}
	f.Range = dateRange
	f.Search = strings.TrimSpace(in.Search)
	f.Page = in.Page
	if f.Page < 1 {
		f.Page = 1
	}

	return s.repo.List(ctx, f)
}

// SummaryCounts aggregates the actor's appointments per status.
func (s *Service) SummaryCounts(ctx context.Context, actor domain.Actor) (store.StatusCounts, error) {
	f, err := s.scopedFilter(actor)
	if err != nil {
		return store.StatusCounts{}, err
	}

	if s.cache != nil {
		if counts, ok := s.cache.Get(ctx, actor); ok {
			return counts, nil
		}
	}

	counts, err := s.repo.CountByStatus(ctx, f)
	if err != nil {
		return store.StatusCounts{}, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, actor, counts)
	}
	return counts, nil
}

// PatientRoster lists the distinct patients who have booked with the
// acting doctor, with per-patient appointment aggregates.
func (s *Service) PatientRoster(ctx context.Context, actor domain.Actor, search string) ([]store.PatientSummary, error) {
	if actor.Role != domain.RoleDoctor || actor.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient roster is doctor-only", domain.ErrForbidden)
	}
	return s.repo.PatientRoster(ctx, actor.ID, strings.TrimSpace(search))
}

// PatientHistory returns one page of the acting doctor's appointments with
// a single patient. A pair with no shared appointments reads as not found,
// mirroring the roster's relationship check.
func (s *Service) PatientHistory(ctx context.Context, actor domain.Actor, patientID uuid.UUID, page int) ([]domain.Appointment, int, error) {
	if actor.Role != domain.RoleDoctor || actor.ID == uuid.Nil {
		return nil, 0, fmt.Errorf("%w: patient history is doctor-only", domain.ErrForbidden)
	}
	if patientID == uuid.Nil {
		return nil, 0, validationError("patient_id is required")
	}
	if page < 1 {
		page = 1
	}

	rows, total, err := s.repo.List(ctx, store.AppointmentFilter{
		DoctorID:  actor.ID,
		PatientID: patientID,
		Page:      page,
	})
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, store.ErrNotFound
	}
	return rows, total, nil
}

// ListDoctors exposes the provider directory for booking forms.
func (s *Service) ListDoctors(ctx context.Context, search string) ([]domain.Doctor, error) {
	return s.doctors.List(ctx, strings.TrimSpace(search))
}

// scopedFilter derives the structural visibility constraint for an actor:
// patients see their own bookings, doctors see bookings assigned to them.
func (s *Service) scopedFilter(actor domain.Actor) (store.AppointmentFilter, error) {
	if actor.ID == uuid.Nil {
		return store.AppointmentFilter{}, fmt.Errorf("%w: missing actor", domain.ErrForbidden)
	}
	switch actor.Role {
	case domain.RolePatient:
		return store.AppointmentFilter{PatientID: actor.ID}, nil
	case domain.RoleDoctor:
		return store.AppointmentFilter{DoctorID: actor.ID}, nil
	default:
		return store.AppointmentFilter{}, fmt.Errorf("%w: unknown role %q", domain.ErrForbidden, actor.Role)
	}
}

func inScope(appt domain.Appointment, actor domain.Actor) bool {
	switch actor.Role {
	case domain.RolePatient:
		return appt.PatientID == actor.ID
	case domain.RoleDoctor:
		return appt.DoctorID == actor.ID
	default:
		return false
	}
}

func (s *Service) invalidateSummaries(ctx context.Context, appt domain.Appointment) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, appt.PatientID, appt.DoctorID)
	}
}
