package domain

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"

	// SlotMinutes is the fixed appointment slot length. Booking times must
	// fall on a slot boundary.
	SlotMinutes = 30
)

// Date is a calendar date in DateLayout form, without a time-of-day. All
// dates are interpreted in the single operational time zone (UTC).
type Date string

// TimeOfDay is a slot-aligned 24-hour clock time in TimeLayout form.
type TimeOfDay string

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return Date(t.Format(DateLayout)), nil
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		// The booking form sends HH:MM; pad the seconds.
		t, err = time.Parse("15:04", s)
		if err != nil {
			return "", fmt.Errorf("invalid time %q: want HH:MM:SS", s)
		}
	}
	if t.Minute()%SlotMinutes != 0 || t.Second() != 0 {
		return "", fmt.Errorf("time %q is not on a %d-minute slot boundary", s, SlotMinutes)
	}
	return TimeOfDay(t.Format(TimeLayout)), nil
}

// SlotStart combines a date and time-of-day into the instant the slot begins.
func SlotStart(d Date, t TimeOfDay) time.Time {
	day, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	tod, err := time.Parse(TimeLayout, string(t))
	if err != nil {
		return day
	}
	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, time.UTC)
}

func (d *Date) Scan(v any) error {
	switch t := v.(type) {
	case time.Time:
		*d = Date(t.Format(DateLayout))
	case string:
		*d = Date(t)
	case []byte:
		*d = Date(t)
	case nil:
		*d = ""
	default:
		return fmt.Errorf("cannot scan %T into Date", v)
	}
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return string(d), nil
}

func (t *TimeOfDay) Scan(v any) error {
	switch s := v.(type) {
	case time.Time:
		*t = TimeOfDay(s.Format(TimeLayout))
	case string:
		*t = TimeOfDay(s)
	case []byte:
		*t = TimeOfDay(s)
	case nil:
		*t = ""
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", v)
	}
	return nil
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return string(t), nil
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// OccupiesSlot reports whether an appointment in this status blocks its
// (doctor, date, time) slot from being rebooked.
func (s Status) OccupiesSlot() bool {
	return s.Valid() && s != StatusCancelled
}

// NotesAllowed reports whether medical notes may be set in this status.
// Pending and cancelled appointments carry no clinical notes.
func (s Status) NotesAllowed() bool {
	return s == StatusApproved || s == StatusCompleted
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments,alias:a"`

	ID           uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	PatientID    uuid.UUID `bun:"patient_id,notnull,type:uuid" json:"patient_id"`
	DoctorID     uuid.UUID `bun:"doctor_id,notnull,type:uuid" json:"doctor_id"`
	Date         Date      `bun:"appointment_date,notnull,type:date" json:"appointment_date"`
	Time         TimeOfDay `bun:"appointment_time,notnull,type:time" json:"appointment_time"`
	Symptoms     string    `bun:"symptoms,notnull" json:"symptoms"`
	Status       Status    `bun:"status,notnull" json:"status"`
	MedicalNotes string    `bun:"medical_notes,nullzero" json:"medical_notes,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updated_at"`

	// Display fields joined from the directory tables for listings.
	PatientName    string `bun:"patient_name,scanonly" json:"patient_name,omitempty"`
	PatientPhone   string `bun:"patient_phone,scanonly" json:"patient_phone,omitempty"`
	DoctorName     string `bun:"doctor_name,scanonly" json:"doctor_name,omitempty"`
	Specialization string `bun:"specialization,scanonly" json:"specialization,omitempty"`
}

// SlotStart is the instant the appointment's slot begins.
func (a Appointment) SlotStart() time.Time {
	return SlotStart(a.Date, a.Time)
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}
