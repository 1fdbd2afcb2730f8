package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"medbook/backend/internal/domain"
	"medbook/backend/internal/store"
)

// slotConstraint is the partial unique index over live appointment slots;
// it is the mechanism that turns a lost booking race into ErrSlotConflict
// instead of a silent double-booking.
const slotConstraint = "appointments_slot_key"

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

func (r *AppointmentRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockDoctorCalendar(ctx, tx, appt.DoctorID); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == slotConstraint {
				return store.ErrSlotConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return m, nil
}

// lockDoctorCalendar serializes writers on one doctor's calendar for the
// duration of the transaction. The unique index remains the backstop.
func lockDoctorCalendar(ctx context.Context, tx bun.Tx, doctorID uuid.UUID) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", doctorID.String()).Exec(ctx)
	return err
}

func (r *AppointmentRepo) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var m domain.Appointment
	err := selectWithNames(r.db.NewSelect().Model(&m)).
		Where("a.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Appointment{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r *AppointmentRepo) Update(ctx context.Context, id uuid.UUID, mutate func(domain.Appointment) (domain.Appointment, error)) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var curr domain.Appointment
		err := tx.NewSelect().
			Model(&curr).
			Where("a.id = ?", id).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}

		next, err := mutate(curr)
		if err != nil {
			return err
		}

		if _, err := tx.NewUpdate().Model(&next).WherePK().Exec(ctx); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) List(ctx context.Context, f store.AppointmentFilter) ([]domain.Appointment, int, error) {
	rows := make([]domain.Appointment, 0, store.PageSize)

	page := f.Page
	if page < 1 {
		page = 1
	}

	q := selectWithNames(r.db.NewSelect().Model(&rows))
	q = applyFilter(q, f)
	q = q.OrderExpr("a.appointment_date DESC, a.appointment_time DESC, a.id DESC").
		Limit(store.PageSize).
		Offset((page - 1) * store.PageSize)

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *AppointmentRepo) CountByStatus(ctx context.Context, f store.AppointmentFilter) (store.StatusCounts, error) {
	var rows []struct {
		Status domain.Status `bun:"status"`
		Count  int           `bun:"count"`
	}

	q := r.db.NewSelect().
		Model((*domain.Appointment)(nil)).
		ColumnExpr("a.status").
		ColumnExpr("count(*) AS count").
		GroupExpr("a.status")
	q = applyScope(q, f)

	if err := q.Scan(ctx, &rows); err != nil {
		return store.StatusCounts{}, err
	}

	var counts store.StatusCounts
	for _, row := range rows {
		addStatusCount(&counts, row.Status, row.Count)
	}
	return counts, nil
}

func (r *AppointmentRepo) PatientRoster(ctx context.Context, doctorID uuid.UUID, search string) ([]store.PatientSummary, error) {
	var rows []struct {
		ID         uuid.UUID   `bun:"id"`
		Name       string      `bun:"name"`
		Phone      string      `bun:"phone"`
		Email      string      `bun:"email"`
		FirstVisit domain.Date `bun:"first_visit"`
		LastVisit  domain.Date `bun:"last_visit"`
		Total      int         `bun:"total"`
		Pending    int         `bun:"pending"`
		Approved   int         `bun:"approved"`
		Completed  int         `bun:"completed"`
		Cancelled  int         `bun:"cancelled"`
	}

	q := r.db.NewSelect().
		Model((*domain.Appointment)(nil)).
		ColumnExpr("p.id AS id").
		ColumnExpr("p.name AS name").
		ColumnExpr("p.phone AS phone").
		ColumnExpr("p.email AS email").
		ColumnExpr("min(a.appointment_date) AS first_visit").
		ColumnExpr("max(a.appointment_date) AS last_visit").
		ColumnExpr("count(*) AS total").
		ColumnExpr("sum(CASE WHEN a.status = 'pending' THEN 1 ELSE 0 END) AS pending").
		ColumnExpr("sum(CASE WHEN a.status = 'approved' THEN 1 ELSE 0 END) AS approved").
		ColumnExpr("sum(CASE WHEN a.status = 'completed' THEN 1 ELSE 0 END) AS completed").
		ColumnExpr("sum(CASE WHEN a.status = 'cancelled' THEN 1 ELSE 0 END) AS cancelled").
		Join("JOIN patients AS p ON p.id = a.patient_id").
		Where("a.doctor_id = ?", doctorID).
		GroupExpr("p.id, p.name, p.phone, p.email").
		OrderExpr("p.name ASC")

	if s := strings.TrimSpace(search); s != "" {
		pattern := likePattern(s)
		q = q.Where("(p.name ILIKE ? OR p.email ILIKE ? OR p.phone ILIKE ?)", pattern, pattern, pattern)
	}

	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}

	roster := make([]store.PatientSummary, 0, len(rows))
	for _, row := range rows {
		roster = append(roster, store.PatientSummary{
			PatientID:  row.ID,
			Name:       row.Name,
			Phone:      row.Phone,
			Email:      row.Email,
			FirstVisit: row.FirstVisit,
			LastVisit:  row.LastVisit,
			Appointments: store.StatusCounts{
				Total:     row.Total,
				Pending:   row.Pending,
				Approved:  row.Approved,
				Completed: row.Completed,
				Cancelled: row.Cancelled,
			},
		})
	}
	return roster, nil
}

func selectWithNames(q *bun.SelectQuery) *bun.SelectQuery {
	return q.
		ColumnExpr("a.*").
		ColumnExpr("p.name AS patient_name").
		ColumnExpr("p.phone AS patient_phone").
		ColumnExpr("d.name AS doctor_name").
		ColumnExpr("d.specialization AS specialization").
		Join("JOIN patients AS p ON p.id = a.patient_id").
		Join("JOIN doctors AS d ON d.id = a.doctor_id")
}

func applyScope(q *bun.SelectQuery, f store.AppointmentFilter) *bun.SelectQuery {
	if f.PatientID != uuid.Nil {
		q = q.Where("a.patient_id = ?", f.PatientID)
	}
	if f.DoctorID != uuid.Nil {
		q = q.Where("a.doctor_id = ?", f.DoctorID)
	}
	return q
}

func applyFilter(q *bun.SelectQuery, f store.AppointmentFilter) *bun.SelectQuery {
	q = applyScope(q, f)

	if f.Status != "" {
		q = q.Where("a.status = ?", f.Status)
	}
	if f.Date != "" {
		q = q.Where("a.appointment_date = ?", f.Date)
	}
	switch f.Range {
	case store.DateRangeUpcoming:
		q = q.Where("a.appointment_date >= CURRENT_DATE")
	case store.DateRangePast:
		q = q.Where("a.appointment_date < CURRENT_DATE")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := likePattern(s)
		q = q.Where("(p.name ILIKE ? OR d.name ILIKE ? OR a.symptoms ILIKE ?)", pattern, pattern, pattern)
	}
	return q
}

// likePattern wraps a search term for substring matching, escaping LIKE
// metacharacters so user input cannot widen the match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func addStatusCount(c *store.StatusCounts, s domain.Status, n int) {
	c.Total += n
	switch s {
	case domain.StatusPending:
		c.Pending += n
	case domain.StatusApproved:
		c.Approved += n
	case domain.StatusCompleted:
		c.Completed += n
	case domain.StatusCancelled:
		c.Cancelled += n
	}
}
