package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"medbook/backend/internal/domain"
	"medbook/backend/internal/service/scheduling"
	"medbook/backend/internal/store"
)

type handlers struct {
	svc SchedulingService
	log *slog.Logger
}

type bookRequest struct {
	DoctorID        string `json:"doctor_id"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	Symptoms        string `json:"symptoms"`
}

func (h *handlers) book(c echo.Context) error {
	actor := actorFrom(c)

	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var doctorID uuid.UUID
	if req.DoctorID != "" {
		id, err := uuid.Parse(req.DoctorID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		doctorID = id
	}

	appt, err := h.svc.Book(c.Request().Context(), actor, scheduling.BookInput{
		DoctorID: doctorID,
		Date:     req.AppointmentDate,
		Time:     req.AppointmentTime,
		Symptoms: req.Symptoms,
	})
	if err != nil {
		return h.mapError(c, "book", err)
	}

	h.log.InfoContext(c.Request().Context(), "appointment booked",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("patient_id", actor.ID.String()),
		slog.String("doctor_id", appt.DoctorID.String()),
	)
	return c.JSON(http.StatusCreated, appt)
}

type listResponse struct {
	Appointments []domain.Appointment `json:"appointments"`
	Total        int                  `json:"total"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"page_size"`
	TotalPages   int                  `json:"total_pages"`
}

func (h *handlers) list(c echo.Context) error {
	page := 1
	if raw := c.QueryParam("page"); raw != "" {
		if err := echo.QueryParamsBinder(c).Int("page", &page).BindError(); err != nil || page < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid page")
		}
	}

	appts, total, err := h.svc.List(c.Request().Context(), actorFrom(c), scheduling.ListInput{
		Status: c.QueryParam("status"),
		Date:   c.QueryParam("date"),
		Range:  c.QueryParam("range"),
		Search: c.QueryParam("search"),
		Page:   page,
	})
	if err != nil {
		return h.mapError(c, "list", err)
	}

	return c.JSON(http.StatusOK, listResponse{
		Appointments: appts,
		Total:        total,
		Page:         page,
		PageSize:     store.PageSize,
		TotalPages:   (total + store.PageSize - 1) / store.PageSize,
	})
}

func (h *handlers) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	appt, err := h.svc.Get(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return h.mapError(c, "get", err)
	}
	return c.JSON(http.StatusOK, appt)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *handlers) changeStatus(c echo.Context) error {
	actor := actorFrom(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	appt, err := h.svc.ChangeStatus(c.Request().Context(), actor, id, domain.Status(req.Status))
	if err != nil {
		return h.mapError(c, "change_status", err)
	}

	h.log.InfoContext(c.Request().Context(), "appointment status changed",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("actor_id", actor.ID.String()),
		slog.String("role", string(actor.Role)),
		slog.String("status", string(appt.Status)),
	)
	return c.JSON(http.StatusOK, appt)
}

type notesRequest struct {
	MedicalNotes string `json:"medical_notes"`
}

func (h *handlers) setNotes(c echo.Context) error {
	actor := actorFrom(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	var req notesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	appt, err := h.svc.SetNotes(c.Request().Context(), actor, id, req.MedicalNotes)
	if err != nil {
		return h.mapError(c, "set_notes", err)
	}

	h.log.InfoContext(c.Request().Context(), "medical notes updated",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("doctor_id", actor.ID.String()),
	)
	return c.JSON(http.StatusOK, appt)
}

func (h *handlers) summary(c echo.Context) error {
	counts, err := h.svc.SummaryCounts(c.Request().Context(), actorFrom(c))
	if err != nil {
		return h.mapError(c, "summary", err)
	}
	return c.JSON(http.StatusOK, counts)
}

func (h *handlers) patientRoster(c echo.Context) error {
	roster, err := h.svc.PatientRoster(c.Request().Context(), actorFrom(c), c.QueryParam("search"))
	if err != nil {
		return h.mapError(c, "patient_roster", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"patients": roster})
}

func (h *handlers) patientHistory(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	page := 1
	if raw := c.QueryParam("page"); raw != "" {
		if err := echo.QueryParamsBinder(c).Int("page", &page).BindError(); err != nil || page < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid page")
		}
	}

	appts, total, err := h.svc.PatientHistory(c.Request().Context(), actorFrom(c), patientID, page)
	if err != nil {
		return h.mapError(c, "patient_history", err)
	}

	return c.JSON(http.StatusOK, listResponse{
		Appointments: appts,
		Total:        total,
		Page:         page,
		PageSize:     store.PageSize,
		TotalPages:   (total + store.PageSize - 1) / store.PageSize,
	})
}

func (h *handlers) listDoctors(c echo.Context) error {
	doctors, err := h.svc.ListDoctors(c.Request().Context(), c.QueryParam("search"))
	if err != nil {
		return h.mapError(c, "list_doctors", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"doctors": doctors})
}

// mapError translates core errors into HTTP responses. Ordering matters:
// the cancel-window error refines ErrIllegalTransition and scope failures
// read as not found upstream, so only coarse classes are matched here.
func (h *handlers) mapError(c echo.Context, op string, err error) error {
	var verr *scheduling.ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "operation not permitted")
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrSlotConflict):
		return echo.NewHTTPError(http.StatusConflict, "This time slot is already booked. Please choose another time.")
	case errors.Is(err, domain.ErrCancelWindowClosed):
		return echo.NewHTTPError(http.StatusConflict, "appointments can no longer be cancelled once their time has passed")
	case errors.Is(err, domain.ErrIllegalTransition):
		return echo.NewHTTPError(http.StatusConflict, "status change not allowed from the current status")
	case errors.Is(err, domain.ErrInvalidState):
		return echo.NewHTTPError(http.StatusConflict, "operation not allowed in the current status")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request timed out")
	default:
		h.log.ErrorContext(c.Request().Context(), "request failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
