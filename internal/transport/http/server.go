package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"medbook/backend/internal/domain"
	"medbook/backend/internal/service/scheduling"
	"medbook/backend/internal/store"
)

// SchedulingService is the slice of the scheduling core the transport
// drives.
type SchedulingService interface {
	Book(ctx context.Context, actor domain.Actor, in scheduling.BookInput) (domain.Appointment, error)
	ChangeStatus(ctx context.Context, actor domain.Actor, appointmentID uuid.UUID, to domain.Status) (domain.Appointment, error)
	SetNotes(ctx context.Context, actor domain.Actor, appointmentID uuid.UUID, notes string) (domain.Appointment, error)
	Get(ctx context.Context, actor domain.Actor, appointmentID uuid.UUID) (domain.Appointment, error)
	List(ctx context.Context, actor domain.Actor, in scheduling.ListInput) ([]domain.Appointment, int, error)
	SummaryCounts(ctx context.Context, actor domain.Actor) (store.StatusCounts, error)
	ListDoctors(ctx context.Context, search string) ([]domain.Doctor, error)
	PatientRoster(ctx context.Context, actor domain.Actor, search string) ([]store.PatientSummary, error)
	PatientHistory(ctx context.Context, actor domain.Actor, patientID uuid.UUID, page int) ([]domain.Appointment, int, error)
}

// TokenVerifier resolves a bearer token to the acting identity.
type TokenVerifier interface {
	Verify(token string) (domain.Actor, error)
}

type Server struct {
	echo *echo.Echo
	log  *slog.Logger
}

// New wires the REST surface: every /api/v1 route runs behind bearer
// authentication and a per-request timeout.
func New(svc SchedulingService, verifier TokenVerifier, log *slog.Logger, requestTimeout time.Duration) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	h := &handlers{svc: svc, log: log.With(slog.String("component", "http"))}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/v1", withTimeout(requestTimeout), requireActor(verifier))
	api.POST("/appointments", h.book, requireRole(domain.RolePatient))
	api.GET("/appointments", h.list)
	api.GET("/appointments/summary", h.summary)
	api.GET("/appointments/:id", h.get)
	api.POST("/appointments/:id/status", h.changeStatus)
	api.PUT("/appointments/:id/notes", h.setNotes, requireRole(domain.RoleDoctor))
	api.GET("/doctors", h.listDoctors)
	api.GET("/patients", h.patientRoster, requireRole(domain.RoleDoctor))
	api.GET("/patients/:id/appointments", h.patientHistory, requireRole(domain.RoleDoctor))

	return &Server{echo: e, log: log}
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying mux for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
