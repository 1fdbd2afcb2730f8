package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"medbook/backend/internal/domain"
	"medbook/backend/internal/service/scheduling"
	"medbook/backend/internal/store"
)

type fakeService struct {
	book          func(ctx context.Context, actor domain.Actor, in scheduling.BookInput) (domain.Appointment, error)
	changeStatus  func(ctx context.Context, actor domain.Actor, id uuid.UUID, to domain.Status) (domain.Appointment, error)
	setNotes      func(ctx context.Context, actor domain.Actor, id uuid.UUID, notes string) (domain.Appointment, error)
	get           func(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Appointment, error)
	list          func(ctx context.Context, actor domain.Actor, in scheduling.ListInput) ([]domain.Appointment, int, error)
	summaryCounts  func(ctx context.Context, actor domain.Actor) (store.StatusCounts, error)
	listDoctors    func(ctx context.Context, search string) ([]domain.Doctor, error)
	patientRoster  func(ctx context.Context, actor domain.Actor, search string) ([]store.PatientSummary, error)
	patientHistory func(ctx context.Context, actor domain.Actor, patientID uuid.UUID, page int) ([]domain.Appointment, int, error)
}

func (f *fakeService) Book(ctx context.Context, actor domain.Actor, in scheduling.BookInput) (domain.Appointment, error) {
	return f.book(ctx, actor, in)
}

func (f *fakeService) ChangeStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, to domain.Status) (domain.Appointment, error) {
	return f.changeStatus(ctx, actor, id, to)
}

func (f *fakeService) SetNotes(ctx context.Context, actor domain.Actor, id uuid.UUID, notes string) (domain.Appointment, error) {
	return f.setNotes(ctx, actor, id, notes)
}

func (f *fakeService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Appointment, error) {
	return f.get(ctx, actor, id)
}

func (f *fakeService) List(ctx context.Context, actor domain.Actor, in scheduling.ListInput) ([]domain.Appointment, int, error) {
	return f.list(ctx, actor, in)
}

func (f *fakeService) SummaryCounts(ctx context.Context, actor domain.Actor) (store.StatusCounts, error) {
	return f.summaryCounts(ctx, actor)
}

func (f *fakeService) ListDoctors(ctx context.Context, search string) ([]domain.Doctor, error) {
	return f.listDoctors(ctx, search)
}

func (f *fakeService) PatientRoster(ctx context.Context, actor domain.Actor, search string) ([]store.PatientSummary, error) {
	return f.patientRoster(ctx, actor, search)
}

func (f *fakeService) PatientHistory(ctx context.Context, actor domain.Actor, patientID uuid.UUID, page int) ([]domain.Appointment, int, error) {
	return f.patientHistory(ctx, actor, patientID, page)
}

type fakeVerifier struct {
	actors map[string]domain.Actor
}

func (f *fakeVerifier) Verify(token string) (domain.Actor, error) {
	actor, ok := f.actors[token]
	if !ok {
		return domain.Actor{}, errors.New("unknown token")
	}
	return actor, nil
}

func testServer(t *testing.T, svc SchedulingService, actors map[string]domain.Actor) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	return New(svc, &fakeVerifier{actors: actors}, log, 5*time.Second)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func do(srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAuthGate(t *testing.T) {
	patient := domain.Actor{ID: uuid.New(), Role: domain.RolePatient}
	srv := testServer(t, &fakeService{}, map[string]domain.Actor{"good": patient})

	t.Run("missing token", func(t *testing.T) {
		rec := do(srv, http.MethodGet, "/api/v1/appointments/summary", "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("bad token", func(t *testing.T) {
		rec := do(srv, http.MethodGet, "/api/v1/appointments/summary", "bogus", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("healthz is open", func(t *testing.T) {
		rec := do(srv, http.MethodGet, "/healthz", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})
}

func TestBookEndpoint(t *testing.T) {
	patient := domain.Actor{ID: uuid.New(), Role: domain.RolePatient}
	doctor := domain.Actor{ID: uuid.New(), Role: domain.RoleDoctor}
	doctorID := uuid.New()
	actors := map[string]domain.Actor{"patient": patient, "doctor": doctor}

	body := `{"doctor_id":"` + doctorID.String() + `","appointment_date":"2026-03-10","appointment_time":"10:30","symptoms":"persistent cough"}`

	t.Run("created", func(t *testing.T) {
		svc := &fakeService{
			book: func(ctx context.Context, actor domain.Actor, in scheduling.BookInput) (domain.Appointment, error) {
				if actor != patient {
					t.Fatalf("actor = %+v, want authenticated patient", actor)
				}
				if in.DoctorID != doctorID || in.Date != "2026-03-10" || in.Time != "10:30" {
					t.Fatalf("input = %+v, want request fields", in)
				}
				return domain.Appointment{ID: uuid.New(), PatientID: actor.ID, DoctorID: in.DoctorID, Status: domain.StatusPending}, nil
			},
		}
		rec := do(testServer(t, svc, actors), http.MethodPost, "/api/v1/appointments", "patient", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body)
		}
	})

	t.Run("doctors may not book", func(t *testing.T) {
		rec := do(testServer(t, &fakeService{}, actors), http.MethodPost, "/api/v1/appointments", "doctor", body)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("invalid doctor id", func(t *testing.T) {
		bad := `{"doctor_id":"abc","appointment_date":"2026-03-10","appointment_time":"10:30","symptoms":"x"}`
		rec := do(testServer(t, &fakeService{}, actors), http.MethodPost, "/api/v1/appointments", "patient", bad)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("slot conflict", func(t *testing.T) {
		svc := &fakeService{
			book: func(ctx context.Context, actor domain.Actor, in scheduling.BookInput) (domain.Appointment, error) {
				return domain.Appointment{}, store.ErrSlotConflict
			},
		}
		rec := do(testServer(t, svc, actors), http.MethodPost, "/api/v1/appointments", "patient", body)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
		}
		if !strings.Contains(rec.Body.String(), "already booked") {
			t.Fatalf("body = %s, want slot-conflict message", rec.Body)
		}
	})
}

func TestStatusEndpoint(t *testing.T) {
	doctor := domain.Actor{ID: uuid.New(), Role: domain.RoleDoctor}
	actors := map[string]domain.Actor{"doctor": doctor}
	apptID := uuid.New()

	t.Run("approved", func(t *testing.T) {
		svc := &fakeService{
			changeStatus: func(ctx context.Context, actor domain.Actor, id uuid.UUID, to domain.Status) (domain.Appointment, error) {
				if id != apptID || to != domain.StatusApproved {
					t.Fatalf("ChangeStatus(%v, %v), want (%v, approved)", id, to, apptID)
				}
				return domain.Appointment{ID: id, Status: to}, nil
			},
		}
		rec := do(testServer(t, svc, actors), http.MethodPost, "/api/v1/appointments/"+apptID.String()+"/status", "doctor", `{"status":"approved"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body)
		}
	})

	errCases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &scheduling.ValidationError{}, http.StatusBadRequest},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"illegal transition", domain.ErrIllegalTransition, http.StatusConflict},
		{"cancel window closed", domain.ErrCancelWindowClosed, http.StatusConflict},
		{"timeout", context.DeadlineExceeded, http.StatusServiceUnavailable},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{
				changeStatus: func(ctx context.Context, actor domain.Actor, id uuid.UUID, to domain.Status) (domain.Appointment, error) {
					return domain.Appointment{}, tc.err
				},
			}
			rec := do(testServer(t, svc, actors), http.MethodPost, "/api/v1/appointments/"+apptID.String()+"/status", "doctor", `{"status":"approved"}`)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}

	t.Run("bad appointment id", func(t *testing.T) {
		rec := do(testServer(t, &fakeService{}, actors), http.MethodPost, "/api/v1/appointments/nope/status", "doctor", `{"status":"approved"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestNotesEndpointRoleGate(t *testing.T) {
	patient := domain.Actor{ID: uuid.New(), Role: domain.RolePatient}
	doctor := domain.Actor{ID: uuid.New(), Role: domain.RoleDoctor}
	actors := map[string]domain.Actor{"patient": patient, "doctor": doctor}
	apptID := uuid.New()

	t.Run("patients are blocked before the service runs", func(t *testing.T) {
		rec := do(testServer(t, &fakeService{}, actors), http.MethodPut, "/api/v1/appointments/"+apptID.String()+"/notes", "patient", `{"medical_notes":"x"}`)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("doctor writes notes", func(t *testing.T) {
		svc := &fakeService{
			setNotes: func(ctx context.Context, actor domain.Actor, id uuid.UUID, notes string) (domain.Appointment, error) {
				if notes != "rest and fluids" {
					t.Fatalf("notes = %q, want request body value", notes)
				}
				return domain.Appointment{ID: id, MedicalNotes: notes}, nil
			},
		}
		rec := do(testServer(t, svc, actors), http.MethodPut, "/api/v1/appointments/"+apptID.String()+"/notes", "doctor", `{"medical_notes":"rest and fluids"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body)
		}
	})
}

func TestListEndpoint(t *testing.T) {
	doctor := domain.Actor{ID: uuid.New(), Role: domain.RoleDoctor}
	actors := map[string]domain.Actor{"doctor": doctor}

	svc := &fakeService{
		list: func(ctx context.Context, actor domain.Actor, in scheduling.ListInput) ([]domain.Appointment, int, error) {
			if in.Status != "pending" || in.Range != "upcoming" || in.Search != "cough" || in.Page != 2 {
				t.Fatalf("input = %+v, want query params", in)
			}
			return []domain.Appointment{{ID: uuid.New()}}, 25, nil
		},
	}
	rec := do(testServer(t, svc, actors), http.MethodGet, "/api/v1/appointments?status=pending&range=upcoming&search=cough&page=2", "doctor", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body)
	}

	var resp listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Total != 25 || resp.Page != 2 || resp.PageSize != store.PageSize || resp.TotalPages != 3 {
		t.Fatalf("response = %+v, want total 25 over 3 pages", resp)
	}

	t.Run("bad page", func(t *testing.T) {
		rec := do(testServer(t, svc, actors), http.MethodGet, "/api/v1/appointments?page=0", "doctor", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestPatientRosterAndHistoryEndpoints(t *testing.T) {
	patient := domain.Actor{ID: uuid.New(), Role: domain.RolePatient}
	doctor := domain.Actor{ID: uuid.New(), Role: domain.RoleDoctor}
	actors := map[string]domain.Actor{"patient": patient, "doctor": doctor}
	patientID := uuid.New()

	t.Run("patients cannot browse the roster", func(t *testing.T) {
		rec := do(testServer(t, &fakeService{}, actors), http.MethodGet, "/api/v1/patients", "patient", "")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("doctor lists their patients", func(t *testing.T) {
		svc := &fakeService{
			patientRoster: func(ctx context.Context, actor domain.Actor, search string) ([]store.PatientSummary, error) {
				if actor != doctor {
					t.Fatalf("actor = %+v, want authenticated doctor", actor)
				}
				if search != "ada" {
					t.Fatalf("search = %q, want %q", search, "ada")
				}
				return []store.PatientSummary{{PatientID: patientID, Name: "Ada Smith", Appointments: store.StatusCounts{Total: 2, Completed: 2}}}, nil
			},
		}
		rec := do(testServer(t, svc, actors), http.MethodGet, "/api/v1/patients?search=ada", "doctor", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body)
		}
		if !strings.Contains(rec.Body.String(), "Ada Smith") {
			t.Fatalf("body = %s, want roster entry", rec.Body)
		}
	})

	t.Run("doctor pages a patient's history", func(t *testing.T) {
		svc := &fakeService{
			patientHistory: func(ctx context.Context, actor domain.Actor, id uuid.UUID, page int) ([]domain.Appointment, int, error) {
				if id != patientID || page != 2 {
					t.Fatalf("PatientHistory(%v, %d), want (%v, 2)", id, page, patientID)
				}
				return []domain.Appointment{{ID: uuid.New(), PatientID: id}}, 11, nil
			},
		}
		rec := do(testServer(t, svc, actors), http.MethodGet, "/api/v1/patients/"+patientID.String()+"/appointments?page=2", "doctor", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body)
		}
		var resp listResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if resp.Total != 11 || resp.TotalPages != 2 {
			t.Fatalf("response = %+v, want total 11 over 2 pages", resp)
		}
	})

	t.Run("unrelated patient reads as not found", func(t *testing.T) {
		svc := &fakeService{
			patientHistory: func(ctx context.Context, actor domain.Actor, id uuid.UUID, page int) ([]domain.Appointment, int, error) {
				return nil, 0, store.ErrNotFound
			},
		}
		rec := do(testServer(t, svc, actors), http.MethodGet, "/api/v1/patients/"+patientID.String()+"/appointments", "doctor", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("bad patient id", func(t *testing.T) {
		rec := do(testServer(t, &fakeService{}, actors), http.MethodGet, "/api/v1/patients/nope/appointments", "doctor", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestSummaryAndDoctorsEndpoints(t *testing.T) {
	patient := domain.Actor{ID: uuid.New(), Role: domain.RolePatient}
	actors := map[string]domain.Actor{"patient": patient}

	svc := &fakeService{
		summaryCounts: func(ctx context.Context, actor domain.Actor) (store.StatusCounts, error) {
			return store.StatusCounts{Total: 4, Pending: 1, Approved: 1, Completed: 1, Cancelled: 1}, nil
		},
		listDoctors: func(ctx context.Context, search string) ([]domain.Doctor, error) {
			if search != "cardio" {
				t.Fatalf("search = %q, want %q", search, "cardio")
			}
			return []domain.Doctor{{ID: uuid.New(), Name: "Dr. Adeyemi", Specialization: "Cardiology"}}, nil
		},
	}
	srv := testServer(t, svc, actors)

	rec := do(srv, http.MethodGet, "/api/v1/appointments/summary", "patient", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d, want %d", rec.Code, http.StatusOK)
	}
	var counts store.StatusCounts
	if err := json.Unmarshal(rec.Body.Bytes(), &counts); err != nil {
		t.Fatalf("unmarshal counts: %v", err)
	}
	if counts.Total != 4 {
		t.Fatalf("counts.Total = %d, want 4", counts.Total)
	}

	rec = do(srv, http.MethodGet, "/api/v1/doctors?search=cardio", "patient", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("doctors status = %d, want %d", rec.Code, http.StatusOK)
	}
}
