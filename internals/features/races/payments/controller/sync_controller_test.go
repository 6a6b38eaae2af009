package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	helper "racehub_backend/internals/helpers"
	"racehub_backend/internals/middlewares/auth"
)

const testJWTSecret = "sync-test-secret"

func (e *env) syncApp(requireAuth bool) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: helper.ErrorHandler})
	ctrl := NewSyncController(e.rec, requireAuth)
	handlers := []fiber.Handler{}
	if requireAuth {
		handlers = append(handlers, auth.AuthJWT(auth.AuthJWTOpts{Secret: testJWTSecret}))
	}
	app.Get("/api/u/registrations/:id/payment-sync", append(handlers, ctrl.Sync)...)
	return app
}

func bearer(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	claims := jwt.MapClaims{"id": userID.String(), "exp": time.Now().Add(time.Hour).Unix()}
	if role != "" {
		claims["role"] = role
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + s
}

func syncRequest(id, authz string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/u/registrations/"+id+"/payment-sync", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	return req
}

func TestSync_ProviderStates(t *testing.T) {
	owner := uuid.New()

	tests := []struct {
		name       string
		setup      func(e *env, id uuid.UUID)
		wantStatus string
		wantRace   string
		wantUnavl  bool
	}{
		{"no invoice", func(e *env, id uuid.UUID) {}, "pending", "", false},
		{"paid invoice", func(e *env, id uuid.UUID) { e.provider.SetInvoice(id.String(), "inv-9", "PAID") }, "paid", "21K-001", false},
		{"expired invoice", func(e *env, id uuid.UUID) { e.provider.SetInvoice(id.String(), "inv-9", "EXPIRED") }, "expired", "", false},
		{"provider down", func(e *env, id uuid.UUID) { e.provider.Err = errors.New("connection reset") }, "pending", "", true},
		{"provider timeout", func(e *env, id uuid.UUID) { e.provider.Delay = time.Second }, "pending", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			id := e.pending(owner)
			tt.setup(e, id)

			status, out := do(t, e.syncApp(true), syncRequest(id.String(), bearer(t, owner, "")))
			if status != fiber.StatusOK {
				t.Fatalf("status = %d body=%v", status, out)
			}
			if out["status"] != tt.wantStatus {
				t.Fatalf("status field = %v, want %s", out["status"], tt.wantStatus)
			}
			if tt.wantRace != "" && out["raceNumber"] != tt.wantRace {
				t.Fatalf("raceNumber = %v, want %s", out["raceNumber"], tt.wantRace)
			}
			if got, _ := out["providerUnavailable"].(bool); got != tt.wantUnavl {
				t.Fatalf("providerUnavailable = %v, want %v", got, tt.wantUnavl)
			}
			if tt.wantStatus != "paid" {
				if reg, _ := e.mem.Registration(id); !reg.IsPending() {
					t.Fatalf("registration mutated to %s", reg.RegistrationStatus)
				}
			}
		})
	}
}

func TestSync_AlreadyPaidSkipsProvider(t *testing.T) {
	e := newEnv()
	owner := uuid.New()
	id := e.pending(owner)
	if _, err := e.rec.MarkPaid(context.Background(), id, "inv-1"); err != nil {
		t.Fatal(err)
	}

	status, out := do(t, e.syncApp(true), syncRequest(id.String(), bearer(t, owner, "")))
	if status != fiber.StatusOK || out["status"] != "paid" || out["raceNumber"] != "21K-001" || out["qrCodeUrl"] == "" {
		t.Fatalf("status = %d body=%v", status, out)
	}
	if n := e.provider.Calls.Load(); n != 0 {
		t.Fatalf("provider calls = %d, want 0", n)
	}
}

func TestSync_ErrorsAndAuth(t *testing.T) {
	e := newEnv()
	owner := uuid.New()
	id := e.pending(owner)
	app := e.syncApp(true)

	tests := []struct {
		name  string
		id    string
		authz string
		want  int
	}{
		{"no token", id.String(), "", fiber.StatusUnauthorized},
		{"stranger", id.String(), bearer(t, uuid.New(), ""), fiber.StatusForbidden},
		{"admin", id.String(), bearer(t, uuid.New(), "admin"), fiber.StatusOK},
		{"malformed id", "not-a-uuid", bearer(t, owner, ""), fiber.StatusBadRequest},
		{"unknown id", uuid.NewString(), bearer(t, owner, ""), fiber.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := do(t, app, syncRequest(tt.id, tt.authz))
			if status != tt.want {
				t.Fatalf("status = %d body=%v, want %d", status, out, tt.want)
			}
		})
	}
	if n := e.provider.Calls.Load(); n != 1 {
		t.Fatalf("provider calls = %d, want 1 (admin only)", n)
	}
}

func TestSync_WithoutAuth(t *testing.T) {
	e := newEnv()
	id := e.pending(uuid.New())

	status, out := do(t, e.syncApp(false), syncRequest(id.String(), ""))
	if status != fiber.StatusOK || out["status"] != "pending" {
		t.Fatalf("status = %d body=%v", status, out)
	}
	if status, _ := do(t, e.syncApp(false), syncRequest(uuid.NewString(), "")); status != fiber.StatusNotFound {
		t.Fatalf("unknown id: status = %d, want 404", status)
	}
}

func TestSync_RetryableStorageError(t *testing.T) {
	e := newEnv()
	owner := uuid.New()
	id := e.pending(owner)
	e.provider.SetInvoice(id.String(), "inv-3", "PAID")
	e.mem.WriteErr = &pgconn.PgError{Code: "40P01"}

	status, out := do(t, e.syncApp(true), syncRequest(id.String(), bearer(t, owner, "")))
	if status != fiber.StatusConflict {
		t.Fatalf("status = %d body=%v, want 409", status, out)
	}
	if reg, _ := e.mem.Registration(id); !reg.IsPending() {
		t.Fatalf("registration mutated to %s", reg.RegistrationStatus)
	}
}
