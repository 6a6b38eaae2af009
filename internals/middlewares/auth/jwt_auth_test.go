package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const testSecret = "s3cret-for-tests"

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func newApp(owner uuid.UUID) *fiber.App {
	app := fiber.New()
	app.Get("/r", AuthJWT(AuthJWTOpts{Secret: testSecret}), func(c *fiber.Ctx) error {
		if err := RequireOwnerOrAdmin(c, owner, "registrasi"); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestAuthJWT(t *testing.T) {
	owner := uuid.New()
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no token", "", fiber.StatusUnauthorized},
		{"garbage", "Bearer nope", fiber.StatusUnauthorized},
		{"wrong secret", "Bearer " + sign(t, "other", jwt.MapClaims{"id": owner.String(), "exp": exp}), fiber.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, testSecret, jwt.MapClaims{"id": owner.String(), "exp": time.Now().Add(-time.Minute).Unix()}), fiber.StatusUnauthorized},
		{"no user id", "Bearer " + sign(t, testSecret, jwt.MapClaims{"exp": exp}), fiber.StatusUnauthorized},
		{"owner", "Bearer " + sign(t, testSecret, jwt.MapClaims{"id": owner.String(), "exp": exp}), fiber.StatusNoContent},
		{"owner via sub", "bearer " + sign(t, testSecret, jwt.MapClaims{"sub": owner.String(), "exp": exp}), fiber.StatusNoContent},
		{"stranger", "Bearer " + sign(t, testSecret, jwt.MapClaims{"id": uuid.NewString(), "exp": exp}), fiber.StatusForbidden},
		{"admin", "Bearer " + sign(t, testSecret, jwt.MapClaims{"id": uuid.NewString(), "role": "Admin", "exp": exp}), fiber.StatusNoContent},
		{"roles_global owner", "Bearer " + sign(t, testSecret, jwt.MapClaims{"id": uuid.NewString(), "roles_global": []string{"owner"}, "exp": exp}), fiber.StatusNoContent},
	}

	app := newApp(owner)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/r", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestOnlyRoles(t *testing.T) {
	app := fiber.New()
	app.Get("/admin", AuthJWT(AuthJWTOpts{Secret: testSecret}), OnlyRoles("", "admin"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	exp := time.Now().Add(time.Hour).Unix()
	for _, tc := range []struct {
		role string
		want int
	}{{"admin", 200}, {"user", 403}} {
		req := httptest.NewRequest("GET", "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+sign(t, testSecret, jwt.MapClaims{"id": uuid.NewString(), "role": tc.role, "exp": exp}))
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != tc.want {
			t.Fatalf("role %s: status = %d, want %d", tc.role, resp.StatusCode, tc.want)
		}
	}
}
