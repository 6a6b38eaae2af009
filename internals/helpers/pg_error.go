package helper

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE yang dipetakan ke status HTTP
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgSerialization       = "40001"
	pgDeadlock            = "40P01"
	pgLockNotAvailable    = "55P03"
	pgQueryCanceled       = "57014"
)

// PGCode mengambil SQLSTATE dari error pgx maupun lib/pq.
func PGCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// IsRetryablePG: serialization failure / deadlock / lock timeout.
func IsRetryablePG(err error) bool {
	switch PGCode(err) {
	case pgSerialization, pgDeadlock, pgLockNotAvailable:
		return true
	}
	return false
}

func MapPGError(err error) (status int, message string, ok bool) {
	switch PGCode(err) {
	case "":
		return 0, "", false
	case pgUniqueViolation:
		return fiber.StatusConflict, "Data sudah ada (duplikat)", true
	case pgForeignKeyViolation:
		return fiber.StatusBadRequest, "Relasi data tidak valid", true
	case pgCheckViolation:
		return fiber.StatusBadRequest, "Data melanggar constraint", true
	case pgSerialization, pgDeadlock, pgLockNotAvailable:
		return fiber.StatusConflict, "Konflik transaksi, silakan ulangi", true
	case pgQueryCanceled:
		return fiber.StatusServiceUnavailable, "Query timeout", true
	default:
		return fiber.StatusInternalServerError, "Database error", true
	}
}
