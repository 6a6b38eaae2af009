// file: internals/features/races/payments/service/callback_auth.go
package service

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// VerifyCallbackToken compares the webhook token with the configured one in constant time.
// Token kosong di config = semua request ditolak.
func VerifyCallbackToken(got, want string) bool {
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// MidtransSignature = SHA512(order_id + status_code + gross_amount + server_key), hex.
func MidtransSignature(orderID, statusCode, grossAmount, serverKey string) string {
	h := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(h[:])
}

func VerifyMidtransSignature(signature, orderID, statusCode, grossAmount, serverKey string) bool {
	if serverKey == "" || signature == "" {
		return false
	}
	want := MidtransSignature(orderID, statusCode, grossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(signature)), []byte(want)) == 1
}
