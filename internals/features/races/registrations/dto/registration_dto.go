package dto

import (
	"time"

	"github.com/google/uuid"

	model "racehub_backend/internals/features/races/registrations/model"
)

// RegistrationResponse is the dashboard read model of a registration.
type RegistrationResponse struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"eventId"`
	CategoryID    uuid.UUID  `json:"categoryId"`
	RunnerName    string     `json:"runnerName"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"paymentStatus"`
	RaceNumber    string     `json:"raceNumber,omitempty"`
	QRCodeURL     string     `json:"qrCodeUrl,omitempty"`
	VanityNumber  string     `json:"vanityNumber,omitempty"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func FromModel(r *model.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:            r.RegistrationID,
		EventID:       r.RegistrationEventID,
		CategoryID:    r.RegistrationCategoryID,
		RunnerName:    r.RegistrationRunnerName,
		Status:        string(r.RegistrationStatus),
		PaymentStatus: string(r.RegistrationPaymentStatus),
		RaceNumber:    r.RaceNumber(),
		QRCodeURL:     r.QRCodeURL(),
		VanityNumber:  r.VanityNumber(),
		PaidAt:        r.RegistrationPaidAt,
		CreatedAt:     r.CreatedAt,
	}
}
