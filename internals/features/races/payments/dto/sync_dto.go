// file: internals/features/races/payments/dto/sync_dto.go
package dto

type SyncResponse struct {
	Success    bool   `json:"success"`
	Status     string `json:"status"`
	RaceNumber string `json:"raceNumber,omitempty"`
	QRCodeURL  string `json:"qrCodeUrl,omitempty"`
	// true kalau provider gagal/timeout; status "pending" bukan jawaban provider
	ProviderUnavailable bool `json:"providerUnavailable,omitempty"`
}
