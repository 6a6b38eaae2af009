// file: internals/features/races/payments/service/reconciler.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	bibSvc "racehub_backend/internals/features/races/bibs/service"
	"racehub_backend/internals/features/races/ledger"
	"racehub_backend/internals/features/races/payments/gateway"
	qrSvc "racehub_backend/internals/features/races/qrcodes/service"
	regModel "racehub_backend/internals/features/races/registrations/model"
)

/* ===================== Options ===================== */

type GuardMode string

const (
	// GuardConditional: alokasi + UPDATE ... WHERE status='pending' dalam satu transaksi.
	GuardConditional GuardMode = "conditional"
	// GuardReadCheck: baca, cek, tulis tanpa syarat. Rentan race, hanya untuk pembanding.
	GuardReadCheck GuardMode = "read-check"
)

func ParseGuardMode(s string) (GuardMode, error) {
	switch GuardMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", GuardConditional:
		return GuardConditional, nil
	case GuardReadCheck:
		return GuardReadCheck, nil
	}
	return "", fmt.Errorf("unknown reconcile guard %q", s)
}

type Options struct {
	Guard           GuardMode
	ProviderTimeout time.Duration
	LockTTL         time.Duration
	Now             func() time.Time
}

func (o *Options) withDefaults() {
	if o.Guard == "" {
		o.Guard = GuardConditional
	}
	if o.ProviderTimeout <= 0 {
		o.ProviderTimeout = 10 * time.Second
	}
	if o.LockTTL <= 0 {
		o.LockTTL = 15 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

/* ===================== Collaborators ===================== */

// QRIssuer renders inside the paid transaction and publishes after commit,
// so no lock is held during upload.
type QRIssuer interface {
	Render(p qrSvc.Payload) (qrSvc.Image, error)
	Publish(ctx context.Context, img qrSvc.Image) error
}

// Locker is an optional cross-instance lock. Acquire returns ErrBusy on contention.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

/* ===================== Reconciler ===================== */

type Result struct {
	RegistrationID uuid.UUID
	Status         string
	RaceNumber     string
	QRCodeURL      string
	// AlreadyPaid: tidak ada mutasi dari panggilan ini (replay atau kalah race).
	AlreadyPaid  bool
	Transitioned bool
}

type Reconciler struct {
	ledger   ledger.Ledger
	alloc    *bibSvc.Allocator
	qr       QRIssuer
	provider gateway.Provider
	locker   Locker
	opts     Options
}

// NewReconciler wires the reconciler. provider and locker may be nil:
// without a provider Sync fails with ErrUpstreamUnavailable.
func NewReconciler(l ledger.Ledger, alloc *bibSvc.Allocator, qr QRIssuer, provider gateway.Provider, locker Locker, opts Options) *Reconciler {
	opts.withDefaults()
	if alloc == nil {
		alloc = bibSvc.NewAllocator(bibSvc.CounterAtomic)
	}
	return &Reconciler{ledger: l, alloc: alloc, qr: qr, provider: provider, locker: locker, opts: opts}
}

func (r *Reconciler) Guard() GuardMode { return r.opts.Guard }

// ParseExternalID validates the webhook external id as a registration id.
func ParseExternalID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidExternalID, s)
	}
	return id, nil
}

func (r *Reconciler) Registration(ctx context.Context, id uuid.UUID) (*regModel.Registration, error) {
	return r.ledger.ReadRegistration(ctx, id)
}

// MarkPaid moves a pending registration to paid and issues its race number and QR.
// Replays return the existing race number without mutation.
func (r *Reconciler) MarkPaid(ctx context.Context, id uuid.UUID, paymentID string) (*Result, error) {
	release, err := r.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	reg, err := r.ledger.ReadRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	if res, done := r.settled(reg, paymentID); done {
		return r.repairQR(ctx, reg, res), nil
	}

	if r.opts.Guard == GuardReadCheck {
		res, img, err := r.commit(ctx, r.ledger, reg, paymentID, "")
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return r.publish(ctx, res, img), nil
	}

	var (
		res *Result
		img *qrSvc.Image
	)
	err = r.ledger.Transaction(ctx, func(tx ledger.Ledger) error {
		var err error
		res, img, err = r.commit(ctx, tx, reg, paymentID, regModel.StatusPending)
		return err
	})
	if errors.Is(err, ledger.ErrConflict) {
		return r.afterConflict(ctx, id, paymentID)
	}
	if err != nil {
		return nil, err
	}
	return r.publish(ctx, res, img), nil
}

// lock takes the optional cross-instance lock. Kalau Redis tidak bisa dihubungi,
// guard conditional tetap menjaga transisi, jadi lanjut tanpa lock.
func (r *Reconciler) lock(ctx context.Context, id uuid.UUID) (func(), error) {
	noop := func() {}
	if r.locker == nil {
		return noop, nil
	}
	release, err := r.locker.Acquire(ctx, "reconcile:"+id.String(), r.opts.LockTTL)
	switch {
	case err == nil:
		return release, nil
	case errors.Is(err, ErrBusy), ctx.Err() != nil, r.opts.Guard != GuardConditional:
		return nil, err
	}
	log.Printf("[WARN] reconcile: registration=%s lock unavailable, continuing on conditional guard: %v", id, err)
	return noop, nil
}

// settled handles registrations that must not transition: already paid or terminal.
func (r *Reconciler) settled(reg *regModel.Registration, paymentID string) (*Result, bool) {
	switch {
	case reg.IsPaid():
		if prev := deref(reg.RegistrationXenditPaymentID); paymentID != "" && prev != "" && prev != paymentID {
			log.Printf("[WARN] reconcile: registration=%s already paid by %s, got second payment %s (duplicate invoice?)",
				reg.RegistrationID, prev, paymentID)
		}
		return &Result{
			RegistrationID: reg.RegistrationID,
			Status:         string(regModel.StatusPaid),
			RaceNumber:     reg.RaceNumber(),
			QRCodeURL:      reg.QRCodeURL(),
			AlreadyPaid:    true,
		}, true
	case !reg.IsPending():
		log.Printf("[INFO] reconcile: registration=%s is %s, not transitioning", reg.RegistrationID, reg.RegistrationStatus)
		return &Result{RegistrationID: reg.RegistrationID, Status: string(reg.RegistrationStatus)}, true
	}
	return nil, false
}

func (r *Reconciler) commit(ctx context.Context, l ledger.Ledger, reg *regModel.Registration, paymentID string, ifStatus regModel.RegistrationStatus) (*Result, *qrSvc.Image, error) {
	alloc, err := r.alloc.Allocate(ctx, l, reg.RegistrationEventID, reg.RegistrationCategoryID, reg.VanityNumber())
	if err != nil {
		return nil, nil, fmt.Errorf("allocate race number: %w", err)
	}

	var img *qrSvc.Image
	qrURL := ""
	if r.qr != nil {
		rendered, err := r.qr.Render(qrPayload(reg, alloc.RaceNumber))
		if err != nil {
			return nil, nil, fmt.Errorf("render qr code: %w", err)
		}
		img, qrURL = &rendered, rendered.URL
	}

	err = l.WriteRegistrationPaid(ctx, reg.RegistrationID, ledger.PaidWrite{
		RaceNumber: alloc.RaceNumber,
		QRCodeURL:  qrURL,
		PaymentID:  paymentID,
		PaidAt:     r.opts.Now(),
		IfStatus:   ifStatus,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrConflict) || errors.Is(err, ledger.ErrNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("commit paid registration: %w", err)
	}

	log.Printf("[INFO] reconcile: registration=%s paid race_number=%s payment=%s vanity=%v",
		reg.RegistrationID, alloc.RaceNumber, paymentID, alloc.Vanity)
	return &Result{
		RegistrationID: reg.RegistrationID,
		Status:         string(regModel.StatusPaid),
		RaceNumber:     alloc.RaceNumber,
		QRCodeURL:      qrURL,
		Transitioned:   true,
	}, img, nil
}

// publish uploads the QR once the paid write is committed. Kalau upload gagal,
// URL dikosongkan supaya replay berikutnya menerbitkan ulang lewat repairQR.
func (r *Reconciler) publish(ctx context.Context, res *Result, img *qrSvc.Image) *Result {
	if img == nil {
		return res
	}
	if err := r.qr.Publish(ctx, *img); err != nil {
		log.Printf("[ERROR] reconcile: registration=%s publish qr: %v", res.RegistrationID, err)
		if err := r.ledger.WriteRegistrationQR(ctx, res.RegistrationID, ""); err != nil {
			log.Printf("[ERROR] reconcile: registration=%s clear qr url: %v", res.RegistrationID, err)
		}
		res.QRCodeURL = ""
	}
	return res
}

// repairQR re-issues the QR of a paid registration that has none.
func (r *Reconciler) repairQR(ctx context.Context, reg *regModel.Registration, res *Result) *Result {
	if r.qr == nil || !reg.IsPaid() || res.QRCodeURL != "" || res.RaceNumber == "" {
		return res
	}
	img, err := r.qr.Render(qrPayload(reg, res.RaceNumber))
	if err == nil {
		err = r.qr.Publish(ctx, img)
	}
	if err == nil {
		err = r.ledger.WriteRegistrationQR(ctx, reg.RegistrationID, img.URL)
	}
	if err != nil {
		log.Printf("[WARN] reconcile: registration=%s repair qr: %v", reg.RegistrationID, err)
		return res
	}
	log.Printf("[INFO] reconcile: registration=%s qr re-issued", reg.RegistrationID)
	res.QRCodeURL = img.URL
	return res
}

func qrPayload(reg *regModel.Registration, raceNumber string) qrSvc.Payload {
	return qrSvc.NewPayload(reg.RegistrationID, reg.RegistrationEventID, reg.RegistrationRunnerName, raceNumber)
}

// afterConflict re-reads after losing the conditional write and returns the winner's result.
func (r *Reconciler) afterConflict(ctx context.Context, id uuid.UUID, paymentID string) (*Result, error) {
	cur, err := r.ledger.ReadRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] reconcile: registration=%s lost race, now %s", id, cur.RegistrationStatus)
	if res, done := r.settled(cur, paymentID); done {
		return res, nil
	}
	return nil, ErrConflict
}

/* ===================== Sync ===================== */

// Sync asks the provider for the registration's invoice and applies a paid result.
// Already-paid registrations never reach the provider.
func (r *Reconciler) Sync(ctx context.Context, id uuid.UUID) (*Result, error) {
	reg, err := r.ledger.ReadRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	if res, done := r.settled(reg, ""); done {
		return r.repairQR(ctx, reg, res), nil
	}
	if r.provider == nil {
		return nil, fmt.Errorf("%w: no provider configured", ErrUpstreamUnavailable)
	}

	pctx, cancel := context.WithTimeout(ctx, r.opts.ProviderTimeout)
	defer cancel()
	inv, err := r.provider.FindInvoice(pctx, id.String())
	if err != nil {
		log.Printf("[WARN] sync: registration=%s provider=%s: %v", id, r.provider.Name(), err)
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if inv == nil {
		return &Result{RegistrationID: id, Status: string(regModel.StatusPending)}, nil
	}
	if inv.Paid {
		return r.MarkPaid(ctx, id, inv.ID)
	}
	return &Result{RegistrationID: id, Status: strings.ToLower(inv.Status)}, nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
