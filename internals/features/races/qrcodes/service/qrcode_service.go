// file: internals/features/races/qrcodes/service/qrcode_service.go
package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	ossHelper "racehub_backend/internals/helpers/oss"
)

/* ===================== Payload ===================== */

// Payload is the JSON document encoded into a runner's QR code.
type Payload struct {
	RegistrationID string `json:"registrationId"`
	EventID        string `json:"eventId"`
	RunnerName     string `json:"runnerName"`
	RaceNumber     string `json:"raceNumber"`
}

func NewPayload(registrationID, eventID uuid.UUID, runnerName, raceNumber string) Payload {
	return Payload{
		RegistrationID: registrationID.String(),
		EventID:        eventID.String(),
		RunnerName:     runnerName,
		RaceNumber:     raceNumber,
	}
}

func (p Payload) Content() (string, error) {
	b, err := sonic.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal qr payload: %w", err)
	}
	return string(b), nil
}

/* ===================== Encoder ===================== */

type ImageFormat string

const (
	FormatPNG  ImageFormat = "png"
	FormatWebP ImageFormat = "webp"
)

func ParseImageFormat(s string) (ImageFormat, error) {
	switch ImageFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatWebP:
		return FormatWebP, nil
	}
	return "", fmt.Errorf("unknown qr image format %q", s)
}

func (f ImageFormat) ContentType() string {
	if f == FormatWebP {
		return "image/webp"
	}
	return "image/png"
}

func (f ImageFormat) Ext() string { return string(f) }

type Encoder struct {
	Size   int // sisi gambar dalam pixel
	Format ImageFormat
	Level  qrcode.RecoveryLevel
}

func NewEncoder(size int, format ImageFormat) Encoder {
	if size <= 0 {
		size = 512
	}
	if format == "" {
		format = FormatPNG
	}
	return Encoder{Size: size, Format: format, Level: qrcode.Medium}
}

// Encode renders content as a square QR image of e.Size pixels.
func (e Encoder) Encode(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("empty qr content")
	}
	q, err := qrcode.New(content, e.Level)
	if err != nil {
		return nil, fmt.Errorf("qrcode.New: %w", err)
	}
	// 4px per module lalu resize nearest-neighbor supaya modul tetap tajam
	img := imaging.Resize(q.Image(-4), e.Size, e.Size, imaging.NearestNeighbor)

	buf := new(bytes.Buffer)
	switch e.Format {
	case FormatWebP:
		err = webp.Encode(buf, img, &webp.Options{Lossless: true})
	default:
		err = imaging.Encode(buf, img, imaging.PNG)
	}
	if err != nil {
		return nil, fmt.Errorf("encode qr %s: %w", e.Format, err)
	}
	return buf.Bytes(), nil
}

/* ===================== Stores ===================== */

// Image is a rendered QR. URL is known before the image is uploaded.
type Image struct {
	Key         string
	Data        []byte
	ContentType string
	URL         string
}

// Store serves encoded QR images. URL must not do I/O.
type Store interface {
	URL(key string, data []byte, contentType string) string
	Put(ctx context.Context, img Image) error
}

// DataURLStore inlines the image as a data: URL. Tidak ada I/O.
type DataURLStore struct{}

func (DataURLStore) URL(_ string, data []byte, contentType string) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func (DataURLStore) Put(context.Context, Image) error { return nil }

// OSSStore uploads to Alibaba OSS; URL is the public object URL.
type OSSStore struct {
	OSS *ossHelper.OSSService
}

func (s OSSStore) URL(key string, _ []byte, _ string) string {
	return s.OSS.PublicURL(s.OSS.ObjectKey(key))
}

func (s OSSStore) Put(ctx context.Context, img Image) error {
	if _, err := s.OSS.PutBytes(ctx, img.Key, img.Data, img.ContentType, true); err != nil {
		return fmt.Errorf("upload qr: %w", err)
	}
	return nil
}

/* ===================== Issuer ===================== */

type Issuer struct {
	Encoder Encoder
	Store   Store
}

func NewIssuer(enc Encoder, store Store) *Issuer {
	if store == nil {
		store = DataURLStore{}
	}
	return &Issuer{Encoder: enc, Store: store}
}

// Render encodes the payload and resolves its URL without uploading.
// Key berisi race number, jadi QR milik transaksi yang kalah race tidak menimpa QR pemenang.
func (i *Issuer) Render(p Payload) (Image, error) {
	content, err := p.Content()
	if err != nil {
		return Image{}, err
	}
	data, err := i.Encoder.Encode(content)
	if err != nil {
		return Image{}, err
	}
	key := ObjectKey(p, i.Encoder.Format)
	ct := i.Encoder.Format.ContentType()
	return Image{Key: key, Data: data, ContentType: ct, URL: i.Store.URL(key, data, ct)}, nil
}

func (i *Issuer) Publish(ctx context.Context, img Image) error {
	return i.Store.Put(ctx, img)
}

// Issue renders and publishes in one step.
func (i *Issuer) Issue(ctx context.Context, p Payload) (string, error) {
	img, err := i.Render(p)
	if err != nil {
		return "", err
	}
	if err := i.Publish(ctx, img); err != nil {
		return "", err
	}
	return img.URL, nil
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// ObjectKey returns qr/<eventId>/<registrationId>-<raceNumber>.<ext>.
func ObjectKey(p Payload, f ImageFormat) string {
	race := unsafeKeyChars.ReplaceAllString(p.RaceNumber, "_")
	return ossHelper.JoinKey("qr", p.EventID, p.RegistrationID+"-"+race+"."+f.Ext())
}
