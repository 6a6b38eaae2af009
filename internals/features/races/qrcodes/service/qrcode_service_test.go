package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"strings"
	"testing"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
)

func samplePayload() Payload {
	return NewPayload(
		uuid.MustParse("5b0c6e0e-8f43-4a0e-9a3e-2b1b9b6f0c11"),
		uuid.MustParse("0f6d3b7a-1c2d-4e5f-8a9b-0c1d2e3f4a5b"),
		"Siti Rahma",
		"42K-007",
	)
}

func TestPayloadContent(t *testing.T) {
	content, err := samplePayload().Content()
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(content), &got); err != nil {
		t.Fatalf("payload is not JSON: %v (%s)", err, content)
	}
	want := map[string]string{
		"registrationId": "5b0c6e0e-8f43-4a0e-9a3e-2b1b9b6f0c11",
		"eventId":        "0f6d3b7a-1c2d-4e5f-8a9b-0c1d2e3f4a5b",
		"runnerName":     "Siti Rahma",
		"raceNumber":     "42K-007",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestEncoder_PNG(t *testing.T) {
	data, err := NewEncoder(256, FormatPNG).Encode("hello")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 256 || b.Dy() != 256 {
		t.Errorf("size = %dx%d, want 256x256", b.Dx(), b.Dy())
	}
}

func TestEncoder_WebP(t *testing.T) {
	data, err := NewEncoder(128, FormatWebP).Encode("hello")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("webp.Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 128 || b.Dy() != 128 {
		t.Errorf("size = %dx%d, want 128x128", b.Dx(), b.Dy())
	}
}

func TestEncoder_EmptyContent(t *testing.T) {
	if _, err := NewEncoder(128, FormatPNG).Encode(""); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestIssuer_DataURL(t *testing.T) {
	url, err := NewIssuer(NewEncoder(128, FormatPNG), nil).Issue(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(url, prefix) {
		t.Fatalf("url = %.40q..., want %s prefix", url, prefix)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, prefix))
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
}

type recordingStore struct {
	keys []string
}

func (s *recordingStore) URL(key string, _ []byte, _ string) string {
	return "https://cdn.racehub.id/" + key
}

func (s *recordingStore) Put(_ context.Context, img Image) error {
	s.keys = append(s.keys, img.Key)
	return nil
}

func TestIssuer_KeyIncludesRaceNumber(t *testing.T) {
	store := &recordingStore{}
	iss := NewIssuer(NewEncoder(64, FormatWebP), store)

	p := samplePayload()
	if _, err := iss.Issue(context.Background(), p); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	p.RaceNumber = "42K-008"
	if _, err := iss.Issue(context.Background(), p); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	want := []string{
		"qr/0f6d3b7a-1c2d-4e5f-8a9b-0c1d2e3f4a5b/5b0c6e0e-8f43-4a0e-9a3e-2b1b9b6f0c11-42K-007.webp",
		"qr/0f6d3b7a-1c2d-4e5f-8a9b-0c1d2e3f4a5b/5b0c6e0e-8f43-4a0e-9a3e-2b1b9b6f0c11-42K-008.webp",
	}
	if len(store.keys) != 2 || store.keys[0] != want[0] || store.keys[1] != want[1] {
		t.Errorf("keys = %q, want %q", store.keys, want)
	}
}

func TestParseImageFormat(t *testing.T) {
	for in, want := range map[string]ImageFormat{"": FormatPNG, "PNG": FormatPNG, "webp": FormatWebP} {
		if got, err := ParseImageFormat(in); err != nil || got != want {
			t.Errorf("ParseImageFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseImageFormat("gif"); err == nil {
		t.Error("expected error for gif")
	}
}

func TestIssuer_RenderDoesNotUpload(t *testing.T) {
	store := &recordingStore{}
	iss := NewIssuer(NewEncoder(64, FormatPNG), store)

	img, err := iss.Render(samplePayload())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(store.keys) != 0 {
		t.Fatalf("Render uploaded %q", store.keys)
	}
	if img.URL != "https://cdn.racehub.id/"+img.Key || img.ContentType != "image/png" || len(img.Data) == 0 {
		t.Errorf("img = %s %s (%d bytes)", img.URL, img.ContentType, len(img.Data))
	}

	if err := iss.Publish(context.Background(), img); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(store.keys) != 1 || store.keys[0] != img.Key {
		t.Errorf("keys = %q, want [%s]", store.keys, img.Key)
	}
}
