// internals/helpers/oss/oss_client.go
package helper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

func getEnv(k string) string { return strings.TrimSpace(os.Getenv(k)) }

/* =======================================================================
   Konfigurasi
======================================================================= */

type OSSConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	SecurityToken string
	Bucket        string
	PublicBase    string // opsional, contoh CDN: https://cdn.racehub.id
	Prefix        string // opsional: "uploads/"
}

func OSSConfigFromEnv(prefix string) OSSConfig {
	return OSSConfig{
		Endpoint:      getEnv("ALI_OSS_ENDPOINT"),
		AccessKey:     getEnv("ALI_OSS_ACCESS_KEY"),
		SecretKey:     getEnv("ALI_OSS_SECRET_KEY"),
		SecurityToken: getEnv("ALI_OSS_SECURITY_TOKEN"),
		Bucket:        getEnv("ALI_OSS_BUCKET"),
		PublicBase:    getEnv("ALI_OSS_PUBLIC_BASE"),
		Prefix:        prefix,
	}
}

/* =======================================================================
   OSS Service
======================================================================= */

type OSSService struct {
	Client     *oss.Client
	Bucket     *oss.Bucket
	Endpoint   string
	BucketName string
	PublicBase string
	Prefix     string
}

func NewOSSServiceFromEnv(prefix string) (*OSSService, error) {
	return NewOSSService(OSSConfigFromEnv(prefix))
}

func NewOSSService(cfg OSSConfig) (*OSSService, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("missing env: ALI_OSS_ENDPOINT/ACCESS_KEY/SECRET_KEY/BUCKET")
	}

	var (
		client *oss.Client
		err    error
	)
	if cfg.SecurityToken != "" {
		client, err = oss.New(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, oss.SecurityToken(cfg.SecurityToken))
	} else {
		client, err = oss.New(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey)
	}
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}

	bkt, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}

	// Verifikasi ringan lokasi bucket
	if loc, err := client.GetBucketLocation(cfg.Bucket); err != nil {
		if se, ok := err.(oss.ServiceError); ok && se.StatusCode == 403 && se.Code == "AccessDenied" {
			log.Printf("[OSS] warn: skip location check due to AccessDenied (bucket=%s). Continuing.", cfg.Bucket)
		} else {
			return nil, fmt.Errorf("verify bucket: %w", err)
		}
	} else {
		log.Printf("[OSS] bucket %s location: %s", cfg.Bucket, loc)
	}

	return &OSSService{
		Client:     client,
		Bucket:     bkt,
		Endpoint:   cfg.Endpoint,
		BucketName: cfg.Bucket,
		PublicBase: cfg.PublicBase,
		Prefix:     strings.Trim(cfg.Prefix, "/"),
	}, nil
}

/* =======================================================================
   Upload
======================================================================= */

// PutBytes uploads data under the prefixed key and returns the full object key.
func (s *OSSService) PutBytes(ctx context.Context, key string, data []byte, contentType string, cacheForever bool) (string, error) {
	full := s.ObjectKey(key)
	if err := s.UploadStream(ctx, full, bytes.NewReader(data), contentType, true, cacheForever); err != nil {
		return "", err
	}
	return full, nil
}

func (s *OSSService) UploadStream(ctx context.Context, key string, r io.Reader, contentType string, inline bool, cacheForever bool) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(contentType),
	}
	if inline {
		opts = append(opts, oss.ContentDisposition("inline"))
	}
	if cacheForever {
		opts = append(opts, oss.CacheControl("public, max-age=31536000, immutable"))
	}
	return s.Bucket.PutObject(key, r, opts...)
}

/* =======================================================================
   Key & Public URL
======================================================================= */

func (s *OSSService) ObjectKey(key string) string {
	return JoinKey(s.Prefix, key)
}

func (s *OSSService) PublicURL(key string) string {
	return PublicURL(s.PublicBase, s.Endpoint, s.BucketName, key)
}

// PublicURL builds the public object URL, preferring a CDN base when set.
func PublicURL(publicBase, endpoint, bucket, key string) string {
	if key == "" {
		return ""
	}
	if base := strings.TrimSpace(publicBase); base != "" {
		return strings.TrimRight(base, "/") + "/" + key
	}
	if endpoint == "" || bucket == "" {
		return ""
	}
	end := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", bucket, end, key)
}

// JoinKey joins non-empty parts with "/" and trims stray slashes.
func JoinKey(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), "/")
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "/")
}

func init() {
	_ = mime.AddExtensionType(".webp", "image/webp")
}
