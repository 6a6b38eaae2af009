package configs

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// =======================
// CONFIG
// =======================

type Config struct {
	Port               string
	HTTPRequestTimeout time.Duration

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	DBSSLMode  string

	JWTSecret string

	// Payment gateway
	PaymentProvider        string // xendit | midtrans
	XenditSecretKey        string
	XenditCallbackToken    string
	MidtransServerKey      string
	MidtransUseProd        bool
	PaymentProviderTimeout time.Duration

	// Reconcile
	BibCounterMode  string // atomic | recount
	ReconcileGuard  string // conditional | read-check
	SyncRequireAuth bool

	// Redis lock (opsional, REDIS_URL kosong = tanpa lock)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// QR
	QRStorage     string // dataurl | oss
	QRImageFormat string // png | webp
	QRSize        int
	OSSPrefix     string

	// Sweeper
	SweeperCron  string
	SweeperBatch int
}

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("⚠️ Tidak menemukan .env file, menggunakan ENV dari sistem")
		} else {
			log.Println("✅ .env file berhasil dimuat!")
		}
	} else {
		log.Println("🚀 Running in Railway, menggunakan ENV dari sistem")
	}

	if GetEnv("JWT_SECRET") == "" {
		log.Println("❌ JWT_SECRET belum diset!")
	} else {
		log.Println("✅ JWT_SECRET berhasil dimuat.")
	}
}

// Load reads the whole service configuration from the environment.
func Load() Config {
	cfg := Config{
		Port:               GetEnv("PORT", "3000"),
		HTTPRequestTimeout: GetEnvDuration("HTTP_REQUEST_TIMEOUT", 20*time.Second),

		DBUser:     GetEnv("DB_USER"),
		DBPassword: GetEnv("DB_PASSWORD"),
		DBHost:     GetEnv("DB_HOST", "localhost"),
		DBPort:     GetEnv("DB_PORT", "5432"),
		DBName:     GetEnv("DB_NAME"),
		DBSSLMode:  GetEnv("DB_SSLMODE", "require"),

		JWTSecret: GetEnv("JWT_SECRET"),

		PaymentProvider:        strings.ToLower(GetEnv("PAYMENT_PROVIDER", "xendit")),
		XenditSecretKey:        GetEnv("XENDIT_SECRET_KEY"),
		XenditCallbackToken:    GetEnv("XENDIT_CALLBACK_TOKEN"),
		MidtransServerKey:      GetEnv("MIDTRANS_SERVER_KEY"),
		MidtransUseProd:        GetEnvBool("MIDTRANS_USE_PROD", false),
		PaymentProviderTimeout: GetEnvDuration("PAYMENT_PROVIDER_TIMEOUT", 10*time.Second),

		BibCounterMode:  GetEnv("BIB_COUNTER_MODE", "atomic"),
		ReconcileGuard:  GetEnv("RECONCILE_GUARD", "conditional"),
		SyncRequireAuth: GetEnvBool("SYNC_REQUIRE_AUTH", true),

		RedisURL:      GetEnv("REDIS_URL"),
		RedisPassword: GetEnv("REDIS_PASSWORD"),
		RedisDB:       GetEnvInt("REDIS_DB", 0),

		QRStorage:     strings.ToLower(GetEnv("QR_STORAGE", "dataurl")),
		QRImageFormat: GetEnv("QR_IMAGE_FORMAT", "png"),
		QRSize:        GetEnvInt("QR_SIZE", 512),
		OSSPrefix:     GetEnv("ALI_OSS_PREFIX", "racehub"),

		SweeperCron:  GetEnv("SWEEPER_CRON", "@every 1m"),
		SweeperBatch: GetEnvInt("SWEEPER_BATCH", 50),
	}

	if cfg.XenditCallbackToken == "" && cfg.PaymentProvider == "xendit" {
		log.Println("❌ XENDIT_CALLBACK_TOKEN belum diset! Semua webhook Xendit akan ditolak.")
	}
	return cfg
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

func GetEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[WARN] %s=%q bukan angka, pakai default %d", key, v, def)
		return def
	}
	return i
}

func GetEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	log.Printf("[WARN] %s=%q bukan boolean, pakai default %v", key, v, def)
	return def
}

// GetEnvDuration accepts Go durations ("10s") or plain seconds ("10").
func GetEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	log.Printf("[WARN] %s=%q bukan durasi, pakai default %s", key, v, def)
	return def
}

// =======================
// GORM LOGGER CUSTOM
// =======================
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormLogger.LogLevel
}

func NewGormLogger() gormLogger.Interface {
	level := gormLogger.Warn
	if GetEnvBool("DB_LOG_QUERIES", false) {
		level = gormLogger.Info
	}
	return &GormLogger{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      level,
	}
}

func (l *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	cp := *l
	cp.LogLevel = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Info {
		log.Printf("[INFO] "+msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Warn {
		log.Printf("[WARN] "+msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Error {
		log.Printf("[ERROR] "+msg, data...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	file := utils.FileWithLineNum()

	switch {
	// ErrRecordNotFound bukan error aplikasi; ledger memetakannya ke ErrNotFound
	case err != nil && !strings.Contains(err.Error(), "record not found"):
		log.Printf("[ERROR] %s | %v | %s | %d rows | %s", file, err, elapsed, rows, sql)
	case elapsed > l.SlowThreshold:
		log.Printf("[SLOW SQL] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	case l.LogLevel >= gormLogger.Info:
		log.Printf("[QUERY] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	}
}
