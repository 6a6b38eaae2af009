// middlewares/cors.go

package middlewares

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"racehub_backend/internals/configs"
)

var defaultOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"https://racehub.id",
	"https://www.racehub.id",
}

// CorsMiddleware membuat middleware CORS; CORS_ORIGINS (dipisah koma) menimpa default.
func CorsMiddleware() fiber.Handler {
	origins := defaultOrigins
	if v := strings.TrimSpace(configs.GetEnv("CORS_ORIGINS")); v != "" {
		origins = strings.Split(v, ",")
	}
	return cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ", "),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowCredentials: true,
	})
}
