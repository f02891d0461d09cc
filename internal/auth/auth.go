// Package auth guards the admin HTTP API with a single bcrypt-hashed
// API key. There is one operator, not many billed clients, so this
// stays a single-key check rather than a per-client lookup.
package auth

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// Service checks the X-API-Key header against a configured bcrypt
// hash. There is exactly one key: this is an operator-facing admin
// surface, not a multi-tenant API.
type Service struct {
	keyHash string
}

func NewService(keyHash string) *Service {
	return &Service{keyHash: keyHash}
}

// RequireAPIKey is Fiber middleware rejecting requests whose X-API-Key
// header doesn't match the configured hash.
func (s *Service) RequireAPIKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-API-Key")
		if key == "" || bcrypt.CompareHashAndPassword([]byte(s.keyHash), []byte(key)) != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid API key",
			})
		}
		return c.Next()
	}
}
