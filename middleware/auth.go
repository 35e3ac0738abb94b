package middleware

import (
	"crypto/subtle"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"golang.org/x/crypto/bcrypt"
)

// RequireAdmin guards the admin routes with HTTP basic auth. passwordHash is
// a bcrypt hash; the plain password never appears in configuration.
func RequireAdmin(username, passwordHash string) fiber.Handler {
	return basicauth.New(basicauth.Config{
		Realm: "messenger-admin",
		Authorizer: func(user, pass string) bool {
			return CheckCredentials(username, passwordHash, user, pass)
		},
		Unauthorized: func(c *fiber.Ctx) error {
			slog.Info("Admin access denied", "ip", c.IP(), "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		},
	})
}

// CheckCredentials reports whether user and pass match the configured admin
func CheckCredentials(username, passwordHash, user, pass string) bool {
	if passwordHash == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
	passOK := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(pass)) == nil
	return userOK && passOK
}

// HashPassword generates a bcrypt hash suitable for ADMIN_PASSWORD_HASH
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}
