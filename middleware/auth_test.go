package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestCheckCredentials(t *testing.T) {
	hash := testHash(t, "s3cret")

	assert.True(t, CheckCredentials("admin", hash, "admin", "s3cret"))
	assert.False(t, CheckCredentials("admin", hash, "admin", "wrong"))
	assert.False(t, CheckCredentials("admin", hash, "root", "s3cret"))
	assert.False(t, CheckCredentials("admin", "", "admin", ""))
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckCredentials("admin", hash, "admin", "s3cret"))
}

func TestRequireAdmin(t *testing.T) {
	app := fiber.New()
	app.Get("/admin/ping", RequireAdmin("admin", testHash(t, "s3cret")), func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.SetBasicAuth("admin", "wrong")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.SetBasicAuth("admin", "s3cret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
