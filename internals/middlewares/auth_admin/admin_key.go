// file: internals/middlewares/auth_admin/admin_key.go
package auth_admin

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"

	helper "escuelas_backend/internals/helpers"
)

// DailyKey derives the shared admin key for a given moment: hex
// HMAC-SHA256 of the UTC date. The key rotates at UTC midnight.
func DailyKey(secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(at.UTC().Format("2006-01-02")))
	return hex.EncodeToString(mac.Sum(nil))
}

type AdminKeyOpts struct {
	Secret string
	Now    func() time.Time // test hook, defaults to time.Now
}

type keyedBody struct {
	AuthKey string `json:"authKey"`
}

// AdminKey rejects any request whose key does not match today's DailyKey.
// The key may arrive as the X-Admin-Key header or as the authKey body field.
// No per-user identity: one shared secret for the whole admin surface.
func AdminKey(opts AdminKeyOpts) fiber.Handler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return func(c *fiber.Ctx) error {
		if opts.Secret == "" {
			log.Println("[ERROR] admin auth: no secret configured, rejecting")
			return helper.JsonError(c, fiber.StatusUnauthorized, "Admin authentication is not configured")
		}

		presented := c.Get("X-Admin-Key")
		if presented == "" && len(c.Body()) > 0 {
			var body keyedBody
			if err := sonic.Unmarshal(c.Body(), &body); err == nil {
				presented = body.AuthKey
			}
		}

		expected := DailyKey(opts.Secret, now())
		if presented == "" || !hmac.Equal([]byte(presented), []byte(expected)) {
			return helper.JsonError(c, fiber.StatusUnauthorized, "Invalid admin key")
		}
		return c.Next()
	}
}
