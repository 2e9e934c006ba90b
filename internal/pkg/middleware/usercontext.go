package middleware

import (
	"github.com/FelixBruckner/StackPay/internal/pkg/session"
	"github.com/FelixBruckner/StackPay/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware resolves the caller's identity from the session
// store and attaches a UserContext to the request. Authentication itself
// (login, identity provider) lives outside this service; this middleware
// only reads what the auth layer stored in the shared session.
func UserContextMiddleware(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		c.Locals(usercontext.ContextKey, usercontext.UserContext{IsLoggedIn: false})
		return c.Next()
	}

	userID, _ := sess.Get(usercontext.KeyUserID).(string)
	if userID == "" {
		c.Locals(usercontext.ContextKey, usercontext.UserContext{IsLoggedIn: false})
		return c.Next()
	}

	email, _ := sess.Get(usercontext.KeyEmail).(string)
	isAdmin, _ := sess.Get(usercontext.KeyIsAdmin).(bool)

	c.Locals(usercontext.ContextKey, usercontext.UserContext{
		UserID:     userID,
		Email:      email,
		IsLoggedIn: true,
		IsAdmin:    isAdmin,
	})
	return c.Next()
}
