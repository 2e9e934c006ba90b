package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	ContextKey  = "USER_CONTEXT"
	KeyUserID   = "user_id"
	KeyEmail    = "user_email"
	KeyIsAdmin  = "is_admin"
	KeyLoggedIn = "logged_in"
)
