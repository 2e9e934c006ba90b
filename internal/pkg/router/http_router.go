package router

import (
	"github.com/FelixBruckner/StackPay/app/controllers"
	"github.com/FelixBruckner/StackPay/internal/pkg/middleware"
	"github.com/FelixBruckner/StackPay/internal/pkg/session"
	"github.com/gofiber/fiber/v2"
)

// HttpRouter wires the payment HTTP surface. The webhook route stays outside
// the auth middleware chain: the gateway signature is its authentication.
type HttpRouter struct {
	payments *controllers.PaymentController
}

func NewHttpRouter(payments *controllers.PaymentController) *HttpRouter {
	return &HttpRouter{payments: payments}
}

func (h *HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	h.registerPaymentRoutes(app)
}

func (h *HttpRouter) registerPaymentRoutes(app *fiber.App) {
	pay := app.Group("/payment")

	// Gateway webhooks (no session auth, signature-verified in controller)
	pay.Post("/webhook", h.payments.HandlePaymentWebhook)

	// Authenticated caller surface
	pay.Post("/create-checkout-session", middleware.RequireAuth, h.payments.HandleCreateCheckoutSession)
	pay.Get("/portal", middleware.RequireAuth, h.payments.HandleBillingPortal)
	pay.Get("/subscription", middleware.RequireAuth, h.payments.HandleGetSubscription)
	pay.Post("/cancel-subscription", middleware.RequireAuth, h.payments.HandleCancelSubscription)

	// Operator surface
	admin := app.Group("/admin/payment", middleware.RequireAdmin)
	admin.Post("/refund", h.payments.HandleRefund)
	admin.Get("/providers", h.payments.HandleProviderComparison)
	admin.Post("/provider", h.payments.HandleSwitchProvider)
}
