package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/FelixBruckner/StackPay/internal/pkg/metrics/counter"
	"github.com/FelixBruckner/StackPay/internal/pkg/payment"
	"github.com/FelixBruckner/StackPay/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const gatewayCallTimeout = 20 * time.Second

// PaymentController owns the payment HTTP surface. The registry and service
// are injected so tests can run the handlers against fakes.
type PaymentController struct {
	registry *payment.Registry
	service  *payment.Service
	repo     payment.Repository
}

func NewPaymentController(registry *payment.Registry, service *payment.Service, repo payment.Repository) *PaymentController {
	return &PaymentController{registry: registry, service: service, repo: repo}
}

type createCheckoutSessionRequest struct {
	PlanID        string `json:"planId"`
	BillingPeriod string `json:"billingPeriod"`
	PriceAmount   int64  `json:"priceAmount"`
	Currency      string `json:"currency"`
}

// HandleCreateCheckoutSession creates a gateway-hosted checkout for the
// authenticated caller and returns the redirect URL.
func (pc *PaymentController) HandleCreateCheckoutSession(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var body createCheckoutSessionRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	provider, err := pc.registry.Provider()
	if err != nil {
		log.Errorf("[Payment] provider unavailable: %v", err)
		return pc.errorResponse(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), gatewayCallTimeout)
	defer cancel()

	result, err := provider.CreateCheckoutSession(ctx, payment.CheckoutSessionRequest{
		PlanID:        payment.PlanID(body.PlanID),
		BillingPeriod: payment.BillingPeriod(body.BillingPeriod),
		UserID:        userCtx.UserID,
		UserEmail:     userCtx.Email,
		PriceAmount:   body.PriceAmount,
		Currency:      body.Currency,
	})
	if err != nil {
		if payment.IsKind(err, payment.KindConfiguration) {
			// Operator mistake, not user input: keep it loud in the logs.
			log.Errorf("[Payment] checkout misconfiguration: %v", err)
		}
		return pc.errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"sessionId": result.SessionID,
		"url":       result.CheckoutURL,
		"provider":  provider.Name(),
	})
}

// HandlePaymentWebhook receives gateway webhooks. The signature is the
// authentication; there is no session on this route. Duplicates are
// acknowledged with 200 so the gateway stops retrying; transient storage
// failures answer 5xx so it retries.
func (pc *PaymentController) HandlePaymentWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := firstHeaderValue(c, "Stripe-Signature", "webhook-signature", "X-Webhook-Signature")
	if signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing_signature"})
	}

	provider, err := pc.registry.Provider()
	if err != nil {
		log.Errorf("[Payment] provider unavailable: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "provider_unavailable"})
	}

	event, err := provider.VerifyWebhook(rawBody, signature)
	if err != nil {
		if payment.IsKind(err, payment.KindSignature) {
			// Potential forgery attempt; the payload is discarded unparsed.
			log.Warnf("[Payment] webhook signature verification failed for %s: %v", provider.Name(), err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
		}
		log.Errorf("[Payment] webhook normalization failed for %s: %v", provider.Name(), err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), gatewayCallTimeout)
	defer cancel()

	result, err := pc.service.ProcessWebhookEvent(ctx, provider.Name(), event)
	if err != nil {
		log.Errorf("[Payment] webhook processing failed for %s event %s: %v", provider.Name(), event.EventID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}
	if result.Duplicate {
		_ = counter.AddDuplicateEvent(provider.Name())
		return c.JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	_ = counter.AddWebhookEvent(provider.Name(), event.ProviderEvent)
	return c.JSON(fiber.Map{"ok": true, "state_changed": result.StateChanged})
}

// HandleBillingPortal returns a self-service portal URL for the caller.
func (pc *PaymentController) HandleBillingPortal(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	provider, err := pc.registry.Provider()
	if err != nil {
		return pc.errorResponse(c, err)
	}

	profile, err := pc.repo.GetBillingProfile(userCtx.UserID, provider.Name())
	if err != nil {
		if payment.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no_billing_profile"})
		}
		log.Errorf("[Payment] billing profile lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "profile_lookup_failed"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), gatewayCallTimeout)
	defer cancel()

	returnURL := strings.TrimSpace(c.Query("return_url"))
	url, err := provider.CreatePortalSession(ctx, profile.ProviderCustomerID, returnURL)
	if err != nil {
		return pc.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

// HandleGetSubscription returns the caller's subscription, refreshed from
// the gateway so scheduled cancellations are visible immediately.
func (pc *PaymentController) HandleGetSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	provider, err := pc.registry.Provider()
	if err != nil {
		return pc.errorResponse(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), gatewayCallTimeout)
	defer cancel()

	sub, err := pc.service.RefreshSubscription(ctx, provider, userCtx.UserID)
	if err != nil {
		return pc.errorResponse(c, err)
	}
	return c.JSON(sub)
}

type cancelSubscriptionRequest struct {
	Immediately bool `json:"immediately"`
}

// HandleCancelSubscription cancels the caller's subscription, at period end
// by default.
func (pc *PaymentController) HandleCancelSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var body cancelSubscriptionRequest
	if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	sub, err := pc.repo.GetSubscriptionByUser(userCtx.UserID)
	if err != nil {
		if payment.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no_subscription"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "subscription_lookup_failed"})
	}

	provider, err := pc.registry.Provider()
	if err != nil {
		return pc.errorResponse(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), gatewayCallTimeout)
	defer cancel()

	if err := provider.CancelSubscription(ctx, sub.ProviderSubscriptionID, body.Immediately); err != nil {
		return pc.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "immediately": body.Immediately})
}

type refundRequest struct {
	PaymentID string `json:"paymentId"`
	Amount    *int64 `json:"amount"`
}

// HandleRefund issues a refund against a gateway payment. Admin only.
func (pc *PaymentController) HandleRefund(c *fiber.Ctx) error {
	var body refundRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}
	if strings.TrimSpace(body.PaymentID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "payment_id_required"})
	}

	provider, err := pc.registry.Provider()
	if err != nil {
		return pc.errorResponse(c, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), gatewayCallTimeout)
	defer cancel()

	refund, err := provider.RefundPayment(ctx, body.PaymentID, body.Amount)
	if err != nil {
		return pc.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"refundId": refund.RefundID, "status": refund.Status})
}

// HandleProviderComparison exposes the static gateway capability and fee
// tables for operator decisions. Admin only.
func (pc *PaymentController) HandleProviderComparison(c *fiber.Ctx) error {
	response := fiber.Map{
		"active":   pc.registry.ProviderType(),
		"features": payment.Features(),
		"pricing":  payment.Pricing(),
	}
	if webhooks, duplicates, notifications, err := counter.Snapshot(); err == nil {
		response["metrics"] = fiber.Map{
			"webhooks":      webhooks,
			"duplicates":    duplicates,
			"notifications": notifications,
		}
	}
	return c.JSON(response)
}

type switchProviderRequest struct {
	Provider string `json:"provider"`
}

// HandleSwitchProvider replaces the active gateway adapter. Admin only;
// meant for operational failover, not per-request routing.
func (pc *PaymentController) HandleSwitchProvider(c *fiber.Ctx) error {
	var body switchProviderRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	target := payment.ProviderType(strings.ToLower(strings.TrimSpace(body.Provider)))
	if err := pc.registry.SwitchProvider(target); err != nil {
		log.Errorf("[Payment] provider switch to %q failed: %v", target, err)
		return pc.errorResponse(c, err)
	}
	log.Infof("[Payment] active provider switched to %q", target)
	return c.JSON(fiber.Map{"ok": true, "provider": target})
}

func (pc *PaymentController) errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(payment.HTTPStatus(err)).JSON(fiber.Map{
		"error":   string(payment.KindOf(err)),
		"message": err.Error(),
	})
}

func firstHeaderValue(c *fiber.Ctx, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(c.Get(k)); v != "" {
			return v
		}
	}
	return ""
}
