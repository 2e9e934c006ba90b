package notification

import (
	"fmt"

	"github.com/FelixBruckner/StackPay/internal/pkg/mail"
	"github.com/FelixBruckner/StackPay/internal/pkg/metrics/counter"
	"github.com/FelixBruckner/StackPay/internal/pkg/payment"
	"github.com/gofiber/fiber/v2/log"
)

// MailNotifier dispatches payment lifecycle notifications as transactional
// emails. The payment service calls it off the webhook response path, so a
// slow SMTP server never delays the webhook acknowledgement.
type MailNotifier struct{}

func NewMailNotifier() *MailNotifier {
	return &MailNotifier{}
}

func (MailNotifier) Notify(n payment.Notification) {
	if n.UserEmail == "" {
		log.Infof("[Payment] skipping %s notification, no email for user %q", n.Kind, n.UserID)
		return
	}

	var subject, body string
	switch n.Kind {
	case payment.NotifyCheckoutCompleted:
		subject = "Your subscription is active"
		body = "<p>Thanks for subscribing! Your subscription is now active.</p>"
	case payment.NotifyPaymentSucceeded:
		subject = "Payment received"
		body = "<p>We received your payment. No action is needed.</p>"
	case payment.NotifyPaymentFailed:
		subject = "Payment failed"
		body = "<p>Your latest payment failed. Please update your payment method to keep your subscription active.</p>"
	case payment.NotifyCanceled:
		subject = "Subscription canceled"
		body = fmt.Sprintf("<p>Your subscription %s has been canceled.</p>", n.SubscriptionID)
	default:
		return
	}

	if err := mail.SendMail(n.UserEmail, subject, body); err != nil {
		log.Errorf("[Payment] failed to send %s notification to %s: %v", n.Kind, n.UserEmail, err)
		return
	}
	_ = counter.AddNotification(string(n.Kind))
}
