package payment

// NotificationKind names a side effect a lifecycle transition asks the
// caller to dispatch. Notifications fire at most once per unique event id;
// the dedupe store enforces that, not the state machine.
type NotificationKind string

const (
	NotifyNone              NotificationKind = ""
	NotifyCheckoutCompleted NotificationKind = "checkout_completed"
	NotifyPaymentSucceeded  NotificationKind = "payment_succeeded"
	NotifyPaymentFailed     NotificationKind = "payment_failed"
	NotifyCanceled          NotificationKind = "subscription_canceled"
)

// Transition is the outcome of applying one canonical event to a
// subscription's current status. The caller persists Status when Changed is
// set; the state machine itself never touches storage.
type Transition struct {
	Status  SubscriptionStatus
	Changed bool
	Notify  NotificationKind
}

// NextStatus computes the lifecycle transition for a canonical event.
//
// Canceled is terminal: once a subscription is canceled no event moves it
// out of that state, so replayed or late events are state no-ops. Payment
// events never transition state themselves; the gateway's own subscription
// update carries the authoritative status and payment events only trigger
// notifications.
func NextStatus(current SubscriptionStatus, ev *WebhookEvent) Transition {
	if current == "" {
		current = StatusIncomplete
	}
	if current == StatusCanceled {
		return Transition{Status: StatusCanceled}
	}

	switch ev.Type {
	case EventCheckoutCompleted:
		return Transition{
			Status:  StatusActive,
			Changed: current != StatusActive,
			Notify:  NotifyCheckoutCompleted,
		}
	case EventSubscriptionUpdated:
		next := ev.Status
		if next == "" {
			next = StatusIncomplete
		}
		return Transition{Status: next, Changed: next != current}
	case EventSubscriptionCanceled:
		return Transition{
			Status:  StatusCanceled,
			Changed: true,
			Notify:  NotifyCanceled,
		}
	case EventPaymentSucceeded:
		return Transition{Status: current, Notify: NotifyPaymentSucceeded}
	case EventPaymentFailed:
		return Transition{Status: current, Notify: NotifyPaymentFailed}
	default:
		// Unknown events are ignored for state purposes.
		return Transition{Status: current}
	}
}
