package types

// WebhookEventType enumerates the processor webhook events the lifecycle
// engine reacts to. Everything else is acknowledged and ignored.
type WebhookEventType string

const (
	WebhookEventTypeInvoicePaymentSucceeded WebhookEventType = "invoice.payment_succeeded"
	WebhookEventTypeInvoicePaymentFailed    WebhookEventType = "invoice.payment_failed"
	WebhookEventTypeSubscriptionUpdated     WebhookEventType = "customer.subscription.updated"
	WebhookEventTypeSubscriptionDeleted     WebhookEventType = "customer.subscription.deleted"
	WebhookEventTypeDisputeClosed           WebhookEventType = "charge.dispute.closed"
	WebhookEventTypeChargeRefunded          WebhookEventType = "charge.refunded"
	WebhookEventTypePaymentIntentCapturable WebhookEventType = "payment_intent.amount_capturable_updated"
)
