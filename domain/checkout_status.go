package domain

type CheckoutStatus string

const (
	CheckoutStatusInitiated        CheckoutStatus = "INITIATED"
	CheckoutStatusPaymentPending   CheckoutStatus = "PAYMENT_PENDING"
	CheckoutStatusPaymentCompleted CheckoutStatus = "PAYMENT_COMPLETED"
	CheckoutStatusCompleted        CheckoutStatus = "COMPLETED"
	CheckoutStatusFailed           CheckoutStatus = "FAILED"
)

// One-phase providers capture at sale time and jump straight from
// INITIATED to PAYMENT_COMPLETED.
var allowedTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusInitiated:        {CheckoutStatusPaymentPending, CheckoutStatusPaymentCompleted, CheckoutStatusFailed},
	CheckoutStatusPaymentPending:   {CheckoutStatusPaymentCompleted, CheckoutStatusFailed},
	CheckoutStatusPaymentCompleted: {CheckoutStatusCompleted, CheckoutStatusFailed},
}

// CanTransitionTo reports whether a checkout session may move from one
// status to another. Terminal statuses have no outgoing transitions.
func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}
