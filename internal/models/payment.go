package models

// CreateIntentRequest asks the gateway for a new payment intent. Amount is
// in the currency's smallest unit.
type CreateIntentRequest struct {
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Currency string `json:"currency,omitempty"`
}

// VerifyPaymentRequest checks the status of a previously created intent.
type VerifyPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

// ApplyTeacherRequest upgrades a student to a teacher after a successful
// plan payment, recording their work history alongside.
type ApplyTeacherRequest struct {
	PaymentIntentID string            `json:"payment_intent_id" validate:"required"`
	Experiences     []ExperienceInput `json:"experiences" validate:"required,min=1,dive"`
}
