// Package intent defines the immutable descriptions of what is being
// confirmed (payment intents, setup intents and merchant-deferred intents)
// together with the customer's payment method selection. These types are
// read-only inputs to the confirmation engine; the engine never mutates them.
package intent

import "strings"

// SetupFutureUsage declares whether the payment method should be reusable
// after this confirmation.
type SetupFutureUsage string

const (
	SetupFutureUsageNone       SetupFutureUsage = ""
	SetupFutureUsageOnSession  SetupFutureUsage = "on_session"
	SetupFutureUsageOffSession SetupFutureUsage = "off_session"
)

// Normalized maps the literal "none" onto the absent value so that
// configured and retrieved values compare equal.
func (s SetupFutureUsage) Normalized() SetupFutureUsage {
	if strings.EqualFold(string(s), "none") {
		return SetupFutureUsageNone
	}
	return s
}

// CaptureMethod controls when a payment intent captures funds.
type CaptureMethod string

const (
	CaptureMethodAutomatic CaptureMethod = "automatic"
	CaptureMethodManual    CaptureMethod = "manual"
)

// Normalized treats the absent value as automatic capture.
func (c CaptureMethod) Normalized() CaptureMethod {
	if c == "" {
		return CaptureMethodAutomatic
	}
	return c
}

// Status is the lifecycle status reported by the payments API for a payment
// or setup intent.
type Status string

const (
	StatusRequiresPaymentMethod Status = "requires_payment_method"
	StatusRequiresConfirmation  Status = "requires_confirmation"
	StatusRequiresAction        Status = "requires_action"
	StatusProcessing            Status = "processing"
	StatusRequiresCapture       Status = "requires_capture"
	StatusSucceeded             Status = "succeeded"
	StatusCanceled              Status = "canceled"
)

// PastConfirmation reports whether the intent has already been submitted for
// confirmation, i.e. a merchant server confirmed it before the client saw it.
func (s Status) PastConfirmation() bool {
	switch s {
	case StatusRequiresAction, StatusProcessing, StatusRequiresCapture, StatusSucceeded:
		return true
	default:
		return false
	}
}

// PaymentMethodType identifies a payment method family.
type PaymentMethodType string

const (
	MethodCard          PaymentMethodType = "card"
	MethodLink          PaymentMethodType = "link"
	MethodUSBankAccount PaymentMethodType = "us_bank_account"
	MethodSEPADebit     PaymentMethodType = "sepa_debit"
	MethodCashApp       PaymentMethodType = "cashapp"
	MethodAmazonPay     PaymentMethodType = "amazon_pay"
	MethodRevolutPay    PaymentMethodType = "revolut_pay"
	MethodPayPal        PaymentMethodType = "paypal"
	MethodKlarna        PaymentMethodType = "klarna"
	MethodAffirm        PaymentMethodType = "affirm"
	MethodAfterpay      PaymentMethodType = "afterpay_clearpay"
)

// ChallengeEligible reports whether security challenge tokens should be
// attached when confirming with this method type.
func (t PaymentMethodType) ChallengeEligible() bool {
	return t == MethodCard || t == MethodLink
}

// NextAction describes an additional customer-facing authentication step the
// payments API requires before the intent can settle.
type NextAction struct {
	Type        string
	RedirectURL string
}

// CardDetails is the subset of card information returned on a created
// payment method.
type CardDetails struct {
	Brand string
	Last4 string
}

// PaymentMethod is a payment method object as returned by the payments API.
type PaymentMethod struct {
	ID       string
	Type     PaymentMethodType
	Customer string
	Card     *CardDetails
}

// ConfirmationToken is an opaque single-use token wrapping payment method
// details plus confirmation-time options.
type ConfirmationToken struct {
	ID string
}

// PaymentIntent is the retrieved state of a payment intent.
type PaymentIntent struct {
	ID               string
	ClientSecret     string
	Status           Status
	Amount           int64
	Currency         string
	CaptureMethod    CaptureMethod
	SetupFutureUsage SetupFutureUsage
	PaymentMethodID  string
	NextAction       *NextAction
}

// SetupIntent is the retrieved state of a setup intent.
type SetupIntent struct {
	ID              string
	ClientSecret    string
	Status          Status
	Usage           SetupFutureUsage
	PaymentMethodID string
	NextAction      *NextAction
}
