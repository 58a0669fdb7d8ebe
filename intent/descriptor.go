package intent

import (
	"context"
	"errors"
)

// CompleteWithoutConfirming is the sentinel a merchant confirm handler may
// return instead of a client secret when its server already processed the
// payment off-band. The engine then completes immediately without retrieving
// or confirming the intent.
const CompleteWithoutConfirming = "COMPLETE_WITHOUT_CONFIRMING_INTENT"

// ConfirmHandler is the merchant-supplied callback for deferred intents. It
// receives the created payment method id and whether the customer opted to
// save it, and returns the client secret of the intent its server created.
// Its duration is unbounded; the engine never times it out.
type ConfirmHandler func(ctx context.Context, paymentMethodID string, shouldSave bool) (string, error)

// ConfirmTokenHandler is the confirmation-token flavour of ConfirmHandler.
// It receives a single-use confirmation token id instead of raw payment
// method details.
type ConfirmTokenHandler func(ctx context.Context, confirmationTokenID string) (string, error)

// Descriptor describes what is being confirmed. Exactly one of the concrete
// types below is supplied per checkout attempt.
type Descriptor interface {
	isDescriptor()
}

// DirectPayment describes an already-created payment intent confirmed
// directly by the client.
type DirectPayment struct {
	ID               string
	ClientSecret     string
	Amount           int64
	Currency         string
	CaptureMethod    CaptureMethod
	SetupFutureUsage SetupFutureUsage
	Status           Status
}

func (DirectPayment) isDescriptor() {}

// DirectSetup describes an already-created setup intent confirmed directly
// by the client.
type DirectSetup struct {
	ID           string
	ClientSecret string
	Usage        SetupFutureUsage
	Status       Status
}

func (DirectSetup) isDescriptor() {}

// Deferred describes an intent the merchant server creates (and possibly
// confirms) only after the customer has committed to paying. Exactly one of
// Confirm and ConfirmWithToken must be set.
type Deferred struct {
	Mode             DeferredMode
	Confirm          ConfirmHandler
	ConfirmWithToken ConfirmTokenHandler

	// RequireCVCRecollection forces saved-card selections to carry a freshly
	// collected CVC.
	RequireCVCRecollection bool

	// ServerSideConfirmation marks descriptors whose merchant server confirms
	// the intent itself; the client then only resolves next actions.
	ServerSideConfirmation bool
}

func (Deferred) isDescriptor() {}

// Validate checks the structural invariants of a deferred descriptor.
func (d Deferred) Validate() error {
	if d.Mode == nil {
		return errors.New("intent: deferred descriptor requires a mode")
	}
	if d.Confirm == nil && d.ConfirmWithToken == nil {
		return errors.New("intent: deferred descriptor requires a confirm handler")
	}
	if d.Confirm != nil && d.ConfirmWithToken != nil {
		return errors.New("intent: deferred descriptor must supply exactly one confirm handler")
	}
	return nil
}

// DeferredMode is the payment-or-setup mode of a deferred descriptor.
type DeferredMode interface {
	isMode()
}

// MethodOptions carries per-payment-method-type overrides for a deferred
// payment mode.
type MethodOptions struct {
	SetupFutureUsage SetupFutureUsage
}

// PaymentMode configures a deferred payment intent.
type PaymentMode struct {
	Amount           int64
	Currency         string
	SetupFutureUsage SetupFutureUsage
	CaptureMethod    CaptureMethod
	MethodOptions    map[PaymentMethodType]MethodOptions
}

func (PaymentMode) isMode() {}

// SetupMode configures a deferred setup intent.
type SetupMode struct {
	Currency         string
	SetupFutureUsage SetupFutureUsage
}

func (SetupMode) isMode() {}
