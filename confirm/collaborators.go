package confirm

import (
	"context"
	"time"

	"github.com/noah-isme/payflow/challenge"
	"github.com/noah-isme/payflow/intent"
)

// ChallengeData carries the security challenge results attached to the
// request that ultimately authorizes the charge.
type ChallengeData struct {
	CaptchaToken string
	Attestation  *challenge.Assertion
}

// MandateData records on-session customer acceptance of a mandate.
type MandateData struct {
	AcceptedAt time.Time
	Online     bool
}

// TokenParams is the payload for creating a confirmation token.
type TokenParams struct {
	MethodParams     *intent.MethodParams
	PaymentMethodID  string
	SetupFutureUsage intent.SetupFutureUsage
	Mandate          *MandateData
	Challenge        *ChallengeData
}

// PaymentConfirmParams is the payload for confirming a payment intent.
// Exactly one of PaymentMethodID, MethodParams and ConfirmationTokenID
// identifies the method.
type PaymentConfirmParams struct {
	ClientSecret        string
	PaymentMethodID     string
	MethodParams        *intent.MethodParams
	ConfirmationTokenID string
	SetupFutureUsage    intent.SetupFutureUsage
	Mandate             *MandateData
	CVC                 string
	Challenge           *ChallengeData
}

// SetupConfirmParams is the payload for confirming a setup intent.
type SetupConfirmParams struct {
	ClientSecret        string
	PaymentMethodID     string
	MethodParams        *intent.MethodParams
	ConfirmationTokenID string
	Mandate             *MandateData
	Challenge           *ChallengeData
}

// Transport abstracts the payments API. Calls are single-shot
// request/response; the engine applies no retry wrapper.
type Transport interface {
	CreatePaymentMethod(ctx context.Context, params intent.MethodParams) (*intent.PaymentMethod, error)
	CreateConfirmationToken(ctx context.Context, params TokenParams) (*intent.ConfirmationToken, error)
	ConfirmPaymentIntent(ctx context.Context, params PaymentConfirmParams) (*intent.PaymentIntent, error)
	ConfirmSetupIntent(ctx context.Context, params SetupConfirmParams) (*intent.SetupIntent, error)
	RetrievePaymentIntent(ctx context.Context, clientSecret string) (*intent.PaymentIntent, error)
	RetrieveSetupIntent(ctx context.Context, clientSecret string) (*intent.SetupIntent, error)
}

// AuthStatus is the result of an additional-authentication round trip.
type AuthStatus string

const (
	AuthSucceeded AuthStatus = "succeeded"
	AuthCanceled  AuthStatus = "canceled"
	AuthFailed    AuthStatus = "failed"
)

// Authenticator presents any required customer-facing authentication step
// (redirect, challenge) and resolves when it finishes or is dismissed.
type Authenticator interface {
	ResolvePaymentNextAction(ctx context.Context, pi *intent.PaymentIntent) (AuthStatus, error)
	ResolveSetupNextAction(ctx context.Context, si *intent.SetupIntent) (AuthStatus, error)
}

// WalletRequest describes what the platform wallet sheet should collect.
type WalletRequest struct {
	Amount    int64
	Currency  string
	SetupOnly bool
}

// WalletResult is the outcome of the platform wallet sheet.
type WalletResult struct {
	Canceled      bool
	PaymentMethod *intent.PaymentMethod
}

// WalletFlow presents the platform wallet sheet and returns the payment
// method it created, or a cancellation signal.
type WalletFlow interface {
	Present(ctx context.Context, req WalletRequest) (WalletResult, error)
}

// LinkResult is the outcome of the Link sub-flow.
type LinkResult struct {
	Canceled  bool
	Selection intent.Selection
}

// LinkFlow resolves a Link selection into a concrete NewMethod or
// SavedMethod selection that re-enters dispatch.
type LinkFlow interface {
	Resolve(ctx context.Context, variant intent.LinkVariant) (LinkResult, error)
}

// DelegatedHandler is a merchant-registered handler that confirms a
// delegated/external method entirely outside the payments transport.
type DelegatedHandler func(ctx context.Context, billing intent.BillingDetails) (Outcome, error)

// PreferenceStore records the customer's remembered default payment method.
type PreferenceStore interface {
	SetDefaultMethod(ctx context.Context, paymentMethodID string) error
}
