package intent

// Selection describes how the customer chose to pay for one confirmation
// attempt.
type Selection interface {
	isSelection()
}

// WalletPay routes through the platform wallet flow.
type WalletPay struct{}

func (WalletPay) isSelection() {}

// SavedMethod reuses a payment method previously attached to the customer.
// CVC is only set when the surface recollected it for this attempt.
type SavedMethod struct {
	ID   string
	Type PaymentMethodType
	CVC  string
}

func (SavedMethod) isSelection() {}

// NewMethod carries freshly collected payment method details.
type NewMethod struct {
	Params     MethodParams
	ShouldSave bool
}

func (NewMethod) isSelection() {}

// DelegatedMethod hands the confirmation to a merchant-registered handler;
// the engine never touches the payments transport for these.
type DelegatedMethod struct {
	Type    PaymentMethodType
	Billing BillingDetails
}

func (DelegatedMethod) isSelection() {}

// LinkVariant selects which Link sub-flow resolves the concrete method.
type LinkVariant string

const (
	LinkVariantWallet LinkVariant = "wallet"
	LinkVariantBank   LinkVariant = "bank"
)

// LinkMethod defers to the Link sub-flow, which resolves into a NewMethod or
// SavedMethod selection that re-enters dispatch.
type LinkMethod struct {
	Variant LinkVariant
}

func (LinkMethod) isSelection() {}

// BillingDetails is customer billing information attached to new payment
// methods and delegated handlers.
type BillingDetails struct {
	Name    string `validate:"omitempty,max=255"`
	Email   string `validate:"omitempty,email"`
	Phone   string `validate:"omitempty,max=32"`
	Country string `validate:"omitempty,iso3166_1_alpha2"`
	Line1   string
	Line2   string
	City    string
	State   string
	Postal  string
}

// CardParams holds raw card entry for payment method creation.
type CardParams struct {
	Number   string `validate:"required,numeric,min=12,max=19"`
	ExpMonth int    `validate:"required,min=1,max=12"`
	ExpYear  int    `validate:"required,min=2000"`
	CVC      string `validate:"omitempty,numeric,min=3,max=4"`
}

// MethodParams is the payment method creation payload for a NewMethod
// selection. RadarSession is an opaque fraud-signal handle collected by the
// surface and forwarded verbatim.
type MethodParams struct {
	Type         PaymentMethodType `validate:"required"`
	Card         *CardParams       `validate:"omitempty"`
	Billing      BillingDetails
	RadarSession string
}
