// Package mandate derives setup-future-usage and mandate requirements for a
// confirmation attempt. Everything here is pure: the result depends only on
// the payment method type, the intent mode and whether the customer opted to
// save the method.
package mandate

import "github.com/noah-isme/payflow/intent"

// Resolution is the derived requirement for one attempt. It is computed
// fresh per attempt and never stored.
type Resolution struct {
	SetupFutureUsage intent.SetupFutureUsage
	MandateRequired  bool
}

// offSessionMandateTypes are redirect-style methods that need a mandate only
// when the effective setup-future-usage is off_session: delegated wallets,
// buy-now-pay-later and push bank debits.
var offSessionMandateTypes = map[intent.PaymentMethodType]bool{
	intent.MethodCashApp:       true,
	intent.MethodAmazonPay:     true,
	intent.MethodRevolutPay:    true,
	intent.MethodPayPal:        true,
	intent.MethodKlarna:        true,
	intent.MethodAffirm:        true,
	intent.MethodAfterpay:      true,
	intent.MethodUSBankAccount: true,
}

// setupMandateTypes always require a mandate in setup mode: a setup intent
// by definition intends future use.
var setupMandateTypes = map[intent.PaymentMethodType]bool{
	intent.MethodCashApp:       true,
	intent.MethodAmazonPay:     true,
	intent.MethodRevolutPay:    true,
	intent.MethodPayPal:        true,
	intent.MethodUSBankAccount: true,
}

// Resolve computes the effective setup-future-usage and mandate requirement
// for a deferred intent mode.
func Resolve(pmType intent.PaymentMethodType, mode intent.DeferredMode, userOptedToSave bool) Resolution {
	switch m := mode.(type) {
	case intent.PaymentMode:
		sfu := effectiveSFU(m, pmType, userOptedToSave)
		return Resolution{
			SetupFutureUsage: sfu,
			MandateRequired:  sfu == intent.SetupFutureUsageOffSession && offSessionMandateTypes[pmType],
		}
	case intent.SetupMode:
		sfu := m.SetupFutureUsage.Normalized()
		if sfu == intent.SetupFutureUsageNone {
			sfu = intent.SetupFutureUsageOffSession
		}
		return Resolution{
			SetupFutureUsage: sfu,
			MandateRequired:  setupMandateTypes[pmType],
		}
	default:
		return Resolution{}
	}
}

// ResolveDirect reads the requirement off an already-created intent instead
// of computing it. setupIntent selects setup semantics, where the mandate
// requirement ignores setup-future-usage.
func ResolveDirect(pmType intent.PaymentMethodType, sfu intent.SetupFutureUsage, setupIntent bool) Resolution {
	sfu = sfu.Normalized()
	if setupIntent {
		if sfu == intent.SetupFutureUsageNone {
			sfu = intent.SetupFutureUsageOffSession
		}
		return Resolution{SetupFutureUsage: sfu, MandateRequired: setupMandateTypes[pmType]}
	}
	return Resolution{
		SetupFutureUsage: sfu,
		MandateRequired:  sfu == intent.SetupFutureUsageOffSession && offSessionMandateTypes[pmType],
	}
}

// effectiveSFU applies precedence for payment mode: an explicit opt-in to
// save always wins, then the per-method-type override, then the top level
// value.
func effectiveSFU(m intent.PaymentMode, pmType intent.PaymentMethodType, userOptedToSave bool) intent.SetupFutureUsage {
	if userOptedToSave {
		return intent.SetupFutureUsageOffSession
	}
	// A method-level value takes precedence even when it is an explicit
	// "none", which disables the top-level value for that method type.
	if opts, ok := m.MethodOptions[pmType]; ok && opts.SetupFutureUsage != "" {
		return opts.SetupFutureUsage.Normalized()
	}
	return m.SetupFutureUsage.Normalized()
}
