package confirm

import (
	"fmt"
	"strings"

	"github.com/noah-isme/payflow/intent"
)

// validatePaymentIntent compares the intent the merchant server produced
// against the locally held deferred configuration. Any mismatch is an
// integration error: the merchant server built a different intent than the
// client believes it is confirming.
func validatePaymentIntent(pi *intent.PaymentIntent, mode intent.PaymentMode, pm *intent.PaymentMethod) error {
	if pi == nil {
		return fmt.Errorf("merchant handler returned a client secret that resolved to no payment intent")
	}
	if !strings.EqualFold(pi.Currency, mode.Currency) {
		return fmt.Errorf("currency mismatch: intent %q vs configuration %q", pi.Currency, mode.Currency)
	}
	// Compared against the configured top-level value: the save opt-in and
	// per-method overrides only apply at client confirmation time, after
	// this retrieval.
	if got, want := pi.SetupFutureUsage.Normalized(), mode.SetupFutureUsage.Normalized(); got != want {
		return fmt.Errorf("setup_future_usage mismatch: intent %q vs configuration %q", got, want)
	}
	if got, want := pi.CaptureMethod.Normalized(), mode.CaptureMethod.Normalized(); got != want {
		return fmt.Errorf("capture_method mismatch: intent %q vs configuration %q", got, want)
	}
	return validateAttachedMethod(pi.PaymentMethodID, pm)
}

// validateSetupIntent is the setup-mode counterpart; capture method does not
// apply.
func validateSetupIntent(si *intent.SetupIntent, mode intent.SetupMode, pm *intent.PaymentMethod) error {
	if si == nil {
		return fmt.Errorf("merchant handler returned a client secret that resolved to no setup intent")
	}
	if configured := mode.SetupFutureUsage.Normalized(); configured != intent.SetupFutureUsageNone {
		if got := si.Usage.Normalized(); got != configured {
			return fmt.Errorf("setup_future_usage mismatch: intent %q vs configuration %q", got, configured)
		}
	}
	return validateAttachedMethod(si.PaymentMethodID, pm)
}

// validateAttachedMethod rejects intents whose attached payment method is
// not the one this client created: the merchant server substituted a
// different method, which is never a transient condition.
func validateAttachedMethod(attachedID string, pm *intent.PaymentMethod) error {
	if attachedID == "" || pm == nil || pm.ID == "" {
		return nil
	}
	if attachedID != pm.ID {
		return fmt.Errorf("payment method mismatch: intent holds %q but client created %q", attachedID, pm.ID)
	}
	return nil
}
