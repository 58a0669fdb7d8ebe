package confirm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/payflow/confirm"
	"github.com/noah-isme/payflow/intent"
)

// Exercises the consistency validator through the deferred protocol: each
// mismatch between retrieved intent and local configuration must fail with
// an integration classification before any confirmation submission.
func TestConsistencyValidatorMismatches(t *testing.T) {
	base := func() *intent.PaymentIntent {
		return &intent.PaymentIntent{
			ID:              "pi_1",
			Status:          intent.StatusRequiresConfirmation,
			Currency:        "usd",
			CaptureMethod:   intent.CaptureMethodAutomatic,
			PaymentMethodID: "pm_1",
		}
	}

	cases := []struct {
		name   string
		mutate func(*intent.PaymentIntent)
	}{
		{"currency", func(pi *intent.PaymentIntent) { pi.Currency = "eur" }},
		{"setup_future_usage", func(pi *intent.PaymentIntent) { pi.SetupFutureUsage = intent.SetupFutureUsageOffSession }},
		{"capture_method", func(pi *intent.PaymentIntent) { pi.CaptureMethod = intent.CaptureMethodManual }},
		{"payment_method_substituted", func(pi *intent.PaymentIntent) { pi.PaymentMethodID = "pm_other" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pi := base()
			tc.mutate(pi)
			tr := &stubTransport{
				retrievePayment: func(string) (*intent.PaymentIntent, error) { return pi, nil },
			}
			e := newEngine(tr)

			desc := intent.Deferred{
				Mode:    intent.PaymentMode{Amount: 1000, Currency: "usd"},
				Confirm: func(context.Context, string, bool) (string, error) { return "cs", nil },
			}
			out := e.Confirm(context.Background(), desc, intent.SavedMethod{ID: "pm_1", Type: intent.MethodCard}, confirm.Capabilities{})
			require.Equal(t, confirm.StatusFailed, out.Status)
			require.True(t, confirm.IsIntegration(out.Err))
			require.Empty(t, tr.paymentConfirms)
		})
	}
}

// Equivalent configurations must pass: "none" equals absent, empty capture
// method equals automatic, case-insensitive currency.
func TestConsistencyValidatorTreatsEquivalentValuesAsEqual(t *testing.T) {
	tr := &stubTransport{
		retrievePayment: func(string) (*intent.PaymentIntent, error) {
			return &intent.PaymentIntent{
				ID:               "pi_1",
				Status:           intent.StatusRequiresConfirmation,
				Currency:         "USD",
				CaptureMethod:    "",
				SetupFutureUsage: "none",
				PaymentMethodID:  "pm_1",
			}, nil
		},
	}
	e := newEngine(tr)

	desc := intent.Deferred{
		Mode: intent.PaymentMode{
			Amount:        1000,
			Currency:      "usd",
			CaptureMethod: intent.CaptureMethodAutomatic,
		},
		Confirm: func(context.Context, string, bool) (string, error) { return "cs", nil },
	}
	out := e.Confirm(context.Background(), desc, intent.SavedMethod{ID: "pm_1", Type: intent.MethodCard}, confirm.Capabilities{})
	require.Equal(t, confirm.StatusCompleted, out.Status)
}

// An intent with no attached payment method yet cannot be cross-checked and
// passes the identity check.
func TestConsistencyValidatorAllowsUnattachedMethod(t *testing.T) {
	tr := &stubTransport{
		retrievePayment: func(string) (*intent.PaymentIntent, error) {
			return &intent.PaymentIntent{ID: "pi_1", Status: intent.StatusRequiresConfirmation, Currency: "usd"}, nil
		},
	}
	e := newEngine(tr)

	desc := intent.Deferred{
		Mode:    intent.PaymentMode{Amount: 1000, Currency: "usd"},
		Confirm: func(context.Context, string, bool) (string, error) { return "cs", nil },
	}
	out := e.Confirm(context.Background(), desc, intent.SavedMethod{ID: "pm_1", Type: intent.MethodCard}, confirm.Capabilities{})
	require.Equal(t, confirm.StatusCompleted, out.Status)
}

func TestSetupConsistencyValidatorUsageMismatch(t *testing.T) {
	tr := &stubTransport{
		retrieveSetup: func(string) (*intent.SetupIntent, error) {
			return &intent.SetupIntent{ID: "seti_1", Status: intent.StatusRequiresConfirmation, Usage: intent.SetupFutureUsageOnSession, PaymentMethodID: "pm_1"}, nil
		},
	}
	e := newEngine(tr)

	desc := intent.Deferred{
		Mode:    intent.SetupMode{SetupFutureUsage: intent.SetupFutureUsageOffSession},
		Confirm: func(context.Context, string, bool) (string, error) { return "cs", nil },
	}
	out := e.Confirm(context.Background(), desc, intent.SavedMethod{ID: "pm_1", Type: intent.MethodCard}, confirm.Capabilities{})
	require.Equal(t, confirm.StatusFailed, out.Status)
	require.True(t, confirm.IsIntegration(out.Err))
	require.Empty(t, tr.setupConfirms)
}
