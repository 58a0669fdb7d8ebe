package mandate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/payflow/intent"
	"github.com/noah-isme/payflow/mandate"
)

var offSessionMandateSet = []intent.PaymentMethodType{
	intent.MethodCashApp,
	intent.MethodAmazonPay,
	intent.MethodRevolutPay,
	intent.MethodPayPal,
	intent.MethodKlarna,
	intent.MethodAffirm,
	intent.MethodAfterpay,
	intent.MethodUSBankAccount,
}

var setupAlwaysMandateSet = []intent.PaymentMethodType{
	intent.MethodCashApp,
	intent.MethodAmazonPay,
	intent.MethodRevolutPay,
	intent.MethodPayPal,
	intent.MethodUSBankAccount,
}

var noMandateSet = []intent.PaymentMethodType{
	intent.MethodCard,
	intent.MethodLink,
	intent.MethodSEPADebit,
}

func TestPaymentModeMandateRequiresOffSession(t *testing.T) {
	for _, pmType := range offSessionMandateSet {
		off := mandate.Resolve(pmType, intent.PaymentMode{SetupFutureUsage: intent.SetupFutureUsageOffSession}, false)
		require.True(t, off.MandateRequired, "type %q off_session", pmType)
		require.Equal(t, intent.SetupFutureUsageOffSession, off.SetupFutureUsage)

		on := mandate.Resolve(pmType, intent.PaymentMode{SetupFutureUsage: intent.SetupFutureUsageOnSession}, false)
		require.False(t, on.MandateRequired, "type %q on_session", pmType)

		none := mandate.Resolve(pmType, intent.PaymentMode{}, false)
		require.False(t, none.MandateRequired, "type %q no sfu", pmType)
	}
}

func TestPaymentModeNoMandateTypes(t *testing.T) {
	for _, pmType := range noMandateSet {
		res := mandate.Resolve(pmType, intent.PaymentMode{SetupFutureUsage: intent.SetupFutureUsageOffSession}, false)
		require.False(t, res.MandateRequired, "type %q", pmType)
	}
}

func TestSetupModeAlwaysRequiresMandate(t *testing.T) {
	for _, pmType := range setupAlwaysMandateSet {
		for _, sfu := range []intent.SetupFutureUsage{
			intent.SetupFutureUsageNone,
			intent.SetupFutureUsageOnSession,
			intent.SetupFutureUsageOffSession,
		} {
			res := mandate.Resolve(pmType, intent.SetupMode{SetupFutureUsage: sfu}, false)
			require.True(t, res.MandateRequired, "type %q sfu %q", pmType, sfu)
		}
	}
	res := mandate.Resolve(intent.MethodCard, intent.SetupMode{}, false)
	require.False(t, res.MandateRequired)
}

func TestSetupModeDefaultsToOffSession(t *testing.T) {
	res := mandate.Resolve(intent.MethodCard, intent.SetupMode{}, false)
	require.Equal(t, intent.SetupFutureUsageOffSession, res.SetupFutureUsage)

	res = mandate.Resolve(intent.MethodCard, intent.SetupMode{SetupFutureUsage: intent.SetupFutureUsageOnSession}, false)
	require.Equal(t, intent.SetupFutureUsageOnSession, res.SetupFutureUsage)
}

func TestExplicitSaveForcesOffSession(t *testing.T) {
	mode := intent.PaymentMode{SetupFutureUsage: intent.SetupFutureUsageOnSession}
	res := mandate.Resolve(intent.MethodCashApp, mode, true)
	require.Equal(t, intent.SetupFutureUsageOffSession, res.SetupFutureUsage)
	require.True(t, res.MandateRequired)

	res = mandate.Resolve(intent.MethodCard, mode, true)
	require.Equal(t, intent.SetupFutureUsageOffSession, res.SetupFutureUsage)
	require.False(t, res.MandateRequired)
}

func TestMethodOptionsOverrideTopLevel(t *testing.T) {
	mode := intent.PaymentMode{
		SetupFutureUsage: intent.SetupFutureUsageOffSession,
		MethodOptions: map[intent.PaymentMethodType]intent.MethodOptions{
			intent.MethodKlarna: {SetupFutureUsage: intent.SetupFutureUsageOnSession},
			intent.MethodPayPal: {SetupFutureUsage: "none"},
		},
	}

	klarna := mandate.Resolve(intent.MethodKlarna, mode, false)
	require.Equal(t, intent.SetupFutureUsageOnSession, klarna.SetupFutureUsage)
	require.False(t, klarna.MandateRequired)

	// An explicit method-level "none" disables the top-level value.
	paypal := mandate.Resolve(intent.MethodPayPal, mode, false)
	require.Equal(t, intent.SetupFutureUsageNone, paypal.SetupFutureUsage)
	require.False(t, paypal.MandateRequired)

	// Types without an override inherit the top level.
	cashapp := mandate.Resolve(intent.MethodCashApp, mode, false)
	require.Equal(t, intent.SetupFutureUsageOffSession, cashapp.SetupFutureUsage)
	require.True(t, cashapp.MandateRequired)
}

func TestSaveOptInBeatsMethodOptions(t *testing.T) {
	mode := intent.PaymentMode{
		MethodOptions: map[intent.PaymentMethodType]intent.MethodOptions{
			intent.MethodCard: {SetupFutureUsage: intent.SetupFutureUsageOnSession},
		},
	}
	res := mandate.Resolve(intent.MethodCard, mode, true)
	require.Equal(t, intent.SetupFutureUsageOffSession, res.SetupFutureUsage)
}

func TestResolveDirect(t *testing.T) {
	res := mandate.ResolveDirect(intent.MethodCashApp, intent.SetupFutureUsageOffSession, false)
	require.True(t, res.MandateRequired)

	res = mandate.ResolveDirect(intent.MethodCashApp, intent.SetupFutureUsageOnSession, false)
	require.False(t, res.MandateRequired)

	res = mandate.ResolveDirect(intent.MethodCashApp, intent.SetupFutureUsageNone, true)
	require.True(t, res.MandateRequired)
	require.Equal(t, intent.SetupFutureUsageOffSession, res.SetupFutureUsage)

	res = mandate.ResolveDirect(intent.MethodCard, intent.SetupFutureUsageNone, true)
	require.False(t, res.MandateRequired)
}
