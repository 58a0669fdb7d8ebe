package confirm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/payflow/intent"
	"github.com/noah-isme/payflow/mandate"
)

// confirmDeferred runs the deferred protocol: create (or reuse) the payment
// method, build the confirmation artifact, hand control to the merchant
// callback, retrieve and validate the resulting intent, then either resolve
// a pending next action (merchant server already confirmed) or confirm
// client-side. Every step failure exits through a failed outcome; there is
// no retry and no branch re-entry.
func (e *Engine) confirmDeferred(ctx context.Context, log zerolog.Logger, d intent.Deferred, sel intent.Selection) Outcome {
	// CreatePaymentMethod
	ident, err := resolveMethodIdentity(sel)
	if err != nil {
		return Failed(e.integrationErr(log, err.Error()))
	}
	pm := &intent.PaymentMethod{ID: ident.id, Type: ident.pmType}
	if ident.params != nil {
		created, err := e.Transport.CreatePaymentMethod(ctx, *ident.params)
		if err != nil {
			return Failed(wrapTransport("payment method creation", err))
		}
		pm = created
	}
	res := mandate.Resolve(pm.Type, d.Mode, ident.save)

	// BuildConfirmationArtifact. Challenge tokens are fetched before the
	// merchant callback; they stay valid across its unbounded duration.
	chal := e.challengeFor(ctx, log, pm.Type)

	var tokenID string
	var clientSecret string
	if d.ConfirmWithToken != nil {
		token, err := e.Transport.CreateConfirmationToken(ctx, TokenParams{
			PaymentMethodID:  pm.ID,
			SetupFutureUsage: res.SetupFutureUsage,
			Mandate:          mandateDataIfRequired(res),
			Challenge:        chal,
		})
		if err != nil {
			return Failed(wrapTransport("confirmation token creation", err))
		}
		tokenID = token.ID
		// InvokeMerchantCallback (token flavour)
		clientSecret, err = d.ConfirmWithToken(ctx, token.ID)
		if err != nil {
			return Failed(NewError(CodeTransport, genericMessage, fmt.Errorf("confirm: merchant confirm handler: %w", err)))
		}
	} else {
		clientSecret, err = d.Confirm(ctx, pm.ID, ident.save)
		if err != nil {
			return Failed(NewError(CodeTransport, genericMessage, fmt.Errorf("confirm: merchant confirm handler: %w", err)))
		}
	}

	// The merchant already processed payment off-band: short-circuit without
	// retrieving, validating or confirming anything. When a confirmation
	// token carried the assertion, the merchant's authorization consumed it.
	if clientSecret == intent.CompleteWithoutConfirming {
		log.Info().Msg("merchant completed without confirming intent")
		if tokenID != "" {
			e.completeChallenge(ctx, log, chal)
		}
		return e.finish(ctx, log, Completed(), pm, ident.save)
	}

	switch mode := d.Mode.(type) {
	case intent.PaymentMode:
		return e.deferredPayment(ctx, log, d, mode, pm, ident, res, chal, tokenID, clientSecret)
	case intent.SetupMode:
		return e.deferredSetup(ctx, log, d, mode, pm, ident, res, chal, tokenID, clientSecret)
	default:
		return Failed(e.integrationErr(log, fmt.Sprintf("unsupported deferred mode %T", d.Mode)))
	}
}

func (e *Engine) deferredPayment(ctx context.Context, log zerolog.Logger, d intent.Deferred, mode intent.PaymentMode, pm *intent.PaymentMethod, ident methodIdentity, res mandate.Resolution, chal *ChallengeData, tokenID, clientSecret string) Outcome {
	// RetrieveIntent
	pi, err := e.Transport.RetrievePaymentIntent(ctx, clientSecret)
	if err != nil {
		return Failed(wrapTransport("payment intent retrieval", err))
	}
	// Validate: mismatches are developer bugs, distinguishable from
	// transport failures.
	if err := validatePaymentIntent(pi, mode, pm); err != nil {
		return Failed(e.integrationErr(log, err.Error()))
	}

	// Branch on server-side confirmation.
	if d.ServerSideConfirmation && pi.Status.PastConfirmation() {
		return e.finish(ctx, log, e.settlePayment(ctx, log, pi), pm, ident.save)
	}

	// A confirmation token already wraps the method, options, mandate and
	// challenge; re-sending them alongside it would be ambiguous.
	params := PaymentConfirmParams{ClientSecret: clientSecret, ConfirmationTokenID: tokenID}
	if tokenID == "" {
		params.PaymentMethodID = pm.ID
		params.SetupFutureUsage = res.SetupFutureUsage
		params.Mandate = mandateDataIfRequired(res)
		params.CVC = ident.cvc
		params.Challenge = chal
	}
	confirmed, err := e.Transport.ConfirmPaymentIntent(ctx, params)
	if err != nil {
		return Failed(wrapTransport("payment intent confirmation", err))
	}
	e.completeChallenge(ctx, log, chal)
	return e.finish(ctx, log, e.settlePayment(ctx, log, confirmed), pm, ident.save)
}

func (e *Engine) deferredSetup(ctx context.Context, log zerolog.Logger, d intent.Deferred, mode intent.SetupMode, pm *intent.PaymentMethod, ident methodIdentity, res mandate.Resolution, chal *ChallengeData, tokenID, clientSecret string) Outcome {
	si, err := e.Transport.RetrieveSetupIntent(ctx, clientSecret)
	if err != nil {
		return Failed(wrapTransport("setup intent retrieval", err))
	}
	if err := validateSetupIntent(si, mode, pm); err != nil {
		return Failed(e.integrationErr(log, err.Error()))
	}

	if d.ServerSideConfirmation && si.Status.PastConfirmation() {
		return e.finish(ctx, log, e.settleSetup(ctx, log, si), pm, ident.save)
	}

	params := SetupConfirmParams{ClientSecret: clientSecret, ConfirmationTokenID: tokenID}
	if tokenID == "" {
		params.PaymentMethodID = pm.ID
		params.Mandate = mandateDataIfRequired(res)
		params.Challenge = chal
	}
	confirmed, err := e.Transport.ConfirmSetupIntent(ctx, params)
	if err != nil {
		return Failed(wrapTransport("setup intent confirmation", err))
	}
	e.completeChallenge(ctx, log, chal)
	return e.finish(ctx, log, e.settleSetup(ctx, log, confirmed), pm, ident.save)
}
