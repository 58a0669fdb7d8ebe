package confirm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/payflow/intent"
	"github.com/noah-isme/payflow/mandate"
	"github.com/noah-isme/payflow/obs"
)

// methodIdentity is the resolved payment method side of a confirmation
// request: exactly one of id and params is set.
type methodIdentity struct {
	id     string
	params *intent.MethodParams
	pmType intent.PaymentMethodType
	cvc    string
	save   bool
}

func resolveMethodIdentity(sel intent.Selection) (methodIdentity, error) {
	switch s := sel.(type) {
	case intent.SavedMethod:
		return methodIdentity{id: s.ID, pmType: s.Type, cvc: s.CVC}, nil
	case intent.NewMethod:
		params := s.Params
		return methodIdentity{params: &params, pmType: s.Params.Type, save: s.ShouldSave}, nil
	default:
		return methodIdentity{}, fmt.Errorf("confirm: selection %T cannot be confirmed directly", sel)
	}
}

// methodPayload is how the method identity travels on the wire: raw id,
// legacy params, or a freshly minted confirmation token.
type methodPayload struct {
	id      string
	params  *intent.MethodParams
	tokenID string
}

func (e *Engine) buildMethodPayload(ctx context.Context, ident methodIdentity, res mandate.Resolution, chal *ChallengeData, caps Capabilities) (methodPayload, error) {
	if !caps.ConfirmationTokens {
		return methodPayload{id: ident.id, params: ident.params}, nil
	}
	token, err := e.Transport.CreateConfirmationToken(ctx, TokenParams{
		MethodParams:     ident.params,
		PaymentMethodID:  ident.id,
		SetupFutureUsage: res.SetupFutureUsage,
		Mandate:          mandateDataIfRequired(res),
		Challenge:        chal,
	})
	if err != nil {
		return methodPayload{}, wrapTransport("confirmation token creation", err)
	}
	return methodPayload{tokenID: token.ID}, nil
}

// confirmDirect confirms an already-created payment or setup intent:
// exactly one confirmation call, plus zero or one additional-authentication
// round trip. No retries; a failed confirmation is surfaced as is.
func (e *Engine) confirmDirect(ctx context.Context, log zerolog.Logger, desc intent.Descriptor, sel intent.Selection, caps Capabilities) Outcome {
	ident, err := resolveMethodIdentity(sel)
	if err != nil {
		return Failed(e.integrationErr(log, err.Error()))
	}
	chal := e.challengeFor(ctx, log, ident.pmType)

	switch d := desc.(type) {
	case intent.DirectPayment:
		res := mandate.ResolveDirect(ident.pmType, d.SetupFutureUsage, false)
		payload, err := e.buildMethodPayload(ctx, ident, res, chal, caps)
		if err != nil {
			return Failed(err)
		}
		// Options, mandate and challenge ride on the confirmation token when
		// one was minted.
		params := PaymentConfirmParams{ClientSecret: d.ClientSecret, ConfirmationTokenID: payload.tokenID}
		if payload.tokenID == "" {
			params.PaymentMethodID = payload.id
			params.MethodParams = payload.params
			params.SetupFutureUsage = res.SetupFutureUsage
			params.Mandate = mandateDataIfRequired(res)
			params.CVC = ident.cvc
			params.Challenge = chal
		}
		pi, err := e.Transport.ConfirmPaymentIntent(ctx, params)
		if err != nil {
			return Failed(wrapTransport("payment intent confirmation", err))
		}
		e.completeChallenge(ctx, log, chal)
		return e.settlePayment(ctx, log, pi)

	case intent.DirectSetup:
		res := mandate.ResolveDirect(ident.pmType, d.Usage, true)
		payload, err := e.buildMethodPayload(ctx, ident, res, chal, caps)
		if err != nil {
			return Failed(err)
		}
		params := SetupConfirmParams{ClientSecret: d.ClientSecret, ConfirmationTokenID: payload.tokenID}
		if payload.tokenID == "" {
			params.PaymentMethodID = payload.id
			params.MethodParams = payload.params
			params.Mandate = mandateDataIfRequired(res)
			params.Challenge = chal
		}
		si, err := e.Transport.ConfirmSetupIntent(ctx, params)
		if err != nil {
			return Failed(wrapTransport("setup intent confirmation", err))
		}
		e.completeChallenge(ctx, log, chal)
		return e.settleSetup(ctx, log, si)

	default:
		return Failed(e.integrationErr(log, fmt.Sprintf("descriptor %T is not a direct intent", desc)))
	}
}

// settlePayment maps the post-confirmation intent status to a terminal
// outcome, resolving any pending next action through the authenticator.
func (e *Engine) settlePayment(ctx context.Context, log zerolog.Logger, pi *intent.PaymentIntent) Outcome {
	if pi == nil {
		return Failed(e.integrationErr(log, "transport returned no payment intent"))
	}
	if pi.Status == intent.StatusRequiresAction && pi.NextAction != nil {
		return e.resolveAuth(log, func() (AuthStatus, error) {
			return e.Auth.ResolvePaymentNextAction(ctx, pi)
		})
	}
	return outcomeForStatus(pi.Status)
}

func (e *Engine) settleSetup(ctx context.Context, log zerolog.Logger, si *intent.SetupIntent) Outcome {
	if si == nil {
		return Failed(e.integrationErr(log, "transport returned no setup intent"))
	}
	if si.Status == intent.StatusRequiresAction && si.NextAction != nil {
		return e.resolveAuth(log, func() (AuthStatus, error) {
			return e.Auth.ResolveSetupNextAction(ctx, si)
		})
	}
	return outcomeForStatus(si.Status)
}

func (e *Engine) resolveAuth(log zerolog.Logger, resolve func() (AuthStatus, error)) Outcome {
	if e.Auth == nil {
		return Failed(e.integrationErr(log, "authentication context not configured but a next action is pending"))
	}
	status, err := resolve()
	if obs.NextActionTotal != nil {
		obs.NextActionTotal.WithLabelValues(string(status)).Inc()
	}
	if err != nil {
		return Failed(NewError(CodeAuthentication, genericMessage, fmt.Errorf("confirm: next action resolution: %w", err)))
	}
	switch status {
	case AuthSucceeded:
		return Completed()
	case AuthCanceled:
		return Canceled()
	default:
		return Failed(NewError(CodeAuthentication, "Payment authentication failed.", nil))
	}
}

func outcomeForStatus(status intent.Status) Outcome {
	switch status {
	case intent.StatusSucceeded, intent.StatusProcessing, intent.StatusRequiresCapture:
		return Completed()
	case intent.StatusCanceled:
		return Canceled()
	default:
		return Failed(NewError(CodeTransport, genericMessage, fmt.Errorf("confirm: intent left in status %q", status)))
	}
}
