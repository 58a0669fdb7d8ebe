// Package confirm drives a payment or setup intent to a terminal outcome.
// It selects among the direct and deferred confirmation protocols, races
// time-boxed security challenges alongside the main path, derives mandate
// and setup-future-usage metadata, and validates client-held against
// server-held state on the deferred path.
package confirm

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/payflow/analytics"
	"github.com/noah-isme/payflow/challenge"
	"github.com/noah-isme/payflow/config"
	"github.com/noah-isme/payflow/intent"
	"github.com/noah-isme/payflow/mandate"
	"github.com/noah-isme/payflow/obs"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Capabilities describes what the embedding surface supports for one
// confirmation attempt.
type Capabilities struct {
	// SurfacesNextActions is true when the surface lets the caller observe
	// and drive additional authentication steps itself. Server-side
	// confirmation descriptors require it; a surface that hides next
	// actions from the developer must not accept them.
	SurfacesNextActions bool
	// ConfirmationTokens selects the confirmation-token request shape for
	// the direct protocol instead of legacy parameter objects.
	ConfirmationTokens bool
}

// Engine orchestrates confirmation attempts. All collaborator fields are
// injected; the engine holds no state across attempts beyond the challenge
// coordinator it was constructed with.
type Engine struct {
	Transport  Transport
	Auth       Authenticator
	Wallet     WalletFlow
	Link       LinkFlow
	Handlers   map[intent.PaymentMethodType]DelegatedHandler
	Challenges *challenge.Coordinator
	Prefs      PreferenceStore
	Analytics  analytics.Notifier
	Logger     zerolog.Logger

	// Debug makes integration errors trap in addition to surfacing, so
	// descriptor misuse fails loudly during development.
	Debug bool
}

// NewEngine builds an Engine from configuration: logger, debug mode and,
// when challenge collaborators are supplied, a coordinator bounded by the
// configured per-channel timeouts. Optional collaborators (wallet, link,
// handlers, analytics, preferences) are assigned on the returned struct.
func NewEngine(cfg *config.Config, transport Transport, attestor challenge.Attestor, captcha challenge.CaptchaProvider) *Engine {
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel)
	if !cfg.AttestationEnabled {
		attestor = nil
	}
	var coord *challenge.Coordinator
	if attestor != nil || captcha != nil {
		coord = challenge.New(attestor, captcha, challenge.Options{
			AttestationTimeout: &cfg.AttestationTimeout,
			CaptchaTimeout:     &cfg.CaptchaTimeout,
			Logger:             logger,
		})
	}
	return &Engine{
		Transport:  transport,
		Challenges: coord,
		Logger:     logger,
		Debug:      cfg.Debug,
	}
}

// Confirm drives the attempt to a terminal outcome. It never returns an
// error past its boundary: transport and integration failures surface as a
// failed outcome, customer cancellation as a canceled one. Once the outcome
// is produced all held challenge state is released.
func (e *Engine) Confirm(ctx context.Context, desc intent.Descriptor, sel intent.Selection, caps Capabilities) Outcome {
	if e == nil || e.Transport == nil {
		return Failed(IntegrationError("confirm engine not configured"))
	}
	ctx, span := otel.Tracer("confirm.Engine").Start(ctx, "Engine.Confirm")
	defer span.End()

	attemptID := uuid.NewString()
	log := e.Logger.With().Str("attempt_id", attemptID).Logger()
	start := time.Now()

	outcome := e.dispatch(ctx, log, desc, sel, caps)

	span.SetAttributes(
		attribute.String("confirm.outcome", string(outcome.Status)),
		attribute.Float64("confirm.duration_ms", obs.DurationMillis(time.Since(start))),
	)
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
	}
	e.recordOutcome(ctx, log, attemptID, sel, outcome)

	// Terminal: in-flight challenge tasks must not outlive the attempt.
	if e.Challenges != nil {
		e.Challenges.Cancel(context.WithoutCancel(ctx))
	}
	return outcome
}

// dispatch applies the protocol selection table; first match wins.
func (e *Engine) dispatch(ctx context.Context, log zerolog.Logger, desc intent.Descriptor, sel intent.Selection, caps Capabilities) Outcome {
	if err := e.precheck(desc, sel, caps); err != nil {
		return Failed(err)
	}

	switch s := sel.(type) {
	case intent.WalletPay:
		return e.confirmWallet(ctx, log, desc, caps)
	case intent.DelegatedMethod:
		return e.confirmDelegated(ctx, log, s)
	case intent.LinkMethod:
		return e.confirmLink(ctx, log, desc, s, caps)
	}

	switch d := desc.(type) {
	case intent.DirectPayment, intent.DirectSetup:
		return e.confirmDirect(ctx, log, desc, sel, caps)
	case intent.Deferred:
		return e.confirmDeferred(ctx, log, d, sel)
	default:
		return Failed(e.integrationErr(log, fmt.Sprintf("unsupported intent descriptor %T", desc)))
	}
}

// precheck rejects structurally incompatible descriptor/selection pairs
// before any network call is made.
func (e *Engine) precheck(desc intent.Descriptor, sel intent.Selection, caps Capabilities) error {
	if sel == nil {
		return e.integrationErr(e.Logger, "payment method selection is required")
	}
	if d, ok := desc.(intent.Deferred); ok {
		if err := d.Validate(); err != nil {
			return e.integrationErr(e.Logger, err.Error())
		}
		if d.ServerSideConfirmation && !caps.SurfacesNextActions {
			return e.integrationErr(e.Logger, "server-side confirmation requires a surface that exposes next actions to the caller")
		}
		if d.RequireCVCRecollection {
			if saved, ok := sel.(intent.SavedMethod); ok && saved.Type == intent.MethodCard && saved.CVC == "" {
				return NewError(CodeInvalidRequest, genericMessage, fmt.Errorf("confirm: cvc recollection required but selection carries no cvc"))
			}
		}
	}
	if nm, ok := sel.(intent.NewMethod); ok {
		if err := validate.Struct(nm.Params); err != nil {
			return NewError(CodeInvalidRequest, genericMessage, fmt.Errorf("confirm: invalid payment method params: %w", err))
		}
	}
	if del, ok := sel.(intent.DelegatedMethod); ok {
		if _, registered := e.Handlers[del.Type]; !registered {
			return e.integrationErr(e.Logger, fmt.Sprintf("no handler registered for delegated method %q", del.Type))
		}
	}
	return nil
}

func (e *Engine) confirmWallet(ctx context.Context, log zerolog.Logger, desc intent.Descriptor, caps Capabilities) Outcome {
	if e.Wallet == nil {
		return Failed(e.integrationErr(log, "wallet flow not configured"))
	}
	res, err := e.Wallet.Present(ctx, walletRequestFor(desc))
	if err != nil {
		return Failed(wrapTransport("wallet flow", err))
	}
	if res.Canceled {
		return Canceled()
	}
	if res.PaymentMethod == nil {
		return Failed(e.integrationErr(log, "wallet flow returned neither a payment method nor cancellation"))
	}
	// The wallet already created the payment method; route it back through
	// the matching protocol before the wallet UI dismisses.
	sel := intent.SavedMethod{ID: res.PaymentMethod.ID, Type: res.PaymentMethod.Type}
	if d, ok := desc.(intent.Deferred); ok {
		return e.confirmDeferred(ctx, log, d, sel)
	}
	return e.confirmDirect(ctx, log, desc, sel, caps)
}

func (e *Engine) confirmDelegated(ctx context.Context, log zerolog.Logger, sel intent.DelegatedMethod) Outcome {
	handler := e.Handlers[sel.Type]
	outcome, err := handler(ctx, sel.Billing)
	if err != nil {
		return Failed(NewError(CodeTransport, genericMessage, fmt.Errorf("confirm: delegated handler %q: %w", sel.Type, err)))
	}
	return outcome
}

func (e *Engine) confirmLink(ctx context.Context, log zerolog.Logger, desc intent.Descriptor, sel intent.LinkMethod, caps Capabilities) Outcome {
	if e.Link == nil {
		return Failed(e.integrationErr(log, "link flow not configured"))
	}
	res, err := e.Link.Resolve(ctx, sel.Variant)
	if err != nil {
		return Failed(wrapTransport("link flow", err))
	}
	if res.Canceled {
		return Canceled()
	}
	if _, again := res.Selection.(intent.LinkMethod); again || res.Selection == nil {
		return Failed(e.integrationErr(log, "link flow must resolve to a concrete payment method selection"))
	}
	return e.dispatch(ctx, log, desc, res.Selection, caps)
}

// challengeFor fetches challenge tokens for method types that carry them.
// Missing tokens degrade silently; the confirmation proceeds without them.
func (e *Engine) challengeFor(ctx context.Context, log zerolog.Logger, pmType intent.PaymentMethodType) *ChallengeData {
	if e.Challenges == nil || !pmType.ChallengeEligible() {
		return nil
	}
	res := e.Challenges.FetchTokens(ctx)
	recordChallengeChannel("captcha", res.CaptchaToken != "")
	recordChallengeChannel("attestation", res.Attestation != nil)
	if res.CaptchaToken == "" && res.Attestation == nil {
		log.Debug().Msg("confirming without challenge tokens")
		e.notify(ctx, analytics.Event{Name: analytics.EventChallengeDegraded})
		return nil
	}
	return &ChallengeData{CaptchaToken: res.CaptchaToken, Attestation: res.Attestation}
}

// finish applies terminal side effects that only run on completion: the
// remembered-default preference and the attestation consumption call.
func (e *Engine) finish(ctx context.Context, log zerolog.Logger, out Outcome, pm *intent.PaymentMethod, remember bool) Outcome {
	if out.Status != StatusCompleted {
		return out
	}
	if remember && e.Prefs != nil && pm != nil {
		if err := e.Prefs.SetDefaultMethod(ctx, pm.ID); err != nil {
			log.Warn().Err(err).Str("payment_method", pm.ID).Msg("recording default payment method failed")
		}
	}
	return out
}

// completeChallenge consumes the one-time attestation once the authorizing
// request has been accepted. Skipping it leaks an assertion counter.
func (e *Engine) completeChallenge(ctx context.Context, log zerolog.Logger, used *ChallengeData) {
	if e.Challenges == nil || used == nil || used.Attestation == nil {
		return
	}
	if err := e.Challenges.Complete(ctx); err != nil {
		log.Warn().Err(err).Msg("attestation complete failed")
	}
}

// integrationErr builds a developer-facing error and traps in debug mode so
// misuse is caught before it ships.
func (e *Engine) integrationErr(log zerolog.Logger, debug string) *Error {
	err := IntegrationError(debug)
	log.Error().Str("debug", debug).Msg("integration error")
	if e.Debug {
		panic(fmt.Sprintf("confirm: integration error: %s", debug))
	}
	return err
}

func (e *Engine) recordOutcome(ctx context.Context, log zerolog.Logger, attemptID string, sel intent.Selection, out Outcome) {
	methodLabel := selectionLabel(sel)
	if obs.ConfirmTotal != nil {
		obs.ConfirmTotal.WithLabelValues(flowLabel(sel), methodLabel, string(out.Status)).Inc()
	}
	ev := analytics.Event{AttemptID: attemptID, Fields: map[string]any{"method": methodLabel}}
	switch out.Status {
	case StatusCompleted:
		ev.Name = analytics.EventConfirmCompleted
		log.Info().Str("method", methodLabel).Msg("confirmation completed")
	case StatusCanceled:
		ev.Name = analytics.EventConfirmCanceled
		log.Info().Str("method", methodLabel).Msg("confirmation canceled")
	default:
		ev.Name = analytics.EventConfirmFailed
		log.Error().Err(out.Err).Str("method", methodLabel).Msg("confirmation failed")
	}
	e.notify(ctx, ev)
}

func (e *Engine) notify(ctx context.Context, ev analytics.Event) {
	if e.Analytics == nil {
		return
	}
	// Fire and forget; sink failures never affect the outcome.
	_ = e.Analytics.Notify(ctx, ev)
}

func recordChallengeChannel(channelName string, ok bool) {
	if obs.ChallengeTokenTotal == nil {
		return
	}
	result := "present"
	if !ok {
		result = "missing"
	}
	obs.ChallengeTokenTotal.WithLabelValues(channelName, result).Inc()
}

func walletRequestFor(desc intent.Descriptor) WalletRequest {
	switch d := desc.(type) {
	case intent.DirectPayment:
		return WalletRequest{Amount: d.Amount, Currency: d.Currency}
	case intent.DirectSetup:
		return WalletRequest{SetupOnly: true}
	case intent.Deferred:
		switch m := d.Mode.(type) {
		case intent.PaymentMode:
			return WalletRequest{Amount: m.Amount, Currency: m.Currency}
		case intent.SetupMode:
			return WalletRequest{Currency: m.Currency, SetupOnly: true}
		}
	}
	return WalletRequest{}
}

func flowLabel(sel intent.Selection) string {
	switch sel.(type) {
	case intent.WalletPay:
		return "wallet"
	case intent.DelegatedMethod:
		return "delegated"
	case intent.LinkMethod:
		return "link"
	default:
		return "standard"
	}
}

func selectionLabel(sel intent.Selection) string {
	switch s := sel.(type) {
	case intent.WalletPay:
		return "wallet"
	case intent.SavedMethod:
		return string(s.Type)
	case intent.NewMethod:
		return string(s.Params.Type)
	case intent.DelegatedMethod:
		return string(s.Type)
	case intent.LinkMethod:
		return "link"
	default:
		return "unknown"
	}
}

func mandateDataIfRequired(res mandate.Resolution) *MandateData {
	if !res.MandateRequired {
		return nil
	}
	return &MandateData{AcceptedAt: time.Now(), Online: true}
}
