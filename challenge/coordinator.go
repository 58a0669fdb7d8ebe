// Package challenge coordinates the time-boxed security side-channels that
// run alongside a confirmation attempt: device attestation and passive bot
// detection. Both degrade silently; a missing token is a valid result and
// never blocks or fails the payment itself.
package challenge

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a challenge channel when no explicit timeout is
// configured.
const DefaultTimeout = 6 * time.Second

// Assertion is a one-time device attestation produced for a single
// authorizing request. It must be consumed with Complete after that request
// is authorized.
type Assertion struct {
	KeyID string
	Data  []byte
}

// Attestor is the device attestation handshake. Prepare is slow (key
// generation and registration) and is started eagerly by the coordinator.
// Release is the cancellation hook: it must abort any in-flight handshake
// and free the underlying key material.
type Attestor interface {
	Prepare(ctx context.Context) error
	Assert(ctx context.Context) (Assertion, error)
	Complete(ctx context.Context) error
	Release(ctx context.Context) error
}

// CaptchaProvider fetches a passive bot-detection token.
type CaptchaProvider interface {
	Token(ctx context.Context) (string, error)
}

// Result carries whatever each channel produced before its deadline. Zero
// fields mean the channel timed out or failed, which is not an error.
type Result struct {
	CaptchaToken string
	Attestation  *Assertion
}

// Options configures a Coordinator. Each channel is bounded by its own
// timeout: nil selects DefaultTimeout, while pointing at a zero or negative
// value expires the channel immediately, which is what automated tests use.
type Options struct {
	AttestationTimeout *time.Duration
	CaptchaTimeout     *time.Duration
	Logger             zerolog.Logger
}

// Coordinator owns the two challenge channels for one confirmation attempt.
// Attestation preparation starts the moment the coordinator is constructed,
// before the customer has tapped pay, to hide its latency. The token fetch
// is memoized: every caller within the attempt observes the same result and
// only one underlying request is issued per channel.
type Coordinator struct {
	attestor       Attestor
	captcha        CaptchaProvider
	attestTimeout  time.Duration
	captchaTimeout time.Duration
	log            zerolog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc

	prepared chan struct{}
	prepErr  error // written once before prepared closes

	mu          sync.Mutex
	fetchDone   chan struct{}
	result      Result
	outstanding bool // assertion handed out, not yet completed
	released    bool
}

// New constructs a Coordinator and eagerly starts attestation preparation.
// Either collaborator may be nil, disabling that channel.
func New(attestor Attestor, captcha CaptchaProvider, opts Options) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		attestor:       attestor,
		captcha:        captcha,
		attestTimeout:  timeoutOrDefault(opts.AttestationTimeout),
		captchaTimeout: timeoutOrDefault(opts.CaptchaTimeout),
		log:            opts.Logger,
		baseCtx:        ctx,
		cancel:         cancel,
		prepared:       make(chan struct{}),
	}
	go c.prepare()
	return c
}

func timeoutOrDefault(d *time.Duration) time.Duration {
	if d == nil {
		return DefaultTimeout
	}
	return *d
}

func (c *Coordinator) prepare() {
	defer close(c.prepared)
	if c.attestor == nil {
		return
	}
	if err := c.attestor.Prepare(c.baseCtx); err != nil {
		c.prepErr = err
		c.log.Debug().Err(err).Msg("attestation prepare failed")
	}
}

// FetchTokens returns the challenge result for this attempt, waiting at most
// each channel's configured timeout. It never returns an error: failed or slow channels
// surface as zero fields. Calling it again returns the memoized result of
// the first call. A canceled ctx aborts the wait for this caller only; the
// single in-flight fetch keeps running for the attempt.
func (c *Coordinator) FetchTokens(ctx context.Context) Result {
	c.mu.Lock()
	if c.fetchDone == nil {
		c.fetchDone = make(chan struct{})
		go c.fetch(c.fetchDone)
	}
	done := c.fetchDone
	c.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return Result{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

func (c *Coordinator) fetch(done chan struct{}) {
	ctx, cancel := context.WithCancel(c.baseCtx)
	// Outstanding tasks must not keep running once the race settles.
	defer cancel()

	type captchaOut struct {
		token string
		err   error
	}
	type attestOut struct {
		assertion Assertion
		err       error
	}
	captchaCh := make(chan captchaOut, 1)
	attestCh := make(chan attestOut, 1)

	pendingCaptcha := c.captcha != nil
	pendingAttest := c.attestor != nil

	// Each channel runs under its own cancelable context so that one hitting
	// its deadline aborts only its own in-flight work.
	captchaCtx, cancelCaptcha := context.WithCancel(ctx)
	defer cancelCaptcha()
	attestCtx, cancelAttest := context.WithCancel(ctx)
	defer cancelAttest()

	var captchaTimerC, attestTimerC <-chan time.Time
	if pendingCaptcha {
		timerC, stop := expiry(c.captchaTimeout)
		defer stop()
		captchaTimerC = timerC
		go func() {
			token, err := c.captcha.Token(captchaCtx)
			captchaCh <- captchaOut{token: token, err: err}
		}()
	}
	if pendingAttest {
		timerC, stop := expiry(c.attestTimeout)
		defer stop()
		attestTimerC = timerC
		go func() {
			// Preparation is always initiated before assertion; wait for it
			// unless the channel is canceled first.
			select {
			case <-c.prepared:
			case <-attestCtx.Done():
				attestCh <- attestOut{err: attestCtx.Err()}
				return
			}
			if c.prepErr != nil {
				attestCh <- attestOut{err: c.prepErr}
				return
			}
			assertion, err := c.attestor.Assert(attestCtx)
			attestCh <- attestOut{assertion: assertion, err: err}
		}()
	}

	var res Result
	for pendingCaptcha || pendingAttest {
		select {
		case out := <-captchaCh:
			pendingCaptcha = false
			captchaTimerC = nil
			cancelCaptcha()
			if out.err != nil {
				c.log.Debug().Err(out.err).Msg("captcha token unavailable")
			} else {
				res.CaptchaToken = out.token
			}
		case out := <-attestCh:
			pendingAttest = false
			attestTimerC = nil
			cancelAttest()
			if out.err != nil {
				c.log.Debug().Err(out.err).Msg("attestation unavailable")
			} else {
				assertion := out.assertion
				res.Attestation = &assertion
			}
		case <-captchaTimerC:
			pendingCaptcha = false
			captchaTimerC = nil
			cancelCaptcha()
			c.log.Debug().Dur("timeout", c.captchaTimeout).Msg("captcha timed out")
		case <-attestTimerC:
			pendingAttest = false
			attestTimerC = nil
			cancelAttest()
			c.log.Debug().Dur("timeout", c.attestTimeout).Msg("attestation timed out")
		case <-ctx.Done():
			pendingCaptcha, pendingAttest = false, false
		}
	}
	cancel()

	c.mu.Lock()
	c.result = res
	if res.Attestation != nil {
		c.outstanding = true
	}
	c.mu.Unlock()
	close(done)
}

// expiry returns a channel that fires once the timeout elapses. Non-positive
// timeouts expire immediately.
func expiry(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		expired := make(chan time.Time)
		close(expired)
		return expired, func() {}
	}
	timer := time.NewTimer(d)
	return timer.C, func() { timer.Stop() }
}

// Complete consumes the one-time assertion after the authorizing request
// succeeded. Skipping this call leaks an attestation counter on the device;
// it is an integration bug, not a crash.
func (c *Coordinator) Complete(ctx context.Context) error {
	c.mu.Lock()
	hadAssertion := c.outstanding
	c.outstanding = false
	c.mu.Unlock()
	if c.attestor == nil || !hadAssertion {
		return nil
	}
	return c.attestor.Complete(ctx)
}

// Cancel tears down the attempt: outstanding challenge tasks are canceled
// and, if an assertion was produced but never consumed, the attestation
// resource is released through its cancellation hook rather than abandoned.
func (c *Coordinator) Cancel(ctx context.Context) {
	c.cancel()
	c.mu.Lock()
	release := c.attestor != nil && !c.released
	leak := c.outstanding
	c.outstanding = false
	c.released = true
	c.mu.Unlock()
	if !release {
		return
	}
	if err := c.attestor.Release(ctx); err != nil {
		c.log.Debug().Err(err).Bool("assertion_outstanding", leak).Msg("attestation release failed")
	}
}
