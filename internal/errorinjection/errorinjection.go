// Package errorinjection samples synthetic faults into otherwise-normal
// simulated responses, so clients can exercise their retry and
// error-handling paths against a predictable failure rate instead of
// waiting for a real provider outage.
package errorinjection

import (
	"math/rand"

	"github.com/llmsimlab/simcore/internal/config"
	"github.com/llmsimlab/simcore/internal/simerrors"
)

// Injector samples whether a given request should fail, and if so, which
// kind of error to synthesize.
type Injector struct {
	cfg config.ErrorInjectionConfig
}

// New builds an Injector over cfg.
func New(cfg config.ErrorInjectionConfig) *Injector {
	return &Injector{cfg: cfg}
}

var defaultTypes = []string{
	string(simerrors.KindTimeout),
	string(simerrors.KindServerError),
	string(simerrors.KindRateLimit),
	string(simerrors.KindContentFilter),
}

// Sample decides, for one request, whether to inject a fault. rng should
// be seeded per-request so the decision is reproducible for a given seed.
// The result is nil when no fault should be injected.
func (inj *Injector) Sample(rng *rand.Rand) *simerrors.Error {
	if !inj.cfg.Enabled || inj.cfg.Rate <= 0 {
		return nil
	}
	if rng.Float64() >= inj.cfg.Rate {
		return nil
	}

	types := inj.cfg.Types
	if len(types) == 0 {
		types = defaultTypes
	}
	kind := simerrors.Kind(types[rng.Intn(len(types))])

	switch kind {
	case simerrors.KindTimeout:
		return simerrors.New(simerrors.KindTimeout, "simulated upstream timeout")
	case simerrors.KindRateLimit:
		return simerrors.RateLimited("simulated rate limit from injected fault", 1)
	case simerrors.KindContentFilter:
		return simerrors.New(simerrors.KindContentFilter, "simulated content filter trigger")
	default:
		return simerrors.New(simerrors.KindServerError, "simulated internal error")
	}
}
