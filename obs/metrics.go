package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	// ConfirmTotal counts terminal confirmation outcomes.
	ConfirmTotal *prometheus.CounterVec
	// ChallengeTokenTotal counts challenge channel results per attempt.
	ChallengeTokenTotal *prometheus.CounterVec
	// NextActionTotal counts additional-authentication round trips by result.
	NextActionTotal *prometheus.CounterVec
)

// MustRegisterMetrics initialises and registers confirmation metrics. Safe
// to call more than once; registration happens on the first call only.
func MustRegisterMetrics(namespace string, reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ConfirmTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirm_total",
			Help:      "Count of terminal confirmation outcomes.",
		}, []string{"flow", "method", "result"})
		ChallengeTokenTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenge_token_total",
			Help:      "Count of security challenge channel results.",
		}, []string{"channel", "result"})
		NextActionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "next_action_total",
			Help:      "Count of additional-authentication resolutions.",
		}, []string{"result"})
		reg.MustRegister(ConfirmTotal, ChallengeTokenTotal, NextActionTotal)
	})
}
