package metrics

import (
	"strconv"
	"time"
)

// VerificationResult records the outcome of a mission verification.
func VerificationResult(method string, verified bool) {
	if !enabled {
		return
	}
	result := "failed"
	if verified {
		result = "verified"
	}
	verificationTotal.WithLabelValues(method, result).Inc()
}

// Settlement records a settlement and whether it reached the ledger.
func Settlement(onChain bool) {
	if !enabled {
		return
	}
	settlementTotal.WithLabelValues(strconv.FormatBool(onChain)).Inc()
}

// GameHubCall records a start_game or end_game call.
func GameHubCall(call, outcome string) {
	if !enabled {
		return
	}
	if outcome == "" {
		outcome = "skipped"
	}
	gameHubTotal.WithLabelValues(call, outcome).Inc()
}

// ExplorerCache records a ledger explorer cache hit or miss.
func ExplorerCache(result string) {
	if !enabled {
		return
	}
	explorerCache.WithLabelValues(result).Inc()
}

// SessionsActive sets the number of open sessions.
func SessionsActive(n int) {
	if !enabled {
		return
	}
	sessionsActive.Set(float64(n))
}

// SessionsExpired records sessions abandoned by the sweeper.
func SessionsExpired(n int) {
	if !enabled {
		return
	}
	sessionsExpired.Add(float64(n))
}

// ProofGeneration records a proof generation attempt.
func ProofGeneration(status string, took time.Duration) {
	if !enabled {
		return
	}
	proofTotal.WithLabelValues(status).Inc()
	proofDuration.Observe(took.Seconds())
}
