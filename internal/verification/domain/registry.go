package domain

import (
	"context"
	"fmt"

	"github.com/zktrails/zktrails/internal/catalog"
)

// Verifier checks the evidence of an attempt. Returned errors describe bad
// input; a failed check is a Result with Verified false.
type Verifier interface {
	Verify(ctx context.Context, a Attempt) (Result, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, a Attempt) (Result, error)

func (f VerifierFunc) Verify(ctx context.Context, a Attempt) (Result, error) {
	return f(ctx, a)
}

// Registry selects a verifier by the mission's verification method.
type Registry struct {
	verifiers map[catalog.Method]Verifier
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{verifiers: make(map[catalog.Method]Verifier)}
}

// NewDefaultRegistry registers one verifier per catalog method.
func NewDefaultRegistry(quiz *QuizScorer, geofence *GeofenceVerifier, ledger *LedgerVerifier) *Registry {
	r := NewRegistry()
	r.Register(catalog.MethodQuiz, quiz)
	r.Register(catalog.MethodGeofence, VerifierFunc(geofence.VerifyAttempt))
	for _, m := range catalog.Methods {
		if m.IsLedger() {
			r.Register(m, VerifierFunc(ledger.VerifyAttempt))
		}
	}
	return r
}

// Register sets the verifier for a method, replacing any previous one.
func (r *Registry) Register(m catalog.Method, v Verifier) {
	r.verifiers[m] = v
}

// Verify dispatches the attempt to the verifier of its mission's method.
func (r *Registry) Verify(ctx context.Context, a Attempt) (Result, error) {
	v, ok := r.verifiers[a.Mission.Method]
	if !ok {
		return Result{}, fmt.Errorf("no verifier for method %q", a.Mission.Method)
	}
	return v.Verify(ctx, a)
}
