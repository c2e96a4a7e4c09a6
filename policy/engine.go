// Package policy evaluates whether the automated responder may reply
// to a visitor message, given a snapshot of the owning session.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions returned by the reply policy.
const (
	DecisionReply  = "reply"  // invoke the completion provider
	DecisionHold   = "hold"   // a human operator owns the session
	DecisionReject = "reject" // session is closed, drop the message path
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.reply_policy.decision"),
		rego.Module("reply_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Input is the session snapshot the policy is evaluated against.
type Input struct {
	Session SessionInput `json:"session"`
	Content string       `json:"content"`
}

// SessionInput carries the session flags.
type SessionInput struct {
	IsActive    bool `json:"is_active"`
	IsHandedOff bool `json:"is_handed_off"`
}

// Evaluate returns the reply decision for the given input.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The default policy always defines a decision; treat an
		// empty result as a refusal to reply.
		return DecisionReject, nil
	}

	val := results[0].Expressions[0].Value
	if s, ok := val.(string); ok {
		return s, nil
	}

	return DecisionReject, nil
}

// DefaultPolicy is the default reply policy: the assistant answers only
// while the session is active and not handed off to an operator.
// Deployments can extend it, e.g. to force a hold on certain keywords.
const DefaultPolicy = `
package reply_policy

import rego.v1

default decision := "reject"

decision := "reply" if {
	input.session.is_active
	not input.session.is_handed_off
}

decision := "hold" if {
	input.session.is_active
	input.session.is_handed_off
}
`
