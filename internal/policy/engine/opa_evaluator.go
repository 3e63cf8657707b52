package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	documentdomain "lab-results-portal/internal/document/domain"
)

// Default Rego policy mirroring the protocol's hard status checks plus the
// platform DOB-fallback switch. A deployment can replace it wholesale via
// NewOPAEvaluatorWithPolicy.
const defaultRegoPolicy = `package labportal.guest_access

default allow = false
default dob_fallback_enabled = true

allow if {
	input.document.status == "PENDING"
}

allow if {
	input.document.status == "DELIVERED"
}

allow if {
	input.document.status == "OPENED"
}
`

// OPAEvaluator evaluates guest-access policy using OPA Rego, compiled once at
// construction.
type OPAEvaluator struct {
	compiler *ast.Compiler
}

// NewOPAEvaluator returns an evaluator using the built-in default policy.
func NewOPAEvaluator() (*OPAEvaluator, error) {
	return NewOPAEvaluatorWithPolicy(defaultRegoPolicy)
}

// NewOPAEvaluatorWithPolicy compiles the given Rego module and returns an
// evaluator over it. The module must live in package labportal.guest_access.
func NewOPAEvaluatorWithPolicy(policy string) (*OPAEvaluator, error) {
	compiler, err := ast.CompileModules(map[string]string{"guest_access.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile guest-access policy: %w", err)
	}
	return &OPAEvaluator{compiler: compiler}, nil
}

// HealthCheck verifies the compiled policy evaluates against a minimal input.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.evaluate(ctx, map[string]interface{}{
		"document": map[string]interface{}{"status": "DELIVERED", "has_dob": false},
	})
	return err
}

// EvaluateAccess evaluates guest-access policy for the document. On
// evaluation failure the deny-by-default result is returned with the error
// logged; policy trouble must never widen access.
func (e *OPAEvaluator) EvaluateAccess(ctx context.Context, doc *documentdomain.GuestDocument) (AccessResult, error) {
	input := map[string]interface{}{
		"document": map[string]interface{}{
			"status":  string(doc.Status),
			"tenant":  doc.TenantID,
			"has_dob": doc.PatientDob != nil,
		},
	}
	result, err := e.evaluate(ctx, input)
	if err != nil {
		log.Printf("policy: guest-access evaluation failed: %v, denying", err)
		return AccessResult{Allow: false, DOBFallbackEnabled: false}, nil
	}
	return result, nil
}

func (e *OPAEvaluator) evaluate(ctx context.Context, input map[string]interface{}) (AccessResult, error) {
	out := AccessResult{}

	allow, err := e.queryBool(ctx, "data.labportal.guest_access.allow", input)
	if err != nil {
		return out, err
	}
	out.Allow = allow

	dob, err := e.queryBool(ctx, "data.labportal.guest_access.dob_fallback_enabled", input)
	if err != nil {
		return out, err
	}
	out.DOBFallbackEnabled = dob

	return out, nil
}

func (e *OPAEvaluator) queryBool(ctx context.Context, query string, input map[string]interface{}) (bool, error) {
	q := rego.New(
		rego.Query(query),
		rego.Compiler(e.compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return false, fmt.Errorf("eval %s: %w", query, err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, fmt.Errorf("query %s returned no result", query)
	}
	b, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("query %s returned non-boolean", query)
	}
	return b, nil
}
