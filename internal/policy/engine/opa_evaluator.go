package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"go.uber.org/zap"

	"authgate/backend/internal/policy/repository"
)

const allowQuery = "data.authgate.operator.allow"

// Default Rego policy: listed operators may do anything, users may revoke their own tokens.
const defaultRegoPolicy = `package authgate.operator

default allow := false

is_operator if {
	some email in input.operators
	email == lower(input.subject.email)
}

allow if {
	is_operator
}

allow if {
	input.action == "revoke_token"
	input.subject.user_id != ""
	input.target.user_id == input.subject.user_id
}
`

// OPAEvaluator evaluates the operator policy using OPA Rego.
type OPAEvaluator struct {
	policyRepo repository.Repository
	operators  []string
	log        *zap.Logger
}

// NewOPAEvaluator returns an OPA-based evaluator. operators are the e-mail addresses granted
// every operator action. policyRepo may be nil; then only the built-in policy is used.
func NewOPAEvaluator(policyRepo repository.Repository, operators []string, log *zap.Logger) *OPAEvaluator {
	if log == nil {
		log = zap.NewNop()
	}
	normalized := make([]string, 0, len(operators))
	for _, op := range operators {
		if op = strings.ToLower(strings.TrimSpace(op)); op != "" {
			normalized = append(normalized, op)
		}
	}
	return &OPAEvaluator{policyRepo: policyRepo, operators: normalized, log: log.Named("policy")}
}

// HealthCheck verifies that the in-process engine can compile and evaluate the default policy.
// Does not call the policy repo or database.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.evaluate(ctx, []string{defaultRegoPolicy}, e.buildInput(OperatorRequest{Action: ActionLockout}))
	return err
}

// AllowOperator evaluates the enabled stored policies, or the default policy when none exist.
func (e *OPAEvaluator) AllowOperator(ctx context.Context, req OperatorRequest) (bool, error) {
	var policies []string
	if e.policyRepo != nil {
		stored, err := e.policyRepo.ListEnabled(ctx)
		if err != nil {
			e.log.Warn("failed to load operator policies, using default", zap.Error(err))
		}
		for _, p := range stored {
			if p.Enabled && p.Rules != "" {
				policies = append(policies, p.Rules)
			}
		}
	}
	if len(policies) == 0 {
		policies = []string{defaultRegoPolicy}
	}

	allowed, err := e.evaluate(ctx, policies, e.buildInput(req))
	if err != nil {
		e.log.Error("operator policy evaluation failed", zap.String("action", req.Action), zap.Error(err))
		return false, err
	}
	return allowed, nil
}

func (e *OPAEvaluator) buildInput(req OperatorRequest) map[string]interface{} {
	operators := make([]interface{}, len(e.operators))
	for i, op := range e.operators {
		operators[i] = op
	}
	return map[string]interface{}{
		"action":    req.Action,
		"operators": operators,
		"subject": map[string]interface{}{
			"user_id": req.SubjectID,
			"email":   req.SubjectEmail,
		},
		"target": map[string]interface{}{
			"user_id": req.TargetUserID,
			"jti":     req.TargetJTI,
		},
	}
}

func (e *OPAEvaluator) evaluate(ctx context.Context, policies []string, input map[string]interface{}) (bool, error) {
	modules := make(map[string]string, len(policies))
	for i, policy := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = policy
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return false, fmt.Errorf("compile policies: %w", err)
	}
	rs, err := rego.New(
		rego.Query(allowQuery),
		rego.Compiler(compiler),
		rego.Input(input),
	).Eval(ctx)
	if err != nil {
		return false, fmt.Errorf("eval policies: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, errors.New("policy query returned no result")
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("policy allow is %T, want bool", rs[0].Expressions[0].Value)
	}
	return allowed, nil
}
