package engine

import "context"

// Operator actions checked by the policy.
const (
	ActionLockout           = "lockout"
	ActionUnlock            = "unlock"
	ActionTerminateSessions = "terminate_sessions"
	ActionRevokeToken       = "revoke_token"
)

// OperatorRequest describes who wants to do what to whom.
type OperatorRequest struct {
	SubjectID    string
	SubjectEmail string
	Action       string
	TargetUserID string
	TargetJTI    string
}

// Evaluator decides operator actions using OPA or other engines.
type Evaluator interface {
	// AllowOperator reports whether the subject may perform the action on the target.
	// A non-nil error means no decision could be made; callers deny in that case.
	AllowOperator(ctx context.Context, req OperatorRequest) (bool, error)
}
