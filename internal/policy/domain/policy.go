package domain

import "time"

// Policy is a stored Rego module for the operator policy. Enabled modules replace the built-in default.
type Policy struct {
	ID        string
	Name      string
	Rules     string
	Enabled   bool
	CreatedAt time.Time
}
