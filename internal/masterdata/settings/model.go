// Package settings stores application configuration rows, globally and per
// branch.
package settings

import (
	"errors"
	"time"
)

// Setting is one configuration row. BranchID nil means the global value.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	BranchID  *int64    `json:"branch_id,omitempty"`
	UpdatedBy *int64    `json:"updated_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Well-known setting keys.
const (
	KeyPOSDefaultBankAccount = "pos.default_bank_account"
	KeyVarianceAlertLimit    = "pos.variance_alert_limit"
)

var (
	// ErrSettingNotFound indicates no row for the key.
	ErrSettingNotFound = errors.New("settings: not found")
)
