package market

import "github.com/pkg/errors"

var (
	errNoLedger        = errors.New("ledger client is not configured")
	errBadOracleResult = errors.New("oracle returned malformed result")
)
