package sepa

import "errors"

// Validation failures raised by the batch builder. They signal malformed
// caller input and are never retried. Use errors.Is to match them; the
// wrapped message carries the offending value.
var (
	ErrInvalidDebtorIdentifier    = errors.New("invalid debtor IBAN")
	ErrInvalidDebtorRoutingCode   = errors.New("invalid debtor BIC")
	ErrDebtorRoutingUnresolved    = errors.New("debtor BIC could not be resolved")
	ErrInvalidAmountFormat        = errors.New("amount is not in expected format, should be 0.00")
	ErrInvalidCreditorIdentifier  = errors.New("invalid creditor IBAN")
	ErrInvalidCreditorRoutingCode = errors.New("invalid creditor BIC")
	ErrCreditorRoutingUnresolved  = errors.New("creditor BIC could not be resolved")
	ErrInvalidCurrency            = errors.New("currency must be a three-letter ISO 4217 code")
	ErrEmptyBatch                 = errors.New("batch has no transactions or a zero total")
)
