// =============================================================================
// SEPA Credit Transfer - Payment Batch Builder
// =============================================================================
//
// A Batch accumulates credit transfers for a single debtor account and
// renders them as one pain.001.001.02 document.
//
// LIFECYCLE:
//   1. NewBatch validates the debtor IBAN and resolves the debtor BIC.
//   2. AddTransaction validates one transfer and appends it; on failure the
//      batch is left exactly as it was.
//   3. Render builds the document. It does not modify the batch and can be
//      called again; header fields are recomputed each time.
//
// OWNERSHIP:
//   A Batch is not safe for concurrent use. Hosts that share one across
//   goroutines must serialize access themselves.
//
// =============================================================================

package sepa

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/sepa-credit-transfer/internal/iban"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/logging"
)

const (
	// DefaultCurrency is used when a transaction does not name one.
	DefaultCurrency = "EUR"

	// MaxDescriptionLength is the unstructured remittance limit, in characters.
	MaxDescriptionLength = 140
)

// amountPattern accepts non-negative amounts with at most two decimals:
// "100", "100.5", "100.50". Signs, exponents and separators are rejected.
var amountPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,2})?$`)

// currencyPattern is the shape of an ISO 4217 alphabetic code.
var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// =============================================================================
// DATA STRUCTURES
// =============================================================================

// TransactionInput is the raw data for one credit transfer, as received from
// a caller. Only CreditorBIC, ExecutionDate and Currency are optional.
type TransactionInput struct {
	// Recipient is the name of the account holder being paid.
	Recipient string

	// Description is shown to the recipient. Longer than 140 characters is
	// cut, not rejected.
	Description string

	// Amount as a decimal string, e.g. "100.00".
	Amount string

	// CreditorAddress is a single postal address line.
	CreditorAddress string

	// CreditorCountry is the creditor's country code, e.g. "NL".
	CreditorCountry string

	// CreditorIBAN is the account being paid.
	CreditorIBAN string

	// CreditorBIC is resolved from the IBAN's bank code when empty.
	CreditorBIC string

	// ExecutionDate is the requested execution date. The zero value means
	// "the date the batch is rendered".
	ExecutionDate time.Time

	// Currency is an ISO 4217 code. Default: "EUR".
	Currency string
}

// Transaction is a validated credit transfer held by a Batch.
type Transaction struct {
	Recipient       string
	Description     string
	Amount          decimal.Decimal
	CreditorAddress string
	CreditorCountry string
	CreditorIBAN    string
	CreditorBIC     string
	ExecutionDate   time.Time
	Currency        string
}

// Batch is a debtor account plus an ordered list of credit transfers.
type Batch struct {
	debtorIBAN   string
	debtorBIC    string
	transactions []Transaction
	total        decimal.Decimal

	clock  func() time.Time
	newID  func() string
	logger logging.Logger
}

// =============================================================================
// OPTIONS
// =============================================================================

// Option customizes a Batch.
type Option func(*Batch)

// WithClock sets the time source used for the creation timestamp and for
// default execution dates.
func WithClock(clock func() time.Time) Option {
	return func(b *Batch) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// WithIDGenerator sets the generator for message and end-to-end IDs.
func WithIDGenerator(newID func() string) Option {
	return func(b *Batch) {
		if newID != nil {
			b.newID = newID
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(b *Batch) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewID returns a random 32-character hex identifier. pain.001 limits
// MsgId and EndToEndId to 35 characters, so the UUID dashes are dropped.
func NewID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// NewBatch creates a batch for the given debtor.
//
// PARAMETERS:
//   - debtorIBAN: The debtor account. Must pass the IBAN checksum.
//   - debtorBIC: The debtor BIC. If empty, it is derived from the IBAN.
//
// RETURNS:
//   - ErrInvalidDebtorIdentifier if the IBAN checksum fails.
//   - ErrInvalidDebtorRoutingCode if a BIC is given but malformed.
//   - ErrDebtorRoutingUnresolved if no BIC is given and none can be derived.
func NewBatch(debtorIBAN, debtorBIC string, opts ...Option) (*Batch, error) {
	if !iban.ValidateChecksum(debtorIBAN) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDebtorIdentifier, debtorIBAN)
	}

	bic := iban.Normalize(debtorBIC)
	switch {
	case bic == "":
		resolved, err := iban.ResolveBIC(debtorIBAN)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDebtorRoutingUnresolved, err)
		}
		bic = resolved
	case !iban.ValidateBICShape(bic):
		return nil, fmt.Errorf("%w: %q", ErrInvalidDebtorRoutingCode, debtorBIC)
	}

	b := &Batch{
		debtorIBAN: iban.Normalize(debtorIBAN),
		debtorBIC:  bic,
		total:      decimal.Zero,
		clock:      time.Now,
		newID:      NewID,
		logger:     logging.Nop(),
	}

	for _, opt := range opts {
		opt(b)
	}

	b.logger.Debugf("created batch for debtor %s (%s)", b.debtorIBAN, b.debtorBIC)

	return b, nil
}

// =============================================================================
// ADDING TRANSACTIONS
// =============================================================================

// AddTransaction validates a transfer and appends it to the batch.
//
// VALIDATION ORDER (first failure wins):
//  1. Amount format -> ErrInvalidAmountFormat
//  2. Creditor IBAN checksum -> ErrInvalidCreditorIdentifier
//  3. Creditor BIC shape when given -> ErrInvalidCreditorRoutingCode,
//     otherwise BIC derivation -> ErrCreditorRoutingUnresolved
//  4. Currency shape when given -> ErrInvalidCurrency
//
// Either the transaction is appended and the total updated, or nothing
// changes. The batch itself is returned so calls can be chained.
func (b *Batch) AddTransaction(in TransactionInput) (*Batch, error) {
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return b, err
	}

	if !iban.ValidateChecksum(in.CreditorIBAN) {
		return b, fmt.Errorf("%w: %q", ErrInvalidCreditorIdentifier, in.CreditorIBAN)
	}

	bic := iban.Normalize(in.CreditorBIC)
	if bic != "" {
		if !iban.ValidateBICShape(bic) {
			return b, fmt.Errorf("%w: %q", ErrInvalidCreditorRoutingCode, in.CreditorBIC)
		}
	} else {
		resolved, err := iban.ResolveBIC(in.CreditorIBAN)
		if err != nil {
			return b, fmt.Errorf("%w: %w", ErrCreditorRoutingUnresolved, err)
		}
		bic = resolved
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if !currencyPattern.MatchString(currency) {
		return b, fmt.Errorf("%w: %q", ErrInvalidCurrency, in.Currency)
	}

	b.transactions = append(b.transactions, Transaction{
		Recipient:       in.Recipient,
		Description:     truncate(in.Description, MaxDescriptionLength),
		Amount:          amount,
		CreditorAddress: in.CreditorAddress,
		CreditorCountry: in.CreditorCountry,
		CreditorIBAN:    iban.Normalize(in.CreditorIBAN),
		CreditorBIC:     bic,
		ExecutionDate:   in.ExecutionDate,
		Currency:        currency,
	})
	b.total = b.total.Add(amount)

	b.logger.Debugf("added transaction %d: %s %s to %s", len(b.transactions), amount.StringFixed(2), currency, in.CreditorIBAN)

	return b, nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// DebtorIBAN returns the normalized debtor IBAN.
func (b *Batch) DebtorIBAN() string { return b.debtorIBAN }

// DebtorBIC returns the debtor BIC.
func (b *Batch) DebtorBIC() string { return b.debtorBIC }

// Len returns the number of transactions.
func (b *Batch) Len() int { return len(b.transactions) }

// Total returns the exact sum of all transaction amounts.
func (b *Batch) Total() decimal.Decimal { return b.total }

// Transactions returns a copy of the transactions in insertion order.
func (b *Batch) Transactions() []Transaction {
	out := make([]Transaction, len(b.transactions))
	copy(out, b.transactions)
	return out
}

// ParseAmount parses a transfer amount such as "100" or "100.50".
// Anything else yields ErrInvalidAmountFormat.
func ParseAmount(s string) (decimal.Decimal, error) {
	if !amountPattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmountFormat, s)
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmountFormat, s)
	}

	return amount, nil
}

// truncate cuts s to at most limit characters (runes, not bytes).
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
