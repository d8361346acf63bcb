// =============================================================================
// SEPA Credit Transfer - IBAN / BIC Resolver
// =============================================================================
//
// This package validates and normalizes bank account identifiers:
//   - IBAN checksum validation (ISO 7064 mod-97-10)
//   - BIC shape validation (no registry lookup)
//   - BIC derivation from the bank code embedded in an IBAN
//
// All functions are pure. Nothing here decides whether a failure is fatal;
// that is up to the caller (see the sepa package).
//
// =============================================================================

package iban

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"unicode"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrRoutingLookupFailed is returned when no BIC can be derived from an IBAN.
var ErrRoutingLookupFailed = errors.New("routing lookup failed")

// =============================================================================
// PATTERNS
// =============================================================================

var (
	// ibanPattern is the structural precondition for the checksum:
	// country code, two check digits, alphanumeric body.
	ibanPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]+$`)

	// bicPattern: institution (4 letters), country (2 letters),
	// location (2 alnum), optional branch (3 alnum).
	bicPattern = regexp.MustCompile(`^[A-Z]{4}[A-Z]{2}[A-Z0-9]{2}([A-Z0-9]{3})?$`)

	// bankCodePattern is the 4-letter bank code at offset 4 of an IBAN.
	bankCodePattern = regexp.MustCompile(`^[A-Z]{4}$`)

	mod97 = big.NewInt(97)
)

// bankCodeOffset is the position of the bank code, right after the
// country code and check digits.
const bankCodeOffset = 4

// =============================================================================
// NORMALIZATION
// =============================================================================

// Normalize uppercases an identifier and removes all whitespace from it.
// Example: " nl91 abna 0417 1643 00" -> "NL91ABNA0417164300"
func Normalize(identifier string) string {
	var builder strings.Builder
	builder.Grow(len(identifier))

	for _, r := range identifier {
		if unicode.IsSpace(r) {
			continue
		}
		builder.WriteRune(unicode.ToUpper(r))
	}

	return builder.String()
}

// =============================================================================
// CHECKSUM
// =============================================================================

// ValidateChecksum reports whether the identifier passes the IBAN
// mod-97-10 check.
//
// ALGORITHM:
//  1. Normalize (uppercase, strip whitespace).
//  2. Move the first four characters to the end.
//  3. Replace each letter with its two-digit value (A=10 ... Z=35).
//  4. The resulting integer modulo 97 must equal 1.
//
// The numeric string is usually longer than 30 digits, so the remainder is
// computed with math/big.
func ValidateChecksum(identifier string) bool {
	normalized := Normalize(identifier)
	if !ibanPattern.MatchString(normalized) {
		return false
	}

	remainder, ok := mod97Remainder(normalized[bankCodeOffset:] + normalized[:bankCodeOffset])
	if !ok {
		return false
	}

	return remainder == 1
}

// CheckDigits computes the two check digits for a country code and a
// national body (BBAN).
// Example: CheckDigits("NL", "ABNA0417164300") -> "91"
func CheckDigits(countryCode, body string) (string, error) {
	countryCode = Normalize(countryCode)
	body = Normalize(body)

	candidate := countryCode + "00" + body
	if !ibanPattern.MatchString(candidate) {
		return "", fmt.Errorf("invalid country code or body: %q %q", countryCode, body)
	}

	remainder, ok := mod97Remainder(body + countryCode + "00")
	if !ok {
		return "", fmt.Errorf("invalid characters in body: %q", body)
	}

	return fmt.Sprintf("%02d", 98-remainder), nil
}

// mod97Remainder expands letters to digits and returns the value mod 97.
func mod97Remainder(rearranged string) (int64, bool) {
	var digits strings.Builder
	digits.Grow(len(rearranged) * 2)

	for _, r := range rearranged {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			digits.WriteString(fmt.Sprintf("%d", r-'A'+10))
		default:
			return 0, false
		}
	}

	value, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return 0, false
	}

	return new(big.Int).Mod(value, mod97).Int64(), true
}

// =============================================================================
// BIC
// =============================================================================

// ValidateBICShape reports whether code looks like a BIC. Internal whitespace
// is ignored and case does not matter. A true result says nothing about
// whether the institution actually exists.
func ValidateBICShape(code string) bool {
	return bicPattern.MatchString(Normalize(code))
}

// ResolveBIC derives the BIC for an IBAN from its embedded bank code.
//
// RETURNS:
//   - The BIC exactly as stored in the routing table.
//   - ErrRoutingLookupFailed if there is no 4-letter bank code at offset 4,
//     or if the bank code is not in the table.
func ResolveBIC(identifier string) (string, error) {
	normalized := Normalize(identifier)

	if len(normalized) < bankCodeOffset+4 {
		return "", fmt.Errorf("%w: no bank code in %q", ErrRoutingLookupFailed, identifier)
	}

	bankCode := normalized[bankCodeOffset : bankCodeOffset+4]
	if !bankCodePattern.MatchString(bankCode) {
		return "", fmt.Errorf("%w: no bank code in %q", ErrRoutingLookupFailed, identifier)
	}

	bic, ok := Lookup(bankCode)
	if !ok {
		return "", fmt.Errorf("%w: unknown bank code %q", ErrRoutingLookupFailed, bankCode)
	}

	return bic, nil
}

// Lookup returns the BIC registered for a 4-letter bank code.
// The bank code is matched case-insensitively.
func Lookup(bankCode string) (string, bool) {
	bic, ok := routingTable[strings.ToUpper(bankCode)]
	return bic, ok
}
