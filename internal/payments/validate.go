package payments

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Limits are the practice-level validation bounds for a charge.
type Limits struct {
	Currency  string
	MinAgorot int64
	MaxAgorot int64
}

// validateRequest fails fast on malformed charges, before any provider
// is touched. Card errors never echo the card fields back.
func validateRequest(req Request, limits Limits, now time.Time) error {
	if !req.Method.valid() {
		return fmt.Errorf("%w: unknown method %q", ErrInvalidPaymentData, req.Method)
	}
	if req.AmountAgorot < limits.MinAgorot || req.AmountAgorot > limits.MaxAgorot {
		return fmt.Errorf("%w: amount %d out of range [%d, %d]",
			ErrInvalidPaymentData, req.AmountAgorot, limits.MinAgorot, limits.MaxAgorot)
	}
	if !strings.EqualFold(strings.TrimSpace(req.Currency), limits.Currency) {
		return fmt.Errorf("%w: currency must be %s", ErrInvalidPaymentData, limits.Currency)
	}
	if strings.TrimSpace(req.ClientName) == "" {
		return fmt.Errorf("%w: client name is required", ErrInvalidPaymentData)
	}
	if req.Method == MethodCreditCard {
		return validateCard(req.Card, now)
	}
	return nil
}

func validateCard(card *CardDetails, now time.Time) error {
	if card == nil {
		return fmt.Errorf("%w: card details are required for credit_card", ErrInvalidPaymentData)
	}
	number := digitsOnly(card.Number)
	if number == "" || strings.TrimSpace(card.CVV) == "" || strings.TrimSpace(card.HolderName) == "" {
		return fmt.Errorf("%w: card number, cvv and holder name are required", ErrInvalidPaymentData)
	}
	if len(number) < 12 || len(number) > 19 || !luhnValid(number) {
		return fmt.Errorf("%w: card number failed checksum", ErrInvalidPaymentData)
	}
	if !cvvValid(card.CVV) {
		return fmt.Errorf("%w: cvv must be 3 or 4 digits", ErrInvalidPaymentData)
	}
	if !expiryInFuture(card.ExpiryYear, card.ExpiryMonth, now) {
		return fmt.Errorf("%w: card is expired", ErrInvalidPaymentData)
	}
	return nil
}

// expiryInFuture requires the expiry to be strictly after the current
// month; a card expiring this month is still accepted, as issuers treat
// the card as valid through the end of that month.
func expiryInFuture(year, month int, now time.Time) bool {
	if month < 1 || month > 12 {
		return false
	}
	if year < 100 {
		year += 2000
	}
	if year > now.Year() {
		return true
	}
	if year < now.Year() {
		return false
	}
	return month >= int(now.Month())
}

func cvvValid(cvv string) bool {
	cvv = strings.TrimSpace(cvv)
	if len(cvv) < 3 || len(cvv) > 4 {
		return false
	}
	for _, r := range cvv {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func luhnValid(digits string) bool {
	sum := 0
	alt := false
	for i := len(digits) - 1; i >= 0; i-- {
		r := rune(digits[i])
		if !unicode.IsDigit(r) {
			return false
		}
		n := int(r - '0')
		if alt {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		alt = !alt
	}
	return sum%10 == 0
}

// maskedPAN returns a log-safe form of a card number: last four digits
// only.
func maskedPAN(number string) string {
	digits := digitsOnly(number)
	if len(digits) <= 4 {
		return "****"
	}
	return "****" + digits[len(digits)-4:]
}
