package payments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testLimits = Limits{Currency: "ILS", MinAgorot: 1000, MaxAgorot: 500000}

func validCard() *CardDetails {
	return &CardDetails{
		Number:      "4111111111111111",
		ExpiryMonth: 12,
		ExpiryYear:  2030,
		CVV:         "123",
		HolderName:  "Dana Levi",
	}
}

func validChargeRequest() Request {
	return Request{
		AmountAgorot: 35000,
		Currency:     "ILS",
		Method:       MethodCreditCard,
		ClientName:   "Dana Levi",
		ClientEmail:  "dana@example.com",
		Card:         validCard(),
	}
}

func TestValidateRequestAccepts(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, validateRequest(validChargeRequest(), testLimits, now))
}

func TestValidateRequestRejects(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"unknown method", func(r *Request) { r.Method = "paypal" }},
		{"amount below minimum", func(r *Request) { r.AmountAgorot = 999 }},
		{"amount above maximum", func(r *Request) { r.AmountAgorot = 500001 }},
		{"wrong currency", func(r *Request) { r.Currency = "USD" }},
		{"missing client name", func(r *Request) { r.ClientName = "  " }},
		{"missing card", func(r *Request) { r.Card = nil }},
		{"luhn failure", func(r *Request) { r.Card.Number = "4111111111111112" }},
		{"card too short", func(r *Request) { r.Card.Number = "41111111111" }},
		{"bad cvv", func(r *Request) { r.Card.CVV = "12" }},
		{"expired card", func(r *Request) { r.Card.ExpiryYear = 2025 }},
		{"bad month", func(r *Request) { r.Card.ExpiryMonth = 13 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validChargeRequest()
			tt.mutate(&req)
			err := validateRequest(req, testLimits, now)
			require.ErrorIs(t, err, ErrInvalidPaymentData)
		})
	}
}

func TestValidateRequestCashSkipsCard(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	req := validChargeRequest()
	req.Method = MethodCash
	req.Card = nil
	require.NoError(t, validateRequest(req, testLimits, now))
}

func TestExpiryInFuture(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	require.True(t, expiryInFuture(2026, 3, now), "current month is still valid")
	require.True(t, expiryInFuture(2027, 1, now))
	require.True(t, expiryInFuture(30, 1, now), "two-digit years are 20xx")
	require.False(t, expiryInFuture(2026, 2, now))
	require.False(t, expiryInFuture(2025, 12, now))
}

func TestMaskedPAN(t *testing.T) {
	require.Equal(t, "****1111", maskedPAN("4111 1111 1111 1111"))
	require.Equal(t, "****", maskedPAN("123"))
}
