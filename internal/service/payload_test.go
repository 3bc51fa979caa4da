package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evelansk/grouppassbot/internal/models"
)

func TestPaymentPayloadRoundTrip(t *testing.T) {
	p := NewPaymentPayload(42, 777, models.PaymentPartial, 3, 2025, 9)

	parsed, err := ParsePaymentPayload(p.Encode())
	require.NoError(t, err)
	require.Equal(t, p, parsed)
}

func TestPaymentPayloadRenewalAnchor(t *testing.T) {
	end := time.Date(2025, time.April, 5, 23, 59, 59, 0, time.UTC)
	p := NewPaymentPayload(1, 2, models.PaymentRenewal, 3, 2025, 0)
	p.RenewalEnd = end.Unix()

	parsed, err := ParsePaymentPayload(p.Encode())
	require.NoError(t, err)

	anchor := parsed.RenewalAnchor()
	require.NotNil(t, anchor)
	require.Equal(t, end.Unix(), anchor.Unix())
}

func TestPaymentPayloadNoAnchorWhenZero(t *testing.T) {
	p := NewPaymentPayload(1, 2, models.PaymentFull, 3, 2025, 0)
	parsed, err := ParsePaymentPayload(p.Encode())
	require.NoError(t, err)
	require.Nil(t, parsed.RenewalAnchor())
}

func TestParsePaymentPayloadRejectsMalformed(t *testing.T) {
	valid := NewPaymentPayload(42, 777, models.PaymentFull, 3, 2025, 0).Encode()

	cases := map[string]string{
		"empty":              "",
		"garbage":            "hello world",
		"wrong version":      strings.Replace(valid, "v1:", "v2:", 1),
		"truncated":          "v1:plan:42:user:777:type:full",
		"extra segment":      valid + ":extra",
		"bad plan id":        strings.Replace(valid, "plan:42", "plan:abc", 1),
		"zero plan id":       strings.Replace(valid, "plan:42", "plan:0", 1),
		"negative user":      strings.Replace(valid, "user:777", "user:-5", 1),
		"unknown type":       strings.Replace(valid, "type:full", "type:lifetime", 1),
		"month out of range": strings.Replace(valid, "month:3", "month:13", 1),
		"swapped labels":     strings.Replace(valid, "plan:42", "user:42", 1),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePaymentPayload(raw)
			require.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestParsePaymentPayloadRejectsEmptyNonce(t *testing.T) {
	p := NewPaymentPayload(1, 2, models.PaymentFull, 3, 2025, 0)
	p.Nonce = ""
	_, err := ParsePaymentPayload(p.Encode())
	require.ErrorIs(t, err, ErrMalformedPayload)
}
