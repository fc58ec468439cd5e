package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	c := &RazorpayClient{keySecret: "test-secret"}

	good := sign("test-secret", "order_ABC123", "pay_XYZ789")
	require.NoError(t, c.VerifySignature("order_ABC123", "pay_XYZ789", good))

	assert.ErrorIs(t, c.VerifySignature("order_ABC123", "pay_XYZ789", "tampered"),
		ErrSignatureMismatch)

	// signature for a different payment must not verify
	other := sign("test-secret", "order_ABC123", "pay_OTHER")
	assert.ErrorIs(t, c.VerifySignature("order_ABC123", "pay_XYZ789", other),
		ErrSignatureMismatch)

	// wrong secret must not verify
	wrongKey := sign("other-secret", "order_ABC123", "pay_XYZ789")
	assert.ErrorIs(t, c.VerifySignature("order_ABC123", "pay_XYZ789", wrongKey),
		ErrSignatureMismatch)
}

func TestToPaise(t *testing.T) {
	assert.Equal(t, int64(49900), ToPaise(decimal.RequireFromString("499.00")))
	assert.Equal(t, int64(100), ToPaise(decimal.RequireFromString("1")))
	assert.Equal(t, int64(2708), ToPaise(decimal.RequireFromString("27.075")))
	assert.Equal(t, int64(0), ToPaise(decimal.Zero))
}
