package wompi_test

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/serviexpress/backend/internal/config"
	"github.com/serviexpress/backend/internal/services/wompi"
)

func testService() *wompi.Service {
	return wompi.New(config.WompiConfig{
		PublicKey:        "pub_test_abc",
		IntegritySecret:  "test_integrity_secret",
		EventsSecret:     "test_events_secret",
		Currency:         "COP",
		RedirectURL:      "https://front.example/pago/resultado",
		DeliveryFeeCents: 1000000,
		MinAmountCents:   500000,
		ExpirationMin:    20,
	})
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestToCents(t *testing.T) {
	svc := testService()
	require.Equal(t, int64(8000000), svc.ToCents(80000))
	require.Equal(t, int64(0), svc.ToCents(0))
}

func TestTotalCentsAddsDeliveryFee(t *testing.T) {
	svc := testService()
	require.Equal(t, int64(9000000), svc.TotalCents(8000000))
}

func TestTotalCentsEnforcesMinimum(t *testing.T) {
	svc := testService()
	// base 0 + fee 1.000.000 ya supera el mínimo
	require.Equal(t, int64(1000000), svc.TotalCents(0))

	sinFee := wompi.New(config.WompiConfig{
		Currency:       "COP",
		MinAmountCents: 500000,
	})
	require.Equal(t, int64(500000), sinFee.TotalCents(100))
}

func TestBuildReference(t *testing.T) {
	svc := testService()
	ref := svc.BuildReference(42)
	require.True(t, strings.HasPrefix(ref, "SOL-42-"))
	require.Len(t, strings.Split(ref, "-"), 3)
}

func TestExpirationISO(t *testing.T) {
	svc := testService()
	now := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	require.Equal(t, "2025-03-10T14:50:00.000Z", svc.ExpirationISO(now))
}

func TestIntegritySignature(t *testing.T) {
	svc := testService()
	got := svc.IntegritySignature("SOL-7-1700000000000", 9000000)
	want := sha256Hex("SOL-7-17000000000009000000COP" + "test_integrity_secret")
	require.Equal(t, want, got)
}

func TestIntegritySignatureWithExpiration(t *testing.T) {
	svc := testService()
	exp := "2025-03-10T14:50:00.000Z"
	got := svc.IntegritySignatureWithExpiration("SOL-7-1700000000000", 9000000, exp)
	want := sha256Hex("SOL-7-17000000000009000000COP" + exp + "test_integrity_secret")
	require.Equal(t, want, got)
}

func TestCheckoutURL(t *testing.T) {
	svc := testService()
	raw := svc.CheckoutURL("SOL-7-1700000000000", 9000000, "2025-03-10T14:50:00.000Z", "firma123")

	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	require.Equal(t, "pub_test_abc", q.Get("public-key"))
	require.Equal(t, "COP", q.Get("currency"))
	require.Equal(t, "9000000", q.Get("amount-in-cents"))
	require.Equal(t, "SOL-7-1700000000000", q.Get("reference"))
	require.Equal(t, "firma123", q.Get("signature:integrity"))
	require.Equal(t, "2025-03-10T14:50:00.000Z", q.Get("expiration-time"))
	require.Equal(t, "https://front.example/pago/resultado", q.Get("redirect-url"))
}

func TestEventChecksum(t *testing.T) {
	svc := testService()
	values := []string{"trx-1", "APPROVED", "9000000"}
	got := svc.EventChecksum(values, 1700000000)
	want := sha256Hex("trx-1APPROVED90000001700000000" + "test_events_secret")
	require.Equal(t, want, got)
}

func TestValidateEventChecksum(t *testing.T) {
	svc := testService()
	values := []string{"trx-1", "APPROVED", "9000000"}
	good := svc.EventChecksum(values, 1700000000)

	require.True(t, svc.ValidateEventChecksum(good, values, 1700000000))
	require.False(t, svc.ValidateEventChecksum("deadbeef", values, 1700000000))
	require.False(t, svc.ValidateEventChecksum(good, values, 1700000001))
}

func TestNewDefaults(t *testing.T) {
	svc := wompi.New(config.WompiConfig{})
	require.Equal(t, "COP", svc.Currency())

	raw := svc.CheckoutURL("SOL-1-1", 500000, "", "x")
	require.True(t, strings.HasPrefix(raw, "https://checkout.wompi.co/p/?"))
}
