// Package wompi builds the data the Wompi hosted checkout needs
// (reference, amount in cents, expiration, integrity signature) and
// verifies the checksum of incoming webhook events. It makes no
// network calls.
package wompi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/serviexpress/backend/internal/config"
)

type Service struct {
	cfg config.WompiConfig
}

func New(cfg config.WompiConfig) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "COP"
	}
	if cfg.CheckoutBaseURL == "" {
		cfg.CheckoutBaseURL = "https://checkout.wompi.co/p/"
	}
	if cfg.ExpirationMin <= 0 {
		cfg.ExpirationMin = 20
	}
	return &Service{cfg: cfg}
}

func (s *Service) Currency() string  { return s.cfg.Currency }
func (s *Service) PublicKey() string { return s.cfg.PublicKey }

// ToCents converts a price in whole COP to centavos.
func (s *Service) ToCents(precio int64) int64 {
	return precio * 100
}

// TotalCents adds the delivery fee and enforces the gateway minimum.
func (s *Service) TotalCents(baseCents int64) int64 {
	total := baseCents + s.cfg.DeliveryFeeCents
	if total < s.cfg.MinAmountCents {
		total = s.cfg.MinAmountCents
	}
	return total
}

// BuildReference returns the unique transaction reference
// "SOL-{idSolicitud}-{unix millis}".
func (s *Service) BuildReference(solicitudID uint) string {
	return fmt.Sprintf("SOL-%d-%d", solicitudID, time.Now().UnixMilli())
}

// ExpirationISO formats the checkout expiration as ISO-8601 UTC with
// millisecond precision, the format Wompi expects.
func (s *Service) ExpirationISO(now time.Time) string {
	return now.UTC().Add(time.Duration(s.cfg.ExpirationMin) * time.Minute).
		Format("2006-01-02T15:04:05.000Z")
}

// IntegritySignature is the SHA-256 hex digest of
// reference + amountInCents + currency + integrity secret.
func (s *Service) IntegritySignature(reference string, amountInCents int64) string {
	base := reference + strconv.FormatInt(amountInCents, 10) + s.cfg.Currency + s.cfg.IntegritySecret
	return sha256Hex(base)
}

// IntegritySignatureWithExpiration includes the expiration timestamp in
// the signed string, required when the checkout carries an expiration.
func (s *Service) IntegritySignatureWithExpiration(reference string, amountInCents int64, expirationISO string) string {
	base := reference + strconv.FormatInt(amountInCents, 10) + s.cfg.Currency + expirationISO + s.cfg.IntegritySecret
	return sha256Hex(base)
}

// CheckoutURL assembles the hosted-checkout redirect URL.
func (s *Service) CheckoutURL(reference string, amountInCents int64, expirationISO, signature string) string {
	q := url.Values{}
	q.Set("public-key", s.cfg.PublicKey)
	q.Set("currency", s.cfg.Currency)
	q.Set("amount-in-cents", strconv.FormatInt(amountInCents, 10))
	q.Set("reference", reference)
	q.Set("signature:integrity", signature)
	if expirationISO != "" {
		q.Set("expiration-time", expirationISO)
	}
	if s.cfg.RedirectURL != "" {
		q.Set("redirect-url", s.cfg.RedirectURL)
	}
	return s.cfg.CheckoutBaseURL + "?" + q.Encode()
}

// EventChecksum computes the webhook checksum: SHA-256 over the
// concatenated signed property values, the event timestamp and the
// events secret.
func (s *Service) EventChecksum(values []string, timestamp int64) string {
	base := ""
	for _, v := range values {
		base += v
	}
	base += strconv.FormatInt(timestamp, 10) + s.cfg.EventsSecret
	return sha256Hex(base)
}

// ValidateEventChecksum verifies an incoming webhook checksum in
// constant time.
func (s *Service) ValidateEventChecksum(incoming string, values []string, timestamp int64) bool {
	expected := s.EventChecksum(values, timestamp)
	return hmac.Equal([]byte(expected), []byte(incoming))
}

func sha256Hex(base string) string {
	sum := sha256.Sum256([]byte(base))
	return hex.EncodeToString(sum[:])
}
