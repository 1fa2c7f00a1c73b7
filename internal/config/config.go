package config

import (
	"os"
	"strconv"
)

type Config struct {
	AppPort       string
	DBDSN         string
	JWTSecret     string
	JWTExpiresMin int

	GoogleClientID string
	GoogleSecret   string
	GoogleRedirect string

	FrontendBaseURL string

	Wompi WompiConfig
}

// WompiConfig holds the gateway integration properties. The integrity
// secret signs checkout references; the events secret verifies webhooks.
type WompiConfig struct {
	PublicKey        string
	IntegritySecret  string
	EventsSecret     string
	Currency         string
	RedirectURL      string
	CheckoutBaseURL  string
	DeliveryFeeCents int64
	MinAmountCents   int64
	ExpirationMin    int
}

func Load() Config {
	expires, _ := strconv.Atoi(get("JWT_EXPIRES_MIN", "10080"))
	return Config{
		AppPort:       get("APP_PORT", "8080"),
		DBDSN:         must("DB_DSN"),
		JWTSecret:     must("JWT_SECRET"),
		JWTExpiresMin: expires,

		GoogleClientID: get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:   get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect: get("GOOGLE_REDIRECT_URL", ""),

		FrontendBaseURL: get("FRONTEND_BASE_URL", "http://localhost:3000"),

		Wompi: WompiConfig{
			PublicKey:        get("WOMPI_PUBLIC_KEY", ""),
			IntegritySecret:  get("WOMPI_INTEGRITY_SECRET", ""),
			EventsSecret:     get("WOMPI_EVENTS_SECRET", ""),
			Currency:         get("WOMPI_CURRENCY", "COP"),
			RedirectURL:      get("WOMPI_REDIRECT_URL", ""),
			CheckoutBaseURL:  get("WOMPI_CHECKOUT_URL", "https://checkout.wompi.co/p/"),
			DeliveryFeeCents: getInt64("WOMPI_DELIVERY_FEE_CENTS", 1000000), // $10.000 COP
			MinAmountCents:   getInt64("WOMPI_MIN_AMOUNT_CENTS", 500000),    // $5.000 COP
			ExpirationMin:    int(getInt64("WOMPI_EXPIRATION_MIN", 20)),
		},
	}
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getInt64(k string, def int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
