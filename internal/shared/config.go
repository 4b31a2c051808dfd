package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	StaticDir   string

	UpstreamTimeout time.Duration
	UpstreamRPS     int
	ResultLimit     int
	SearchTimeout   time.Duration

	RedisAddr string
	RedisPass string
	RedisDB   int
	CacheTTL  time.Duration

	// go-sql-driver DSN; parseTime=true is added at startup when missing
	MySQLDSN string

	EmailClientID     string
	EmailClientSecret string
	EmailTenantID     string
	EmailSender       string
	EmailBCC          string
	EmailTokenURL     string
	EmailGraphBaseURL string

	GeocodingKey     string
	GeocodingBaseURL string
	IPGeoKey         string
	IPGeoBaseURL     string
	HotelAPIKey      string
	HotelAPIBaseURL  string
	HotelAPIHost     string
	CurrencyBaseURL  string
	SheetyBaseURL    string

	FlightTrackerURL string
}

// required lists the credentials the server cannot start without.
var required = []string{
	"EMAIL_CLIENT_ID",
	"EMAIL_CLIENT_SECRET",
	"EMAIL_TENANT_ID",
	"GEOCODING_API_KEY",
	"SHEETY_BASE_URL",
	"HOTEL_API_KEY",
}

// Load reads the environment, after applying an optional .env file, and reports every
// missing required value in one error.
func Load() (Config, error) {
	_ = godotenv.Load()
	return load()
}

// LoadOptional is Load without the required-credential check, for clients of the proxy.
func LoadOptional() Config {
	_ = godotenv.Load()
	c, _ := load()
	return c
}

func load() (Config, error) {
	var bad []string
	atoi := func(k string, def int) int {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			bad = append(bad, k+" (not an integer)")
			return def
		}
		return n
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		StaticDir:   env("STATIC_DIR", "./public"),

		UpstreamTimeout: time.Duration(atoi("UPSTREAM_TIMEOUT_SECONDS", 30)) * time.Second,
		UpstreamRPS:     atoi("UPSTREAM_RPS", 5),
		ResultLimit:     atoi("RESULT_LIMIT", 10),
		SearchTimeout:   time.Duration(atoi("SEARCH_TIMEOUT_SECONDS", 90)) * time.Second,

		RedisAddr: env("REDIS_ADDR", ""),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		CacheTTL:  time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		MySQLDSN: env("MYSQL_DSN", ""),

		EmailClientID:     os.Getenv("EMAIL_CLIENT_ID"),
		EmailClientSecret: os.Getenv("EMAIL_CLIENT_SECRET"),
		EmailTenantID:     os.Getenv("EMAIL_TENANT_ID"),
		EmailSender:       env("EMAIL_SENDER", "bookings@hotel-finder.app"),
		EmailBCC:          env("EMAIL_BCC", "leads@hotel-finder.app"),
		EmailTokenURL:     env("EMAIL_TOKEN_URL", ""),
		EmailGraphBaseURL: env("EMAIL_GRAPH_BASE_URL", ""),

		GeocodingKey:     os.Getenv("GEOCODING_API_KEY"),
		GeocodingBaseURL: env("GEOCODING_BASE_URL", ""),
		IPGeoKey:         os.Getenv("IPGEOLOCATION_API_KEY"),
		IPGeoBaseURL:     env("IPGEOLOCATION_BASE_URL", ""),
		HotelAPIKey:      os.Getenv("HOTEL_API_KEY"),
		HotelAPIBaseURL:  env("HOTEL_API_BASE_URL", ""),
		HotelAPIHost:     env("HOTEL_API_HOST", ""),
		CurrencyBaseURL:  env("CURRENCY_BASE_URL", ""),
		SheetyBaseURL:    os.Getenv("SHEETY_BASE_URL"),

		FlightTrackerURL: env("FLIGHT_TRACKER_URL", ""),
	}

	for _, k := range required {
		if strings.TrimSpace(os.Getenv(k)) == "" {
			bad = append(bad, k)
		}
	}
	if c.UpstreamTimeout <= 0 {
		bad = append(bad, "UPSTREAM_TIMEOUT_SECONDS (must be positive)")
	}
	if c.SearchTimeout <= 0 {
		bad = append(bad, "SEARCH_TIMEOUT_SECONDS (must be positive)")
	}
	if len(bad) > 0 {
		return c, fmt.Errorf("configuration: missing or invalid %s", strings.Join(bad, ", "))
	}
	return c, nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
