package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName string
	ServerPort  int
	Environment string
	LogLevel    string

	DatabaseURL string

	JWTAccessSecret  []byte
	JWTRefreshSecret []byte
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	BcryptCost   int
	CookieSecure bool

	AllowedOrigins []string
	// TrustedProxies are the peers whose X-Forwarded-For is believed. Empty
	// means the client address is the TCP peer.
	TrustedProxies []*net.IPNet

	RedisURL string

	KafkaBrokers []string
	KafkaTopic   string

	LoginRatePerSec int
	LoginRateBurst  int
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads configuration from the environment. Missing signing secrets,
// identical secrets and unparsable numeric settings are errors.
func Load() (Config, error) {
	cfg := Config{
		ServiceName: EnvDefault("SERVICE_NAME", "mentor-portal"),
		Environment: strings.ToLower(EnvDefault("APP_ENV", "development")),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTAccessSecret:  []byte(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),

		AllowedOrigins: CSV(os.Getenv("CORS_ALLOWED_ORIGINS")),

		RedisURL: os.Getenv("REDIS_URL"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvDefault("KAFKA_TOPIC", "identity_events"),
	}

	if err := RequireSecrets(cfg.JWTAccessSecret, cfg.JWTRefreshSecret); err != nil {
		return Config{}, err
	}

	var err error
	if cfg.ServerPort, err = EnvInt("SERVER_PORT", 8080); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = EnvInt("BCRYPT_COST", 12); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = EnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = EnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.LoginRatePerSec, err = EnvInt("LOGIN_RATE_PER_SEC", 5); err != nil {
		return Config{}, err
	}
	if cfg.LoginRateBurst, err = EnvInt("LOGIN_RATE_BURST", 10); err != nil {
		return Config{}, err
	}
	if cfg.CookieSecure, err = EnvBool("COOKIE_SECURE", cfg.IsProduction()); err != nil {
		return Config{}, err
	}
	if cfg.TrustedProxies, err = EnvCIDRs("TRUSTED_PROXIES"); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL >= cfg.RefreshTokenTTL {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_TTL (%s) must be shorter than REFRESH_TOKEN_TTL (%s)", cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	}

	return cfg, nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EnvCIDRs parses a comma separated list of CIDRs. A bare IP is taken as a
// single host range.
func EnvCIDRs(key string) ([]*net.IPNet, error) {
	var out []*net.IPNet
	for _, v := range CSV(os.Getenv(key)) {
		if ip := net.ParseIP(v); ip != nil {
			bits := 8 * net.IPv6len
			if ip4 := ip.To4(); ip4 != nil {
				ip, bits = ip4, 8*net.IPv4len
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", key, v, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func EnvDefault(key, def string) string {
	if os.Getenv(key) != "" {
		return os.Getenv(key)
	}
	return def
}

func EnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func EnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return d, nil
}

func EnvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
