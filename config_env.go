package goAdmit

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ConfigFromEnv builds a Config from the process environment on top of
// [DefaultConfig]. All keys are optional:
//
//	MAX_LOGIN_ATTEMPTS       attempts before lockout (5)
//	LOCKOUT_DURATION         lockout length in minutes (15)
//	ALLOWED_IPS              comma list; empty = allow all
//	BLOCKED_IPS              comma list
//	REQUIRE_STRONG_PASSWORDS bool, consumed by the credential collaborator (true)
//	SESSION_TIMEOUT          minutes, consumed by the token collaborator (480)
//	THROTTLE_TTL             "short" window in milliseconds (60000)
//	THROTTLE_LIMIT           "short" limit (30)
//	THROTTLE_TTL_MEDIUM      "medium" window in milliseconds (300000)
//	THROTTLE_LIMIT_MEDIUM    "medium" limit (100)
//	THROTTLE_FAIL_OPEN       bool, allow on store outage for rate checks only (false)
//
// The "login" and "refresh" windows are fixed policy constants and cannot be
// tuned from the environment. A malformed value is a startup-fatal
// configuration error.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	var err error
	if cfg.Security.MaxLoginAttempts, err = getEnvAsInt("MAX_LOGIN_ATTEMPTS", cfg.Security.MaxLoginAttempts); err != nil {
		return Config{}, err
	}
	if cfg.Security.LockoutDuration, err = getEnvAsMinutes("LOCKOUT_DURATION", cfg.Security.LockoutDuration); err != nil {
		return Config{}, err
	}
	cfg.Security.AllowedIPs = getEnvAsList("ALLOWED_IPS")
	cfg.Security.BlockedIPs = getEnvAsList("BLOCKED_IPS")

	if cfg.Collaborator.RequireStrongPasswords, err = getEnvAsBool("REQUIRE_STRONG_PASSWORDS", cfg.Collaborator.RequireStrongPasswords); err != nil {
		return Config{}, err
	}
	if cfg.Collaborator.SessionTimeout, err = getEnvAsMinutes("SESSION_TIMEOUT", cfg.Collaborator.SessionTimeout); err != nil {
		return Config{}, err
	}

	short := cfg.Throttle.Windows[PurposeShort]
	if short.TTL, err = getEnvAsMillis("THROTTLE_TTL", short.TTL); err != nil {
		return Config{}, err
	}
	if short.Limit, err = getEnvAsInt("THROTTLE_LIMIT", short.Limit); err != nil {
		return Config{}, err
	}
	cfg.Throttle.Windows[PurposeShort] = short

	medium := cfg.Throttle.Windows[PurposeMedium]
	if medium.TTL, err = getEnvAsMillis("THROTTLE_TTL_MEDIUM", medium.TTL); err != nil {
		return Config{}, err
	}
	if medium.Limit, err = getEnvAsInt("THROTTLE_LIMIT_MEDIUM", medium.Limit); err != nil {
		return Config{}, err
	}
	cfg.Throttle.Windows[PurposeMedium] = medium

	if cfg.Throttle.FailOpen, err = getEnvAsBool("THROTTLE_FAIL_OPEN", cfg.Throttle.FailOpen); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getEnvAsInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrConfigInvalid, key, raw)
	}
	return n, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a boolean", ErrConfigInvalid, key, raw)
	}
	return b, nil
}

func getEnvAsMinutes(key string, fallback time.Duration) (time.Duration, error) {
	n, err := getEnvAsInt(key, int(fallback/time.Minute))
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Minute, nil
}

func getEnvAsMillis(key string, fallback time.Duration) (time.Duration, error) {
	n, err := getEnvAsInt(key, int(fallback/time.Millisecond))
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Millisecond, nil
}

func getEnvAsList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
