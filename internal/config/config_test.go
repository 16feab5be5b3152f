package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	t.Setenv("HASH_SECRET", "hash-secret-32-characters-long!!")
	t.Setenv("DB_PASSWORD", "test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Hash.Lanes != 8 || cfg.Hash.TimeCost != 10 || cfg.Hash.MemoryKiB != 2048 {
		t.Errorf("argon defaults: got lanes=%d time=%d memory=%d, want 8/10/2048",
			cfg.Hash.Lanes, cfg.Hash.TimeCost, cfg.Hash.MemoryKiB)
	}
	if cfg.Security.AllowedFailedLoginAttempts != 50 {
		t.Errorf("AllowedFailedLoginAttempts: got %d, want 50", cfg.Security.AllowedFailedLoginAttempts)
	}

	durations := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"AccountLockDuration", cfg.Security.AccountLockDuration, 24 * time.Hour},
		{"PasswordResetTimePeriod", cfg.Security.PasswordResetTimePeriod, time.Hour},
		{"JWTExpiration", cfg.JWT.Expiration, 24 * time.Hour},
		{"ReadTimeout", cfg.Server.ReadTimeout, 15 * time.Second},
		{"WriteTimeout", cfg.Server.WriteTimeout, 15 * time.Second},
		{"IdleTimeout", cfg.Server.IdleTimeout, 60 * time.Second},
	}

	for _, tt := range durations {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ARGON_LANES", "2")
	t.Setenv("ARGON_TIME_COST", "3")
	t.Setenv("ARGON_MEMORY", "65536")
	t.Setenv("ALLOWED_FAILED_LOGIN_ATTEMPTS", "5")
	t.Setenv("ACCOUNT_LOCK_DURATION", "30m")
	t.Setenv("SERVER_READ_TIMEOUT", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Hash.Lanes != 2 || cfg.Hash.TimeCost != 3 || cfg.Hash.MemoryKiB != 65536 {
		t.Errorf("argon params not applied: %+v", cfg.Hash)
	}
	if cfg.Security.AllowedFailedLoginAttempts != 5 {
		t.Errorf("AllowedFailedLoginAttempts: got %d, want 5", cfg.Security.AllowedFailedLoginAttempts)
	}
	if cfg.Security.AccountLockDuration != 30*time.Minute {
		t.Errorf("AccountLockDuration: got %v, want 30m", cfg.Security.AccountLockDuration)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout: got %v, want 30s", cfg.Server.ReadTimeout)
	}
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PASSWORD_RESET_TIME_PERIOD", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Security.PasswordResetTimePeriod != time.Hour {
		t.Errorf("PasswordResetTimePeriod: got %v, want fallback 1h", cfg.Security.PasswordResetTimePeriod)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing hash secret",
			env:     map[string]string{"HASH_SECRET": ""},
			wantErr: "HASH_SECRET is required",
		},
		{
			name:    "short jwt secret",
			env:     map[string]string{"JWT_SECRET": "short"},
			wantErr: "JWT_SECRET must be at least",
		},
		{
			name:    "zero lanes",
			env:     map[string]string{"ARGON_LANES": "0"},
			wantErr: "ARGON_LANES",
		},
		{
			name:    "memory below lane minimum",
			env:     map[string]string{"ARGON_LANES": "8", "ARGON_MEMORY": "32"},
			wantErr: "ARGON_MEMORY",
		},
		{
			name:    "email without sender",
			env:     map[string]string{"EMAIL_ENABLED": "true"},
			wantErr: "EMAIL_FROM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatalf("Load() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseAllowedOrigins_Explicit(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	origins := parseAllowedOrigins("production")
	if len(origins) != 2 || origins[1] != "https://b.example" {
		t.Errorf("parseAllowedOrigins() = %v", origins)
	}
}

func TestParseList(t *testing.T) {
	got := parseList(" 10.0.0.0/8, ,127.0.0.1/32 ")
	if len(got) != 2 || got[0] != "10.0.0.0/8" || got[1] != "127.0.0.1/32" {
		t.Errorf("parseList() = %v", got)
	}
	if parseList("") != nil {
		t.Errorf("parseList(\"\") should be nil")
	}
}
