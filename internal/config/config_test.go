package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Currency != "ILS" {
		t.Errorf("expected default currency ILS, got %s", cfg.Currency)
	}
	if cfg.CancellationWindow != 24*time.Hour {
		t.Errorf("expected 24h cancellation window, got %s", cfg.CancellationWindow)
	}
	if cfg.BookingLookaheadDays != 30 {
		t.Errorf("expected 30 day lookahead, got %d", cfg.BookingLookaheadDays)
	}
	if cfg.PaymentGateway != "meshulam" {
		t.Errorf("expected default gateway meshulam, got %s", cfg.PaymentGateway)
	}
	if cfg.AllowSimulatedPayments {
		t.Error("simulated payments must be off by default")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PAYMENT_GATEWAY", "Tranzila ")
	t.Setenv("PAYMENT_MIN_AGOROT", "2500")
	t.Setenv("CANCELLATION_WINDOW", "48h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.tipulhub.io, https://admin.tipulhub.io")

	cfg := Load()

	if cfg.PaymentGateway != "tranzila" {
		t.Errorf("expected normalized gateway tranzila, got %q", cfg.PaymentGateway)
	}
	if cfg.PaymentMinAgorot != 2500 {
		t.Errorf("expected min 2500 agorot, got %d", cfg.PaymentMinAgorot)
	}
	if cfg.CancellationWindow != 48*time.Hour {
		t.Errorf("expected 48h window, got %s", cfg.CancellationWindow)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected 2 CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.CORSAllowedOrigins[1] != "https://admin.tipulhub.io" {
		t.Errorf("unexpected origin: %s", cfg.CORSAllowedOrigins[1])
	}
}
