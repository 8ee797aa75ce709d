package config

import (
	"os"
	"path/filepath"
	"testing"
)

const minimalYAML = `
environment: test
bybit:
  rest_url: https://api.bybit.com
  symbols: [BTCUSDT, ETHUSDT]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesEngineDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := cfg.Engine
	if e.EMAShortPeriod != 10 || e.EMALongPeriod != 30 {
		t.Fatalf("EMA defaults not applied: %d/%d", e.EMAShortPeriod, e.EMALongPeriod)
	}
	if e.OscillatorPeriod != 14 || e.ATRPeriod != 14 || e.MFIPeriod != 14 {
		t.Fatalf("period defaults not applied: %+v", e)
	}
	if e.MinCandles != 10 || e.CandleLimit != 200 {
		t.Fatalf("candle defaults not applied: %d/%d", e.MinCandles, e.CandleLimit)
	}
	if e.Leverage != 20 {
		t.Fatalf("leverage default not applied: %v", e.Leverage)
	}
	if e.ROI.ReversionThreshold != -30 || e.ROI.TakeProfitThreshold != 100 {
		t.Fatalf("ROI defaults not applied: %+v", e.ROI)
	}
	if e.Reactivation.MinMatchRatio != 60 || e.Reactivation.MinTechnicalScore != 55 {
		t.Fatalf("reactivation defaults not applied: %+v", e.Reactivation)
	}
}

func TestLoadKeepsExplicitTunables(t *testing.T) {
	body := minimalYAML + `
engine:
  ema_short_period: 8
  leverage: 10
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.EMAShortPeriod != 8 {
		t.Fatalf("explicit period overwritten: %d", cfg.Engine.EMAShortPeriod)
	}
	if cfg.Engine.Leverage != 10 {
		t.Fatalf("explicit leverage overwritten: %v", cfg.Engine.Leverage)
	}
	// The rest still defaults.
	if cfg.Engine.EMALongPeriod != 30 {
		t.Fatalf("default not applied next to overrides: %d", cfg.Engine.EMALongPeriod)
	}
}

func TestLoadRejectsBadWeights(t *testing.T) {
	body := minimalYAML + `
engine:
  weights:
    trend: 0.5
    momentum: 0.5
    divergence: 0.2
    structure: 0.1
    volatility: 0.05
    micro: 0.15
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected weight-sum validation error")
	}
}

func TestLoadRequiresEnvironment(t *testing.T) {
	body := `
bybit:
  rest_url: https://api.bybit.com
  symbols: [BTCUSDT]
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected missing environment error")
	}
}

func TestLoadRequiresSymbols(t *testing.T) {
	body := `
environment: test
bybit:
  rest_url: https://api.bybit.com
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected missing symbols error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SYMBOLS", "SOLUSDT,XRPUSDT")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Bybit.Symbols) != 2 || cfg.Bybit.Symbols[0] != "SOLUSDT" {
		t.Fatalf("SYMBOLS override not applied: %v", cfg.Bybit.Symbols)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Fatalf("REDIS_ADDR override not applied: %q", cfg.Redis.Addr)
	}
}
