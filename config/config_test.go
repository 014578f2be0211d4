package config

import "testing"

func TestParseOverridesDefaults(t *testing.T) {
	raw := []byte(`{"password": true, "password_value": 1234, "rx_buffer_size": 512, "firmware_name": "acme-node"}`)
	cfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cfg.FeaturePassword || cfg.Password != 1234 {
		t.Fatalf("password config not applied: %+v", cfg)
	}
	if cfg.RxBufferSize != 512 {
		t.Fatalf("rx_buffer_size not applied: %d", cfg.RxBufferSize)
	}
	if cfg.FirmwareName != "acme-node" {
		t.Fatalf("firmware_name not applied: %q", cfg.FirmwareName)
	}
	// untouched defaults survive
	if cfg.TxRingSize != Default().TxRingSize {
		t.Fatalf("expected default tx ring size preserved")
	}
}

func TestParseEmptyReturnsDefault(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected default config for empty input")
	}
}

func TestParseRejectsNonObject(t *testing.T) {
	if _, err := Parse([]byte(`[1,2,3]`)); err == nil {
		t.Fatal("expected error for non-object JSON")
	}
}
