// Package config loads Faraabin's boot-time configuration from an
// embedded JSON blob, parsed with tinyjson the same way the teacher's
// services/config package parses its embedded device configs.
package config

import (
	"errors"

	"github.com/andreyvit/tinyjson"

	"faraabin/x/strx"
)

// BootConfig is the set of values spec.md §3 lifecycle step 2 needs
// before init() can construct the MCU singleton and link handler.
type BootConfig struct {
	FeatureDefaultDataBus      bool
	FeatureDefaultEventGroup   bool
	FeatureMcuCLI              bool
	FeatureBufferOverflowNotify bool
	FeaturePassword            bool
	FeatureCPUProfiler         bool
	FeatureStateMachine        bool
	FeatureUnity               bool
	FeatureAllowBlockingDict   bool

	Password uint32

	RxBufferSize int
	TxRingSize   int
	LiveTimeoutMs uint32

	FirmwareName string
	FirmwareInfo string
}

// Default returns the conservative boot configuration used when no
// embedded blob is present (e.g. cmd/hostsim).
func Default() BootConfig {
	return BootConfig{
		RxBufferSize:  256,
		TxRingSize:    1024,
		LiveTimeoutMs: 5000,
		FirmwareName:  "faraabin-device",
		FirmwareInfo:  "{}",
	}
}

// Parse decodes raw as a JSON object the same shape BootConfig exposes,
// following the teacher's tinyjson.Raw/Value/EnsureEOF pattern. Unknown
// keys are ignored; missing keys keep Default()'s values.
func Parse(raw []byte) (BootConfig, error) {
	cfg := Default()
	if len(raw) == 0 {
		return cfg, nil
	}
	r := tinyjson.Raw(raw)
	val := r.Value()
	if err := r.EnsureEOF(); err != nil {
		return cfg, err
	}
	m, ok := val.(map[string]any)
	if !ok {
		return cfg, errors.New("config: embedded config is not a JSON object")
	}

	boolField := func(key string, dst *bool) {
		if v, ok := m[key].(bool); ok {
			*dst = v
		}
	}
	numField := func(key string) (float64, bool) {
		v, ok := m[key].(float64)
		return v, ok
	}
	strField := func(key string, dst *string) {
		if v, ok := m[key].(string); ok {
			*dst = strx.Coalesce(v, *dst)
		}
	}

	boolField("default_databus", &cfg.FeatureDefaultDataBus)
	boolField("default_event_group", &cfg.FeatureDefaultEventGroup)
	boolField("mcu_cli", &cfg.FeatureMcuCLI)
	boolField("buffer_overflow_notify", &cfg.FeatureBufferOverflowNotify)
	boolField("password", &cfg.FeaturePassword)
	boolField("cpu_profiler", &cfg.FeatureCPUProfiler)
	boolField("state_machine", &cfg.FeatureStateMachine)
	boolField("unity", &cfg.FeatureUnity)
	boolField("allow_blocking_dict", &cfg.FeatureAllowBlockingDict)

	if v, ok := numField("password_value"); ok {
		cfg.Password = uint32(v)
	}
	if v, ok := numField("rx_buffer_size"); ok {
		cfg.RxBufferSize = int(v)
	}
	if v, ok := numField("tx_ring_size"); ok {
		cfg.TxRingSize = int(v)
	}
	if v, ok := numField("live_timeout_ms"); ok {
		cfg.LiveTimeoutMs = uint32(v)
	}
	strField("firmware_name", &cfg.FirmwareName)
	strField("firmware_info", &cfg.FirmwareInfo)

	return cfg, nil
}
