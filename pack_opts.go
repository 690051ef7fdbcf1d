package mpak

import "log/slog"

// packConfig holds configuration for a single pack operation.
type packConfig struct {
	config
	tags map[string]string
}

func defaultPackConfig() packConfig {
	return packConfig{config: defaultConfig()}
}

// PackOption configures a pack operation.
type PackOption func(*packConfig)

// PackWithTags sets the archive's tag map: arbitrary string metadata
// recorded in the header. Keys are unique; insertion order is not
// preserved.
func PackWithTags(tags map[string]string) PackOption {
	return func(cfg *packConfig) { cfg.tags = tags }
}

// PackWithTransform sets the per-chunk transform applied to file bytes
// as they are appended. Defaults to Identity; the recorded entry size
// must match the transformed payload length, so only length-preserving
// transforms are valid here.
func PackWithTransform(t Transform) PackOption {
	return func(cfg *packConfig) {
		if t != nil {
			cfg.transform = t
		}
	}
}

// PackWithMaxChunkSize bounds the transfer buffer in bytes. Values <= 0
// use DefaultMaxChunkSize.
func PackWithMaxChunkSize(n int) PackOption {
	return func(cfg *packConfig) {
		if n > 0 {
			cfg.maxChunk = n
		}
	}
}

// PackWithLogger sets the logger for skip diagnostics. Defaults to
// discard.
func PackWithLogger(logger *slog.Logger) PackOption {
	return func(cfg *packConfig) { cfg.logger = logger }
}
