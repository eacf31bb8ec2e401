package embedding

import (
	"strings"

	"github.com/kestrel-retail/discovery-engine/internal/config"
	"github.com/kestrel-retail/discovery-engine/internal/logger"
)

// New wires the deterministic fallback behind the network provider unless
// the operator has pinned EMBEDDING_MODEL_TAG to the fallback itself, in
// which case the network hop is skipped entirely.
func New(cfg config.EmbedConfig, log *logger.Logger) Provider {
	fallback := NewDeterministicProvider(cfg.Dim)
	if strings.EqualFold(strings.TrimSpace(cfg.Model), "deterministic-fallback-v1") {
		return fallback
	}
	return NewNetworkProvider(log, NetworkConfig{
		BaseURL:     cfg.ServiceURL,
		Model:       cfg.Model,
		ColdTimeout: cfg.ColdTimeout,
		WarmTimeout: cfg.WarmTimeout,
		QPS:         20,
	}, fallback)
}
