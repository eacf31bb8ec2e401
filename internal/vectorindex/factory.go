package vectorindex

import (
	"strings"

	"github.com/kestrel-retail/discovery-engine/internal/config"
	"github.com/kestrel-retail/discovery-engine/internal/logger"
)

// New selects a backend by VECTOR_INDEX_BACKEND. Any ANN backend substituted
// for the linear scan must preserve cosine ordering within a small epsilon.
func New(cfg config.VectorConfig, log *logger.Logger) (Index, error) {
	switch strings.ToLower(cfg.Backend) {
	case "qdrant":
		return NewQdrantIndex(log, QdrantConfig{URL: cfg.QdrantURL, Collection: cfg.Collection})
	default:
		return NewMemoryIndex(), nil
	}
}
