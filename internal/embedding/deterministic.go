package embedding

import (
	"context"
	"math"
	"strings"

	"github.com/kestrel-retail/discovery-engine/internal/vectorindex"
)

// deterministicProvider is the deterministic fallback provider: lowercase the
// text, then for each of D output dimensions sum a sinusoidal function of
// codepoint values, squash with tanh, and L2-normalize. It is a pure
// function of its input text, so retries and caching need no coordination
// with the network provider, and it is always Ready.
type deterministicProvider struct {
	dim int
}

func NewDeterministicProvider(dim int) Provider {
	if dim <= 0 {
		dim = Dimensions
	}
	return &deterministicProvider{dim: dim}
}

func (p *deterministicProvider) Ready() bool { return true }

func (p *deterministicProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	return p.vector(text), nil
}

func (p *deterministicProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = p.vector(t)
	}
	return out, nil
}

func (p *deterministicProvider) vector(text string) []float64 {
	text = strings.ToLower(truncate(text, MaxProductChars))
	codepoints := []rune(text)

	v := make([]float64, p.dim)
	for i := 0; i < p.dim; i++ {
		var sum float64
		for j, cp := range codepoints {
			sum += float64(cp) * math.Sin(0.01*float64(i+1)*float64(j+1))
		}
		v[i] = math.Tanh(0.001 * sum)
	}
	return vectorindex.L2Normalize(v)
}
