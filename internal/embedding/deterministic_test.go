package embedding

import (
	"context"
	"testing"

	"github.com/kestrel-retail/discovery-engine/internal/vectorindex"
)

func TestDeterministicProviderIsUnitAndReproducible(t *testing.T) {
	p := NewDeterministicProvider(16)
	ctx := context.Background()

	a, err := p.Embed(ctx, "Wireless Noise Cancelling Headphones")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(a) != 16 {
		t.Fatalf("expected dim 16, got %d", len(a))
	}
	if !vectorindex.IsUnit(a) {
		t.Fatalf("expected unit vector, got norm")
	}

	b, err := p.Embed(ctx, "Wireless Noise Cancelling Headphones")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected deterministic output, dim %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestDeterministicProviderCaseInsensitive(t *testing.T) {
	p := NewDeterministicProvider(8)
	ctx := context.Background()

	a, _ := p.Embed(ctx, "Red Running Shoes")
	b, _ := p.Embed(ctx, "red running shoes")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected case-insensitive embedding, dim %d differs", i)
		}
	}
}

func TestDeterministicProviderTruncatesLongText(t *testing.T) {
	p := NewDeterministicProvider(8)
	ctx := context.Background()

	long := make([]rune, MaxProductChars+500)
	for i := range long {
		long[i] = 'a'
	}
	a, _ := p.Embed(ctx, string(long))
	b, _ := p.Embed(ctx, string(long[:MaxProductChars]))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected truncation at %d chars, dim %d differs", MaxProductChars, i)
		}
	}
}

func TestDeterministicProviderAlwaysReady(t *testing.T) {
	p := NewDeterministicProvider(8)
	if !p.Ready() {
		t.Fatalf("deterministic provider should always report ready")
	}
}

func TestDeterministicProviderEmbedBatch(t *testing.T) {
	p := NewDeterministicProvider(8)
	out, err := p.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("embed batch: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(out))
	}
}
