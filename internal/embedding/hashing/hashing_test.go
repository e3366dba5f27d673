package hashing

import (
	"context"
	"math"
	"testing"
)

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func TestEmbed_Deterministic(t *testing.T) {
	e := NewEmbedder(64)
	a, err := e.Embed(context.Background(), "Installation of the pump")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := NewEmbedder(64).Embed(context.Background(), "installation OF the PUMP")
	if len(a) != 64 {
		t.Fatalf("dimension = %d, want 64", len(a))
	}
	if math.Abs(dot(a, b)-1) > 1e-9 {
		t.Errorf("same tokens should embed identically, cosine = %f", dot(a, b))
	}
}

func TestEmbed_Normalized(t *testing.T) {
	v, _ := NewEmbedder(0).Embed(context.Background(), "valve pressure limits and valve torque")
	if len(v) != DefaultDimension {
		t.Fatalf("dimension = %d", len(v))
	}
	if math.Abs(dot(v, v)-1) > 1e-9 {
		t.Errorf("norm^2 = %f, want 1", dot(v, v))
	}
}

func TestEmbed_StopwordsOnly(t *testing.T) {
	v, _ := NewEmbedder(16).Embed(context.Background(), "the and of")
	for _, x := range v {
		if x != 0 {
			t.Fatalf("expected zero vector, got %v", v)
		}
	}
}

func TestEmbed_RelatedTextScoresHigher(t *testing.T) {
	e := NewEmbedder(DefaultDimension)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "pump maintenance")
	near, _ := e.Embed(ctx, "Routine pump maintenance every six months.")
	far, _ := e.Embed(ctx, "Warranty terms for the display panel.")
	if dot(q, near) <= dot(q, far) {
		t.Errorf("related score %f not above unrelated %f", dot(q, near), dot(q, far))
	}
}
