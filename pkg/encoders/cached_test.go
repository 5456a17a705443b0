package encoders

import (
	"context"
	"testing"
	"time"

	"github.com/liliang-cn/modalvec/pkg/core"
)

// countingEncoder counts Encode calls around a wrapped encoder.
type countingEncoder struct {
	next  core.TextEncoder
	calls int
}

func (c *countingEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.next.Encode(ctx, text)
}

func (c *countingEncoder) Dim() int {
	return c.next.Dim()
}

func TestWrapLRUHit(t *testing.T) {
	counting := &countingEncoder{next: NewHash(16)}
	encoder := WrapLRU(counting, 10, time.Hour)
	ctx := context.Background()

	first, err := encoder.Encode(ctx, "repeated text")
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	second, err := encoder.Encode(ctx, "repeated text")
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if counting.calls != 1 {
		t.Errorf("inner encoder called %d times, want 1", counting.calls)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached vector differs at %d", i)
		}
	}
}

func TestWrapLRUDistinctTexts(t *testing.T) {
	counting := &countingEncoder{next: NewHash(16)}
	encoder := WrapLRU(counting, 10, time.Hour)
	ctx := context.Background()

	if _, err := encoder.Encode(ctx, "one"); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if _, err := encoder.Encode(ctx, "two"); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if counting.calls != 2 {
		t.Errorf("inner encoder called %d times, want 2", counting.calls)
	}
}

func TestWrapLRUReturnsCopies(t *testing.T) {
	encoder := WrapLRU(NewHash(8), 10, time.Hour)
	ctx := context.Background()

	first, err := encoder.Encode(ctx, "text")
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	original := first[0]
	first[0] = 999

	second, err := encoder.Encode(ctx, "text")
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if second[0] != original {
		t.Error("cached vector was mutated through a returned slice")
	}
}

func TestWrapLRUPassThrough(t *testing.T) {
	inner := NewHash(16)

	if got := WrapLRU(inner, 0, time.Hour); got != core.TextEncoder(inner) {
		t.Error("WrapLRU() with zero size should return the encoder unwrapped")
	}
	if got := WrapLRU(inner, 10, 0); got != core.TextEncoder(inner) {
		t.Error("WrapLRU() with zero ttl should return the encoder unwrapped")
	}
	if got := WrapLRU(nil, 10, time.Hour); got != nil {
		t.Error("WrapLRU(nil) should return nil")
	}
}

func TestWrapLRUDim(t *testing.T) {
	encoder := WrapLRU(NewHash(42), 10, time.Hour)
	if got := encoder.Dim(); got != 42 {
		t.Errorf("Dim() = %d, want 42", got)
	}
}
