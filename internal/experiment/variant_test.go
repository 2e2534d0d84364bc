package experiment

import (
	"errors"
	"testing"
)

func fixedDraw(value float64) Randomizer {
	return func() float64 { return value }
}

func TestGetVariantAllocatesByCumulativePercentage(t *testing.T) {
	t.Parallel()

	variants := []Variant{
		{ID: "some-variant-a", Percentage: 0.1},
		{ID: "some-variant-b", Percentage: 0.2},
		{ID: NotInExperiment, Percentage: 0.7},
	}
	tests := []struct {
		draw float64
		want string
	}{
		{draw: 0.01, want: "some-variant-a"},
		{draw: 0.05, want: "some-variant-a"},
		{draw: 0.1, want: "some-variant-a"},
		{draw: 0.11, want: "some-variant-b"},
		{draw: 0.3, want: "some-variant-b"},
		{draw: 0.31, want: NotInExperiment},
		{draw: 0.99, want: NotInExperiment},
		{draw: 1, want: NotInExperiment},
	}
	for _, tc := range tests {
		got, err := GetVariant(variants, fixedDraw(tc.draw))
		if err != nil {
			t.Fatalf("GetVariant(draw=%v) error = %v", tc.draw, err)
		}
		if got.ID != tc.want {
			t.Fatalf("GetVariant(draw=%v) = %q, want %q", tc.draw, got.ID, tc.want)
		}
	}
}

func TestGetVariantIsDeterministicForSameDraw(t *testing.T) {
	t.Parallel()

	variants := []Variant{{ID: "a", Percentage: 0.5}, {ID: "b", Percentage: 0.5}}
	first, err := GetVariant(variants, fixedDraw(0.42))
	if err != nil {
		t.Fatalf("GetVariant() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := GetVariant(variants, fixedDraw(0.42))
		if err != nil {
			t.Fatalf("GetVariant() error = %v", err)
		}
		if again != first {
			t.Fatalf("GetVariant() = %+v, want %+v", again, first)
		}
	}
}

func TestGetVariantCallsRandomizer(t *testing.T) {
	t.Parallel()

	calls := 0
	randomizer := func() float64 {
		calls++
		return 0.5
	}
	if _, err := GetVariant([]Variant{{ID: "a", Percentage: 1}}, randomizer); err != nil {
		t.Fatalf("GetVariant() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("randomizer calls = %d, want 1", calls)
	}
}

func TestGetVariantRejectsPercentagesBelowOne(t *testing.T) {
	t.Parallel()

	_, err := GetVariant([]Variant{
		{ID: "some-variant-a", Percentage: 1.0 / 3},
		{ID: "some-variant-b", Percentage: 1.0 / 3},
	}, fixedDraw(1))
	if !errors.Is(err, ErrInvalidPercentages) {
		t.Fatalf("GetVariant() error = %v, want %v", err, ErrInvalidPercentages)
	}
}

func TestGetVariantRejectsPercentagesAboveOne(t *testing.T) {
	t.Parallel()

	_, err := GetVariant([]Variant{
		{ID: "some-variant-a", Percentage: 2.0 / 3},
		{ID: "some-variant-b", Percentage: 2.0 / 3},
	}, fixedDraw(1))
	if !errors.Is(err, ErrInvalidPercentages) {
		t.Fatalf("GetVariant() error = %v, want %v", err, ErrInvalidPercentages)
	}
}

func TestGetVariantAcceptsThirds(t *testing.T) {
	t.Parallel()

	variants := []Variant{
		{ID: "a", Percentage: 1.0 / 3},
		{ID: "b", Percentage: 1.0 / 3},
		{ID: "c", Percentage: 1.0 / 3},
	}
	got, err := GetVariant(variants, fixedDraw(1))
	if err != nil {
		t.Fatalf("GetVariant() error = %v", err)
	}
	if got.ID != "c" {
		t.Fatalf("GetVariant(draw=1) = %q, want %q", got.ID, "c")
	}
}

func TestGetVariantRejectsDrawOutsideDomain(t *testing.T) {
	t.Parallel()

	variants := []Variant{{ID: "a", Percentage: 0.5}, {ID: "b", Percentage: 0.5}}
	for _, draw := range []float64{0, -0.1, 1.5} {
		_, err := GetVariant(variants, fixedDraw(draw))
		if !errors.Is(err, ErrNoVariant) {
			t.Fatalf("GetVariant(draw=%v) error = %v, want %v", draw, err, ErrNoVariant)
		}
	}
}

func TestDefaultRandomizerStaysInDomain(t *testing.T) {
	t.Parallel()

	for i := 0; i < 1000; i++ {
		draw := DefaultRandomizer()
		if draw <= 0 || draw > 1 {
			t.Fatalf("DefaultRandomizer() = %v, want (0, 1]", draw)
		}
	}
}

func TestGetVariantUsesDefaultRandomizerWhenNil(t *testing.T) {
	t.Parallel()

	variants := []Variant{{ID: "a", Percentage: 0.5}, {ID: "b", Percentage: 0.5}}
	got, err := GetVariant(variants, nil)
	if err != nil {
		t.Fatalf("GetVariant() error = %v", err)
	}
	if got.ID != "a" && got.ID != "b" {
		t.Fatalf("GetVariant() = %q, want a declared variant", got.ID)
	}
}
