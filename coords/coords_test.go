package coords

import (
	"math"
	"testing"
)

func fixedAscent(ratio float64) AscentFunc {
	return func(size float64) float64 { return size * ratio }
}

func TestToNative_HalfSizePreviewDoublesX(t *testing.T) {
	g := EditorGeometry{X: 40, Y: 60, FontSize: 12}
	preview := Size{Width: 306, Height: 396}
	native := Size{Width: 612, Height: 792}

	got := ToNative(g, 0, preview, native, fixedAscent(0.75), Options{})
	if got.X != 80 {
		t.Fatalf("x: got %v want 80", got.X)
	}
	if got.FontSize != 24 {
		t.Fatalf("font size: got %v want 24", got.FontSize)
	}
}

func TestToNative_UnitScaleExactY(t *testing.T) {
	size := Size{Width: 612, Height: 792}
	ascent := fixedAscent(0.75)
	g := EditorGeometry{X: 100, Y: 50, FontSize: 16}

	got := ToNative(g, 0, size, size, ascent, Options{})
	want := 792 - 50 - ascent(16)*0.8
	if got.Y != want {
		t.Fatalf("y: got %v want %v", got.Y, want)
	}
	if got.Rotation != 0 {
		t.Fatalf("rotation: got %v want 0", got.Rotation)
	}
}

func TestToNative_Deterministic(t *testing.T) {
	g := EditorGeometry{X: 33.3, Y: 71.7, ScaleX: 1.4, FontSize: 11}
	preview := Size{Width: 500, Height: 650}
	native := Size{Width: 595.28, Height: 841.89}
	ascent := fixedAscent(0.718)

	first := ToNative(g, 17, preview, native, ascent, Options{})
	for i := 0; i < 100; i++ {
		if got := ToNative(g, 17, preview, native, ascent, Options{}); got != first {
			t.Fatalf("call %d diverged: got %+v want %+v", i, got, first)
		}
	}
}

func TestToNative_RotationFlipsSign(t *testing.T) {
	size := Size{Width: 612, Height: 792}
	got := ToNative(EditorGeometry{FontSize: 12}, 30, size, size, fixedAscent(0.7), Options{})
	if got.Rotation != -30 {
		t.Fatalf("rotation: got %v want -30", got.Rotation)
	}
}

func TestToNative_ScaleXMultipliesFontSize(t *testing.T) {
	size := Size{Width: 100, Height: 100}
	got := ToNative(EditorGeometry{FontSize: 10, ScaleX: 2}, 0, size, size, fixedAscent(0.7), Options{})
	if got.FontSize != 20 {
		t.Fatalf("font size: got %v want 20", got.FontSize)
	}
}

func TestToNative_BaselineFactorOverride(t *testing.T) {
	size := Size{Width: 100, Height: 200}
	ascent := fixedAscent(1)
	def := ToNative(EditorGeometry{Y: 10, FontSize: 10}, 0, size, size, ascent, Options{})
	custom := ToNative(EditorGeometry{Y: 10, FontSize: 10}, 0, size, size, ascent, Options{BaselineFactor: 0.5})

	if def.Y != 200-10-10*0.8 {
		t.Fatalf("default baseline: got %v", def.Y)
	}
	if custom.Y != 200-10-10*0.5 {
		t.Fatalf("custom baseline: got %v", custom.Y)
	}
}

func TestMatrixRotateInverseRoundTrip(t *testing.T) {
	m := Rotate(math.Pi / 6).Multiply(Translate(14, -3)).Multiply(Scale(2, 2))
	inv, err := m.Inverse()
	if err != nil {
		t.Fatalf("inverse: %v", err)
	}
	p := Point{X: 5, Y: 9}
	back := inv.Transform(m.Transform(p))
	if math.Abs(back.X-p.X) > 1e-9 || math.Abs(back.Y-p.Y) > 1e-9 {
		t.Fatalf("round trip: got %+v want %+v", back, p)
	}
}
