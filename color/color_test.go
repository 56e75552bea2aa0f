package color

import "testing"

func TestToRGBA_RGB32(t *testing.T) {
	src := []byte{0x10, 0x20, 0x30, 0xFF} // B, G, R, pad
	c := ToRGBA(SpaceRGB32, src, nil)
	if c.R != 0x30 || c.G != 0x20 || c.B != 0x10 || c.A != 0xFF {
		t.Fatalf("got %+v", c)
	}
}

func TestToRGBA_CMAP8(t *testing.T) {
	var pal Palette
	pal[5] = RGBA{R: 1, G: 2, B: 3, A: 4}
	c := ToRGBA(SpaceCMAP8, []byte{5}, &pal)
	if c != pal[5] {
		t.Fatalf("got %+v, want %+v", c, pal[5])
	}
}

func TestIsTransparentMagic(t *testing.T) {
	if !IsTransparentMagic(SpaceRGB32, RGB32TransparentMagic) {
		t.Fatal("expected magic sentinel to report transparent")
	}
	if IsTransparentMagic(SpaceRGB32, RGBA{R: 1, G: 1, B: 1, A: 0xFF}) {
		t.Fatal("non-sentinel color reported as transparent")
	}
	if IsTransparentMagic(SpaceRGBA32, RGB32TransparentMagic) {
		t.Fatal("RGBA32 has no transparency sentinel")
	}
}

func TestFromRGBAToRGBARoundTrip(t *testing.T) {
	c := RGBA{R: 10, G: 20, B: 30, A: 255}
	var buf [4]byte
	FromRGBA(SpaceBGRA32, c, buf[:])
	back := ToRGBA(SpaceBGRA32, buf[:], nil)
	if back != c {
		t.Fatalf("round trip mismatch: got %+v want %+v", back, c)
	}
}

func TestPremultiply(t *testing.T) {
	c := RGBA{R: 255, G: 255, B: 255, A: 128}
	p := Premultiply(c)
	if p.A != 128 {
		t.Fatalf("alpha should be unchanged, got %d", p.A)
	}
	if p.R == 255 {
		t.Fatalf("premultiplied channel should be scaled down, got %d", p.R)
	}
}

func TestLumaOrdering(t *testing.T) {
	if Luma(RGBA{R: 255, G: 255, B: 255}) <= Luma(RGBA{R: 0, G: 0, B: 0}) {
		t.Fatal("white should have higher luma than black")
	}
}
