package txr

import (
	"encoding/binary"
	"image/color"
	"testing"
)

func buildDDSHeader(w, h int, pfFlags uint32, fourCC string, bitCount, rMask uint32) []byte {
	b := make([]byte, DDS_HEADER_SIZE)
	copy(b, "DDS ")
	binary.LittleEndian.PutUint32(b[4:], 124)
	binary.LittleEndian.PutUint32(b[12:], uint32(h))
	binary.LittleEndian.PutUint32(b[16:], uint32(w))
	binary.LittleEndian.PutUint32(b[80:], pfFlags)
	copy(b[84:], fourCC)
	binary.LittleEndian.PutUint32(b[88:], bitCount)
	binary.LittleEndian.PutUint32(b[92:], rMask)
	return b
}

func TestDecodeDDSDXT1(t *testing.T) {
	// single solid red block, bounds clamped to 2x2
	data := buildDDSHeader(2, 2, 0x4, "DXT1", 0, 0)
	block := make([]byte, 8)
	binary.LittleEndian.PutUint16(block[0:], 0xF800)
	binary.LittleEndian.PutUint16(block[2:], 0xF800)
	data = append(data, block...)

	img, err := DecodeDDS(data)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Fatalf("bounds = %v", b)
	}
	want := color.NRGBA{R: 255, A: 255}
	for _, pt := range [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		if got := img.At(pt[0], pt[1]); got != want {
			t.Errorf("pixel %v = %v, want %v", pt, got, want)
		}
	}
}

func TestDecodeDDSDXT5(t *testing.T) {
	data := buildDDSHeader(4, 4, 0x4, "DXT5", 0, 0)
	block := make([]byte, 16)
	block[0] = 0x80 // alpha0, selected by all-zero alpha codes
	block[1] = 0x80
	binary.LittleEndian.PutUint16(block[8:], 0x07E0)
	binary.LittleEndian.PutUint16(block[10:], 0x07E0)
	data = append(data, block...)

	img, err := DecodeDDS(data)
	if err != nil {
		t.Fatal(err)
	}
	want := color.NRGBA{G: 255, A: 0x80}
	if got := img.At(3, 3); got != want {
		t.Errorf("pixel = %v, want %v", got, want)
	}
}

func TestDecodeDDSUncompressed(t *testing.T) {
	data := buildDDSHeader(2, 2, 0, "", 32, 0x00ff0000)
	for i := 0; i < 4; i++ {
		data = append(data, 1, 2, 3, 4) // BGRA
	}

	img, err := DecodeDDS(data)
	if err != nil {
		t.Fatal(err)
	}
	want := color.NRGBA{R: 3, G: 2, B: 1, A: 4}
	if got := img.At(1, 1); got != want {
		t.Errorf("pixel = %v, want %v", got, want)
	}
}

func TestDecodeDDSRejects(t *testing.T) {
	if _, err := DecodeDDS([]byte("not a dds")); err == nil {
		t.Error("accepted short file")
	}

	bad := buildDDSHeader(2, 2, 0x4, "DXT9", 0, 0)
	bad = append(bad, make([]byte, 8)...)
	if _, err := DecodeDDS(bad); err == nil {
		t.Error("accepted unknown fourcc")
	}

	bad = buildDDSHeader(2, 2, 0, "", 32, 0)
	if _, err := DecodeDDS(bad); err == nil {
		t.Error("accepted truncated pixel data")
	}

	bad = buildDDSHeader(0, 2, 0, "", 32, 0)
	if _, err := DecodeDDS(bad); err == nil {
		t.Error("accepted zero width")
	}
}
