package mesh

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestVertexStride(t *testing.T) {
	tests := []struct {
		decl   uint32
		stride uint32
	}{
		{0x0002, 12},
		{0x0006, 16},
		{0x400e, 32},
		{0x0002 | 0x10, 24},
		{0x0002 | 0x10 | 0x20 | 0x40 | 0x80, 36},
		// one UV slot, no format bits: legacy float2
		{0x0002 | 1<<8, 20},
		// one UV slot, explicit float2
		{0x0002 | 1<<8 | uint32(UV_FORMAT_FLOAT2)<<16, 20},
		// one UV slot, half2
		{0x0002 | 1<<8 | uint32(UV_FORMAT_HALF2)<<16, 16},
		// two UV slots: float4 then float3
		{0x0002 | 2<<8 | uint32(UV_FORMAT_FLOAT4)<<16 | uint32(UV_FORMAT_FLOAT3)<<18, 40},
	}
	for _, tt := range tests {
		if got := VertexStride(tt.decl); got != tt.stride {
			t.Errorf("VertexStride(%#x) = %d, want %d", tt.decl, got, tt.stride)
		}
	}
}

func putF32(b []byte, ofs int, v float32) {
	binary.LittleEndian.PutUint32(b[ofs:], math.Float32bits(v))
}

func TestDecodeVertex(t *testing.T) {
	// pos + normal + one float2 UV slot
	decl := uint32(0x0002 | 0x10 | 1<<8)
	stride := VertexStride(decl)
	if stride != 32 {
		t.Fatalf("stride = %d", stride)
	}

	vb := make([]byte, stride*2)
	// vertex 1
	putF32(vb, 32+0, 1)
	putF32(vb, 32+4, 2)
	putF32(vb, 32+8, 3)
	putF32(vb, 32+12, 0)
	putF32(vb, 32+16, 0)
	putF32(vb, 32+20, 1)
	putF32(vb, 32+24, 0.25)
	putF32(vb, 32+28, 0.75)

	pos, nrm, uv := DecodeVertex(decl, vb, 1, true, false)
	if pos != (Position{1, 2, 3}) {
		t.Errorf("pos = %v", pos)
	}
	if nrm == nil || *nrm != (Normal{0, 0, 1}) {
		t.Errorf("nrm = %v", nrm)
	}
	if uv == nil || *uv != (UV{0.25, 0.25}) {
		t.Errorf("uv = %v (flipV applied)", uv)
	}

	// swapYZ exchanges position and normal axes
	pos, nrm, _ = DecodeVertex(decl, vb, 1, false, true)
	if pos != (Position{1, 3, 2}) {
		t.Errorf("swapYZ pos = %v", pos)
	}
	if nrm == nil || *nrm != (Normal{0, 1, 0}) {
		t.Errorf("swapYZ nrm = %v", nrm)
	}
}

func TestDecodeVertexHalfUV(t *testing.T) {
	decl := uint32(0x0002 | 1<<8 | uint32(UV_FORMAT_HALF2)<<16)
	stride := VertexStride(decl)
	if stride != 16 {
		t.Fatalf("stride = %d", stride)
	}

	vb := make([]byte, stride)
	putF32(vb, 0, 5)
	putF32(vb, 4, 6)
	putF32(vb, 8, 7)
	binary.LittleEndian.PutUint16(vb[12:], 0x3c00) // 1.0
	binary.LittleEndian.PutUint16(vb[14:], 0x3800) // 0.5

	pos, _, uv := DecodeVertex(decl, vb, 0, false, false)
	if pos != (Position{5, 6, 7}) {
		t.Errorf("pos = %v", pos)
	}
	if uv == nil || *uv != (UV{1, 0.5}) {
		t.Errorf("uv = %v", uv)
	}
}
