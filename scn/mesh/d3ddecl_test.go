package mesh

import (
	"encoding/binary"
	"testing"
)

type declElem struct {
	stream, offset uint16
	typ, usage     uint8
	usageIndex     uint8
}

// buildDecl520 assembles a 520-byte element table with an end sentinel.
func buildDecl520(elems []declElem) []byte {
	b := make([]byte, D3D_DECL_SIZE)
	for i, e := range elems {
		ofs := i * 8
		binary.LittleEndian.PutUint16(b[ofs:], e.stream)
		binary.LittleEndian.PutUint16(b[ofs+2:], e.offset)
		b[ofs+4] = e.typ
		b[ofs+6] = e.usage
		b[ofs+7] = e.usageIndex
	}
	endOfs := len(elems) * 8
	binary.LittleEndian.PutUint16(b[endOfs:], D3D_STREAM_END)
	b[endOfs+4] = 17 // matches the sentinel convention of captured tables
	return b
}

var testDeclPNT = []declElem{
	{0, 0, D3DDECLTYPE_FLOAT3, D3DDECLUSAGE_POSITION, 0},
	{0, 12, D3DDECLTYPE_FLOAT3, D3DDECLUSAGE_NORMAL, 0},
	{0, 24, D3DDECLTYPE_FLOAT2, D3DDECLUSAGE_TEXCOORD, 0},
}

func TestParseD3DDecl520(t *testing.T) {
	stride, elems, ok := ParseD3DDecl520(buildDecl520(testDeclPNT))
	if !ok {
		t.Fatal("parse failed")
	}
	if stride != 32 {
		t.Errorf("stride = %d, want 32", stride)
	}
	if len(elems) != 4 {
		t.Errorf("elems = %d, want 3 + sentinel", len(elems))
	}
}

func TestParseD3DDecl520Rejects(t *testing.T) {
	// no sentinel
	if _, _, ok := ParseD3DDecl520(make([]byte, D3D_DECL_SIZE)); ok {
		// all-zero table has stream 0 everywhere and stride 4; the sentinel
		// check must reject it before that
		t.Error("accepted table without sentinel")
	}

	// unknown element type
	bad := buildDecl520([]declElem{{0, 0, 200, D3DDECLUSAGE_POSITION, 0}})
	if _, _, ok := ParseD3DDecl520(bad); ok {
		t.Error("accepted unknown element type")
	}

	// short block
	if _, _, ok := ParseD3DDecl520(make([]byte, 100)); ok {
		t.Error("accepted short block")
	}
}

func TestDecodeVertexD3D(t *testing.T) {
	_, elems, ok := ParseD3DDecl520(buildDecl520(testDeclPNT))
	if !ok {
		t.Fatal("parse failed")
	}

	vb := make([]byte, 64)
	putF32(vb, 32+0, -1)
	putF32(vb, 32+4, -2)
	putF32(vb, 32+8, -3)
	putF32(vb, 32+12, 1)
	putF32(vb, 32+24, 0.5)
	putF32(vb, 32+28, 1)

	pos, nrm, uv := DecodeVertexD3D(elems, vb, 1, 32, true, false)
	if pos != (Position{-1, -2, -3}) {
		t.Errorf("pos = %v", pos)
	}
	if nrm == nil || *nrm != (Normal{1, 0, 0}) {
		t.Errorf("nrm = %v", nrm)
	}
	if uv == nil || *uv != (UV{0.5, 0}) {
		t.Errorf("uv = %v", uv)
	}
}
