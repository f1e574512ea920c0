package axo

import (
	"encoding/binary"
	"testing"
)

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendChunkHeader(b []byte, tag, size, count, unkC uint32) []byte {
	b = appendU32(b, tag)
	b = appendU32(b, size)
	b = appendU32(b, count)
	return appendU32(b, unkC)
}

func buildTestArchive(atomMtrlKey, mtrlTexId uint32) []byte {
	// INFO + embedded AXO_ preamble
	b := appendChunkHeader(nil, TAG_INFO, 0x10, 0, 0)
	b = appendU32(b, TAG_AXO_)
	b = appendU32(b, 2) // version
	b = appendU32(b, 7)
	b = appendU32(b, 9)

	// GEOG with a single GEOM child carrying an 8-dword header
	b = appendChunkHeader(b, TAG_GEOG, 16+0x20, 1, 0)
	b = appendChunkHeader(b, TAG_GEOM, 0x20, 0, 0)
	for i := uint32(1); i <= 8; i++ {
		b = appendU32(b, i)
	}

	// TEX, one 36-byte record
	b = appendChunkHeader(b, TAG_TEX_, 36, 1, 0)
	b = appendU32(b, 5)
	name := make([]byte, 32)
	copy(name, "stone.dds")
	b = append(b, name...)

	// MTRL, one 68-byte record with TexId at +0x3C
	b = appendChunkHeader(b, TAG_MTRL, 68, 1, 0)
	b = appendU32(b, 0x1234)
	b = appendU32(b, 0xFFFFFFFF) // Unk4 = -1
	for i := 0; i < 13; i++ {
		b = appendU32(b, 0)
	}
	b = appendU32(b, mtrlTexId)
	b = appendU32(b, 0)

	// ATOM, one record of two (fourcc, value) pairs
	b = appendChunkHeader(b, TAG_ATOM, 16, 1, 16)
	b = appendU32(b, TAG_GEOM)
	b = appendU32(b, 0)
	b = appendU32(b, TAG_MTRL)
	b = appendU32(b, atomMtrlKey)

	return appendChunkHeader(b, TAG_END_, 0, 0, 0)
}

func TestParse(t *testing.T) {
	f, err := Parse(buildTestArchive(0x1234, 5))
	if err != nil {
		t.Fatal(err)
	}

	if f.Header.Version != 2 || f.Header.Unk24 != 7 || f.Header.Unk28 != 9 {
		t.Errorf("header = %+v", f.Header)
	}
	if len(f.Chunks) != 6 || f.Chunks[len(f.Chunks)-1].Tag != TAG_END_ {
		t.Errorf("chunks = %+v", f.Chunks)
	}

	if len(f.GeogKids) != 1 || f.GeogKids[0].Tag != TAG_GEOM {
		t.Fatalf("geog kids = %+v", f.GeogKids)
	}
	hdr, ok := f.GeomHdrs[f.GeogKids[0].Offset]
	if !ok || hdr != [8]uint32{1, 2, 3, 4, 5, 6, 7, 8} {
		t.Errorf("geom header = %v", hdr)
	}

	if len(f.Textures) != 1 || f.Textures[0] != (TexEntry{Id: 5, Name: "stone.dds"}) {
		t.Errorf("textures = %+v", f.Textures)
	}
	if len(f.Materials) != 1 {
		t.Fatalf("materials = %+v", f.Materials)
	}
	m := f.Materials[0]
	if m.Key != 0x1234 || m.Unk4 != -1 || m.TexId != 5 {
		t.Errorf("material = %+v", m)
	}

	if len(f.Atoms) != 1 || f.Atoms[0]["MTRL"] != 0x1234 || f.Atoms[0]["GEOM"] != 0 {
		t.Errorf("atoms = %+v", f.Atoms)
	}
}

func TestLookupsAndValidate(t *testing.T) {
	f, err := Parse(buildTestArchive(0x1234, 5))
	if err != nil {
		t.Fatal(err)
	}

	if m, ok := f.MaterialByKey(0x1234); !ok || m.TexId != 5 {
		t.Errorf("MaterialByKey = %+v %v", m, ok)
	}
	if _, ok := f.MaterialByKey(0x9999); ok {
		t.Error("MaterialByKey matched missing key")
	}
	if tex, ok := f.TextureById(5); !ok || tex.Name != "stone.dds" {
		t.Errorf("TextureById = %+v %v", tex, ok)
	}

	if issues := f.Validate(); len(issues) != 0 {
		t.Errorf("issues = %+v", issues)
	}
}

func TestValidateBadReferences(t *testing.T) {
	f, err := Parse(buildTestArchive(0x9999, 5))
	if err != nil {
		t.Fatal(err)
	}
	issues := f.Validate()
	if len(issues) != 1 || issues[0].Problem != "MTRL key not found" {
		t.Errorf("issues = %+v", issues)
	}

	f, err = Parse(buildTestArchive(0x1234, 77))
	if err != nil {
		t.Fatal(err)
	}
	issues = f.Validate()
	if len(issues) != 1 || issues[0].Problem != "TEX id not found" {
		t.Errorf("issues = %+v", issues)
	}
}

func TestParseRejects(t *testing.T) {
	if _, err := Parse(make([]byte, 8)); err == nil {
		t.Error("accepted short file")
	}

	bad := appendChunkHeader(nil, TAG_MTRL, 0, 0, 0)
	bad = append(bad, make([]byte, 0x10)...)
	if _, err := Parse(bad); err == nil {
		t.Error("accepted file without INFO preamble")
	}
}

func TestFourCC(t *testing.T) {
	if s := FourCC(TAG_GEOM); s != "GEOM" {
		t.Errorf("FourCC = %q", s)
	}
	if s := FourCC(0); s != "????" {
		t.Errorf("FourCC = %q", s)
	}
}
