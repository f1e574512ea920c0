package mat

import (
	"encoding/binary"
	"testing"

	"github.com/mogaika/scn_browser/scn/mesh"
)

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendCString(b []byte, s string) []byte {
	return append(append(b, s...), 0)
}

func TestExtractTextureMaps(t *testing.T) {
	record := make([]byte, 16)
	record = appendCString(record, "ColorMap")
	record = appendCString(record, "body_0.dds")
	record = append(record, 0xFF, 0xFF)
	record = appendCString(record, "NormalMap")
	record = appendCString(record, "body_n.dds")
	// second ColorMap occurrence must not override the first
	record = appendCString(record, "ColorMap")
	record = appendCString(record, "other.dds")

	maps := ExtractTextureMaps(record)
	if maps[mesh.SLOT_COLOR_MAP] != "body_0.dds" {
		t.Errorf("ColorMap = %q", maps[mesh.SLOT_COLOR_MAP])
	}
	if maps[mesh.SLOT_NORMAL_MAP] != "body_n.dds" {
		t.Errorf("NormalMap = %q", maps[mesh.SLOT_NORMAL_MAP])
	}
	if _, ok := maps[mesh.SLOT_LUMINOSITY_MAP]; ok {
		t.Error("LuminosityMap present")
	}
}

func TestExtractTextureMapsRejectsBinary(t *testing.T) {
	record := appendCString(nil, "ColorMap")
	record = append(record, 0x01, 0x02, 0x03, 0x00) // unprintable value
	maps := ExtractTextureMaps(record)
	if _, ok := maps[mesh.SLOT_COLOR_MAP]; ok {
		t.Errorf("accepted binary value: %q", maps[mesh.SLOT_COLOR_MAP])
	}
}

func buildAutoBlock(entries [][2]string) []byte {
	b := appendCString(nil, "auto")
	b = appendU32(b, uint32(len(entries)))
	for _, e := range entries {
		b = appendCString(b, e[0])
		b = appendCString(b, e[1])
		b = appendU32(b, 1)
		b = appendU32(b, 0)
	}
	return b
}

func TestExtractAutoBlocks(t *testing.T) {
	record := make([]byte, 8)
	record = append(record, buildAutoBlock([][2]string{
		{"ColorMap", "a_0.dds"},
		{"NormalMap", "a_n.dds"},
	})...)
	record = append(record, 1, 2, 3)
	record = append(record, buildAutoBlock([][2]string{
		{"ColorMap", "a_1.dds"},
	})...)

	blocks := ExtractAutoBlocks(record)
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(blocks))
	}
	if len(blocks[0].Entries) != 2 || blocks[0].Entries[0].Value != "a_0.dds" {
		t.Errorf("block 0 = %+v", blocks[0])
	}

	sets := AutoBlocksToMaterialSets(blocks)
	if len(sets) != 2 {
		t.Fatalf("sets = %d", len(sets))
	}
	if sets[0][mesh.SLOT_COLOR_MAP] != "a_0.dds" || sets[0][mesh.SLOT_NORMAL_MAP] != "a_n.dds" {
		t.Errorf("set 0 = %v", sets[0])
	}
	if sets[1][mesh.SLOT_COLOR_MAP] != "a_1.dds" {
		t.Errorf("set 1 = %v", sets[1])
	}
}

func TestExtractAutoBlocksMalformedResume(t *testing.T) {
	// first occurrence claims 3 entries but the record ends early; the
	// second, valid block must still be found
	record := appendCString(nil, "auto")
	record = appendU32(record, 3)
	record = appendCString(record, "ColorMap")
	// no more data for this block, next block follows directly
	record = append(record, buildAutoBlock([][2]string{{"ColorMap", "ok.dds"}})...)

	blocks := ExtractAutoBlocks(record)
	if len(blocks) != 1 {
		t.Fatalf("blocks = %+v", blocks)
	}
	if blocks[0].Entries[0].Value != "ok.dds" {
		t.Errorf("entry = %+v", blocks[0].Entries[0])
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct{ in, want string }{
		{`textures\body_0.dds`, "body_0.dds"},
		{"dir/body_0.dds", "body_0.dds"},
		{"body_0.dds", "body_0.dds"},
	}
	for _, tt := range tests {
		if got := BaseName(tt.in); got != tt.want {
			t.Errorf("BaseName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
