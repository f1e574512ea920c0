package mesh

import (
	"testing"
)

// buildSubsetTable emits count + entries at the given entry size.
func buildSubsetTable(entries []Subset, entrySize int, vcount uint32) []byte {
	b := appendU32(nil, uint32(len(entries)))
	for _, s := range entries {
		b = appendU32(b, s.MaterialId)
		b = appendU32(b, s.StartTri)
		b = appendU32(b, s.TriCount)
		b = appendU32(b, s.BaseVertex)
		if entrySize == 20 {
			b = appendU32(b, vcount)
		}
	}
	return b
}

func TestFindSubsetTable(t *testing.T) {
	const vcount = 100
	const faceCount = 60

	want := []Subset{
		{MaterialId: 0, StartTri: 0, TriCount: 40, BaseVertex: 0},
		{MaterialId: 1, StartTri: 40, TriCount: 20, BaseVertex: 10},
	}

	table := buildSubsetTable(want, 20, vcount)

	// table sits some distance before the declaration offset
	payload := make([]byte, 0x100)
	payload = append(payload, table...)
	payload = append(payload, make([]byte, 0x40)...)
	declOff := len(payload)
	payload = append(payload, make([]byte, 0x20)...)

	got := FindSubsetTable(payload, declOff, vcount, faceCount)
	if len(got) != 2 {
		t.Fatalf("subsets = %+v", got)
	}
	for i := range want {
		if got[i].MaterialId != want[i].MaterialId ||
			got[i].StartTri != want[i].StartTri ||
			got[i].TriCount != want[i].TriCount ||
			got[i].BaseVertex != want[i].BaseVertex {
			t.Errorf("subset %d = %+v, want %+v", i, got[i], want[i])
		}
		if got[i].VertexCount != vcount {
			t.Errorf("subset %d vertex count = %d", i, got[i].VertexCount)
		}
	}
}

func TestFindSubsetTable16Byte(t *testing.T) {
	want := []Subset{{MaterialId: 3, StartTri: 0, TriCount: 10, BaseVertex: 0}}
	table := buildSubsetTable(want, 16, 0)

	payload := append(make([]byte, 0x40), table...)
	payload = append(payload, make([]byte, 0x10)...)
	declOff := len(payload)
	payload = append(payload, make([]byte, 8)...)

	got := FindSubsetTable(payload, declOff, 50, 10)
	if len(got) != 1 || got[0].MaterialId != 3 || got[0].TriCount != 10 {
		t.Errorf("subsets = %+v", got)
	}
}

func TestFindSubsetTableRejects(t *testing.T) {
	// range over face count
	bad := buildSubsetTable([]Subset{{TriCount: 100}}, 16, 0)
	payload := append(make([]byte, 0x20), bad...)
	declOff := len(payload)
	payload = append(payload, make([]byte, 8)...)

	if got := FindSubsetTable(payload, declOff, 50, 10); len(got) != 0 {
		t.Errorf("accepted subset over face count: %+v", got)
	}

	// all-zero window has no plausible count
	if got := FindSubsetTable(make([]byte, 0x200), 0x180, 50, 10); len(got) != 0 {
		t.Errorf("found table in zeros: %+v", got)
	}
}
