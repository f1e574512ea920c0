package mat

import (
	"testing"

	"github.com/mogaika/scn_browser/scn/mesh"
)

func familyData(names ...string) []byte {
	b := make([]byte, 32)
	for _, n := range names {
		b = appendCString(b, n)
		b = append(b, 0xF0, 0x0D)
	}
	return b
}

func TestInferColorMapFamiliesHintPriority(t *testing.T) {
	data := familyData("AB01E_0.dds", "AB01E_1.dds", "AB01U_0.dds", "AB01_0.dds")

	family := InferColorMapFamilies(data, "AB01")
	if len(family) != 2 || family[0] != "AB01E_0.dds" || family[1] != "AB01E_1.dds" {
		t.Errorf("family = %v, want AB01E members", family)
	}

	// without the E variant the U variant wins
	data = familyData("AB01U_0.dds", "AB01_0.dds", "AB01_1.dds")
	family = InferColorMapFamilies(data, "AB01")
	if len(family) != 1 || family[0] != "AB01U_0.dds" {
		t.Errorf("family = %v, want AB01U members", family)
	}

	// exact prefix as last hint resort
	data = familyData("AB01_0.dds", "AB01_1.dds")
	family = InferColorMapFamilies(data, "AB01")
	if len(family) != 2 || family[1] != "AB01_1.dds" {
		t.Errorf("family = %v, want AB01 members", family)
	}
}

func TestInferColorMapFamiliesRichestFallback(t *testing.T) {
	data := familyData("mat_0.dds", "body_0.dds", "body_1.dds", "body_2.dds")

	family := InferColorMapFamilies(data, "ZZ99")
	if len(family) != 3 || family[2] != "body_2.dds" {
		t.Errorf("family = %v, want body members", family)
	}

	if family := InferColorMapFamilies(familyData("readme.txt"), ""); family != nil {
		t.Errorf("family = %v from non-family strings", family)
	}
}

func TestColorMapsToMaterialSets(t *testing.T) {
	sets := ColorMapsToMaterialSets(map[int]string{0: "a_0.dds", 2: "a_2.dds"})
	if len(sets) != 3 {
		t.Fatalf("sets = %d, want 3", len(sets))
	}
	if sets[0][mesh.SLOT_COLOR_MAP] != "a_0.dds" || sets[2][mesh.SLOT_COLOR_MAP] != "a_2.dds" {
		t.Errorf("sets = %v", sets)
	}
	if sets[1][mesh.SLOT_COLOR_MAP] != "" {
		t.Errorf("gap index filled: %v", sets[1])
	}
}

func TestChooseSCN0MaterialSetsAuto(t *testing.T) {
	data := make([]byte, 16)
	data = append(data, buildAutoBlock([][2]string{{"ColorMap", "mm_1.dds"}})...)
	// duplicate ColorMap, richer variant must win
	data = append(data, buildAutoBlock([][2]string{
		{"ColorMap", "mm_0.dds"},
	})...)
	data = append(data, buildAutoBlock([][2]string{
		{"ColorMap", "mm_0.dds"},
		{"NormalMap", "mm_n.dds"},
	})...)

	sets := ChooseSCN0MaterialSets(data, "")
	if len(sets) != 2 {
		t.Fatalf("sets = %v", sets)
	}
	// ordered by trailing filename index
	if sets[0][mesh.SLOT_COLOR_MAP] != "mm_0.dds" || sets[1][mesh.SLOT_COLOR_MAP] != "mm_1.dds" {
		t.Errorf("order = %v", sets)
	}
	if sets[0][mesh.SLOT_NORMAL_MAP] != "mm_n.dds" {
		t.Errorf("dedup dropped richer set: %v", sets[0])
	}
}

func TestChooseSCN0MaterialSetsFamilyFallback(t *testing.T) {
	data := familyData("CD02_0.dds", "CD02_1.dds")
	sets := ChooseSCN0MaterialSets(data, "CD02")
	if len(sets) != 2 || sets[1][mesh.SLOT_COLOR_MAP] != "CD02_1.dds" {
		t.Errorf("sets = %v", sets)
	}
}

// subsetProbeData places a (start_tri, tri_count, base_vertex, vertex_count)
// quadruple directly before each texture name.
func subsetProbeData(quads [][4]uint32, names []string) []byte {
	b := make([]byte, 64)
	for i, q := range quads {
		for _, v := range q {
			b = appendU32(b, v)
		}
		b = appendCString(b, names[i])
		b = append(b, make([]byte, 48)...)
	}
	return b
}

func TestInferSubsetRequirements(t *testing.T) {
	data := subsetProbeData([][4]uint32{{0, 40, 0, 100}}, []string{"body_0.dds"})

	reqFaces, reqVerts := InferSubsetRequirements(data, map[int]string{0: "body_0.dds"})
	if reqFaces != 40 || reqVerts != 100 {
		t.Errorf("req = %d faces %d verts, want 40/100", reqFaces, reqVerts)
	}

	reqFaces, reqVerts = InferSubsetRequirements(data, map[int]string{0: "missing.dds"})
	if reqFaces != 0 || reqVerts != 0 {
		t.Errorf("req = %d/%d for absent name", reqFaces, reqVerts)
	}
}

func TestInferSubsetsFromTextureBlocks(t *testing.T) {
	colorMaps := map[int]string{0: "mm_0.dds", 1: "mm_1.dds"}
	data := subsetProbeData(
		[][4]uint32{{40, 20, 0, 100}, {0, 40, 0, 100}},
		[]string{"mm_0.dds", "mm_1.dds"},
	)

	subsets := InferSubsetsFromTextureBlocks(data, 100, 60, colorMaps)
	if len(subsets) != 2 {
		t.Fatalf("subsets = %+v", subsets)
	}
	// sorted by start triangle, not by material id
	if subsets[0].MaterialId != 1 || subsets[0].TriCount != 40 {
		t.Errorf("subsets[0] = %+v", subsets[0])
	}
	if subsets[1].MaterialId != 0 || subsets[1].StartTri != 40 {
		t.Errorf("subsets[1] = %+v", subsets[1])
	}

	// ranges over the mesh dimensions are rejected
	if got := InferSubsetsFromTextureBlocks(data, 50, 30, colorMaps); len(got) != 0 {
		t.Errorf("accepted out-of-range subsets: %+v", got)
	}
}
