package mesh

import (
	"bytes"
	"strings"
	"testing"
)

func testExportMesh() *Mesh {
	return &Mesh{
		Name: "test body",
		Vertices: []Position{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
		},
		UVs:   []UV{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		Faces: [][3]uint32{{0, 1, 2}, {2, 1, 3}},
		Subsets: []Subset{
			{MaterialId: 0, StartTri: 0, TriCount: 1},
			{MaterialId: 1, StartTri: 1, TriCount: 1},
		},
		MaterialSets: []MaterialSet{
			{SLOT_COLOR_MAP: "a_0.dds"},
			{SLOT_COLOR_MAP: "a_1.dds", SLOT_NORMAL_MAP: "a_n.dds"},
		},
	}
}

func TestWriteObj(t *testing.T) {
	var buf bytes.Buffer
	if err := testExportMesh().WriteObj(&buf, "test.mtl"); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"mtllib test.mtl\n",
		"o test_body\n",
		"v 1 1 0\n",
		"vt 1 1\n",
		// no normals present, neutral default emitted
		"vn 0 0 1\n",
		"usemtl test_body_mat0\nf 1/1/1 2/2/2 3/3/3\n",
		"usemtl test_body_mat1\nf 3/3/3 2/2/2 4/4/4\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteMtl(t *testing.T) {
	var buf bytes.Buffer
	resolve := func(ref string) string { return strings.Replace(ref, ".dds", ".png", 1) }
	if err := testExportMesh().WriteMtl(&buf, resolve); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"newmtl test_body_mat0\n",
		"map_Kd a_0.png\n",
		"newmtl test_body_mat1\n",
		"map_Kd a_1.png\n",
		"map_Bump a_n.png\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteObjWithoutSubsets(t *testing.T) {
	m := testExportMesh()
	m.Subsets = nil
	m.MaterialSets = nil
	m.Maps = MaterialSet{SLOT_COLOR_MAP: "solo.dds"}

	var buf bytes.Buffer
	if err := m.WriteObj(&buf, "test.mtl"); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(buf.String(), "usemtl "); got != 1 {
		t.Errorf("usemtl count = %d, want 1", got)
	}

	buf.Reset()
	if err := m.WriteMtl(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "map_Kd solo.dds\n") {
		t.Errorf("mtl output:\n%s", buf.String())
	}
}
