package mesh

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

type Position = mgl32.Vec3
type Normal = mgl32.Vec3
type UV = mgl32.Vec2

// Texture slot vocabulary used by both container families.
const (
	SLOT_COLOR_MAP      = "ColorMap"
	SLOT_NORMAL_MAP     = "NormalMap"
	SLOT_LUMINOSITY_MAP = "LuminosityMap"
	SLOT_REFLECTION_MAP = "ReflectionMap"
)

var SlotNames = []string{SLOT_COLOR_MAP, SLOT_NORMAL_MAP, SLOT_LUMINOSITY_MAP, SLOT_REFLECTION_MAP}

// MaterialSet maps texture slots to filenames. The mapping may be partial.
type MaterialSet map[string]string

// Subset is a contiguous triangle range bound to one material.
// VertexCount is only present for 20-byte table entries; when present it
// always equals the owning mesh's vertex count and serves as a table
// plausibility check rather than a subset-local count.
type Subset struct {
	MaterialId  uint32
	StartTri    uint32
	TriCount    uint32
	BaseVertex  uint32
	VertexCount uint32
}

// Mesh is the reconstructed geometry of one container record. Normals and
// UVs are uniform per mesh: either every vertex has one or the slice is nil.
type Mesh struct {
	Name     string
	Vertices []Position
	Normals  []Normal
	UVs      []UV
	Faces    [][3]uint32

	Subsets      []Subset
	MaterialSets []MaterialSet
	// Maps is the flat texture-slot fallback used when no subsets exist.
	Maps MaterialSet
}

// Validate checks the construction invariant that every face index
// references an existing vertex. Scanners build faces without bound checks,
// so this must pass before a mesh is emitted downstream.
func (m *Mesh) Validate() error {
	vcount := uint32(len(m.Vertices))
	for i, f := range m.Faces {
		if f[0] >= vcount || f[1] >= vcount || f[2] >= vcount {
			return errors.Errorf("face %d indexes %v out of %d vertices", i, f, vcount)
		}
	}
	for i, s := range m.Subsets {
		if uint64(s.StartTri)+uint64(s.TriCount) > uint64(len(m.Faces)) {
			return errors.Errorf("subset %d range [%d:+%d] over %d faces", i, s.StartTri, s.TriCount, len(m.Faces))
		}
		if s.BaseVertex > vcount {
			return errors.Errorf("subset %d base vertex %d over %d vertices", i, s.BaseVertex, vcount)
		}
	}
	return nil
}

// TextureRefs collects the distinct texture references of the mesh's flat
// maps and material sets, in slot order.
func (m *Mesh) TextureRefs() []string {
	seen := make(map[string]struct{})
	refs := make([]string, 0)
	add := func(set MaterialSet) {
		for _, slot := range SlotNames {
			ref := set[slot]
			if ref == "" {
				continue
			}
			if _, ok := seen[ref]; !ok {
				seen[ref] = struct{}{}
				refs = append(refs, ref)
			}
		}
	}
	add(m.Maps)
	for _, set := range m.MaterialSets {
		add(set)
	}
	return refs
}

// TrianglesFromIndices assembles faces from a raw index stream. A count
// divisible by 3 is a plain triangle list. Anything else is reinterpreted as
// a triangle strip: winding alternates with index parity and degenerate
// triangles (any two shared indices) are dropped.
func TrianglesFromIndices(indices []uint32) [][3]uint32 {
	if len(indices)%3 == 0 {
		faces := make([][3]uint32, 0, len(indices)/3)
		for i := 0; i+2 < len(indices); i += 3 {
			faces = append(faces, [3]uint32{indices[i], indices[i+1], indices[i+2]})
		}
		return faces
	}

	faces := make([][3]uint32, 0, len(indices))
	for i := 2; i < len(indices); i++ {
		a, b, c := indices[i-2], indices[i-1], indices[i]
		if a == b || b == c || a == c {
			continue
		}
		if i&1 != 0 {
			faces = append(faces, [3]uint32{b, a, c})
		} else {
			faces = append(faces, [3]uint32{a, b, c})
		}
	}
	return faces
}
