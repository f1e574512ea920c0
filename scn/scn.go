// Package scn decodes the undocumented "SCN1" and "SCN0" scene containers.
// Only the parts needed to reconstruct geometry and texture bindings are
// parsed; everything else is skipped structurally.
package scn

import (
	"github.com/pkg/errors"

	"github.com/mogaika/scn_browser/scn/mat"
	"github.com/mogaika/scn_browser/scn/mesh"
	"github.com/mogaika/scn_browser/utils"
)

var (
	magicSCN1 = [4]byte{'S', 'C', 'N', '1'}
	magicSCN0 = [4]byte{'S', 'C', 'N', '0'}
)

// Scene is the decoded result of one container file.
type Scene struct {
	Name    string
	Variant string // "SCN1" or "SCN0"
	Meshes  []*mesh.Mesh
}

var ErrUnknownMagic = errors.New("unknown container magic")

// Decode dispatches on the 4-byte magic. name is the file stem; it seeds
// SCN0 material-family inference and mesh naming.
func Decode(data []byte, name string, opts mesh.DecodeOptions, exlog *utils.Logger) (*Scene, error) {
	if len(data) < 8 {
		return nil, errors.Wrap(ErrMalformed, "file too small")
	}

	var magic [4]byte
	copy(magic[:], data[:4])

	switch magic {
	case magicSCN1:
		meshes, err := parseSCN1(data, opts, exlog)
		if err != nil {
			return nil, err
		}
		return &Scene{Name: name, Variant: "SCN1", Meshes: meshes}, nil
	case magicSCN0:
		m, err := parseSCN0(data, name, opts, exlog)
		if err != nil {
			return nil, err
		}
		s := &Scene{Name: name, Variant: "SCN0"}
		if m != nil {
			s.Meshes = []*mesh.Mesh{m}
		}
		return s, nil
	}
	return nil, errors.Wrapf(ErrUnknownMagic, "%q", magic[:])
}

// SelectPrimaryMesh picks the mesh most worth exporting on its own: among
// meshes that carry both subsets and material sets, the one with the most
// distinct color maps (then subsets, vertices, faces); otherwise simply the
// largest mesh. Returns nil for an empty scene.
func (s *Scene) SelectPrimaryMesh() *mesh.Mesh {
	if len(s.Meshes) == 0 {
		return nil
	}

	type rank struct {
		colorMaps int
		subsets   int
		verts     int
		faces     int
	}
	rankOf := func(m *mesh.Mesh) rank {
		distinct := make(map[string]struct{})
		for _, set := range m.MaterialSets {
			if cm := set[mesh.SLOT_COLOR_MAP]; cm != "" {
				distinct[mat.BaseName(cm)] = struct{}{}
			}
		}
		return rank{len(distinct), len(m.Subsets), len(m.Vertices), len(m.Faces)}
	}
	better := func(a, b rank) bool {
		if a.colorMaps != b.colorMaps {
			return a.colorMaps > b.colorMaps
		}
		if a.subsets != b.subsets {
			return a.subsets > b.subsets
		}
		if a.verts != b.verts {
			return a.verts > b.verts
		}
		return a.faces > b.faces
	}

	var best *mesh.Mesh
	var bestRank rank
	for _, m := range s.Meshes {
		if len(m.Subsets) == 0 || len(m.MaterialSets) == 0 {
			continue
		}
		if r := rankOf(m); best == nil || better(r, bestRank) {
			best, bestRank = m, r
		}
	}
	if best != nil {
		return best
	}

	best = s.Meshes[0]
	for _, m := range s.Meshes[1:] {
		if len(m.Vertices) > len(best.Vertices) ||
			(len(m.Vertices) == len(best.Vertices) && len(m.Faces) > len(best.Faces)) {
			best = m
		}
	}
	return best
}
