package scn

import (
	"regexp"

	"github.com/pkg/errors"

	"github.com/mogaika/scn_browser/scn/mat"
	"github.com/mogaika/scn_browser/scn/mesh"
	"github.com/mogaika/scn_browser/utils"
)

// SCN0 carries no mesh directory at all: after the scene tree the geometry
// sits somewhere in the remaining bytes as stride-32 blocks. Material
// bindings come from strings in the file (see scn/mat).

// baseHintPattern extracts the asset family code from a file stem, e.g.
// "CH01" from "CH01_body".
var baseHintPattern = regexp.MustCompile(`^[A-Za-z]{2}[0-9]{2}`)

// parseSCN0 recovers the single best mesh of an SCN0 container. Returns
// (nil, nil) when no stride-32 block is found; the container then simply has
// no recoverable geometry.
func parseSCN0(data []byte, baseName string, opts mesh.DecodeOptions, exlog *utils.Logger) (*mesh.Mesh, error) {
	afterTree, err := SkipSceneTree(data, 4)
	if err != nil {
		return nil, err
	}

	blocks := mesh.ScanStride32Blocks(data, afterTree)
	exlog.Printf("SCN0 %q: %d stride-32 candidates after tree end 0x%x", baseName, len(blocks), afterTree)
	if len(blocks) == 0 {
		return nil, nil
	}

	baseHint := baseHintPattern.FindString(baseName)
	materialSets := mat.ChooseSCN0MaterialSets(data, baseHint)

	colorMaps := make(map[int]string)
	for i, m := range materialSets {
		if cm := m[mesh.SLOT_COLOR_MAP]; cm != "" {
			colorMaps[i] = cm
		}
	}

	// The candidate list usually holds several LODs of the same mesh. The
	// subset quadruples near the texture names reference triangle/vertex
	// ranges of the block the bindings belong to, so use them as a lower
	// bound to rule out the lower LODs.
	reqFaces, reqVerts := mat.InferSubsetRequirements(data, colorMaps)
	eligible := blocks[:0:0]
	for _, b := range blocks {
		if uint32(b.FaceCount()) >= reqFaces && b.VCount >= reqVerts {
			eligible = append(eligible, b)
		}
	}
	if len(eligible) == 0 {
		eligible = blocks
	}

	best := eligible[0]
	for _, b := range eligible[1:] {
		if b.FaceCount() > best.FaceCount() ||
			(b.FaceCount() == best.FaceCount() && b.VCount > best.VCount) {
			best = b
		}
	}

	m := mesh.DecodeStride32Block(data, best, opts)
	m.Name = baseName
	m.MaterialSets = materialSets

	if len(m.Subsets) == 0 && len(materialSets) > 1 && len(colorMaps) > 0 {
		m.Subsets = mat.InferSubsetsFromTextureBlocks(data, best.VCount, uint32(best.FaceCount()), colorMaps)
	}
	if len(m.Subsets) == 0 && len(materialSets) > 1 {
		// cannot split the mesh per material, so bind the first set whole
		m.Maps = materialSets[0]
		m.MaterialSets = nil
	}

	if err := m.Validate(); err != nil {
		return nil, errors.Wrapf(ErrMalformed, "SCN0 mesh: %v", err)
	}
	return m, nil
}
