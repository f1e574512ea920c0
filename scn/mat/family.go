package mat

import (
	"bytes"
	"encoding/binary"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mogaika/scn_browser/scn/mesh"
)

// SCN0 containers have no declared material sections. Bindings are
// recovered from the file's own strings: either "auto" blocks (same concept
// as SCN1), or, failing that, texture filename families following the
// `PREFIX_INDEX.EXT` convention.

// texFamilyPattern matches texture family members. regexp compiles to a
// non-backtracking automaton, so running it over every extracted string is
// safe even on adversarial input.
var texFamilyPattern = regexp.MustCompile(`^([A-Za-z0-9]+)_([0-9]+)\.([A-Za-z0-9]{2,5})$`)

var trailingIndexPattern = regexp.MustCompile(`_([0-9]+)\.`)

// iterPrintableStrings yields NUL-terminated printable-ASCII spans that look
// like filenames (at least 4 chars, contain a letter and a dot, no path
// separators).
func iterPrintableStrings(data []byte, yield func(s string)) {
	const maxLen = MAX_TEXTURE_NAME_LEN
	n := len(data)
	i := 0
	for i < n {
		b := data[i]
		if b >= 0x20 && b < 0x7f {
			j := i
			for j < n && data[j] != 0 && data[j] >= 0x20 && data[j] < 0x7f && j-i < maxLen {
				j++
			}
			if j < n && data[j] == 0 && j-i >= 4 {
				s := string(data[i:j])
				if strings.ContainsAny(s, ".") && !strings.ContainsAny(s, "/\\") && strings.IndexFunc(s, isASCIILetter) >= 0 {
					yield(s)
				}
				i = j + 1
				continue
			}
		}
		i++
	}
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// InferColorMapFamilies collects `PREFIX_INDEX.EXT` strings, groups them by
// prefix and picks one family: the one matching baseHint+"E", baseHint+"U"
// or baseHint exactly (in that priority), or else the family with the most
// distinct indices. Returns an index -> filename map.
func InferColorMapFamilies(data []byte, baseHint string) map[int]string {
	byPrefix := make(map[string]map[int]string)

	iterPrintableStrings(data, func(s string) {
		m := texFamilyPattern.FindStringSubmatch(s)
		if m == nil {
			return
		}
		idx, err := strconv.Atoi(m[2])
		if err != nil || idx < 0 || idx > 999 {
			return
		}
		family := byPrefix[m[1]]
		if family == nil {
			family = make(map[int]string)
			byPrefix[m[1]] = family
		}
		family[idx] = s
	})

	if len(byPrefix) == 0 {
		return nil
	}

	if baseHint != "" {
		for _, suffix := range []string{"E", "U", ""} {
			if family, ok := byPrefix[baseHint+suffix]; ok {
				return family
			}
		}
	}

	// fallback: the richest family, ties broken by prefix order
	best := ""
	for prefix, family := range byPrefix {
		if best == "" || len(family) > len(byPrefix[best]) ||
			(len(family) == len(byPrefix[best]) && prefix > best) {
			best = prefix
		}
	}
	return byPrefix[best]
}

// ColorMapsToMaterialSets turns an index -> filename map into an ordered
// material-set list where the list position equals the index.
func ColorMapsToMaterialSets(colorMaps map[int]string) []mesh.MaterialSet {
	if len(colorMaps) == 0 {
		return nil
	}
	need := 0
	for idx := range colorMaps {
		if idx+1 > need {
			need = idx + 1
		}
	}
	out := make([]mesh.MaterialSet, need)
	for i := range out {
		out[i] = mesh.MaterialSet{}
	}
	for idx, fname := range colorMaps {
		out[idx][mesh.SLOT_COLOR_MAP] = fname
	}
	return out
}

func materialScore(m mesh.MaterialSet) (int, int) {
	filled := 0
	for _, k := range mesh.SlotNames {
		if m[k] != "" {
			filled++
		}
	}
	return filled, len(m)
}

func scoreLess(a, b mesh.MaterialSet) bool {
	af, al := materialScore(a)
	bf, bl := materialScore(b)
	if af != bf {
		return af < bf
	}
	return al < bl
}

// ChooseSCN0MaterialSets prefers in-file "auto" blocks and falls back to
// filename-family inference when no auto blocks are present. Auto sets are
// narrowed to the hinted texture family when possible, deduplicated by
// ColorMap filename (keeping the richest variant) and ordered by the
// trailing index in the filename.
func ChooseSCN0MaterialSets(data []byte, baseHint string) []mesh.MaterialSet {
	autoSets := make([]mesh.MaterialSet, 0)
	for _, m := range AutoBlocksToMaterialSets(ExtractAutoBlocks(data)) {
		if m[mesh.SLOT_COLOR_MAP] != "" {
			autoSets = append(autoSets, m)
		}
	}

	if len(autoSets) == 0 {
		return ColorMapsToMaterialSets(InferColorMapFamilies(data, baseHint))
	}

	if baseHint != "" {
		for _, familyPrefix := range []string{baseHint + "E", baseHint + "U"} {
			narrowed := make([]mesh.MaterialSet, 0)
			for _, m := range autoSets {
				name := strings.ToLower(BaseName(m[mesh.SLOT_COLOR_MAP]))
				if strings.HasPrefix(name, strings.ToLower(familyPrefix)) {
					narrowed = append(narrowed, m)
				}
			}
			if len(narrowed) > 0 {
				autoSets = narrowed
				break
			}
		}
	}

	// deduplicate by ColorMap filename, keep the richest variant
	best := make(map[string]mesh.MaterialSet)
	for _, m := range autoSets {
		cm := BaseName(m[mesh.SLOT_COLOR_MAP])
		if cm == "" || cm == "." {
			continue
		}
		if cur, ok := best[cm]; !ok || scoreLess(cur, m) {
			best[cm] = m
		}
	}

	names := make([]string, 0, len(best))
	for name := range best {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ii, is := trailingIndex(names[i])
		ji, js := trailingIndex(names[j])
		if ii != ji {
			return ii < ji
		}
		return is < js
	})

	out := make([]mesh.MaterialSet, 0, len(names))
	for _, name := range names {
		out = append(out, best[name])
	}
	return out
}

func trailingIndex(name string) (int, string) {
	lower := strings.ToLower(name)
	m := trailingIndexPattern.FindStringSubmatch(name)
	if m == nil {
		return 1 << 30, lower
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return 1 << 30, lower
	}
	return idx, lower
}

// InferSubsetRequirements back-scans near each chosen texture name for a
// (start_tri, tri_count, base_vertex, vertex_count) quadruple without
// knowing the mesh dimensions yet. The result is a lower bound on the face
// and vertex counts of the block the bindings belong to, used to pick the
// correct (usually highest) LOD among scanner candidates.
func InferSubsetRequirements(data []byte, colorMaps map[int]string) (reqFaces, reqVerts uint32) {
	for _, id := range sortedKeys(colorMaps) {
		needle := append([]byte(BaseName(colorMaps[id])), 0)
		pos := bytes.Index(data, needle)
		if pos < 0 {
			continue
		}

		var best [4]uint32
		found := false
		backStart := pos - 64
		for ofs := pos - 16; ofs >= backStart && ofs >= 0; ofs -= 4 {
			if ofs+16 > len(data) {
				continue
			}
			startTri := binary.LittleEndian.Uint32(data[ofs:])
			triCount := binary.LittleEndian.Uint32(data[ofs+4:])
			baseV := binary.LittleEndian.Uint32(data[ofs+8:])
			vCnt := binary.LittleEndian.Uint32(data[ofs+12:])
			if triCount == 0 || vCnt == 0 {
				continue
			}
			if !found || triCount > best[1] || (triCount == best[1] && vCnt > best[3]) {
				best = [4]uint32{startTri, triCount, baseV, vCnt}
				found = true
			}
		}
		if found {
			if end := best[0] + best[1]; end > reqFaces {
				reqFaces = end
			}
			if end := best[2] + best[3]; end > reqVerts {
				reqVerts = end
			}
		}
	}
	return reqFaces, reqVerts
}

// InferSubsetsFromTextureBlocks recovers SCN0 subset ranges from the bytes
// immediately preceding each chosen texture name. Some samples interleave
// extra floats or flags before the quadruple, so every 4-byte-aligned
// position within the 64-byte back window is probed and the candidate with
// the largest (tri_count, vertex_count) wins.
func InferSubsetsFromTextureBlocks(data []byte, vcount, faceCount uint32, colorMaps map[int]string) []mesh.Subset {
	if len(colorMaps) == 0 || vcount == 0 || faceCount == 0 {
		return nil
	}

	subsets := make([]mesh.Subset, 0)
	for _, id := range sortedKeys(colorMaps) {
		needle := append([]byte(colorMaps[id]), 0)
		pos := bytes.Index(data, needle)
		if pos < 0 {
			continue
		}

		var best mesh.Subset
		found := false
		backStart := pos - 64
		for ofs := pos - 16; ofs >= backStart && ofs >= 0; ofs -= 4 {
			if ofs+16 > len(data) {
				continue
			}
			cand := mesh.Subset{
				MaterialId:  uint32(id),
				StartTri:    binary.LittleEndian.Uint32(data[ofs:]),
				TriCount:    binary.LittleEndian.Uint32(data[ofs+4:]),
				BaseVertex:  binary.LittleEndian.Uint32(data[ofs+8:]),
				VertexCount: binary.LittleEndian.Uint32(data[ofs+12:]),
			}
			if !subsetCandidateOk(cand, vcount, faceCount) {
				continue
			}
			if !found || cand.TriCount > best.TriCount ||
				(cand.TriCount == best.TriCount && cand.VertexCount > best.VertexCount) {
				best = cand
				found = true
			}
		}
		if found {
			subsets = append(subsets, best)
		}
	}

	sort.Slice(subsets, func(i, j int) bool {
		if subsets[i].StartTri != subsets[j].StartTri {
			return subsets[i].StartTri < subsets[j].StartTri
		}
		return subsets[i].MaterialId < subsets[j].MaterialId
	})
	return subsets
}

func subsetCandidateOk(s mesh.Subset, vcount, faceCount uint32) bool {
	if s.TriCount == 0 || s.TriCount > faceCount {
		return false
	}
	if s.StartTri >= faceCount || s.StartTri+s.TriCount > faceCount {
		return false
	}
	if s.VertexCount == 0 || s.BaseVertex >= vcount || s.BaseVertex+s.VertexCount > vcount {
		return false
	}
	return true
}

func sortedKeys(m map[int]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
