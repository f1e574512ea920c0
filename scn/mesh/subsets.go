package mesh

import (
	"encoding/binary"

	"github.com/mogaika/scn_browser/config"
)

// FindSubsetTable recovers the per-material triangle-range table that sits
// somewhere before a located mesh block:
//
//	u32 subset_count
//	subset_count * (u32 material_id, u32 start_tri, u32 tri_count,
//	                u32 base_vertex [, u32 vertex_count])
//
// Entries are 20 bytes (with vertex_count, which must equal the mesh's
// vertex count exactly) or 16 bytes, tried in that priority. The scan walks
// a bounded window behind the declaration at 4-byte alignment and keeps the
// valid table whose end lies closest to the declaration offset. Returns nil
// when no candidate validates; the mesh then has no subsets and falls back
// to single-material binding.
func FindSubsetTable(payload []byte, declOff int, vcount uint32, faceCount uint32) []Subset {
	tun := config.GetTunables()

	searchStart := declOff - tun.SubsetBackscanWindow
	if searchStart < 0 {
		searchStart = 0
	}
	searchEnd := declOff - 4
	if searchEnd <= searchStart {
		return nil
	}

	var best []Subset
	bestEnd := -1 << 31

	for off := searchStart; off < searchEnd; off += 4 {
		if off+4 > len(payload) {
			break
		}
		subsetCount := binary.LittleEndian.Uint32(payload[off:])
		if subsetCount == 0 || subsetCount > tun.SubsetMaxEntries {
			continue
		}

		for _, entrySize := range []int{20, 16} {
			tableBytes := 4 + int(subsetCount)*entrySize
			// the table must not overlap the declaration
			if off+tableBytes > declOff || off+tableBytes > len(payload) {
				continue
			}

			entries, ok := readSubsetEntries(payload[off+4:], subsetCount, entrySize, vcount, faceCount)
			if !ok {
				continue
			}

			// prefer the table closest to the declaration
			if end := off + tableBytes; end > bestEnd {
				best = entries
				bestEnd = end
			}
		}
	}
	return best
}

func readSubsetEntries(b []byte, count uint32, entrySize int, vcount, faceCount uint32) ([]Subset, bool) {
	entries := make([]Subset, 0, count)
	sumTris := uint64(0)

	for i := 0; i < int(count); i++ {
		ofs := i * entrySize
		s := Subset{
			MaterialId: binary.LittleEndian.Uint32(b[ofs:]),
			StartTri:   binary.LittleEndian.Uint32(b[ofs+4:]),
			TriCount:   binary.LittleEndian.Uint32(b[ofs+8:]),
			BaseVertex: binary.LittleEndian.Uint32(b[ofs+12:]),
		}
		if entrySize == 20 {
			s.VertexCount = binary.LittleEndian.Uint32(b[ofs+16:])
			if s.VertexCount != vcount {
				return nil, false
			}
		}

		if s.BaseVertex > vcount {
			return nil, false
		}
		if s.TriCount == 0 || s.TriCount > 100000000 || s.StartTri > 100000000 {
			return nil, false
		}
		if uint64(s.StartTri)+uint64(s.TriCount) > uint64(faceCount) {
			return nil, false
		}

		sumTris += uint64(s.TriCount)
		entries = append(entries, s)
	}

	if sumTris == 0 {
		return nil, false
	}
	return entries, true
}
