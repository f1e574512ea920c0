package mesh

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mogaika/scn_browser/config"
	"github.com/mogaika/scn_browser/utils"
)

// DecodeOptions carries the coordinate conventions requested by the caller.
type DecodeOptions struct {
	FlipV  bool
	SwapYZ bool
}

// indexHeader is the decoded (format, count) pair in front of an index
// buffer. Two encodings exist:
//
//	Variant A: u32 format (0=u16, 1=u32) + u32 count
//	Variant B: u32 type + u32 count, type mapping to bytes-per-index
func probeIndexHeader(h0, h1 uint32, tun *config.Tunables) (bytesPerIndex uint32, count uint32, ok bool) {
	if h0 <= 1 && h1 != 0 && h1 <= tun.MaxIndexCountA {
		if h0 == 0 {
			return 2, h1, true
		}
		return 4, h1, true
	}

	var bpi uint32
	switch h0 {
	case 0, 2, 3:
		bpi = 2
	case 1, 4:
		bpi = 4
	default:
		return 0, 0, false
	}
	if h1 == 0 || h1 > tun.MaxIndexCountB {
		return 0, 0, false
	}
	return bpi, h1, true
}

func readIndices(ib []byte, count, bytesPerIndex uint32) []uint32 {
	indices := make([]uint32, count)
	if bytesPerIndex == 2 {
		for i := range indices {
			indices[i] = uint32(binary.LittleEndian.Uint16(ib[i*2:]))
		}
	} else {
		for i := range indices {
			indices[i] = binary.LittleEndian.Uint32(ib[i*4:])
		}
	}
	return indices
}

// ExtractD3DMeshBlocks scans a record payload for embedded
// (decl520 + vcount + VB + index header + IB) blocks. A single record can
// hold several blocks (LOD variants), so all hits are returned.
//
// The vertex count does not sit at a stable distance from the declaration;
// observed layouts put it at +520, +524 or +528 with zero padding in
// between, probed in that priority. Offsets are not 4-byte aligned (cstrings
// precede the block), so the probe slides on 2-byte alignment.
func ExtractD3DMeshBlocks(payload []byte, opts DecodeOptions, namePrefix string, maps MaterialSet, materialSets []MaterialSet, exlog *utils.Logger) []*Mesh {
	tun := config.GetTunables()
	meshes := make([]*Mesh, 0)
	if len(payload) < D3D_DECL_SIZE+4+8 {
		return meshes
	}

	seen := make(map[uint64]struct{})

	for off := 0; off < len(payload)-(D3D_DECL_SIZE+4+8); off += 2 {
		stride, elems, ok := ParseD3DDecl520(payload[off : off+D3D_DECL_SIZE])
		if !ok {
			continue
		}

		v0 := binary.LittleEndian.Uint32(payload[off+D3D_DECL_SIZE:])
		v1 := binary.LittleEndian.Uint32(payload[off+D3D_DECL_SIZE+4:])
		v2 := binary.LittleEndian.Uint32(payload[off+D3D_DECL_SIZE+8:])

		var vcount uint32
		var vbOff int
		if v0 > 0 && v0 <= tun.MaxVertexCountD3D {
			vcount, vbOff = v0, off+D3D_DECL_SIZE+4
		} else if v1 > 0 && v1 <= tun.MaxVertexCountD3D {
			vcount, vbOff = v1, off+D3D_DECL_SIZE+8
		} else {
			vcount, vbOff = v2, off+D3D_DECL_SIZE+12
		}
		if vcount == 0 || vcount > tun.MaxVertexCountD3D {
			continue
		}

		vbSize := uint64(stride) * uint64(vcount)
		idxHdr := uint64(vbOff) + vbSize
		if idxHdr+8 > uint64(len(payload)) {
			continue
		}
		h0 := binary.LittleEndian.Uint32(payload[idxHdr:])
		h1 := binary.LittleEndian.Uint32(payload[idxHdr+4:])

		bpi, idxCount, ok := probeIndexHeader(h0, h1, tun)
		if !ok {
			continue
		}

		ibOff := idxHdr + 8
		end := ibOff + uint64(idxCount)*uint64(bpi)
		if end > uint64(len(payload)) {
			continue
		}

		// avoid duplicates if scanning overlaps
		key := uint64(off)<<1 ^ uint64(vcount&0xffff) ^ uint64(idxCount)<<3
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		vb := payload[vbOff : uint64(vbOff)+vbSize]
		indices := readIndices(payload[ibOff:end], idxCount, bpi)

		m := &Mesh{
			Vertices: make([]Position, vcount),
			Maps:     maps,
		}
		for i := 0; i < int(vcount); i++ {
			pos, nrm, uv := DecodeVertexD3D(elems, vb, i, stride, opts.FlipV, opts.SwapYZ)
			m.Vertices[i] = pos
			if nrm != nil {
				if m.Normals == nil {
					m.Normals = make([]Normal, vcount)
				}
				m.Normals[i] = *nrm
			}
			if uv != nil {
				if m.UVs == nil {
					m.UVs = make([]UV, vcount)
				}
				m.UVs[i] = *uv
			}
		}
		m.Faces = TrianglesFromIndices(indices)
		m.MaterialSets = materialSets

		if len(m.Vertices) > 0 && len(m.Faces) > 0 {
			// For subset lookup, use the effective decl offset derived from
			// the vertex buffer start. This avoids false-positive decl
			// matches that overlap the preceding subset table.
			declOffEff := vbOff - (D3D_DECL_SIZE + 4)
			m.Subsets = FindSubsetTable(payload, declOffEff, vcount, uint32(len(m.Faces)))
		}

		// Keep the record name for the first block, suffix the rest.
		if len(meshes) == 0 {
			m.Name = namePrefix
		} else {
			m.Name = fmt.Sprintf("%s_%d", namePrefix, len(meshes))
		}

		exlog.Printf("  embedded block at 0x%x: stride %d verts %d indices %d subsets %d",
			off, stride, vcount, idxCount, len(m.Subsets))
		meshes = append(meshes, m)
	}

	return meshes
}

// VBBlock locates a compact-bitmask mesh block found by FindVBBlock.
type VBBlock struct {
	DeclOffset int
	Decl       uint32
	VCount     uint32
	IBOffset   int // index header offset
	End        int // end of index data
}

// FindVBBlock is the single fixed-size block heuristic: scan at 4-byte
// alignment for a compact bitmask declaration with a sane stride, followed
// by a plausible vertex count, vertex buffer, (format, count) index header
// and index data, with at most a small trailing slack. First match wins.
func FindVBBlock(payload []byte) (VBBlock, bool) {
	tun := config.GetTunables()
	if len(payload) < D3D_DECL_SIZE+4+4+8 {
		return VBBlock{}, false
	}

	for off := 0; off < len(payload)-(D3D_DECL_SIZE+4+8); off += 4 {
		decl := binary.LittleEndian.Uint32(payload[off:])
		if tun.StrictFormats {
			if _, known := declBaseSize(decl); !known {
				continue
			}
		}
		stride := VertexStride(decl)
		if stride < 12 || stride > 256 {
			continue
		}
		// DecodeVertex must stay inside the vertex record; unknown-base
		// declarations still get a 12-byte position probe the stride does
		// not account for.
		if declDecodeExtent(decl) > stride {
			continue
		}

		vcount := binary.LittleEndian.Uint32(payload[off+D3D_DECL_SIZE:])
		if vcount == 0 || vcount > tun.MaxVertexCountSingle {
			continue
		}

		vbOff := uint64(off) + D3D_DECL_SIZE + 4
		ibHdrOff := vbOff + uint64(stride)*uint64(vcount)
		if ibHdrOff+8 > uint64(len(payload)) {
			continue
		}

		idxFmt := binary.LittleEndian.Uint32(payload[ibHdrOff:])
		idxCount := binary.LittleEndian.Uint32(payload[ibHdrOff+4:])
		if idxCount == 0 || idxCount > tun.MaxIndexCountB {
			continue
		}

		var idxSize uint64
		switch idxFmt {
		case 0:
			idxSize = 2
		case 1:
			idxSize = 4
		default:
			continue
		}

		end := ibHdrOff + 8 + uint64(idxCount)*idxSize
		if end > uint64(len(payload)) {
			continue
		}

		// allow small trailing bytes (alignment/extra fields)
		if uint64(len(payload))-end > uint64(tun.TrailingSlackBytes) {
			continue
		}

		return VBBlock{
			DeclOffset: off,
			Decl:       decl,
			VCount:     vcount,
			IBOffset:   int(ibHdrOff),
			End:        int(end),
		}, true
	}

	return VBBlock{}, false
}

// DecodeVBBlock decodes the geometry of a block located by FindVBBlock.
func DecodeVBBlock(payload []byte, blk VBBlock, opts DecodeOptions) *Mesh {
	stride := VertexStride(blk.Decl)
	vbOff := blk.DeclOffset + D3D_DECL_SIZE + 4
	vb := payload[vbOff : vbOff+int(stride)*int(blk.VCount)]

	idxFmt := binary.LittleEndian.Uint32(payload[blk.IBOffset:])
	idxCount := binary.LittleEndian.Uint32(payload[blk.IBOffset+4:])
	bpi := uint32(2)
	if idxFmt == 1 {
		bpi = 4
	}
	indices := readIndices(payload[blk.IBOffset+8:blk.End], idxCount, bpi)

	m := &Mesh{Vertices: make([]Position, blk.VCount)}
	for i := 0; i < int(blk.VCount); i++ {
		pos, nrm, uv := DecodeVertex(blk.Decl, vb, i, opts.FlipV, opts.SwapYZ)
		m.Vertices[i] = pos
		if nrm != nil {
			if m.Normals == nil {
				m.Normals = make([]Normal, blk.VCount)
			}
			m.Normals[i] = *nrm
		}
		if uv != nil {
			if m.UVs == nil {
				m.UVs = make([]UV, blk.VCount)
			}
			m.UVs[i] = *uv
		}
	}
	m.Faces = TrianglesFromIndices(indices)

	if len(m.Vertices) > 0 && len(m.Faces) > 0 {
		m.Subsets = FindSubsetTable(payload, blk.DeclOffset, blk.VCount, uint32(len(m.Faces)))
	}
	return m
}

// STRIDE32_VERTEX_SIZE is the packed (pos3f, nrm3f, uv2f) vertex layout used
// by the stride-32 block format of some SCN0 files.
const STRIDE32_VERTEX_SIZE = 32

// Stride32Block is one candidate found by ScanStride32Blocks:
//
//	u32 vcount
//	vb[vcount * 32]
//	u32 tag        (101 or 102)
//	u32 ib_bytes   (u16 indices, triangle list)
//	ib[ib_bytes]
type Stride32Block struct {
	Offset   int
	VCount   uint32
	VBOffset int
	Tag      uint32
	IBBytes  uint32
	IBOffset int
	End      int
}

func (b *Stride32Block) FaceCount() int {
	return int(b.IBBytes) / 2 / 3
}

// ScanStride32Blocks scans from start to the end of the buffer for stride-32
// mesh blocks. Offsets are not aligned (strings can precede), so the scan is
// bytewise. All matches are collected so the caller can rank candidate LOD
// blocks by triangle count.
//
// Validity is cheap but layered: tag and size checks, a coordinate magnitude
// bound on the first vertex, and an index-in-range sample. Together these
// make random-data collisions vanishingly unlikely.
func ScanStride32Blocks(data []byte, start int) []Stride32Block {
	tun := config.GetTunables()
	out := make([]Stride32Block, 0)
	n := len(data)

	if start < 0 {
		start = 0
	}
	for off := start; off < n-16; off++ {
		vcount := binary.LittleEndian.Uint32(data[off:])
		if vcount < tun.MinVertexCountStride32 || vcount > tun.MaxVertexCountStride32 {
			continue
		}
		vbOff := off + 4
		vbSize := uint64(vcount) * STRIDE32_VERTEX_SIZE
		tagOff := uint64(vbOff) + vbSize
		if tagOff+8 > uint64(n) {
			continue
		}
		tag := binary.LittleEndian.Uint32(data[tagOff:])
		if tag != 101 && tag != 102 {
			continue
		}
		ibBytes := binary.LittleEndian.Uint32(data[tagOff+4:])
		if ibBytes == 0 || ibBytes > tun.MaxIndexBufferBytes || ibBytes%2 != 0 {
			continue
		}
		ibOff := tagOff + 8
		ibEnd := ibOff + uint64(ibBytes)
		if ibEnd > uint64(n) {
			continue
		}
		idxCount := ibBytes / 2
		if idxCount < 3 || idxCount%3 != 0 {
			continue
		}

		// first vertex position should look sane
		x := math.Abs(float64(f32At(data, uint32(vbOff))))
		y := math.Abs(float64(f32At(data, uint32(vbOff)+4)))
		z := math.Abs(float64(f32At(data, uint32(vbOff)+8)))
		bound := float64(tun.MaxCoordMagnitude)
		if !(x <= bound && y <= bound && z <= bound) {
			continue
		}

		// indices should not exceed vcount (sample a few)
		sample := tun.IndexSampleCount
		if int(idxCount) < sample {
			sample = int(idxCount)
		}
		sane := true
		for i := 0; i < sample; i++ {
			if uint32(binary.LittleEndian.Uint16(data[int(ibOff)+i*2:])) >= vcount {
				sane = false
				break
			}
		}
		if !sane {
			continue
		}

		out = append(out, Stride32Block{
			Offset:   off,
			VCount:   vcount,
			VBOffset: vbOff,
			Tag:      tag,
			IBBytes:  ibBytes,
			IBOffset: int(ibOff),
			End:      int(ibEnd),
		})
	}
	return out
}

// DecodeStride32Block decodes the fixed (pos, nrm, uv) vertices and the u16
// triangle list of a stride-32 block.
func DecodeStride32Block(data []byte, blk Stride32Block, opts DecodeOptions) *Mesh {
	m := &Mesh{
		Name:     fmt.Sprintf("SCN0_mesh_%x", blk.Offset),
		Vertices: make([]Position, blk.VCount),
		Normals:  make([]Normal, blk.VCount),
		UVs:      make([]UV, blk.VCount),
		Maps:     MaterialSet{},
	}

	for i := uint32(0); i < blk.VCount; i++ {
		base := uint32(blk.VBOffset) + i*STRIDE32_VERTEX_SIZE
		pos := Position{f32At(data, base), f32At(data, base+4), f32At(data, base+8)}
		nrm := Normal{f32At(data, base+12), f32At(data, base+16), f32At(data, base+20)}
		uv := UV{f32At(data, base+24), f32At(data, base+28)}

		if opts.SwapYZ {
			pos[1], pos[2] = pos[2], pos[1]
			nrm[1], nrm[2] = nrm[2], nrm[1]
		}
		if opts.FlipV {
			uv[1] = 1 - uv[1]
		}

		m.Vertices[i] = pos
		m.Normals[i] = nrm
		m.UVs[i] = uv
	}

	idxCount := int(blk.IBBytes) / 2
	indices := make([]uint32, idxCount)
	for i := 0; i < idxCount; i++ {
		indices[i] = uint32(binary.LittleEndian.Uint16(data[blk.IBOffset+i*2:]))
	}
	m.Faces = TrianglesFromIndices(indices)
	return m
}
