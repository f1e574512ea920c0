package scn

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/scn_browser/scn/mat"
	"github.com/mogaika/scn_browser/scn/mesh"
	"github.com/mogaika/scn_browser/utils"
)

// SCN1 top-level layout:
//
//	"SCN1" + u32 zero + scene tree
//	material library blob (nested counts, skipped)
//	pairs list (u32 count + count*12 bytes)
//	3 opaque u32
//	mesh record list (u32 count, per record u32 size + size-4 bytes)
//	texture mapping list (u32 count, per entry u32+u32+cstr; read only to
//	keep the cursor aligned)
//	extra mesh record list (u32 count, per entry record + trailing cstr)
func parseSCN1(data []byte, opts mesh.DecodeOptions, exlog *utils.Logger) ([]*mesh.Mesh, error) {
	r := NewReaderAt(data, 4)

	hdr, err := r.U32()
	if err != nil {
		return nil, errors.Wrapf(ErrMalformed, "header: %v", err)
	}
	if hdr != 0 {
		return nil, errors.Wrapf(ErrMalformed, "unexpected SCN1 header dword: %d", hdr)
	}

	afterTree, err := SkipSceneTree(data, r.Tell())
	if err != nil {
		return nil, err
	}
	if err := r.Seek(afterTree); err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}

	if err := skipMaterialLibrary(r); err != nil {
		return nil, err
	}

	// pairs list
	pairCount, err := r.U32()
	if err != nil {
		return nil, errors.Wrapf(ErrMalformed, "pairs count: %v", err)
	}
	if err := r.Skip(int(pairCount) * 12); err != nil {
		return nil, errors.Wrapf(ErrMalformed, "pairs list: %v", err)
	}

	// 3 opaque dwords (often floats in practice)
	if err := r.Skip(12); err != nil {
		return nil, errors.Wrapf(ErrMalformed, "post-pairs dwords: %v", err)
	}

	meshCount, err := r.U32()
	if err != nil {
		return nil, errors.Wrapf(ErrMalformed, "mesh count: %v", err)
	}

	var rng utils.RandomNameGenerator
	meshes := make([]*mesh.Mesh, 0, meshCount)

	for iRec := uint32(0); iRec < meshCount; iRec++ {
		rec, err := readSizedRecord(r)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformed, "mesh record %d: %v", iRec, err)
		}

		recName, payload := splitRecordName(rec)
		if recName == "" {
			recName = rng.RandomName()
		}
		head := rec
		if len(head) > 16 {
			head = head[:16]
		}
		exlog.Printf("record %d %q: %d bytes, head %s", iRec, recName, len(rec), utils.DumpToOneLineString(head))

		maps := mat.ExtractTextureMaps(rec)
		materialSets := mat.AutoBlocksToMaterialSets(mat.ExtractAutoBlocks(rec))

		// Main records can contain multiple embedded mesh blocks
		// (LOD/high-low etc.); those take precedence over the single-block
		// heuristics.
		embedded := mesh.ExtractD3DMeshBlocks(payload, opts, recName, maps, materialSets, exlog)
		if len(embedded) > 0 {
			for _, m := range embedded {
				if err := m.Validate(); err != nil {
					exlog.Printf("record %d %q: dropping invalid block: %v", iRec, recName, err)
					continue
				}
				meshes = append(meshes, m)
			}
			continue
		}

		if m := parseMeshRecord(rec, recName, opts, exlog); m != nil && len(m.Vertices) > 0 && len(m.Faces) > 0 {
			m.Maps = maps
			m.MaterialSets = materialSets
			if err := m.Validate(); err != nil {
				exlog.Printf("record %d %q: dropping invalid mesh: %v", iRec, recName, err)
				continue
			}
			meshes = append(meshes, m)
		}
	}

	// texture mapping list: not used for binding, but it sits between the
	// mesh sections so it has to be consumed
	mappingCount, err := r.U32()
	if err != nil {
		return nil, errors.Wrapf(ErrMalformed, "mapping count: %v", err)
	}
	for i := uint32(0); i < mappingCount; i++ {
		if err := r.Skip(8); err != nil {
			return nil, errors.Wrapf(ErrMalformed, "mapping entry %d: %v", i, err)
		}
		if _, err := r.CString(); err != nil {
			return nil, errors.Wrapf(ErrMalformed, "mapping entry %d: %v", i, err)
		}
	}

	extraCount, err := r.U32()
	if err != nil {
		return nil, errors.Wrapf(ErrMalformed, "extra mesh count: %v", err)
	}
	for i := uint32(0); i < extraCount; i++ {
		rec, err := readSizedRecord(r)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformed, "extra mesh record %d: %v", i, err)
		}

		recName, _ := splitRecordName(rec)
		if recName == "" {
			recName = rng.RandomName()
		}

		m := parseMeshRecord(rec, recName, opts, exlog)

		if _, err := r.CString(); err != nil {
			return nil, errors.Wrapf(ErrMalformed, "extra mesh record %d name: %v", i, err)
		}

		if m != nil && len(m.Vertices) > 0 && len(m.Faces) > 0 {
			m.Maps = mat.ExtractTextureMaps(rec)
			m.MaterialSets = mat.AutoBlocksToMaterialSets(mat.ExtractAutoBlocks(rec))
			if err := m.Validate(); err != nil {
				exlog.Printf("extra record %d %q: dropping invalid mesh: %v", i, recName, err)
				continue
			}
			meshes = append(meshes, m)
		}
	}

	return meshes, nil
}

// skipMaterialLibrary advances over the material/library blob. The content
// is driven entirely by nested counts and is not retained.
func skipMaterialLibrary(r *Reader) error {
	countA, err := r.U32()
	if err != nil {
		return errors.Wrapf(ErrMalformed, "library count: %v", err)
	}
	for i := uint32(0); i < countA; i++ {
		if _, err := r.CString(); err != nil {
			return errors.Wrapf(ErrMalformed, "library %d name: %v", i, err)
		}
		countB, err := r.U32()
		if err != nil {
			return errors.Wrapf(ErrMalformed, "library %d entries: %v", i, err)
		}
		for j := uint32(0); j < countB; j++ {
			if _, err := r.CString(); err != nil {
				return errors.Wrapf(ErrMalformed, "library %d entry %d: %v", i, j, err)
			}
			if err := r.Skip(4); err != nil { // 1/0 flag
				return errors.Wrap(ErrMalformed, err.Error())
			}
			for _, entrySize := range []int{16, 20, 16, 68} {
				c, err := r.U32()
				if err != nil {
					return errors.Wrap(ErrMalformed, err.Error())
				}
				if err := r.Skip(entrySize * int(c)); err != nil {
					return errors.Wrap(ErrMalformed, err.Error())
				}
			}
		}
	}
	return nil
}

// readSizedRecord reads a size-framed record, keeping the leading size
// dword as part of the returned slice so in-record offsets match the file.
func readSizedRecord(r *Reader) ([]byte, error) {
	start := r.Tell()
	size, err := r.U32()
	if err != nil {
		return nil, err
	}
	if size < 4 {
		return nil, errors.Errorf("record size %d too small", size)
	}
	if _, err := r.Bytes(int(size) - 4); err != nil {
		return nil, err
	}
	return r.data[start : start+int(size)], nil
}

// splitRecordName extracts the record name (a cstring at offset 8, after
// the size dword and one opaque dword) and the payload that follows it.
func splitRecordName(rec []byte) (string, []byte) {
	const nameOff = 8
	if len(rec) <= nameOff {
		return "", nil
	}
	nul := bytes.IndexByte(rec[nameOff:], 0)
	if nul < 0 {
		return "", nil
	}
	name := strings.ToValidUTF8(string(rec[nameOff:nameOff+nul]), "�")
	return name, rec[nameOff+nul+1:]
}

// parseMeshRecord recovers a single mesh from a size-framed record. Paths
// are tried in the reference priority: a declaration at the payload start,
// then an embedded-block scan, then the compact-bitmask heuristic.
func parseMeshRecord(rec []byte, name string, opts mesh.DecodeOptions, exlog *utils.Logger) *mesh.Mesh {
	if len(rec) < 12 {
		return nil
	}

	_, payload := splitRecordName(rec)
	if payload == nil {
		return nil
	}

	if m := parseLeadingD3DBlock(payload, opts); m != nil {
		m.Name = name
		return m
	}

	if embedded := mesh.ExtractD3DMeshBlocks(payload, opts, name, nil, nil, exlog); len(embedded) > 0 {
		return embedded[0]
	}

	blk, ok := mesh.FindVBBlock(payload)
	if !ok {
		return nil
	}
	m := mesh.DecodeVBBlock(payload, blk, opts)
	m.Name = name
	return m
}

// parseLeadingD3DBlock handles records whose payload starts directly with a
// 520-byte element table (the a7==1 loader path): decl + vcount + VB +
// (u32 format, u32 count) + IB. No subset recovery on this path.
func parseLeadingD3DBlock(payload []byte, opts mesh.DecodeOptions) *mesh.Mesh {
	if len(payload) < mesh.D3D_DECL_SIZE+4+8 {
		return nil
	}
	stride, elems, ok := mesh.ParseD3DDecl520(payload[:mesh.D3D_DECL_SIZE])
	if !ok {
		return nil
	}

	v0 := binary.LittleEndian.Uint32(payload[mesh.D3D_DECL_SIZE:])
	var v1, v2 uint32
	if len(payload) >= mesh.D3D_DECL_SIZE+8 {
		v1 = binary.LittleEndian.Uint32(payload[mesh.D3D_DECL_SIZE+4:])
	}
	if len(payload) >= mesh.D3D_DECL_SIZE+12 {
		v2 = binary.LittleEndian.Uint32(payload[mesh.D3D_DECL_SIZE+8:])
	}

	const maxVCount = 5000000
	var vcount uint32
	var vbOff int
	if v0 > 0 && v0 <= maxVCount {
		vcount, vbOff = v0, mesh.D3D_DECL_SIZE+4
	} else if v1 > 0 && v1 <= maxVCount {
		vcount, vbOff = v1, mesh.D3D_DECL_SIZE+8
	} else {
		vcount, vbOff = v2, mesh.D3D_DECL_SIZE+12
	}
	if vcount == 0 || vcount > maxVCount {
		return nil
	}

	vbSize := uint64(stride) * uint64(vcount)
	if uint64(vbOff)+vbSize+8 > uint64(len(payload)) {
		return nil
	}
	idxFmt := binary.LittleEndian.Uint32(payload[uint64(vbOff)+vbSize:])
	idxCount := binary.LittleEndian.Uint32(payload[uint64(vbOff)+vbSize+4:])
	if idxFmt > 1 {
		return nil
	}
	idxSize := uint64(2)
	if idxFmt == 1 {
		idxSize = 4
	}
	ibOff := uint64(vbOff) + vbSize + 8
	if ibOff+uint64(idxCount)*idxSize > uint64(len(payload)) {
		return nil
	}

	vb := payload[vbOff : uint64(vbOff)+vbSize]
	m := &mesh.Mesh{Vertices: make([]mesh.Position, vcount)}
	for i := 0; i < int(vcount); i++ {
		pos, nrm, uv := mesh.DecodeVertexD3D(elems, vb, i, stride, opts.FlipV, opts.SwapYZ)
		m.Vertices[i] = pos
		if nrm != nil {
			if m.Normals == nil {
				m.Normals = make([]mesh.Normal, vcount)
			}
			m.Normals[i] = *nrm
		}
		if uv != nil {
			if m.UVs == nil {
				m.UVs = make([]mesh.UV, vcount)
			}
			m.UVs[i] = *uv
		}
	}

	indices := make([]uint32, idxCount)
	for i := range indices {
		if idxSize == 2 {
			indices[i] = uint32(binary.LittleEndian.Uint16(payload[ibOff+uint64(i)*2:]))
		} else {
			indices[i] = binary.LittleEndian.Uint32(payload[ibOff+uint64(i)*4:])
		}
	}
	m.Faces = mesh.TrianglesFromIndices(indices)
	return m
}
