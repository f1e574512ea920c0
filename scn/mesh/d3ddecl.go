package mesh

import (
	"encoding/binary"
)

// D3D9-style fixed element table declarations: 65 8-byte element records
// terminated by a stream-id sentinel of 0xff. Some SCN1 records embed these
// in front of the vertex buffer.
const (
	D3D_DECL_SIZE     = 520
	D3D_DECL_ELEMENTS = 65
	D3D_STREAM_END    = 0xff

	D3D_MAX_STRIDE = 1024

	D3DDECLTYPE_FLOAT1 = 0
	D3DDECLTYPE_FLOAT2 = 1
	D3DDECLTYPE_FLOAT3 = 2
	D3DDECLTYPE_FLOAT4 = 3

	D3DDECLUSAGE_POSITION = 0
	D3DDECLUSAGE_NORMAL   = 3
	D3DDECLUSAGE_TEXCOORD = 5
)

type D3DVertexElement struct {
	Stream     uint16
	Offset     uint16
	Type       uint8
	Method     uint8
	Usage      uint8
	UsageIndex uint8
}

// d3dTypeSize returns the byte size of a D3DDECLTYPE. Unknown types report
// !ok so a declaration using them fails the probe instead of silently
// defaulting to zero.
func d3dTypeSize(typ uint8) (uint32, bool) {
	switch typ {
	case 0: // FLOAT1
		return 4, true
	case 1: // FLOAT2
		return 8, true
	case 2: // FLOAT3
		return 12, true
	case 3: // FLOAT4
		return 16, true
	case 4: // D3DCOLOR
		return 4, true
	case 5: // UBYTE4
		return 4, true
	case 6: // SHORT2
		return 4, true
	case 7: // SHORT4
		return 4, true
	case 8: // UBYTE4N
		return 8, true
	case 9: // SHORT2N
		return 8, true
	case 10: // SHORT4N
		return 16, true
	case 11: // USHORT2N
		return 4, true
	case 12: // USHORT4N
		return 4, true
	case 13: // UDEC3
		return 4, true
	case 14: // DEC3N
		return 4, true
	case 15: // FLOAT16_2
		return 8, true
	case 16: // FLOAT16_4, conservative
		return 8, true
	case 17:
		return 8, true
	}
	return 0, false
}

// ParseD3DDecl520 parses a 520-byte fixed element table. The stride is the
// maximum offset+size over stream-0 elements. Fails when no sentinel is
// found within 65 records, an element type is unknown, or the stride falls
// outside (0, D3D_MAX_STRIDE].
func ParseD3DDecl520(block []byte) (stride uint32, elems []D3DVertexElement, ok bool) {
	if len(block) < D3D_DECL_SIZE {
		return 0, nil, false
	}

	endFound := false
	for i := 0; i < D3D_DECL_ELEMENTS; i++ {
		ofs := i * 8
		e := D3DVertexElement{
			Stream:     binary.LittleEndian.Uint16(block[ofs:]),
			Offset:     binary.LittleEndian.Uint16(block[ofs+2:]),
			Type:       block[ofs+4],
			Method:     block[ofs+5],
			Usage:      block[ofs+6],
			UsageIndex: block[ofs+7],
		}
		elems = append(elems, e)
		if e.Stream == D3D_STREAM_END {
			endFound = true
			break
		}
	}
	if !endFound {
		return 0, nil, false
	}

	for _, e := range elems {
		if e.Stream == D3D_STREAM_END {
			break
		}
		size, known := d3dTypeSize(e.Type)
		if !known {
			return 0, nil, false
		}
		// only stream 0 is exported, but other streams still parse
		if e.Stream != 0 {
			continue
		}
		if end := uint32(e.Offset) + size; end > stride {
			stride = end
		}
	}

	if stride == 0 || stride > D3D_MAX_STRIDE {
		return 0, nil, false
	}
	return stride, elems, true
}

// DecodeVertexD3D decodes vertex i using the element table. Only the first
// stream-0 POSITION (FLOAT3), NORMAL (FLOAT3) and TEXCOORD0 (FLOAT2) are
// consumed; elements with other usages or types occupy their byte offsets
// but are skipped as opaque. A missing position decodes as the origin.
func DecodeVertexD3D(elems []D3DVertexElement, vb []byte, i int, stride uint32, flipV, swapYZ bool) (pos Position, nrm *Normal, uv *UV) {
	base := uint32(i) * stride
	havePos := false

	for _, e := range elems {
		if e.Stream == D3D_STREAM_END {
			break
		}
		if e.Stream != 0 {
			continue
		}
		at := base + uint32(e.Offset)

		switch {
		case e.Usage == D3DDECLUSAGE_POSITION && !havePos:
			if e.Type == D3DDECLTYPE_FLOAT3 {
				pos = Position{f32At(vb, at), f32At(vb, at+4), f32At(vb, at+8)}
				if swapYZ {
					pos[1], pos[2] = pos[2], pos[1]
				}
				havePos = true
			}
		case e.Usage == D3DDECLUSAGE_NORMAL && nrm == nil:
			if e.Type == D3DDECLTYPE_FLOAT3 {
				n := Normal{f32At(vb, at), f32At(vb, at+4), f32At(vb, at+8)}
				if swapYZ {
					n[1], n[2] = n[2], n[1]
				}
				nrm = &n
			}
		case e.Usage == D3DDECLUSAGE_TEXCOORD && e.UsageIndex == 0 && uv == nil:
			if e.Type == D3DDECLTYPE_FLOAT2 {
				u, v := f32At(vb, at), f32At(vb, at+4)
				if flipV {
					v = 1 - v
				}
				uv = &UV{u, v}
			}
		}
	}

	return pos, nrm, uv
}
