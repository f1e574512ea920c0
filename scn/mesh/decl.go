package mesh

import (
	"encoding/binary"
	"math"

	"github.com/mogaika/scn_browser/3rdparty/half"
)

// Compact bitmask vertex declarations: a 32-bit flag value encodes the byte
// layout of one vertex.
//
//	decl & 0x400e        base position encoding (12..32 bytes)
//	decl & 0x10          normal (3 floats)
//	decl & 0x20/0x40/0x80  opaque packed 4-byte fields
//	(decl >> 8) & 0xf    UV slot count
//	(decl >> 16) & 0xffff  2 bits per slot UV format selector
const (
	DECL_BASE_MASK   = 0x400e
	DECL_NORMAL_BIT  = 0x10
	DECL_PACKED_BITS = 0xe0

	UV_FORMAT_FLOAT2 = 0 // 8 bytes
	UV_FORMAT_FLOAT3 = 1 // 12 bytes
	UV_FORMAT_FLOAT4 = 2 // 16 bytes
	UV_FORMAT_HALF2  = 3 // 4 bytes
)

// declBaseSize returns the byte size of the base position encoding. The
// second result reports whether the base selector is a known one; unknown
// selectors contribute zero bytes in permissive scanning.
func declBaseSize(decl uint32) (uint32, bool) {
	switch decl & DECL_BASE_MASK {
	case 0x0002:
		return 12, true
	case 0x0004:
		return 16, true
	case 0x0006:
		return 16, true
	case 0x0008:
		return 20, true
	case 0x000a:
		return 24, true
	case 0x000c:
		return 28, true
	case 0x000e:
		return 32, true
	}
	return 0, false
}

func uvSlotSize(format uint32) uint32 {
	switch format & 3 {
	case UV_FORMAT_FLOAT2:
		return 8
	case UV_FORMAT_FLOAT3:
		return 12
	case UV_FORMAT_FLOAT4:
		return 16
	default:
		return 4
	}
}

// VertexStride computes the byte size of one vertex record for a compact
// bitmask declaration. Unrecognized base selectors count as zero bytes.
func VertexStride(decl uint32) uint32 {
	stride, _ := declBaseSize(decl)

	if decl&DECL_NORMAL_BIT != 0 {
		stride += 12
	}
	if decl&0x20 != 0 {
		stride += 4
	}
	if decl&0x40 != 0 {
		stride += 4
	}
	if decl&0x80 != 0 {
		stride += 4
	}

	uvCount := (decl >> 8) & 0xf
	uvFmtBits := (decl >> 16) & 0xffff
	if uvFmtBits != 0 {
		for i := uint32(0); i < uvCount; i++ {
			stride += uvSlotSize(uvFmtBits & 3)
			uvFmtBits >>= 2
		}
	} else {
		stride += 8 * uvCount
	}
	return stride
}

// declDecodeExtent is the number of bytes DecodeVertex actually reads from
// one vertex record: the 12-byte position probe (applied even when the base
// selector is unknown and contributes zero bytes to the stride), the normal,
// the packed fields and the first UV slot. A declaration whose extent
// exceeds its stride would read into the next vertex record and past the end
// of the buffer on the last one.
func declDecodeExtent(decl uint32) uint32 {
	extent, known := declBaseSize(decl)
	if !known {
		extent = 12
	}

	if decl&DECL_NORMAL_BIT != 0 {
		extent += 12
	}
	if decl&0x20 != 0 {
		extent += 4
	}
	if decl&0x40 != 0 {
		extent += 4
	}
	if decl&0x80 != 0 {
		extent += 4
	}

	if uvCount := (decl >> 8) & 0xf; uvCount != 0 {
		uvFmtBits := (decl >> 16) & 0xffff
		format := uint32(UV_FORMAT_FLOAT2)
		if uvFmtBits != 0 {
			format = uvFmtBits & 3
		}
		if format == UV_FORMAT_HALF2 {
			extent += 4
		} else {
			extent += 8
		}
	}
	return extent
}

func f32At(b []byte, ofs uint32) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[ofs:]))
}

// DecodeVertex decodes vertex i of a compact bitmask vertex buffer.
// Only the leading 3 floats of wider base encodings are kept; the rest is
// unknown weight/texture-index padding. At most one UV pair is decoded,
// using the first selector slot only.
func DecodeVertex(decl uint32, vb []byte, i int, flipV, swapYZ bool) (pos Position, nrm *Normal, uv *UV) {
	ofs := uint32(i) * VertexStride(decl)

	base, known := declBaseSize(decl)
	if !known {
		// Unknown layout; still try the first 12 bytes as position.
		base = 12
	}
	pos = Position{f32At(vb, ofs), f32At(vb, ofs+4), f32At(vb, ofs+8)}
	ofs += base

	if swapYZ {
		pos[1], pos[2] = pos[2], pos[1]
	}

	if decl&DECL_NORMAL_BIT != 0 {
		n := Normal{f32At(vb, ofs), f32At(vb, ofs+4), f32At(vb, ofs+8)}
		ofs += 12
		if swapYZ {
			n[1], n[2] = n[2], n[1]
		}
		nrm = &n
	}

	// packed fields have unknown semantics, skip
	if decl&0x20 != 0 {
		ofs += 4
	}
	if decl&0x40 != 0 {
		ofs += 4
	}
	if decl&0x80 != 0 {
		ofs += 4
	}

	if uvCount := (decl >> 8) & 0xf; uvCount != 0 {
		uvFmtBits := (decl >> 16) & 0xffff
		format := uint32(UV_FORMAT_FLOAT2)
		if uvFmtBits != 0 {
			format = uvFmtBits & 3
		}

		var u, v float32
		switch format {
		case UV_FORMAT_FLOAT2, UV_FORMAT_FLOAT3, UV_FORMAT_FLOAT4:
			u, v = f32At(vb, ofs), f32At(vb, ofs+4)
		default:
			u = half.Float16(binary.LittleEndian.Uint16(vb[ofs:])).Float32()
			v = half.Float16(binary.LittleEndian.Uint16(vb[ofs+2:])).Float32()
		}

		if flipV {
			v = 1 - v
		}
		uv = &UV{u, v}
	}

	return pos, nrm, uv
}
