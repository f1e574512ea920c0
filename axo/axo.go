// Package axo parses AXO model archives. Unlike the scn heuristics this
// format is chunked and self-describing, so parsing is strict: documented
// headers only, no scanning.
package axo

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/mogaika/scn_browser/utils"
)

const (
	TAG_INFO = 0x4F464E49 // "INFO"
	TAG_AXO_ = 0x5F4F5841 // "AXO_"
	TAG_END_ = 0x20444E45 // "END "
	TAG_GEOG = 0x474F4547 // "GEOG"
	TAG_GEOM = 0x4D4F4547 // "GEOM"
	TAG_TEX_ = 0x20584554 // "TEX "
	TAG_MTRL = 0x4C52544D // "MTRL"
	TAG_ATOM = 0x4D4F5441 // "ATOM"
	TAG_FRAM = 0x4D415246 // "FRAM"
)

const CHUNK_HEADER_SIZE = 16

// FourCC renders a chunk tag as text, replacing non-ascii bytes.
func FourCC(tag uint32) string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], tag)
	s := make([]byte, 4)
	for i, c := range b {
		if c >= 0x20 && c < 0x7f {
			s[i] = c
		} else {
			s[i] = '?'
		}
	}
	return string(s)
}

// Chunk is one 16-byte chunk header. Size excludes the header itself; the
// meaning of Count and UnkC depends on the tag (for ATOM, UnkC is the
// record size).
type Chunk struct {
	Offset int
	Tag    uint32
	Size   uint32
	Count  uint32
	UnkC   uint32
}

func (c *Chunk) Tag4() string {
	return FourCC(c.Tag)
}

// Header is the fixed file preamble: INFO at 0x00, AXO_ at 0x10 followed by
// version and two opaque dwords.
type Header struct {
	Version uint32
	Unk24   uint32
	Unk28   uint32
}

// TexEntry is one 36-byte TEX record: u32 id + 32-byte NUL-padded name.
type TexEntry struct {
	Id   uint32
	Name string
}

// MtrlEntry is one 68-byte MTRL record. Key is the lookup value ATOM
// records reference; TexId points into the TEX table.
type MtrlEntry struct {
	Key   uint32
	Unk4  int32
	TexId uint32
}

// AtomRecord maps fourcc keys ("GEOM", "MTRL", "FRAM", ...) to index/key
// values. Record layout is a flat list of (fourcc, u32) pairs.
type AtomRecord map[string]uint32

// File is a parsed AXO archive.
type File struct {
	Header    Header
	Chunks    []Chunk
	GeogKids  []Chunk
	GeomHdrs  map[int][8]uint32 // keyed by chunk offset
	Textures  []TexEntry
	Materials []MtrlEntry
	Atoms     []AtomRecord
}

func u32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off:])
}

func parseHeader(b []byte) (Header, error) {
	if len(b) < 0x20 {
		return Header{}, errors.New("axo: file too small")
	}
	if u32(b, 0x00) != TAG_INFO {
		return Header{}, errors.New("axo: missing INFO")
	}
	if u32(b, 0x10) != TAG_AXO_ {
		return Header{}, errors.New("axo: missing AXO_ at +0x10")
	}
	return Header{
		Version: u32(b, 0x14),
		Unk24:   u32(b, 0x18),
		Unk28:   u32(b, 0x1C),
	}, nil
}

func parseChunkAt(b []byte, off int) (Chunk, error) {
	if off < 0 || off+CHUNK_HEADER_SIZE > len(b) {
		return Chunk{}, errors.Errorf("axo: chunk header out of range at 0x%x", off)
	}
	return Chunk{
		Offset: off,
		Tag:    u32(b, off),
		Size:   u32(b, off+4),
		Count:  u32(b, off+8),
		UnkC:   u32(b, off+12),
	}, nil
}

// walkTop iterates sibling chunks from the file start until END.
func walkTop(b []byte) ([]Chunk, error) {
	out := make([]Chunk, 0)
	off := 0
	for off+CHUNK_HEADER_SIZE <= len(b) {
		c, err := parseChunkAt(b, off)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		if c.Tag == TAG_END_ {
			break
		}
		next := off + CHUNK_HEADER_SIZE + int(c.Size)
		if next <= off {
			return nil, errors.Errorf("axo: chunk at 0x%x does not advance", off)
		}
		off = next
	}
	return out, nil
}

func parseGeogChildren(b []byte, geog Chunk) []Chunk {
	out := make([]Chunk, 0, geog.Count)
	off := geog.Offset + CHUNK_HEADER_SIZE
	for i := uint32(0); i < geog.Count; i++ {
		c, err := parseChunkAt(b, off)
		if err != nil {
			break
		}
		out = append(out, c)
		off = off + CHUNK_HEADER_SIZE + int(c.Size)
	}
	return out
}

func parseTex(b []byte, tex Chunk) []TexEntry {
	const recSize = 36
	out := make([]TexEntry, 0, tex.Count)
	off := tex.Offset + CHUNK_HEADER_SIZE
	for i := uint32(0); i < tex.Count; i++ {
		if off+recSize > len(b) {
			break
		}
		out = append(out, TexEntry{
			Id:   u32(b, off),
			Name: utils.BytesToString(b[off+4 : off+recSize]),
		})
		off += recSize
	}
	return out
}

func parseMtrl(b []byte, mtrl Chunk) []MtrlEntry {
	const recSize = 68
	out := make([]MtrlEntry, 0, mtrl.Count)
	off := mtrl.Offset + CHUNK_HEADER_SIZE
	for i := uint32(0); i < mtrl.Count; i++ {
		if off+recSize > len(b) {
			break
		}
		out = append(out, MtrlEntry{
			Key:   u32(b, off),
			Unk4:  int32(u32(b, off+4)),
			TexId: u32(b, off+15*4),
		})
		off += recSize
	}
	return out
}

func parseAtom(b []byte, atom Chunk) []AtomRecord {
	recSize := int(atom.UnkC)
	if recSize <= 0 || recSize%8 != 0 {
		return nil
	}
	pairsPerRec := recSize / 8
	base := atom.Offset + CHUNK_HEADER_SIZE

	out := make([]AtomRecord, 0, atom.Count)
	for i := uint32(0); i < atom.Count; i++ {
		off := base + int(i)*recSize
		if off+recSize > len(b) {
			break
		}
		rec := make(AtomRecord, pairsPerRec)
		for p := 0; p < pairsPerRec; p++ {
			rec[FourCC(u32(b, off+p*8))] = u32(b, off+p*8+4)
		}
		out = append(out, rec)
	}
	return out
}

func parseGeomHdr(b []byte, geom Chunk) ([8]uint32, bool) {
	var hdr [8]uint32
	base := geom.Offset + CHUNK_HEADER_SIZE
	if base+0x20 > len(b) {
		return hdr, false
	}
	utils.ReadBytes(&hdr, b[base:base+0x20])
	return hdr, true
}

// Parse decodes the whole archive structure.
func Parse(b []byte) (*File, error) {
	hdr, err := parseHeader(b)
	if err != nil {
		return nil, err
	}

	chunks, err := walkTop(b)
	if err != nil {
		return nil, err
	}

	f := &File{
		Header:   hdr,
		Chunks:   chunks,
		GeomHdrs: make(map[int][8]uint32),
	}

	for _, c := range chunks {
		switch c.Tag {
		case TAG_TEX_:
			f.Textures = parseTex(b, c)
		case TAG_MTRL:
			f.Materials = parseMtrl(b, c)
		case TAG_ATOM:
			f.Atoms = parseAtom(b, c)
		case TAG_GEOG:
			f.GeogKids = parseGeogChildren(b, c)
			for _, kid := range f.GeogKids {
				if kid.Tag == TAG_GEOM {
					if h, ok := parseGeomHdr(b, kid); ok {
						f.GeomHdrs[kid.Offset] = h
					}
				}
			}
		}
	}

	return f, nil
}

// MaterialByKey resolves an ATOM material reference. The loader compares
// the reference against MTRL record keys, not indices.
func (f *File) MaterialByKey(key uint32) (MtrlEntry, bool) {
	for _, m := range f.Materials {
		if m.Key == key {
			return m, true
		}
	}
	return MtrlEntry{}, false
}

func (f *File) TextureById(id uint32) (TexEntry, bool) {
	for _, t := range f.Textures {
		if t.Id == id {
			return t, true
		}
	}
	return TexEntry{}, false
}

// ValidationIssue is one failed cross-reference found by Validate.
type ValidationIssue struct {
	Atom    int
	Problem string
}

// Validate cross-checks ATOM references: every MTRL key must exist in the
// MTRL table and every referenced TexId must exist in the TEX table.
func (f *File) Validate() []ValidationIssue {
	issues := make([]ValidationIssue, 0)
	for ai, rec := range f.Atoms {
		mtrlKey, hasMtrl := rec["MTRL"]
		if _, hasGeom := rec["GEOM"]; !hasGeom || !hasMtrl {
			continue
		}
		m, ok := f.MaterialByKey(mtrlKey)
		if !ok {
			if len(f.Materials) > 0 {
				issues = append(issues, ValidationIssue{
					Atom:    ai,
					Problem: "MTRL key not found",
				})
			}
			continue
		}
		if len(f.Textures) > 0 {
			if _, ok := f.TextureById(m.TexId); !ok {
				issues = append(issues, ValidationIssue{
					Atom:    ai,
					Problem: "TEX id not found",
				})
			}
		}
	}
	return issues
}
