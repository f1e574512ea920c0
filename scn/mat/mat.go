// Package mat recovers texture references and material bindings from raw
// record bytes of SCN1/SCN0 containers. Nothing here trusts section
// boundaries: both extractors scan for byte patterns and skip anything
// malformed instead of failing the record.
package mat

import (
	"bytes"
	"encoding/binary"
	"path"
	"strings"

	"github.com/mogaika/scn_browser/scn/mesh"
)

const MAX_TEXTURE_NAME_LEN = 260

func printableValue(s string) bool {
	if len(s) < 1 || len(s) > MAX_TEXTURE_NAME_LEN {
		return false
	}
	for _, c := range s {
		if c != '\t' && (c < 0x20 || c >= 0x7f) {
			return false
		}
	}
	return true
}

// ExtractTextureMaps pulls texture filenames keyed by the fixed slot names
// ("ColorMap", "NormalMap", ...) out of a record's raw bytes. Each key is
// matched as `name NUL value NUL`; the first plausible occurrence per key
// wins.
func ExtractTextureMaps(record []byte) mesh.MaterialSet {
	out := mesh.MaterialSet{}
	for _, key := range mesh.SlotNames {
		needle := append([]byte(key), 0)
		pos := 0
		for {
			idx := bytes.Index(record[pos:], needle)
			if idx < 0 {
				break
			}
			idx += pos

			sStart := idx + len(needle)
			if sEnd := bytes.IndexByte(record[sStart:], 0); sEnd > 0 {
				val := string(record[sStart : sStart+sEnd])
				if _, exists := out[key]; !exists && printableValue(val) {
					out[key] = val
				}
			}
			pos = idx + 1
		}
	}
	return out
}

// AutoEntry is one (key, value) binding of an "auto" material block. The
// trailing flags have unknown semantics and are kept raw.
type AutoEntry struct {
	Key   string
	Value string
	Flag1 uint32
	Flag2 uint32
}

// AutoBlock is one occurrence of the repeated pattern
//
//	"auto\0" + u32 entry_count + entry_count * (key_cstr, value_cstr, u32, u32)
type AutoBlock struct {
	Offset  int
	Entries []AutoEntry
}

var autoNeedle = []byte("auto\x00")

// ExtractAutoBlocks scans a record for "auto" material blocks. Malformed
// occurrences are skipped and scanning resumes one byte later; a single
// broken block never aborts the extraction.
func ExtractAutoBlocks(record []byte) []AutoBlock {
	blocks := make([]AutoBlock, 0)
	start := 0

	for {
		idx := bytes.Index(record[start:], autoNeedle)
		if idx < 0 {
			break
		}
		idx += start

		if idx+len(autoNeedle)+4 > len(record) {
			break
		}
		entryCount := binary.LittleEndian.Uint32(record[idx+len(autoNeedle):])
		// typical values are small (3~4)
		if entryCount == 0 || entryCount > 64 {
			start = idx + 1
			continue
		}

		if block, ok := parseAutoBlock(record, idx, entryCount); ok {
			blocks = append(blocks, block)
		}
		start = idx + 1
	}
	return blocks
}

func parseAutoBlock(record []byte, idx int, entryCount uint32) (AutoBlock, bool) {
	block := AutoBlock{Offset: idx}
	ofs := idx + len(autoNeedle) + 4

	for i := uint32(0); i < entryCount; i++ {
		key, next, ok := readCString(record, ofs)
		if !ok {
			return AutoBlock{}, false
		}
		val, next, ok := readCString(record, next)
		if !ok {
			return AutoBlock{}, false
		}
		if next+8 > len(record) {
			return AutoBlock{}, false
		}
		block.Entries = append(block.Entries, AutoEntry{
			Key:   key,
			Value: val,
			Flag1: binary.LittleEndian.Uint32(record[next:]),
			Flag2: binary.LittleEndian.Uint32(record[next+4:]),
		})
		ofs = next + 8
	}
	return block, true
}

func readCString(b []byte, ofs int) (string, int, bool) {
	if ofs < 0 || ofs >= len(b) {
		return "", 0, false
	}
	end := bytes.IndexByte(b[ofs:], 0)
	if end < 0 {
		return "", 0, false
	}
	return string(b[ofs : ofs+end]), ofs + end + 1, true
}

// AutoBlocksToMaterialSets flattens auto blocks into ordered material sets,
// one per block; the list position is the material id.
func AutoBlocksToMaterialSets(blocks []AutoBlock) []mesh.MaterialSet {
	out := make([]mesh.MaterialSet, 0, len(blocks))
	for _, b := range blocks {
		m := mesh.MaterialSet{}
		for _, e := range b.Entries {
			if e.Key != "" && e.Value != "" {
				m[e.Key] = e.Value
			}
		}
		out = append(out, m)
	}
	return out
}

// BaseName strips any directory part from a texture reference, tolerating
// both windows and unix separators.
func BaseName(s string) string {
	return path.Base(strings.ReplaceAll(s, "\\", "/"))
}
