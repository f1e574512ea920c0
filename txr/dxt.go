package txr

import (
	"encoding/binary"
	"image"
	"image/color"
)

// Based on github.com/xdanieldzd/GXTConvert

func rgb565fromUint16(v uint16) (r, g, b uint16) {
	r = (v >> 11) & 0x1f
	g = (v >> 5) & 0x3f
	b = (v >> 0) & 0x1f

	r = (r << 3) | (r >> 2)
	g = (g << 2) | (g >> 4)
	b = (b << 3) | (b >> 2)

	return
}

func dxColorFromPosition(positionCode uint32, color0, color1 uint16, r0, g0, b0 uint16, r1, g1, b1 uint16) (r, g, b byte) {
	switch positionCode {
	case 0:
		r, g, b = byte(r0), byte(g0), byte(b0)
	case 1:
		r, g, b = byte(r1), byte(g1), byte(b1)
	case 2:
		if color0 > color1 {
			r, g, b = byte((2*r0+r1)/3), byte((2*g0+g1)/3), byte((2*b0+b1)/3)
		} else {
			r, g, b = byte((r0+r1)/2), byte((g0+g1)/2), byte((b0+b1)/2)
		}
	case 3:
		if color0 > color1 {
			r, g, b = byte((r0+2*r1)/3), byte((g0+2*g1)/3), byte((b0+2*b1)/3)
		} else {
			r, g, b = 0, 0, 0
		}
	}
	return
}

func decompressBlockDXT1(blockData []byte, outColors []color.NRGBA) {
	color0 := binary.LittleEndian.Uint16(blockData[0:])
	color1 := binary.LittleEndian.Uint16(blockData[2:])
	code := binary.LittleEndian.Uint32(blockData[4:])

	r0, g0, b0 := rgb565fromUint16(color0)
	r1, g1, b1 := rgb565fromUint16(color1)

	for y := uint32(0); y < 4; y++ {
		for x := uint32(0); x < 4; x++ {
			positionCode := (code >> (2 * ((4 * y) + x))) & 3

			r, g, b := dxColorFromPosition(
				positionCode, color0, color1,
				r0, g0, b0, r1, g1, b1)

			outColors[x+y*4] = color.NRGBA{R: r, G: g, B: b, A: 0xff}
		}
	}
}

func decompressBlockDXT5(blockData []byte, outColors []color.NRGBA) {
	alpha0 := uint32(blockData[0])
	alpha1 := uint32(blockData[1])

	// uint48 splitted to uint32 + uint16
	alphaCode1 := binary.LittleEndian.Uint32(blockData[4:])
	alphaCode2 := uint32(binary.LittleEndian.Uint16(blockData[2:]))

	color0 := binary.LittleEndian.Uint16(blockData[8:])
	color1 := binary.LittleEndian.Uint16(blockData[10:])

	colorCode := binary.LittleEndian.Uint32(blockData[12:])

	r0, g0, b0 := rgb565fromUint16(color0)
	r1, g1, b1 := rgb565fromUint16(color1)

	for y := uint32(0); y < 4; y++ {
		for x := uint32(0); x < 4; x++ {
			alphaCodeIndex := 3 * (4*y + x)
			var alphaCode uint32

			if alphaCodeIndex <= 12 {
				alphaCode = (alphaCode2 >> alphaCodeIndex) & 7
			} else if alphaCodeIndex == 15 {
				alphaCode = (alphaCode2 >> 15) | ((alphaCode1 << 1) & 6)
			} else {
				alphaCode = (alphaCode1 >> (alphaCodeIndex - 16)) & 7
			}

			var finalAlpha byte
			if alphaCode == 0 {
				finalAlpha = byte(alpha0)
			} else if alphaCode == 1 {
				finalAlpha = byte(alpha1)
			} else {
				if alpha0 > alpha1 {
					finalAlpha = byte(((8-alphaCode)*alpha0 + (alphaCode-1)*alpha1) / 7)
				} else {
					if alphaCode == 6 {
						finalAlpha = 0
					} else if alphaCode == 7 {
						finalAlpha = 0xff
					} else {
						finalAlpha = byte(((6-alphaCode)*alpha0 + (alphaCode-1)*alpha1) / 5)
					}
				}
			}

			positionCode := (colorCode >> (2 * ((4 * y) + x))) & 3

			r, g, b := dxColorFromPosition(
				positionCode, color0, color1,
				r0, g0, b0, r1, g1, b1)

			outColors[x+y*4] = color.NRGBA{R: r, G: g, B: b, A: finalAlpha}
		}
	}
}

// decompressImageDX lays decoded 4x4 blocks out in DDS order: blocks run
// left to right, top to bottom, row-major within each block.
func decompressImageDX(w, h, blockBytes int, data []byte, blockmethod func(blockData []byte, colors []color.NRGBA)) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))

	blocksPerRow := (w + 3) / 4
	blocksPerCol := (h + 3) / 4
	blocks := blocksPerRow * blocksPerCol
	if have := len(data) / blockBytes; blocks > have {
		blocks = have
	}

	colors := make([]color.NRGBA, 4*4)

	for iBlock := 0; iBlock < blocks; iBlock++ {
		blockmethod(data[iBlock*blockBytes:], colors)

		baseX := (iBlock % blocksPerRow) * 4
		baseY := (iBlock / blocksPerRow) * 4
		for iColor, c := range colors {
			x := baseX + iColor%4
			y := baseY + iColor/4
			if x < w && y < h {
				img.SetNRGBA(x, y, c)
			}
		}
	}

	return img
}

func DecompressImageDXT1(data []byte, w, h int) *image.NRGBA {
	return decompressImageDX(w, h, 8, data, decompressBlockDXT1)
}

func DecompressImageDXT5(data []byte, w, h int) *image.NRGBA {
	return decompressImageDX(w, h, 16, data, decompressBlockDXT5)
}
