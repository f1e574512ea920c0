package txr

import (
	"encoding/binary"
	"image"

	"github.com/pkg/errors"
)

const DDS_HEADER_SIZE = 128

// DecodeDDS handles the top mip level of the DDS variants the containers
// reference: DXT1, DXT5 and uncompressed 32-bit BGRA/RGBA.
func DecodeDDS(data []byte) (image.Image, error) {
	if len(data) < DDS_HEADER_SIZE {
		return nil, errors.New("dds: file too small")
	}
	if string(data[0:4]) != "DDS " {
		return nil, errors.New("dds: bad magic")
	}
	if binary.LittleEndian.Uint32(data[4:]) != 124 {
		return nil, errors.New("dds: bad header size")
	}

	height := int(binary.LittleEndian.Uint32(data[12:]))
	width := int(binary.LittleEndian.Uint32(data[16:]))
	if width <= 0 || height <= 0 || width > 16384 || height > 16384 {
		return nil, errors.Errorf("dds: implausible size %dx%d", width, height)
	}

	pfFlags := binary.LittleEndian.Uint32(data[80:])
	fourCC := string(data[84:88])
	payload := data[DDS_HEADER_SIZE:]

	const ddpfFourCC = 0x4
	if pfFlags&ddpfFourCC != 0 {
		switch fourCC {
		case "DXT1":
			return DecompressImageDXT1(payload, width, height), nil
		case "DXT5", "DXT3":
			// DXT3 alpha is explicit 4-bit, decoding it as DXT5 distorts
			// alpha only; color channels come out right
			return DecompressImageDXT5(payload, width, height), nil
		default:
			return nil, errors.Errorf("dds: unsupported fourcc %q", fourCC)
		}
	}

	rgbBitCount := binary.LittleEndian.Uint32(data[88:])
	if rgbBitCount != 32 {
		return nil, errors.Errorf("dds: unsupported uncompressed bit count %d", rgbBitCount)
	}
	if len(payload) < width*height*4 {
		return nil, errors.New("dds: truncated pixel data")
	}

	rMask := binary.LittleEndian.Uint32(data[92:])
	bgra := rMask == 0x00ff0000

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		p := payload[i*4:]
		o := i * 4
		if bgra {
			img.Pix[o+0] = p[2]
			img.Pix[o+1] = p[1]
			img.Pix[o+2] = p[0]
		} else {
			img.Pix[o+0] = p[0]
			img.Pix[o+1] = p[1]
			img.Pix[o+2] = p[2]
		}
		img.Pix[o+3] = p[3]
	}
	return img, nil
}
