// Package txr loads the texture files referenced by scene containers and
// converts them to formats model viewers understand.
package txr

import (
	"bytes"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	_ "github.com/ftrvxmtrx/tga"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"

	"github.com/mogaika/scn_browser/scn/mat"
	"github.com/mogaika/scn_browser/utils"
)

// Load reads a texture file. DDS has its own decoder; tga, bmp, png and
// jpeg go through image.Decode.
func Load(path string) (image.Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to read texture %q", path)
	}

	if strings.EqualFold(filepath.Ext(path), ".dds") {
		return DecodeDDS(raw)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to decode texture %q", path)
	}
	return img, nil
}

func SavePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func SaveWebP(w io.Writer, img image.Image) error {
	return nativewebp.Encode(w, img, nil)
}

// ReplaceLastSuffix swaps the filename extension, appending when there is
// none.
func ReplaceLastSuffix(name, newExt string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)] + newExt
}

// saveAs picks the encoder from the target extension.
func saveAs(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Unable to create %q", path)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".webp":
		return SaveWebP(f, img)
	default:
		return SavePNG(f, img)
	}
}

// FindTextureFile resolves a container texture reference against a search
// directory, case-insensitively; references routinely disagree with the
// on-disk casing.
func FindTextureFile(dir, ref string) (string, bool) {
	base := mat.BaseName(ref)

	direct := filepath.Join(dir, base)
	if _, err := os.Stat(direct); err == nil {
		return direct, true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), base) {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return "", false
}

// ConvertReferenced converts every referenced texture found under srcDir
// into outDir as targetExt (".png" or ".webp"). Returns a reference ->
// converted-basename map covering only the textures that converted; missing
// or broken files are logged and left out so exports keep the original
// reference.
func ConvertReferenced(srcDir, outDir, targetExt string, refs []string, exlog *utils.Logger) map[string]string {
	converted := make(map[string]string)

	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if _, done := converted[ref]; done {
			continue
		}

		path, ok := FindTextureFile(srcDir, ref)
		if !ok {
			exlog.Printf("texture %q: not found under %q", ref, srcDir)
			continue
		}

		img, err := Load(path)
		if err != nil {
			exlog.Printf("texture %q: %v", ref, err)
			continue
		}

		outName := ReplaceLastSuffix(mat.BaseName(ref), targetExt)
		if err := saveAs(filepath.Join(outDir, outName), img); err != nil {
			exlog.Printf("texture %q: %v", ref, err)
			continue
		}
		converted[ref] = outName
	}

	return converted
}
