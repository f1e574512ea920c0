package main

import (
	"bytes"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mogaika/scn_browser/config"
	"github.com/mogaika/scn_browser/scn"
	"github.com/mogaika/scn_browser/scn/mat"
	"github.com/mogaika/scn_browser/scn/mesh"
	"github.com/mogaika/scn_browser/txr"
	"github.com/mogaika/scn_browser/utils"
	"github.com/mogaika/scn_browser/web"
)

func collectTextureRefs(meshes []*mesh.Mesh) []string {
	seen := make(map[string]struct{})
	refs := make([]string, 0)
	for _, m := range meshes {
		for _, ref := range m.TextureRefs() {
			if _, ok := seen[ref]; !ok {
				seen[ref] = struct{}{}
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

func exportScene(sc *scn.Scene, srcDir, outRoot, format, texExt string, exlog *utils.Logger) error {
	outDir := filepath.Join(outRoot, strings.ToLower(sc.Variant), sc.Name)
	if err := os.MkdirAll(outDir, 0777); err != nil {
		return err
	}

	// obj references textures as loose sidecar files; glb embeds them and
	// fbx bundles them into its zip, so only obj converts onto disk.
	resolve := mesh.TextureResolver(nil)
	if texExt != "" && format == "obj" {
		converted := txr.ConvertReferenced(srcDir, outDir, texExt, collectTextureRefs(sc.Meshes), exlog)
		resolve = func(ref string) string {
			if name, ok := converted[ref]; ok {
				return name
			}
			return mat.BaseName(ref)
		}
	}

	switch format {
	case "obj":
		for _, m := range sc.Meshes {
			objPath := filepath.Join(outDir, m.Name+".obj")
			mtlPath := filepath.Join(outDir, m.Name+".mtl")

			objF, err := os.Create(objPath)
			if err != nil {
				return err
			}
			err = m.WriteObj(objF, filepath.Base(mtlPath))
			objF.Close()
			if err != nil {
				return err
			}

			mtlF, err := os.Create(mtlPath)
			if err != nil {
				return err
			}
			err = m.WriteMtl(mtlF, resolve)
			mtlF.Close()
			if err != nil {
				return err
			}
		}
	case "gltf":
		loader := func(ref string) ([]byte, error) {
			path, ok := txr.FindTextureFile(srcDir, ref)
			if !ok {
				return nil, os.ErrNotExist
			}
			img, err := txr.Load(path)
			if err != nil {
				return nil, err
			}
			var buf bytes.Buffer
			if err := txr.SavePNG(&buf, img); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		}
		doc, err := mesh.BuildGLTFDocument(sc.Meshes, loader)
		if err != nil {
			return err
		}
		f, err := os.Create(filepath.Join(outDir, sc.Name+".glb"))
		if err != nil {
			return err
		}
		defer f.Close()
		return mesh.WriteGLB(f, doc)
	case "fbx":
		for _, m := range sc.Meshes {
			f := m.ExportFbxDefault()

			if texExt != "" {
				for _, ref := range m.TextureRefs() {
					path, ok := txr.FindTextureFile(srcDir, ref)
					if !ok {
						exlog.Printf("texture %q not found near source", ref)
						continue
					}
					img, err := txr.Load(path)
					if err != nil {
						exlog.Printf("texture %q: %v", ref, err)
						continue
					}
					var buf bytes.Buffer
					if texExt == ".webp" {
						err = txr.SaveWebP(&buf, img)
					} else {
						err = txr.SavePNG(&buf, img)
					}
					if err != nil {
						exlog.Printf("texture %q: %v", ref, err)
						continue
					}
					f.AddExportFile(txr.ReplaceLastSuffix(mat.BaseName(ref), texExt), buf.Bytes())
				}

				out, err := os.Create(filepath.Join(outDir, m.Name+".fbx.zip"))
				if err != nil {
					return err
				}
				err = f.WriteZip(out, m.Name+".fbx")
				out.Close()
				if err != nil {
					return err
				}
				continue
			}

			out, err := os.Create(filepath.Join(outDir, m.Name+".fbx"))
			if err != nil {
				return err
			}
			err = f.Write(out)
			out.Close()
			if err != nil {
				return err
			}
		}
	default:
		log.Fatalf("unknown format %q", format)
	}
	return nil
}

func batchConvert(dir, out, format, texExt string, opts mesh.DecodeOptions, exlog *utils.Logger) {
	converted, failed := 0, 0

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.EqualFold(filepath.Ext(path), ".scn") {
			return err
		}

		// A corrupt file must not take the rest of the batch down with it,
		// whatever the failure mode.
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Panic converting %q: %v", path, r)
				failed++
			}
		}()

		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Error reading %q: %v", path, err)
			failed++
			return nil
		}

		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		sc, err := scn.Decode(data, stem, opts, exlog)
		if err != nil {
			log.Printf("Error decoding %q: %v", path, err)
			failed++
			return nil
		}
		if len(sc.Meshes) == 0 {
			log.Printf("No meshes recovered from %q", path)
			failed++
			return nil
		}
		if exlog != nil {
			for _, m := range sc.Meshes {
				exlog.Printf("%s material sets:\n%s", m.Name, utils.SDump(m.MaterialSets))
			}
		}

		if err := exportScene(sc, filepath.Dir(path), out, format, texExt, exlog); err != nil {
			log.Printf("Error exporting %q: %v", path, err)
			failed++
			return nil
		}

		log.Printf("%s: %s, %d mesh(es)", path, sc.Variant, len(sc.Meshes))
		converted++
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("Done: %d converted, %d failed", converted, failed)
}

func main() {
	var addr, dir, out, format, texfmt, tunables, encoding string
	var flipV, swapYZ, verbose, serve bool
	flag.StringVar(&addr, "i", ":8000", "Address of server")
	flag.BoolVar(&serve, "serve", false, "Serve scenes over http instead of batch converting")
	flag.StringVar(&dir, "dir", "", "Path to folder with scn files")
	flag.StringVar(&out, "out", "out", "Output folder for batch conversion")
	flag.StringVar(&format, "format", "obj", "Export format: obj, gltf, fbx")
	flag.StringVar(&texfmt, "texfmt", "png", "Texture conversion: png, webp, none")
	flag.BoolVar(&flipV, "flipv", true, "Flip texture V coordinate")
	flag.BoolVar(&swapYZ, "swapyz", false, "Swap Y and Z axes")
	flag.StringVar(&tunables, "tunables", "", "Path to yaml file overriding scanner thresholds")
	flag.StringVar(&encoding, "encoding", "", "Source text encoding (see config.ListEncodings)")
	flag.BoolVar(&verbose, "v", false, "Verbose parse logging")
	flag.Parse()

	if dir == "" {
		flag.PrintDefaults()
		return
	}

	if tunables != "" {
		if err := config.LoadTunables(tunables); err != nil {
			log.Fatal(err)
		}
	}
	if encoding != "" {
		if err := config.SetEncoding(encoding); err != nil {
			log.Fatal(err)
		}
	}

	var exlog *utils.Logger
	if verbose {
		exlog = &utils.Logger{Writer: os.Stderr}
	}

	opts := mesh.DecodeOptions{FlipV: flipV, SwapYZ: swapYZ}

	if serve {
		if err := web.StartServer(addr, dir, opts); err != nil {
			log.Fatal(err)
		}
		return
	}

	var texExt string
	switch texfmt {
	case "png":
		texExt = ".png"
	case "webp":
		texExt = ".webp"
	case "none":
		texExt = ""
	default:
		log.Fatalf("unknown texture format %q", texfmt)
	}

	batchConvert(dir, out, format, texExt, opts, exlog)
}
