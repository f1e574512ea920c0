package web

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/mogaika/scn_browser/scn/mat"
	"github.com/mogaika/scn_browser/scn/mesh"
	"github.com/mogaika/scn_browser/txr"
	"github.com/mogaika/scn_browser/webutils"
)

type ajaxMesh struct {
	Name         string             `json:"name"`
	Vertices     int                `json:"vertices"`
	Faces        int                `json:"faces"`
	HasNormals   bool               `json:"hasNormals"`
	HasUVs       bool               `json:"hasUVs"`
	Subsets      []mesh.Subset      `json:"subsets,omitempty"`
	MaterialSets []mesh.MaterialSet `json:"materialSets,omitempty"`
	Maps         mesh.MaterialSet   `json:"maps,omitempty"`
}

type ajaxScene struct {
	Name    string     `json:"name"`
	Variant string     `json:"variant"`
	Meshes  []ajaxMesh `json:"meshes"`
	Primary string     `json:"primary,omitempty"`
}

func HandlerListScenes(w http.ResponseWriter, r *http.Request) {
	if files, err := serverStore.list(); err != nil {
		webutils.WriteError(w, err)
	} else {
		sort.Strings(files)
		webutils.WriteJson(w, files)
	}
}

func HandlerSceneInfo(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	sc, err := serverStore.scene(file)
	if err != nil {
		log.Printf("Error loading scene %q: %v", file, err)
		webutils.WriteError(w, err)
		return
	}

	out := ajaxScene{
		Name:    sc.Name,
		Variant: sc.Variant,
		Meshes:  make([]ajaxMesh, 0, len(sc.Meshes)),
	}
	for _, m := range sc.Meshes {
		out.Meshes = append(out.Meshes, ajaxMesh{
			Name:         m.Name,
			Vertices:     len(m.Vertices),
			Faces:        len(m.Faces),
			HasNormals:   m.Normals != nil,
			HasUVs:       m.UVs != nil,
			Subsets:      m.Subsets,
			MaterialSets: m.MaterialSets,
			Maps:         m.Maps,
		})
	}
	if primary := sc.SelectPrimaryMesh(); primary != nil {
		out.Primary = primary.Name
	}
	webutils.WriteJson(w, out)
}

func findMesh(meshes []*mesh.Mesh, name string) *mesh.Mesh {
	for _, m := range meshes {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func HandlerExportMesh(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	meshName := mux.Vars(r)["mesh"]
	format := mux.Vars(r)["format"]

	sc, err := serverStore.scene(file)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	m := findMesh(sc.Meshes, meshName)
	if m == nil {
		webutils.WriteError(w, fmt.Errorf("no mesh %q in %q", meshName, file))
		return
	}

	switch format {
	case "obj":
		var buf bytes.Buffer
		if err := m.WriteObj(&buf, meshName+".mtl"); err != nil {
			webutils.WriteError(w, err)
			return
		}
		webutils.WriteFile(w, &buf, meshName+".obj")
	case "mtl":
		var buf bytes.Buffer
		if err := m.WriteMtl(&buf, nil); err != nil {
			webutils.WriteError(w, err)
			return
		}
		webutils.WriteFile(w, &buf, meshName+".mtl")
	case "glb":
		doc, err := mesh.BuildGLTFDocument([]*mesh.Mesh{m}, sceneImageLoader(file))
		if err != nil {
			webutils.WriteError(w, err)
			return
		}
		var buf bytes.Buffer
		if err := mesh.WriteGLB(&buf, doc); err != nil {
			webutils.WriteError(w, err)
			return
		}
		webutils.WriteFile(w, &buf, meshName+".glb")
	case "fbx":
		f := m.ExportFbxDefault()
		load := sceneImageLoader(file)
		for _, ref := range m.TextureRefs() {
			data, err := load(ref)
			if err != nil {
				continue
			}
			f.AddExportFile(txr.ReplaceLastSuffix(mat.BaseName(ref), ".png"), data)
		}
		var buf bytes.Buffer
		if err := f.WriteZip(&buf, meshName+".fbx"); err != nil {
			webutils.WriteError(w, err)
			return
		}
		webutils.WriteFile(w, &buf, meshName+".fbx.zip")
	default:
		webutils.WriteError(w, fmt.Errorf("unknown format %q", format))
	}
}

func HandlerExportSceneGLB(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	sc, err := serverStore.scene(file)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	doc, err := mesh.BuildGLTFDocument(sc.Meshes, sceneImageLoader(file))
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := mesh.WriteGLB(&buf, doc); err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, &buf, sc.Name+".glb")
}

// sceneImageLoader resolves texture references next to the scene file and
// re-encodes them as PNG for glTF embedding.
func sceneImageLoader(file string) mesh.ImageLoader {
	dir := serverStore.sceneSourceDir(file)
	return func(ref string) ([]byte, error) {
		path, ok := txr.FindTextureFile(dir, ref)
		if !ok {
			return nil, fmt.Errorf("texture %q not found", ref)
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
}
