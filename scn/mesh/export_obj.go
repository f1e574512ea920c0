package mesh

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
)

// TextureResolver maps a texture reference from the container to the
// filename the exported material should point at (e.g. after conversion of
// a .dds to .png). nil keeps references as-is.
type TextureResolver func(string) string

var objNameSanitizer = regexp.MustCompile(`[^0-9A-Za-z_.:/+-]+`)

func sanitizeObjName(s string) string {
	out := objNameSanitizer.ReplaceAllString(s, "_")
	if out == "" {
		return "mesh"
	}
	return out
}

// materialName is the shared mtl naming scheme: one material per material
// set, index-suffixed.
func materialName(meshName string, id int) string {
	return fmt.Sprintf("%s_mat%d", sanitizeObjName(meshName), id)
}

// materialSetFor returns the set bound to a subset's material id, falling
// back to the whole-mesh Maps binding.
func (m *Mesh) materialSetFor(id uint32) MaterialSet {
	if int(id) < len(m.MaterialSets) {
		return m.MaterialSets[id]
	}
	if len(m.MaterialSets) > 0 {
		return m.MaterialSets[len(m.MaterialSets)-1]
	}
	return m.Maps
}

// WriteObj writes the mesh as a wavefront OBJ referencing mtlFileName.
// Vertices missing UVs or normals get neutral defaults so faces can always
// use the full v/vt/vn form.
func (m *Mesh) WriteObj(w io.Writer, mtlFileName string) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "mtllib %s\n", mtlFileName)
	fmt.Fprintf(bw, "o %s\n", sanitizeObjName(m.Name))

	for _, v := range m.Vertices {
		fmt.Fprintf(bw, "v %g %g %g\n", v[0], v[1], v[2])
	}
	for i := range m.Vertices {
		if i < len(m.UVs) {
			fmt.Fprintf(bw, "vt %g %g\n", m.UVs[i][0], m.UVs[i][1])
		} else {
			fmt.Fprintln(bw, "vt 0 0")
		}
	}
	for i := range m.Vertices {
		if i < len(m.Normals) {
			fmt.Fprintf(bw, "vn %g %g %g\n", m.Normals[i][0], m.Normals[i][1], m.Normals[i][2])
		} else {
			fmt.Fprintln(bw, "vn 0 0 1")
		}
	}

	writeFace := func(f [3]uint32) {
		a, b, c := f[0]+1, f[1]+1, f[2]+1
		fmt.Fprintf(bw, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, b, b, b, c, c, c)
	}

	if len(m.Subsets) > 0 {
		for _, s := range m.Subsets {
			fmt.Fprintf(bw, "usemtl %s\n", materialName(m.Name, int(s.MaterialId)))
			end := int(s.StartTri + s.TriCount)
			if end > len(m.Faces) {
				end = len(m.Faces)
			}
			for _, f := range m.Faces[s.StartTri:end] {
				writeFace(f)
			}
		}
	} else {
		fmt.Fprintf(bw, "usemtl %s\n", materialName(m.Name, 0))
		for _, f := range m.Faces {
			writeFace(f)
		}
	}

	return bw.Flush()
}

// WriteMtl writes the companion material library. ColorMap becomes map_Kd,
// NormalMap map_Bump, LuminosityMap map_Ke; ReflectionMap has no standard
// mtl statement and is kept as a comment.
func (m *Mesh) WriteMtl(w io.Writer, resolve TextureResolver) error {
	bw := bufio.NewWriter(w)
	if resolve == nil {
		resolve = func(s string) string { return s }
	}

	writeSet := func(id int, set MaterialSet) {
		fmt.Fprintf(bw, "newmtl %s\n", materialName(m.Name, id))
		fmt.Fprintln(bw, "Kd 1 1 1")
		if v := set[SLOT_COLOR_MAP]; v != "" {
			fmt.Fprintf(bw, "map_Kd %s\n", resolve(v))
		}
		if v := set[SLOT_NORMAL_MAP]; v != "" {
			fmt.Fprintf(bw, "map_Bump %s\n", resolve(v))
		}
		if v := set[SLOT_LUMINOSITY_MAP]; v != "" {
			fmt.Fprintf(bw, "map_Ke %s\n", resolve(v))
		}
		if v := set[SLOT_REFLECTION_MAP]; v != "" {
			fmt.Fprintf(bw, "# ReflectionMap %s\n", resolve(v))
		}
		fmt.Fprintln(bw)
	}

	if len(m.MaterialSets) > 0 {
		for id, set := range m.MaterialSets {
			writeSet(id, set)
		}
	} else {
		writeSet(0, m.Maps)
	}

	return bw.Flush()
}
