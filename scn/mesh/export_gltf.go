package mesh

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// ImageLoader returns PNG bytes for a texture reference, or an error when
// the texture file cannot be found or decoded. A nil loader produces
// untextured materials.
type ImageLoader func(ref string) ([]byte, error)

// gltfTextureCache deduplicates textures shared between material sets of
// the same document.
type gltfTextureCache struct {
	doc     *gltf.Document
	load    ImageLoader
	sampler uint32
	byRef   map[string]*uint32
}

func newGLTFTextureCache(doc *gltf.Document, load ImageLoader) *gltfTextureCache {
	c := &gltfTextureCache{
		doc:   doc,
		load:  load,
		byRef: make(map[string]*uint32),
	}
	c.sampler = uint32(len(doc.Samplers))
	doc.Samplers = append(doc.Samplers, &gltf.Sampler{
		Name:      "default",
		MinFilter: gltf.MinLinear,
		MagFilter: gltf.MagLinear,
		WrapS:     gltf.WrapRepeat,
		WrapT:     gltf.WrapRepeat,
	})
	return c
}

func (c *gltfTextureCache) textureFor(ref string) *uint32 {
	if ref == "" || c.load == nil {
		return nil
	}
	if idx, ok := c.byRef[ref]; ok {
		return idx
	}

	pngBytes, err := c.load(ref)
	if err != nil {
		// missing textures degrade to untextured materials
		c.byRef[ref] = nil
		return nil
	}

	imageIndex, err := modeler.WriteImage(c.doc, ref, "image/png", bytes.NewReader(pngBytes))
	if err != nil {
		c.byRef[ref] = nil
		return nil
	}

	textureIndex := uint32(len(c.doc.Textures))
	c.doc.Textures = append(c.doc.Textures, &gltf.Texture{
		Name:    ref,
		Sampler: gltf.Index(c.sampler),
		Source:  gltf.Index(imageIndex),
	})

	idx := gltf.Index(textureIndex)
	c.byRef[ref] = idx
	return idx
}

func (c *gltfTextureCache) materialFor(name string, set MaterialSet) uint32 {
	gltfMaterial := &gltf.Material{
		Name:        name,
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{1, 1, 1, 1},
		},
	}
	if idx := c.textureFor(set[SLOT_COLOR_MAP]); idx != nil {
		gltfMaterial.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{
			Index: *idx,
		}
	}
	if idx := c.textureFor(set[SLOT_LUMINOSITY_MAP]); idx != nil {
		gltfMaterial.EmissiveTexture = &gltf.TextureInfo{
			Index: *idx,
		}
		gltfMaterial.EmissiveFactor = [3]float32{1, 1, 1}
	}
	if idx := c.textureFor(set[SLOT_NORMAL_MAP]); idx != nil {
		gltfMaterial.NormalTexture = &gltf.NormalTexture{
			Index: idx,
		}
	}

	id := uint32(len(c.doc.Materials))
	c.doc.Materials = append(c.doc.Materials, gltfMaterial)
	return id
}

// BuildGLTFDocument assembles meshes into a single scene document. Each
// subset becomes its own primitive with its own material; subset-less
// meshes become a single primitive bound to the mesh's flat texture maps.
func BuildGLTFDocument(meshes []*Mesh, load ImageLoader) (*gltf.Document, error) {
	doc := gltf.NewDocument()
	texCache := newGLTFTextureCache(doc, load)

	for _, m := range meshes {
		if len(m.Vertices) == 0 || len(m.Faces) == 0 {
			continue
		}

		attributes := make(map[string]uint32)
		positions := make([][3]float32, len(m.Vertices))
		for i, v := range m.Vertices {
			positions[i] = v
		}
		attributes["POSITION"] = modeler.WritePosition(doc, positions)

		if m.Normals != nil {
			normals := make([][3]float32, len(m.Normals))
			for i, n := range m.Normals {
				if n.Len() > 0.5 {
					n = n.Normalize()
				}
				normals[i] = n
			}
			attributes["NORMAL"] = modeler.WriteNormal(doc, normals)
		}

		if m.UVs != nil {
			uvs := make([][2]float32, len(m.UVs))
			for i, uv := range m.UVs {
				uvs[i] = uv
			}
			attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(doc, uvs)
		}

		gltfMesh := &gltf.Mesh{Name: m.Name}

		writePrimitive := func(faces [][3]uint32, materialId uint32, set MaterialSet) {
			indices := make([]uint32, 0, len(faces)*3)
			for _, f := range faces {
				indices = append(indices, f[0], f[1], f[2])
			}
			indicesAccessor := modeler.WriteIndices(doc, indices)
			gltfMesh.Primitives = append(gltfMesh.Primitives, &gltf.Primitive{
				Indices:    gltf.Index(indicesAccessor),
				Attributes: attributes,
				Material:   gltf.Index(texCache.materialFor(materialName(m.Name, int(materialId)), set)),
			})
		}

		if len(m.Subsets) > 0 {
			for _, s := range m.Subsets {
				end := int(s.StartTri + s.TriCount)
				if end > len(m.Faces) {
					end = len(m.Faces)
				}
				writePrimitive(m.Faces[s.StartTri:end], s.MaterialId, m.materialSetFor(s.MaterialId))
			}
		} else {
			writePrimitive(m.Faces, 0, m.Maps)
		}

		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)))
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name: m.Name,
			Mesh: gltf.Index(uint32(len(doc.Meshes))),
		})
		doc.Meshes = append(doc.Meshes, gltfMesh)
	}

	if len(doc.Meshes) == 0 {
		return nil, errors.New("no exportable meshes")
	}
	return doc, nil
}

// WriteGLB encodes the document in binary form.
func WriteGLB(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}
