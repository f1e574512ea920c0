package mesh

import (
	"fmt"

	"github.com/mogaika/fbx/builders/bfbx73"

	"github.com/mogaika/scn_browser/utils/fbxbuilder"
)

// FbxExportedMesh tracks the builder ids of one exported mesh.
type FbxExportedMesh struct {
	FbxGeometryId int64
	FbxModelId    int64
	MaterialIds   []int64
}

func (m *Mesh) fbxMaterial(f *fbxbuilder.FBXBuilder, id int, set MaterialSet) int64 {
	name := materialName(m.Name, id)
	if cm := set[SLOT_COLOR_MAP]; cm != "" {
		// carry the texture reference in the name; the texture file itself
		// travels as a zip sidecar
		name = fmt.Sprintf("%s_%s", name, cm)
	}

	materialId := f.GenerateId()
	f.AddObjects(bfbx73.Material(materialId, name+"\x00\x01Material", "").AddNodes(
		bfbx73.Version(102),
		bfbx73.ShadingModel("lambert"),
		bfbx73.MultiLayer(0),
		bfbx73.Properties70().AddNodes(
			bfbx73.P("AmbientColor", "Color", "", "A", float64(0), float64(0), float64(0)),
			bfbx73.P("DiffuseColor", "Color", "", "A", float64(1), float64(1), float64(1)),
			bfbx73.P("Emissive", "Vector3D", "Vector", "", float64(0), float64(0), float64(0)),
			bfbx73.P("Ambient", "Vector3D", "Vector", "", float64(0), float64(0), float64(0)),
			bfbx73.P("Diffuse", "Vector3D", "Vector", "", float64(1), float64(1), float64(1)),
			bfbx73.P("Opacity", "double", "Number", "", float64(1)),
		),
	))
	return materialId
}

// ExportFbx emits the mesh as one Geometry+Model pair. Faces become
// triangles in PolygonVertexIndex form (last index of every polygon is
// bitwise-negated). Subsets map to a ByPolygon material layer; a mesh
// without subsets gets a single AllSame material from its flat maps.
func (m *Mesh) ExportFbx(f *fbxbuilder.FBXBuilder) *FbxExportedMesh {
	if cached, ok := f.GetCached(m.Name).(*FbxExportedMesh); ok {
		return cached
	}
	fe := &FbxExportedMesh{}
	defer f.AddCache(m.Name, fe)

	vertices := make([]float64, 0, len(m.Vertices)*3)
	for _, v := range m.Vertices {
		vertices = append(vertices, float64(v[0]), float64(v[1]), float64(v[2]))
	}

	indexes := make([]int32, 0, len(m.Faces)*3)
	for _, face := range m.Faces {
		indexes = append(indexes, int32(face[0]), int32(face[1]), -int32(face[2])-1)
	}

	name := sanitizeObjName(m.Name)
	fe.FbxGeometryId = f.GenerateId()

	geometryLayer := bfbx73.Layer(0).AddNodes(
		bfbx73.Version(100),
	)

	geometry := bfbx73.Geometry(fe.FbxGeometryId, "\x00\x01Geometry", "Mesh").AddNodes(
		bfbx73.Properties70().AddNodes(
			bfbx73.P("Color", "ColorRGB", "Color", "", float64(1), float64(1), float64(1)),
		),
		bfbx73.GeometryVersion(124),
		bfbx73.Vertices(vertices),
		bfbx73.PolygonVertexIndex(indexes),
		geometryLayer,
	)

	if m.Normals != nil {
		normals := make([]float64, 0, len(m.Normals)*3)
		for _, n := range m.Normals {
			normals = append(normals, float64(n[0]), float64(n[1]), float64(n[2]))
		}
		geometry.AddNode(
			bfbx73.LayerElementNormal(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("ByVertice"),
				bfbx73.ReferenceInformationType("Direct"),
				bfbx73.Normals(normals),
			),
		)
		geometryLayer.AddNode(
			bfbx73.LayerElement().AddNodes(
				bfbx73.Type("LayerElementNormal"),
				bfbx73.TypedIndex(0),
			),
		)
	}

	if m.UVs != nil {
		uv := make([]float64, 0, len(m.UVs)*2)
		for _, t := range m.UVs {
			uv = append(uv, float64(t[0]), float64(t[1]))
		}
		uvindexes := make([]int32, 0, len(m.Faces)*3)
		for _, face := range m.Faces {
			uvindexes = append(uvindexes, int32(face[0]), int32(face[1]), int32(face[2]))
		}
		geometry.AddNode(
			bfbx73.LayerElementUV(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("ByPolygonVertex"),
				bfbx73.ReferenceInformationType("IndexToDirect"),
				bfbx73.UV(uv),
				bfbx73.UVIndex(uvindexes),
			),
		)
		geometryLayer.AddNode(
			bfbx73.LayerElement().AddNodes(
				bfbx73.Type("LayerElementUV"),
				bfbx73.TypedIndex(0),
			),
		)
	}

	materialMapping := "AllSame"
	materialIndexes := []int32{0}
	if len(m.Subsets) > 0 {
		perFace := make([]int32, len(m.Faces))
		localIds := make(map[uint32]int32)
		for _, s := range m.Subsets {
			local, ok := localIds[s.MaterialId]
			if !ok {
				local = int32(len(fe.MaterialIds))
				localIds[s.MaterialId] = local
				fe.MaterialIds = append(fe.MaterialIds,
					m.fbxMaterial(f, int(s.MaterialId), m.materialSetFor(s.MaterialId)))
			}
			end := int(s.StartTri + s.TriCount)
			if end > len(perFace) {
				end = len(perFace)
			}
			for i := int(s.StartTri); i < end; i++ {
				perFace[i] = local
			}
		}
		materialMapping = "ByPolygon"
		materialIndexes = perFace
	} else {
		fe.MaterialIds = append(fe.MaterialIds, m.fbxMaterial(f, 0, m.Maps))
	}

	geometry.AddNode(
		bfbx73.LayerElementMaterial(0).AddNodes(
			bfbx73.Version(101),
			bfbx73.Name(""),
			bfbx73.MappingInformationType(materialMapping),
			bfbx73.ReferenceInformationType("IndexToDirect"),
			bfbx73.Materials(materialIndexes),
		),
	)
	geometryLayer.AddNode(
		bfbx73.LayerElement().AddNodes(
			bfbx73.Type("LayerElementMaterial"),
			bfbx73.TypedIndex(0),
		),
	)

	fe.FbxModelId = f.GenerateId()
	model := bfbx73.Model(fe.FbxModelId, name+"\x00\x01Model", "Mesh").AddNodes(
		bfbx73.Version(232),
		bfbx73.Properties70().AddNodes(
			bfbx73.P("InheritType", "enum", "", "", int32(1)),
			bfbx73.P("DefaultAttributeIndex", "int", "Integer", "", int32(0)),
			bfbx73.P("Lcl Translation", "Lcl Translation", "", "A", float64(0), float64(0), float64(0)),
			bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A", float64(0), float64(0), float64(0)),
			bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A", float64(1), float64(1), float64(1)),
		),
		bfbx73.Shading(true),
		bfbx73.Culling("CullingOff"),
	)

	f.AddObjects(model, geometry)
	f.AddConnections(bfbx73.C("OO", fe.FbxGeometryId, fe.FbxModelId))
	for _, materialId := range fe.MaterialIds {
		f.AddConnections(bfbx73.C("OO", materialId, fe.FbxModelId))
	}

	return fe
}

// ExportFbxDefault builds a standalone document holding just this mesh.
func (m *Mesh) ExportFbxDefault() *fbxbuilder.FBXBuilder {
	f := fbxbuilder.NewFBXBuilder(m.Name + ".fbx")
	fe := m.ExportFbx(f)
	f.AddConnections(bfbx73.C("OO", fe.FbxModelId, 0))
	return f
}
