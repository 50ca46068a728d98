package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine/mesh"
	"go.uber.org/zap"
)

// maxNodeDepth bounds hierarchy traversal; deeper chains are treated as malformed.
const maxNodeDepth = 64

// sceneRoots returns the root nodes of the default scene. Documents without scenes use every
// node that is nobody's child.
func (im *importer) sceneRoots() []int {
	doc := &im.file.doc
	if len(doc.Scenes) > 0 {
		s := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			s = *doc.Scene
		}
		return doc.Scenes[s].Nodes
	}

	child := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(child) {
				child[c] = true
			}
		}
	}
	var roots []int
	for i, isChild := range child {
		if !isChild {
			roots = append(roots, i)
		}
	}
	return roots
}

// importGeometry walks the node hierarchy and bakes every mesh primitive into world space.
func (im *importer) importGeometry() error {
	visiting := make(map[int]bool)
	for _, root := range im.sceneRoots() {
		if err := im.visitNode(root, common.Identity4(), visiting, 0); err != nil {
			return err
		}
	}
	return nil
}

func (im *importer) visitNode(index int, parent common.Mat4, visiting map[int]bool, depth int) error {
	doc := &im.file.doc
	if index < 0 || index >= len(doc.Nodes) {
		return fmt.Errorf("%w: node %d of %d", ErrMalformed, index, len(doc.Nodes))
	}
	if visiting[index] || depth > maxNodeDepth {
		return fmt.Errorf("%w: node %d is part of a cycle", ErrMalformed, index)
	}
	visiting[index] = true
	defer delete(visiting, index)

	node := &doc.Nodes[index]
	world := parent.Mul(nodeMatrix(node))

	if node.Mesh != nil {
		if err := im.bakeMesh(index, *node.Mesh, world); err != nil {
			return err
		}
	}
	for _, c := range node.Children {
		if err := im.visitNode(c, world, visiting, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// nodeMatrix returns the column-major local transform of a node, T * R * S when no matrix is given.
func nodeMatrix(n *gltfNode) common.Mat4 {
	if n.Matrix != nil {
		return *n.Matrix
	}

	t := [3]float32{}
	q := [4]float32{0, 0, 0, 1}
	s := [3]float32{1, 1, 1}
	if n.Translation != nil {
		t = *n.Translation
	}
	if n.Rotation != nil {
		q = *n.Rotation
	}
	if n.Scale != nil {
		s = *n.Scale
	}

	x, y, z, w := q[0], q[1], q[2], q[3]
	return common.Mat4{
		(1 - 2*(y*y+z*z)) * s[0], 2 * (x*y + w*z) * s[0], 2 * (x*z - w*y) * s[0], 0,
		2 * (x*y - w*z) * s[1], (1 - 2*(x*x+z*z)) * s[1], 2 * (y*z + w*x) * s[1], 0,
		2 * (x*z + w*y) * s[2], 2 * (y*z - w*x) * s[2], (1 - 2*(x*x+y*y)) * s[2], 0,
		t[0], t[1], t[2], 1,
	}
}

// determinant3 returns the determinant of the linear part of m, negative for mirroring transforms.
func determinant3(m common.Mat4) float32 {
	c0 := [3]float32{m[0], m[1], m[2]}
	c1 := [3]float32{m[4], m[5], m[6]}
	c2 := [3]float32{m[8], m[9], m[10]}
	return common.Dot3(c0, common.Cross3(c1, c2))
}

func (im *importer) bakeMesh(nodeIndex, meshIndex int, world common.Mat4) error {
	doc := &im.file.doc
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return fmt.Errorf("%w: mesh %d of %d", ErrMalformed, meshIndex, len(doc.Meshes))
	}
	nodeName := doc.Nodes[nodeIndex].Name
	if nodeName == "" {
		nodeName = fmt.Sprintf("node%d", nodeIndex)
	}

	for pi, prim := range doc.Meshes[meshIndex].Primitives {
		name := fmt.Sprintf("%s/%s/%d", im.name, nodeName, pi)
		if prim.Mode != nil && *prim.Mode != gltfModeTriangles {
			im.log.Warn("skipping non-triangle primitive", zap.String("primitive", name), zap.Int("mode", *prim.Mode))
			continue
		}

		vertices, indices, err := im.bakePrimitive(prim, world)
		if err != nil {
			return fmt.Errorf("primitive %s: %w", name, err)
		}
		material := -1
		if prim.Material != nil {
			if *prim.Material < 0 || *prim.Material >= len(doc.Materials) {
				return fmt.Errorf("%w: primitive %s material %d of %d", ErrMalformed, name, *prim.Material, len(doc.Materials))
			}
			material = *prim.Material
		}

		im.asset.Primitives = append(im.asset.Primitives, Primitive{
			Name:     name,
			Vertices: vertices,
			Indices:  indices,
			Material: material,
			Mesh:     mesh.NewMesh(mesh.WithName(name), mesh.WithVertices(vertices), mesh.WithIndices(indices)),
		})
	}
	return nil
}

// bakePrimitive reads a triangle primitive and moves it into world space. Missing normals and
// tangents are generated after the transform; mirrored transforms flip the triangle winding.
func (im *importer) bakePrimitive(prim gltfPrimitive, world common.Mat4) ([]mesh.GPUVertex, []uint32, error) {
	posIndex, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, nil, fmt.Errorf("%w: no POSITION attribute", ErrMalformed)
	}
	positions, err := im.file.readFloats(posIndex, "VEC3")
	if err != nil {
		return nil, nil, err
	}
	n := len(positions) / 3

	optional := func(attr, typ string, width int) ([]float32, error) {
		idx, ok := prim.Attributes[attr]
		if !ok {
			return nil, nil
		}
		values, err := im.file.readFloats(idx, typ)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", attr, err)
		}
		if len(values) != n*width {
			return nil, fmt.Errorf("%w: %s has %d elements, POSITION has %d", ErrMalformed, attr, len(values)/width, n)
		}
		return values, nil
	}
	normals, err := optional("NORMAL", "VEC3", 3)
	if err != nil {
		return nil, nil, err
	}
	tangents, err := optional("TANGENT", "VEC4", 4)
	if err != nil {
		return nil, nil, err
	}
	uvs, err := optional("TEXCOORD_0", "VEC2", 2)
	if err != nil {
		return nil, nil, err
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = im.file.readIndices(*prim.Indices); err != nil {
			return nil, nil, err
		}
	} else {
		indices = make([]uint32, n)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		return nil, nil, fmt.Errorf("%w: %d indices do not form triangles", ErrMalformed, len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= n {
			return nil, nil, fmt.Errorf("%w: index %d beyond %d vertices", ErrMalformed, idx, n)
		}
	}

	mirrored := determinant3(world) < 0
	if mirrored {
		for i := 0; i < len(indices); i += 3 {
			indices[i+1], indices[i+2] = indices[i+2], indices[i+1]
		}
	}

	normalMat, _ := world.NormalMatrix()

	vertices := make([]mesh.GPUVertex, n)
	for i := range vertices {
		v := &vertices[i]
		v.Position = world.TransformPoint([3]float32{positions[i*3], positions[i*3+1], positions[i*3+2]})
		if normals != nil {
			v.Normal = common.Normalize3(normalMat.TransformDir([3]float32{normals[i*3], normals[i*3+1], normals[i*3+2]}))
		}
		if tangents != nil {
			t := common.Normalize3(world.TransformDir([3]float32{tangents[i*4], tangents[i*4+1], tangents[i*4+2]}))
			w := tangents[i*4+3]
			if mirrored {
				w = -w
			}
			v.Tangent = [4]float32{t[0], t[1], t[2], w}
		}
		if uvs != nil {
			v.UV = [2]float32{uvs[i*2], uvs[i*2+1]}
		}
	}

	if normals == nil {
		generateNormals(vertices, indices)
	}
	if tangents == nil {
		generateTangents(vertices, indices)
	}
	return vertices, indices, nil
}

// generateNormals writes area-weighted smooth normals accumulated from the triangle faces.
// Vertices on degenerate faces only point up.
func generateNormals(vertices []mesh.GPUVertex, indices []uint32) {
	accum := make([][3]float32, len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		p0 := vertices[i0].Position
		face := common.Cross3(common.Sub3(vertices[i1].Position, p0), common.Sub3(vertices[i2].Position, p0))
		accum[i0] = common.Add3(accum[i0], face)
		accum[i1] = common.Add3(accum[i1], face)
		accum[i2] = common.Add3(accum[i2], face)
	}

	for i := range vertices {
		if common.Length3(accum[i]) < 1e-6 {
			vertices[i].Normal = [3]float32{0, 1, 0}
			continue
		}
		vertices[i].Normal = common.Normalize3(accum[i])
	}
}

// generateTangents derives tangents from the UV gradients of each triangle, orthonormalized
// against the vertex normal, with the bitangent handedness in w.
func generateTangents(vertices []mesh.GPUVertex, indices []uint32) {
	tan := make([][3]float32, len(vertices))
	bitan := make([][3]float32, len(vertices))

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		e1 := common.Sub3(vertices[i1].Position, vertices[i0].Position)
		e2 := common.Sub3(vertices[i2].Position, vertices[i0].Position)
		uv0, uv1, uv2 := vertices[i0].UV, vertices[i1].UV, vertices[i2].UV
		du1, dv1 := uv1[0]-uv0[0], uv1[1]-uv0[1]
		du2, dv2 := uv2[0]-uv0[0], uv2[1]-uv0[1]

		det := du1*dv2 - dv1*du2
		if det == 0 {
			continue
		}
		r := 1 / det
		t := common.Scale3(common.Sub3(common.Scale3(e1, dv2), common.Scale3(e2, dv1)), r)
		b := common.Scale3(common.Sub3(common.Scale3(e2, du1), common.Scale3(e1, du2)), r)
		for _, idx := range [3]uint32{i0, i1, i2} {
			tan[idx] = common.Add3(tan[idx], t)
			bitan[idx] = common.Add3(bitan[idx], b)
		}
	}

	for i := range vertices {
		n := vertices[i].Normal
		// Gram-Schmidt
		t := common.Sub3(tan[i], common.Scale3(n, common.Dot3(n, tan[i])))
		if common.Length3(t) < 1e-6 {
			t = fallbackTangent(n)
		}
		t = common.Normalize3(t)

		w := float32(1)
		if common.Dot3(common.Cross3(n, t), bitan[i]) < 0 {
			w = -1
		}
		vertices[i].Tangent = [4]float32{t[0], t[1], t[2], w}
	}
}

// fallbackTangent returns a vector perpendicular to n for vertices without usable UVs.
func fallbackTangent(n [3]float32) [3]float32 {
	axis := [3]float32{1, 0, 0}
	if n[0] > 0.9 || n[0] < -0.9 {
		axis = [3]float32{0, 1, 0}
	}
	return common.Cross3(axis, n)
}
