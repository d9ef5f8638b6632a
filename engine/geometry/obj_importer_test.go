package geometry

import (
	"errors"
	"strings"
	"testing"

	"github.com/emberworks/ember/engine/renderer/bind_group_provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAllocator records InitMeshBuffers calls without touching the GPU.
type fakeAllocator struct {
	calls      int
	failUpload bool

	vertexBytes [][]byte
	indexBytes  [][]byte
	indexCounts []int
}

func (f *fakeAllocator) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	if f.failUpload {
		return errors.New("upload failed")
	}
	f.calls++
	f.vertexBytes = append(f.vertexBytes, vertexData)
	f.indexBytes = append(f.indexBytes, indexData)
	f.indexCounts = append(f.indexCounts, indexCount)
	provider.SetIndexCount(indexCount)
	return nil
}

const quadOBJ = `
# a unit quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
f 1/1 2/2 3/3 4/4
`

func TestParseOBJQuad(t *testing.T) {
	parsed, err := parseOBJ(strings.NewReader(quadOBJ))
	require.NoError(t, err)
	require.Len(t, parsed.submeshes, 1)

	sub := parsed.submeshes[0]
	// Fan triangulation of a quad yields two triangles over four shared vertices.
	assert.Len(t, sub.vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, sub.indices)
}

func TestParseOBJFlipsV(t *testing.T) {
	doc := `
v 0 0 0
v 1 0 0
v 0 1 0
vt 0.25 0.75
vt 1 0
vt 0 1
f 1/1 2/2 3/3
`
	parsed, err := parseOBJ(strings.NewReader(doc))
	require.NoError(t, err)

	sub := parsed.submeshes[0]
	assert.InDelta(t, 0.25, sub.vertices[0].TexCoord[0], 1e-6)
	assert.InDelta(t, 0.25, sub.vertices[0].TexCoord[1], 1e-6) // 1 - 0.75
	assert.InDelta(t, 1.0, sub.vertices[1].TexCoord[1], 1e-6)  // 1 - 0
	assert.InDelta(t, 0.0, sub.vertices[2].TexCoord[1], 1e-6)  // 1 - 1
}

func TestParseOBJDefaultsWhiteColor(t *testing.T) {
	doc := `
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`
	parsed, err := parseOBJ(strings.NewReader(doc))
	require.NoError(t, err)

	for _, v := range parsed.submeshes[0].vertices {
		assert.Equal(t, [3]float32{1, 1, 1}, v.Color)
		// No vt records: texcoord defaults to (0,0), flipped to (0,1).
		assert.Equal(t, [2]float32{0, 1}, v.TexCoord)
	}
}

func TestParseOBJNegativeIndices(t *testing.T) {
	doc := `
v 0 0 0
v 1 0 0
v 0 1 0
f -3 -2 -1
`
	parsed, err := parseOBJ(strings.NewReader(doc))
	require.NoError(t, err)

	sub := parsed.submeshes[0]
	assert.Equal(t, [3]float32{0, 0, 0}, sub.vertices[0].Position)
	assert.Equal(t, [3]float32{1, 0, 0}, sub.vertices[1].Position)
	assert.Equal(t, [3]float32{0, 1, 0}, sub.vertices[2].Position)
}

func TestParseOBJUsemtlSplitsSubmeshes(t *testing.T) {
	doc := `
v 0 0 0
v 1 0 0
v 0 1 0
v 1 1 0
usemtl stone
f 1 2 3
usemtl grass
f 2 4 3
`
	parsed, err := parseOBJ(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, parsed.submeshes, 2)

	assert.Equal(t, "stone", parsed.submeshes[0].material)
	assert.Equal(t, "grass", parsed.submeshes[1].material)
	// Each submesh has its own vertex list and zero-based indices.
	assert.Len(t, parsed.submeshes[0].vertices, 3)
	assert.Len(t, parsed.submeshes[1].vertices, 3)
	assert.Equal(t, []uint32{0, 1, 2}, parsed.submeshes[1].indices)
}

func TestParseOBJDedupSharesVertices(t *testing.T) {
	// Two triangles sharing an edge: 4 unique position/uv pairs, not 6.
	parsed, err := parseOBJ(strings.NewReader(quadOBJ))
	require.NoError(t, err)
	assert.Len(t, parsed.submeshes[0].vertices, 4)
	assert.Len(t, parsed.submeshes[0].indices, 6)
}

func TestParseOBJTriangleListInvariant(t *testing.T) {
	doc := `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
v 0.5 1.5 0
f 1 2 3 4 5
`
	parsed, err := parseOBJ(strings.NewReader(doc))
	require.NoError(t, err)
	for _, sub := range parsed.submeshes {
		assert.Zero(t, len(sub.indices)%3)
	}
	// A pentagon fans into three triangles.
	assert.Len(t, parsed.submeshes[0].indices, 9)
}

func TestParseOBJMalformedInput(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"bad float", "v 0 zero 0\nf 1 1 1\n"},
		{"short vertex", "v 0 0\n"},
		{"short face", "v 0 0 0\nv 1 0 0\nf 1 2\n"},
		{"index out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 9\n"},
		{"bad face index", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf a 2 3\n"},
		{"texcoord out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nvt 0 0\nf 1/1 2/2 3/1\n"},
		{"empty", ""},
		{"no faces", "v 0 0 0\nv 1 0 0\nv 0 1 0\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseOBJ(strings.NewReader(tc.doc))
			assert.Error(t, err)
		})
	}
}

func TestBuildUploadsEachSubmesh(t *testing.T) {
	doc := `
v 0 0 0
v 1 0 0
v 0 1 0
v 1 1 0
usemtl a
f 1 2 3
usemtl b
f 2 4 3
`
	parsed, err := parseOBJ(strings.NewReader(doc))
	require.NoError(t, err)

	alloc := &fakeAllocator{}
	model, err := parsed.build("crate", alloc)
	require.NoError(t, err)

	assert.Equal(t, 2, alloc.calls)
	assert.Equal(t, 2, model.TextureBindings())
	assert.Equal(t, "crate", model.Name())

	for i, mesh := range model.Meshes() {
		assert.Equal(t, i, mesh.MaterialSlot())
		assert.Equal(t, 3, mesh.IndexCount())
	}
	// 3 vertices * 32 bytes per submesh.
	assert.Len(t, alloc.vertexBytes[0], 96)
	assert.Len(t, alloc.indexBytes[0], 12)
}

func TestBuildPropagatesUploadFailure(t *testing.T) {
	parsed, err := parseOBJ(strings.NewReader(quadOBJ))
	require.NoError(t, err)

	alloc := &fakeAllocator{failUpload: true}
	_, err = parsed.build("crate", alloc)
	assert.Error(t, err)
}
