package renderer

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/emberworks/ember/common"
	"github.com/emberworks/ember/engine/geometry"
	"github.com/emberworks/ember/engine/renderer/bind_group_provider"
	"github.com/emberworks/ember/engine/renderer/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDraw struct {
	pipelineKey   string
	meshLabel     string
	materialLabel string
	slot          uint32
}

type fakeInstancedDraw struct {
	pipelineKey string
	meshName    string
	count       uint32
}

// fakeBackend records every backend call without touching a GPU.
type fakeBackend struct {
	mu sync.Mutex

	acquireErr error

	registeredPipelines []string

	meshBuffers  int
	textureViews int
	samplers     int
	bindGroups   int

	cameraWrites int
	lastCamera   [16]float32

	transformCapacity int
	transforms        [][16]float32

	instances map[string][][16]float32

	passBegun        int
	lastColor        wgpu.Color
	lastColorCleared bool
	lastClearDepth   bool

	draws          []fakeDraw
	instancedDraws []fakeInstancedDraw

	passEnded int
	presents  int
	discards  int
	releases  int
}

var _ RendererBackend = &fakeBackend{}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{instances: make(map[string][][16]float32)}
}

func (f *fakeBackend) ConfigureSurface(width, height int) {}

func (f *fakeBackend) SetPresentMode(mode PresentMode) {}

func (f *fakeBackend) RegisterRenderPipeline(p pipeline.Pipeline) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registeredPipelines = append(f.registeredPipelines, p.PipelineKey())
	return nil
}

func (f *fakeBackend) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meshBuffers++
	provider.SetIndexCount(indexCount)
	return nil
}

func (f *fakeBackend) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindGroups++
	return nil
}

func (f *fakeBackend) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textureViews++
	return nil
}

func (f *fakeBackend) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samplers++
	return nil
}

func (f *fakeBackend) AcquireTarget() error {
	return f.acquireErr
}

func (f *fakeBackend) WriteCameraUniform(viewProjection [16]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cameraWrites++
	f.lastCamera = viewProjection
	return nil
}

func (f *fakeBackend) EnsureTransformCapacity(count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if count > f.transformCapacity {
		f.transformCapacity = count
	}
	return nil
}

func (f *fakeBackend) WriteTransforms(matrices [][16]float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transforms = matrices
}

func (f *fakeBackend) WriteInstances(meshName string, matrices [][16]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instances[meshName] = matrices
	return nil
}

func (f *fakeBackend) BeginRenderPass(color wgpu.Color, clearColor, clearDepth bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passBegun++
	f.lastColor = color
	f.lastColorCleared = clearColor
	f.lastClearDepth = clearDepth
}

func (f *fakeBackend) DrawIndexed(p pipeline.Pipeline, meshProvider, material bind_group_provider.BindGroupProvider, transformSlot uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draws = append(f.draws, fakeDraw{
		pipelineKey:   p.PipelineKey(),
		meshLabel:     meshProvider.Label(),
		materialLabel: material.Label(),
		slot:          transformSlot,
	})
}

func (f *fakeBackend) DrawInstanced(p pipeline.Pipeline, meshProvider, material bind_group_provider.BindGroupProvider, meshName string, instanceCount uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instancedDraws = append(f.instancedDraws, fakeInstancedDraw{
		pipelineKey: p.PipelineKey(),
		meshName:    meshName,
		count:       instanceCount,
	})
}

func (f *fakeBackend) EndRenderPass() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passEnded++
}

func (f *fakeBackend) SubmitAndPresent() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presents++
}

func (f *fakeBackend) DiscardTarget() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discards++
}

func (f *fakeBackend) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
}

func newTestEngine(t *testing.T) (RenderEngine, *fakeBackend, string) {
	t.Helper()
	fake := newFakeBackend()
	dir := t.TempDir()
	eng, err := NewRenderEngine(BackendTypeWGPU, nil,
		WithBackend(fake),
		WithModelDir(dir),
		WithTextureDir(dir),
	)
	require.NoError(t, err)
	return eng, fake, dir
}

func registerTriangle(t *testing.T, eng RenderEngine, name string) {
	t.Helper()
	vertices := []geometry.Vertex{
		{Position: [3]float32{0, 0, 0}, TexCoord: [2]float32{0, 0}, Color: [3]float32{1, 1, 1}},
		{Position: [3]float32{1, 0, 0}, TexCoord: [2]float32{1, 0}, Color: [3]float32{1, 1, 1}},
		{Position: [3]float32{0, 1, 0}, TexCoord: [2]float32{0, 1}, Color: [3]float32{1, 1, 1}},
	}
	_, err := eng.Geometry().RegisterMesh(name, vertices, []uint32{0, 1, 2})
	require.NoError(t, err)
}

func registerTexture(t *testing.T, eng RenderEngine, name string) {
	t.Helper()
	_, err := eng.Textures().Register(name, []byte{128, 128, 128, 255}, 1, 1)
	require.NoError(t, err)
}

const twoSubmeshOBJ = `v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vt 1 0
vt 0 1
usemtl wood
f 1/1 2/2 3/3
usemtl metal
f 1/1 3/3 2/2
`

func TestNewRenderEngineRegistersMeshPipelines(t *testing.T) {
	_, fake, _ := newTestEngine(t)

	assert.Contains(t, fake.registeredPipelines, "mesh")
	assert.Contains(t, fake.registeredPipelines, "mesh_instanced")
}

func TestFrameStepsOutOfOrder(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	var seqErr *StateSequenceError

	err := eng.Clear(DefaultFrameOptions())
	require.ErrorAs(t, err, &seqErr)
	assert.Equal(t, "Clear", seqErr.Step)
	assert.Equal(t, FrameStateIdle, seqErr.State)

	require.ErrorAs(t, eng.RecordNonInstanced(), &seqErr)
	require.ErrorAs(t, eng.RecordInstanced(), &seqErr)
	require.ErrorAs(t, eng.Present(), &seqErr)

	require.NoError(t, eng.AcquireTarget())
	err = eng.AcquireTarget()
	require.ErrorAs(t, err, &seqErr)
	assert.Equal(t, FrameStateTargetAcquired, seqErr.State)

	// Instanced recording may not run before non-instanced recording.
	require.NoError(t, eng.Clear(DefaultFrameOptions()))
	require.ErrorAs(t, eng.RecordInstanced(), &seqErr)
	assert.Equal(t, "RecordInstanced", seqErr.Step)
}

func TestRenderFrameSingleMesh(t *testing.T) {
	eng, fake, _ := newTestEngine(t)
	registerTriangle(t, eng, "tri")
	registerTexture(t, eng, "stone")

	eng.SubmitMesh(RenderCall{
		MeshName:    "tri",
		TextureName: "stone",
		Translation: [3]float32{-2, 0, 0},
	})

	status, err := eng.RenderFrame(DefaultFrameOptions())
	require.NoError(t, err)
	assert.Equal(t, FrameCompleted, status)
	assert.Equal(t, FrameStateIdle, eng.State())

	require.Len(t, fake.draws, 1)
	assert.Equal(t, "mesh", fake.draws[0].pipelineKey)
	assert.Equal(t, "tri_mesh", fake.draws[0].meshLabel)
	assert.Equal(t, "stone_material", fake.draws[0].materialLabel)
	assert.Equal(t, uint32(0), fake.draws[0].slot)

	// Zero scale defaults to 1, so the transform is a pure translation.
	require.Len(t, fake.transforms, 1)
	assert.Equal(t, float32(1), fake.transforms[0][0])
	assert.Equal(t, float32(-2), fake.transforms[0][12])
	assert.Equal(t, float32(0), fake.transforms[0][13])
	assert.Equal(t, float32(0), fake.transforms[0][14])

	assert.Equal(t, 1, fake.cameraWrites)
	assert.Equal(t, eng.Camera().ViewProjectionMatrix(), fake.lastCamera)
	assert.Equal(t, 1, fake.passBegun)
	assert.True(t, fake.lastColorCleared)
	assert.True(t, fake.lastClearDepth)
	assert.Equal(t, 1, fake.passEnded)
	assert.Equal(t, 1, fake.presents)

	report := eng.LastFrameReport()
	assert.Equal(t, FrameCompleted, report.Status)
	assert.Equal(t, 1, report.MeshDraws)
	assert.Empty(t, report.MissingMeshes)
}

func TestFrameClearFlagsReachBackend(t *testing.T) {
	eng, fake, _ := newTestEngine(t)
	registerTriangle(t, eng, "tri")

	opts := FrameOptions{
		Color:      wgpu.Color{R: 1, G: 0, B: 0, A: 1},
		ClearColor: true,
		ClearDepth: true,
	}
	_, err := eng.RenderFrame(opts)
	require.NoError(t, err)
	assert.Equal(t, opts.Color, fake.lastColor)
	assert.True(t, fake.lastColorCleared)
	assert.True(t, fake.lastClearDepth)

	// Both flags off keeps the previous target contents: the pass must load
	// rather than clear.
	opts.ClearColor = false
	opts.ClearDepth = false
	_, err = eng.RenderFrame(opts)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.passBegun)
	assert.False(t, fake.lastColorCleared)
	assert.False(t, fake.lastClearDepth)
}

func TestRenderFrameInstancedBatch(t *testing.T) {
	eng, fake, _ := newTestEngine(t)
	registerTriangle(t, eng, "blade")

	instances := make([]InstancedRenderData, 10000)
	for i := range instances {
		instances[i].Translation = [3]float32{float32(i % 100), 0, float32(i / 100)}
	}
	eng.SubmitInstanced("blade", "", instances)

	status, err := eng.RenderFrame(DefaultFrameOptions())
	require.NoError(t, err)
	assert.Equal(t, FrameCompleted, status)

	require.Len(t, fake.instancedDraws, 1, "one batch should be one draw")
	assert.Equal(t, "mesh_instanced", fake.instancedDraws[0].pipelineKey)
	assert.Equal(t, "blade", fake.instancedDraws[0].meshName)
	assert.Equal(t, uint32(10000), fake.instancedDraws[0].count)
	assert.Len(t, fake.instances["blade"], 10000)

	// The empty texture name binds the built-in white texture.
	assert.Equal(t, 1, fake.textureViews)
	assert.Equal(t, 1, eng.LastFrameReport().InstancedDraws)
}

func TestRenderFrameUnknownMeshSkipsDraw(t *testing.T) {
	eng, fake, _ := newTestEngine(t)

	eng.SubmitMesh(RenderCall{MeshName: "ghost"})

	status, err := eng.RenderFrame(DefaultFrameOptions())
	require.NoError(t, err)
	assert.Equal(t, FrameCompleted, status)

	assert.Empty(t, fake.draws)
	assert.Equal(t, 1, fake.presents, "frame should still present")

	report := eng.LastFrameReport()
	assert.Equal(t, []string{"ghost"}, report.MissingMeshes)
	assert.Zero(t, report.MeshDraws)
}

func TestRenderFrameEmptiesQueue(t *testing.T) {
	eng, fake, _ := newTestEngine(t)
	registerTriangle(t, eng, "tri")

	eng.SubmitMesh(RenderCall{MeshName: "tri"})

	_, err := eng.RenderFrame(DefaultFrameOptions())
	require.NoError(t, err)
	require.Len(t, fake.draws, 1)

	_, err = eng.RenderFrame(DefaultFrameOptions())
	require.NoError(t, err)
	assert.Len(t, fake.draws, 1, "second frame should have nothing to draw")
}

func TestRenderFrameSurfaceAcquisitionFailureDropsQueue(t *testing.T) {
	eng, fake, _ := newTestEngine(t)
	registerTriangle(t, eng, "tri")

	fake.acquireErr = errors.New("surface lost")
	eng.SubmitMesh(RenderCall{MeshName: "tri"})

	status, err := eng.RenderFrame(DefaultFrameOptions())
	assert.Equal(t, FrameSkipped, status)

	var acquireErr *SurfaceAcquisitionError
	require.ErrorAs(t, err, &acquireErr)
	assert.Equal(t, FrameSkipped, eng.LastFrameReport().Status)
	assert.Equal(t, FrameStateIdle, eng.State())

	// The skipped frame's submissions must not leak into the next frame.
	fake.acquireErr = nil
	status, err = eng.RenderFrame(DefaultFrameOptions())
	require.NoError(t, err)
	assert.Equal(t, FrameCompleted, status)
	assert.Empty(t, fake.draws)
}

func TestSubmitModelTextureCountMismatch(t *testing.T) {
	eng, fake, dir := newTestEngine(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crate.obj"), []byte(twoSubmeshOBJ), 0o644))

	err := eng.SubmitModel(ModelRenderCall{
		ModelName:    "crate",
		TextureNames: []string{"wood"},
	})

	var mismatch *TextureCountMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "crate", mismatch.ModelName)
	assert.Equal(t, 2, mismatch.Expected)
	assert.Equal(t, 1, mismatch.Actual)

	// Nothing was enqueued; the next frame draws nothing.
	_, frameErr := eng.RenderFrame(DefaultFrameOptions())
	require.NoError(t, frameErr)
	assert.Empty(t, fake.draws)
}

func TestSubmitModelExpandsSubmeshes(t *testing.T) {
	eng, fake, dir := newTestEngine(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crate.obj"), []byte(twoSubmeshOBJ), 0o644))
	registerTexture(t, eng, "wood")
	registerTexture(t, eng, "metal")

	require.NoError(t, eng.SubmitModel(ModelRenderCall{
		ModelName:    "crate",
		TextureNames: []string{"wood", "metal"},
		Translation:  [3]float32{0, 1, 0},
	}))

	status, err := eng.RenderFrame(DefaultFrameOptions())
	require.NoError(t, err)
	assert.Equal(t, FrameCompleted, status)

	require.Len(t, fake.draws, 2)
	assert.Equal(t, "wood_material", fake.draws[0].materialLabel)
	assert.Equal(t, "metal_material", fake.draws[1].materialLabel)
	assert.Equal(t, uint32(0), fake.draws[0].slot)
	assert.Equal(t, uint32(1), fake.draws[1].slot)

	require.Len(t, fake.transforms, 2)
	assert.Equal(t, float32(1), fake.transforms[0][13])
	assert.Equal(t, fake.transforms[0], fake.transforms[1], "submeshes share one world transform")
}

func TestSubmitModelUnknownModel(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	err := eng.SubmitModel(ModelRenderCall{ModelName: "ghost"})

	var loadErr *geometry.AssetLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "ghost", loadErr.Name)
}

func TestReleaseFreesBackendResources(t *testing.T) {
	eng, fake, _ := newTestEngine(t)
	registerTriangle(t, eng, "tri")
	registerTexture(t, eng, "stone")

	eng.Release()
	assert.Equal(t, 1, fake.releases)
}
