// Package renderer is the frame sequencer: it owns the render queue, the
// camera, the asset stores, and the GPU backend, and turns queued render
// calls into exactly one presented frame per RenderFrame call. Frame steps
// follow a fixed order enforced by a state machine, so a mis-sequenced caller
// fails loudly instead of producing a corrupt frame.
package renderer

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/emberworks/ember/common"
	"github.com/emberworks/ember/engine/camera"
	"github.com/emberworks/ember/engine/geometry"
	"github.com/emberworks/ember/engine/renderer/bind_group_provider"
	"github.com/emberworks/ember/engine/renderer/pipeline"
	"github.com/emberworks/ember/engine/renderer/shader"
	"github.com/emberworks/ember/engine/texture"
	"github.com/emberworks/ember/engine/window"
	"github.com/emberworks/ember/logger"
	"go.uber.org/zap"
)

// Pipeline cache keys for the two built-in mesh pipelines.
const (
	meshPipelineKey      = "mesh"
	instancedPipelineKey = "mesh_instanced"
)

// FrameState tracks where the current frame is in the fixed step order:
// Idle → TargetAcquired → Cleared → RecordingNonInstanced →
// RecordingInstanced → Presented → Idle.
type FrameState int

const (
	FrameStateIdle FrameState = iota
	FrameStateTargetAcquired
	FrameStateCleared
	FrameStateRecordingNonInstanced
	FrameStateRecordingInstanced
	FrameStatePresented
)

func (s FrameState) String() string {
	switch s {
	case FrameStateIdle:
		return "Idle"
	case FrameStateTargetAcquired:
		return "TargetAcquired"
	case FrameStateCleared:
		return "Cleared"
	case FrameStateRecordingNonInstanced:
		return "RecordingNonInstanced"
	case FrameStateRecordingInstanced:
		return "RecordingInstanced"
	case FrameStatePresented:
		return "Presented"
	default:
		return fmt.Sprintf("FrameState(%d)", int(s))
	}
}

// FrameStatus is the outcome of one RenderFrame call.
type FrameStatus int

const (
	// FrameCompleted means the frame was recorded, submitted, and presented.
	FrameCompleted FrameStatus = iota

	// FrameSkipped means the frame was abandoned, most commonly because the
	// surface texture could not be acquired. Queued calls for the frame are
	// dropped, never carried over.
	FrameSkipped
)

func (s FrameStatus) String() string {
	switch s {
	case FrameCompleted:
		return "Completed"
	case FrameSkipped:
		return "Skipped"
	default:
		return fmt.Sprintf("FrameStatus(%d)", int(s))
	}
}

// FrameOptions configures how a frame's render target is cleared.
type FrameOptions struct {
	// Color is the value the color target is cleared to when ClearColor is
	// set.
	Color wgpu.Color

	// ClearColor resets the color target before any draw. Leaving it false
	// loads the previous frame's color contents instead.
	ClearColor bool

	// ClearDepth resets the depth buffer before any draw. Leaving it false
	// loads the previous frame's depth contents instead.
	ClearDepth bool
}

// DefaultFrameOptions returns the standard dark-grey clear with both targets
// reset.
func DefaultFrameOptions() FrameOptions {
	return FrameOptions{
		Color:      wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
		ClearColor: true,
		ClearDepth: true,
	}
}

// FrameReport summarizes the last finished frame: what was drawn and which
// queued resources could not be resolved. Unresolved names skip their draw
// and land here; they never fail the frame.
type FrameReport struct {
	Status          FrameStatus
	MeshDraws       int
	InstancedDraws  int
	MissingMeshes   []string
	MissingTextures []string
}

// resolvedDraw is one single-mesh draw after name resolution, with its slot
// in the transform ring.
type resolvedDraw struct {
	mesh     *geometry.Mesh
	material bind_group_provider.BindGroupProvider
	slot     uint32
}

// resolvedBatch is one instanced draw after name resolution.
type resolvedBatch struct {
	mesh     *geometry.Mesh
	material bind_group_provider.BindGroupProvider
	meshName string
	count    uint32
}

// renderEngineImpl is the implementation of the RenderEngine interface.
type renderEngineImpl struct {
	mu *sync.Mutex

	backend RendererBackend
	cam     camera.Camera

	geometryStore geometry.Store
	textureStore  texture.Store

	pipelineCache map[string]pipeline.Pipeline

	queue *callQueue

	width  int
	height int

	state        FrameState
	frameDraws   []resolvedDraw
	frameBatches []resolvedBatch
	report       FrameReport
	lastReport   FrameReport

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	modelDir             string
	textureDir           string
	preloadWorkers       int
}

// RenderEngine drives rendering: callers submit mesh, model, and instanced
// draws from any goroutine, then the render thread calls RenderFrame once per
// tick to flush the queue into a presented frame.
//
// The per-frame steps (AcquireTarget, Clear, RecordNonInstanced,
// RecordInstanced, Present) are exposed for callers that need to interleave
// work between them; RenderFrame runs them in order. Steps invoked out of
// order return a StateSequenceError.
type RenderEngine interface {
	// Camera returns the engine's camera. Mutate it freely between frames;
	// its matrices are recomputed from the surface aspect when a frame is
	// cleared.
	//
	// Returns:
	//   - camera.Camera: the engine camera
	Camera() camera.Camera

	// Geometry returns the geometry asset store bound to this engine's GPU
	// backend.
	//
	// Returns:
	//   - geometry.Store: the geometry store
	Geometry() geometry.Store

	// Textures returns the texture store bound to this engine's GPU backend.
	//
	// Returns:
	//   - texture.Store: the texture store
	Textures() texture.Store

	// Pipeline retrieves the cached Pipeline associated with the given key,
	// or nil if not found.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipelines registers one or more pipelines by creating the
	// corresponding GPU pipeline objects via the backend, then caching them
	// by PipelineKey. Already-registered keys are skipped.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// SubmitMesh queues one textured mesh draw for the next frame.
	//
	// Parameters:
	//   - call: the draw request
	SubmitMesh(call RenderCall)

	// SubmitModel expands a model draw into one queued call per submesh,
	// mapping textures to submeshes by material slot. The whole submission
	// is rejected before anything is queued when the texture list does not
	// match the model's material slots.
	//
	// Parameters:
	//   - call: the model draw request
	//
	// Returns:
	//   - error: *TextureCountMismatchError on a bad texture list, or the
	//     model's load error
	SubmitModel(call ModelRenderCall) error

	// SubmitInstanced merges instances into the batch for meshName. All
	// instances submitted for one mesh name during a frame render as a
	// single instanced draw.
	//
	// Parameters:
	//   - meshName: the mesh drawn for every instance
	//   - textureName: texture bound for the batch; empty binds the built-in
	//     white texture
	//   - instances: per-instance transforms
	SubmitInstanced(meshName, textureName string, instances []InstancedRenderData)

	// AcquireTarget begins a frame by acquiring the next surface texture.
	// On failure the queued calls for the frame are dropped and a
	// *SurfaceAcquisitionError is returned.
	//
	// Returns:
	//   - error: acquisition or sequencing error
	AcquireTarget() error

	// Clear drains the queue, resolves every queued name, uploads camera,
	// transform, and instance data, and begins the render pass with the
	// given clear options.
	//
	// Parameters:
	//   - opts: clear configuration for the frame
	//
	// Returns:
	//   - error: upload or sequencing error
	Clear(opts FrameOptions) error

	// RecordNonInstanced records one draw per resolved single-mesh call.
	//
	// Returns:
	//   - error: sequencing error
	RecordNonInstanced() error

	// RecordInstanced records one draw per resolved instanced batch.
	//
	// Returns:
	//   - error: sequencing error
	RecordInstanced() error

	// Present ends the render pass, submits the command buffer, and presents
	// the surface.
	//
	// Returns:
	//   - error: sequencing error
	Present() error

	// RenderFrame runs the full frame step sequence. A surface acquisition
	// failure skips the frame and drops its queued calls; queued names that
	// fail to resolve skip their draw and are listed in the frame report.
	//
	// Parameters:
	//   - opts: clear configuration for the frame
	//
	// Returns:
	//   - FrameStatus: FrameCompleted or FrameSkipped
	//   - error: the error that caused a skip, nil on completion
	RenderFrame(opts FrameOptions) (FrameStatus, error)

	// LastFrameReport returns the report of the most recently finished
	// frame, completed or skipped.
	//
	// Returns:
	//   - FrameReport: the last frame's report
	LastFrameReport() FrameReport

	// State returns the current frame state.
	//
	// Returns:
	//   - FrameState: the current state
	State() FrameState

	// Resize reconfigures the backend surface for a new window size.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode. A Resize is required for
	// the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// Release frees the asset stores and backend-owned frame resources.
	// Outstanding mesh and texture handles must not be drawn afterwards.
	Release()
}

var _ RenderEngine = &renderEngineImpl{}

// NewRenderEngine creates a render engine over a window surface. The engine
// builds its own backend, asset stores, and mesh pipelines; the window is
// only consulted for the surface descriptor and initial size.
//
// Panics if win is nil and no backend was injected with WithBackend.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - win: the window providing the render surface; may be nil only when a
//     backend is injected
//   - options: variadic list of RenderEngineOption functions
//
// Returns:
//   - RenderEngine: the configured engine
//   - error: an error if the built-in pipelines could not be created
func NewRenderEngine(backendType RendererBackendType, win window.Window, options ...RenderEngineOption) (RenderEngine, error) {
	r := &renderEngineImpl{
		mu:             &sync.Mutex{},
		pipelineCache:  make(map[string]pipeline.Pipeline),
		queue:          newCallQueue(),
		modelDir:       "assets/models",
		textureDir:     "assets/textures",
		preloadWorkers: 4,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	if r.backend == nil {
		if win == nil {
			panic("renderer: NewRenderEngine requires a window when no backend is injected")
		}

		msaa := MSAA4x // default
		if r.pendingMSAA != nil {
			msaa = *r.pendingMSAA
		}

		switch backendType {
		case BackendTypeWGPU:
			fallthrough
		default:
			r.backend = newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
		}
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	if win != nil {
		r.width = win.Width()
		r.height = win.Height()
		r.backend.ConfigureSurface(r.width, r.height)
	}

	if r.cam == nil {
		r.cam = camera.NewCamera()
	}

	r.geometryStore = geometry.NewStore(
		r.backend,
		geometry.WithModelDir(r.modelDir),
		geometry.WithParseWorkers(r.preloadWorkers),
	)
	r.textureStore = texture.NewStore(
		r.backend,
		texture.WithTextureDir(r.textureDir),
	)

	if err := r.RegisterPipelines(
		pipeline.NewPipeline(meshPipelineKey, shader.NewMeshShader()),
		pipeline.NewPipeline(instancedPipelineKey, shader.NewInstancedMeshShader()),
	); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *renderEngineImpl) Camera() camera.Camera {
	return r.cam
}

func (r *renderEngineImpl) Geometry() geometry.Store {
	return r.geometryStore
}

func (r *renderEngineImpl) Textures() texture.Store {
	return r.textureStore
}

func (r *renderEngineImpl) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderEngineImpl) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if err := r.backend.RegisterRenderPipeline(p); err != nil {
			return err
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderEngineImpl) SubmitMesh(call RenderCall) {
	r.queue.pushMesh(call)
}

func (r *renderEngineImpl) SubmitModel(call ModelRenderCall) error {
	model, err := r.geometryStore.GetOrLoad(call.ModelName)
	if err != nil {
		return err
	}

	if len(call.TextureNames) != model.TextureBindings() {
		return &TextureCountMismatchError{
			ModelName: call.ModelName,
			Expected:  model.TextureBindings(),
			Actual:    len(call.TextureNames),
		}
	}

	for _, mesh := range model.Meshes() {
		r.queue.pushMesh(RenderCall{
			MeshName:    mesh.Name(),
			TextureName: call.TextureNames[mesh.MaterialSlot()],
			Translation: call.Translation,
			Rotation:    call.Rotation,
			Scale:       call.Scale,
		})
	}
	return nil
}

func (r *renderEngineImpl) SubmitInstanced(meshName, textureName string, instances []InstancedRenderData) {
	r.queue.pushInstanced(meshName, textureName, instances)
}

func (r *renderEngineImpl) AcquireTarget() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != FrameStateIdle && r.state != FrameStatePresented {
		return &StateSequenceError{Step: "AcquireTarget", State: r.state}
	}

	r.report = FrameReport{Status: FrameCompleted}
	r.frameDraws = nil
	r.frameBatches = nil

	if err := r.backend.AcquireTarget(); err != nil {
		// Queued calls belong to the frame that just failed; drop them so
		// they cannot pile up across skipped frames.
		r.queue.drain()
		r.report.Status = FrameSkipped
		r.lastReport = r.report
		r.state = FrameStateIdle
		acquireErr := &SurfaceAcquisitionError{Err: err}
		logger.Log.Warn("frame skipped", zap.Error(acquireErr))
		return acquireErr
	}

	r.state = FrameStateTargetAcquired
	return nil
}

func (r *renderEngineImpl) Clear(opts FrameOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != FrameStateTargetAcquired {
		return &StateSequenceError{Step: "Clear", State: r.state}
	}

	meshCalls, batches := r.queue.drain()

	aspect := float32(1)
	if r.width > 0 && r.height > 0 {
		aspect = float32(r.width) / float32(r.height)
	}
	r.cam.UpdateMatrix(aspect)
	if err := r.backend.WriteCameraUniform(r.cam.ViewProjectionMatrix()); err != nil {
		return r.abandonFrame(err)
	}

	// Resolve single-mesh calls and stage their transforms. The transform
	// ring must reach final capacity before the pass records any draw, so
	// all growth happens here.
	draws := make([]resolvedDraw, 0, len(meshCalls))
	matrices := make([][16]float32, 0, len(meshCalls))
	for _, call := range meshCalls {
		mesh := r.resolveMesh(call.MeshName)
		if mesh == nil {
			continue
		}
		material := r.resolveMaterial(call.TextureName)
		if material == nil {
			continue
		}
		var matrix [16]float32
		buildModelMatrix(matrix[:], call.Translation, call.Rotation, call.Scale)
		draws = append(draws, resolvedDraw{
			mesh:     mesh,
			material: material,
			slot:     uint32(len(draws)),
		})
		matrices = append(matrices, matrix)
	}
	if len(draws) > 0 {
		if err := r.backend.EnsureTransformCapacity(len(draws)); err != nil {
			return r.abandonFrame(err)
		}
		r.backend.WriteTransforms(matrices)
	}

	// Resolve instanced batches and upload their matrix arrays.
	resolvedBatches := make([]resolvedBatch, 0, len(batches))
	for _, batch := range batches {
		mesh := r.resolveMesh(batch.meshName)
		if mesh == nil {
			continue
		}
		material := r.resolveMaterial(batch.textureName)
		if material == nil {
			continue
		}
		instanceMatrices := make([][16]float32, len(batch.instances))
		for i, inst := range batch.instances {
			buildModelMatrix(instanceMatrices[i][:], inst.Translation, inst.Rotation, inst.Scale)
		}
		if err := r.backend.WriteInstances(batch.meshName, instanceMatrices); err != nil {
			return r.abandonFrame(err)
		}
		resolvedBatches = append(resolvedBatches, resolvedBatch{
			mesh:     mesh,
			material: material,
			meshName: batch.meshName,
			count:    uint32(len(batch.instances)),
		})
	}

	r.frameDraws = draws
	r.frameBatches = resolvedBatches

	r.backend.BeginRenderPass(opts.Color, opts.ClearColor, opts.ClearDepth)
	r.state = FrameStateCleared
	return nil
}

func (r *renderEngineImpl) RecordNonInstanced() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != FrameStateCleared {
		return &StateSequenceError{Step: "RecordNonInstanced", State: r.state}
	}

	p := r.pipelineCache[meshPipelineKey]
	for _, draw := range r.frameDraws {
		r.backend.DrawIndexed(p, draw.mesh.Provider(), draw.material, draw.slot)
	}
	r.report.MeshDraws = len(r.frameDraws)

	r.state = FrameStateRecordingNonInstanced
	return nil
}

func (r *renderEngineImpl) RecordInstanced() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != FrameStateRecordingNonInstanced {
		return &StateSequenceError{Step: "RecordInstanced", State: r.state}
	}

	p := r.pipelineCache[instancedPipelineKey]
	for _, batch := range r.frameBatches {
		r.backend.DrawInstanced(p, batch.mesh.Provider(), batch.material, batch.meshName, batch.count)
	}
	r.report.InstancedDraws = len(r.frameBatches)

	r.state = FrameStateRecordingInstanced
	return nil
}

func (r *renderEngineImpl) Present() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != FrameStateRecordingInstanced {
		return &StateSequenceError{Step: "Present", State: r.state}
	}

	r.backend.EndRenderPass()
	r.backend.SubmitAndPresent()

	r.frameDraws = nil
	r.frameBatches = nil
	r.report.Status = FrameCompleted
	r.lastReport = r.report

	r.state = FrameStatePresented
	return nil
}

func (r *renderEngineImpl) RenderFrame(opts FrameOptions) (FrameStatus, error) {
	if err := r.AcquireTarget(); err != nil {
		return FrameSkipped, err
	}
	if err := r.Clear(opts); err != nil {
		return FrameSkipped, err
	}
	if err := r.RecordNonInstanced(); err != nil {
		return FrameSkipped, err
	}
	if err := r.RecordInstanced(); err != nil {
		return FrameSkipped, err
	}
	if err := r.Present(); err != nil {
		return FrameSkipped, err
	}

	r.mu.Lock()
	r.state = FrameStateIdle
	r.mu.Unlock()
	return FrameCompleted, nil
}

func (r *renderEngineImpl) LastFrameReport() FrameReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastReport
}

func (r *renderEngineImpl) State() FrameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *renderEngineImpl) Resize(width, height int) {
	r.mu.Lock()
	r.width = width
	r.height = height
	r.mu.Unlock()
	r.backend.ConfigureSurface(width, height)
}

func (r *renderEngineImpl) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderEngineImpl) Release() {
	r.textureStore.Release()
	r.geometryStore.Release()
	r.backend.Release()
}

// abandonFrame releases the acquired target and records a skipped frame.
// Caller must hold the mutex.
func (r *renderEngineImpl) abandonFrame(err error) error {
	r.backend.DiscardTarget()
	r.frameDraws = nil
	r.frameBatches = nil
	r.report.Status = FrameSkipped
	r.lastReport = r.report
	r.state = FrameStateIdle
	return err
}

// resolveMesh looks up a queued mesh name, recording a miss on failure.
// Caller must hold the mutex.
func (r *renderEngineImpl) resolveMesh(name string) *geometry.Mesh {
	mesh, err := r.geometryStore.Mesh(name)
	if err != nil {
		logger.Log.Warn("skipping draw for unknown mesh",
			zap.String("mesh", name),
			zap.Error(err),
		)
		r.report.MissingMeshes = append(r.report.MissingMeshes, name)
		return nil
	}
	return mesh
}

// resolveMaterial looks up a queued texture name, recording a miss on
// failure. An empty name binds the built-in white texture. Caller must hold
// the mutex.
func (r *renderEngineImpl) resolveMaterial(name string) bind_group_provider.BindGroupProvider {
	var provider bind_group_provider.BindGroupProvider
	var err error
	if name == "" {
		provider, err = r.textureStore.Default()
	} else {
		provider, err = r.textureStore.GetOrLoad(name)
	}
	if err != nil {
		logger.Log.Warn("skipping draw for unknown texture",
			zap.String("texture", name),
			zap.Error(err),
		)
		r.report.MissingTextures = append(r.report.MissingTextures, name)
		return nil
	}
	return provider
}

// buildModelMatrix fills out with the world matrix for one draw. A zero
// scale means the caller left it unset and is treated as uniform scale 1.
func buildModelMatrix(out []float32, translation, rotation, scale [3]float32) {
	if scale == ([3]float32{}) {
		scale = [3]float32{1, 1, 1}
	}
	common.BuildModelMatrix(out,
		translation[0], translation[1], translation[2],
		rotation[0], rotation[1], rotation[2],
		scale[0], scale[1], scale[2],
	)
}
