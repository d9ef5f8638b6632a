package geometry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/emberworks/ember/common"
	"github.com/emberworks/ember/engine/renderer/bind_group_provider"
	"github.com/emberworks/ember/logger"
	"go.uber.org/zap"
)

// Store owns every loaded geometry asset. Handles are cached by name and
// identity-stable: repeated lookups return the same pointers. Entries are
// never evicted; Release frees everything at teardown.
//
// The store belongs to the render thread. Preload parses files on a worker
// pool but keeps GPU uploads and cache writes on the calling thread.
type Store interface {
	// GetOrLoad returns the model cached under name, loading
	// <modelDir>/<name>.obj on the first request. The returned handle is
	// the same pointer for every call with the same name.
	//
	// Parameters:
	//   - name: asset name without directory or extension
	//
	// Returns:
	//   - *Model: the cached or freshly loaded model
	//   - error: *AssetLoadError if reading or parsing the file fails
	GetOrLoad(name string) (*Model, error)

	// Mesh resolves a single-mesh handle: a registered procedural mesh or
	// an already-loaded submesh first, otherwise the first submesh of the
	// model loaded under name.
	//
	// Parameters:
	//   - name: mesh or asset name
	//
	// Returns:
	//   - *Mesh: the resolved mesh
	//   - error: *AssetLoadError if nothing resolves
	Mesh(name string) (*Mesh, error)

	// RegisterMesh uploads procedural geometry and caches it under name,
	// replacing any previous registration with that name.
	//
	// Parameters:
	//   - name: mesh name for later Mesh lookups
	//   - vertices: vertex data
	//   - indices: triangle-list indices (length divisible by 3)
	//
	// Returns:
	//   - *Mesh: the registered mesh
	//   - error: error if the upload fails or indices are not triangles
	RegisterMesh(name string, vertices []Vertex, indices []uint32) (*Mesh, error)

	// Preload loads a batch of models, parsing files in parallel on the
	// worker pool and uploading serially on the calling thread. Names
	// already cached are skipped. Fails on the first bad asset.
	//
	// Parameters:
	//   - names: asset names to load
	//
	// Returns:
	//   - error: the first load failure, if any
	Preload(names []string) error

	// Release frees the GPU buffers of every cached model and mesh and
	// empties the store. Outstanding handles must not be drawn afterwards.
	Release()
}

type storeImpl struct {
	mu sync.RWMutex

	alloc    BufferAllocator
	modelDir string

	models map[string]*Model

	// meshes is the lookup index for Mesh: registered procedural meshes plus
	// the submeshes of every loaded model. Only entries also present in
	// registered are owned by the store; the rest are owned by their model.
	meshes     map[string]*Mesh
	registered map[string]*Mesh

	// parsePool runs the CPU-side OBJ parse of Preload batches. Workers
	// idle-exit between batches.
	parsePool    worker.DynamicWorkerPool
	parseWorkers int
}

var _ Store = &storeImpl{}

// NewStore creates a geometry store backed by the given allocator.
// Panics if alloc is nil, as nothing can be loaded without it.
//
// Parameters:
//   - alloc: GPU buffer allocator (the renderer, or a fake in tests)
//   - options: functional options to configure the store
//
// Returns:
//   - Store: the configured store
func NewStore(alloc BufferAllocator, options ...StoreOption) Store {
	if alloc == nil {
		panic("geometry: NewStore requires a buffer allocator")
	}
	s := &storeImpl{
		alloc:        alloc,
		modelDir:     "assets/models",
		models:       make(map[string]*Model),
		meshes:       make(map[string]*Mesh),
		registered:   make(map[string]*Mesh),
		parseWorkers: 4,
	}
	for _, option := range options {
		option(s)
	}
	s.parsePool = worker.NewDynamicWorkerPool(s.parseWorkers, 256, 1*time.Second)
	return s
}

func (s *storeImpl) GetOrLoad(name string) (*Model, error) {
	s.mu.RLock()
	if model, ok := s.models[name]; ok {
		s.mu.RUnlock()
		return model, nil
	}
	s.mu.RUnlock()

	parsed, err := s.parseFile(name)
	if err != nil {
		return nil, err
	}
	return s.buildAndCache(name, parsed)
}

func (s *storeImpl) Mesh(name string) (*Mesh, error) {
	s.mu.RLock()
	if mesh, ok := s.meshes[name]; ok {
		s.mu.RUnlock()
		return mesh, nil
	}
	s.mu.RUnlock()

	model, err := s.GetOrLoad(name)
	if err != nil {
		return nil, err
	}
	meshes := model.Meshes()
	if len(meshes) == 0 {
		return nil, &AssetLoadError{Name: name, Err: fmt.Errorf("model has no submeshes")}
	}
	return meshes[0], nil
}

func (s *storeImpl) RegisterMesh(name string, vertices []Vertex, indices []uint32) (*Mesh, error) {
	provider := bind_group_provider.NewBindGroupProvider(name + "_mesh")
	if err := s.alloc.InitMeshBuffers(
		provider,
		common.SliceToBytes(vertices),
		common.SliceToBytes(indices),
		len(indices),
	); err != nil {
		return nil, fmt.Errorf("register mesh %q: %w", name, err)
	}

	mesh, err := NewMesh(name, provider, len(indices), 0)
	if err != nil {
		provider.Release()
		return nil, err
	}

	s.mu.Lock()
	if prev, ok := s.registered[name]; ok {
		prev.Release()
	}
	s.registered[name] = mesh
	s.meshes[name] = mesh
	s.mu.Unlock()
	return mesh, nil
}

func (s *storeImpl) Preload(names []string) error {
	// Drop names that are already cached before spinning up any work.
	pending := make([]string, 0, len(names))
	s.mu.RLock()
	for _, name := range names {
		if _, ok := s.models[name]; !ok {
			pending = append(pending, name)
		}
	}
	s.mu.RUnlock()
	if len(pending) == 0 {
		return nil
	}

	start := time.Now()
	parsed := make([]*objFile, len(pending))
	errs := make([]error, len(pending))

	// Phase 1: parallel CPU parse. A WaitGroup provides the batch barrier;
	// each task writes only its own slot.
	var wg sync.WaitGroup
	for i, name := range pending {
		wg.Add(1)
		slot := i
		assetName := name
		s.parsePool.SubmitTask(worker.Task{
			ID: slot,
			Do: func() (any, error) {
				defer wg.Done()
				parsed[slot], errs[slot] = s.parseFile(assetName)
				return nil, errs[slot]
			},
		})
	}
	wg.Wait()

	// Phase 2: serial GPU upload and cache insertion on this thread.
	for i, name := range pending {
		if errs[i] != nil {
			return errs[i]
		}
		if _, err := s.buildAndCache(name, parsed[i]); err != nil {
			return err
		}
	}

	logger.Log.Debug("preloaded geometry assets",
		zap.Int("count", len(pending)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (s *storeImpl) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, model := range s.models {
		model.Release()
		delete(s.models, name)
	}
	// Model submeshes were released with their model above; only meshes the
	// store registered itself still hold live buffers.
	for name, mesh := range s.registered {
		mesh.Release()
		delete(s.registered, name)
	}
	s.meshes = make(map[string]*Mesh)
}

// parseFile reads and parses <modelDir>/<name>.obj. CPU only; safe to run
// off the render thread.
func (s *storeImpl) parseFile(name string) (*objFile, error) {
	path := filepath.Join(s.modelDir, name+".obj")
	file, err := os.Open(path)
	if err != nil {
		return nil, &AssetLoadError{Name: name, Err: err}
	}
	defer file.Close()

	parsed, err := parseOBJ(file)
	if err != nil {
		return nil, &AssetLoadError{Name: name, Err: err}
	}
	return parsed, nil
}

// buildAndCache uploads a parsed file, locks the model, and publishes it.
// If another load of the same name won the race, the existing handle is
// returned and this upload is released, keeping handles identity-stable.
func (s *storeImpl) buildAndCache(name string, parsed *objFile) (*Model, error) {
	model, err := parsed.build(name, s.alloc)
	if err != nil {
		return nil, &AssetLoadError{Name: name, Err: err}
	}
	model.Lock()

	s.mu.Lock()
	if existing, ok := s.models[name]; ok {
		s.mu.Unlock()
		model.Release()
		return existing, nil
	}
	s.models[name] = model
	// Index submeshes by name so render calls expanded from a model draw
	// resolve without re-touching the model. Registered meshes with the same
	// name win.
	for _, mesh := range model.Meshes() {
		if _, ok := s.meshes[mesh.Name()]; !ok {
			s.meshes[mesh.Name()] = mesh
		}
	}
	s.mu.Unlock()

	logger.Log.Debug("loaded geometry asset",
		zap.String("name", name),
		zap.Int("submeshes", len(model.Meshes())),
	)
	return model, nil
}
