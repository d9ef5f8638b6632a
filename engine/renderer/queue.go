package renderer

import "sync"

// instanceBatch accumulates every instance submitted for one mesh name during
// a frame. A batch becomes a single instanced draw when the frame renders.
type instanceBatch struct {
	meshName    string
	textureName string
	instances   []InstancedRenderData
}

// callQueue buffers render submissions between frames. Submissions from any
// goroutine land here; the render thread drains the whole queue at the start
// of each frame.
type callQueue struct {
	mu sync.Mutex

	meshCalls []RenderCall

	// instanced batches keep submission order; batchIndex maps mesh name to
	// its slot so later submissions for the same mesh extend the batch.
	batches    []*instanceBatch
	batchIndex map[string]int
}

func newCallQueue() *callQueue {
	return &callQueue{
		batchIndex: make(map[string]int),
	}
}

// pushMesh enqueues a single mesh draw.
func (q *callQueue) pushMesh(call RenderCall) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.meshCalls = append(q.meshCalls, call)
}

// pushInstanced merges the given instances into the batch for meshName,
// creating the batch on first use. The first submission's texture name wins
// for the whole batch.
func (q *callQueue) pushInstanced(meshName, textureName string, instances []InstancedRenderData) {
	if len(instances) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if idx, ok := q.batchIndex[meshName]; ok {
		q.batches[idx].instances = append(q.batches[idx].instances, instances...)
		return
	}

	q.batchIndex[meshName] = len(q.batches)
	q.batches = append(q.batches, &instanceBatch{
		meshName:    meshName,
		textureName: textureName,
		instances:   append([]InstancedRenderData(nil), instances...),
	})
}

// drain returns all pending calls and leaves the queue empty. Called once per
// frame whether the frame completes or is skipped, so stale submissions never
// leak into a later frame.
func (q *callQueue) drain() ([]RenderCall, []*instanceBatch) {
	q.mu.Lock()
	defer q.mu.Unlock()

	meshCalls := q.meshCalls
	batches := q.batches
	q.meshCalls = nil
	q.batches = nil
	q.batchIndex = make(map[string]int)
	return meshCalls, batches
}

// pending reports how many mesh draws and instanced batches are queued.
func (q *callQueue) pending() (meshCalls, batches int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.meshCalls), len(q.batches)
}
