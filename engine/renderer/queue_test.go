package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDrainReturnsAndClears(t *testing.T) {
	q := newCallQueue()
	q.pushMesh(RenderCall{MeshName: "chair"})
	q.pushMesh(RenderCall{MeshName: "table"})

	meshCalls, batches := q.drain()
	require.Len(t, meshCalls, 2)
	assert.Equal(t, "chair", meshCalls[0].MeshName)
	assert.Equal(t, "table", meshCalls[1].MeshName)
	assert.Empty(t, batches)

	meshCalls, batches = q.drain()
	assert.Empty(t, meshCalls)
	assert.Empty(t, batches)
}

func TestQueueInstancedBatchesMergeByMeshName(t *testing.T) {
	q := newCallQueue()
	q.pushInstanced("tree", "bark", []InstancedRenderData{
		{Translation: [3]float32{0, 0, 0}},
		{Translation: [3]float32{1, 0, 0}},
	})
	q.pushInstanced("rock", "stone", []InstancedRenderData{
		{Translation: [3]float32{5, 0, 0}},
	})
	q.pushInstanced("tree", "ignored", []InstancedRenderData{
		{Translation: [3]float32{2, 0, 0}},
	})

	_, batches := q.drain()
	require.Len(t, batches, 2)

	assert.Equal(t, "tree", batches[0].meshName)
	assert.Equal(t, "bark", batches[0].textureName, "first submission's texture should win")
	assert.Len(t, batches[0].instances, 3)

	assert.Equal(t, "rock", batches[1].meshName)
	assert.Len(t, batches[1].instances, 1)
}

func TestQueueInstancedEmptySubmissionIgnored(t *testing.T) {
	q := newCallQueue()
	q.pushInstanced("tree", "bark", nil)

	meshCount, batchCount := q.pending()
	assert.Zero(t, meshCount)
	assert.Zero(t, batchCount)
}

func TestQueueInstancedCopiesInput(t *testing.T) {
	q := newCallQueue()
	instances := []InstancedRenderData{{Translation: [3]float32{1, 2, 3}}}
	q.pushInstanced("tree", "bark", instances)

	instances[0].Translation = [3]float32{9, 9, 9}

	_, batches := q.drain()
	require.Len(t, batches, 1)
	assert.Equal(t, [3]float32{1, 2, 3}, batches[0].instances[0].Translation)
}
