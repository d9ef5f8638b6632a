package geometry

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/emberworks/ember/common"
	"github.com/emberworks/ember/engine/renderer/bind_group_provider"
)

// BufferAllocator creates GPU vertex and index buffers from raw bytes and
// stores them on a provider. The renderer implements it; tests substitute a
// recording fake.
type BufferAllocator interface {
	// InitMeshBuffers creates GPU vertex and index buffers from raw byte data and stores them
	// on the given BindGroupProvider for later use in draw calls.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created buffers on
	//   - vertexData: the raw vertex data bytes to upload to the GPU
	//   - indexData: the raw index data bytes to upload to the GPU
	//   - indexCount: the number of indices, used for draw calls
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error
}

// objSubmesh is one material span of an OBJ file after triangulation and
// index deduplication.
type objSubmesh struct {
	material string
	vertices []Vertex
	indices  []uint32
}

// objFile is the CPU-side result of parsing an OBJ stream, ready for GPU
// upload via build.
type objFile struct {
	submeshes []objSubmesh
}

// objIndexKey identifies a unique position/texcoord pairing within one
// submesh for vertex deduplication.
type objIndexKey struct {
	pos, tex int
}

// parseOBJ reads a Wavefront OBJ stream into triangulated submeshes.
//
// The supported subset: v, vt, f, usemtl, o/g/s (structure markers,
// ignored), mtllib and vn (discarded - materials come from the texture
// store, shading is flat). Faces are fan-triangulated and may use negative
// (relative) indices. V texture coordinates are flipped (v' = 1 - v) to the
// WebGPU top-left origin. Parsing is fail-fast: the first malformed record
// aborts the whole import.
//
// Parameters:
//   - r: the OBJ text stream
//
// Returns:
//   - *objFile: parsed submeshes in usemtl order
//   - error: error describing the first malformed line, or an empty file
func parseOBJ(r io.Reader) (*objFile, error) {
	var (
		positions [][3]float32
		texcoords [][2]float32

		out     objFile
		current *objSubmesh
		dedup   map[objIndexKey]uint32
	)

	// startSubmesh begins a new material span, keeping the current one only
	// if it produced any triangles.
	startSubmesh := func(material string) {
		if current != nil && len(current.indices) > 0 {
			out.submeshes = append(out.submeshes, *current)
		}
		current = &objSubmesh{material: material}
		dedup = make(map[objIndexKey]uint32)
	}

	// resolveIndex maps a 1-based or negative OBJ index to a 0-based slice
	// index, range-checked against the records seen so far.
	resolveIndex := func(raw, count int) (int, error) {
		idx := raw
		if idx < 0 {
			idx = count + idx
		} else {
			idx--
		}
		if idx < 0 || idx >= count {
			return 0, fmt.Errorf("index %d out of range (have %d)", raw, count)
		}
		return idx, nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex record needs 3 coordinates", lineNo)
			}
			var pos [3]float32
			for i := 0; i < 3; i++ {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: bad vertex coordinate %q: %w", lineNo, fields[i+1], err)
				}
				pos[i] = float32(f)
			}
			positions = append(positions, pos)

		case "vt":
			if len(fields) < 3 {
				return nil, fmt.Errorf("line %d: texcoord record needs 2 coordinates", lineNo)
			}
			var uv [2]float32
			for i := 0; i < 2; i++ {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: bad texcoord %q: %w", lineNo, fields[i+1], err)
				}
				uv[i] = float32(f)
			}
			texcoords = append(texcoords, uv)

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 corners", lineNo)
			}
			if current == nil {
				startSubmesh("")
			}

			corners := make([]uint32, 0, len(fields)-1)
			for _, fld := range fields[1:] {
				parts := strings.Split(fld, "/")
				rawPos, err := strconv.Atoi(parts[0])
				if err != nil {
					return nil, fmt.Errorf("line %d: bad face index %q: %w", lineNo, parts[0], err)
				}
				posIdx, err := resolveIndex(rawPos, len(positions))
				if err != nil {
					return nil, fmt.Errorf("line %d: position %w", lineNo, err)
				}

				texIdx := -1
				if len(parts) > 1 && parts[1] != "" {
					rawTex, err := strconv.Atoi(parts[1])
					if err != nil {
						return nil, fmt.Errorf("line %d: bad texcoord index %q: %w", lineNo, parts[1], err)
					}
					texIdx, err = resolveIndex(rawTex, len(texcoords))
					if err != nil {
						return nil, fmt.Errorf("line %d: texcoord %w", lineNo, err)
					}
				}

				key := objIndexKey{pos: posIdx, tex: texIdx}
				vi, ok := dedup[key]
				if !ok {
					uv := [2]float32{0, 0}
					if texIdx >= 0 {
						uv = texcoords[texIdx]
					}
					vertex := Vertex{
						Position: positions[posIdx],
						// Flip V to the top-left texture origin.
						TexCoord: [2]float32{uv[0], 1 - uv[1]},
						Color:    [3]float32{1, 1, 1},
					}
					vi = uint32(len(current.vertices))
					current.vertices = append(current.vertices, vertex)
					dedup[key] = vi
				}
				corners = append(corners, vi)
			}

			// Fan triangulation around the first corner.
			for i := 1; i+1 < len(corners); i++ {
				current.indices = append(current.indices, corners[0], corners[i], corners[i+1])
			}

		case "usemtl":
			material := ""
			if len(fields) > 1 {
				material = fields[1]
			}
			startSubmesh(material)

		case "mtllib", "vn", "o", "g", "s":
			// Material libraries are deliberately discarded; textures are
			// resolved by name at draw time. Normals and grouping markers
			// carry no meaning for these pipelines.

		default:
			// Unknown records are skipped, matching common OBJ tooling.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read failure at line %d: %w", lineNo, err)
	}

	if current != nil && len(current.indices) > 0 {
		out.submeshes = append(out.submeshes, *current)
	}
	if len(out.submeshes) == 0 {
		return nil, fmt.Errorf("no face data found")
	}
	return &out, nil
}

// build uploads every submesh to the GPU and assembles the locked-capable
// model. Each submesh gets its own provider labeled with the asset name and
// submesh ordinal.
//
// Parameters:
//   - name: the asset name the model is registered under
//   - alloc: the allocator creating vertex/index buffers
//
// Returns:
//   - *Model: model with one mesh per submesh, in file order
//   - error: error if any buffer upload fails
func (f *objFile) build(name string, alloc BufferAllocator) (*Model, error) {
	model := NewModel(name)
	for i, sub := range f.submeshes {
		provider := bind_group_provider.NewBindGroupProvider(
			fmt.Sprintf("%s_submesh_%d", name, i),
		)
		if err := alloc.InitMeshBuffers(
			provider,
			common.SliceToBytes(sub.vertices),
			common.SliceToBytes(sub.indices),
			len(sub.indices),
		); err != nil {
			model.Release()
			return nil, fmt.Errorf("submesh %d upload failed: %w", i, err)
		}

		mesh, err := NewMesh(fmt.Sprintf("%s/%d", name, i), provider, len(sub.indices), i)
		if err != nil {
			model.Release()
			provider.Release()
			return nil, err
		}
		if err := model.AppendMesh(mesh); err != nil {
			model.Release()
			mesh.Release()
			return nil, err
		}
	}
	return model, nil
}
