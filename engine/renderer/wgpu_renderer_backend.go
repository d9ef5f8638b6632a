package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/emberworks/ember/common"
	"github.com/emberworks/ember/engine/renderer/bind_group_provider"
	"github.com/emberworks/ember/engine/renderer/pipeline"
	"github.com/emberworks/ember/engine/renderer/shader"
)

// transformStride is the byte stride between transform ring slots. WebGPU
// requires dynamic uniform offsets to be multiples of 256.
const transformStride = 256

// instanceBufferMinCapacity is the smallest instance storage buffer allocated
// per mesh name; buffers double from there as batches grow.
const instanceBufferMinCapacity = 16

// instanceBuffer is one mesh name's storage buffer of instance matrices plus
// the bind group exposing it to the instanced pipeline.
type instanceBuffer struct {
	buffer    *wgpu.Buffer
	bindGroup *wgpu.BindGroup
	capacity  int
}

func (ib *instanceBuffer) release() {
	if ib.bindGroup != nil {
		ib.bindGroup.Release()
		ib.bindGroup = nil
	}
	if ib.buffer != nil {
		ib.buffer.Release()
		ib.buffer = nil
	}
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat    *wgpu.TextureFormat
	msaaTextureView  *wgpu.TextureView
	depthTextureView *wgpu.TextureView

	presentMode wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)
	sampleCount MSAASampleCount  // MSAA sample count for the main render pass

	// Per-frame state between AcquireTarget and SubmitAndPresent.
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	// Camera uniform for bind group 0, created on first write.
	cameraLayout    *wgpu.BindGroupLayout
	cameraBuffer    *wgpu.Buffer
	cameraBindGroup *wgpu.BindGroup

	// Transform ring for bind group 1 of single-mesh draws. One 256-byte slot
	// per draw, addressed with a dynamic offset. Grows by doubling, which
	// recreates the bind group, so growth happens before the pass records.
	transformLayout    *wgpu.BindGroupLayout
	transformBuffer    *wgpu.Buffer
	transformBindGroup *wgpu.BindGroup
	transformCapacity  int

	// Instance storage buffers for bind group 1 of instanced draws, keyed by
	// mesh name. Buffers persist across frames and only grow.
	instanceLayout  *wgpu.BindGroupLayout
	instanceBuffers map[string]*instanceBuffer
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount) RendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:              &sync.Mutex{},
		instance:        wgpu.CreateInstance(nil),
		presentMode:     wgpu.PresentModeImmediate,
		sampleCount:     sampleCount,
		instanceBuffers: make(map[string]*instanceBuffer),
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.adapter = a

	limits := wgpu.DefaultLimits()

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	count := uint32(b.sampleCount)
	msaaEnabled := count > 1

	if msaaEnabled {
		// The render pass draws into the MSAA texture; the resolved result is
		// written to the swapchain view as the ResolveTarget.
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			panic(err)
		}
	} else {
		// No MSAA — the render pass draws directly to the swapchain view.
		b.msaaTextureView = nil
	}

	// Depth texture sample count must match the color attachment.
	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	b.depthTextureView, err = depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	shdr := p.Shader()

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: shdr.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: shdr.Source(),
		},
	})
	if err != nil {
		return err
	}

	descriptors := shdr.BindGroupLayoutDescriptors()
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, len(descriptors))
	for g := range descriptors {
		layout, layoutErr := b.device.CreateBindGroupLayout(&descriptors[g])
		if layoutErr != nil {
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, layoutErr)
		}
		bindGroupLayouts[g] = layout
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return err
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: shdr.VertexEntryPoint(),
			Buffers:    shdr.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: shdr.FragmentEntryPoint(),
			Targets: []wgpu.ColorTargetState{
				func() wgpu.ColorTargetState {
					state := wgpu.ColorTargetState{
						Format:    *b.surfaceFormat,
						WriteMask: p.WriteMask(),
					}
					if p.BlendEnabled() {
						state.Blend = p.BlendState()
					}
					return state
				}(),
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: func() *wgpu.DepthStencilState {
			depthCompare := wgpu.CompareFunctionLess
			if !p.DepthTestEnabled() {
				depthCompare = wgpu.CompareFunctionAlways
			}
			return &wgpu.DepthStencilState{
				Format:              wgpu.TextureFormatDepth24Plus,
				DepthWriteEnabled:   p.DepthWriteEnabled(),
				DepthCompare:        depthCompare,
				DepthBias:           p.DepthBias(),
				DepthBiasSlopeScale: p.DepthBiasSlopeScale(),
				StencilFront: wgpu.StencilFaceState{
					Compare: wgpu.CompareFunctionAlways,
				},
				StencilBack: wgpu.StencilFaceState{
					Compare: wgpu.CompareFunctionAlways,
				},
			}
		}(),
	})
	if err != nil {
		return err
	}

	p.SetRenderPipeline(created)

	return nil
}

func (b *wgpuRendererBackendImpl) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(vertexData) > 0 {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            provider.Label() + " Vertex Buffer",
			Size:             uint64(len(vertexData)),
			Usage:            wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
		if err != nil {
			return err
		}
		b.queue.WriteBuffer(buf, 0, vertexData)
		provider.SetVertexBuffer(buf)
	}

	if len(indexData) > 0 {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            provider.Label() + " Index Buffer",
			Size:             uint64(len(indexData)),
			Usage:            wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
		if err != nil {
			return err
		}
		b.queue.WriteBuffer(buf, 0, indexData)
		provider.SetIndexBuffer(buf)
	}

	provider.SetIndexCount(indexCount)

	return nil
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(descriptor.Entries) == 0 {
		return nil
	}

	layout := provider.BindGroupLayout()
	if layout == nil {
		var err error
		layout, err = b.device.CreateBindGroupLayout(&descriptor)
		if err != nil {
			return err
		}
		provider.SetBindGroupLayout(layout)
	}

	bindGroupEntries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		binding := int(entry.Binding)

		isTexture := entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined
		isSampler := entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined

		if isTexture {
			tv := provider.TextureView(binding)
			if tv == nil {
				return fmt.Errorf("texture binding %d has no texture view — call InitTextureView first", binding)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding:     entry.Binding,
				TextureView: tv,
			}
		} else if isSampler {
			samp := provider.Sampler(binding)
			if samp == nil {
				return fmt.Errorf("sampler binding %d has no sampler — call InitSampler first", binding)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Sampler: samp,
			}
		} else {
			// Buffer binding — create if not already present
			var usage wgpu.BufferUsage
			switch entry.Buffer.Type {
			case wgpu.BufferBindingTypeUniform:
				usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
			case wgpu.BufferBindingTypeStorage:
				usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
			case wgpu.BufferBindingTypeReadOnlyStorage:
				usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
			}
			if overrideUsage, ok := bufferUsageOverrides[binding]; ok {
				usage |= overrideUsage
			}

			buf := provider.Buffer(binding)
			if buf == nil {
				var bufErr error
				bufSize := entry.Buffer.MinBindingSize
				if overrideSize, ok := bufferSizeOverrides[binding]; ok {
					bufSize = overrideSize
				}
				buf, bufErr = b.device.CreateBuffer(&wgpu.BufferDescriptor{
					Label: provider.Label() + " Buffer",
					Size:  bufSize,
					Usage: usage,
				})
				if bufErr != nil {
					return bufErr
				}
				provider.SetBuffer(binding, buf)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Buffer:  buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			}
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: bindGroupEntries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)

	return nil
}

func (b *wgpuRendererBackendImpl) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     provider.Label() + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              stagingData.Width,
			Height:             stagingData.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		stagingData.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  stagingData.Width * 4,
			RowsPerImage: stagingData.Height,
		},
		&wgpu.Extent3D{
			Width:              stagingData.Width,
			Height:             stagingData.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		return err
	}
	provider.SetTextureView(bindingKey, view)

	return nil
}

func (b *wgpuRendererBackendImpl) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         provider.Label() + " Sampler",
		AddressModeU:  common.Coalesce(samplerStagingData.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(samplerStagingData.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(samplerStagingData.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(samplerStagingData.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(samplerStagingData.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(samplerStagingData.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(samplerStagingData.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(samplerStagingData.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(samplerStagingData.MaxAnisotropy, 1),
		Compare:       samplerStagingData.Compare,
	})
	if err != nil {
		return err
	}
	provider.SetSampler(bindingKey, samp)

	return nil
}

func (b *wgpuRendererBackendImpl) AcquireTarget() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// If a previous frame's surface texture is still held, avoid acquiring
	// another one. This prevents wgpu-native validation errors like "Surface
	// image is already acquired" when frames overlap.
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	b.frameSurface = surfaceTexture
	b.frameView = view

	return nil
}

func (b *wgpuRendererBackendImpl) WriteCameraUniform(viewProjection [16]float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cameraBuffer == nil {
		layout, err := b.cameraGroupLayout()
		if err != nil {
			return err
		}

		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Camera Uniform Buffer",
			Size:  64,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}

		bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Camera Bind Group",
			Layout: layout,
			Entries: []wgpu.BindGroupEntry{
				{
					Binding: 0,
					Buffer:  buf,
					Offset:  0,
					Size:    64,
				},
			},
		})
		if err != nil {
			buf.Release()
			return err
		}

		b.cameraBuffer = buf
		b.cameraBindGroup = bindGroup
	}

	b.queue.WriteBuffer(b.cameraBuffer, 0, common.SliceToBytes(viewProjection[:]))
	return nil
}

func (b *wgpuRendererBackendImpl) EnsureTransformCapacity(count int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if count <= b.transformCapacity {
		return nil
	}

	capacity := b.transformCapacity
	if capacity == 0 {
		capacity = 64
	}
	for capacity < count {
		capacity *= 2
	}

	layout, err := b.transformGroupLayout()
	if err != nil {
		return err
	}

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Transform Ring Buffer",
		Size:  uint64(capacity) * transformStride,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}

	// The bind group window is a single mat4; the dynamic offset selects the
	// slot at draw time.
	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Transform Ring Bind Group",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  buf,
				Offset:  0,
				Size:    64,
			},
		},
	})
	if err != nil {
		buf.Release()
		return err
	}

	if b.transformBindGroup != nil {
		b.transformBindGroup.Release()
	}
	if b.transformBuffer != nil {
		b.transformBuffer.Release()
	}
	b.transformBuffer = buf
	b.transformBindGroup = bindGroup
	b.transformCapacity = capacity

	return nil
}

func (b *wgpuRendererBackendImpl) WriteTransforms(matrices [][16]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.transformBuffer == nil || len(matrices) == 0 {
		return
	}

	// One staged upload for the whole ring, each matrix at its slot offset.
	staging := make([]byte, len(matrices)*transformStride)
	for i := range matrices {
		copy(staging[i*transformStride:], common.SliceToBytes(matrices[i][:]))
	}
	b.queue.WriteBuffer(b.transformBuffer, 0, staging)
}

func (b *wgpuRendererBackendImpl) WriteInstances(meshName string, matrices [][16]float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(matrices) == 0 {
		return nil
	}

	ib := b.instanceBuffers[meshName]
	if ib == nil || ib.capacity < len(matrices) {
		capacity := instanceBufferMinCapacity
		if ib != nil {
			capacity = ib.capacity
		}
		for capacity < len(matrices) {
			capacity *= 2
		}

		layout, err := b.instanceGroupLayout()
		if err != nil {
			return err
		}

		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: meshName + " Instance Buffer",
			Size:  uint64(capacity) * 64,
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}

		bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  meshName + " Instance Bind Group",
			Layout: layout,
			Entries: []wgpu.BindGroupEntry{
				{
					Binding: 0,
					Buffer:  buf,
					Offset:  0,
					Size:    wgpu.WholeSize,
				},
			},
		})
		if err != nil {
			buf.Release()
			return err
		}

		if ib != nil {
			ib.release()
		}
		ib = &instanceBuffer{buffer: buf, bindGroup: bindGroup, capacity: capacity}
		b.instanceBuffers[meshName] = ib
	}

	staging := make([]float32, 0, len(matrices)*16)
	for i := range matrices {
		staging = append(staging, matrices[i][:]...)
	}
	b.queue.WriteBuffer(ib.buffer, 0, common.SliceToBytes(staging))

	return nil
}

func (b *wgpuRendererBackendImpl) BeginRenderPass(color wgpu.Color, clearColor, clearDepth bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return
	}

	colorLoadOp := wgpu.LoadOpClear
	if !clearColor {
		colorLoadOp = wgpu.LoadOpLoad
	}

	// When MSAA is enabled, the MSAA texture is the color attachment View and
	// the swapchain view is the ResolveTarget. When MSAA is off, the swapchain
	// view is the color attachment View directly.
	colorAttachment := wgpu.RenderPassColorAttachment{
		View:       b.frameView,
		LoadOp:     colorLoadOp,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: color,
	}
	if b.sampleCount > 1 {
		colorAttachment.View = b.msaaTextureView
		colorAttachment.ResolveTarget = b.frameView
		colorAttachment.StoreOp = wgpu.StoreOpDiscard // Don't store MSAA data, just resolve
	}

	depthLoadOp := wgpu.LoadOpClear
	if !clearDepth {
		depthLoadOp = wgpu.LoadOpLoad
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{colorAttachment},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     depthLoadOp,
			DepthStoreOp:    wgpu.StoreOpDiscard, // Depth not needed after the pass
			DepthClearValue: 1.0,
		},
	})

	b.frameEncoder = encoder
	b.framePass = pass
}

func (b *wgpuRendererBackendImpl) DrawIndexed(p pipeline.Pipeline, meshProvider, material bind_group_provider.BindGroupProvider, transformSlot uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}

	b.framePass.SetPipeline(p.RenderPipeline())
	b.framePass.SetBindGroup(shader.CameraGroup, b.cameraBindGroup, nil)
	b.framePass.SetBindGroup(shader.DrawGroup, b.transformBindGroup, []uint32{transformSlot * transformStride})
	b.framePass.SetBindGroup(shader.MaterialGroup, material.BindGroup(), nil)

	b.framePass.SetVertexBuffer(0, meshProvider.VertexBuffer(), 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(meshProvider.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(uint32(meshProvider.IndexCount()), 1, 0, 0, 0)
}

func (b *wgpuRendererBackendImpl) DrawInstanced(p pipeline.Pipeline, meshProvider, material bind_group_provider.BindGroupProvider, meshName string, instanceCount uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}

	ib := b.instanceBuffers[meshName]
	if ib == nil {
		return
	}

	b.framePass.SetPipeline(p.RenderPipeline())
	b.framePass.SetBindGroup(shader.CameraGroup, b.cameraBindGroup, nil)
	b.framePass.SetBindGroup(shader.DrawGroup, ib.bindGroup, nil)
	b.framePass.SetBindGroup(shader.MaterialGroup, material.BindGroup(), nil)

	b.framePass.SetVertexBuffer(0, meshProvider.VertexBuffer(), 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(meshProvider.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(uint32(meshProvider.IndexCount()), instanceCount, 0, 0, 0)
}

func (b *wgpuRendererBackendImpl) EndRenderPass() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}

	b.framePass.End()
	b.framePass = nil
}

func (b *wgpuRendererBackendImpl) SubmitAndPresent() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder != nil {
		commandBuffer, err := b.frameEncoder.Finish(nil)
		if err == nil {
			b.queue.Submit(commandBuffer)
			commandBuffer.Release()
		}
		b.frameEncoder.Release()
		b.frameEncoder = nil
	}

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	b.frameView.Release()
	b.frameView = nil
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) DiscardTarget() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for name, ib := range b.instanceBuffers {
		ib.release()
		delete(b.instanceBuffers, name)
	}

	if b.transformBindGroup != nil {
		b.transformBindGroup.Release()
		b.transformBindGroup = nil
	}
	if b.transformBuffer != nil {
		b.transformBuffer.Release()
		b.transformBuffer = nil
	}
	b.transformCapacity = 0

	if b.cameraBindGroup != nil {
		b.cameraBindGroup.Release()
		b.cameraBindGroup = nil
	}
	if b.cameraBuffer != nil {
		b.cameraBuffer.Release()
		b.cameraBuffer = nil
	}
}

// cameraGroupLayout lazily creates the bind group layout for the backend's
// camera uniform. It matches shader.CameraGroupLayout, so wgpu treats it as
// compatible with the layouts compiled into the pipelines.
func (b *wgpuRendererBackendImpl) cameraGroupLayout() (*wgpu.BindGroupLayout, error) {
	if b.cameraLayout != nil {
		return b.cameraLayout, nil
	}
	descriptor := shader.CameraGroupLayout()
	layout, err := b.device.CreateBindGroupLayout(&descriptor)
	if err != nil {
		return nil, err
	}
	b.cameraLayout = layout
	return layout, nil
}

func (b *wgpuRendererBackendImpl) transformGroupLayout() (*wgpu.BindGroupLayout, error) {
	if b.transformLayout != nil {
		return b.transformLayout, nil
	}
	descriptor := shader.TransformGroupLayout()
	layout, err := b.device.CreateBindGroupLayout(&descriptor)
	if err != nil {
		return nil, err
	}
	b.transformLayout = layout
	return layout, nil
}

func (b *wgpuRendererBackendImpl) instanceGroupLayout() (*wgpu.BindGroupLayout, error) {
	if b.instanceLayout != nil {
		return b.instanceLayout, nil
	}
	descriptor := shader.InstanceGroupLayout()
	layout, err := b.device.CreateBindGroupLayout(&descriptor)
	if err != nil {
		return nil, err
	}
	b.instanceLayout = layout
	return layout, nil
}
