package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/substratools/scalewire/scale"
)

// runtimeEntry is the runtime export that returns the latest metadata.
const runtimeEntry = "Metadata_metadata"

// Errors returned by FromRuntimeWASM.
var (
	ErrNoMetadataExport = errors.New("runtime exports no Metadata_metadata function")
	ErrImportedMemory   = errors.New("runtime imports its linear memory, only runtimes exporting memory are supported")
)

// FromRuntimeWASM extracts metadata straight out of a runtime WASM binary,
// without a node. The runtime is instantiated with stub host imports that do
// just enough for the metadata entry point: a real allocator over the
// module's own memory, zeros for everything else.
func FromRuntimeWASM(ctx context.Context, wasmBytes []byte) (*Metadata, error) {
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compile runtime: %w", err)
	}
	if len(compiled.ImportedMemories()) > 0 {
		return nil, ErrImportedMemory
	}

	alloc := &bumpAllocator{}
	if err := instantiateHostStubs(ctx, rt, compiled, alloc); err != nil {
		return nil, err
	}

	modConfig := wazero.NewModuleConfig().WithName("runtime").WithStartFunctions()
	mod, err := rt.InstantiateModule(ctx, compiled, modConfig)
	if err != nil {
		return nil, fmt.Errorf("instantiate runtime: %w", err)
	}

	entry := mod.ExportedFunction(runtimeEntry)
	if entry == nil {
		return nil, ErrNoMetadataExport
	}

	res, err := entry.Call(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", runtimeEntry, err)
	}
	if len(res) != 1 {
		return nil, fmt.Errorf("%s returned %d values, want 1", runtimeEntry, len(res))
	}

	// The result packs a pointer in the low half and a length in the high
	// half, addressing a SCALE byte vector that wraps the blob.
	ptr := uint32(res[0])
	length := uint32(res[0] >> 32)
	out, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("metadata result (ptr %d, len %d) is outside runtime memory", ptr, length)
	}

	c := scale.NewCursor(out)
	n, err := c.ReadCompact()
	if err != nil {
		return nil, fmt.Errorf("metadata envelope: %w", err)
	}
	blob, err := c.ReadBytes(int(n))
	if err != nil {
		return nil, fmt.Errorf("metadata envelope: %w", err)
	}

	// The parsed Metadata keeps windows into its input, and the runtime's
	// memory goes away with the Close above.
	copied := make([]byte, len(blob))
	copy(copied, blob)
	return Parse(copied)
}

// instantiateHostStubs registers a host module for every import module the
// runtime names, allocator functions backed by alloc and all others
// returning zeros.
func instantiateHostStubs(ctx context.Context, rt wazero.Runtime, compiled wazero.CompiledModule, alloc *bumpAllocator) error {
	byModule := make(map[string][]api.FunctionDefinition)
	for _, fn := range compiled.ImportedFunctions() {
		modName, _, ok := fn.Import()
		if !ok {
			continue
		}
		byModule[modName] = append(byModule[modName], fn)
	}
	for modName, fns := range byModule {
		builder := rt.NewHostModuleBuilder(modName)
		for _, fn := range fns {
			_, name, _ := fn.Import()
			builder.NewFunctionBuilder().
				WithGoModuleFunction(hostStub(name, alloc), fn.ParamTypes(), fn.ResultTypes()).
				Export(name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return fmt.Errorf("host module %s: %w", modName, err)
		}
	}
	return nil
}

func hostStub(name string, alloc *bumpAllocator) api.GoModuleFunc {
	switch name {
	case "ext_allocator_malloc_version_1":
		return func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(alloc.malloc(mod, uint32(stack[0])))
		}
	case "ext_allocator_free_version_1":
		return func(ctx context.Context, mod api.Module, stack []uint64) {}
	default:
		return func(ctx context.Context, mod api.Module, stack []uint64) {
			for i := range stack {
				stack[i] = 0
			}
		}
	}
}

// bumpAllocator hands out monotonically increasing regions of the runtime's
// own memory, starting at its __heap_base. Nothing is freed; a metadata
// call allocates little and the whole runtime is dropped right after.
type bumpAllocator struct {
	next uint32
}

func (a *bumpAllocator) malloc(mod api.Module, size uint32) uint32 {
	mem := mod.Memory()
	if a.next == 0 {
		if g := mod.ExportedGlobal("__heap_base"); g != nil {
			a.next = uint32(g.Get())
		} else {
			a.next = mem.Size()
		}
	}
	ptr := (a.next + 7) &^ 7
	end := ptr + size
	if end > mem.Size() {
		pages := (end - mem.Size() + 65535) / 65536
		if _, ok := mem.Grow(pages); !ok {
			return 0
		}
	}
	a.next = end
	return ptr
}
