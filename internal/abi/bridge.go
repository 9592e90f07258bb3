// Package abi is the boundary between driver code written against
// pkg/openvr and the host runtime's C++ ABI. It synthesizes the dispatch
// tables the host dereferences, exports the thunks that sit in their slots,
// owns the handle registry that keeps cross-boundary objects alive exactly
// as long as the host may call them, and wraps the host's own function
// pointers behind typed Go calls.
package abi

/*
#include <stdlib.h>
#include "bridge.h"
*/
import "C"

import (
	"context"
	"sync"
	"unsafe"

	"github.com/looplab/fsm"

	"github.com/vrbridge-io/vrbridge/internal/lifecycle"
	"github.com/vrbridge-io/vrbridge/internal/metrics"
	"github.com/vrbridge-io/vrbridge/internal/registry"
	"github.com/vrbridge-io/vrbridge/pkg/log"
	"github.com/vrbridge-io/vrbridge/pkg/openvr"
)

// ProviderFactory constructs the driver's provider implementation. Set once
// through RegisterProvider before the host asks for an interface.
type ProviderFactory func() openvr.ServerProvider

// Bridge is the process-wide container behind the exported entry point: the
// handle registry, the lazily created provider, and the registered factory.
// One Bridge exists per process; tests reset it between cases.
type Bridge struct {
	mu sync.Mutex

	reg     *registry.Registry
	factory ProviderFactory

	// providerHandle is zero until the host first asks for a provider
	// interface. The provider is created at most once per process.
	providerHandle registry.Handle

	// graveyard keeps the C facades of retired objects allocated. The host
	// may still dereference a cached facade pointer after Cleanup; it must
	// find a retired handle there, not freed memory. Emptied only by Reset.
	graveyard []*bridgeState

	logger log.Logger
}

var shared = newBridge()

func newBridge() *Bridge {
	return &Bridge{
		reg:    registry.New(),
		logger: log.WithName("abi"),
	}
}

// RegisterProvider installs the factory the entry point uses to build the
// provider on the host's first request. Calling it again replaces the
// factory but never an already-created provider.
func RegisterProvider(factory ProviderFactory) {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	shared.factory = factory
}

// Reset tears down every live object and returns the bridge to its unloaded
// state. Test and simulator use only; a real host never reloads a driver
// without restarting the process.
func Reset() {
	shared.mu.Lock()
	handle := shared.providerHandle
	shared.providerHandle = 0
	shared.factory = nil
	shared.mu.Unlock()

	if handle != 0 {
		if e, err := shared.reg.Peek(handle); err == nil {
			st := e.Value.(*bridgeState)
			if st.hostCtx != nil {
				st.hostCtx.close()
				st.hostCtx = nil
			}
			freeObjectState(st)
		}
		_ = shared.reg.Destroy(handle)
	}

	// Anything left is an orphaned device; release it too.
	var leftovers []registry.Handle
	shared.reg.Range(func(h registry.Handle, _ *registry.Entry) bool {
		leftovers = append(leftovers, h)
		return true
	})
	for _, h := range leftovers {
		if e, err := shared.reg.Peek(h); err == nil {
			freeObjectState(e.Value.(*bridgeState))
		}
		_ = shared.reg.Destroy(h)
	}
	metrics.LiveHandles.Set(0)

	shared.mu.Lock()
	graveyard := shared.graveyard
	shared.graveyard = nil
	shared.reg = registry.New()
	shared.mu.Unlock()

	for _, st := range graveyard {
		freeObjectState(st)
	}
}

// bridgeState is the per-handle record: the owned contract implementation,
// its lifecycle machine, the host-issued device index, and the C facades
// published for it. The registry entry owns exactly one of these.
type bridgeState struct {
	kind string // "provider", "device" or "display"

	provider openvr.ServerProvider
	device   openvr.TrackedDevice
	display  openvr.DisplayComponent

	machine *lifecycle.Machine

	// deviceIndex is assigned at most once, during Activate.
	deviceIndex uint32

	serial string
	class  openvr.DeviceClass

	// facades are the C objects published to the host, one per interface
	// version. Their addresses are immutable for the object's life.
	facades map[string]*C.vrb_object_t

	// versionsArray is the provider's NULL-terminated GetInterfaceVersions
	// block, C-allocated once so the pointer the host caches stays valid.
	versionsArray **C.char
	versionsStrs  []*C.char

	// components caches synthesized component facades by name, making
	// GetComponent idempotent for the object's whole life.
	components map[string]*C.vrb_object_t

	// hostCtx is non-nil on the provider between Init and Cleanup.
	hostCtx *hostContext
}

// newMachine builds a lifecycle machine that debug-logs every transition
// under the object's identity.
func newMachine(kind, serial string) *lifecycle.Machine {
	return lifecycle.NewWithTransition(func(_ context.Context, e *fsm.Event) error {
		shared.logger.Debug("lifecycle transition",
			"kind", kind, "serial", serial, "event", e.Event, "from", e.Src, "to", e.Dst)
		return nil
	})
}

func newObject(vtable unsafe.Pointer, h registry.Handle) *C.vrb_object_t {
	obj := (*C.vrb_object_t)(C.calloc(1, C.size_t(unsafe.Sizeof(C.vrb_object_t{}))))
	obj.vtable = vtable
	obj.handle = C.uint64_t(h)
	return obj
}

// grab resolves a thunk's self pointer back to its entry and state, counting
// the call in flight. Fails closed on nil, unknown and retired handles.
func grab(self *C.vrb_object_t, iface, method string) (*registry.Entry, *bridgeState, bool) {
	if self == nil {
		metrics.ThunkCalls.WithLabelValues(iface, method, metrics.OutcomeInvalidHandle).Inc()
		return nil, nil, false
	}
	h := registry.Handle(self.handle)
	e, err := shared.reg.Acquire(h)
	if err != nil {
		metrics.ThunkCalls.WithLabelValues(iface, method, metrics.OutcomeInvalidHandle).Inc()
		shared.logger.Warn("call on dead handle", "interface", iface, "method", method, "handle", h.String())
		return nil, nil, false
	}
	return e, e.Value.(*bridgeState), true
}

// absorb is deferred first in every thunk. A panic in driver code stops
// here: it is logged, counted, and converted into whatever failure value the
// thunk preset, so nothing ever unwinds through the host's call frame.
func absorb(iface, method string) {
	if r := recover(); r != nil {
		metrics.Faults.WithLabelValues(iface, method).Inc()
		shared.logger.Error(nil, "driver fault absorbed at thunk boundary",
			"interface", iface, "method", method, "panic", r)
	}
}

// freeObjectState releases the C allocations owned by a bridgeState. The
// static vtables are not freed; they live for the process. The components
// cache is only dropped, not freed: each cached pointer is a component
// facade owned by that component's own bridgeState through its facades map,
// and freeing it here too would free it twice.
func freeObjectState(st *bridgeState) {
	for _, obj := range st.facades {
		C.free(unsafe.Pointer(obj))
	}
	st.facades = nil
	// The components map is only a lookup cache: each pointer in it is a
	// component facade owned by that component's own state through its
	// facades map, so it is dropped here, never freed.
	st.components = nil
	for _, s := range st.versionsStrs {
		C.free(unsafe.Pointer(s))
	}
	st.versionsStrs = nil
	if st.versionsArray != nil {
		C.free(unsafe.Pointer(st.versionsArray))
		st.versionsArray = nil
	}
}
