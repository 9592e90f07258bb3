package abi

/*
#include <stdlib.h>
#include "bridge.h"
*/
import "C"

import (
	"unsafe"

	"github.com/vrbridge-io/vrbridge/internal/metrics"
	"github.com/vrbridge-io/vrbridge/internal/registry"
	"github.com/vrbridge-io/vrbridge/pkg/openvr"
)

// HmdDriverFactory is the single symbol the host resolves after loading the
// shared library. Given an interface name it returns a dispatch-table
// pointer for the provider, or NULL with a defined error code when the name
// or version is not supported.
//
//export HmdDriverFactory
func HmdDriverFactory(interfaceName *C.char, returnCode *C.int) unsafe.Pointer {
	defer absorb("factory", "HmdDriverFactory")

	setCode := func(code openvr.InitError) {
		if returnCode != nil {
			*returnCode = C.int(code)
		}
	}
	// Preset so even an absorbed fault leaves a defined code behind.
	setCode(openvr.InitErrorUnknown)

	if interfaceName == nil {
		setCode(openvr.InitErrorInitInvalidInterface)
		return nil
	}
	name := C.GoString(interfaceName)

	obj, code := providerFacade(name)
	setCode(code)
	if code != openvr.InitErrorNone {
		shared.logger.Info("interface not served", "interface", name, "code", code.String())
		return nil
	}
	shared.logger.Info("interface served", "interface", name)
	return unsafe.Pointer(obj)
}

// providerFacade answers an entry-point request: resolve the name to a
// supported provider revision, create the provider on first use, and hand
// out the per-version facade. Repeat requests for the same version return
// the identical pointer.
func providerFacade(name string) (*C.vrb_object_t, openvr.InitError) {
	var vtable unsafe.Pointer
	switch name {
	case openvr.InterfaceServerTrackedDeviceProvider004:
		vtable = unsafe.Pointer(C.vrb_provider_vtable_v004())
	case openvr.InterfaceServerTrackedDeviceProvider005:
		vtable = unsafe.Pointer(C.vrb_provider_vtable_v005())
	default:
		return nil, openvr.InitErrorInitInterfaceNotFound
	}

	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.providerHandle == 0 {
		if shared.factory == nil {
			return nil, openvr.InitErrorDriverNotLoaded
		}
		impl := shared.factory()
		if impl == nil {
			return nil, openvr.InitErrorDriverFailed
		}
		st := &bridgeState{
			kind:        "provider",
			provider:    impl,
			machine:     newMachine("provider", ""),
			deviceIndex: openvr.TrackedDeviceIndexInvalid,
			facades:     map[string]*C.vrb_object_t{},
		}
		st.buildVersionsArray(impl.InterfaceVersions())
		h, _ := shared.reg.Add(st)
		shared.providerHandle = h
		metrics.LiveHandles.Inc()
	}

	e, err := shared.reg.Peek(shared.providerHandle)
	if err != nil {
		// The provider was destroyed out from under us; treat as unloaded.
		shared.providerHandle = 0
		return nil, openvr.InitErrorDriverNotLoaded
	}
	st := e.Value.(*bridgeState)

	if obj, ok := st.facades[name]; ok {
		return obj, openvr.InitErrorNone
	}
	obj := newObject(vtable, shared.providerHandle)
	st.facades[name] = obj
	return obj, openvr.InitErrorNone
}

// buildVersionsArray lays the provider's interface-version strings out as
// the NULL-terminated C array GetInterfaceVersions hands to the host. Built
// once; the host may cache the pointer for the provider's life.
func (st *bridgeState) buildVersionsArray(versions []string) {
	n := len(versions)
	arr := (**C.char)(C.calloc(C.size_t(n+1), C.size_t(unsafe.Sizeof((*C.char)(nil)))))
	slice := unsafe.Slice(arr, n+1)
	for i, v := range versions {
		s := C.CString(v)
		st.versionsStrs = append(st.versionsStrs, s)
		slice[i] = s
	}
	slice[n] = nil
	st.versionsArray = arr
}

// providerStateLocked resolves the live provider, if any. Callers hold
// shared.mu.
func providerStateLocked() (registry.Handle, *bridgeState, bool) {
	if shared.providerHandle == 0 {
		return 0, nil, false
	}
	e, err := shared.reg.Peek(shared.providerHandle)
	if err != nil {
		return 0, nil, false
	}
	return shared.providerHandle, e.Value.(*bridgeState), true
}
