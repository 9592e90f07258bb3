package abi

/*
#include "bridge.h"
*/
import "C"

import (
	"unsafe"

	"github.com/vrbridge-io/vrbridge/internal/lifecycle"
	"github.com/vrbridge-io/vrbridge/internal/metrics"
	"github.com/vrbridge-io/vrbridge/pkg/openvr"
)

const ifaceProvider = "provider"

// vrbProviderInit bridges IServerTrackedDeviceProvider::Init. The host
// context becomes valid here and stays valid until Cleanup. A repeated Init
// on an already-initialized provider is answered with success without
// re-running driver code; the host protocol leaves repeat-Init undefined and
// failing a healthy session is the worse interpretation.
//
//export vrbProviderInit
func vrbProviderInit(self *C.vrb_object_t, driverContext unsafe.Pointer) (ret C.int32_t) {
	ret = C.int32_t(openvr.InitErrorDriverFailed)
	defer absorb(ifaceProvider, "Init")

	e, st, ok := grab(self, ifaceProvider, "Init")
	if !ok {
		return ret
	}
	defer e.Release()

	e.Lock()
	if !st.machine.Is(lifecycle.StateCreated) {
		e.Unlock()
		shared.logger.Warn("repeat Init on initialized provider; ignoring")
		metrics.ThunkCalls.WithLabelValues(ifaceProvider, "Init", metrics.OutcomeOK).Inc()
		return C.int32_t(openvr.InitErrorNone)
	}
	if driverContext == nil {
		e.Unlock()
		return C.int32_t(openvr.InitErrorInitNotInitialized)
	}

	hostCtx := newHostContext(driverContext)
	st.hostCtx = hostCtx
	provider := st.provider
	e.Unlock()

	// Any failure below, a panic in driver Init included, must leave the
	// provider in created with the context torn down, as if Init never ran.
	initialized := false
	defer func() {
		if initialized {
			return
		}
		e.Lock()
		st.hostCtx = nil
		e.Unlock()
		hostCtx.close()
		destroyAllDevices()
	}()

	// Driver Init runs outside the entry lock: it registers devices, and
	// registration may synchronously re-enter the bridge.
	err := provider.Init(hostCtx)
	if err != nil {
		code := openvr.CodeOf(err)
		if code == openvr.InitErrorNone {
			code = openvr.InitErrorDriverFailed
		}
		metrics.ThunkCalls.WithLabelValues(ifaceProvider, "Init", metrics.OutcomeRejected).Inc()
		shared.logger.Error(err, "provider Init failed", "code", code.String())
		return C.int32_t(code)
	}

	initialized = true
	e.Lock()
	_ = st.machine.Fire(lifecycle.EventInit)
	_ = st.machine.Fire(lifecycle.EventActivate)
	e.Unlock()

	metrics.ThunkCalls.WithLabelValues(ifaceProvider, "Init", metrics.OutcomeOK).Inc()
	shared.logger.Info("provider initialized", "driverHandle", hostCtx.DriverHandle())
	return C.int32_t(openvr.InitErrorNone)
}

//export vrbProviderCleanup
func vrbProviderCleanup(self *C.vrb_object_t) {
	defer absorb(ifaceProvider, "Cleanup")

	e, st, ok := grab(self, ifaceProvider, "Cleanup")
	if !ok {
		return
	}
	defer e.Release()

	e.Lock()
	if st.machine.Is(lifecycle.StateDeactivated) {
		e.Unlock()
		shared.logger.Warn("repeat Cleanup; ignoring")
		return
	}
	hostCtx := st.hostCtx
	st.hostCtx = nil
	provider := st.provider
	_ = st.machine.Fire(lifecycle.EventDeactivate)
	e.Unlock()

	provider.Cleanup()

	// Devices never outlive the provider session. Retire them after driver
	// Cleanup so their Deactivate has already run if the host asked for it.
	destroyAllDevices()

	if hostCtx != nil {
		hostCtx.close()
	}
	metrics.ThunkCalls.WithLabelValues(ifaceProvider, "Cleanup", metrics.OutcomeOK).Inc()
	shared.logger.Info("provider cleaned up")
}

//export vrbProviderGetInterfaceVersions
func vrbProviderGetInterfaceVersions(self *C.vrb_object_t) (ret **C.char) {
	defer absorb(ifaceProvider, "GetInterfaceVersions")

	e, st, ok := grab(self, ifaceProvider, "GetInterfaceVersions")
	if !ok {
		return nil
	}
	defer e.Release()

	metrics.ThunkCalls.WithLabelValues(ifaceProvider, "GetInterfaceVersions", metrics.OutcomeOK).Inc()
	return st.versionsArray
}

//export vrbProviderRunFrame
func vrbProviderRunFrame(self *C.vrb_object_t) {
	defer absorb(ifaceProvider, "RunFrame")

	e, st, ok := grab(self, ifaceProvider, "RunFrame")
	if !ok {
		return
	}
	defer e.Release()

	// RunFrame may push poses through the host proxy; the entry lock is not
	// held around driver code here for the same re-entrancy reason as Init.
	st.provider.RunFrame()
	metrics.ThunkCalls.WithLabelValues(ifaceProvider, "RunFrame", metrics.OutcomeOK).Inc()
}

//export vrbProviderShouldBlockStandbyMode
func vrbProviderShouldBlockStandbyMode(self *C.vrb_object_t) (ret C.bool) {
	defer absorb(ifaceProvider, "ShouldBlockStandbyMode")

	e, st, ok := grab(self, ifaceProvider, "ShouldBlockStandbyMode")
	if !ok {
		return C.bool(false)
	}
	defer e.Release()

	metrics.ThunkCalls.WithLabelValues(ifaceProvider, "ShouldBlockStandbyMode", metrics.OutcomeOK).Inc()
	return C.bool(st.provider.ShouldBlockStandbyMode())
}

//export vrbProviderEnterStandby
func vrbProviderEnterStandby(self *C.vrb_object_t) {
	defer absorb(ifaceProvider, "EnterStandby")

	e, st, ok := grab(self, ifaceProvider, "EnterStandby")
	if !ok {
		return
	}
	defer e.Release()

	e.Lock()
	if err := st.machine.Fire(lifecycle.EventEnterStandby); err != nil {
		e.Unlock()
		shared.logger.Warn("EnterStandby out of order", "state", st.machine.Current())
		return
	}
	e.Unlock()

	st.provider.EnterStandby()
	metrics.ThunkCalls.WithLabelValues(ifaceProvider, "EnterStandby", metrics.OutcomeOK).Inc()
}

//export vrbProviderLeaveStandby
func vrbProviderLeaveStandby(self *C.vrb_object_t) {
	defer absorb(ifaceProvider, "LeaveStandby")

	e, st, ok := grab(self, ifaceProvider, "LeaveStandby")
	if !ok {
		return
	}
	defer e.Release()

	e.Lock()
	if err := st.machine.Fire(lifecycle.EventLeaveStandby); err != nil {
		e.Unlock()
		shared.logger.Warn("LeaveStandby out of order", "state", st.machine.Current())
		return
	}
	e.Unlock()

	st.provider.LeaveStandby()
	metrics.ThunkCalls.WithLabelValues(ifaceProvider, "LeaveStandby", metrics.OutcomeOK).Inc()
}
