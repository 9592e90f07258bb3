package abi

/*
#include "bridge.h"
*/
import "C"

import (
	"time"
	"unsafe"

	"github.com/vrbridge-io/vrbridge/internal/lifecycle"
	"github.com/vrbridge-io/vrbridge/internal/metrics"
	"github.com/vrbridge-io/vrbridge/internal/registry"
	"github.com/vrbridge-io/vrbridge/pkg/openvr"
)

const ifaceDevice = "device"

// newDeviceState registers a tracked device in the registry and publishes
// its ITrackedDeviceServerDriver facade. The facade pointer stays stable for
// the device's whole life.
func newDeviceState(dev openvr.TrackedDevice) (*bridgeState, *C.vrb_object_t) {
	st := &bridgeState{
		kind:        ifaceDevice,
		device:      dev,
		machine:     newMachine(ifaceDevice, dev.SerialNumber()),
		deviceIndex: openvr.TrackedDeviceIndexInvalid,
		serial:      dev.SerialNumber(),
		class:       dev.DeviceClass(),
		facades:     make(map[string]*C.vrb_object_t),
		components:  make(map[string]*C.vrb_object_t),
	}
	h, _ := shared.reg.Add(st)
	obj := newObject(unsafe.Pointer(C.vrb_device_vtable_v005()), h)
	st.facades[openvr.InterfaceTrackedDeviceServerDriver005] = obj
	metrics.LiveHandles.Inc()
	return st, obj
}

// destroyAllDevices retires every non-provider handle, draining in-flight
// calls on each. The C facades move to the graveyard instead of being freed:
// the host may still call through cached pointers, and those calls must land
// on a retired handle.
func destroyAllDevices() {
	var doomed []registry.Handle
	shared.reg.Range(func(h registry.Handle, e *registry.Entry) bool {
		if st, ok := e.Value.(*bridgeState); ok && st.kind != ifaceProvider {
			doomed = append(doomed, h)
		}
		return true
	})
	for _, h := range doomed {
		e, err := shared.reg.Peek(h)
		if err != nil {
			continue
		}
		st := e.Value.(*bridgeState)
		if err := shared.reg.Destroy(h); err != nil {
			continue
		}
		shared.mu.Lock()
		shared.graveyard = append(shared.graveyard, st)
		shared.mu.Unlock()
		metrics.LiveHandles.Dec()
	}
}

//export vrbDeviceActivate
func vrbDeviceActivate(self *C.vrb_object_t, deviceIndex C.uint32_t) (ret C.int32_t) {
	ret = C.int32_t(openvr.InitErrorDriverFailed)
	defer absorb(ifaceDevice, "Activate")

	e, st, ok := grab(self, ifaceDevice, "Activate")
	if !ok {
		return ret
	}
	defer e.Release()

	e.Lock()
	defer e.Unlock()

	if !st.machine.Can(lifecycle.EventActivate) {
		// The host never activates twice; if it does, the index it gave us
		// the first time stands.
		shared.logger.Warn("repeat Activate", "serial", st.serial, "index", st.deviceIndex)
		metrics.ThunkCalls.WithLabelValues(ifaceDevice, "Activate", metrics.OutcomeRejected).Inc()
		return C.int32_t(openvr.InitErrorNone)
	}

	st.deviceIndex = uint32(deviceIndex)
	if err := st.device.Activate(uint32(deviceIndex)); err != nil {
		st.deviceIndex = openvr.TrackedDeviceIndexInvalid
		code := openvr.CodeOf(err)
		if code == openvr.InitErrorNone {
			code = openvr.InitErrorDriverFailed
		}
		metrics.ThunkCalls.WithLabelValues(ifaceDevice, "Activate", metrics.OutcomeRejected).Inc()
		shared.logger.Error(err, "device Activate failed", "serial", st.serial, "code", code.String())
		return C.int32_t(code)
	}

	_ = st.machine.Fire(lifecycle.EventActivate)
	metrics.ThunkCalls.WithLabelValues(ifaceDevice, "Activate", metrics.OutcomeOK).Inc()
	shared.logger.Info("device activated", "serial", st.serial, "index", st.deviceIndex)
	return C.int32_t(openvr.InitErrorNone)
}

//export vrbDeviceDeactivate
func vrbDeviceDeactivate(self *C.vrb_object_t) {
	defer absorb(ifaceDevice, "Deactivate")

	e, st, ok := grab(self, ifaceDevice, "Deactivate")
	if !ok {
		return
	}
	defer e.Release()

	e.Lock()
	defer e.Unlock()

	if err := st.machine.Fire(lifecycle.EventDeactivate); err != nil {
		shared.logger.Warn("Deactivate out of order", "serial", st.serial, "state", st.machine.Current())
		return
	}
	st.device.Deactivate()
	metrics.ThunkCalls.WithLabelValues(ifaceDevice, "Deactivate", metrics.OutcomeOK).Inc()
	shared.logger.Info("device deactivated", "serial", st.serial)
}

//export vrbDeviceEnterStandby
func vrbDeviceEnterStandby(self *C.vrb_object_t) {
	defer absorb(ifaceDevice, "EnterStandby")

	e, st, ok := grab(self, ifaceDevice, "EnterStandby")
	if !ok {
		return
	}
	defer e.Release()

	e.Lock()
	defer e.Unlock()

	if err := st.machine.Fire(lifecycle.EventEnterStandby); err != nil {
		return
	}
	st.device.EnterStandby()
	metrics.ThunkCalls.WithLabelValues(ifaceDevice, "EnterStandby", metrics.OutcomeOK).Inc()
}

//export vrbDeviceGetComponent
func vrbDeviceGetComponent(self *C.vrb_object_t, name *C.char) (ret unsafe.Pointer) {
	defer absorb(ifaceDevice, "GetComponent")

	e, st, ok := grab(self, ifaceDevice, "GetComponent")
	if !ok {
		return nil
	}
	defer e.Release()

	if name == nil {
		return nil
	}
	goName := C.GoString(name)

	e.Lock()
	defer e.Unlock()

	// A name already answered gets the same pointer back, present or not.
	if obj, seen := st.components[goName]; seen {
		if obj == nil {
			return nil
		}
		metrics.ThunkCalls.WithLabelValues(ifaceDevice, "GetComponent", metrics.OutcomeOK).Inc()
		return unsafe.Pointer(obj)
	}

	comp, have := st.device.GetComponent(goName)
	if !have || comp == nil {
		st.components[goName] = nil
		return nil
	}

	var obj *C.vrb_object_t
	switch c := comp.(type) {
	case openvr.DisplayComponent:
		obj = newDisplayFacade(c)
	default:
		// A component kind we have no dispatch table for is the same as no
		// component at all; handing the host a half-built object is worse.
		shared.logger.Warn("unsupported component kind", "serial", st.serial,
			"component", goName, "kind", string(comp.ComponentKind()))
		st.components[goName] = nil
		return nil
	}

	st.components[goName] = obj
	metrics.ThunkCalls.WithLabelValues(ifaceDevice, "GetComponent", metrics.OutcomeOK).Inc()
	return unsafe.Pointer(obj)
}

//export vrbDeviceDebugRequest
func vrbDeviceDebugRequest(self *C.vrb_object_t, request *C.char, responseBuffer *C.char, responseBufferSize C.uint32_t) {
	defer absorb(ifaceDevice, "DebugRequest")

	if responseBuffer != nil && responseBufferSize > 0 {
		*responseBuffer = 0
	}

	e, st, ok := grab(self, ifaceDevice, "DebugRequest")
	if !ok {
		return
	}
	defer e.Release()

	req := ""
	if request != nil {
		req = C.GoString(request)
	}

	var resp string
	func() {
		e.Lock()
		defer e.Unlock()
		resp = st.device.DebugRequest(req)
	}()

	if responseBuffer == nil || responseBufferSize == 0 {
		return
	}
	limit := int(responseBufferSize)
	if limit > openvr.MaxDebugResponseSize {
		limit = openvr.MaxDebugResponseSize
	}
	if len(resp) >= limit {
		resp = resp[:limit-1]
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(responseBuffer)), len(resp)+1)
	copy(buf, resp)
	buf[len(resp)] = 0
	metrics.ThunkCalls.WithLabelValues(ifaceDevice, "DebugRequest", metrics.OutcomeOK).Inc()
}

//export vrbDeviceGetPose
func vrbDeviceGetPose(self *C.vrb_object_t) (ret C.vrb_driver_pose_t) {
	poseToC(openvr.DisconnectedPose(), &ret)
	defer absorb(ifaceDevice, "GetPose")

	e, st, ok := grab(self, ifaceDevice, "GetPose")
	if !ok {
		return ret
	}
	defer e.Release()

	var pose openvr.Pose
	func() {
		e.Lock()
		defer e.Unlock()
		start := time.Now()
		pose = st.device.GetPose()
		metrics.PoseLatency.Observe(time.Since(start).Seconds())
	}()

	poseToC(pose.Sanitized(), &ret)
	return ret
}
