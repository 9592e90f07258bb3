package abi

/*
#include <stdlib.h>
#include "bridge.h"
*/
import "C"

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"unsafe"

	"github.com/vrbridge-io/vrbridge/internal/metrics"
	"github.com/vrbridge-io/vrbridge/internal/registry"
	"github.com/vrbridge-io/vrbridge/pkg/openvr"
)

// hostContext proxies the host-owned driver context handed to provider Init.
// It holds raw C pointers only, never Go pointers, and every outbound call
// goes through a C call-through because Go cannot invoke a C function
// pointer directly.
//
// A hostContext is valid between Init and Cleanup. close makes every later
// call fail with InitErrorInitNotInitialized instead of touching pointers
// the host has taken back.
type hostContext struct {
	raw        unsafe.Pointer // IVRDriverContext
	serverHost unsafe.Pointer // IVRServerDriverHost, nil if the host lacks it
	handle     uint64
	closed     atomic.Bool
}

var _ openvr.HostContext = (*hostContext)(nil)

func newHostContext(driverContext unsafe.Pointer) *hostContext {
	hc := &hostContext{
		raw:    driverContext,
		handle: uint64(C.vrb_host_get_driver_handle(driverContext)),
	}

	name := C.CString(openvr.InterfaceServerDriverHost006)
	defer C.free(unsafe.Pointer(name))
	var cerr C.int32_t
	hc.serverHost = C.vrb_host_get_generic_interface(driverContext, name, &cerr)
	if hc.serverHost == nil {
		shared.logger.Warn("host lacks server driver host interface",
			"interface", openvr.InterfaceServerDriverHost006,
			"code", openvr.InitError(cerr).String())
	}
	return hc
}

func (hc *hostContext) close() {
	hc.closed.Store(true)
}

// GetGenericInterface resolves a host-side interface by its versioned name.
// The returned pointer belongs to the host and is only usable through
// further call-throughs.
func (hc *hostContext) GetGenericInterface(nameAndVersion string) (unsafe.Pointer, error) {
	if hc.closed.Load() {
		return nil, openvr.InitErrorInitNotInitialized
	}
	name := C.CString(nameAndVersion)
	defer C.free(unsafe.Pointer(name))

	var cerr C.int32_t
	p := C.vrb_host_get_generic_interface(hc.raw, name, &cerr)
	if p == nil {
		metrics.HostCallbacks.WithLabelValues("GetGenericInterface", "error").Inc()
		code := openvr.InitError(cerr)
		if code == openvr.InitErrorNone {
			code = openvr.InitErrorInitInterfaceNotFound
		}
		return nil, fmt.Errorf("interface %q: %w", nameAndVersion, code)
	}
	metrics.HostCallbacks.WithLabelValues("GetGenericInterface", "ok").Inc()
	return p, nil
}

func (hc *hostContext) DriverHandle() uint64 {
	return hc.handle
}

// RegisterTrackedDevice publishes a device object to the host. The host may
// synchronously call the new device, Activate included, before this returns;
// no bridge lock is held across the outbound call.
//
// ok=false with a nil error means the host declined the registration, a
// duplicate serial most commonly. The device's handle is retired again in
// that case.
func (hc *hostContext) RegisterTrackedDevice(dev openvr.TrackedDevice) (bool, error) {
	if dev == nil {
		return false, fmt.Errorf("register tracked device: nil device")
	}
	if hc.closed.Load() {
		return false, openvr.InitErrorInitNotInitialized
	}
	if hc.serverHost == nil {
		return false, fmt.Errorf("register tracked device: %w", openvr.InitErrorInitInterfaceNotFound)
	}

	st, obj := newDeviceState(dev)

	serial := C.CString(st.serial)
	defer C.free(unsafe.Pointer(serial))

	accepted := bool(C.vrb_host_tracked_device_added(hc.serverHost, serial,
		C.int32_t(st.class), unsafe.Pointer(obj)))
	metrics.HostCallbacks.WithLabelValues("TrackedDeviceAdded", "ok").Inc()
	metrics.RegisteredDevices.WithLabelValues(st.class.String(), strconv.FormatBool(accepted)).Inc()

	if !accepted {
		h := registry.Handle(obj.handle)
		if err := shared.reg.Destroy(h); err == nil {
			freeObjectState(st)
			metrics.LiveHandles.Dec()
		}
		shared.logger.Warn("host declined device registration", "serial", st.serial)
		return false, nil
	}

	shared.logger.Info("device registered", "serial", st.serial, "class", st.class.String())
	return true, nil
}

// UpdatePose pushes a pose sample for an activated device. Sanitization
// happens here so driver code cannot hand the host structurally invalid
// data; no allocation beyond the stack-local wire struct.
func (hc *hostContext) UpdatePose(deviceIndex uint32, pose openvr.Pose) error {
	if hc.closed.Load() {
		return openvr.InitErrorInitNotInitialized
	}
	if hc.serverHost == nil {
		return fmt.Errorf("update pose: %w", openvr.InitErrorInitInterfaceNotFound)
	}
	if deviceIndex == openvr.TrackedDeviceIndexInvalid {
		return fmt.Errorf("update pose: invalid device index")
	}

	var wire C.vrb_driver_pose_t
	poseToC(pose.Sanitized(), &wire)
	C.vrb_host_tracked_device_pose_updated(hc.serverHost, C.uint32_t(deviceIndex), &wire)
	metrics.HostCallbacks.WithLabelValues("TrackedDevicePoseUpdated", "ok").Inc()
	return nil
}

// Properties returns a typed writer over the host's IVRProperties_001
// interface, or an error when the host does not serve it.
func (hc *hostContext) Properties() (openvr.PropertyWriter, error) {
	p, err := hc.GetGenericInterface(openvr.InterfaceProperties001)
	if err != nil {
		return nil, err
	}
	return &propertyWriter{hc: hc, raw: p}, nil
}

// propertyWriter marshals typed batches into the host's PropertyWrite_t
// wire layout. Valid for the same Init-to-Cleanup window as its context.
type propertyWriter struct {
	hc  *hostContext
	raw unsafe.Pointer
}

func (w *propertyWriter) ContainerFor(deviceIndex uint32) (openvr.PropertyContainer, error) {
	if w.hc.closed.Load() {
		return 0, openvr.InitErrorInitNotInitialized
	}
	c := uint64(C.vrb_props_container_for_device(w.raw, C.uint32_t(deviceIndex)))
	if c == 0 {
		metrics.HostCallbacks.WithLabelValues("TrackedDeviceToPropertyContainer", "error").Inc()
		return 0, fmt.Errorf("property container for device %d: %w",
			deviceIndex, openvr.PropertyErrorInvalidDevice)
	}
	metrics.HostCallbacks.WithLabelValues("TrackedDeviceToPropertyContainer", "ok").Inc()
	return openvr.PropertyContainer(c), nil
}

func (w *propertyWriter) WriteBatch(c openvr.PropertyContainer, batch *openvr.PropertyBatch) error {
	if w.hc.closed.Load() {
		return openvr.InitErrorInitNotInitialized
	}
	writes := batch.Writes()
	if len(writes) == 0 {
		return nil
	}

	arr := (*C.vrb_property_write_t)(C.calloc(C.size_t(len(writes)),
		C.size_t(unsafe.Sizeof(C.vrb_property_write_t{}))))
	defer C.free(unsafe.Pointer(arr))
	wire := unsafe.Slice(arr, len(writes))

	// Value buffers must live through the batch call.
	buffers := make([]unsafe.Pointer, 0, len(writes))
	defer func() {
		for _, b := range buffers {
			C.free(b)
		}
	}()

	for i, pw := range writes {
		wire[i].prop = C.int32_t(pw.Prop)
		wire[i].tag = C.uint32_t(pw.Tag)

		var buf unsafe.Pointer
		var size C.uint32_t
		switch pw.Tag {
		case openvr.PropertyTagBool:
			buf = C.calloc(1, 1)
			if pw.Bool {
				*(*C.char)(buf) = 1
			}
			size = 1
		case openvr.PropertyTagFloat:
			buf = C.calloc(1, 4)
			*(*C.float)(buf) = C.float(pw.Float)
			size = 4
		case openvr.PropertyTagInt32:
			buf = C.calloc(1, 4)
			*(*C.int32_t)(buf) = C.int32_t(pw.Int32)
			size = 4
		case openvr.PropertyTagUint64:
			buf = C.calloc(1, 8)
			*(*C.uint64_t)(buf) = C.uint64_t(pw.Uint64)
			size = 8
		case openvr.PropertyTagString:
			buf = unsafe.Pointer(C.CString(pw.String))
			size = C.uint32_t(len(pw.String) + 1)
		default:
			return fmt.Errorf("write property %d: unsupported tag %d", pw.Prop, pw.Tag)
		}
		buffers = append(buffers, buf)
		wire[i].buffer = buf
		wire[i].buffer_size = size
	}

	code := openvr.PropertyError(C.vrb_props_write_batch(w.raw, C.uint64_t(c),
		arr, C.uint32_t(len(writes))))
	if code != openvr.PropertyErrorSuccess {
		metrics.HostCallbacks.WithLabelValues("WritePropertyBatch", "error").Inc()
		return fmt.Errorf("write property batch of %d: %w", len(writes), code)
	}
	metrics.HostCallbacks.WithLabelValues("WritePropertyBatch", "ok").Inc()
	return nil
}

// IsExiting asks the host whether the session is shutting down. False once
// the context is closed or when the host interface is missing.
func (hc *hostContext) IsExiting() bool {
	if hc.closed.Load() || hc.serverHost == nil {
		return false
	}
	return bool(C.vrb_host_is_exiting(hc.serverHost))
}
