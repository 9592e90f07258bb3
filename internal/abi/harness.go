package abi

/*
#include <stdlib.h>
#include "bridge.h"
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/vrbridge-io/vrbridge/pkg/openvr"
)

// HostSim drives the bridge the way a real host would, through the
// published dispatch tables rather than through Go calls. It wraps the
// C stub host, which implements the driver-context and server-host
// interfaces with the same vtable-first object shape the production host
// uses. The simulator binary and the boundary tests are its only callers.
type HostSim struct {
	stub *C.vrb_stub_host_t
}

// NewHostSim returns a simulated host. With autoActivate set, device
// registrations are answered with a synchronous Activate before the
// registration call returns, reproducing the host's re-entrancy.
func NewHostSim(driverHandle uint64, autoActivate bool) (*HostSim, error) {
	stub := C.vrb_stub_host_new(C.uint64_t(driverHandle), C.bool(autoActivate), 0)
	if stub == nil {
		return nil, fmt.Errorf("host sim: allocation failed")
	}
	return &HostSim{stub: stub}, nil
}

// NewHostSimAt is NewHostSim with a chosen first device index.
func NewHostSimAt(driverHandle uint64, autoActivate bool, firstIndex uint32) (*HostSim, error) {
	stub := C.vrb_stub_host_new(C.uint64_t(driverHandle), C.bool(autoActivate), C.uint32_t(firstIndex))
	if stub == nil {
		return nil, fmt.Errorf("host sim: allocation failed")
	}
	return &HostSim{stub: stub}, nil
}

// Close frees the C-side stub. The sim must outlive every bridge object
// still holding its context pointer; call provider Cleanup first.
func (s *HostSim) Close() {
	if s.stub != nil {
		C.vrb_stub_host_free(s.stub)
		s.stub = nil
	}
}

// ContextPtr is the IVRDriverContext pointer the provider's Init receives.
func (s *HostSim) ContextPtr() unsafe.Pointer {
	return C.vrb_stub_host_context(s.stub)
}

// SetExiting flips what the stub answers to IsExiting.
func (s *HostSim) SetExiting(v bool) {
	s.stub.exiting = C.bool(v)
}

// DeviceCount is the number of registrations the stub accepted.
func (s *HostSim) DeviceCount() int {
	return int(s.stub.device_count)
}

func (s *HostSim) deviceObj(i int) (*C.vrb_object_t, error) {
	if i < 0 || i >= int(s.stub.device_count) {
		return nil, fmt.Errorf("host sim: no device %d", i)
	}
	return (*C.vrb_object_t)(s.stub.devices[i]), nil
}

// DeviceSerial returns the serial the i-th registration carried.
func (s *HostSim) DeviceSerial(i int) string {
	if i < 0 || i >= int(s.stub.device_count) {
		return ""
	}
	return C.GoString(&s.stub.serials[i][0])
}

// DeviceClass returns the class the i-th registration carried.
func (s *HostSim) DeviceClass(i int) openvr.DeviceClass {
	if i < 0 || i >= int(s.stub.device_count) {
		return openvr.DeviceClassInvalid
	}
	return openvr.DeviceClass(s.stub.device_classes[i])
}

// DeviceIndex returns the index the stub assigned at Activate, or
// TrackedDeviceIndexInvalid when the device was never activated.
func (s *HostSim) DeviceIndex(i int) uint32 {
	if i < 0 || i >= int(s.stub.device_count) {
		return openvr.TrackedDeviceIndexInvalid
	}
	return uint32(s.stub.device_indices[i])
}

// ActivateResult returns the code the i-th device's synchronous Activate
// produced, meaningful only when the sim was built with autoActivate.
func (s *HostSim) ActivateResult(i int) openvr.InitError {
	if i < 0 || i >= int(s.stub.device_count) {
		return openvr.InitErrorUnknown
	}
	return openvr.InitError(s.stub.activate_results[i])
}

// PropWrites is the number of property writes the stub has recorded.
func (s *HostSim) PropWrites() int {
	return int(s.stub.prop_write_count)
}

// PropString returns the newest recorded string write for a property.
func (s *HostSim) PropString(prop openvr.Property) (string, bool) {
	for i := int(s.stub.prop_write_count) - 1; i >= 0; i-- {
		rec := &s.stub.prop_writes[i]
		if openvr.Property(rec.prop) == prop && openvr.PropertyTag(rec.tag) == openvr.PropertyTagString {
			return C.GoString(&rec.str[0]), true
		}
	}
	return "", false
}

// PropNumber returns the newest recorded numeric write for a property.
// Bools come back as 0 or 1.
func (s *HostSim) PropNumber(prop openvr.Property) (float64, bool) {
	for i := int(s.stub.prop_write_count) - 1; i >= 0; i-- {
		rec := &s.stub.prop_writes[i]
		if openvr.Property(rec.prop) == prop && openvr.PropertyTag(rec.tag) != openvr.PropertyTagString {
			return float64(rec.number), true
		}
	}
	return 0, false
}

// PropContainer returns the container the newest write for a property
// targeted.
func (s *HostSim) PropContainer(prop openvr.Property) (openvr.PropertyContainer, bool) {
	for i := int(s.stub.prop_write_count) - 1; i >= 0; i-- {
		rec := &s.stub.prop_writes[i]
		if openvr.Property(rec.prop) == prop {
			return openvr.PropertyContainer(rec.container), true
		}
	}
	return 0, false
}

// PoseUpdates is the number of pose callbacks the stub has absorbed.
func (s *HostSim) PoseUpdates() int {
	return int(s.stub.pose_updates)
}

// LastPose returns the most recent pose callback: the device index it
// targeted and its payload.
func (s *HostSim) LastPose() (uint32, openvr.Pose) {
	return uint32(s.stub.last_pose_index), poseFromC(&s.stub.last_pose)
}

// ActivateDevice activates the i-th registered device through its vtable
// with an explicit index, for sims built without autoActivate.
func (s *HostSim) ActivateDevice(i int, index uint32) (openvr.InitError, error) {
	obj, err := s.deviceObj(i)
	if err != nil {
		return openvr.InitErrorUnknown, err
	}
	code := openvr.InitError(C.vrb_call_device_activate(obj, C.uint32_t(index)))
	if code == openvr.InitErrorNone {
		s.stub.device_indices[i] = C.uint32_t(index)
	}
	return code, nil
}

// DeactivateDevice drives the i-th device's Deactivate slot.
func (s *HostSim) DeactivateDevice(i int) error {
	obj, err := s.deviceObj(i)
	if err != nil {
		return err
	}
	C.vrb_call_device_deactivate(obj)
	return nil
}

// DeviceEnterStandby drives the i-th device's EnterStandby slot.
func (s *HostSim) DeviceEnterStandby(i int) error {
	obj, err := s.deviceObj(i)
	if err != nil {
		return err
	}
	C.vrb_call_device_enter_standby(obj)
	return nil
}

// DeviceGetPose reads the i-th device's pose through its vtable.
func (s *HostSim) DeviceGetPose(i int) (openvr.Pose, error) {
	obj, err := s.deviceObj(i)
	if err != nil {
		return openvr.Pose{}, err
	}
	wire := C.vrb_call_device_get_pose(obj)
	return poseFromC(&wire), nil
}

// DeviceDebugRequest sends a debug string to the i-th device with a
// response buffer of the given size and returns what came back.
func (s *HostSim) DeviceDebugRequest(i int, request string, bufSize uint32) (string, error) {
	obj, err := s.deviceObj(i)
	if err != nil {
		return "", err
	}
	req := C.CString(request)
	defer C.free(unsafe.Pointer(req))
	buf := (*C.char)(C.calloc(C.size_t(bufSize)+1, 1))
	defer C.free(unsafe.Pointer(buf))
	C.vrb_call_device_debug_request(obj, req, buf, C.uint32_t(bufSize))
	return C.GoString(buf), nil
}

// DeviceGetComponent resolves a component on the i-th device through its
// vtable and returns the raw facade pointer, nil when absent.
func (s *HostSim) DeviceGetComponent(i int, name string) (unsafe.Pointer, error) {
	obj, err := s.deviceObj(i)
	if err != nil {
		return nil, err
	}
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return C.vrb_call_device_get_component(obj, cname), nil
}

// DisplayFacade wraps a component pointer returned by DeviceGetComponent
// for display-interface calls.
type DisplayFacade struct {
	obj *C.vrb_object_t
}

// Display wraps a raw component pointer as a display facade. The pointer
// must have come from a lookup for the display interface.
func Display(p unsafe.Pointer) *DisplayFacade {
	if p == nil {
		return nil
	}
	return &DisplayFacade{obj: (*C.vrb_object_t)(p)}
}

// WindowBounds reads the display's window placement through its vtable.
func (d *DisplayFacade) WindowBounds() (x, y int32, w, h uint32) {
	var cx, cy C.int32_t
	var cw, ch C.uint32_t
	C.vrb_call_display_window_bounds(d.obj, &cx, &cy, &cw, &ch)
	return int32(cx), int32(cy), uint32(cw), uint32(ch)
}

// RenderTargetSize reads the recommended per-eye render size.
func (d *DisplayFacade) RenderTargetSize() (w, h uint32) {
	var cw, ch C.uint32_t
	C.vrb_call_display_render_target_size(d.obj, &cw, &ch)
	return uint32(cw), uint32(ch)
}

// ProjectionRaw reads the projection half-tangents for an eye.
func (d *DisplayFacade) ProjectionRaw(eye openvr.Eye) (left, right, top, bottom float32) {
	var l, r, t, b C.float
	C.vrb_call_display_projection_raw(d.obj, C.int32_t(eye), &l, &r, &t, &b)
	return float32(l), float32(r), float32(t), float32(b)
}

// ComputeDistortion maps a UV through the display's distortion slot.
func (d *DisplayFacade) ComputeDistortion(eye openvr.Eye, u, v float32) openvr.DistortionCoordinates {
	dc := C.vrb_call_display_compute_distortion(d.obj, C.int32_t(eye), C.float(u), C.float(v))
	var out openvr.DistortionCoordinates
	out.Red[0], out.Red[1] = float32(dc.red[0]), float32(dc.red[1])
	out.Green[0], out.Green[1] = float32(dc.green[0]), float32(dc.green[1])
	out.Blue[0], out.Blue[1] = float32(dc.blue[0]), float32(dc.blue[1])
	return out
}

// ProviderHandle wraps the facade pointer the entry factory hands out,
// driving every call through the provider's published vtable.
type ProviderHandle struct {
	obj *C.vrb_object_t
}

// Factory resolves an interface name through the exported entry point,
// exactly as a host dlsym-then-call sequence would.
func Factory(name string) (*ProviderHandle, openvr.InitError) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	var code C.int
	p := HmdDriverFactory(cname, &code)
	if p == nil {
		return nil, openvr.InitError(code)
	}
	return &ProviderHandle{obj: (*C.vrb_object_t)(p)}, openvr.InitError(code)
}

// FactoryNilName exercises the entry point with a null interface name, a
// call shape tests cannot produce directly because cgo types are off limits
// in test files.
func FactoryNilName() (unsafe.Pointer, openvr.InitError) {
	var code C.int
	p := HmdDriverFactory(nil, &code)
	return p, openvr.InitError(code)
}

// Raw exposes the facade pointer for identity checks.
func (p *ProviderHandle) Raw() unsafe.Pointer {
	return unsafe.Pointer(p.obj)
}

// Init drives the provider's Init slot with the sim's driver context.
func (p *ProviderHandle) Init(sim *HostSim) openvr.InitError {
	return openvr.InitError(C.vrb_call_provider_init(p.obj, sim.ContextPtr()))
}

// Cleanup drives the provider's Cleanup slot.
func (p *ProviderHandle) Cleanup() {
	C.vrb_call_provider_cleanup(p.obj)
}

// InterfaceVersions reads the NULL-terminated version array back as Go
// strings.
func (p *ProviderHandle) InterfaceVersions() []string {
	arr := C.vrb_call_provider_get_interface_versions(p.obj)
	if arr == nil {
		return nil
	}
	var out []string
	for p := arr; *p != nil; p = (**C.char)(unsafe.Add(unsafe.Pointer(p), unsafe.Sizeof(*p))) {
		out = append(out, C.GoString(*p))
	}
	return out
}

// RunFrame drives one host frame.
func (p *ProviderHandle) RunFrame() {
	C.vrb_call_provider_run_frame(p.obj)
}

// ShouldBlockStandby reads the provider's standby veto.
func (p *ProviderHandle) ShouldBlockStandby() bool {
	return bool(C.vrb_call_provider_should_block_standby(p.obj))
}

// EnterStandby drives the provider's EnterStandby slot.
func (p *ProviderHandle) EnterStandby() {
	C.vrb_call_provider_enter_standby(p.obj)
}

// LeaveStandby drives the provider's LeaveStandby slot.
func (p *ProviderHandle) LeaveStandby() {
	C.vrb_call_provider_leave_standby(p.obj)
}
