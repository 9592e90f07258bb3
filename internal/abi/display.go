package abi

/*
#include "bridge.h"
*/
import "C"

import (
	"unsafe"

	"github.com/vrbridge-io/vrbridge/internal/metrics"
	"github.com/vrbridge-io/vrbridge/pkg/openvr"
)

const ifaceDisplay = "display"

// newDisplayFacade publishes an IVRDisplayComponent object for a display
// implementation. The facade gets its own registry handle; the host treats
// components as first-class objects and may call them long after the lookup.
func newDisplayFacade(disp openvr.DisplayComponent) *C.vrb_object_t {
	st := &bridgeState{
		kind:    ifaceDisplay,
		display: disp,
		machine: newMachine(ifaceDisplay, ""),
	}
	h, _ := shared.reg.Add(st)
	obj := newObject(unsafe.Pointer(C.vrb_display_vtable_v003()), h)
	st.facades = map[string]*C.vrb_object_t{openvr.InterfaceDisplayComponent003: obj}
	metrics.LiveHandles.Inc()
	return obj
}

//export vrbDisplayGetWindowBounds
func vrbDisplayGetWindowBounds(self *C.vrb_object_t, x, y *C.int32_t, width, height *C.uint32_t) {
	defer absorb(ifaceDisplay, "GetWindowBounds")

	if x != nil {
		*x = 0
	}
	if y != nil {
		*y = 0
	}
	if width != nil {
		*width = 0
	}
	if height != nil {
		*height = 0
	}

	e, st, ok := grab(self, ifaceDisplay, "GetWindowBounds")
	if !ok {
		return
	}
	defer e.Release()

	e.Lock()
	defer e.Unlock()
	bx, by, bw, bh := st.display.WindowBounds()
	if x != nil {
		*x = C.int32_t(bx)
	}
	if y != nil {
		*y = C.int32_t(by)
	}
	if width != nil {
		*width = C.uint32_t(bw)
	}
	if height != nil {
		*height = C.uint32_t(bh)
	}
}

//export vrbDisplayIsDisplayOnDesktop
func vrbDisplayIsDisplayOnDesktop(self *C.vrb_object_t) (ret C.bool) {
	defer absorb(ifaceDisplay, "IsDisplayOnDesktop")

	e, st, ok := grab(self, ifaceDisplay, "IsDisplayOnDesktop")
	if !ok {
		return C.bool(false)
	}
	defer e.Release()

	e.Lock()
	defer e.Unlock()
	return C.bool(st.display.IsDisplayOnDesktop())
}

//export vrbDisplayIsDisplayRealDisplay
func vrbDisplayIsDisplayRealDisplay(self *C.vrb_object_t) (ret C.bool) {
	defer absorb(ifaceDisplay, "IsDisplayRealDisplay")

	e, st, ok := grab(self, ifaceDisplay, "IsDisplayRealDisplay")
	if !ok {
		return C.bool(false)
	}
	defer e.Release()

	e.Lock()
	defer e.Unlock()
	return C.bool(st.display.IsDisplayRealDisplay())
}

//export vrbDisplayGetRecommendedRenderTargetSize
func vrbDisplayGetRecommendedRenderTargetSize(self *C.vrb_object_t, width, height *C.uint32_t) {
	defer absorb(ifaceDisplay, "GetRecommendedRenderTargetSize")

	if width != nil {
		*width = 0
	}
	if height != nil {
		*height = 0
	}

	e, st, ok := grab(self, ifaceDisplay, "GetRecommendedRenderTargetSize")
	if !ok {
		return
	}
	defer e.Release()

	e.Lock()
	defer e.Unlock()
	w, h := st.display.RecommendedRenderTargetSize()
	if width != nil {
		*width = C.uint32_t(w)
	}
	if height != nil {
		*height = C.uint32_t(h)
	}
}

//export vrbDisplayGetEyeOutputViewport
func vrbDisplayGetEyeOutputViewport(self *C.vrb_object_t, eye C.int32_t, x, y, width, height *C.uint32_t) {
	defer absorb(ifaceDisplay, "GetEyeOutputViewport")

	e, st, ok := grab(self, ifaceDisplay, "GetEyeOutputViewport")
	if !ok {
		return
	}
	defer e.Release()

	e.Lock()
	defer e.Unlock()
	vx, vy, vw, vh := st.display.EyeOutputViewport(openvr.Eye(eye))
	if x != nil {
		*x = C.uint32_t(vx)
	}
	if y != nil {
		*y = C.uint32_t(vy)
	}
	if width != nil {
		*width = C.uint32_t(vw)
	}
	if height != nil {
		*height = C.uint32_t(vh)
	}
}

//export vrbDisplayGetProjectionRaw
func vrbDisplayGetProjectionRaw(self *C.vrb_object_t, eye C.int32_t, left, right, top, bottom *C.float) {
	defer absorb(ifaceDisplay, "GetProjectionRaw")

	e, st, ok := grab(self, ifaceDisplay, "GetProjectionRaw")
	if !ok {
		return
	}
	defer e.Release()

	e.Lock()
	defer e.Unlock()
	l, r, t, b := st.display.ProjectionRaw(openvr.Eye(eye))
	if left != nil {
		*left = C.float(l)
	}
	if right != nil {
		*right = C.float(r)
	}
	if top != nil {
		*top = C.float(t)
	}
	if bottom != nil {
		*bottom = C.float(b)
	}
}

//export vrbDisplayComputeDistortion
func vrbDisplayComputeDistortion(self *C.vrb_object_t, eye C.int32_t, u, v C.float) (ret C.vrb_distortion_coordinates_t) {
	// Identity distortion is the failure value: the compositor renders
	// undistorted rather than garbage.
	ret.red[0], ret.red[1] = u, v
	ret.green[0], ret.green[1] = u, v
	ret.blue[0], ret.blue[1] = u, v
	defer absorb(ifaceDisplay, "ComputeDistortion")

	e, st, ok := grab(self, ifaceDisplay, "ComputeDistortion")
	if !ok {
		return ret
	}
	defer e.Release()

	var dc openvr.DistortionCoordinates
	func() {
		e.Lock()
		defer e.Unlock()
		dc = st.display.ComputeDistortion(openvr.Eye(eye), float32(u), float32(v))
	}()

	ret.red[0], ret.red[1] = C.float(dc.Red[0]), C.float(dc.Red[1])
	ret.green[0], ret.green[1] = C.float(dc.Green[0]), C.float(dc.Green[1])
	ret.blue[0], ret.blue[1] = C.float(dc.Blue[0]), C.float(dc.Blue[1])
	return ret
}
