package openvr

// TrackedDevice is the per-hardware contract. Devices are created by driver
// logic and registered through HostContext.RegisterTrackedDevice; the host
// then owns the call schedule.
//
// GetPose is the hot path: it can arrive at hundreds of Hz on a dedicated
// host thread, concurrently with lifecycle calls on another. Implementations
// should not allocate or block in it.
type TrackedDevice interface {
	// SerialNumber is the stable identity passed to the host at registration.
	SerialNumber() string

	// DeviceClass classifies the device at registration time.
	DeviceClass() DeviceClass

	// Activate is called when the host assigns a device index. The index is
	// assigned at most once and is the device's external identity from then
	// on. Returning an error keeps the device out of the host's active set.
	Activate(deviceIndex uint32) error

	// Deactivate is called when the device is removed or the session ends.
	Deactivate()

	// EnterStandby asks the device to drop into a low-power state.
	EnterStandby()

	// GetComponent returns the named component implementation, or ok=false
	// for components this device does not carry. Absence of an optional
	// component is normal, not an error.
	GetComponent(name string) (Component, bool)

	// DebugRequest answers a host debug string with a response string. The
	// bridge truncates the response to the host's buffer.
	DebugRequest(request string) string

	// GetPose returns the device's current spatial state.
	GetPose() Pose
}

// Component is the marker for component contracts handed out by
// GetComponent. The concrete types the bridge can synthesize tables for are
// the ones below; anything else resolves to "component not supported".
type Component interface {
	ComponentKind() ComponentKind
}

// DistortionCoordinates is the per-channel UV output of lens distortion
// correction, matching the host's DistortionCoordinates_t (float precision).
type DistortionCoordinates struct {
	Red   [2]float32
	Green [2]float32
	Blue  [2]float32
}

// DisplayComponent is implemented by HMD devices to describe their display
// geometry to the host.
type DisplayComponent interface {
	Component

	// WindowBounds is the display window's desktop position and size.
	WindowBounds() (x, y int32, width, height uint32)

	// IsDisplayOnDesktop reports whether the display appears as a desktop
	// monitor (extended mode).
	IsDisplayOnDesktop() bool

	// IsDisplayRealDisplay distinguishes physical displays from virtual ones.
	IsDisplayRealDisplay() bool

	// RecommendedRenderTargetSize is the suggested per-eye render resolution.
	RecommendedRenderTargetSize() (width, height uint32)

	// EyeOutputViewport is the given eye's viewport inside the window.
	EyeOutputViewport(eye Eye) (x, y, width, height uint32)

	// ProjectionRaw returns the raw projection half-tangents for the eye.
	ProjectionRaw(eye Eye) (left, right, top, bottom float32)

	// ComputeDistortion maps a normalized viewport UV to the distorted UVs
	// per color channel.
	ComputeDistortion(eye Eye, u, v float32) DistortionCoordinates
}

// CameraComponent and DirectModeComponent are named in the closed component
// set but carry no synthesized table in this driver generation: the host
// never requests them from the device classes this bridge registers. They
// exist so driver code can classify such components; GetComponent lookups
// for them resolve to null on the host side.
type CameraComponent interface {
	Component
}

type DirectModeComponent interface {
	Component
}
