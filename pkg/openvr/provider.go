package openvr

import "unsafe"

// ServerProvider is the driver-wide contract. The host creates exactly one
// through the entry factory and drives it for the life of the session.
//
// All methods are invoked on host threads. RunFrame arrives at frame rate on
// the host's update thread and must return promptly.
type ServerProvider interface {
	// Init is called once with the host context. Devices are typically
	// registered here through HostContext.RegisterTrackedDevice. Returning an
	// error (use an InitError for a specific host code) makes the host discard
	// the provider without calling Cleanup.
	Init(ctx HostContext) error

	// Cleanup is called before the module is unloaded. The HostContext passed
	// to Init is invalid once Cleanup returns.
	Cleanup()

	// InterfaceVersions reports the interface revisions this driver was built
	// against. Most implementations return SupportedInterfaceVersions().
	InterfaceVersions() []string

	// RunFrame is called every host frame.
	RunFrame()

	// ShouldBlockStandbyMode reports whether the host may enter standby.
	ShouldBlockStandbyMode() bool

	// EnterStandby and LeaveStandby bracket the host's standby periods.
	EnterStandby()
	LeaveStandby()
}

// HostContext is the provider's window into the host, valid strictly between
// Init and Cleanup. Calls outside that window fail with
// InitErrorInitNotInitialized.
//
// RegisterTrackedDevice is synchronous and may re-enter the driver: the host
// is allowed to call the new device's Activate before registration returns.
// Do not hold locks the device's own methods need while registering.
type HostContext interface {
	// GetGenericInterface fetches a raw host interface by its exact
	// name-and-version string (for example InterfaceProperties001). The
	// returned pointer is a host-owned dispatch table; callers that need it
	// are expected to know its shape.
	GetGenericInterface(nameAndVersion string) (unsafe.Pointer, error)

	// DriverHandle returns the host-issued numeric handle for this driver.
	DriverHandle() uint64

	// RegisterTrackedDevice announces a device to the host. The bridge
	// synthesizes the device's dispatch table; the host decides whether and
	// when to Activate it. Returns false when the host rejected the device.
	RegisterTrackedDevice(device TrackedDevice) (bool, error)

	// UpdatePose pushes a new pose for an activated device index. Cheap; safe
	// to call every frame.
	UpdatePose(deviceIndex uint32, pose Pose) error

	// Properties returns a typed writer over the host's properties
	// interface. Fails when the host does not serve InterfaceProperties001.
	Properties() (PropertyWriter, error)

	// IsExiting reports whether the host session is shutting down. Providers
	// can poll this from RunFrame to wind work down early.
	IsExiting() bool
}
