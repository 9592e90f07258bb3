package openvr

// Interface version strings the host requests by exact byte sequence.
// A single wrong character here is a silent load failure, so these are
// spelled out once and referenced everywhere.
const (
	// Provider interface revisions answered by the entry factory. Revisions
	// 004 and 005 share the same slot order; the host picks one at load time.
	InterfaceServerTrackedDeviceProvider004 = "IServerTrackedDeviceProvider_004"
	InterfaceServerTrackedDeviceProvider005 = "IServerTrackedDeviceProvider_005"

	// Device interface revision passed to the host at registration.
	InterfaceTrackedDeviceServerDriver005 = "ITrackedDeviceServerDriver_005"

	// Component interface revisions a device may answer from GetComponent.
	InterfaceDisplayComponent003 = "IVRDisplayComponent_003"
	InterfaceCameraComponent003  = "IVRCameraComponent_003"
	InterfaceDriverDirectMode009 = "IVRDriverDirectModeComponent_009"

	// Host-side interfaces fetched through GetGenericInterface.
	InterfaceServerDriverHost006 = "IVRServerDriverHost_006"
	InterfaceProperties001       = "IVRProperties_001"
	InterfaceDriverInput003      = "IVRDriverInput_003"
)

// SupportedInterfaceVersions is the null-terminated list (terminator added at
// the ABI layer) a provider reports from GetInterfaceVersions by default.
func SupportedInterfaceVersions() []string {
	return []string{
		InterfaceServerTrackedDeviceProvider005,
		InterfaceTrackedDeviceServerDriver005,
	}
}

// Well-known protocol constants.
const (
	// MaxTrackedDeviceCount is the host's hard cap on simultaneously tracked
	// devices.
	MaxTrackedDeviceCount = 64

	// TrackedDeviceIndexHMD is the index the host reserves for the primary HMD.
	TrackedDeviceIndexHMD uint32 = 0

	// TrackedDeviceIndexInvalid marks a device that has not been activated.
	TrackedDeviceIndexInvalid uint32 = 0xFFFFFFFF

	// MaxDebugResponseSize caps the response buffer the host hands to
	// DebugRequest.
	MaxDebugResponseSize = 32768
)
