package openvr

// DeviceClass classifies a tracked device in both call directions. The values
// are the host's ETrackedDeviceClass numbers and must not be renumbered.
type DeviceClass int32

const (
	DeviceClassInvalid           DeviceClass = 0
	DeviceClassHMD               DeviceClass = 1
	DeviceClassController        DeviceClass = 2
	DeviceClassGenericTracker    DeviceClass = 3
	DeviceClassTrackingReference DeviceClass = 4
	DeviceClassDisplayRedirect   DeviceClass = 5
)

func (c DeviceClass) String() string {
	switch c {
	case DeviceClassHMD:
		return "HMD"
	case DeviceClassController:
		return "Controller"
	case DeviceClassGenericTracker:
		return "GenericTracker"
	case DeviceClassTrackingReference:
		return "TrackingReference"
	case DeviceClassDisplayRedirect:
		return "DisplayRedirect"
	default:
		return "Invalid"
	}
}

// ComponentKind names the closed set of component interfaces a device can
// hand out from GetComponent.
type ComponentKind string

const (
	ComponentKindDisplay    ComponentKind = InterfaceDisplayComponent003
	ComponentKindCamera     ComponentKind = InterfaceCameraComponent003
	ComponentKindDirectMode ComponentKind = InterfaceDriverDirectMode009
)

// TrackingResult reports the tracking state carried inside a Pose. The values
// are the host's ETrackingResult numbers.
type TrackingResult int32

const (
	TrackingResultUninitialized         TrackingResult = 1
	TrackingResultCalibratingInProgress TrackingResult = 100
	TrackingResultCalibratingOutOfRange TrackingResult = 101
	TrackingResultRunningOK             TrackingResult = 200
	TrackingResultRunningOutOfRange     TrackingResult = 201
	TrackingResultFallbackRotationOnly  TrackingResult = 300
)

// Eye selects one of the two display outputs.
type Eye int32

const (
	EyeLeft  Eye = 0
	EyeRight Eye = 1
)
