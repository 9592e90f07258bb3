package simplehmd

import (
	"sync"

	"github.com/vrbridge-io/vrbridge/pkg/log"
	"github.com/vrbridge-io/vrbridge/pkg/openvr"
)

// PoseSource resolves a device serial to its latest pose. The MQTT pose
// feed satisfies it; tests substitute their own.
type PoseSource interface {
	PoseFor(serial string) openvr.Pose
}

// TrackerDevice is a generic tracker whose pose comes entirely from an
// external source. With no source it reports disconnected.
type TrackerDevice struct {
	serial string
	source PoseSource
	logger log.Logger

	mu          sync.Mutex
	deviceIndex uint32
	active      bool
}

var _ openvr.TrackedDevice = (*TrackerDevice)(nil)

func NewTrackerDevice(serial string, source PoseSource) *TrackerDevice {
	return &TrackerDevice{
		serial:      serial,
		source:      source,
		logger:      log.WithName("simplehmd").WithValues("tracker", serial),
		deviceIndex: openvr.TrackedDeviceIndexInvalid,
	}
}

func (t *TrackerDevice) SerialNumber() string { return t.serial }

func (t *TrackerDevice) DeviceClass() openvr.DeviceClass {
	return openvr.DeviceClassGenericTracker
}

func (t *TrackerDevice) Activate(deviceIndex uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deviceIndex = deviceIndex
	t.active = true
	t.logger.Info("tracker activated", "index", deviceIndex)
	return nil
}

func (t *TrackerDevice) Deactivate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = false
}

func (t *TrackerDevice) EnterStandby() {}

func (t *TrackerDevice) GetComponent(string) (openvr.Component, bool) {
	return nil, false
}

func (t *TrackerDevice) DebugRequest(request string) string {
	return request
}

// DeviceIndex returns the host-assigned index, TrackedDeviceIndexInvalid
// before activation.
func (t *TrackerDevice) DeviceIndex() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deviceIndex
}

func (t *TrackerDevice) GetPose() openvr.Pose {
	if t.source == nil {
		return openvr.DisconnectedPose()
	}
	return t.source.PoseFor(t.serial)
}
