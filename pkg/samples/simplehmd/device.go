package simplehmd

import (
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/vrbridge-io/vrbridge/pkg/log"
	"github.com/vrbridge-io/vrbridge/pkg/openvr"
)

// HeadsetDevice is the sample HMD. Its pose is synthetic: a fixed head
// height with a small vertical bob, enough to prove motion flows end to
// end without hardware.
type HeadsetDevice struct {
	store  *Store
	logger log.Logger
	props  openvr.PropertyWriter

	display *displayComponent

	mu          sync.Mutex
	deviceIndex uint32
	activatedAt time.Time
	active      bool
	standby     bool
}

var _ openvr.TrackedDevice = (*HeadsetDevice)(nil)

// NewHeadsetDevice builds the sample HMD. props may be nil; the device
// then skips property writes at activation.
func NewHeadsetDevice(store *Store, props openvr.PropertyWriter) *HeadsetDevice {
	return &HeadsetDevice{
		store:       store,
		logger:      log.WithName("simplehmd"),
		props:       props,
		display:     &displayComponent{store: store},
		deviceIndex: openvr.TrackedDeviceIndexInvalid,
	}
}

func (h *HeadsetDevice) SerialNumber() string {
	return h.store.Current().Serial
}

func (h *HeadsetDevice) DeviceClass() openvr.DeviceClass {
	return openvr.DeviceClassHMD
}

func (h *HeadsetDevice) Activate(deviceIndex uint32) error {
	h.mu.Lock()
	h.deviceIndex = deviceIndex
	h.activatedAt = time.Now()
	h.active = true
	h.mu.Unlock()
	h.setProperties(deviceIndex)
	h.logger.Info("headset activated", "index", deviceIndex)
	return nil
}

// setProperties pushes the HMD's identity and display properties to the
// host. Failures are logged and swallowed; a headset without properties
// still tracks.
func (h *HeadsetDevice) setProperties(deviceIndex uint32) {
	if h.props == nil {
		return
	}
	container, err := h.props.ContainerFor(deviceIndex)
	if err != nil {
		h.logger.Error(err, "property container lookup failed", "index", deviceIndex)
		return
	}
	s := h.store.Current()
	batch := openvr.NewPropertyBatch().
		SetString(openvr.PropTrackingSystemNameString, "vrbridge").
		SetString(openvr.PropManufacturerNameString, "vrbridge").
		SetString(openvr.PropModelNumberString, s.ModelNumber).
		SetString(openvr.PropSerialNumberString, s.Serial).
		SetFloat(openvr.PropUserIpdMetersFloat, float32(s.IpdMeters)).
		SetFloat(openvr.PropUserHeadToEyeDepthMetersFloat, 0).
		SetFloat(openvr.PropSecondsFromVsyncToPhotonsFloat, 0.11).
		SetFloat(openvr.PropDisplayFrequencyFloat, float32(s.DisplayFrequency)).
		SetBool(openvr.PropIsOnDesktopBool, s.DisplayOnDesktop).
		SetBool(openvr.PropDisplayDebugModeBool, true).
		SetUint64(openvr.PropCurrentUniverseIDUint64, 2)
	if err := h.props.WriteBatch(container, batch); err != nil {
		h.logger.Error(err, "property batch write failed", "index", deviceIndex)
	}
}

func (h *HeadsetDevice) Deactivate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = false
	h.logger.Info("headset deactivated")
}

func (h *HeadsetDevice) EnterStandby() {
	h.mu.Lock()
	h.standby = true
	h.mu.Unlock()
}

// LeaveStandby is called by the provider on session resume; the host has no
// per-device wake slot.
func (h *HeadsetDevice) LeaveStandby() {
	h.mu.Lock()
	h.standby = false
	h.mu.Unlock()
}

func (h *HeadsetDevice) GetComponent(name string) (openvr.Component, bool) {
	if name == openvr.InterfaceDisplayComponent003 {
		return h.display, true
	}
	return nil, false
}

// DebugRequest answers "status" with a JSON snapshot; anything else echoes.
func (h *HeadsetDevice) DebugRequest(request string) string {
	if request != "status" {
		return request
	}
	h.mu.Lock()
	status := map[string]any{
		"serial":  h.store.Current().Serial,
		"index":   h.deviceIndex,
		"active":  h.active,
		"standby": h.standby,
	}
	h.mu.Unlock()
	out, err := json.Marshal(status)
	if err != nil {
		return ""
	}
	return string(out)
}

// DeviceIndex returns the host-assigned index, TrackedDeviceIndexInvalid
// before activation.
func (h *HeadsetDevice) DeviceIndex() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deviceIndex
}

func (h *HeadsetDevice) GetPose() openvr.Pose {
	h.mu.Lock()
	active := h.active
	standby := h.standby
	since := time.Since(h.activatedAt)
	h.mu.Unlock()

	s := h.store.Current()
	p := openvr.DefaultPose()
	p.Position[1] = s.HeadHeight
	if active && !standby {
		t := since.Seconds()
		p.Position[1] += s.BobAmplitude * math.Sin(2*math.Pi*s.BobFrequency*t)
	}
	if standby {
		p.Result = openvr.TrackingResultRunningOutOfRange
	}
	return p
}
