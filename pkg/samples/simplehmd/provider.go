// Package simplehmd is the sample driver: one synthetic headset plus any
// number of pose-feed trackers. It exists to exercise the whole boundary
// surface and to be the thing the simulator runs.
package simplehmd

import (
	"fmt"
	"sync"

	"github.com/vrbridge-io/vrbridge/pkg/log"
	"github.com/vrbridge-io/vrbridge/pkg/openvr"
)

// Provider wires the sample devices into a host session.
type Provider struct {
	store  *Store
	source PoseSource
	logger log.Logger

	mu       sync.Mutex
	ctx      openvr.HostContext
	headset  *HeadsetDevice
	trackers []*TrackerDevice
	standby  bool
}

var _ openvr.ServerProvider = (*Provider)(nil)

// NewProvider builds a provider over a settings store and an optional pose
// source for its trackers.
func NewProvider(store *Store, source PoseSource) *Provider {
	return &Provider{
		store:  store,
		source: source,
		logger: log.WithName("simplehmd"),
	}
}

// Init registers the headset and the configured trackers. A declined
// headset registration fails the session; a declined tracker is logged and
// skipped.
func (p *Provider) Init(ctx openvr.HostContext) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ctx = ctx
	p.logger.Info("sample driver starting", "driverHandle", ctx.DriverHandle())

	props, err := ctx.Properties()
	if err != nil {
		p.logger.Warn("host properties interface unavailable", "err", err)
		props = nil
	}

	p.headset = NewHeadsetDevice(p.store, props)
	ok, err := ctx.RegisterTrackedDevice(p.headset)
	if err != nil {
		return fmt.Errorf("register headset: %w", err)
	}
	if !ok {
		return fmt.Errorf("register headset: %w", openvr.InitErrorDriverHmdUnknown)
	}

	for _, serial := range p.store.Current().Trackers {
		tr := NewTrackerDevice(serial, p.source)
		ok, err := ctx.RegisterTrackedDevice(tr)
		if err != nil {
			return fmt.Errorf("register tracker %s: %w", serial, err)
		}
		if !ok {
			p.logger.Warn("tracker declined by host", "serial", serial)
			continue
		}
		p.trackers = append(p.trackers, tr)
	}
	return nil
}

func (p *Provider) Cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctx = nil
	p.headset = nil
	p.trackers = nil
	p.logger.Info("sample driver stopped")
}

func (p *Provider) InterfaceVersions() []string {
	return openvr.SupportedInterfaceVersions()
}

// RunFrame pushes one pose per activated device. The host also polls
// GetPose directly; pushing keeps pose latency down to a frame.
func (p *Provider) RunFrame() {
	p.mu.Lock()
	ctx := p.ctx
	headset := p.headset
	trackers := p.trackers
	p.mu.Unlock()

	if ctx == nil {
		return
	}
	if headset != nil {
		if idx := headset.DeviceIndex(); idx != openvr.TrackedDeviceIndexInvalid {
			_ = ctx.UpdatePose(idx, headset.GetPose())
		}
	}
	for _, tr := range trackers {
		if idx := tr.DeviceIndex(); idx != openvr.TrackedDeviceIndexInvalid {
			_ = ctx.UpdatePose(idx, tr.GetPose())
		}
	}
}

func (p *Provider) ShouldBlockStandbyMode() bool {
	return false
}

func (p *Provider) EnterStandby() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.standby = true
	if p.headset != nil {
		p.headset.EnterStandby()
	}
}

func (p *Provider) LeaveStandby() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.standby = false
	if p.headset != nil {
		p.headset.LeaveStandby()
	}
}
