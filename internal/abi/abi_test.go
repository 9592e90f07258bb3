package abi

import (
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/vrbridge-io/vrbridge/pkg/openvr"
)

type fakeDevice struct {
	mu sync.Mutex

	serial string
	class  openvr.DeviceClass
	pose   openvr.Pose

	activatedIndex uint32
	activations    int
	deactivations  int
	standbys       int

	activateErr   error
	panicActivate bool
	panicPose     bool
	panicDebug    bool

	display openvr.DisplayComponent
}

func newFakeDevice(serial string, class openvr.DeviceClass) *fakeDevice {
	return &fakeDevice{
		serial:         serial,
		class:          class,
		pose:           openvr.DefaultPose(),
		activatedIndex: openvr.TrackedDeviceIndexInvalid,
	}
}

func (d *fakeDevice) SerialNumber() string            { return d.serial }
func (d *fakeDevice) DeviceClass() openvr.DeviceClass { return d.class }
func (d *fakeDevice) Deactivate()                     { d.mu.Lock(); d.deactivations++; d.mu.Unlock() }
func (d *fakeDevice) EnterStandby()                   { d.mu.Lock(); d.standbys++; d.mu.Unlock() }

func (d *fakeDevice) Activate(index uint32) error {
	if d.panicActivate {
		panic("activate exploded")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.activateErr != nil {
		return d.activateErr
	}
	d.activatedIndex = index
	d.activations++
	return nil
}

func (d *fakeDevice) GetComponent(name string) (openvr.Component, bool) {
	if name == openvr.InterfaceDisplayComponent003 && d.display != nil {
		return d.display, true
	}
	return nil, false
}

func (d *fakeDevice) DebugRequest(request string) string {
	if d.panicDebug {
		panic("debug exploded")
	}
	return "echo:" + request
}

func (d *fakeDevice) GetPose() openvr.Pose {
	if d.panicPose {
		panic("pose exploded")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pose
}

type fakeDisplay struct {
	width, height uint32
}

func (f *fakeDisplay) ComponentKind() openvr.ComponentKind { return openvr.ComponentKindDisplay }
func (f *fakeDisplay) WindowBounds() (int32, int32, uint32, uint32) {
	return 0, 0, f.width, f.height
}
func (f *fakeDisplay) IsDisplayOnDesktop() bool   { return false }
func (f *fakeDisplay) IsDisplayRealDisplay() bool { return true }
func (f *fakeDisplay) RecommendedRenderTargetSize() (uint32, uint32) {
	return f.width / 2, f.height
}
func (f *fakeDisplay) EyeOutputViewport(eye openvr.Eye) (uint32, uint32, uint32, uint32) {
	if eye == openvr.EyeRight {
		return f.width / 2, 0, f.width / 2, f.height
	}
	return 0, 0, f.width / 2, f.height
}
func (f *fakeDisplay) ProjectionRaw(openvr.Eye) (float32, float32, float32, float32) {
	return -1, 1, -1, 1
}
func (f *fakeDisplay) ComputeDistortion(_ openvr.Eye, u, v float32) openvr.DistortionCoordinates {
	return openvr.DistortionCoordinates{
		Red: [2]float32{u, v}, Green: [2]float32{u, v}, Blue: [2]float32{u, v},
	}
}

type fakeProvider struct {
	devices []*fakeDevice
	ctx     openvr.HostContext

	initCalls    int
	cleanupCalls int
	frames       int
	standby      bool
	blockStandby bool

	initErr   error
	panicInit bool
}

func (p *fakeProvider) Init(ctx openvr.HostContext) error {
	p.initCalls++
	p.ctx = ctx
	if p.panicInit {
		panic("init exploded")
	}
	if p.initErr != nil {
		return p.initErr
	}
	for _, d := range p.devices {
		if _, err := ctx.RegisterTrackedDevice(d); err != nil {
			return err
		}
	}
	return nil
}

func (p *fakeProvider) Cleanup()                    { p.cleanupCalls++ }
func (p *fakeProvider) InterfaceVersions() []string { return openvr.SupportedInterfaceVersions() }
func (p *fakeProvider) RunFrame()                   { p.frames++ }
func (p *fakeProvider) ShouldBlockStandbyMode() bool {
	return p.blockStandby
}
func (p *fakeProvider) EnterStandby() { p.standby = true }
func (p *fakeProvider) LeaveStandby() { p.standby = false }

// boundary installs a provider factory and returns a fresh sim, cleaning
// both up when the test ends.
func boundary(t *testing.T, p *fakeProvider, autoActivate bool) *HostSim {
	t.Helper()
	Reset()
	RegisterProvider(func() openvr.ServerProvider { return p })
	sim, err := NewHostSim(42, autoActivate)
	if err != nil {
		t.Fatalf("NewHostSim: %v", err)
	}
	t.Cleanup(func() {
		Reset()
		sim.Close()
	})
	return sim
}

func TestFactoryKnownAndUnknownInterfaces(t *testing.T) {
	boundary(t, &fakeProvider{}, false)

	ph, code := Factory(openvr.InterfaceServerTrackedDeviceProvider004)
	if ph == nil || code != openvr.InitErrorNone {
		t.Fatalf("known interface: got handle=%v code=%v", ph, code)
	}

	if ph2, code2 := Factory("IServerTrackedDeviceProvider_999"); ph2 != nil || code2 != openvr.InitErrorInitInterfaceNotFound {
		t.Fatalf("unknown interface: got handle=%v code=%v, want nil and %v",
			ph2, code2, openvr.InitErrorInitInterfaceNotFound)
	}
}

func TestFactoryNilNameFailsClosed(t *testing.T) {
	boundary(t, &fakeProvider{}, false)

	p, code := FactoryNilName()
	if p != nil {
		t.Fatalf("nil interface name returned %p, want nil", p)
	}
	if code != openvr.InitErrorInitInvalidInterface {
		t.Fatalf("code = %v, want %v", code, openvr.InitErrorInitInvalidInterface)
	}
}

func TestFactoryRepeatRequestsReturnSamePointer(t *testing.T) {
	boundary(t, &fakeProvider{}, false)

	a, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	b, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if a.Raw() != b.Raw() {
		t.Fatalf("same version returned distinct facades: %p vs %p", a.Raw(), b.Raw())
	}

	// A different revision gets its own facade over the same provider.
	c, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider004)
	if c.Raw() == a.Raw() {
		t.Fatalf("distinct versions share a facade")
	}
}

func TestFactoryWithoutRegisteredProvider(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	ph, code := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if ph != nil || code != openvr.InitErrorDriverNotLoaded {
		t.Fatalf("got handle=%v code=%v, want nil and %v", ph, code, openvr.InitErrorDriverNotLoaded)
	}
}

func TestInitRegistersAndActivatesDevices(t *testing.T) {
	hmd := newFakeDevice("VRB-HMD-001", openvr.DeviceClassHMD)
	prov := &fakeProvider{devices: []*fakeDevice{hmd}}
	sim := boundary(t, prov, true)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init = %v", code)
	}

	if sim.DeviceCount() != 1 {
		t.Fatalf("device count = %d, want 1", sim.DeviceCount())
	}
	if got := sim.DeviceSerial(0); got != "VRB-HMD-001" {
		t.Fatalf("serial = %q", got)
	}
	if got := sim.DeviceClass(0); got != openvr.DeviceClassHMD {
		t.Fatalf("class = %v", got)
	}
	// Activation happened synchronously inside registration.
	if hmd.activations != 1 || hmd.activatedIndex != 0 {
		t.Fatalf("activations=%d index=%d, want 1 and 0", hmd.activations, hmd.activatedIndex)
	}
}

func TestRegistrationReentrancyDoesNotDeadlock(t *testing.T) {
	// autoActivate makes the stub call the new device's Activate before
	// TrackedDeviceAdded returns, while provider Init is still on the
	// stack. Completing at all is the property under test.
	devs := []*fakeDevice{
		newFakeDevice("VRB-T-0", openvr.DeviceClassGenericTracker),
		newFakeDevice("VRB-T-1", openvr.DeviceClassGenericTracker),
		newFakeDevice("VRB-T-2", openvr.DeviceClassGenericTracker),
	}
	prov := &fakeProvider{devices: devs}
	sim := boundary(t, prov, true)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init = %v", code)
	}
	for i, d := range devs {
		if d.activatedIndex != uint32(i) {
			t.Fatalf("device %d got index %d", i, d.activatedIndex)
		}
	}
}

func TestRepeatInitIsIdempotentSuccess(t *testing.T) {
	prov := &fakeProvider{}
	sim := boundary(t, prov, false)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("first Init = %v", code)
	}
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("second Init = %v", code)
	}
	if prov.initCalls != 1 {
		t.Fatalf("driver Init ran %d times, want 1", prov.initCalls)
	}
}

func TestInitFailureCodePropagates(t *testing.T) {
	prov := &fakeProvider{initErr: openvr.InitErrorDriverHmdUnknown}
	sim := boundary(t, prov, false)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorDriverHmdUnknown {
		t.Fatalf("Init = %v, want %v", code, openvr.InitErrorDriverHmdUnknown)
	}
}

func TestInitPanicBecomesFailureCode(t *testing.T) {
	prov := &fakeProvider{panicInit: true}
	sim := boundary(t, prov, false)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorDriverFailed {
		t.Fatalf("Init = %v, want %v", code, openvr.InitErrorDriverFailed)
	}
}

func TestInitPanicTearsDownHostContext(t *testing.T) {
	prov := &fakeProvider{panicInit: true}
	sim := boundary(t, prov, false)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorDriverFailed {
		t.Fatalf("Init = %v, want %v", code, openvr.InitErrorDriverFailed)
	}

	// The context handed to the panicking Init is closed, same as on a
	// plain error return.
	if err := prov.ctx.UpdatePose(0, openvr.DefaultPose()); openvr.CodeOf(err) != openvr.InitErrorInitNotInitialized {
		t.Fatalf("UpdatePose after Init panic: %v", err)
	}
	if _, err := prov.ctx.GetGenericInterface(openvr.InterfaceProperties001); openvr.CodeOf(err) != openvr.InitErrorInitNotInitialized {
		t.Fatalf("GetGenericInterface after Init panic: %v", err)
	}

	// The provider is back in its pre-Init state, so the host may retry.
	prov.panicInit = false
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("retry Init = %v", code)
	}
	if prov.initCalls != 2 {
		t.Fatalf("init calls = %d, want 2", prov.initCalls)
	}
}

func TestInterfaceVersionsRoundTrip(t *testing.T) {
	boundary(t, &fakeProvider{}, false)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	got := ph.InterfaceVersions()
	want := openvr.SupportedInterfaceVersions()
	if len(got) != len(want) {
		t.Fatalf("versions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("versions[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGetPoseBeforeActivateIsValidDefault(t *testing.T) {
	hmd := newFakeDevice("VRB-HMD-001", openvr.DeviceClassHMD)
	prov := &fakeProvider{devices: []*fakeDevice{hmd}}
	sim := boundary(t, prov, false)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init = %v", code)
	}

	pose, err := sim.DeviceGetPose(0)
	if err != nil {
		t.Fatalf("DeviceGetPose: %v", err)
	}
	if !pose.PoseIsValid || !pose.DeviceIsConnected {
		t.Fatalf("pre-activation pose: valid=%v connected=%v", pose.PoseIsValid, pose.DeviceIsConnected)
	}
	if pose.Rotation != openvr.QuaternionIdentity() {
		t.Fatalf("rotation = %+v", pose.Rotation)
	}
}

func TestGetPosePanicYieldsDisconnectedPose(t *testing.T) {
	dev := newFakeDevice("VRB-BAD-001", openvr.DeviceClassController)
	dev.panicPose = true
	prov := &fakeProvider{devices: []*fakeDevice{dev}}
	sim := boundary(t, prov, true)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init = %v", code)
	}

	pose, err := sim.DeviceGetPose(0)
	if err != nil {
		t.Fatalf("DeviceGetPose: %v", err)
	}
	if pose.PoseIsValid || pose.DeviceIsConnected {
		t.Fatalf("panicking pose came back valid=%v connected=%v", pose.PoseIsValid, pose.DeviceIsConnected)
	}
	if pose.Result != openvr.TrackingResultUninitialized {
		t.Fatalf("result = %v", pose.Result)
	}
}

func TestPoseIsSanitizedAcrossBoundary(t *testing.T) {
	dev := newFakeDevice("VRB-NAN-001", openvr.DeviceClassGenericTracker)
	dev.pose.Position[1] = math.NaN()
	dev.pose.Rotation = openvr.Quaternion{W: 2} // non-unit
	prov := &fakeProvider{devices: []*fakeDevice{dev}}
	sim := boundary(t, prov, true)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init = %v", code)
	}

	pose, err := sim.DeviceGetPose(0)
	if err != nil {
		t.Fatalf("DeviceGetPose: %v", err)
	}
	if pose.Position[1] != 0 {
		t.Fatalf("NaN position crossed the boundary: %v", pose.Position)
	}
	if pose.PoseIsValid {
		t.Fatalf("pose with NaN position still flagged valid")
	}
	if pose.Rotation != openvr.QuaternionIdentity() {
		t.Fatalf("rotation not normalized: %+v", pose.Rotation)
	}
}

func TestActivatePanicFailsClosed(t *testing.T) {
	dev := newFakeDevice("VRB-BOOM-001", openvr.DeviceClassController)
	dev.panicActivate = true
	prov := &fakeProvider{devices: []*fakeDevice{dev}}
	sim := boundary(t, prov, false)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init = %v", code)
	}

	code, err := sim.ActivateDevice(0, 7)
	if err != nil {
		t.Fatalf("ActivateDevice: %v", err)
	}
	if code != openvr.InitErrorDriverFailed {
		t.Fatalf("Activate after panic = %v, want %v", code, openvr.InitErrorDriverFailed)
	}

	// The boundary stays usable afterwards.
	pose, err := sim.DeviceGetPose(0)
	if err != nil {
		t.Fatalf("DeviceGetPose after panic: %v", err)
	}
	if !pose.PoseIsValid {
		t.Fatalf("pose invalid after contained fault")
	}
}

func TestRepeatActivateKeepsFirstIndex(t *testing.T) {
	dev := newFakeDevice("VRB-CTL-001", openvr.DeviceClassController)
	prov := &fakeProvider{devices: []*fakeDevice{dev}}
	sim := boundary(t, prov, false)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init = %v", code)
	}

	if code, _ := sim.ActivateDevice(0, 3); code != openvr.InitErrorNone {
		t.Fatalf("first Activate = %v", code)
	}
	if code, _ := sim.ActivateDevice(0, 9); code != openvr.InitErrorNone {
		t.Fatalf("repeat Activate = %v", code)
	}
	if dev.activations != 1 || dev.activatedIndex != 3 {
		t.Fatalf("activations=%d index=%d, want 1 and 3", dev.activations, dev.activatedIndex)
	}
}

func TestDebugRequestTruncatesToBuffer(t *testing.T) {
	dev := newFakeDevice("VRB-DBG-001", openvr.DeviceClassHMD)
	prov := &fakeProvider{devices: []*fakeDevice{dev}}
	sim := boundary(t, prov, true)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init = %v", code)
	}

	long := strings.Repeat("x", 64)
	got, err := sim.DeviceDebugRequest(0, long, 16)
	if err != nil {
		t.Fatalf("DeviceDebugRequest: %v", err)
	}
	want := ("echo:" + long)[:15] // 16-byte buffer keeps 15 chars plus NUL
	if got != want {
		t.Fatalf("response = %q (%d bytes), want %q", got, len(got), want)
	}

	// A roomy buffer passes the response through whole.
	got, err = sim.DeviceDebugRequest(0, "ping", 256)
	if err != nil {
		t.Fatalf("DeviceDebugRequest: %v", err)
	}
	if got != "echo:ping" {
		t.Fatalf("response = %q", got)
	}
}

func TestDebugRequestPanicLeavesEmptyResponse(t *testing.T) {
	dev := newFakeDevice("VRB-DBG-002", openvr.DeviceClassHMD)
	dev.panicDebug = true
	prov := &fakeProvider{devices: []*fakeDevice{dev}}
	sim := boundary(t, prov, true)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init = %v", code)
	}

	got, err := sim.DeviceDebugRequest(0, "anything", 64)
	if err != nil {
		t.Fatalf("DeviceDebugRequest: %v", err)
	}
	if got != "" {
		t.Fatalf("response = %q, want empty", got)
	}
}

func TestGetComponentIsIdempotent(t *testing.T) {
	dev := newFakeDevice("VRB-HMD-001", openvr.DeviceClassHMD)
	dev.display = &fakeDisplay{width: 2880, height: 1600}
	prov := &fakeProvider{devices: []*fakeDevice{dev}}
	sim := boundary(t, prov, true)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init = %v", code)
	}

	a, err := sim.DeviceGetComponent(0, openvr.InterfaceDisplayComponent003)
	if err != nil || a == nil {
		t.Fatalf("component lookup: ptr=%v err=%v", a, err)
	}
	b, _ := sim.DeviceGetComponent(0, openvr.InterfaceDisplayComponent003)
	if a != b {
		t.Fatalf("repeat lookup returned distinct pointers: %p vs %p", a, b)
	}

	if missing, _ := sim.DeviceGetComponent(0, openvr.InterfaceCameraComponent003); missing != nil {
		t.Fatalf("absent component returned %p, want nil", missing)
	}
}

func TestResetReleasesRetiredComponentOnce(t *testing.T) {
	dev := newFakeDevice("VRB-HMD-001", openvr.DeviceClassHMD)
	dev.display = &fakeDisplay{width: 2880, height: 1600}
	prov := &fakeProvider{devices: []*fakeDevice{dev}}
	sim := boundary(t, prov, true)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init = %v", code)
	}

	// The lookup caches the component facade on the device while the
	// component's own state also holds it. Cleanup retires both; Reset
	// must release the facade exactly once.
	if p, err := sim.DeviceGetComponent(0, openvr.InterfaceDisplayComponent003); err != nil || p == nil {
		t.Fatalf("component lookup: ptr=%v err=%v", p, err)
	}
	ph.Cleanup()
	Reset()

	// A fresh session comes up cleanly afterwards.
	prov2 := &fakeProvider{}
	RegisterProvider(func() openvr.ServerProvider { return prov2 })
	ph2, code := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if ph2 == nil || code != openvr.InitErrorNone {
		t.Fatalf("Factory after Reset: handle=%v code=%v", ph2, code)
	}
	if code := ph2.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init after Reset = %v", code)
	}
}

func TestDisplayComponentThroughVtable(t *testing.T) {
	dev := newFakeDevice("VRB-HMD-001", openvr.DeviceClassHMD)
	dev.display = &fakeDisplay{width: 2880, height: 1600}
	prov := &fakeProvider{devices: []*fakeDevice{dev}}
	sim := boundary(t, prov, true)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init = %v", code)
	}

	p, _ := sim.DeviceGetComponent(0, openvr.InterfaceDisplayComponent003)
	disp := Display(p)
	if disp == nil {
		t.Fatal("no display facade")
	}

	if _, _, w, h := disp.WindowBounds(); w != 2880 || h != 1600 {
		t.Fatalf("window bounds = %dx%d", w, h)
	}
	if w, h := disp.RenderTargetSize(); w != 1440 || h != 1600 {
		t.Fatalf("render target = %dx%d", w, h)
	}
	dc := disp.ComputeDistortion(openvr.EyeLeft, 0.25, 0.75)
	if dc.Red != [2]float32{0.25, 0.75} {
		t.Fatalf("distortion red = %v", dc.Red)
	}
}

func TestPoseUpdateReachesHost(t *testing.T) {
	dev := newFakeDevice("VRB-HMD-001", openvr.DeviceClassHMD)
	prov := &fakeProvider{devices: []*fakeDevice{dev}}
	sim := boundary(t, prov, true)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init = %v", code)
	}

	pose := openvr.DefaultPose()
	pose.Position = openvr.Vector3{1, 2, 3}
	if err := prov.ctx.UpdatePose(dev.activatedIndex, pose); err != nil {
		t.Fatalf("UpdatePose: %v", err)
	}

	if sim.PoseUpdates() != 1 {
		t.Fatalf("pose updates = %d, want 1", sim.PoseUpdates())
	}
	idx, got := sim.LastPose()
	if idx != dev.activatedIndex {
		t.Fatalf("pose index = %d, want %d", idx, dev.activatedIndex)
	}
	if got.Position != pose.Position {
		t.Fatalf("position = %v, want %v", got.Position, pose.Position)
	}
}

func TestPropertyBatchReachesHost(t *testing.T) {
	dev := newFakeDevice("VRB-HMD-001", openvr.DeviceClassHMD)
	prov := &fakeProvider{devices: []*fakeDevice{dev}}
	sim := boundary(t, prov, true)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init = %v", code)
	}

	props, err := prov.ctx.Properties()
	if err != nil {
		t.Fatalf("Properties: %v", err)
	}
	container, err := props.ContainerFor(0)
	if err != nil {
		t.Fatalf("ContainerFor: %v", err)
	}
	if container != 1 {
		t.Fatalf("container = %d, want 1", container)
	}

	batch := openvr.NewPropertyBatch().
		SetString(openvr.PropSerialNumberString, "VRB-HMD-001").
		SetFloat(openvr.PropDisplayFrequencyFloat, 90).
		SetBool(openvr.PropIsOnDesktopBool, false).
		SetUint64(openvr.PropCurrentUniverseIDUint64, 2)
	if err := props.WriteBatch(container, batch); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}

	if sim.PropWrites() != 4 {
		t.Fatalf("recorded writes = %d, want 4", sim.PropWrites())
	}
	if got, ok := sim.PropString(openvr.PropSerialNumberString); !ok || got != "VRB-HMD-001" {
		t.Fatalf("serial = %q ok=%v", got, ok)
	}
	if got, ok := sim.PropNumber(openvr.PropDisplayFrequencyFloat); !ok || got != 90 {
		t.Fatalf("display frequency = %v ok=%v", got, ok)
	}
	if got, ok := sim.PropNumber(openvr.PropIsOnDesktopBool); !ok || got != 0 {
		t.Fatalf("on-desktop = %v ok=%v", got, ok)
	}
	if got, ok := sim.PropNumber(openvr.PropCurrentUniverseIDUint64); !ok || got != 2 {
		t.Fatalf("universe = %v ok=%v", got, ok)
	}
	if got, ok := sim.PropContainer(openvr.PropSerialNumberString); !ok || got != container {
		t.Fatalf("write container = %v ok=%v, want %v", got, ok, container)
	}

	// A closed context refuses further property traffic.
	ph.Cleanup()
	if _, err := props.ContainerFor(0); openvr.CodeOf(err) != openvr.InitErrorInitNotInitialized {
		t.Fatalf("ContainerFor after Cleanup: %v", err)
	}
	if err := props.WriteBatch(container, openvr.NewPropertyBatch().SetUint64(openvr.PropCurrentUniverseIDUint64, 3)); openvr.CodeOf(err) != openvr.InitErrorInitNotInitialized {
		t.Fatalf("WriteBatch after Cleanup: %v", err)
	}
}

func TestCleanupInvalidatesHostContext(t *testing.T) {
	dev := newFakeDevice("VRB-HMD-001", openvr.DeviceClassHMD)
	prov := &fakeProvider{devices: []*fakeDevice{dev}}
	sim := boundary(t, prov, true)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init = %v", code)
	}
	ctx := prov.ctx
	ph.Cleanup()

	if prov.cleanupCalls != 1 {
		t.Fatalf("cleanup calls = %d", prov.cleanupCalls)
	}
	if err := ctx.UpdatePose(0, openvr.DefaultPose()); openvr.CodeOf(err) != openvr.InitErrorInitNotInitialized {
		t.Fatalf("UpdatePose after Cleanup: %v", err)
	}
	if _, err := ctx.GetGenericInterface(openvr.InterfaceProperties001); openvr.CodeOf(err) != openvr.InitErrorInitNotInitialized {
		t.Fatalf("GetGenericInterface after Cleanup: %v", err)
	}

	// Device handles were retired with the session: calls through the old
	// facade fall out as no-ops with fail-closed values.
	pose, err := sim.DeviceGetPose(0)
	if err != nil {
		t.Fatalf("DeviceGetPose: %v", err)
	}
	if pose.PoseIsValid || pose.DeviceIsConnected {
		t.Fatalf("retired device still reports live pose")
	}
}

func TestStandbyRoundTrip(t *testing.T) {
	prov := &fakeProvider{blockStandby: true}
	sim := boundary(t, prov, false)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init = %v", code)
	}

	if !ph.ShouldBlockStandby() {
		t.Fatal("standby veto lost crossing the boundary")
	}
	ph.EnterStandby()
	if !prov.standby {
		t.Fatal("EnterStandby did not reach the provider")
	}
	ph.LeaveStandby()
	if prov.standby {
		t.Fatal("LeaveStandby did not reach the provider")
	}
}

func TestRunFrameReachesProvider(t *testing.T) {
	prov := &fakeProvider{}
	sim := boundary(t, prov, false)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init = %v", code)
	}
	for i := 0; i < 5; i++ {
		ph.RunFrame()
	}
	if prov.frames != 5 {
		t.Fatalf("frames = %d, want 5", prov.frames)
	}
}

func TestIsExitingFlowsThrough(t *testing.T) {
	prov := &fakeProvider{}
	sim := boundary(t, prov, false)

	ph, _ := Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code := ph.Init(sim); code != openvr.InitErrorNone {
		t.Fatalf("Init = %v", code)
	}

	if prov.ctx.IsExiting() {
		t.Fatal("IsExiting true before shutdown")
	}
	sim.SetExiting(true)
	if !prov.ctx.IsExiting() {
		t.Fatal("IsExiting false after shutdown flag")
	}
}
