package simplehmd

import "github.com/vrbridge-io/vrbridge/pkg/openvr"

// displayComponent reports the HMD's display geometry from the live
// settings snapshot, so a config reload changes what the host sees on its
// next query.
type displayComponent struct {
	store *Store
}

var _ openvr.DisplayComponent = (*displayComponent)(nil)

func (d *displayComponent) ComponentKind() openvr.ComponentKind {
	return openvr.ComponentKindDisplay
}

func (d *displayComponent) WindowBounds() (int32, int32, uint32, uint32) {
	s := d.store.Current()
	return s.WindowX, s.WindowY, s.WindowWidth, s.WindowHeight
}

func (d *displayComponent) IsDisplayOnDesktop() bool {
	return d.store.Current().DisplayOnDesktop
}

func (d *displayComponent) IsDisplayRealDisplay() bool {
	return d.store.Current().RealDisplay
}

func (d *displayComponent) RecommendedRenderTargetSize() (uint32, uint32) {
	s := d.store.Current()
	return s.RenderWidth, s.RenderHeight
}

// EyeOutputViewport splits the window into side-by-side halves.
func (d *displayComponent) EyeOutputViewport(eye openvr.Eye) (uint32, uint32, uint32, uint32) {
	s := d.store.Current()
	half := s.WindowWidth / 2
	if eye == openvr.EyeRight {
		return half, 0, half, s.WindowHeight
	}
	return 0, 0, half, s.WindowHeight
}

func (d *displayComponent) ProjectionRaw(openvr.Eye) (float32, float32, float32, float32) {
	f := d.store.Current().HalfFov
	return -f, f, -f, f
}

// ComputeDistortion is identity: the sample panel has no lens model.
func (d *displayComponent) ComputeDistortion(_ openvr.Eye, u, v float32) openvr.DistortionCoordinates {
	return openvr.DistortionCoordinates{
		Red:   [2]float32{u, v},
		Green: [2]float32{u, v},
		Blue:  [2]float32{u, v},
	}
}
