package openvr

import (
	"math"
	"testing"
)

func TestQuaternionNormalized(t *testing.T) {
	tests := []struct {
		name string
		in   Quaternion
	}{
		{"identity", QuaternionIdentity()},
		{"unnormalized", Quaternion{W: 2, X: 0, Y: 0, Z: 0}},
		{"mixed", Quaternion{W: 1, X: 1, Y: 1, Z: 1}},
		{"zero", Quaternion{}},
		{"nan", Quaternion{W: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalized()
			n := got.Norm()
			if math.Abs(n-1) > 1e-9 {
				t.Fatalf("norm = %v, want 1", n)
			}
		})
	}
}

func TestDefaultPoseIsValid(t *testing.T) {
	p := DefaultPose()
	if !p.PoseIsValid || !p.DeviceIsConnected {
		t.Fatalf("default pose should be valid and connected: %+v", p)
	}
	if p.Result != TrackingResultRunningOK {
		t.Fatalf("default pose result = %v, want RunningOK", p.Result)
	}
}

func TestDisconnectedPoseFlags(t *testing.T) {
	p := DisconnectedPose()
	if p.PoseIsValid || p.DeviceIsConnected {
		t.Fatalf("disconnected pose must not claim validity: %+v", p)
	}
	if p.Result != TrackingResultUninitialized {
		t.Fatalf("disconnected pose result = %v, want Uninitialized", p.Result)
	}
}

func TestPoseSanitized(t *testing.T) {
	p := DefaultPose()
	p.Rotation = Quaternion{W: 3, X: 4}
	p.Position = Vector3{math.NaN(), 1, 2}

	got := p.Sanitized()

	if n := got.Rotation.Norm(); math.Abs(n-1) > 1e-9 {
		t.Fatalf("rotation not normalized: norm=%v", n)
	}
	if got.Position[0] != 0 {
		t.Fatalf("NaN position survived: %v", got.Position)
	}
	if got.PoseIsValid {
		t.Fatal("pose with NaN position still marked valid")
	}
	if got.Result == TrackingResultRunningOK {
		t.Fatal("invalid pose must not report RunningOK")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want InitError
	}{
		{"nil", nil, InitErrorNone},
		{"plain code", InitErrorInitHmdNotFound, InitErrorInitHmdNotFound},
		{"wrapped code", wrap(InitErrorDriverFailed), InitErrorDriverFailed},
		{"foreign error", errFake{}, InitErrorUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Fatalf("CodeOf = %v, want %v", got, tt.want)
			}
		})
	}
}

type errFake struct{}

func (errFake) Error() string { return "fake" }

type wrapped struct{ inner error }

func wrap(err error) error      { return wrapped{inner: err} }
func (w wrapped) Error() string { return "wrapped: " + w.inner.Error() }
func (w wrapped) Unwrap() error { return w.inner }
