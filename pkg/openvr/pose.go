package openvr

import "math"

// Quaternion is an orientation in w,x,y,z order, matching the host's
// HmdQuaternion_t layout.
type Quaternion struct {
	W, X, Y, Z float64
}

// QuaternionIdentity is the no-rotation quaternion.
func QuaternionIdentity() Quaternion {
	return Quaternion{W: 1}
}

// Norm returns the quaternion's Euclidean norm.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalized returns a unit quaternion, or identity when the input is
// degenerate.
func (q Quaternion) Normalized() Quaternion {
	n := q.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return QuaternionIdentity()
	}
	return Quaternion{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// Vector3 is a 3-component double vector.
type Vector3 [3]float64

// Matrix34 is a 3x4 row-major transform, matching HmdMatrix34_t.
type Matrix34 [3][4]float64

// Matrix34Identity returns the identity transform.
func Matrix34Identity() Matrix34 {
	return Matrix34{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
}

// Pose is the fixed-layout spatial record the host reads from GetPose and
// from pose-update callbacks. Field order mirrors the host's DriverPose_t
// exactly; the ABI layer copies it field-for-field into the wire struct.
type Pose struct {
	// PoseTimeOffset is the time in seconds between when this pose was
	// sampled and when it will be read, negative for the past.
	PoseTimeOffset float64

	// WorldFromDriverRotation / WorldFromDriverTranslation carry the driver's
	// tracking space into the host's world space.
	WorldFromDriverRotation    Quaternion
	WorldFromDriverTranslation Vector3

	// DriverFromHeadRotation / DriverFromHeadTranslation carry the head frame
	// into the device's tracked frame.
	DriverFromHeadRotation    Quaternion
	DriverFromHeadTranslation Vector3

	Position     Vector3
	Velocity     Vector3
	Acceleration Vector3

	Rotation            Quaternion
	AngularVelocity     Vector3
	AngularAcceleration Vector3

	Result TrackingResult

	PoseIsValid          bool
	WillDriftInYaw       bool
	ShouldApplyHeadModel bool
	DeviceIsConnected    bool
}

// DefaultPose is a connected, valid, untransformed pose at the origin. It is
// the safe starting point for any device that has hardware to report.
func DefaultPose() Pose {
	return Pose{
		WorldFromDriverRotation: QuaternionIdentity(),
		DriverFromHeadRotation:  QuaternionIdentity(),
		Rotation:                QuaternionIdentity(),
		Result:                  TrackingResultRunningOK,
		PoseIsValid:             true,
		DeviceIsConnected:       true,
	}
}

// DisconnectedPose is what the bridge reports for a device that cannot be
// reached: invalid, disconnected, tracking uninitialized. Also the fail-closed
// value every pose thunk falls back to.
func DisconnectedPose() Pose {
	return Pose{
		WorldFromDriverRotation: QuaternionIdentity(),
		DriverFromHeadRotation:  QuaternionIdentity(),
		Rotation:                QuaternionIdentity(),
		Result:                  TrackingResultUninitialized,
	}
}

// Sanitized returns a structurally valid copy: quaternions normalized, NaN
// and infinite positions zeroed, and flags made consistent (an invalid pose
// never claims RunningOK). The thunk layer applies this before anything
// crosses to the host.
func (p Pose) Sanitized() Pose {
	out := p
	out.WorldFromDriverRotation = p.WorldFromDriverRotation.Normalized()
	out.DriverFromHeadRotation = p.DriverFromHeadRotation.Normalized()
	out.Rotation = p.Rotation.Normalized()
	for i, v := range out.Position {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out.Position[i] = 0
			out.PoseIsValid = false
		}
	}
	if !out.PoseIsValid && out.Result == TrackingResultRunningOK {
		out.Result = TrackingResultUninitialized
	}
	return out
}
