package openvr

import "fmt"

// Property identifies a device property in the host's ETrackedDeviceProperty
// space. Only the properties the sample drivers set are named here; the
// numeric space is open, so drivers may pass any host-defined value.
type Property int32

const (
	PropTrackingSystemNameString Property = 1000
	PropModelNumberString        Property = 1001
	PropSerialNumberString       Property = 1002
	PropManufacturerNameString   Property = 1005

	PropSecondsFromVsyncToPhotonsFloat Property = 2001
	PropDisplayFrequencyFloat          Property = 2002
	PropUserIpdMetersFloat             Property = 2003
	PropCurrentUniverseIDUint64        Property = 2004
	PropIsOnDesktopBool                Property = 2007
	PropUserHeadToEyeDepthMetersFloat  Property = 2009
	PropDisplayDebugModeBool           Property = 2044
)

// PropertyTag marks the wire type of a property value, the host's
// PropertyTypeTag_t numbers.
type PropertyTag uint32

const (
	PropertyTagFloat  PropertyTag = 1
	PropertyTagInt32  PropertyTag = 2
	PropertyTagUint64 PropertyTag = 3
	PropertyTagBool   PropertyTag = 4
	PropertyTagString PropertyTag = 5
)

// PropertyError is the host's ETrackedPropertyError code space.
type PropertyError int32

const (
	PropertyErrorSuccess          PropertyError = 0
	PropertyErrorWrongDataType    PropertyError = 1
	PropertyErrorWrongDeviceClass PropertyError = 2
	PropertyErrorBufferTooSmall   PropertyError = 3
	PropertyErrorUnknownProperty  PropertyError = 4
	PropertyErrorInvalidDevice    PropertyError = 5
	PropertyErrorCouldNotContact  PropertyError = 6
	PropertyErrorValueNotProvided PropertyError = 7
	PropertyErrorStringTooLong    PropertyError = 8
	PropertyErrorNotYetAvailable  PropertyError = 9
	PropertyErrorPermissionDenied PropertyError = 10
	PropertyErrorInvalidOperation PropertyError = 11
)

func (e PropertyError) Error() string {
	return fmt.Sprintf("openvr: property error %d", int32(e))
}

// PropertyContainer addresses a device's property set on the host side.
// Zero is invalid.
type PropertyContainer uint64

// PropertyWrite is one value in a batch, typed by Tag. Only the field the
// tag selects is meaningful.
type PropertyWrite struct {
	Prop Property
	Tag  PropertyTag

	Bool   bool
	Float  float32
	Int32  int32
	Uint64 uint64
	String string
}

// PropertyBatch collects typed writes for a single WriteBatch call, the only
// way the host protocol sets properties. The setters chain.
type PropertyBatch struct {
	writes []PropertyWrite
}

// NewPropertyBatch returns an empty batch ready for chained setters.
func NewPropertyBatch() *PropertyBatch {
	return &PropertyBatch{}
}

func (b *PropertyBatch) SetBool(p Property, v bool) *PropertyBatch {
	b.writes = append(b.writes, PropertyWrite{Prop: p, Tag: PropertyTagBool, Bool: v})
	return b
}

func (b *PropertyBatch) SetFloat(p Property, v float32) *PropertyBatch {
	b.writes = append(b.writes, PropertyWrite{Prop: p, Tag: PropertyTagFloat, Float: v})
	return b
}

func (b *PropertyBatch) SetInt32(p Property, v int32) *PropertyBatch {
	b.writes = append(b.writes, PropertyWrite{Prop: p, Tag: PropertyTagInt32, Int32: v})
	return b
}

func (b *PropertyBatch) SetUint64(p Property, v uint64) *PropertyBatch {
	b.writes = append(b.writes, PropertyWrite{Prop: p, Tag: PropertyTagUint64, Uint64: v})
	return b
}

func (b *PropertyBatch) SetString(p Property, v string) *PropertyBatch {
	b.writes = append(b.writes, PropertyWrite{Prop: p, Tag: PropertyTagString, String: v})
	return b
}

// Writes returns the collected writes in insertion order.
func (b *PropertyBatch) Writes() []PropertyWrite {
	return b.writes
}

// Len reports the number of collected writes.
func (b *PropertyBatch) Len() int {
	return len(b.writes)
}

// PropertyWriter sets device properties through the host's properties
// interface. Obtained from HostContext.Properties and valid for the same
// Init-to-Cleanup window.
type PropertyWriter interface {
	// ContainerFor resolves an activated device index to its property
	// container.
	ContainerFor(deviceIndex uint32) (PropertyContainer, error)

	// WriteBatch applies every write in the batch at once. An empty batch
	// is a no-op.
	WriteBatch(c PropertyContainer, batch *PropertyBatch) error
}
