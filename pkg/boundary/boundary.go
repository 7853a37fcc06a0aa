package boundary

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ErrInvalidBlob indicates a blob the serializer cannot interpret.
var ErrInvalidBlob = errors.New("invalid boundary point blob")

// Point is a boundary point descriptor owned by the geometry module.
type Point interface {
	// PatchID returns the boundary patch the point lies on.
	PatchID() int32
}

// Serializer converts boundary points to and from opaque blobs.
type Serializer interface {
	SerializeBoundaryPoint(p Point) ([]byte, error)
	DeserializeBoundaryPoint(blob []byte) (Point, error)
}

// Interpolator is optionally implemented by a Serializer that can place a
// new boundary node between existing ones. Refinement uses it for midpoints
// whose spanning corners all lie on one patch.
type Interpolator interface {
	Interpolate(points []Point) (Point, bool)
}

// PatchPoint is a point on a parametric patch.
type PatchPoint struct {
	Patch int32      `cbor:"1,keyasint"`
	Local [2]float64 `cbor:"2,keyasint"`
}

// PatchID returns the patch id.
func (p *PatchPoint) PatchID() int32 {
	return p.Patch
}

// PatchSerializer serializes PatchPoint values.
type PatchSerializer struct{}

var (
	patchEnc cbor.EncMode
	patchDec cbor.DecMode
)

func init() {
	var err error
	patchEnc, err = cbor.EncOptions{Sort: cbor.SortCanonical}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}
	patchDec, err = cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// SerializeBoundaryPoint encodes a *PatchPoint.
func (PatchSerializer) SerializeBoundaryPoint(p Point) ([]byte, error) {
	pp, ok := p.(*PatchPoint)
	if !ok {
		return nil, fmt.Errorf("boundary: unsupported point type %T", p)
	}
	return patchEnc.Marshal(pp)
}

// DeserializeBoundaryPoint decodes a blob produced by SerializeBoundaryPoint.
func (PatchSerializer) DeserializeBoundaryPoint(blob []byte) (Point, error) {
	var pp PatchPoint
	if err := patchDec.Unmarshal(blob, &pp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBlob, err)
	}
	return &pp, nil
}

// Interpolate averages local coordinates when every point is on the same patch.
func (PatchSerializer) Interpolate(points []Point) (Point, bool) {
	if len(points) == 0 {
		return nil, false
	}
	out := &PatchPoint{}
	for i, p := range points {
		pp, ok := p.(*PatchPoint)
		if !ok || pp == nil {
			return nil, false
		}
		if i == 0 {
			out.Patch = pp.Patch
		} else if pp.Patch != out.Patch {
			return nil, false
		}
		out.Local[0] += pp.Local[0]
		out.Local[1] += pp.Local[1]
	}
	n := float64(len(points))
	out.Local[0] /= n
	out.Local[1] /= n
	return out, true
}

// Equal reports whether two points describe the same location. Points of
// unknown types compare by identity.
func Equal(a, b Point) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	pa, okA := a.(*PatchPoint)
	pb, okB := b.(*PatchPoint)
	if okA && okB {
		return *pa == *pb
	}
	return a == b
}

// Compile-time interface satisfaction checks.
var (
	_ Serializer   = PatchSerializer{}
	_ Interpolator = PatchSerializer{}
)
