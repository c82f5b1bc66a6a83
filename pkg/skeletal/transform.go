package skeletal

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a decomposed local transform.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

// IdentityTransform returns the rest transform with no offset, rotation or scaling.
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Mat4 composes translation * rotation * scale.
func (t Transform) Mat4() mgl32.Mat4 {
	m := mgl32.Translate3D(t.Translation[0], t.Translation[1], t.Translation[2])
	m = m.Mul4(t.Rotation.Normalize().Mat4())
	return m.Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

// Decompose splits an affine column-major matrix into translation, rotation and
// scale. Shear is discarded.
func Decompose(m mgl32.Mat4) Transform {
	t := Transform{
		Translation: mgl32.Vec3{m[12], m[13], m[14]},
	}

	sx := mgl32.Vec3{m[0], m[1], m[2]}.Len()
	sy := mgl32.Vec3{m[4], m[5], m[6]}.Len()
	sz := mgl32.Vec3{m[8], m[9], m[10]}.Len()

	// A mirrored basis carries its sign on the x scale.
	if m.Mat3().Det() < 0 {
		sx = -sx
	}
	t.Scale = mgl32.Vec3{sx, sy, sz}

	if math.Abs(float64(sx)) < 1e-6 {
		sx = 1
	}
	if sy < 1e-6 {
		sy = 1
	}
	if sz < 1e-6 {
		sz = 1
	}

	rot := mgl32.Mat4{
		m[0] / sx, m[1] / sx, m[2] / sx, 0,
		m[4] / sy, m[5] / sy, m[6] / sy, 0,
		m[8] / sz, m[9] / sz, m[10] / sz, 0,
		0, 0, 0, 1,
	}
	t.Rotation = mgl32.Mat4ToQuat(rot).Normalize()
	return t
}

// Interpolate blends a toward b: linear for translation and scale,
// shortest-path spherical for rotation.
func Interpolate(a, b Transform, f float32) Transform {
	return Transform{
		Translation: LerpVec3(a.Translation, b.Translation, f),
		Rotation:    Slerp(a.Rotation, b.Rotation, f),
		Scale:       LerpVec3(a.Scale, b.Scale, f),
	}
}

// LerpVec3 interpolates linearly between two vectors.
func LerpVec3(a, b mgl32.Vec3, f float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(f))
}

// Slerp interpolates two rotations along the shorter arc.
func Slerp(a, b mgl32.Quat, f float32) mgl32.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl32.QuatSlerp(a, b, f).Normalize()
}
