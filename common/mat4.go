package common

import "github.com/chewxy/math32"

// Mat4 is a column-major 4x4 matrix, the memory layout of a WGSL mat4x4<f32>. Element
// (row r, column c) is m[c*4+r]. Mat4 converts freely to and from [16]float32.
type Mat4 [16]float32

// Identity4 returns the identity matrix.
func Identity4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func (m Mat4) at(r, c int) float32 { return m[c*4+r] }

// Mul returns m * b.
func (m Mat4) Mul(b Mat4) Mat4 {
	var out Mat4
	for c := range 4 {
		for r := range 4 {
			var sum float32
			for k := range 4 {
				sum += m.at(r, k) * b.at(k, c)
			}
			out[c*4+r] = sum
		}
	}
	return out
}

// MulVec returns m * v.
func (m Mat4) MulVec(v [4]float32) [4]float32 {
	var out [4]float32
	for r := range 4 {
		out[r] = m.at(r, 0)*v[0] + m.at(r, 1)*v[1] + m.at(r, 2)*v[2] + m.at(r, 3)*v[3]
	}
	return out
}

// TransformPoint transforms p with w = 1 and divides by the resulting w. A zero w skips the divide.
func (m Mat4) TransformPoint(p [3]float32) [3]float32 {
	h := m.MulVec([4]float32{p[0], p[1], p[2], 1})
	if h[3] == 0 {
		return [3]float32{h[0], h[1], h[2]}
	}
	return Scale3([3]float32{h[0], h[1], h[2]}, 1/h[3])
}

// TransformDir transforms d with w = 0, ignoring translation.
func (m Mat4) TransformDir(d [3]float32) [3]float32 {
	h := m.MulVec([4]float32{d[0], d[1], d[2], 0})
	return [3]float32{h[0], h[1], h[2]}
}

// Inverse inverts m by Gauss-Jordan elimination with partial pivoting, carried out in float64.
//
// Returns:
//   - Mat4: the inverse, or the zero matrix when m is singular
//   - bool: false if m is singular
func (m Mat4) Inverse() (Mat4, bool) {
	// rows of the augmented matrix [m | I]
	var a [4][8]float64
	for r := range 4 {
		for c := range 4 {
			a[r][c] = float64(m.at(r, c))
		}
		a[r][4+r] = 1
	}

	for col := range 4 {
		pivot := col
		for r := col + 1; r < 4; r++ {
			if abs64(a[r][col]) > abs64(a[pivot][col]) {
				pivot = r
			}
		}
		if abs64(a[pivot][col]) < 1e-12 {
			return Mat4{}, false
		}
		a[col], a[pivot] = a[pivot], a[col]

		scale := 1 / a[col][col]
		for c := range 8 {
			a[col][c] *= scale
		}
		for r := range 4 {
			if r == col || a[r][col] == 0 {
				continue
			}
			f := a[r][col]
			for c := range 8 {
				a[r][c] -= f * a[col][c]
			}
		}
	}

	var out Mat4
	for r := range 4 {
		for c := range 4 {
			out[c*4+r] = float32(a[r][4+c])
		}
	}
	return out, true
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// NormalMatrix returns the inverse-transpose of the upper 3x3 of m, embedded in an otherwise
// identity matrix. Normals transformed by it stay perpendicular to surfaces under non-uniform scale.
//
// Returns:
//   - Mat4: the normal matrix, or the identity when the 3x3 is singular
//   - bool: false if the 3x3 is singular
func (m Mat4) NormalMatrix() (Mat4, bool) {
	c0 := [3]float32{m[0], m[1], m[2]}
	c1 := [3]float32{m[4], m[5], m[6]}
	c2 := [3]float32{m[8], m[9], m[10]}

	// the rows of the inverse are the cross products of column pairs over the determinant
	x, y, z := Cross3(c1, c2), Cross3(c2, c0), Cross3(c0, c1)
	det := Dot3(c0, x)
	if math32.Abs(det) < 1e-12 {
		return Identity4(), false
	}
	x, y, z = Scale3(x, 1/det), Scale3(y, 1/det), Scale3(z, 1/det)
	return Mat4{
		x[0], x[1], x[2], 0,
		y[0], y[1], y[2], 0,
		z[0], z[1], z[2], 0,
		0, 0, 0, 1,
	}, true
}

// InverseError returns the largest element of |inv*m - I|, zero when inv is exactly the inverse of m.
func InverseError(m, inv Mat4) float32 {
	prod := inv.Mul(m)
	id := Identity4()
	var worst float32
	for i := range prod {
		worst = max(worst, math32.Abs(prod[i]-id[i]))
	}
	return worst
}

// Perspective returns a right-handed projection into WebGPU clip space, where depth runs from
// 0 at the near plane to 1 at the far plane.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: width / height
//   - near: near plane distance, greater than zero
//   - far: far plane distance, greater than near
func Perspective(fovY, aspect, near, far float32) Mat4 {
	f := 1 / math32.Tan(fovY/2)
	depth := far / (near - far)
	return Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, depth, -1,
		0, 0, depth * near, 0,
	}
}

// LookAt returns the view matrix of an eye at eye looking at center. The view looks down -Z.
func LookAt(eye, center, up [3]float32) Mat4 {
	back := Normalize3(Sub3(eye, center))
	right := Normalize3(Cross3(up, back))
	camUp := Cross3(back, right)
	return Mat4{
		right[0], camUp[0], back[0], 0,
		right[1], camUp[1], back[1], 0,
		right[2], camUp[2], back[2], 0,
		-Dot3(right, eye), -Dot3(camUp, eye), -Dot3(back, eye), 1,
	}
}

// TRS returns the model matrix translate(pos) * Ry * Rx * Rz * scale(scale), with rotation
// angles in radians.
func TRS(pos, rot, scale [3]float32) Mat4 {
	sx, cx := math32.Sincos(rot[0])
	sy, cy := math32.Sincos(rot[1])
	sz, cz := math32.Sincos(rot[2])

	rx := Mat4{1, 0, 0, 0, 0, cx, sx, 0, 0, -sx, cx, 0, 0, 0, 0, 1}
	ry := Mat4{cy, 0, -sy, 0, 0, 1, 0, 0, sy, 0, cy, 0, 0, 0, 0, 1}
	rz := Mat4{cz, sz, 0, 0, -sz, cz, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

	m := ry.Mul(rx).Mul(rz)
	for c := range 3 {
		for r := range 3 {
			m[c*4+r] *= scale[c]
		}
	}
	m[12], m[13], m[14] = pos[0], pos[1], pos[2]
	return m
}

// Unproject maps a normalized device coordinate to world space. x and y are in [-1, 1], z is
// clip depth in [0, 1].
func Unproject(unprojView Mat4, x, y, z float32) [3]float32 {
	return unprojView.TransformPoint([3]float32{x, y, z})
}
