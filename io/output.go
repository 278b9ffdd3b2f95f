package io

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
)

var end = binary.LittleEndian

// DType is the element type of an Array.
type DType int

const (
	Uint8 DType = iota
	Int32
	Float32
)

// npy type descriptors, indexed by DType.
var descrs = [...]string{"|u1", "<i4", "<f4"}

func (t DType) String() string {
	switch t {
	case Uint8:
		return "uint8"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	}
	return fmt.Sprintf("DType(%d)", int(t))
}

// Size returns the number of bytes in a single element.
func (t DType) Size() int {
	switch t {
	case Uint8:
		return 1
	case Int32, Float32:
		return 4
	}
	return 0
}

func (t DType) valid() bool { return t >= Uint8 && t <= Float32 }

// Array is a dense, row-major, n-dimensional array. Only the slice matching
// Type is used.
type Array struct {
	Shape []int
	Type  DType

	Uint8s   []uint8
	Int32s   []int32
	Float32s []float32
}

// NewArray allocates a zeroed array with the given type and shape.
func NewArray(t DType, shape ...int) *Array {
	a := &Array{Shape: append([]int{}, shape...), Type: t}
	n := a.Len()
	switch t {
	case Uint8:
		a.Uint8s = make([]uint8, n)
	case Int32:
		a.Int32s = make([]int32, n)
	case Float32:
		a.Float32s = make([]float32, n)
	default:
		panic(fmt.Sprintf("unknown dtype %d", int(t)))
	}
	return a
}

// Len returns the number of elements in the array.
func (a *Array) Len() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// SameLayout returns true if two arrays have the same type and shape.
func (a *Array) SameLayout(b *Array) bool {
	if a.Type != b.Type || len(a.Shape) != len(b.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	return true
}

// Copy returns a deep copy of the array.
func (a *Array) Copy() *Array {
	b := NewArray(a.Type, a.Shape...)
	switch a.Type {
	case Uint8:
		copy(b.Uint8s, a.Uint8s)
	case Int32:
		copy(b.Int32s, a.Int32s)
	case Float32:
		copy(b.Float32s, a.Float32s)
	}
	return b
}

// Clear sets every element to zero.
func (a *Array) Clear() {
	switch a.Type {
	case Uint8:
		clear(a.Uint8s)
	case Int32:
		clear(a.Int32s)
	case Float32:
		clear(a.Float32s)
	}
}

// NonZero returns the number of non-zero elements.
func (a *Array) NonZero() int {
	n := 0
	switch a.Type {
	case Uint8:
		for _, x := range a.Uint8s {
			if x != 0 {
				n++
			}
		}
	case Int32:
		for _, x := range a.Int32s {
			if x != 0 {
				n++
			}
		}
	case Float32:
		for _, x := range a.Float32s {
			if x != 0 {
				n++
			}
		}
	}
	return n
}

func (a *Array) data() any {
	switch a.Type {
	case Uint8:
		return a.Uint8s
	case Int32:
		return a.Int32s
	case Float32:
		return a.Float32s
	}
	return nil
}

func (a *Array) check() error {
	if !a.Type.valid() {
		return fmt.Errorf("unknown dtype %d", int(a.Type))
	}
	for _, d := range a.Shape {
		if d < 0 {
			return fmt.Errorf("negative dimension in shape %v", a.Shape)
		}
	}
	n := 0
	switch a.Type {
	case Uint8:
		n = len(a.Uint8s)
	case Int32:
		n = len(a.Int32s)
	case Float32:
		n = len(a.Float32s)
	}
	if n != a.Len() {
		return fmt.Errorf(
			"%s array with shape %v holds %d elements, expected %d",
			a.Type, a.Shape, n, a.Len(),
		)
	}
	return nil
}

// Stack joins arrays with identical layouts along a new leading axis.
func Stack(arrs []*Array) (*Array, error) {
	if len(arrs) == 0 {
		return nil, fmt.Errorf("cannot stack zero arrays")
	}

	first := arrs[0]
	shape := append([]int{len(arrs)}, first.Shape...)
	out := NewArray(first.Type, shape...)
	n := first.Len()

	for i, a := range arrs {
		if !a.SameLayout(first) {
			return nil, fmt.Errorf(
				"array %d has layout %s%v, but array 0 has %s%v",
				i, a.Type, a.Shape, first.Type, first.Shape,
			)
		}
		switch a.Type {
		case Uint8:
			copy(out.Uint8s[i*n:(i+1)*n], a.Uint8s)
		case Int32:
			copy(out.Int32s[i*n:(i+1)*n], a.Int32s)
		case Float32:
			copy(out.Float32s[i*n:(i+1)*n], a.Float32s)
		}
	}
	return out, nil
}

/*
The .npy (version 1.0) format is laid out as follows:
    |-- 1 --||-- 2 --||-- 3 --||-- ... 4 ... --||-- ... 5 ... --|

    1 - The magic string "\x93NUMPY".
    2 - (uint8, uint8) Major and minor version numbers.
    3 - (uint16) Length of the header dictionary, little endian.
    4 - An ASCII python dict literal with the keys 'descr', 'fortran_order'
        and 'shape', padded with spaces and terminated by a newline so that
        the payload starts on a 64 byte boundary.
    5 - The array elements in C order.
*/

const (
	npyMagic     = "\x93NUMPY"
	npyAlignment = 64
)

func npyHeader(a *Array) []byte {
	dims := make([]string, len(a.Shape))
	for i, d := range a.Shape {
		dims[i] = fmt.Sprintf("%d", d)
	}
	shape := strings.Join(dims, ", ")
	if len(dims) == 1 {
		shape += ","
	}

	dict := fmt.Sprintf(
		"{'descr': '%s', 'fortran_order': False, 'shape': (%s), }",
		descrs[a.Type], shape,
	)

	// magic + version + header length + dict + newline.
	prefix := len(npyMagic) + 2 + 2
	total := prefix + len(dict) + 1
	if rem := total % npyAlignment; rem != 0 {
		dict += strings.Repeat(" ", npyAlignment-rem)
	}
	dict += "\n"

	buf := &bytes.Buffer{}
	buf.WriteString(npyMagic)
	buf.Write([]byte{1, 0})
	binary.Write(buf, end, uint16(len(dict)))
	buf.WriteString(dict)
	return buf.Bytes()
}

// WriteNpy writes an array to wr in the .npy format.
func WriteNpy(wr io.Writer, a *Array) error {
	if err := a.check(); err != nil {
		return err
	}
	if _, err := wr.Write(npyHeader(a)); err != nil {
		return err
	}
	return binary.Write(wr, end, a.data())
}

// WriteNpyFile writes an array to the named file, replacing anything already
// there.
func WriteNpyFile(fname string, a *Array) error {
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	if err = WriteNpy(f, a); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", fname, err)
	}
	return f.Close()
}
