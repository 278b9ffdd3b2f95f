/*
Package io handles everything which touches the disk: the .npy array files
that sequences and metadata are stored in, the buffered SequenceWriter, config
files and the per-split manifests and trajectory tables.
*/
package io

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadNpy reads a single array in the .npy format from rd. Only C-ordered
// arrays with the element types supported by Array can be read.
func ReadNpy(rd io.Reader) (*Array, error) {
	br := bufio.NewReader(rd)

	magic := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("reading npy magic: %w", err)
	}
	if string(magic[:len(npyMagic)]) != npyMagic {
		return nil, fmt.Errorf("not an npy file")
	}

	var headerLen int
	switch major := magic[len(npyMagic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(br, end, &n); err != nil {
			return nil, err
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(br, end, &n); err != nil {
			return nil, err
		}
		headerLen = int(n)
	default:
		return nil, fmt.Errorf("unsupported npy version %d", major)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("reading npy header: %w", err)
	}

	t, shape, err := parseHeader(string(header))
	if err != nil {
		return nil, err
	}

	a := NewArray(t, shape...)
	if err := binary.Read(br, end, a.data()); err != nil {
		return nil, fmt.Errorf("reading %s%v payload: %w", t, shape, err)
	}
	return a, nil
}

// ReadNpyFile reads the array stored in the named file.
func ReadNpyFile(fname string) (*Array, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	a, err := ReadNpy(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	return a, nil
}

func parseHeader(header string) (DType, []int, error) {
	descr, ok := dictValue(header, "descr")
	if !ok {
		return 0, nil, fmt.Errorf("npy header '%s' has no descr", header)
	}
	descr = strings.Trim(descr, "'\"")

	t := DType(-1)
	for i, d := range descrs {
		// Single byte types may be written with any byte order character.
		if d == descr || (i == int(Uint8) && len(descr) == 3 && descr[1:] == "u1") {
			t = DType(i)
		}
	}
	if t < 0 {
		return 0, nil, fmt.Errorf("unsupported npy descr '%s'", descr)
	}

	if fo, _ := dictValue(header, "fortran_order"); fo != "False" {
		return 0, nil, fmt.Errorf("fortran ordered arrays are not supported")
	}

	shapeStr, ok := dictValue(header, "shape")
	if !ok {
		return 0, nil, fmt.Errorf("npy header '%s' has no shape", header)
	}
	shapeStr = strings.Trim(shapeStr, "()")
	shape := []int{}
	for _, tok := range strings.Split(shapeStr, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		d, err := strconv.Atoi(tok)
		if err != nil || d < 0 {
			return 0, nil, fmt.Errorf("invalid npy shape '(%s)'", shapeStr)
		}
		shape = append(shape, d)
	}

	return t, shape, nil
}

// dictValue returns the raw text of the value associated with key in a python
// dict literal whose values are strings, booleans or tuples.
func dictValue(dict, key string) (string, bool) {
	i := strings.Index(dict, "'"+key+"'")
	if i < 0 {
		return "", false
	}
	rest := dict[i+len(key)+2:]
	j := strings.Index(rest, ":")
	if j < 0 {
		return "", false
	}
	rest = strings.TrimSpace(rest[j+1:])
	if rest == "" {
		return "", false
	}

	switch rest[0] {
	case '(':
		k := strings.Index(rest, ")")
		if k < 0 {
			return "", false
		}
		return rest[:k+1], true
	case '\'', '"':
		k := strings.IndexByte(rest[1:], rest[0])
		if k < 0 {
			return "", false
		}
		return rest[:k+2], true
	}

	k := strings.IndexAny(rest, ",}")
	if k < 0 {
		return strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:k]), true
}
