package mask

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/ironsheep/image-watermark-mcp/internal/imaging"
)

// The mask array is stored in NumPy's .npy format, version 1.0: a magic
// string, a little-endian header length and a Python dict literal describing
// dtype and shape, followed by the raw row-major bytes.
var npyMagic = []byte("\x93NUMPY")

const npyAlign = 64

// Limits on arrays accepted by ReadNPY.
const (
	MaxDimension = 1 << 15
	maxNPYPixels = 1 << 28
)

var (
	npyDescrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	npyFortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	npyShapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// WriteNPY writes m as a 2-D uint8 array of shape (Height, Width).
func WriteNPY(w io.Writer, m *Mask) error {
	header := fmt.Sprintf("{'descr': '|u1', 'fortran_order': False, 'shape': (%d, %d), }", m.Height, m.Width)
	// magic(6) + version(2) + length(2) + header + '\n' rounds up to npyAlign
	pad := npyAlign - (len(npyMagic)+4+len(header)+1)%npyAlign
	if pad == npyAlign {
		pad = 0
	}
	header += strings.Repeat(" ", pad) + "\n"

	bw := bufio.NewWriter(w)
	bw.Write(npyMagic)
	bw.Write([]byte{1, 0})
	binary.Write(bw, binary.LittleEndian, uint16(len(header)))
	bw.WriteString(header)
	bw.Write(m.Bits)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write npy data: %w", err)
	}
	return nil
}

// ReadNPY reads a 2-D one-byte array written by WriteNPY or by NumPy
// (uint8, int8 or bool dtype, C order). Every value must be 0 or 1.
// Failures wrap ErrInput.
func ReadNPY(r io.Reader) (*Mask, error) {
	br := bufio.NewReader(r)

	pre := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(br, pre); err != nil {
		return nil, npyErr("short preamble: %v", err)
	}
	if !bytes.Equal(pre[:len(npyMagic)], npyMagic) {
		return nil, npyErr("not an npy file")
	}

	var hlen int
	switch major := pre[len(npyMagic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, npyErr("short header length: %v", err)
		}
		hlen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, npyErr("short header length: %v", err)
		}
		hlen = int(n)
	default:
		return nil, npyErr("unsupported npy version %d", major)
	}

	hdr := make([]byte, hlen)
	if _, err := io.ReadFull(br, hdr); err != nil {
		return nil, npyErr("short header: %v", err)
	}
	header := string(hdr)

	descr := npyDescrRe.FindStringSubmatch(header)
	if descr == nil {
		return nil, npyErr("header has no descr")
	}
	switch descr[1] {
	case "|u1", "<u1", ">u1", "u1", "|i1", "|b1":
	default:
		return nil, npyErr("unsupported dtype %q, want one byte per value", descr[1])
	}
	if m := npyFortranRe.FindStringSubmatch(header); m != nil && m[1] == "True" {
		return nil, npyErr("fortran-ordered arrays are not supported")
	}

	shape := npyShapeRe.FindStringSubmatch(header)
	if shape == nil {
		return nil, npyErr("header has no shape")
	}
	dims, err := parseShape(shape[1])
	if err != nil {
		return nil, err
	}
	if len(dims) != 2 {
		return nil, npyErr("want a 2-D array, got shape (%s)", shape[1])
	}

	for _, d := range dims {
		if d < 1 || d > MaxDimension {
			return nil, npyErr("shape (%s) out of range 1..%d", shape[1], MaxDimension)
		}
	}
	if dims[0]*dims[1] > maxNPYPixels {
		return nil, npyErr("shape (%s) exceeds %d pixels", shape[1], maxNPYPixels)
	}

	m := &Mask{Height: dims[0], Width: dims[1]}
	m.Bits = make([]uint8, m.Width*m.Height)
	if _, err := io.ReadFull(br, m.Bits); err != nil {
		return nil, npyErr("short data: %v", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func parseShape(s string) ([]int, error) {
	var dims []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(part, "L"))
		if err != nil || n < 0 {
			return nil, npyErr("bad shape entry %q", part)
		}
		dims = append(dims, n)
	}
	return dims, nil
}

func npyErr(format string, args ...any) error {
	return fmt.Errorf("npy: "+format+": %w", append(args, imaging.ErrInput)...)
}
