package sink

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/matzehuels/blendgen/pkg/ndarray"
)

// npyMagic opens every .npy file.
const npyMagic = "\x93NUMPY"

var npyShapeRegex = regexp.MustCompile(`'shape':\s*\(([^)]*)\)`)

// WriteNPY writes a in NumPy .npy format 1.0 as little-endian float64.
func WriteNPY(w io.Writer, a *ndarray.Array) error {
	dims := make([]string, a.NDim())
	for i, d := range a.Shape() {
		dims[i] = strconv.Itoa(d)
	}
	shape := strings.Join(dims, ", ")
	if len(dims) == 1 {
		shape += ","
	}
	header := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': (%s), }", shape)

	// magic, version and length prefix plus header and newline align to 64.
	const prefix = len(npyMagic) + 4
	pad := 64 - (prefix+len(header)+1)%64
	if pad == 64 {
		pad = 0
	}
	header += strings.Repeat(" ", pad) + "\n"

	bw := bufio.NewWriter(w)
	bw.WriteString(npyMagic)
	bw.Write([]byte{1, 0})
	binary.Write(bw, binary.LittleEndian, uint16(len(header)))
	bw.WriteString(header)
	if err := binary.Write(bw, binary.LittleEndian, a.Data()); err != nil {
		return fmt.Errorf("write npy data: %w", err)
	}
	return bw.Flush()
}

// ReadNPY reads a little-endian float64 C-order .npy file.
func ReadNPY(r io.Reader) (*ndarray.Array, error) {
	var pre [10]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return nil, fmt.Errorf("read npy preamble: %w", err)
	}
	if string(pre[:6]) != npyMagic {
		return nil, fmt.Errorf("not an npy file")
	}
	if pre[6] != 1 {
		return nil, fmt.Errorf("unsupported npy version %d.%d", pre[6], pre[7])
	}
	header := make([]byte, binary.LittleEndian.Uint16(pre[8:]))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read npy header: %w", err)
	}
	h := string(header)
	if !strings.Contains(h, "'descr': '<f8'") || strings.Contains(h, "'fortran_order': True") {
		return nil, fmt.Errorf("unsupported npy header %q", strings.TrimSpace(h))
	}
	m := npyShapeRegex.FindStringSubmatch(h)
	if m == nil {
		return nil, fmt.Errorf("npy header has no shape")
	}

	var shape []int
	size := 1
	for _, f := range strings.Split(m[1], ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		d, err := strconv.Atoi(f)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("bad npy dimension %q", f)
		}
		shape = append(shape, d)
		size *= d
	}

	data := make([]float64, size)
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("read npy data: %w", err)
	}
	return ndarray.FromData(data, shape...)
}
