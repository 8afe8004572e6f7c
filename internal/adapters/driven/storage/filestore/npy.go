package filestore

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Minimal reader and writer for NumPy .npy version 1.0 files holding a
// 2-D little-endian float32 matrix, so embeddings can be inspected with numpy.load.

var npyMagic = []byte("\x93NUMPY")

const (
	npyAlign = 64

	// Limits applied to the untrusted header before anything is allocated.
	npyMaxHeader   = 1 << 16
	npyMaxDim      = 1 << 16
	npyMaxElements = 1 << 31
	npyRowChunk    = 1 << 12
)

var (
	npyDescr = regexp.MustCompile(`'descr':\s*'([^']+)'`)
	npyOrder = regexp.MustCompile(`'fortran_order':\s*(True|False)`)
	npyShape = regexp.MustCompile(`'shape':\s*\(\s*(\d+)\s*,\s*(\d*)\s*,?\s*\)`)
)

func writeNPY(w io.Writer, rows [][]float32, dim int) error {
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", len(rows), dim)
	// magic(6) + version(2) + header length(2) + header + '\n' must be aligned.
	total := len(npyMagic) + 4 + len(header) + 1
	if pad := total % npyAlign; pad != 0 {
		header += strings.Repeat(" ", npyAlign-pad)
	}
	header += "\n"

	bw := bufio.NewWriter(w)
	bw.Write(npyMagic)
	bw.Write([]byte{1, 0})
	_ = binary.Write(bw, binary.LittleEndian, uint16(len(header)))
	bw.WriteString(header)

	buf := make([]byte, 4)
	for i, row := range rows {
		if len(row) != dim {
			return fmt.Errorf("row %d has %d entries, expected %d", i, len(row), dim)
		}
		for _, v := range row {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func readNPY(r io.Reader) ([][]float32, error) {
	br := bufio.NewReader(r)

	prefix := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(br, prefix); err != nil {
		return nil, fmt.Errorf("read npy preamble: %w", err)
	}
	if !bytes.Equal(prefix[:len(npyMagic)], npyMagic) {
		return nil, fmt.Errorf("not an npy file")
	}

	var headerLen int
	switch major := prefix[len(npyMagic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("read npy header length: %w", err)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("read npy header length: %w", err)
		}
		headerLen = int(n)
	default:
		return nil, fmt.Errorf("unsupported npy version %d", major)
	}

	if headerLen > npyMaxHeader {
		return nil, fmt.Errorf("npy header length %d exceeds %d", headerLen, npyMaxHeader)
	}
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("read npy header: %w", err)
	}

	descr := npyDescr.FindSubmatch(header)
	if descr == nil || string(descr[1]) != "<f4" {
		return nil, fmt.Errorf("unsupported npy dtype in header %q", header)
	}
	if order := npyOrder.FindSubmatch(header); order != nil && string(order[1]) == "True" {
		return nil, fmt.Errorf("fortran-ordered npy arrays are not supported")
	}
	shape := npyShape.FindSubmatch(header)
	if shape == nil || len(shape[2]) == 0 {
		return nil, fmt.Errorf("npy array is not 2-D: %q", header)
	}
	rows, err := strconv.Atoi(string(shape[1]))
	if err != nil {
		return nil, fmt.Errorf("parse npy shape: %w", err)
	}
	dim, err := strconv.Atoi(string(shape[2]))
	if err != nil {
		return nil, fmt.Errorf("parse npy shape: %w", err)
	}

	if dim == 0 || dim > npyMaxDim {
		return nil, fmt.Errorf("npy row width %d out of range", dim)
	}
	if rows > npyMaxElements/dim {
		return nil, fmt.Errorf("npy shape (%d, %d) exceeds %d elements", rows, dim, npyMaxElements)
	}

	out := make([][]float32, 0, min(rows, npyRowChunk))
	buf := make([]byte, 4*dim)
	for i := 0; i < rows; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("read npy row %d of %d: %w", i, rows, err)
		}
		row := make([]float32, dim)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*j:]))
		}
		out = append(out, row)
	}
	return out, nil
}
