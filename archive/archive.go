/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package archive extracts the files of a package tarball into memory.
//
// Extraction never fails outright. Archives that are truncated or carry
// headers that cannot be decoded produce whatever was read before the
// problem, and the reason is reported in Result.Err.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

const blockSize = 512

// Header field offsets within a 512-byte block.
const (
	nameOffset     = 0
	nameLength     = 100
	sizeOffset     = 124
	sizeLength     = 12
	typeflagOffset = 156
	magicOffset    = 257
	prefixOffset   = 345
	prefixLength   = 155
)

// ustarMagic is the POSIX magic and version. GNU headers carry
// "ustar  \x00" and keep access and change times where ustar has the
// name prefix.
var ustarMagic = []byte("ustar\x0000")

// Type flags with special handling.
const (
	typeRegular    = '0'
	typeRegularOld = 0
	typeLongName   = 'L'
	typePax        = 'x'
)

// Degradation reasons reported in Result.Err.
var (
	// ErrTruncated means the input ended inside an entry or inside the
	// compressed stream.
	ErrTruncated = errors.New("archive truncated")
	// ErrMalformed means a header could not be decoded.
	ErrMalformed = errors.New("archive malformed")
)

// File is one regular file of the archive.
type File struct {
	// Path is relative to the package root, with the archive's wrapper
	// directory removed.
	Path    string
	Content string
}

// Result is the outcome of Extract.
type Result struct {
	// Files holds one entry per path in order of first appearance. When a
	// path occurs more than once, the last occurrence's content wins.
	Files []File
	// Err is nil for a clean extraction. Otherwise Files is partial.
	Err error
}

// Degraded reports whether extraction stopped early or skipped input.
func (r Result) Degraded() bool {
	return r.Err != nil
}

// Extract decompresses data when it is gzip or zlib compressed and reads
// the tar stream inside. Input that is not compressed is read as a raw
// tar stream.
func Extract(data []byte) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()

	raw, err := Decompress(data)
	result = parse(raw)
	if result.Err == nil {
		result.Err = err
	}
	return result
}

// Decompress inflates gzip or zlib input. Anything else is returned as is.
// A stream that ends early yields the bytes inflated so far together with
// ErrTruncated.
func Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	if zr, err := gzip.NewReader(bytes.NewReader(data)); err == nil {
		return inflate(zr, data)
	}
	if zr, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
		return inflate(zr, data)
	}
	return data, nil
}

func inflate(r io.ReadCloser, original []byte) ([]byte, error) {
	defer r.Close()
	out, err := io.ReadAll(r)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, io.ErrUnexpectedEOF) && len(out) > 0:
		return out, ErrTruncated
	case len(out) > 0:
		// Checksum and trailer errors arrive after the payload.
		return out, fmt.Errorf("%w: %v", ErrTruncated, err)
	default:
		return original, nil
	}
}

// header is the decoded subset of a tar header block.
type header struct {
	name     string
	size     int64
	typeflag byte
}

type extractor struct {
	files []File
	index map[string]int
}

func (e *extractor) add(path, content string) {
	if i, ok := e.index[path]; ok {
		e.files[i].Content = content
		return
	}
	e.index[path] = len(e.files)
	e.files = append(e.files, File{Path: path, Content: content})
}

func parse(data []byte) Result {
	e := &extractor{index: make(map[string]int)}
	var longName string
	offset := 0

	for len(data)-offset >= blockSize {
		block := data[offset : offset+blockSize]
		if isZeroBlock(block) {
			break
		}
		hdr, err := parseHeader(block)
		if err != nil {
			return Result{Files: e.files, Err: fmt.Errorf("%w: header at offset %d: %v", ErrMalformed, offset, err)}
		}
		offset += blockSize

		remaining := int64(len(data) - offset)
		truncated := hdr.size > remaining
		content := data[offset : offset+int(min(hdr.size, remaining))]

		switch hdr.typeflag {
		case typeLongName:
			longName = cString(content)
		case typePax:
			if p := paxPath(content); p != "" {
				longName = p
			}
		case typeRegular, typeRegularOld:
			name := hdr.name
			if longName != "" {
				name = longName
			}
			longName = ""
			if path := stripRoot(name); path != "" && hdr.size > 0 {
				e.add(path, string(content))
			}
		default:
			longName = ""
		}

		if truncated {
			return Result{Files: e.files, Err: fmt.Errorf("%w: entry %q needs %d bytes, %d remain", ErrTruncated, hdr.name, hdr.size, remaining)}
		}
		offset += int(padded(hdr.size))
	}

	return Result{Files: e.files}
}

func parseHeader(block []byte) (header, error) {
	size, err := parseSize(block[sizeOffset : sizeOffset+sizeLength])
	if err != nil {
		return header{}, err
	}
	name := cString(block[nameOffset : nameOffset+nameLength])
	if bytes.Equal(block[magicOffset:magicOffset+len(ustarMagic)], ustarMagic) {
		if prefix := cString(block[prefixOffset : prefixOffset+prefixLength]); prefix != "" {
			name = prefix + "/" + name
		}
	}
	return header{
		name:     name,
		size:     size,
		typeflag: block[typeflagOffset],
	}, nil
}

// parseSize decodes the size field. Octal text is read up to the first
// character that is not an octal digit. A set high bit selects the GNU
// base-256 encoding.
func parseSize(field []byte) (int64, error) {
	if field[0]&0x80 != 0 {
		if field[0]&0x40 != 0 {
			return 0, errors.New("negative size")
		}
		var n int64
		for i, b := range field {
			if i == 0 {
				b &= 0x7f
			}
			if n > (1<<55)-1 {
				return 0, errors.New("size overflows")
			}
			n = n<<8 | int64(b)
		}
		return n, nil
	}

	s := strings.TrimLeft(string(field), " \x00")
	var n int64
	digits := 0
	for _, c := range s {
		if c < '0' || c > '7' {
			break
		}
		if n > (1<<60)-1 {
			return 0, errors.New("size overflows")
		}
		n = n<<3 | int64(c-'0')
		digits++
	}
	if digits == 0 {
		return 0, fmt.Errorf("invalid size field %q", field)
	}
	return n, nil
}

// paxPath returns the path record of a pax extended header, if any.
// Records have the form "<length> <key>=<value>\n".
func paxPath(content []byte) string {
	for len(content) > 0 {
		sp := bytes.IndexByte(content, ' ')
		if sp < 0 {
			return ""
		}
		var n int
		if _, err := fmt.Sscanf(string(content[:sp]), "%d", &n); err != nil || n <= sp || n > len(content) {
			return ""
		}
		record := strings.TrimSuffix(string(content[sp+1:n]), "\n")
		if key, value, ok := strings.Cut(record, "="); ok && key == "path" {
			return value
		}
		content = content[n:]
	}
	return ""
}

// stripRoot removes the first path segment, the wrapper directory that
// npm tarballs put around the package ("package/" by convention).
func stripRoot(name string) string {
	name = strings.TrimPrefix(name, "./")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func padded(size int64) int64 {
	return (size + blockSize - 1) / blockSize * blockSize
}

func isZeroBlock(block []byte) bool {
	for _, b := range block {
		if b != 0 {
			return false
		}
	}
	return true
}
