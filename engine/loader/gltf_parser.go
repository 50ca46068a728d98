package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupported is returned for valid glTF content the importer does not handle
	// (non-triangle primitives, sparse accessors, required extensions).
	ErrUnsupported = errors.New("unsupported glTF feature")

	// ErrMalformed is returned when the document references data that does not exist.
	ErrMalformed = errors.New("malformed glTF")

	errInvalidVersion = errors.New("invalid glTF version: must be 2.x")
	errInvalidGLB     = errors.New("invalid GLB container")
)

// gltfFile is a parsed document with every buffer resolved to bytes.
type gltfFile struct {
	doc     gltfDocument
	baseDir string // external buffers and images resolve against this directory; empty disables them
	bin     []byte // GLB binary chunk
}

// parseGLTF decodes a .gltf JSON document or a .glb container, detected by the GLB magic.
//
// Parameters:
//   - data: the file contents
//   - baseDir: directory for relative URIs, empty when the data has no file of origin
//
// Returns:
//   - *gltfFile: the document with its buffers loaded
//   - error: a parse error, ErrMalformed or ErrUnsupported
func parseGLTF(data []byte, baseDir string) (*gltfFile, error) {
	f := &gltfFile{baseDir: baseDir}

	jsonData := data
	if isGLBData(data) {
		var err error
		if jsonData, f.bin, err = splitGLB(data); err != nil {
			return nil, err
		}
	}

	if err := json.Unmarshal(jsonData, &f.doc); err != nil {
		return nil, fmt.Errorf("parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(f.doc.Asset.Version, "2.") {
		return nil, errInvalidVersion
	}
	if len(f.doc.ExtensionsRequired) > 0 {
		return nil, fmt.Errorf("%w: required extensions %v", ErrUnsupported, f.doc.ExtensionsRequired)
	}
	if err := f.loadBuffers(); err != nil {
		return nil, err
	}
	return f, nil
}

// isGLBData reports whether data starts with the GLB magic.
func isGLBData(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic
}

// splitGLB returns the JSON and BIN chunks of a GLB container.
func splitGLB(data []byte) (jsonChunk, binChunk []byte, err error) {
	if len(data) < 12 {
		return nil, nil, fmt.Errorf("%w: %d byte header", errInvalidGLB, len(data))
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != glbVersion {
		return nil, nil, fmt.Errorf("%w: version %d", errInvalidGLB, v)
	}
	total := int(binary.LittleEndian.Uint32(data[8:]))
	if total > len(data) {
		return nil, nil, fmt.Errorf("%w: declared length %d exceeds %d", errInvalidGLB, total, len(data))
	}

	for off := 12; off+8 <= total; {
		n := int(binary.LittleEndian.Uint32(data[off:]))
		kind := binary.LittleEndian.Uint32(data[off+4:])
		off += 8
		if off+n > total {
			return nil, nil, fmt.Errorf("%w: chunk of %d bytes overruns the file", errInvalidGLB, n)
		}
		switch kind {
		case glbChunkJSON:
			jsonChunk = data[off : off+n]
		case glbChunkBIN:
			binChunk = data[off : off+n]
		}
		off += n
	}
	if jsonChunk == nil {
		return nil, nil, fmt.Errorf("%w: missing JSON chunk", errInvalidGLB)
	}
	return jsonChunk, binChunk, nil
}

// loadBuffers resolves every buffer from the GLB chunk, a data URI or a file next to the document.
func (f *gltfFile) loadBuffers() error {
	for i := range f.doc.Buffers {
		buf := &f.doc.Buffers[i]
		var err error
		switch {
		case buf.URI == "" && i == 0 && f.bin != nil:
			buf.data = f.bin
		case buf.URI == "":
			err = fmt.Errorf("%w: buffer %d has no data", ErrMalformed, i)
		default:
			buf.data, _, err = f.readURI(buf.URI)
		}
		if err != nil {
			return fmt.Errorf("buffer %d: %w", i, err)
		}
		if len(buf.data) < buf.ByteLength {
			return fmt.Errorf("%w: buffer %d holds %d of %d bytes", ErrMalformed, i, len(buf.data), buf.ByteLength)
		}
	}
	return nil
}

// readURI returns the bytes of a data URI or of a file relative to the document, with the
// data URI's media type.
func (f *gltfFile) readURI(uri string) ([]byte, string, error) {
	if rest, ok := strings.CutPrefix(uri, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", fmt.Errorf("%w: data URI without payload", ErrMalformed)
		}
		mediaType, isBase64 := strings.CutSuffix(header, ";base64")
		if !isBase64 {
			return nil, "", fmt.Errorf("%w: data URI encoding %q", ErrUnsupported, header)
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("decode data URI: %w", err)
		}
		return data, mediaType, nil
	}

	if f.baseDir == "" {
		return nil, "", fmt.Errorf("%w: external URI %q without a base directory", ErrUnsupported, uri)
	}
	data, err := os.ReadFile(filepath.Join(f.baseDir, filepath.FromSlash(uri)))
	if err != nil {
		return nil, "", fmt.Errorf("read %q: %w", uri, err)
	}
	return data, "", nil
}

// bufferView returns the bytes a buffer view covers.
func (f *gltfFile) bufferView(index int) ([]byte, *gltfBufferView, error) {
	if index < 0 || index >= len(f.doc.BufferViews) {
		return nil, nil, fmt.Errorf("%w: buffer view %d of %d", ErrMalformed, index, len(f.doc.BufferViews))
	}
	bv := &f.doc.BufferViews[index]
	if bv.Buffer < 0 || bv.Buffer >= len(f.doc.Buffers) {
		return nil, nil, fmt.Errorf("%w: buffer %d of %d", ErrMalformed, bv.Buffer, len(f.doc.Buffers))
	}
	data := f.doc.Buffers[bv.Buffer].data
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || bv.ByteLength < 0 || end > len(data) {
		return nil, nil, fmt.Errorf("%w: buffer view %d spans [%d, %d) of %d bytes", ErrMalformed, index, bv.ByteOffset, end, len(data))
	}
	return data[bv.ByteOffset:end], bv, nil
}

// accessorComponents returns the component count of an accessor type.
func accessorComponents(t string) int {
	switch t {
	case "SCALAR":
		return 1
	case "VEC2":
		return 2
	case "VEC3":
		return 3
	case "VEC4", "MAT2":
		return 4
	case "MAT3":
		return 9
	case "MAT4":
		return 16
	}
	return 0
}

// componentSize returns the byte size of a component type.
func componentSize(componentType int) int {
	switch componentType {
	case gltfByte, gltfUnsignedByte:
		return 1
	case gltfShort, gltfUnsignedShort:
		return 2
	case gltfUnsignedInt, gltfFloat:
		return 4
	}
	return 0
}

// elements returns one byte slice per accessor element, honoring the buffer view stride.
func (f *gltfFile) elements(index int, wantType string) ([][]byte, *gltfAccessor, error) {
	if index < 0 || index >= len(f.doc.Accessors) {
		return nil, nil, fmt.Errorf("%w: accessor %d of %d", ErrMalformed, index, len(f.doc.Accessors))
	}
	acc := &f.doc.Accessors[index]
	if acc.Type != wantType {
		return nil, nil, fmt.Errorf("%w: accessor %d is %s, want %s", ErrMalformed, index, acc.Type, wantType)
	}
	if acc.Sparse != nil {
		return nil, nil, fmt.Errorf("%w: sparse accessor %d", ErrUnsupported, index)
	}
	if acc.BufferView == nil {
		return nil, nil, fmt.Errorf("%w: accessor %d without buffer view", ErrUnsupported, index)
	}
	elemSize := componentSize(acc.ComponentType) * accessorComponents(acc.Type)
	if elemSize == 0 {
		return nil, nil, fmt.Errorf("%w: accessor %d component type %d", ErrMalformed, index, acc.ComponentType)
	}

	data, bv, err := f.bufferView(*acc.BufferView)
	if err != nil {
		return nil, nil, fmt.Errorf("accessor %d: %w", index, err)
	}
	stride := elemSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}
	if acc.Count < 0 || acc.ByteOffset < 0 {
		return nil, nil, fmt.Errorf("%w: accessor %d has count %d and byte offset %d", ErrMalformed, index, acc.Count, acc.ByteOffset)
	}
	// compare by division so huge counts cannot overflow the span
	if acc.Count > 0 {
		room := len(data) - acc.ByteOffset - elemSize
		if room < 0 || (acc.Count-1) > room/stride {
			return nil, nil, fmt.Errorf("%w: accessor %d overruns its buffer view", ErrMalformed, index)
		}
	}

	out := make([][]byte, acc.Count)
	for i := range out {
		off := acc.ByteOffset + i*stride
		out[i] = data[off : off+elemSize]
	}
	return out, acc, nil
}

// readFloats reads an accessor as float32 components. Normalized integer components map to
// [0, 1] (unsigned) or [-1, 1] (signed), as glTF requires for texture coordinates and colors.
//
// Parameters:
//   - index: the accessor index
//   - wantType: the required accessor type, e.g. "VEC3"
//
// Returns:
//   - []float32: count*components values
//   - error: ErrMalformed if the accessor is missing, mistyped or out of bounds
func (f *gltfFile) readFloats(index int, wantType string) ([]float32, error) {
	elems, acc, err := f.elements(index, wantType)
	if err != nil {
		return nil, err
	}
	n := accessorComponents(acc.Type)
	size := componentSize(acc.ComponentType)
	if acc.ComponentType != gltfFloat && !acc.Normalized {
		return nil, fmt.Errorf("%w: accessor %d is neither float nor normalized", ErrUnsupported, index)
	}

	out := make([]float32, 0, len(elems)*n)
	for _, e := range elems {
		for c := range n {
			b := e[c*size:]
			var v float32
			switch acc.ComponentType {
			case gltfFloat:
				v = math.Float32frombits(binary.LittleEndian.Uint32(b))
			case gltfUnsignedByte:
				v = float32(b[0]) / 255
			case gltfUnsignedShort:
				v = float32(binary.LittleEndian.Uint16(b)) / 65535
			case gltfByte:
				v = max(float32(int8(b[0]))/127, -1)
			case gltfShort:
				v = max(float32(int16(binary.LittleEndian.Uint16(b)))/32767, -1)
			default:
				return nil, fmt.Errorf("%w: accessor %d component type %d", ErrUnsupported, index, acc.ComponentType)
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// readIndices reads an index accessor of unsigned byte, short or int components.
func (f *gltfFile) readIndices(index int) ([]uint32, error) {
	elems, acc, err := f.elements(index, "SCALAR")
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(elems))
	for i, e := range elems {
		switch acc.ComponentType {
		case gltfUnsignedByte:
			out[i] = uint32(e[0])
		case gltfUnsignedShort:
			out[i] = uint32(binary.LittleEndian.Uint16(e))
		case gltfUnsignedInt:
			out[i] = binary.LittleEndian.Uint32(e)
		default:
			return nil, fmt.Errorf("%w: index accessor %d component type %d", ErrMalformed, index, acc.ComponentType)
		}
	}
	return out, nil
}

// imageData returns the encoded bytes of an image from a buffer view, data URI or file.
func (f *gltfFile) imageData(index int) ([]byte, error) {
	if index < 0 || index >= len(f.doc.Images) {
		return nil, fmt.Errorf("%w: image %d of %d", ErrMalformed, index, len(f.doc.Images))
	}
	img := &f.doc.Images[index]
	if img.BufferView != nil {
		data, _, err := f.bufferView(*img.BufferView)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", index, err)
		}
		return bytes.Clone(data), nil
	}
	if img.URI == "" {
		return nil, fmt.Errorf("%w: image %d has no source", ErrMalformed, index)
	}
	data, _, err := f.readURI(img.URI)
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", index, err)
	}
	return data, nil
}
