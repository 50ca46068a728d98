package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// typeLayout is the host-shareable size and alignment of a WGSL type.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
type typeLayout struct {
	size  uint64
	align uint64
}

// stride is the distance between consecutive elements of an array of this type.
func (l typeLayout) stride() uint64 {
	return alignTo(l.align, l.size)
}

// alignTo rounds value up to a multiple of a power-of-two alignment.
func alignTo(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// parseWGSLInt parses an integer literal with an optional i/u suffix.
func parseWGSLInt(lit string) (int, error) {
	lit = strings.TrimRight(lit, "iu")
	n, err := strconv.ParseInt(lit, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("wgsl: bad integer %q", lit)
	}
	return int(n), nil
}

// splitGeneric splits "name<a, b>" into "name" and its top-level arguments.
func splitGeneric(typ string) (string, []string) {
	open := strings.IndexByte(typ, '<')
	if open < 0 || !strings.HasSuffix(typ, ">") {
		return typ, nil
	}
	var args []string
	depth, start := 0, open+1
	inner := typ[:len(typ)-1]
	for i := open + 1; i < len(inner); i++ {
		switch inner[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(inner[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(inner[start:]))
	return typ[:open], args
}

// scalarBytes is the size of the WGSL scalar types usable in buffers.
var scalarBytes = map[string]uint64{"f32": 4, "i32": 4, "u32": 4, "f16": 2, "bool": 4}

// vectorShape decodes vecN<T> and the vecNf, vecNi, vecNu, vecNh shorthands.
func vectorShape(typ string) (n int, scalar string, ok bool) {
	base, args := splitGeneric(typ)
	if len(base) < 4 || !strings.HasPrefix(base, "vec") || base[3] < '2' || base[3] > '4' {
		return 0, "", false
	}
	n = int(base[3] - '0')
	switch {
	case len(base) == 4 && len(args) == 1:
		scalar = args[0]
	case len(base) == 5 && args == nil:
		scalar = map[byte]string{'f': "f32", 'i': "i32", 'u': "u32", 'h': "f16"}[base[4]]
	}
	if _, known := scalarBytes[scalar]; !known {
		return 0, "", false
	}
	return n, scalar, true
}

func vectorLayout(n int, scalar string) typeLayout {
	s := scalarBytes[scalar]
	lanes := uint64(n)
	if n == 3 {
		lanes = 4
	}
	return typeLayout{size: uint64(n) * s, align: lanes * s}
}

// matrixShape decodes matCxR<T> and the matCxRf, matCxRh shorthands.
func matrixShape(typ string) (cols, rows int, scalar string, ok bool) {
	base, args := splitGeneric(typ)
	if len(base) < 6 || !strings.HasPrefix(base, "mat") || base[4] != 'x' {
		return 0, 0, "", false
	}
	cols, rows = int(base[3]-'0'), int(base[5]-'0')
	if cols < 2 || cols > 4 || rows < 2 || rows > 4 {
		return 0, 0, "", false
	}
	switch {
	case len(base) == 6 && len(args) == 1:
		scalar = args[0]
	case len(base) == 7 && args == nil:
		scalar = map[byte]string{'f': "f32", 'h': "f16"}[base[6]]
	}
	if scalar != "f32" && scalar != "f16" {
		return 0, 0, "", false
	}
	return cols, rows, scalar, true
}

// layoutOf computes the layout of a type. A runtime-sized array counts as one element, which
// is the smallest binding a shader can index. Struct layouts are memoized in known.
//
// Parameters:
//   - typ: a canonical type spelling from the module outline
//   - m: the module whose structs the type may name
//   - known: struct layouts computed so far
//
// Returns:
//   - typeLayout: the size and alignment
//   - error: an unknown or non host-shareable type
func layoutOf(typ string, m *wgslModule, known map[string]typeLayout) (typeLayout, error) {
	if s, ok := scalarBytes[typ]; ok {
		return typeLayout{size: s, align: s}, nil
	}
	if n, scalar, ok := vectorShape(typ); ok {
		return vectorLayout(n, scalar), nil
	}
	if cols, rows, scalar, ok := matrixShape(typ); ok {
		col := vectorLayout(rows, scalar)
		return typeLayout{size: uint64(cols) * col.stride(), align: col.align}, nil
	}

	if base, args := splitGeneric(typ); base == "array" && len(args) >= 1 {
		elem, err := layoutOf(args[0], m, known)
		if err != nil {
			return typeLayout{}, err
		}
		count := 1
		if len(args) == 2 {
			if count, err = parseWGSLInt(args[1]); err != nil || count <= 0 {
				return typeLayout{}, fmt.Errorf("wgsl: array count %q", args[1])
			}
		}
		return typeLayout{size: uint64(count) * elem.stride(), align: elem.align}, nil
	}

	if l, ok := known[typ]; ok {
		return l, nil
	}
	s, ok := m.structs[typ]
	if !ok {
		return typeLayout{}, fmt.Errorf("wgsl: unknown type %q", typ)
	}
	l, err := structLayout(s, m, known)
	if err != nil {
		return typeLayout{}, err
	}
	known[typ] = l
	return l, nil
}

// structLayout places members at their aligned offsets. @size and @align member attributes
// override the natural layout. A trailing runtime-sized array contributes its prefix only,
// unless it is the sole member.
func structLayout(s *wgslStruct, m *wgslModule, known map[string]typeLayout) (typeLayout, error) {
	if _, busy := known[s.name+"#"]; busy {
		return typeLayout{}, fmt.Errorf("wgsl: struct %s contains itself", s.name)
	}
	known[s.name+"#"] = typeLayout{}
	defer delete(known, s.name+"#")

	var offset uint64
	align := uint64(1)
	for i, mem := range s.members {
		if _, builtin := attr(mem.attrs, "builtin"); builtin {
			continue
		}
		l, err := layoutOf(mem.typ, m, known)
		if err != nil {
			return typeLayout{}, fmt.Errorf("struct %s member %s: %w", s.name, mem.name, err)
		}
		if v, ok := intAttr(mem.attrs, "align"); ok && v > 0 {
			l.align = uint64(v)
		}
		if v, ok := intAttr(mem.attrs, "size"); ok && v > 0 {
			l.size = uint64(v)
		}
		align = max(align, l.align)
		offset = alignTo(l.align, offset)

		if base, args := splitGeneric(mem.typ); base == "array" && len(args) == 1 && i == len(s.members)-1 && offset > 0 {
			break
		}
		offset += l.size
	}
	return typeLayout{size: alignTo(align, offset), align: align}, nil
}
