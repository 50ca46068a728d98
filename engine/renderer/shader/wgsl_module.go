package shader

import (
	"fmt"
	"strings"
	"unicode"
)

// wgslModule is the module-scope outline of a WGSL source: the declarations layout
// reflection needs. Function bodies and expressions are skipped.
type wgslModule struct {
	structs map[string]*wgslStruct
	order   []string // struct names in source order
	vars    []wgslVar
	entries []wgslEntry
}

type wgslAttr struct {
	name string
	args []string
}

// wgslMember is a struct member or a function parameter.
type wgslMember struct {
	name  string
	typ   string
	attrs []wgslAttr
}

type wgslStruct struct {
	name    string
	members []wgslMember
}

// wgslVar is a module-scope var. space is the address space with its access mode, e.g.
// "storage, read"; it is empty for handle types such as textures and samplers.
type wgslVar struct {
	name  string
	space string
	typ   string
	attrs []wgslAttr
}

// wgslEntry is a function carrying a @vertex, @fragment or @compute attribute.
type wgslEntry struct {
	stage  string
	name   string
	params []wgslMember
}

// attr returns the named attribute of a declaration.
func attr(attrs []wgslAttr, name string) (wgslAttr, bool) {
	for _, a := range attrs {
		if a.name == name {
			return a, true
		}
	}
	return wgslAttr{}, false
}

// intAttr returns the integer argument of a single-argument attribute such as @group(2).
func intAttr(attrs []wgslAttr, name string) (int, bool) {
	a, ok := attr(attrs, name)
	if !ok || len(a.args) != 1 {
		return 0, false
	}
	n, err := parseWGSLInt(a.args[0])
	return n, err == nil
}

// parseWGSLModule outlines WGSL source. It recognizes struct, var and fn declarations at
// module scope and skips everything else up to the next ';' or balanced block.
//
// Parameters:
//   - source: WGSL source, comments allowed
//
// Returns:
//   - *wgslModule: the module outline
//   - error: unterminated comments or unbalanced brackets
func parseWGSLModule(source string) (*wgslModule, error) {
	stripped, err := stripComments(source)
	if err != nil {
		return nil, err
	}
	p := &wgslScanner{toks: tokenizeWGSL(stripped)}
	m := &wgslModule{structs: make(map[string]*wgslStruct)}

	for !p.done() {
		attrs, err := p.attributes()
		if err != nil {
			return nil, err
		}
		switch p.peek() {
		case "struct":
			s, err := p.structDecl()
			if err != nil {
				return nil, err
			}
			if _, dup := m.structs[s.name]; !dup {
				m.order = append(m.order, s.name)
			}
			m.structs[s.name] = s
		case "var":
			v, err := p.varDecl()
			if err != nil {
				return nil, err
			}
			v.attrs = attrs
			m.vars = append(m.vars, v)
		case "fn":
			e, err := p.fnDecl()
			if err != nil {
				return nil, err
			}
			for _, stage := range []string{"vertex", "fragment", "compute"} {
				if _, ok := attr(attrs, stage); ok {
					e.stage = stage
					m.entries = append(m.entries, e)
					break
				}
			}
		case "":
			if len(attrs) > 0 {
				return nil, fmt.Errorf("wgsl: attributes at end of source")
			}
		default:
			if err := p.skipDecl(); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// entry returns the first entry point of a stage.
func (m *wgslModule) entry(stage string) (wgslEntry, bool) {
	for _, e := range m.entries {
		if e.stage == stage {
			return e, true
		}
	}
	return wgslEntry{}, false
}

// stripComments blanks line and block comments, keeping newlines so positions in error
// messages still match. Block comments nest.
func stripComments(source string) (string, error) {
	var b strings.Builder
	b.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		c := source[i]
		next := byte(0)
		if i+1 < len(source) {
			next = source[i+1]
		}
		switch {
		case depth == 0 && c == '/' && next == '/':
			for i < len(source) && source[i] != '\n' {
				i++
			}
			if i < len(source) {
				b.WriteByte('\n')
			}
		case c == '/' && next == '*':
			depth++
			i++
			b.WriteString("  ")
		case depth > 0 && c == '*' && next == '/':
			depth--
			i++
			b.WriteString("  ")
		case depth > 0:
			if c == '\n' {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		default:
			b.WriteByte(c)
		}
	}
	if depth > 0 {
		return "", fmt.Errorf("wgsl: unterminated block comment")
	}
	return b.String(), nil
}

// tokenizeWGSL splits comment-free source into identifiers, numbers and single punctuation
// characters. Numbers keep their suffix, e.g. "4u".
func tokenizeWGSL(source string) []string {
	var toks []string
	word := func(r rune) bool { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

	runes := []rune(source)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case word(r):
			j := i + 1
			for j < len(runes) && (word(runes[j]) || (runes[j] == '.' && unicode.IsDigit(r))) {
				j++
			}
			toks = append(toks, string(runes[i:j]))
			i = j
		default:
			toks = append(toks, string(r))
			i++
		}
	}
	return toks
}

// wgslScanner walks the token stream of one module.
type wgslScanner struct {
	toks []string
	pos  int
}

func (p *wgslScanner) done() bool { return p.pos >= len(p.toks) }

func (p *wgslScanner) peek() string {
	if p.done() {
		return ""
	}
	return p.toks[p.pos]
}

func (p *wgslScanner) next() string {
	t := p.peek()
	if !p.done() {
		p.pos++
	}
	return t
}

func (p *wgslScanner) expect(tok string) error {
	if got := p.next(); got != tok {
		return fmt.Errorf("wgsl: expected %q, found %q", tok, got)
	}
	return nil
}

func (p *wgslScanner) ident() (string, error) {
	t := p.next()
	if t == "" || !(t[0] == '_' || unicode.IsLetter(rune(t[0]))) {
		return "", fmt.Errorf("wgsl: expected identifier, found %q", t)
	}
	return t, nil
}

// attributes reads any run of @name or @name(args).
func (p *wgslScanner) attributes() ([]wgslAttr, error) {
	var attrs []wgslAttr
	for p.peek() == "@" {
		p.next()
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		a := wgslAttr{name: name}
		if p.peek() == "(" {
			p.next()
			for p.peek() != ")" {
				if p.done() {
					return nil, fmt.Errorf("wgsl: unterminated @%s", name)
				}
				if t := p.next(); t != "," {
					a.args = append(a.args, t)
				}
			}
			p.next()
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

// typeExpr reads a type up to a top-level ',', ';', ')', '}' or '=' and returns it in
// canonical spelling, e.g. "array<vec4<f32>, 4>".
func (p *wgslScanner) typeExpr() (string, error) {
	var b strings.Builder
	depth := 0
	for {
		t := p.peek()
		switch {
		case t == "":
			return "", fmt.Errorf("wgsl: unterminated type")
		case depth == 0 && (t == "," || t == ";" || t == ")" || t == "}" || t == "=" || t == "{"):
			if b.Len() == 0 {
				return "", fmt.Errorf("wgsl: expected type, found %q", t)
			}
			return b.String(), nil
		case t == "<":
			depth++
		case t == ">":
			depth--
		}
		p.next()
		b.WriteString(t)
		if t == "," {
			b.WriteByte(' ')
		}
	}
}

// members reads "attrs name: type" items separated by ',' until the closing token.
func (p *wgslScanner) members(closing string) ([]wgslMember, error) {
	var out []wgslMember
	for p.peek() != closing {
		attrs, err := p.attributes()
		if err != nil {
			return nil, err
		}
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		typ, err := p.typeExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, wgslMember{name: name, typ: typ, attrs: attrs})
		if p.peek() == "," {
			p.next()
		}
	}
	p.next()
	return out, nil
}

func (p *wgslScanner) structDecl() (*wgslStruct, error) {
	p.next() // struct
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	members, err := p.members("}")
	if err != nil {
		return nil, fmt.Errorf("struct %s: %w", name, err)
	}
	if p.peek() == ";" {
		p.next()
	}
	return &wgslStruct{name: name, members: members}, nil
}

func (p *wgslScanner) varDecl() (wgslVar, error) {
	p.next() // var
	var v wgslVar
	if p.peek() == "<" {
		p.next()
		var parts []string
		for p.peek() != ">" {
			if p.done() {
				return v, fmt.Errorf("wgsl: unterminated address space")
			}
			if t := p.next(); t != "," {
				parts = append(parts, t)
			}
		}
		p.next()
		v.space = strings.Join(parts, ", ")
	}
	name, err := p.ident()
	if err != nil {
		return v, err
	}
	v.name = name
	if p.peek() == ":" {
		p.next()
		if v.typ, err = p.typeExpr(); err != nil {
			return v, fmt.Errorf("var %s: %w", name, err)
		}
	}
	return v, p.skipDecl()
}

func (p *wgslScanner) fnDecl() (wgslEntry, error) {
	p.next() // fn
	name, err := p.ident()
	if err != nil {
		return wgslEntry{}, err
	}
	if err := p.expect("("); err != nil {
		return wgslEntry{}, err
	}
	params, err := p.members(")")
	if err != nil {
		return wgslEntry{}, fmt.Errorf("fn %s: %w", name, err)
	}
	for p.peek() != "{" {
		if p.done() {
			return wgslEntry{}, fmt.Errorf("fn %s: missing body", name)
		}
		p.next()
	}
	if err := p.skipBlock(); err != nil {
		return wgslEntry{}, fmt.Errorf("fn %s: %w", name, err)
	}
	return wgslEntry{name: name, params: params}, nil
}

// skipBlock consumes a balanced {...} block starting at the current '{'.
func (p *wgslScanner) skipBlock() error {
	depth := 0
	for {
		switch p.next() {
		case "":
			return fmt.Errorf("wgsl: unbalanced braces")
		case "{":
			depth++
		case "}":
			depth--
			if depth == 0 {
				return nil
			}
		}
	}
}

// skipDecl consumes the rest of a declaration: up to and including ';', or a whole block.
func (p *wgslScanner) skipDecl() error {
	for {
		switch p.peek() {
		case "":
			return nil
		case ";":
			p.next()
			return nil
		case "{":
			return p.skipBlock()
		case "}":
			return fmt.Errorf("wgsl: unbalanced braces")
		}
		p.next()
	}
}
