package dbus

import "fmt"

// Signature is a D-Bus type signature string: a sequence of single
// complete types over the grammar in the D-Bus specification.
type Signature string

// nodeKind identifies the shape of a parsed single complete type.
type nodeKind int

const (
	nodeBasic nodeKind = iota
	nodeVariant
	nodeStruct
	nodeArray
	nodeDictEntry
)

// typeNode is one node of a parsed signature tree: the "reader plan" the
// spec describes in §4.3/§9. The readers walk this tree instead of
// re-parsing a signature string on every call; writing does not use it,
// since each Value writes itself.
type typeNode struct {
	kind  nodeKind
	code  byte        // valid when kind == nodeBasic
	elem  *typeNode   // valid when kind == nodeArray
	sub   []*typeNode // valid when kind == nodeStruct or nodeDictEntry (len 2)
	raw   Signature   // the signature text this node was parsed from
}

// Parse parses sig into a sequence of single-complete-type nodes. It
// performs one left-to-right walk by recursive descent: nesting of ( and {
// is tracked by the recursion of parseOne/parseSequence, not by a separate
// depth counter, and no closures are captured over mutable state.
func (sig Signature) Parse() ([]*typeNode, error) {
	p := &sigParser{s: string(sig)}
	nodes, err := p.parseSequence(false)
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.s) {
		return nil, fmt.Errorf("dbus: unterminated bracket in signature %q", sig)
	}
	return nodes, nil
}

// ParseSingle parses sig and requires it to contain exactly one single
// complete type, returning its node. This is used for variant contents,
// which spec §4.2 requires to be exactly one complete type.
func (sig Signature) ParseSingle() (*typeNode, error) {
	nodes, err := sig.Parse()
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("dbus: variant signature %q is not a single complete type", sig)
	}
	return nodes[0], nil
}

type sigParser struct {
	s   string
	pos int
}

// parseSequence parses zero or more single complete types until the end of
// the string or a closing bracket. insideArray controls whether a bare
// dict-entry "{...}" is legal at this position (only legal as an array
// element type).
func (p *sigParser) parseSequence(insideArray bool) ([]*typeNode, error) {
	var nodes []*typeNode
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c == ')' || c == '}' {
			break
		}
		n, err := p.parseOne(insideArray)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (p *sigParser) parseOne(insideArray bool) (*typeNode, error) {
	if p.pos >= len(p.s) {
		return nil, fmt.Errorf("dbus: unexpected end of signature")
	}
	start := p.pos
	c := p.s[p.pos]
	switch {
	case c == 'a':
		p.pos++
		elem, err := p.parseOne(true)
		if err != nil {
			return nil, err
		}
		return &typeNode{kind: nodeArray, elem: elem, raw: Signature(p.s[start:p.pos])}, nil
	case c == '(':
		p.pos++
		fields, err := p.parseSequence(false)
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.s) || p.s[p.pos] != ')' {
			return nil, fmt.Errorf("dbus: unterminated struct in signature %q", p.s)
		}
		p.pos++
		if len(fields) == 0 {
			return nil, fmt.Errorf("dbus: empty struct is not a valid type")
		}
		return &typeNode{kind: nodeStruct, sub: fields, raw: Signature(p.s[start:p.pos])}, nil
	case c == '{':
		if !insideArray {
			return nil, fmt.Errorf("dbus: dict entry outside array context in signature %q", p.s)
		}
		p.pos++
		fields, err := p.parseSequence(false)
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.s) || p.s[p.pos] != '}' {
			return nil, fmt.Errorf("dbus: unterminated dict entry in signature %q", p.s)
		}
		p.pos++
		if len(fields) != 2 {
			return nil, fmt.Errorf("dbus: dict entry must have exactly 2 fields, got %d", len(fields))
		}
		if fields[0].kind != nodeBasic {
			return nil, fmt.Errorf("dbus: dict entry key must be a basic type")
		}
		return &typeNode{kind: nodeDictEntry, sub: fields, raw: Signature(p.s[start:p.pos])}, nil
	case c == 'v':
		p.pos++
		return &typeNode{kind: nodeVariant, raw: "v"}, nil
	case isBasicCode(c):
		p.pos++
		return &typeNode{kind: nodeBasic, code: c, raw: Signature(c)}, nil
	default:
		return nil, fmt.Errorf("dbus: unknown type code %q in signature %q", c, p.s)
	}
}
