package expr

import (
	"fmt"
	"strings"
)

// A queryPart represents a section of a parsed template. The parsed template
// is represented as a list of queryParts.
type queryPart interface {
	// String returns a string representation of the part for debugging and
	// testing purposes.
	String() string

	// part is a marker method.
	part()
}

// placeholderKind is the type of value a placeholder accepts. It is encoded
// in the template by the character following the question mark.
type placeholderKind byte

const (
	kindGeneric    placeholderKind = 0
	kindInt        placeholderKind = 'd'
	kindFloat      placeholderKind = 'f'
	kindArray      placeholderKind = 'a'
	kindIdentifier placeholderKind = '#'
)

// kindOf returns the placeholder kind encoded by the suffix character c.
func kindOf(c rune) (placeholderKind, bool) {
	switch c {
	case 'd':
		return kindInt, true
	case 'f':
		return kindFloat, true
	case 'a':
		return kindArray, true
	case '#':
		return kindIdentifier, true
	}
	return kindGeneric, false
}

func (k placeholderKind) String() string {
	if k == kindGeneric {
		return "?"
	}
	return "?" + string(rune(k))
}

// placeholderPart represents a placeholder token. Each placeholder consumes
// exactly one argument.
type placeholderPart struct {
	kind placeholderKind
	// ordinal is the 1-based position of the placeholder in the template.
	ordinal int
	line    int
	column  int
	// multiline records whether the template spans several lines, so that
	// errors can be reported in the same format as parse errors.
	multiline bool
}

func (p *placeholderPart) String() string {
	return fmt.Sprintf("Placeholder[%s]", p.kind)
}

// desc describes the placeholder for error messages.
func (p *placeholderPart) desc() string {
	if p.multiline {
		return fmt.Sprintf("formatting %s placeholder %d at line %d, column %d", p.kind, p.ordinal, p.line, p.column)
	}
	return fmt.Sprintf("formatting %s placeholder %d at column %d", p.kind, p.ordinal, p.column)
}

// Marker function for queryPart.
func (p *placeholderPart) part() {}

// blockPart represents a conditional block. Its content is either written
// out in full or dropped entirely.
type blockPart struct {
	parts  []queryPart
	line   int
	column int
}

func (p *blockPart) String() string {
	var b strings.Builder
	b.WriteString("Block[")
	for i, part := range p.parts {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(part.String())
	}
	b.WriteString("]")
	return b.String()
}

// Marker function for queryPart.
func (p *blockPart) part() {}

// bypassPart represents a part of the template that is passed to the output
// verbatim.
type bypassPart struct {
	chunk string
}

func (p *bypassPart) String() string {
	return "Bypass[" + p.chunk + "]"
}

// Marker function for queryPart.
func (p *bypassPart) part() {}
