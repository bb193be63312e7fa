// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

func NewParser() *Parser {
	return &Parser{}
}

type Parser struct {
	input string
	pos   int
	// nextPos is start of the next char.
	nextPos int
	// char is the rune starting at pos. char is set to 0 when pos reaches the
	// end of input.
	char rune
	// prevPartEnd is the value of pos when we last finished parsing a
	// placeholder or a block delimiter.
	prevPartEnd int
	// parts are the output of the parser. Parts are added as they are
	// parsed.
	parts []queryPart
	// block is the conditional block currently open, nil outside blocks.
	block *blockPart
	// placeholders counts the placeholders found so far.
	placeholders int
	// multiline is true if the input contains a line break.
	multiline bool
	// lineNum is the number of the current line of the input.
	lineNum int
	// lineStart is the position of the first char of the current line in the
	// input.
	lineStart int
}

// ParsedExpr is a parsed template. It is immutable and can be compiled any
// number of times, concurrently.
type ParsedExpr struct {
	source       string
	parts        []queryPart
	placeholders int
}

// String returns a textual representation of the parsed template for
// debugging and testing purposes.
func (pe *ParsedExpr) String() string {
	var b strings.Builder
	b.WriteString("[")
	for i, part := range pe.parts {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(part.String())
	}
	b.WriteString("]")
	return b.String()
}

// Source returns the template text the expression was parsed from.
func (pe *ParsedExpr) Source() string {
	return pe.source
}

// Placeholders returns the number of placeholders in the template, that is
// the number of arguments a compile consumes.
func (pe *ParsedExpr) Placeholders() int {
	return pe.placeholders
}

// Parse takes a template string and returns a ParsedExpr.
func (p *Parser) Parse(input string) (pe *ParsedExpr, err error) {
	defer func() {
		if err != nil {
			err = ErrInvalidTemplate.while("parsing template").because(err)
		}
	}()

	p.init(input)

	for p.pos < len(p.input) {
		switch p.char {
		case '?':
			if err := p.parsePlaceholder(); err != nil {
				return nil, err
			}
		case '{':
			if err := p.openBlock(); err != nil {
				return nil, err
			}
		case '}':
			if err := p.closeBlock(); err != nil {
				return nil, err
			}
		default:
			p.advanceChar()
		}
	}

	if p.block != nil {
		return nil, errorAt(fmt.Errorf("missing closing brace of conditional block"), p.block.line, p.block.column, p.input)
	}

	// Add any remaining literal input.
	p.flush(p.pos)
	return &ParsedExpr{source: input, parts: p.parts, placeholders: p.placeholders}, nil
}

// init resets the state of the parser and sets the input string.
func (p *Parser) init(input string) {
	p.input = input
	p.pos = 0
	p.nextPos = 0
	p.char = 0
	p.prevPartEnd = 0
	p.parts = []queryPart{}
	p.block = nil
	p.placeholders = 0
	p.multiline = strings.ContainsRune(input, '\n')
	p.lineNum = 1
	p.lineStart = 0
	p.advanceChar()
}

// colNum calculates the current column number taking into account line breaks.
func (p *Parser) colNum() int {
	return p.pos - p.lineStart + 1
}

// advanceChar moves the parser to the next character in the input. It also
// takes care of updating the line and column numbers if it encounters line
// breaks.
func (p *Parser) advanceChar() bool {
	if p.nextPos >= len(p.input) {
		p.char = 0
		p.pos = p.nextPos
		return false
	}
	if p.char == '\n' {
		p.lineStart = p.nextPos
		p.lineNum++
	}
	var size int
	p.char, size = utf8.DecodeRuneInString(p.input[p.nextPos:])
	p.pos = p.nextPos
	p.nextPos += size
	return true
}

// add appends a part to the open block, or to the top level parts when no
// block is open.
func (p *Parser) add(part queryPart) {
	if p.block != nil {
		p.block.parts = append(p.block.parts, part)
		return
	}
	p.parts = append(p.parts, part)
}

// flush adds the literal input between the end of the previous part and end
// as a bypass part.
func (p *Parser) flush(end int) {
	if p.prevPartEnd != end {
		p.add(&bypassPart{p.input[p.prevPartEnd:end]})
	}
	p.prevPartEnd = end
}

// parsePlaceholder parses a placeholder starting at the question mark under
// the parser.
func (p *Parser) parsePlaceholder() error {
	start, line, col := p.pos, p.lineNum, p.colNum()
	p.advanceChar()

	kind, ok := kindOf(p.char)
	if ok {
		p.advanceChar()
		if p.pos < len(p.input) && isWordChar(p.char) {
			return errorAt(fmt.Errorf("unexpected character %q after placeholder %s", p.char, kind), line, col, p.input)
		}
	} else if p.pos < len(p.input) && isWordChar(p.char) {
		return errorAt(fmt.Errorf("unknown placeholder suffix %q", p.char), line, col, p.input)
	}

	p.flush(start)
	p.placeholders++
	p.add(&placeholderPart{
		kind:      kind,
		ordinal:   p.placeholders,
		line:      line,
		column:    col,
		multiline: p.multiline,
	})
	p.prevPartEnd = p.pos
	return nil
}

// openBlock starts a conditional block at the opening brace under the
// parser.
func (p *Parser) openBlock() error {
	if p.block != nil {
		return errorAt(fmt.Errorf("nested conditional blocks are not supported"), p.lineNum, p.colNum(), p.input)
	}
	p.flush(p.pos)
	p.block = &blockPart{line: p.lineNum, column: p.colNum()}
	p.advanceChar()
	p.prevPartEnd = p.pos
	return nil
}

// closeBlock ends the open conditional block at the closing brace under the
// parser.
func (p *Parser) closeBlock() error {
	if p.block == nil {
		return errorAt(fmt.Errorf("closing brace outside of a conditional block"), p.lineNum, p.colNum(), p.input)
	}
	p.flush(p.pos)
	block := p.block
	p.block = nil
	p.add(block)
	p.advanceChar()
	p.prevPartEnd = p.pos
	return nil
}

// isWordChar returns true for the ASCII characters that may not directly
// follow a placeholder.
func isWordChar(c rune) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
