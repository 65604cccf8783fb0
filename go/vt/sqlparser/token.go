/*
Copyright 2019 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package sqlparser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/vtplan/vtplan/go/sqltypes"
)

const eofChar = 0x100

// Token types returned by Scan. Single character operators
// are returned as their own byte value.
const (
	LEX_ERROR = iota + 0x10000
	ID
	QUOTED_ID
	STRING
	INTEGRAL
	FLOAT
	HEXNUM
	HEX
	BIT_LITERAL
	VALUE_ARG
	LIST_ARG
	COMMENT
	LE
	GE
	NE
	NULL_SAFE_EQUAL
	SHIFT_LEFT
	SHIFT_RIGHT
	AND_AND
	OR_OR
	ASSIGN
	JSON_EXTRACT_OP
	JSON_UNQUOTE_EXTRACT_OP
)

// keywords is the set of reserved words. A reserved word cannot be
// used as an identifier unless it is back-quoted, and it is always
// back-quoted when formatted as one.
var keywords = map[string]struct{}{
	"all":                 {},
	"and":                 {},
	"as":                  {},
	"asc":                 {},
	"between":             {},
	"binary":              {},
	"by":                  {},
	"case":                {},
	"collate":             {},
	"convert":             {},
	"cross":               {},
	"default":             {},
	"delete":              {},
	"desc":                {},
	"distinct":            {},
	"div":                 {},
	"else":                {},
	"escape":              {},
	"exists":              {},
	"false":               {},
	"for":                 {},
	"force":               {},
	"from":                {},
	"group":               {},
	"having":              {},
	"if":                  {},
	"ignore":              {},
	"in":                  {},
	"index":               {},
	"inner":               {},
	"insert":              {},
	"interval":            {},
	"into":                {},
	"is":                  {},
	"join":                {},
	"key":                 {},
	"left":                {},
	"like":                {},
	"limit":               {},
	"lock":                {},
	"mod":                 {},
	"natural":             {},
	"not":                 {},
	"null":                {},
	"on":                  {},
	"or":                  {},
	"order":               {},
	"outer":               {},
	"regexp":              {},
	"replace":             {},
	"right":               {},
	"rlike":               {},
	"select":              {},
	"separator":           {},
	"set":                 {},
	"sql_calc_found_rows": {},
	"straight_join":       {},
	"table":               {},
	"then":                {},
	"true":                {},
	"union":               {},
	"update":              {},
	"use":                 {},
	"using":               {},
	"values":              {},
	"when":                {},
	"where":               {},
	"xor":                 {},
}

// IsReserved returns true if the word cannot be used as an
// unquoted identifier.
func IsReserved(word string) bool {
	_, ok := keywords[strings.ToLower(word)]
	return ok
}

// token is one lexical item. comments holds the comments
// that immediately precede it.
type token struct {
	typ      int
	val      []byte
	pos      int
	comments [][]byte
}

// lowered returns the lowercased text of a bare word,
// or "" for any other token kind.
func (t token) lowered() string {
	if t.typ != ID {
		return ""
	}
	return strings.ToLower(string(t.val))
}

// Tokenizer is the struct used to generate SQL
// tokens for the parser.
type Tokenizer struct {
	buf         string
	bufPos      int
	lastChar    uint16
	Position    int
	LastError   error
	posVarIndex int
}

// NewStringTokenizer creates a new Tokenizer for the
// sql string.
func NewStringTokenizer(sql string) *Tokenizer {
	tkn := &Tokenizer{buf: sql}
	tkn.next()
	return tkn
}

// Scan scans the tokenizer for the next token and returns
// the token type and an optional value.
func (tkn *Tokenizer) Scan() (int, []byte) {
	tkn.skipBlank()
	switch ch := tkn.lastChar; {
	case ch == '@':
		return tkn.scanVariable()
	case isLetter(ch):
		tkn.next()
		if ch == 'X' || ch == 'x' {
			if tkn.lastChar == '\'' {
				tkn.next()
				return tkn.scanHex()
			}
		}
		if ch == 'B' || ch == 'b' {
			if tkn.lastChar == '\'' {
				tkn.next()
				return tkn.scanBitLiteral()
			}
		}
		return tkn.scanIdentifier(byte(ch))
	case isDigit(ch):
		return tkn.scanNumber(false)
	case ch == ':':
		return tkn.scanBindVar()
	default:
		tkn.next()
		switch ch {
		case eofChar:
			return 0, nil
		case '=', ',', ';', '(', ')', '+', '*', '%', '^', '~':
			return int(ch), nil
		case '&':
			if tkn.lastChar == '&' {
				tkn.next()
				return AND_AND, nil
			}
			return int(ch), nil
		case '|':
			if tkn.lastChar == '|' {
				tkn.next()
				return OR_OR, nil
			}
			return int(ch), nil
		case '?':
			tkn.posVarIndex++
			buf := new(bytes.Buffer)
			fmt.Fprintf(buf, ":v%d", tkn.posVarIndex)
			return VALUE_ARG, buf.Bytes()
		case '.':
			if isDigit(tkn.lastChar) {
				return tkn.scanNumber(true)
			}
			return int(ch), nil
		case '/':
			switch tkn.lastChar {
			case '/':
				tkn.next()
				return tkn.scanCommentType1("//")
			case '*':
				tkn.next()
				return tkn.scanCommentType2()
			default:
				return int(ch), nil
			}
		case '#':
			return tkn.scanCommentType1("#")
		case '-':
			switch tkn.lastChar {
			case '-':
				tkn.next()
				return tkn.scanCommentType1("--")
			case '>':
				tkn.next()
				if tkn.lastChar == '>' {
					tkn.next()
					return JSON_UNQUOTE_EXTRACT_OP, nil
				}
				return JSON_EXTRACT_OP, nil
			}
			return int(ch), nil
		case '<':
			switch tkn.lastChar {
			case '>':
				tkn.next()
				return NE, nil
			case '<':
				tkn.next()
				return SHIFT_LEFT, nil
			case '=':
				tkn.next()
				switch tkn.lastChar {
				case '>':
					tkn.next()
					return NULL_SAFE_EQUAL, nil
				default:
					return LE, nil
				}
			default:
				return int(ch), nil
			}
		case '>':
			switch tkn.lastChar {
			case '=':
				tkn.next()
				return GE, nil
			case '>':
				tkn.next()
				return SHIFT_RIGHT, nil
			default:
				return int(ch), nil
			}
		case '!':
			if tkn.lastChar == '=' {
				tkn.next()
				return NE, nil
			}
			return int(ch), nil
		case '\'', '"':
			return tkn.scanString(ch, STRING)
		case '`':
			return tkn.scanLiteralIdentifier()
		default:
			return LEX_ERROR, []byte{byte(ch)}
		}
	}
}

func (tkn *Tokenizer) skipBlank() {
	ch := tkn.lastChar
	for ch == ' ' || ch == '\n' || ch == '\r' || ch == '\t' {
		tkn.next()
		ch = tkn.lastChar
	}
}

func (tkn *Tokenizer) scanIdentifier(firstByte byte) (int, []byte) {
	buffer := &bytes.Buffer{}
	buffer.WriteByte(firstByte)
	for isLetter(tkn.lastChar) || isDigit(tkn.lastChar) {
		buffer.WriteByte(byte(tkn.lastChar))
		tkn.next()
	}
	return ID, buffer.Bytes()
}

// scanVariable scans @name, @@name and @@scope.name.
func (tkn *Tokenizer) scanVariable() (int, []byte) {
	buffer := &bytes.Buffer{}
	for tkn.lastChar == '@' {
		buffer.WriteByte('@')
		tkn.next()
	}
	if tkn.lastChar == '`' || tkn.lastChar == '\'' || tkn.lastChar == '"' {
		delim := tkn.lastChar
		tkn.next()
		typ, val := tkn.scanString(delim, ID)
		if typ == LEX_ERROR {
			return typ, val
		}
		buffer.Write(val)
		return ID, buffer.Bytes()
	}
	for isLetter(tkn.lastChar) || isDigit(tkn.lastChar) || tkn.lastChar == '.' {
		buffer.WriteByte(byte(tkn.lastChar))
		tkn.next()
	}
	if buffer.Len() == 1 || bytes.HasSuffix(buffer.Bytes(), []byte("@")) {
		return LEX_ERROR, buffer.Bytes()
	}
	return ID, buffer.Bytes()
}

func (tkn *Tokenizer) scanHex() (int, []byte) {
	buffer := &bytes.Buffer{}
	tkn.scanMantissa(16, buffer)
	if tkn.lastChar != '\'' {
		return LEX_ERROR, buffer.Bytes()
	}
	tkn.next()
	if buffer.Len()%2 != 0 {
		return LEX_ERROR, buffer.Bytes()
	}
	return HEX, buffer.Bytes()
}

func (tkn *Tokenizer) scanBitLiteral() (int, []byte) {
	buffer := &bytes.Buffer{}
	tkn.scanMantissa(2, buffer)
	if tkn.lastChar != '\'' {
		return LEX_ERROR, buffer.Bytes()
	}
	tkn.next()
	return BIT_LITERAL, buffer.Bytes()
}

func (tkn *Tokenizer) scanLiteralIdentifier() (int, []byte) {
	buffer := &bytes.Buffer{}
	backTickSeen := false
	for {
		if backTickSeen {
			if tkn.lastChar != '`' {
				break
			}
			backTickSeen = false
			buffer.WriteByte('`')
			tkn.next()
			continue
		}
		// The previous char was not a backtick.
		switch tkn.lastChar {
		case '`':
			backTickSeen = true
		case eofChar:
			// Premature EOF.
			return LEX_ERROR, buffer.Bytes()
		default:
			buffer.WriteByte(byte(tkn.lastChar))
		}
		tkn.next()
	}
	if buffer.Len() == 0 {
		return LEX_ERROR, buffer.Bytes()
	}
	return QUOTED_ID, buffer.Bytes()
}

func (tkn *Tokenizer) scanBindVar() (int, []byte) {
	buffer := &bytes.Buffer{}
	buffer.WriteByte(byte(tkn.lastChar))
	token := VALUE_ARG
	tkn.next()
	if tkn.lastChar == '=' {
		tkn.next()
		return ASSIGN, nil
	}
	if tkn.lastChar == ':' {
		token = LIST_ARG
		buffer.WriteByte(byte(tkn.lastChar))
		tkn.next()
	}
	if !isLetter(tkn.lastChar) {
		return LEX_ERROR, buffer.Bytes()
	}
	for isLetter(tkn.lastChar) || isDigit(tkn.lastChar) || tkn.lastChar == '.' {
		buffer.WriteByte(byte(tkn.lastChar))
		tkn.next()
	}
	return token, buffer.Bytes()
}

func (tkn *Tokenizer) scanMantissa(base int, buffer *bytes.Buffer) {
	for digitVal(tkn.lastChar) < base {
		tkn.consumeNext(buffer)
	}
}

func (tkn *Tokenizer) scanNumber(seenDecimalPoint bool) (int, []byte) {
	token := INTEGRAL
	buffer := &bytes.Buffer{}
	if seenDecimalPoint {
		token = FLOAT
		buffer.WriteByte('.')
		tkn.scanMantissa(10, buffer)
		goto exponent
	}

	// 0x construct.
	if tkn.lastChar == '0' {
		tkn.consumeNext(buffer)
		if tkn.lastChar == 'x' || tkn.lastChar == 'X' {
			token = HEXNUM
			tkn.consumeNext(buffer)
			tkn.scanMantissa(16, buffer)
			goto exit
		}
	}

	tkn.scanMantissa(10, buffer)

	if tkn.lastChar == '.' {
		token = FLOAT
		tkn.consumeNext(buffer)
		tkn.scanMantissa(10, buffer)
	}

exponent:
	if tkn.lastChar == 'e' || tkn.lastChar == 'E' {
		token = FLOAT
		tkn.consumeNext(buffer)
		if tkn.lastChar == '+' || tkn.lastChar == '-' {
			tkn.consumeNext(buffer)
		}
		tkn.scanMantissa(10, buffer)
	}

exit:
	// A letter cannot immediately follow a number.
	if isLetter(tkn.lastChar) {
		return LEX_ERROR, buffer.Bytes()
	}

	return token, buffer.Bytes()
}

func (tkn *Tokenizer) scanString(delim uint16, typ int) (int, []byte) {
	var buffer bytes.Buffer
	for {
		ch := tkn.lastChar
		if ch == eofChar {
			// Unterminated string.
			return LEX_ERROR, buffer.Bytes()
		}

		if ch != delim && ch != '\\' {
			buffer.WriteByte(byte(ch))
			tkn.next()
			continue
		}

		tkn.next()
		if ch == '\\' {
			if tkn.lastChar == eofChar {
				// String terminates mid escape character.
				return LEX_ERROR, buffer.Bytes()
			}
			if decodedChar := sqltypes.SQLDecodeMap[byte(tkn.lastChar)]; decodedChar == sqltypes.DontEscape {
				ch = tkn.lastChar
			} else {
				ch = uint16(decodedChar)
			}
		} else if ch == delim && tkn.lastChar != delim {
			// Correctly terminated string, which is not a double delim.
			break
		}

		buffer.WriteByte(byte(ch))
		tkn.next()
	}

	return typ, buffer.Bytes()
}

func (tkn *Tokenizer) scanCommentType1(prefix string) (int, []byte) {
	buffer := &bytes.Buffer{}
	buffer.WriteString(prefix)
	for tkn.lastChar != eofChar {
		if tkn.lastChar == '\n' {
			tkn.consumeNext(buffer)
			break
		}
		tkn.consumeNext(buffer)
	}
	return COMMENT, buffer.Bytes()
}

func (tkn *Tokenizer) scanCommentType2() (int, []byte) {
	buffer := &bytes.Buffer{}
	buffer.WriteString("/*")
	for {
		if tkn.lastChar == '*' {
			tkn.consumeNext(buffer)
			if tkn.lastChar == '/' {
				tkn.consumeNext(buffer)
				break
			}
			continue
		}
		if tkn.lastChar == eofChar {
			return LEX_ERROR, buffer.Bytes()
		}
		tkn.consumeNext(buffer)
	}
	return COMMENT, buffer.Bytes()
}

func (tkn *Tokenizer) consumeNext(buffer *bytes.Buffer) {
	if tkn.lastChar == eofChar {
		// This should never happen.
		panic("unexpected EOF")
	}
	buffer.WriteByte(byte(tkn.lastChar))
	tkn.next()
}

func (tkn *Tokenizer) next() {
	if tkn.bufPos >= len(tkn.buf) {
		if tkn.lastChar != eofChar {
			tkn.Position++
			tkn.lastChar = eofChar
		}
		return
	}
	tkn.Position++
	tkn.lastChar = uint16(tkn.buf[tkn.bufPos])
	tkn.bufPos++
}

// tokenize scans the whole input. Comments are attached
// to the token that follows them; single-line comments
// are dropped.
func (tkn *Tokenizer) tokenize() ([]token, error) {
	var (
		tokens   []token
		comments [][]byte
	)
	for {
		typ, val := tkn.Scan()
		switch typ {
		case LEX_ERROR:
			tkn.LastError = fmt.Errorf("syntax error at position %d near '%s'", tkn.Position, val)
			return nil, tkn.LastError
		case COMMENT:
			if bytes.HasPrefix(val, []byte("/*")) {
				comments = append(comments, val)
			}
			continue
		}
		tokens = append(tokens, token{typ: typ, val: val, pos: tkn.Position, comments: comments})
		comments = nil
		if typ == 0 {
			return tokens, nil
		}
	}
}

func isLetter(ch uint16) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch == '@' || ch == '$' || (ch >= 0x80 && ch < eofChar)
}

func isCarat(ch uint16) bool {
	return ch == '.' || ch == '\'' || ch == '"' || ch == '`'
}

func digitVal(ch uint16) int {
	switch {
	case '0' <= ch && ch <= '9':
		return int(ch) - '0'
	case 'a' <= ch && ch <= 'f':
		return int(ch) - 'a' + 10
	case 'A' <= ch && ch <= 'F':
		return int(ch) - 'A' + 10
	}
	return 16 // larger than any legal digit val
}

func isDigit(ch uint16) bool {
	return '0' <= ch && ch <= '9'
}

// tokenName is used in error messages.
func tokenName(t token) string {
	switch {
	case t.typ == 0:
		return ""
	case t.val != nil:
		return string(t.val)
	case t.typ < 0x10000:
		return string(rune(t.typ))
	}
	switch t.typ {
	case LE:
		return "<="
	case GE:
		return ">="
	case NE:
		return "!="
	case NULL_SAFE_EQUAL:
		return "<=>"
	case SHIFT_LEFT:
		return "<<"
	case SHIFT_RIGHT:
		return ">>"
	case AND_AND:
		return "&&"
	case OR_OR:
		return "||"
	case ASSIGN:
		return ":="
	case JSON_EXTRACT_OP:
		return "->"
	case JSON_UNQUOTE_EXTRACT_OP:
		return "->>"
	}
	return strconv.Itoa(t.typ)
}
