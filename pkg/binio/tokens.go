package binio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Tokens reads whitespace-delimited ASCII tokens.
type Tokens struct {
	sc      *bufio.Scanner
	pending *string
}

// NewTokens creates a token reader over r.
func NewTokens(r io.Reader) *Tokens {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	return &Tokens{sc: sc}
}

// Next returns the next token, or io.EOF once the input is exhausted.
func (t *Tokens) Next() (string, error) {
	if t.pending != nil {
		tok := *t.pending
		t.pending = nil
		return tok, nil
	}
	if !t.sc.Scan() {
		if err := t.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return t.sc.Text(), nil
}

// Unread pushes tok back so the following Next returns it again.
func (t *Tokens) Unread(tok string) {
	t.pending = &tok
}

// Int reads the next token as a base-10 integer.
func (t *Tokens) Int() (int, error) {
	tok, err := t.Next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("expected integer, got %q", tok)
	}
	return v, nil
}

// Float reads the next token as a floating point number.
func (t *Tokens) Float() (float64, error) {
	tok, err := t.Next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("expected number, got %q", tok)
	}
	return v, nil
}

// OptionalInt reads the next token as an integer if it is one. Otherwise
// the token is left for the next call and ok is false.
func (t *Tokens) OptionalInt() (v int, ok bool, err error) {
	tok, err := t.Next()
	if err == io.EOF {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	v, convErr := strconv.Atoi(tok)
	if convErr != nil {
		t.Unread(tok)
		return 0, false, nil
	}
	return v, true, nil
}
