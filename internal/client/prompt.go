package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prompter asks for input line by line.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompter reads answers from r and writes questions to w.
func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(r), out: w}
}

// Ask prints label and returns the trimmed answer.
func (p *Prompter) Ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// Credentials asks for a username and password, and an email when
// withEmail is set.
func (p *Prompter) Credentials(withEmail bool) (Credentials, error) {
	var c Credentials
	var err error
	if c.Username, err = p.Ask("Username"); err != nil {
		return c, err
	}
	if withEmail {
		if c.Email, err = p.Ask("Email"); err != nil {
			return c, err
		}
	}
	if c.Password, err = p.Ask("Password"); err != nil {
		return c, err
	}
	if c.Username == "" || c.Password == "" {
		return c, errors.New("username and password are required")
	}
	return c, nil
}
