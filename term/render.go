package term

import (
	"io"
	"strings"
)

// Render writes r in parenthesized de Bruijn form:
//
//	(\ body)   abstraction
//	(fn arg)   application
//	7          variable
//
// r is only read; it stays owned by the caller.
func (s *Store) Render(w io.Writer, r Ref) error {
	p := &printer{w: w}
	p.term(s, r)
	return p.err
}

// String renders r to a string.
func (s *Store) String(r Ref) string {
	var sb strings.Builder
	_ = s.Render(&sb, r)
	return sb.String()
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) write(b []byte) {
	if p.err != nil {
		return
	}
	_, p.err = p.w.Write(b)
}

func (p *printer) term(s *Store, r Ref) {
	n := s.Read(r)
	switch n.Kind {
	case Abstraction:
		p.write([]byte(`(\ `))
		p.term(s, n.Left)
		p.write([]byte(")"))
	case Application:
		p.write([]byte("("))
		p.term(s, n.Left)
		p.write([]byte(" "))
		p.term(s, n.Right)
		p.write([]byte(")"))
	case Variable:
		p.decimal(n.Index)
	}
}

// decimal emits v most significant digit first.
func (p *printer) decimal(v uint32) {
	if v >= 10 {
		p.decimal(v / 10)
	}
	p.write([]byte{byte('0' + v%10)})
}
