package cli

import (
	"fmt"
	"io"
)

// IO routes command output. Data goes to out, diagnostics to errOut.
type IO struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func NewIO(in io.Reader, out, errOut io.Writer) *IO {
	return &IO{in: in, out: out, errOut: errOut}
}

func (o *IO) Println(a ...any) {
	_, _ = fmt.Fprintln(o.out, a...)
}

func (o *IO) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.out, format, a...)
}

func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

func (o *IO) In() io.Reader {
	return o.in
}
