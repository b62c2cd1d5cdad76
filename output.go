package script

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Output is a text sink. Everything written is buffered and, when a mirror
// writer is set, copied to it as well.
type Output struct {
	mu     sync.Mutex
	buf    strings.Builder
	mirror io.Writer
}

func NewOutput(mirror io.Writer) *Output {
	return &Output{mirror: mirror}
}

func (o *Output) Print(s string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.buf.WriteString(s)
	if o.mirror != nil {
		_, _ = io.WriteString(o.mirror, s)
	}
}

func (o *Output) Println(s string) {
	o.Print(s + "\n")
}

func (o *Output) Printf(format string, args ...any) {
	o.Print(fmt.Sprintf(format, args...))
}

func (o *Output) Clear() {
	o.mu.Lock()
	o.buf.Reset()
	o.mu.Unlock()
}

func (o *Output) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.String()
}

func (o *Output) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.Len()
}

// SetMirror replaces the writer output is copied to; nil disables mirroring.
func (o *Output) SetMirror(w io.Writer) {
	o.mu.Lock()
	o.mirror = w
	o.mu.Unlock()
}

// FormatJava renders a java.util.Formatter style template. Supported
// conversions: s S d x X o f e E g c b n and %%, with flags, width and
// precision.
func (c *Context) FormatJava(format string, args []any) (string, error) {
	var sb strings.Builder
	next := 0
	arg := func() (any, error) {
		if next >= len(args) {
			return nil, throwNew(TypeIllegalArgument, "Format specifier missing argument in %q", format)
		}
		v := args[next]
		next++
		return v, nil
	}
	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '%' {
			sb.WriteByte(ch)
			continue
		}
		j := i + 1
		for j < len(format) && strings.IndexByte("-+ 0#,.0123456789", format[j]) >= 0 {
			j++
		}
		if j >= len(format) {
			return "", throwNew(TypeIllegalArgument, "Incomplete format specifier in %q", format)
		}
		spec := strings.ReplaceAll(format[i+1:j], ",", "")
		conv := format[j]
		i = j
		switch conv {
		case '%':
			sb.WriteByte('%')
		case 'n':
			sb.WriteByte('\n')
		case 's', 'S':
			v, err := arg()
			if err != nil {
				return "", err
			}
			s, err := c.Stringify(v)
			if err != nil {
				return "", err
			}
			if conv == 'S' {
				s = strings.ToUpper(s)
			}
			sb.WriteString(fmt.Sprintf("%"+spec+"s", s))
		case 'd', 'x', 'X', 'o':
			v, err := arg()
			if err != nil {
				return "", err
			}
			if !isIntegral(v) {
				return "", throwNew(TypeIllegalArgument, "%%%c != %s", conv, c.TypeOf(v).Name)
			}
			sb.WriteString(fmt.Sprintf("%"+spec+string(conv), toInt64(v)))
		case 'f', 'e', 'E', 'g':
			v, err := arg()
			if err != nil {
				return "", err
			}
			if rankOf(v) == rankNone {
				return "", throwNew(TypeIllegalArgument, "%%%c != %s", conv, c.TypeOf(v).Name)
			}
			if conv == 'f' && !strings.Contains(spec, ".") {
				spec += ".6"
			}
			sb.WriteString(fmt.Sprintf("%"+spec+string(conv), toFloat64(v)))
		case 'c':
			v, err := arg()
			if err != nil {
				return "", err
			}
			sb.WriteString(fmt.Sprintf("%"+spec+"c", rune(toInt64(v))))
		case 'b', 'B':
			v, err := arg()
			if err != nil {
				return "", err
			}
			b := v != nil
			if bv, ok := v.(bool); ok {
				b = bv
			}
			sb.WriteString(fmt.Sprintf("%"+spec+"t", b))
		default:
			return "", throwNew(TypeIllegalArgument, "Unknown format conversion '%c'", conv)
		}
	}
	return sb.String(), nil
}
