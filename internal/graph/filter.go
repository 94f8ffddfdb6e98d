package graph

import (
	"strconv"
	"strings"
)

// Arg is one filter option. An empty Key produces a positional value.
type Arg struct {
	Key   string
	Value string
}

// Filter is a single ffmpeg filter invocation.
type Filter struct {
	Name string
	Args []Arg
}

// F builds a filter from alternating key/value strings.
func F(name string, kv ...string) Filter {
	f := Filter{Name: name}
	for i := 0; i+1 < len(kv); i += 2 {
		f.Args = append(f.Args, Arg{Key: kv[i], Value: kv[i+1]})
	}
	return f
}

// String serializes the filter, quoting values that contain separators.
func (f Filter) String() string {
	if len(f.Args) == 0 {
		return f.Name
	}
	var sb strings.Builder
	sb.WriteString(f.Name)
	sb.WriteByte('=')
	for i, arg := range f.Args {
		if i > 0 {
			sb.WriteByte(':')
		}
		if arg.Key != "" {
			sb.WriteString(arg.Key)
			sb.WriteByte('=')
		}
		sb.WriteString(quote(arg.Value))
	}
	return sb.String()
}

// Num formats a float the same way everywhere in a graph so identical plans
// serialize to identical strings.
func Num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Int formats an integer option.
func Int(v int) string { return strconv.Itoa(v) }

func quote(value string) string {
	if !strings.ContainsAny(value, ",;:[]'\\ ") {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
