package main

import (
	"fmt"
	"go/token"
	"strings"
	"unicode"
	"unicode/utf8"

	"deedles.dev/wlwin/protocol"
)

func (ctx Context) ident(v string) string {
	v, _ = strings.CutPrefix(v, ctx.Config.Prefix)
	return ctx.camel(v)
}

func (ctx Context) camel(v string) string {
	var buf strings.Builder
	buf.Grow(len(v))
	shift := true
	for _, c := range v {
		if c == '_' {
			shift = true
			continue
		}

		if shift {
			c = unicode.ToUpper(c)
		}
		buf.WriteRune(c)
		shift = false
	}
	return buf.String()
}

func (ctx Context) unexport(v string) string {
	if len(v) == 0 {
		return ""
	}

	c, size := utf8.DecodeRuneInString(v)
	if unicode.IsLower(c) {
		return v
	}

	var buf strings.Builder
	buf.Grow(len(v))
	buf.WriteRune(unicode.ToLower(c))
	buf.WriteString(v[size:])
	return buf.String()
}

func (ctx Context) trimLines(v string) string {
	lines := strings.Split(strings.TrimSpace(v), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, "\n")
}

func (ctx Context) comment(v string) string {
	if len(v) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, line := range strings.Split(v, "\n") {
		sb.WriteString("// ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (ctx Context) argName(arg protocol.Arg) string {
	return ctx.unkeyword(ctx.unexport(ctx.camel(arg.Name)))
}

// goType returns the type that a listener receives for arg. Objects
// are passed by ID.
func (ctx Context) goType(arg protocol.Arg) (string, error) {
	switch arg.Type {
	case "uint", "object":
		return "uint32", nil
	case "int":
		return "int32", nil
	case "fixed":
		return "wire.Fixed", nil
	case "new_id":
		if arg.Interface == "" {
			return "wire.NewID", nil
		}
		return "uint32", nil
	case "string":
		return "string", nil
	case "array":
		return "[]byte", nil
	case "fd":
		return "*os.File", nil
	default:
		return "", fmt.Errorf("unknown type: %q", arg.Type)
	}
}

func (ctx Context) unkeyword(v string) string {
	if token.IsKeyword(v) {
		return "_" + v
	}
	return v
}
