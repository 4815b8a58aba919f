// wlgen prints the opcode constants and the listener interface for a
// single protocol interface, in the form used by the client and xdg
// packages.
package main

import (
	"bytes"
	_ "embed"
	"flag"
	"fmt"
	"go/format"
	"io"
	"log"
	"os"
	"text/template"

	"deedles.dev/wlwin/protocol"
)

//go:embed interface.tmpl
var tmplSource string

type Config struct {
	Package string
	Prefix  string
}

type Context struct {
	Config    Config
	Interface protocol.Interface
	T         *template.Template
}

func loadXML(path string) (proto protocol.Protocol, err error) {
	file, err := os.Open(path)
	if err != nil {
		return proto, err
	}
	defer file.Close()

	return protocol.Load(file)
}

func findInterface(path, name string) (protocol.Interface, error) {
	if path == "" {
		i, ok := protocol.Find(name)
		if !ok {
			return i, fmt.Errorf("no built-in interface named %q", name)
		}
		return i, nil
	}

	proto, err := loadXML(path)
	if err != nil {
		return protocol.Interface{}, fmt.Errorf("load XML: %w", err)
	}
	for _, i := range proto.Interfaces {
		if i.Name == name {
			return i, nil
		}
	}
	return protocol.Interface{}, fmt.Errorf("%v does not define %q", path, name)
}

func generate(w io.Writer, config Config, iface protocol.Interface) error {
	ctx := Context{Config: config, Interface: iface}
	ctx.T = template.Must(template.New("interface").Funcs(template.FuncMap{
		"ident":     ctx.ident,
		"camel":     ctx.camel,
		"unexport":  ctx.unexport,
		"argName":   ctx.argName,
		"goType":    ctx.goType,
		"comment":   ctx.comment,
		"trimLines": ctx.trimLines,
	}).Parse(tmplSource))

	var buf bytes.Buffer
	err := ctx.T.Execute(&buf, ctx)
	if err != nil {
		return fmt.Errorf("execute template: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("format output: %w\n%s", err, buf.Bytes())
	}

	_, err = w.Write(src)
	return err
}

func main() {
	xmlfile := flag.String("xml", "", "protocol XML file (default: built-in protocols)")
	name := flag.String("interface", "", "interface to generate")
	out := flag.String("out", "", "output file (default stdout)")
	pkg := flag.String("pkg", "wl", "output package name")
	prefix := flag.String("prefix", "wl_", "interface prefix name to strip")
	flag.Parse()

	if *name == "" {
		log.Fatal("-interface is required")
	}

	iface, err := findInterface(*xmlfile, *name)
	if err != nil {
		log.Fatal(err)
	}

	w := io.Writer(os.Stdout)
	if *out != "" {
		file, err := os.Create(*out)
		if err != nil {
			log.Fatalf("create output: %v", err)
		}
		defer file.Close()
		w = file
	}

	err = generate(w, Config{Package: *pkg, Prefix: *prefix}, iface)
	if err != nil {
		log.Fatalf("generate %v: %v", *name, err)
	}
}
