// Package protocol defines the types necessary for unmarshalling a
// protocol-specification XML file, along with the specifications of
// the interfaces that this module implements.
package protocol

import (
	"embed"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"sync"
)

type Protocol struct {
	Name      string `xml:"name,attr"`
	Copyright string `xml:"copyright"`

	Interfaces []Interface `xml:"interface"`
}

type Interface struct {
	Name        string      `xml:"name,attr"`
	Version     int         `xml:"version,attr"`
	Description Description `xml:"description"`

	Requests []Op   `xml:"request"`
	Events   []Op   `xml:"event"`
	Enums    []Enum `xml:"enum"`
}

// RequestName returns the name of the request with the given opcode.
func (i Interface) RequestName(op uint16) string {
	return opName(i.Requests, op)
}

// EventName returns the name of the event with the given opcode.
func (i Interface) EventName(op uint16) string {
	return opName(i.Events, op)
}

// Enum returns the enum with the given name.
func (i Interface) Enum(name string) (Enum, bool) {
	for _, e := range i.Enums {
		if e.Name == name {
			return e, true
		}
	}
	return Enum{}, false
}

func opName(ops []Op, op uint16) string {
	if int(op) >= len(ops) {
		return fmt.Sprintf("op%v", op)
	}
	return ops[op].Name
}

type Description struct {
	Summary string `xml:"summary,attr"`
	Full    string `xml:",chardata"`
}

type Op struct {
	Name        string      `xml:"name,attr"`
	Type        string      `xml:"type,attr"`
	Since       int         `xml:"since,attr"`
	Description Description `xml:"description"`

	Args []Arg `xml:"arg"`
}

type Arg struct {
	Name    string `xml:"name,attr"`
	Summary string `xml:"summary,attr"`

	Type      string `xml:"type,attr"`
	Interface string `xml:"interface,attr"`
	AllowNull bool   `xml:"allow-null,attr"`
}

type Enum struct {
	Name        string      `xml:"name,attr"`
	Description Description `xml:"description"`

	Entries []Entry `xml:"entry"`
}

// Entry returns the entry with the given name.
func (e Enum) Entry(name string) (Entry, bool) {
	for _, entry := range e.Entries {
		if entry.Name == name {
			return entry, true
		}
	}
	return Entry{}, false
}

type Entry struct {
	Name    string `xml:"name,attr"`
	Summary string `xml:"summary,attr"`
	Value   string `xml:"value,attr"`
	Since   int    `xml:"since,attr"`
}

func (e Entry) Int() (int, error) {
	v, err := strconv.ParseInt(e.Value, 0, 0)
	return int(v), err
}

// Load decodes a protocol specification from r.
func Load(r io.Reader) (proto Protocol, err error) {
	d := xml.NewDecoder(r)
	err = d.Decode(&proto)
	return proto, err
}

//go:embed wayland.xml xdg-shell.xml
var files embed.FS

var builtin = sync.OnceValue(func() map[string]Interface {
	interfaces := make(map[string]Interface)
	for _, name := range []string{"wayland.xml", "xdg-shell.xml"} {
		file, err := files.Open(name)
		if err != nil {
			panic(fmt.Errorf("open embedded %v: %w", name, err))
		}

		proto, err := Load(file)
		file.Close()
		if err != nil {
			panic(fmt.Errorf("decode embedded %v: %w", name, err))
		}

		for _, i := range proto.Interfaces {
			interfaces[i.Name] = i
		}
	}
	return interfaces
})

// Find returns the specification of one of the built-in interfaces.
func Find(name string) (Interface, bool) {
	i, ok := builtin()[name]
	return i, ok
}

// RequestName is a convenience function that returns the name of a
// request of a built-in interface.
func RequestName(iface string, op uint16) string {
	i, ok := Find(iface)
	if !ok {
		return fmt.Sprintf("op%v", op)
	}
	return i.RequestName(op)
}

// EventName is a convenience function that returns the name of an
// event of a built-in interface.
func EventName(iface string, op uint16) string {
	i, ok := Find(iface)
	if !ok {
		return fmt.Sprintf("op%v", op)
	}
	return i.EventName(op)
}
