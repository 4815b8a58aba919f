package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

func TestGenerateBuiltin(t *testing.T) {
	iface, err := findInterface("", "xdg_toplevel")
	if err != nil {
		t.Fatalf("findInterface() error: %v", err)
	}

	var buf bytes.Buffer
	err = generate(&buf, Config{Package: "xdg", Prefix: "xdg_"}, iface)
	if err != nil {
		t.Fatalf("generate() error: %v", err)
	}
	out := buf.String()

	for _, pattern := range []string{
		`(?m)^package xdg$`,
		`const ToplevelInterface = "xdg_toplevel"`,
		`(?m)^\ttoplevelSetTitle\s+= 2$`,
		`(?m)^\ttoplevelClose\s+= 1$`,
		`(?m)^type ToplevelListener interface \{$`,
		`Configure\(width int32, height int32, states \[\]byte\)`,
	} {
		if !regexp.MustCompile(pattern).MatchString(out) {
			t.Errorf("output does not match %q:\n%s", pattern, out)
		}
	}
}

func TestGenerateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.xml")
	err := os.WriteFile(path, []byte(`<protocol name="test">
  <interface name="test_thing" version="1">
    <request name="do_it">
      <arg name="type" type="uint"/>
    </request>
    <event name="done">
      <arg name="result" type="new_id"/>
    </event>
  </interface>
</protocol>`), 0o600)
	if err != nil {
		t.Fatalf("write XML: %v", err)
	}

	iface, err := findInterface(path, "test_thing")
	if err != nil {
		t.Fatalf("findInterface() error: %v", err)
	}

	var buf bytes.Buffer
	err = generate(&buf, Config{Package: "test", Prefix: "test_"}, iface)
	if err != nil {
		t.Fatalf("generate() error: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("Done(result wire.NewID)")) {
		t.Fatalf("unexpected output:\n%s", buf.Bytes())
	}

	_, err = findInterface(path, "test_other")
	if err == nil {
		t.Fatal("findInterface() found an interface that does not exist")
	}
}

func TestIdentifiers(t *testing.T) {
	ctx := Context{Config: Config{Prefix: "wl_"}}

	if v := ctx.ident("wl_surface"); v != "Surface" {
		t.Errorf("ident() = %q, want %q", v, "Surface")
	}
	if v := ctx.unexport(ctx.camel("set_app_id")); v != "setAppId" {
		t.Errorf("unexport(camel()) = %q, want %q", v, "setAppId")
	}
	if v := ctx.unkeyword("type"); v != "_type" {
		t.Errorf("unkeyword() = %q, want %q", v, "_type")
	}
}
