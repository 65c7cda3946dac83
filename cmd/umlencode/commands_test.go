package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"umlgen-backend/internal/plantuml"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEncodeDecodeStdin(t *testing.T) {
	src := "@startuml\nAlice -> Bob: Hello\n@enduml\n"

	out, err := run(t, src, "encode")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	token := strings.TrimSpace(out)
	if token != plantuml.Encode(src) {
		t.Fatalf("token = %q", token)
	}

	out, err = run(t, "", "decode", token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != src {
		t.Fatalf("decoded %q", out)
	}
}

func TestURLFromFile(t *testing.T) {
	src := "@startuml\nA->B\n@enduml"
	path := filepath.Join(t.TempDir(), "a.puml")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "", "url", "--format", "png", path)
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	want := "http://www.plantuml.com/plantuml/png/" + plantuml.Encode(src)
	if strings.TrimSpace(out) != want {
		t.Fatalf("url = %q, want %q", out, want)
	}
}

func TestDecodeInvalidToken(t *testing.T) {
	if _, err := run(t, "", "decode", "not+valid"); err == nil {
		t.Fatal("expected error")
	}
}
