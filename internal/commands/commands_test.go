package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const script = `
rows = 2
cols = 2

[[step]]
op = "set"
cell = "A1"
text = "3"

[[step]]
op = "set"
cell = "B1"
text = "=A1*5"

[[step]]
op = "copy-row-after"
target = "1"
anchor = "1"

[[step]]
op = "log"
cell = "B2"
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LIVEGRID_CONFIG_PATH", t.TempDir())

	var out bytes.Buffer
	cmd := New()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeScript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grid.toml")
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunValues(t *testing.T) {
	out, err := execute(t, "run", writeScript(t))
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	if !strings.HasPrefix(out, "B2: 15\n") {
		t.Errorf("output does not start with the logged step:\n%s", out)
	}
	if strings.Count(out, "15") != 3 {
		t.Errorf("want B1 and B2 printed as 15:\n%s", out)
	}
}

func TestRunInputs(t *testing.T) {
	out, err := execute(t, "run", writeScript(t), "-o", "inputs")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	for _, want := range []string{"=A1*5", "=A2*5"} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %s:\n%s", want, out)
		}
	}
}

func TestRunErrors(t *testing.T) {
	if _, err := execute(t, "run", writeScript(t), "-o", "yaml"); err == nil {
		t.Error("run accepted an unknown output")
	}
	if _, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("run accepted a missing script")
	}
	if _, err := execute(t, "run", writeScript(t), "--rows", "0"); err == nil {
		t.Error("run accepted a zero row flag")
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "dev") {
		t.Errorf("version output = %q", out)
	}
}
