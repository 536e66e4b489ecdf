package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

var (
	testBinary     string
	testBinaryOnce sync.Once
	testBinaryErr  error
)

// buildTestBinary builds the facetmodel binary once for all tests
func buildTestBinary() (string, error) {
	testBinaryOnce.Do(func() {
		tmpBinary := filepath.Join(os.TempDir(), "facetmodel-test")
		cmd := exec.Command("go", "build", "-o", tmpBinary, ".")
		if out, err := cmd.CombinedOutput(); err != nil {
			testBinaryErr = err
			testBinary = string(out)
			return
		}
		testBinary = tmpBinary
	})

	if testBinaryErr != nil {
		return "", testBinaryErr
	}
	return testBinary, nil
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	binary, err := buildTestBinary()
	if err != nil {
		t.Fatalf("failed to build test binary: %v\n%s", err, testBinary)
	}
	cmd := exec.Command(binary, args...)
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(), "FACETMODEL_LOG_LEVEL=error")
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func TestVersionCommand(t *testing.T) {
	output, err := run(t, "version", "--no-color")
	if err != nil {
		t.Fatalf("version command failed: %v\nOutput: %s", err, output)
	}

	for _, exp := range []string{"facetmodel version:", "Git commit:", "Build date:", "Go version:"} {
		if !strings.Contains(output, exp) {
			t.Errorf("expected output to contain %q, got: %s", exp, output)
		}
	}
}

func TestIntrospectSpecs(t *testing.T) {
	output, err := run(t, "introspect", "specs", "--no-color")
	if err != nil {
		t.Fatalf("introspect failed: %v\nOutput: %s", err, output)
	}
	for _, exp := range []string{"Customer", "Clients", "Order", "Product"} {
		if !strings.Contains(output, exp) {
			t.Errorf("expected output to contain %q, got: %s", exp, output)
		}
	}
}

func TestUnknownSpecification(t *testing.T) {
	output, err := run(t, "introspect", "spec", "Custmer", "--no-color")
	if err == nil {
		t.Fatalf("expected an error, got output: %s", output)
	}
	if !strings.Contains(output, "Did you mean: Customer") {
		t.Errorf("expected a suggestion, got: %s", output)
	}
}
