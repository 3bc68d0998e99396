package domain

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestDomainDoesNotImportInternal enforces that the domain layer stays free
// of implementation dependencies. The contracts here are consumed by every
// other package, so an internal import would create a cycle-prone knot.
func TestDomainDoesNotImportInternal(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("cannot get working dir: %v", err)
	}

	entries, err := os.ReadDir(wd)
	if err != nil {
		t.Fatalf("cannot read dir: %v", err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(wd, name)) //nolint:gosec // names come from ReadDir
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		inBlock := false
		for _, raw := range strings.Split(string(data), "\n") {
			line := strings.TrimSpace(raw)
			if !inBlock {
				if strings.HasPrefix(line, "import (") {
					inBlock = true
					continue
				}
				if strings.HasPrefix(line, "import ") {
					checkImport(t, name, extractQuoted(line))
				}
				continue
			}
			if line == ")" {
				inBlock = false
				continue
			}
			checkImport(t, name, extractQuoted(line))
		}
	}
}

func checkImport(t *testing.T, file, path string) {
	t.Helper()
	if path == "" {
		return
	}
	if strings.Contains(path, "/internal/") || strings.HasPrefix(path, "opschart/internal") {
		t.Errorf("domain package must not import internal packages: %s (%s)", path, file)
	}
}

func extractQuoted(line string) string {
	start := strings.IndexByte(line, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(line[start+1:], '"')
	if end < 0 {
		return ""
	}
	return line[start+1 : start+1+end]
}
