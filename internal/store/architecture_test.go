package store

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestStoreLayerDoesNotImportUpperLayers keeps the store a leaf layer: it
// may depend on pkg/domain only, never on the service, sync, export, or
// suggestion packages that consume it.
func TestStoreLayerDoesNotImportUpperLayers(t *testing.T) {
	forbidden := []string{
		"opschart/internal/core",
		"opschart/internal/syncer",
		"opschart/internal/export",
		"opschart/internal/suggest",
		"opschart/internal/blob",
		"opschart/internal/persistence",
	}
	guarded := []string{
		"opschart/internal/store",
		"opschart/pkg/domain",
	}

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports}
	pkgs, err := packages.Load(cfg, "opschart/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		if !isGuarded(pkg.PkgPath, guarded) {
			continue
		}
		for importPath := range pkg.Imports {
			for _, prefix := range forbidden {
				if importPath == prefix || strings.HasPrefix(importPath, prefix+"/") {
					seen[pkg.PkgPath+": "+importPath] = struct{}{}
				}
			}
		}
	}

	if len(seen) > 0 {
		violations := make([]string, 0, len(seen))
		for v := range seen {
			violations = append(violations, v)
		}
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden import in guarded layer: %s", v)
		}
		t.Fatalf("found %d layering violations", len(violations))
	}
}

func isGuarded(pkgPath string, guarded []string) bool {
	for _, prefix := range guarded {
		if pkgPath == prefix || strings.HasPrefix(pkgPath, prefix+"/") {
			return true
		}
	}
	return false
}
