package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func initRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(DriftlinePath(root), 0755); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestConfig_SaveLoad(t *testing.T) {
	root := initRepo(t)

	cfg := Default()
	cfg.Eras = []string{"medieval", "1900s", "2020s"}
	cfg.Backend = BackendSQLite
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got.Eras, cfg.Eras) {
		t.Errorf("Eras = %v, want %v", got.Eras, cfg.Eras)
	}
	if got.Backend != BackendSQLite {
		t.Errorf("Backend = %q, want sqlite", got.Backend)
	}
	if got.ExamplesPerEra != 5 {
		t.Errorf("ExamplesPerEra = %d, want 5", got.ExamplesPerEra)
	}
}

func TestLoad_Defaults(t *testing.T) {
	root := initRepo(t)
	if err := os.WriteFile(ConfigPath(root), []byte(`{"eras":["1900s"]}`), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Backend != BackendFile {
		t.Errorf("Backend = %q, want file default", got.Backend)
	}
	if got.ExamplesPerEra != 5 {
		t.Errorf("ExamplesPerEra = %d, want 5 default", got.ExamplesPerEra)
	}
}

func TestLoad_InvalidBackend(t *testing.T) {
	root := initRepo(t)
	if err := os.WriteFile(ConfigPath(root), []byte(`{"backend":"dynamo"}`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(root); err == nil {
		t.Error("Load() with invalid backend should fail")
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load() without config should fail")
	}
}

func TestFindRepository(t *testing.T) {
	root := initRepo(t)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	found, err := FindRepository(nested)
	if err != nil {
		t.Fatalf("FindRepository() error = %v", err)
	}
	// Resolve symlinks for comparison; t.TempDir may sit behind one.
	wantResolved, _ := filepath.EvalSymlinks(root)
	gotResolved, _ := filepath.EvalSymlinks(found)
	if gotResolved != wantResolved {
		t.Errorf("FindRepository() = %q, want %q", found, root)
	}

	if _, err := FindRepository(t.TempDir()); err == nil {
		t.Error("FindRepository() outside a repository should fail")
	}
}

func TestIsRepository(t *testing.T) {
	root := initRepo(t)
	if !IsRepository(root) {
		t.Error("IsRepository() = false for initialized repo")
	}
	if IsRepository(t.TempDir()) {
		t.Error("IsRepository() = true for plain directory")
	}
}
