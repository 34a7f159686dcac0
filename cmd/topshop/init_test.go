package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/out-of-energy/topshop/internal/config"
)

// TestNewInitCmd tests the init command creation.
func TestNewInitCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()

	t.Run("has output flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("output")
		if flag == nil {
			t.Fatal("expected output flag")
		}
		if flag.Shorthand != "o" {
			t.Errorf("expected shorthand 'o', got %q", flag.Shorthand)
		}
		if flag.DefValue != config.DefaultConfigFile {
			t.Errorf("expected default %q, got %q", config.DefaultConfigFile, flag.DefValue)
		}
	})

	t.Run("has force flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("force")
		if flag == nil {
			t.Fatal("expected force flag")
		}
		if flag.Shorthand != "f" {
			t.Errorf("expected shorthand 'f', got %q", flag.Shorthand)
		}
	})
}

// TestRunInitCmd tests the init command execution.
func TestRunInitCmd(t *testing.T) {
	t.Parallel()

	run := func(t *testing.T, args ...string) (string, error) {
		t.Helper()
		var out bytes.Buffer
		cmd := NewInitCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	t.Run("creates rule file", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), "nested", ".topshop")
		out, err := run(t, "-o", outputPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Created rule file") {
			t.Errorf("unexpected output %q", out)
		}

		info, err := os.Stat(outputPath)
		if err != nil {
			t.Fatalf("expected rule file: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
		}
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), ".topshop")
		if err := os.WriteFile(outputPath, []byte("keep"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := run(t, "-o", outputPath); err == nil {
			t.Fatal("expected error")
		}
		content, _ := os.ReadFile(outputPath)
		if string(content) != "keep" {
			t.Error("expected file to be untouched")
		}

		if _, err := run(t, "-o", outputPath, "-f"); err != nil {
			t.Fatalf("unexpected error with force: %v", err)
		}
		content, _ = os.ReadFile(outputPath)
		if !strings.Contains(string(content), "platform:") {
			t.Error("expected template content after force")
		}
	})
}

// TestConfigTemplate checks that the written template loads and matches
// the built-in rules.
func TestConfigTemplate(t *testing.T) {
	t.Parallel()

	data, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := config.ParseConfig(data)
	if err != nil {
		t.Fatalf("template does not parse: %v", err)
	}

	defaults := config.DefaultFile()
	for _, tc := range []struct {
		name      string
		got, want config.TaskRules
	}{
		{"platform", loaded.Platform, defaults.Platform},
		{"category", loaded.Category, defaults.Category},
	} {
		if tc.got.ThresholdOr(-1) != tc.want.ThresholdOr(-1) {
			t.Errorf("%s threshold: got %v, want %v", tc.name, tc.got.ThresholdOr(-1), tc.want.ThresholdOr(-1))
		}
		if tc.got.Strategy != tc.want.Strategy {
			t.Errorf("%s strategy: got %q, want %q", tc.name, tc.got.Strategy, tc.want.Strategy)
		}
		for name, want := range tc.want.Indicators {
			got := tc.got.Rule(name)
			if got.Weight != want.Weight || got.Cap != want.Cap || got.Divisor != want.Divisor {
				t.Errorf("%s/%s: got %+v, want %+v", tc.name, name, got, want)
			}
			if len(got.AllPatterns()) != len(want.AllPatterns()) {
				t.Errorf("%s/%s: got %d patterns, want %d", tc.name, name, len(got.AllPatterns()), len(want.AllPatterns()))
			}
		}
	}

	if loaded.Defaults.Headers["Accept-Language"] == "" {
		t.Error("expected default Accept-Language header")
	}
}
