package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "training.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadTrainingFilePartialOverride(t *testing.T) {
	path := writeConfig(t, "learning_rate: 0.05\nmomentum: 0.7\n")

	cfg, err := LoadTrainingFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LearningRate != 0.05 {
		t.Fatalf("expected overridden learning rate, got %v", cfg.LearningRate)
	}
	if cfg.Momentum != 0.7 {
		t.Fatalf("expected overridden momentum, got %v", cfg.Momentum)
	}
	defaults := DefaultTrainingConfig()
	if cfg.Epochs != defaults.Epochs {
		t.Fatalf("unset fields must keep defaults, got epochs %d", cfg.Epochs)
	}
}

func TestLoadTrainingFileRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"negative learning rate": "learning_rate: -1\n",
		"zero epochs":            "epochs: 0\n",
		"validation split 1":     "validation_split: 1\n",
		"momentum above 1":       "momentum: 1.5\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, content)
			if _, err := LoadTrainingFile(path); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestLoadTrainingFileMissingFile(t *testing.T) {
	cfg, err := LoadTrainingFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if cfg != DefaultTrainingConfig() {
		t.Fatalf("expected defaults on failure, got %+v", cfg)
	}
}
