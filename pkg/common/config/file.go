package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadTrainingFile reads hyperparameters from a YAML file. Fields left at
// their zero value fall back to the built-in defaults, so a partial file is
// valid.
func LoadTrainingFile(path string) (TrainingConfig, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultTrainingConfig(), err
	}

	cfg := DefaultTrainingConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return DefaultTrainingConfig(), fmt.Errorf("parse training config: %w", err)
	}

	if cfg.LearningRate <= 0 || cfg.Epochs <= 0 {
		return DefaultTrainingConfig(), fmt.Errorf("training config %s: learning_rate and epochs must be positive", path)
	}
	if cfg.ValidationSplit < 0 || cfg.ValidationSplit >= 1 {
		return DefaultTrainingConfig(), fmt.Errorf("training config %s: validation_split must be in [0,1)", path)
	}
	if cfg.Momentum < 0 || cfg.Momentum > 1 {
		return DefaultTrainingConfig(), fmt.Errorf("training config %s: momentum must be in [0,1]", path)
	}

	return cfg, nil
}
