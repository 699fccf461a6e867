package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sellerhub/news-curator/internal/core/domain"
	curerrors "github.com/sellerhub/news-curator/internal/core/errors"
)

const defaultTopN = 5

type categoriesFile struct {
	GlobalExcludeKeywords []string         `yaml:"global_exclude_keywords"`
	Categories            []categoryConfig `yaml:"categories"`
}

type categoryConfig struct {
	Name            string   `yaml:"name"`
	DisplayName     string   `yaml:"display_name"`
	TargetChatID    int64    `yaml:"target_chat_id"`
	TopN            int      `yaml:"top_n"`
	Keywords        []string `yaml:"keywords"`
	ExcludeKeywords []string `yaml:"exclude_keywords"`
	Enabled         *bool    `yaml:"enabled"`
}

// LoadCategories reads the category definition file. Definitions are
// validated here so malformed entries fail the run at load, not mid-run.
// The global exclude list is merged into every category's excludes.
func LoadCategories(path string) ([]domain.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}

	var file categoriesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse categories file: %w", err)
	}

	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("%w: no categories defined in %s", curerrors.ErrInvalidCategory, path)
	}

	seen := make(map[string]bool, len(file.Categories))
	categories := make([]domain.Category, 0, len(file.Categories))

	for i, cc := range file.Categories {
		if cc.Name == "" {
			return nil, fmt.Errorf("%w: category %d has no name", curerrors.ErrInvalidCategory, i)
		}

		if seen[cc.Name] {
			return nil, fmt.Errorf("%w: duplicate category name %q", curerrors.ErrInvalidCategory, cc.Name)
		}

		seen[cc.Name] = true

		if cc.TargetChatID == 0 {
			return nil, fmt.Errorf("%w: category %q has no target_chat_id", curerrors.ErrInvalidCategory, cc.Name)
		}

		if len(cc.Keywords) == 0 {
			return nil, fmt.Errorf("%w: category %q has no keywords", curerrors.ErrInvalidCategory, cc.Name)
		}

		if cc.TopN < 0 {
			return nil, fmt.Errorf("%w: category %q has negative top_n", curerrors.ErrInvalidCategory, cc.Name)
		}

		topN := cc.TopN
		if topN == 0 {
			topN = defaultTopN
		}

		displayName := cc.DisplayName
		if displayName == "" {
			displayName = cc.Name
		}

		enabled := true
		if cc.Enabled != nil {
			enabled = *cc.Enabled
		}

		excludes := make([]string, 0, len(cc.ExcludeKeywords)+len(file.GlobalExcludeKeywords))
		excludes = append(excludes, cc.ExcludeKeywords...)
		excludes = append(excludes, file.GlobalExcludeKeywords...)

		categories = append(categories, domain.Category{
			Name:            cc.Name,
			DisplayName:     displayName,
			TargetChatID:    cc.TargetChatID,
			TopN:            topN,
			Keywords:        cc.Keywords,
			ExcludeKeywords: excludes,
			Enabled:         enabled,
		})
	}

	return categories, nil
}
