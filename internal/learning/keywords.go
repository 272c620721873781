package learning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type keywordFile struct {
	Keywords []string `yaml:"keywords"`
}

// LoadKeywords reads a YAML document of the form
//
//	keywords:
//	  - learn word
//	  - synonym
//
// An empty path returns DefaultKeywords.
func LoadKeywords(path string) ([]string, error) {
	if path == "" {
		return DefaultKeywords, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keywords file: %w", err)
	}
	var f keywordFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse keywords file: %w", err)
	}
	if len(f.Keywords) == 0 {
		return nil, fmt.Errorf("keywords file %s lists no keywords", path)
	}
	return f.Keywords, nil
}
