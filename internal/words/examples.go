package words

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/semantle/assets"
)

// ExamplePair is one illustrative pair with a short note on how the words relate.
type ExamplePair struct {
	Words       [2]string `yaml:"words"`
	Description string    `yaml:"description"`
}

// Examples holds illustrative word pairs per game mode.
type Examples map[string][]ExamplePair

// LoadExamples decodes the embedded examples file.
func LoadExamples() (Examples, error) {
	f, err := assets.Open(assets.ExamplesFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseExamples(f)
}

// ParseExamples decodes examples YAML of the form
// `mode: [{words: [a, b], description: ...}, ...]`.
func ParseExamples(r io.Reader) (Examples, error) {
	var ex Examples
	if err := yaml.NewDecoder(r).Decode(&ex); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode examples: %w", err)
	}
	if ex == nil {
		ex = Examples{}
	}
	for mode, pairs := range ex {
		for i, p := range pairs {
			if p.Words[0] == "" || p.Words[1] == "" {
				return nil, fmt.Errorf("examples %s[%d]: need two words", mode, i)
			}
		}
	}
	return ex, nil
}

// For returns the pairs configured for mode.
func (e Examples) For(mode string) []ExamplePair {
	return e[mode]
}
