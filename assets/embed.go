// Package assets embeds the default game data: word vectors for the
// built-in provider, secret word candidates and the example pairs.
package assets

import (
	"bufio"
	"embed"
	"io"
	"strings"
)

//go:embed vectors.txt secrets.txt examples.yaml
var FS embed.FS

const (
	VectorsFile  = "vectors.txt"
	SecretsFile  = "secrets.txt"
	ExamplesFile = "examples.yaml"
)

// Open opens an embedded file by name.
func Open(name string) (io.ReadCloser, error) {
	return FS.Open(name)
}

// ReadLines returns the non-blank, non-comment lines of r, lower-cased.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, strings.ToLower(s))
	}
	return out, sc.Err()
}

// SecretsList returns the embedded secret word candidates.
func SecretsList() ([]string, error) {
	f, err := FS.Open(SecretsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLines(f)
}
