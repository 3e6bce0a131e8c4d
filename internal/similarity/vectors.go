package similarity

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Vectors is an in-memory static word-vector model (GloVe or word2vec text
// format). Vectors are normalized at load time so similarity is a single dot
// product. The model is read-only after loading and safe for concurrent use.
type Vectors struct {
	name  string
	dim   int
	index map[string]int
	words []string
	data  []float32 // len(words) * dim, row-major
}

// LoadVectorsFile reads a vectors text file from disk.
func LoadVectorsFile(name, path string) (*Vectors, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vectors %s: %w", path, err)
	}
	defer f.Close()
	return LoadVectors(name, f)
}

// LoadVectors parses "word v1 v2 ... vn" lines. A leading word2vec header
// ("<count> <dim>") is skipped. Blank lines and lines starting with '#' are ignored.
// The first occurrence of a word wins.
func LoadVectors(name string, r io.Reader) (*Vectors, error) {
	v := &Vectors{name: name, index: make(map[string]int)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if v.dim == 0 && len(fields) == 2 && isInt(fields[0]) && isInt(fields[1]) {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("vectors line %d: expected word and values", line)
		}
		if v.dim == 0 {
			v.dim = len(fields) - 1
		}
		if len(fields)-1 != v.dim {
			return nil, fmt.Errorf("vectors line %d: %w (got %d, want %d)", line, ErrDimensionMismatch, len(fields)-1, v.dim)
		}
		word := fields[0]
		if _, dup := v.index[word]; dup {
			continue
		}
		row := make([]float32, v.dim)
		for i, f := range fields[1:] {
			x, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("vectors line %d: %w", line, err)
			}
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, fmt.Errorf("vectors line %d: component %d of %q is not finite", line, i+1, word)
			}
			row[i] = float32(x)
		}
		normalizeInPlace(row)
		v.index[word] = len(v.words)
		v.words = append(v.words, word)
		v.data = append(v.data, row...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vectors: %w", err)
	}
	if len(v.words) == 0 {
		return nil, fmt.Errorf("vectors %s: no entries", name)
	}
	return v, nil
}

func isInt(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// Name implements Provider.
func (v *Vectors) Name() string { return v.name }

// Dim returns the vector dimensionality.
func (v *Vectors) Dim() int { return v.dim }

// Len returns the vocabulary size.
func (v *Vectors) Len() int { return len(v.words) }

// Each calls fn for every word and its unit vector, in file order, until fn returns an error.
func (v *Vectors) Each(fn func(word string, vec []float32) error) error {
	for i, w := range v.words {
		if err := fn(w, v.row(i)); err != nil {
			return err
		}
	}
	return nil
}

func (v *Vectors) row(i int) []float32 {
	return v.data[i*v.dim : (i+1)*v.dim]
}

// lookup resolves a word as given, lower-cased, then title-cased.
func (v *Vectors) lookup(word string) (int, bool) {
	for _, w := range spellings(word) {
		if i, ok := v.index[w]; ok {
			return i, true
		}
	}
	return 0, false
}

// spellings lists the forms a vocabulary lookup tries, in order of preference.
func spellings(word string) []string {
	lower := strings.ToLower(word)
	out := []string{word}
	for _, w := range []string{lower, titleCase(lower)} {
		if !slices.Contains(out, w) {
			out = append(out, w)
		}
	}
	return out
}

func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Known implements Vocabulary.
func (v *Vectors) Known(_ context.Context, word string) (bool, error) {
	_, ok := v.lookup(word)
	return ok, nil
}

// Similarity implements Provider.
func (v *Vectors) Similarity(_ context.Context, a, b string) (float64, error) {
	ia, ok := v.lookup(a)
	if !ok {
		return 0, &UnknownWordError{Word: a, Provider: v.name}
	}
	ib, ok := v.lookup(b)
	if !ok {
		return 0, &UnknownWordError{Word: b, Provider: v.name}
	}
	return dotUnit(v.row(ia), v.row(ib)), nil
}

// Neighbors implements Neighborer with an exhaustive scan of the vocabulary.
func (v *Vectors) Neighbors(ctx context.Context, word string, n int) ([]Neighbor, error) {
	i, ok := v.lookup(word)
	if !ok {
		return nil, &UnknownWordError{Word: word, Provider: v.name}
	}
	if n <= 0 {
		return []Neighbor{}, nil
	}
	target := v.row(i)
	top := make([]Neighbor, 0, n+1)
	for j := range v.words {
		if j == i {
			continue
		}
		if j%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		sim := dotUnit(target, v.row(j))
		if len(top) == n && sim <= top[n-1].Similarity {
			continue
		}
		pos := sort.Search(len(top), func(k int) bool { return top[k].Similarity < sim })
		top = append(top, Neighbor{})
		copy(top[pos+1:], top[pos:])
		top[pos] = Neighbor{Word: v.words[j], Similarity: sim}
		if len(top) > n {
			top = top[:n]
		}
	}
	return top, nil
}

var (
	_ Provider   = (*Vectors)(nil)
	_ Vocabulary = (*Vectors)(nil)
	_ Neighborer = (*Vectors)(nil)
)
