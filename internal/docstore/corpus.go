package docstore

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed corpus.yaml
var builtinCorpus []byte

// Doc is one corpus document. ID is the stable key in the vector store.
type Doc struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

type corpusFile struct {
	Documents []Doc `yaml:"documents"`
}

// BuiltinCorpus returns the five sports documents shipped with the binary.
func BuiltinCorpus() []Doc {
	docs, err := ParseCorpus(builtinCorpus)
	if err != nil {
		panic(fmt.Sprintf("docstore: embedded corpus is invalid: %v", err))
	}
	return docs
}

// LoadCorpus reads a corpus file. An empty path selects the built-in corpus.
func LoadCorpus(path string) ([]Doc, error) {
	if path == "" {
		return BuiltinCorpus(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	docs, err := ParseCorpus(data)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", path, err)
	}
	return docs, nil
}

// ParseCorpus decodes a YAML corpus and checks that every document has a
// unique ID and non-empty text.
func ParseCorpus(data []byte) ([]Doc, error) {
	var f corpusFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing corpus: %w", err)
	}
	if len(f.Documents) == 0 {
		return nil, fmt.Errorf("corpus has no documents")
	}

	seen := make(map[string]bool, len(f.Documents))
	for i, d := range f.Documents {
		d.ID = strings.TrimSpace(d.ID)
		d.Text = strings.TrimSpace(d.Text)
		if d.ID == "" {
			return nil, fmt.Errorf("document %d has no id", i+1)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("duplicate document id %q", d.ID)
		}
		if d.Text == "" {
			return nil, fmt.Errorf("document %q has no text", d.ID)
		}
		seen[d.ID] = true
		f.Documents[i] = d
	}
	return f.Documents, nil
}
