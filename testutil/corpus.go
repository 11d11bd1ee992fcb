package testutil

import (
	"fmt"
	"os"
	"path/filepath"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// corpusNamespace scopes the deterministic document IDs that
// WriteCorpusDir derives from the target directory path and each
// document's running index, so the same directory always yields the same
// IDs, without colliding with IDs any other fixture generator might
// produce.
var corpusNamespace = uuid.MustParse("5a1d6e4c-9f2b-4e1a-8c3d-7b6a2f0e1d44")

// CorpusDoc mirrors the wire document shape, for building loader fixtures.
type CorpusDoc struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Embedding []float32      `json:"embedding"`
	Extra     map[string]any `json:"-"`
}

func (d CorpusDoc) marshalable() map[string]any {
	metadata := map[string]any{"embedding": d.Embedding}
	for k, v := range d.Extra {
		metadata[k] = v
	}
	return map[string]any{
		"id":       d.ID,
		"text":     d.Text,
		"metadata": metadata,
	}
}

// WriteCorpusDir writes docsPerFile documents into each of numFiles JSON
// files under dir, one file holding an array of document objects. It
// returns the list of files written, in creation order.
func WriteCorpusDir(dir string, numFiles, docsPerFile, dim int, rng *RNG) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("testutil: create corpus dir: %w", err)
	}

	var files []string
	docIndex := 0
	for f := 0; f < numFiles; f++ {
		docs := make([]map[string]any, 0, docsPerFile)
		for i := 0; i < docsPerFile; i++ {
			embedding := rng.UnitVector(dim)
			id := uuid.NewSHA1(corpusNamespace, []byte(fmt.Sprintf("%s/%06d", dir, docIndex)))
			doc := CorpusDoc{
				ID:        id.String(),
				Text:      fmt.Sprintf("fixture document number %d", docIndex),
				Embedding: embedding,
				Extra:     map[string]any{"file": f, "seq": i},
			}
			docs = append(docs, doc.marshalable())
			docIndex++
		}

		data, err := gojson.MarshalIndent(docs, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("testutil: marshal corpus file: %w", err)
		}

		path := filepath.Join(dir, fmt.Sprintf("part-%04d.json", f))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("testutil: write corpus file: %w", err)
		}
		files = append(files, path)
	}

	return files, nil
}

// WriteSingleDocumentFile writes one document object (not wrapped in an
// array) to path, exercising the loader's single-object JSON shape.
func WriteSingleDocumentFile(path string, id, text string, embedding []float32) error {
	doc := CorpusDoc{ID: id, Text: text, Embedding: embedding}
	data, err := gojson.MarshalIndent(doc.marshalable(), "", "  ")
	if err != nil {
		return fmt.Errorf("testutil: marshal document: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
