package codec

import (
	"fmt"

	gojson "github.com/goccy/go-json"
)

// Document is the decoded form of one wire document: id and text as UTF-8
// strings, embedding as D float32 values, and metadataJSON as the verbatim
// JSON text of the "metadata" object (embedding field included) so callers
// can recover the original metadata from a search hit byte-for-byte.
type Document struct {
	ID           string
	Text         string
	Embedding    []float32
	MetadataJSON []byte
}

type wireDocument struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata gojson.RawMessage `json:"metadata"`
}

type wireMetadata struct {
	Embedding []float32 `json:"embedding"`
}

// DecodeDocument parses one document object using c. A nil c falls back to
// Default.
//
// The "metadata" field is captured as a json.RawMessage in the same decode
// pass that reads id and text, so MetadataJSON is always an exact substring
// of the input — there is no risk of a parser cursor having already moved
// past the field by the time its raw text is fetched, a pitfall inherent to
// iterate-then-fetch designs. The embedding is then extracted from that
// captured raw text in a second, independent decode.
func DecodeDocument(c Codec, data []byte) (Document, error) {
	if c == nil {
		c = Default
	}

	var wd wireDocument
	if err := c.Unmarshal(data, &wd); err != nil {
		return Document{}, fmt.Errorf("codec: malformed document: %w", err)
	}

	var wm wireMetadata
	if len(wd.Metadata) > 0 {
		if err := c.Unmarshal(wd.Metadata, &wm); err != nil {
			return Document{}, fmt.Errorf("codec: malformed metadata: %w", err)
		}
	}

	return Document{
		ID:           wd.ID,
		Text:         wd.Text,
		Embedding:    wm.Embedding,
		MetadataJSON: []byte(wd.Metadata),
	}, nil
}

// DecodeFailure records one array element that DocumentsFromJSON could not
// decode, identified by its position in the source array.
type DecodeFailure struct {
	Index int
	Err   error
}

// DocumentsFromJSON decodes a JSON file that is either a single document
// object or an array of document objects, per the wire contract, using c
// to do every decode. A nil c falls back to Default. Each directory-loader
// consumer goroutine calls this with its own Codec value, so no decode
// state is ever shared across goroutines.
//
// A malformed element inside an array does not abort the whole file: it is
// recorded in the returned failures slice and decoding continues with its
// siblings, so well-formed documents sharing a file with a bad one are
// still returned. The single-object shape has no siblings to preserve, so
// a malformed object is a fatal error for that file.
func DocumentsFromJSON(c Codec, data []byte) ([]Document, []DecodeFailure, error) {
	if c == nil {
		c = Default
	}

	shape := detectShape(data)
	switch shape {
	case shapeArray:
		var raws []gojson.RawMessage
		if err := c.Unmarshal(data, &raws); err != nil {
			return nil, nil, fmt.Errorf("codec: malformed document array: %w", err)
		}
		docs := make([]Document, 0, len(raws))
		var failures []DecodeFailure
		for i, raw := range raws {
			doc, err := DecodeDocument(c, raw)
			if err != nil {
				failures = append(failures, DecodeFailure{Index: i, Err: err})
				continue
			}
			docs = append(docs, doc)
		}
		return docs, failures, nil
	case shapeObject:
		doc, err := DecodeDocument(c, data)
		if err != nil {
			return nil, nil, err
		}
		return []Document{doc}, nil, nil
	default:
		return nil, nil, fmt.Errorf("codec: empty or malformed document file")
	}
}

type jsonShape int

const (
	shapeUnknown jsonShape = iota
	shapeObject
	shapeArray
)

// detectShape skips leading JSON whitespace and inspects the first
// non-space byte: '[' means an array of documents, '{' a single document
// object; any other byte, or input that is empty or all whitespace, is
// shapeUnknown and rejected by DocumentsFromJSON.
func detectShape(data []byte) jsonShape {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return shapeArray
		case '{':
			return shapeObject
		default:
			return shapeUnknown
		}
	}
	return shapeUnknown
}
