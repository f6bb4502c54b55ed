package gltfutils

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

func NewDocument() *gltf.Document {
	doc := gltf.NewDocument()
	if len(doc.Buffers) == 0 {
		doc.Buffers = append(doc.Buffers, new(gltf.Buffer))
	}
	return doc
}

// Decode parses a GLTF JSON document. Buffers are expected to be embedded as data URIs.
func Decode(data []byte) (*gltf.Document, error) {
	if !json.Valid(data) {
		return nil, errors.New("content is not valid JSON")
	}

	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, errors.Wrap(err, "decode gltf")
	}
	if doc.Asset.Version == "" {
		return nil, errors.New("missing asset.version, not a gltf document")
	}
	return doc, nil
}

// Encode writes doc as GLTF JSON with all buffers embedded as data URIs.
func Encode(w io.Writer, doc *gltf.Document) error {
	for _, buffer := range doc.Buffers {
		if len(buffer.Data) != 0 && !buffer.IsEmbeddedResource() {
			buffer.EmbeddedResource()
		}
	}
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = false
	return errors.Wrap(encoder.Encode(doc), "encode gltf")
}

func EncodeJSON(doc *gltf.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExtrasMap normalizes a gltf extras value into a JSON object map.
// Values that are not objects yield nil.
func ExtrasMap(extras interface{}) (map[string]interface{}, error) {
	switch v := extras.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return v, nil
	case json.RawMessage:
		return unmarshalExtras(v)
	case []byte:
		return unmarshalExtras(v)
	}

	raw, err := json.Marshal(extras)
	if err != nil {
		return nil, errors.Wrap(err, "marshal extras")
	}
	return unmarshalExtras(raw)
}

func unmarshalExtras(raw []byte) (map[string]interface{}, error) {
	var anything interface{}
	if err := json.Unmarshal(raw, &anything); err != nil {
		return nil, errors.Wrap(err, "unmarshal extras")
	}
	m, _ := anything.(map[string]interface{})
	return m, nil
}
