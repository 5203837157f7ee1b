package workload

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// Encode writes w as two-space indented JSON. Profile keys come out sorted,
// so decoding and re-encoding a document reproduces it byte for byte.
func Encode(out io.Writer, w *Workload) error {
	doc := *w
	if doc.Jobs == nil {
		doc.Jobs = []Job{}
	}
	if doc.Profiles == nil {
		doc.Profiles = map[string]Profile{}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return errors.Wrap(enc.Encode(doc), "encoding workload")
}

func Marshal(w *Workload) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a workload document. Fields other than the ones tracegen
// writes are ignored.
func Decode(r io.Reader) (*Workload, error) {
	var w Workload
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return nil, errors.Wrap(err, "decoding workload")
	}
	return &w, nil
}
