package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zpam/mailtype/pkg/ngram"
)

// Codec converts artifacts to and from bytes.
type Codec interface {
	Name() string
	Marshal(a *Artifact) ([]byte, error)
	Unmarshal(data []byte, a *Artifact) error
}

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(a *Artifact) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (jsonCodec) Unmarshal(data []byte, a *Artifact) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(a); err != nil {
		return err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after artifact")
	}
	return nil
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }

func (msgpackCodec) Marshal(a *Artifact) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) Unmarshal(data []byte, a *Artifact) error {
	r := bytes.NewReader(data)
	dec := msgpack.NewDecoder(r)
	dec.DisallowUnknownFields(true)
	if err := dec.Decode(a); err != nil {
		return err
	}
	if r.Len() > 0 {
		return fmt.Errorf("%d bytes of trailing data after artifact", r.Len())
	}
	return nil
}

// CodecFor resolves a configured format. "auto" and "" pick by the file
// extension of path and fall back to JSON.
func CodecFor(format, path string) (Codec, error) {
	switch strings.ToLower(format) {
	case "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	case "", "auto":
		switch strings.ToLower(filepath.Ext(path)) {
		case ".msgpack", ".mpk", ".bin":
			return Msgpack, nil
		default:
			return JSON, nil
		}
	default:
		return nil, fmt.Errorf("unknown artifact format: %s", format)
	}
}

// Encode serializes m with codec.
func Encode(m *ngram.Model, codec Codec) ([]byte, error) {
	data, err := codec.Marshal(NewArtifact(m))
	if err != nil {
		return nil, fmt.Errorf("failed to encode model: %w", err)
	}
	return data, nil
}

// Decode parses and validates an artifact. Any failure is reported as
// ErrCorrupt.
func Decode(data []byte, codec Codec) (*ngram.Model, error) {
	if len(data) == 0 {
		return nil, corrupt("empty artifact", nil)
	}
	var a Artifact
	if err := codec.Unmarshal(data, &a); err != nil {
		return nil, corrupt(codec.Name()+" decode failed", err)
	}
	return a.Model()
}
