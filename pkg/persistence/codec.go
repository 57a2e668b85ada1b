// Package persistence stores the last successfully fetched lexicon document
// on disk so a restart without network access still comes up with real data
// instead of the built-in fallback.
package persistence

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Binary format constants
const (
	MagicBytes    = "MLEX" // MoodLens lexicon cache identifier
	FormatVersion = 1
)

// Header for the binary cache format.
type Header struct {
	Magic    [4]byte
	Version  uint16
	Flags    uint16
	DataLen  uint64
	Checksum uint32
}

const (
	FlagCompressed uint16 = 1 << 0
)

// Document is the cached payload: the raw lexicon table plus provenance.
type Document struct {
	Table     map[string]map[string]float64 `msgpack:"table"`
	Hash      string                        `msgpack:"hash"`
	FetchedAt int64                         `msgpack:"fetched_at"`
}

// Codec handles encoding/decoding of cached lexicon documents.
type Codec struct {
	compress  bool
	compLevel int
}

// NewCodec creates a new codec.
func NewCodec(compress bool) *Codec {
	return &Codec{
		compress:  compress,
		compLevel: gzip.BestSpeed,
	}
}

// Encode serialises a document to the binary cache format.
func (c *Codec) Encode(doc Document) ([]byte, error) {
	if doc.FetchedAt == 0 {
		doc.FetchedAt = time.Now().Unix()
	}

	data, err := msgpack.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var flags uint16
	if c.compress {
		compressed, err := c.compressData(data)
		if err != nil {
			return nil, err
		}
		if len(compressed) < len(data) {
			data = compressed
			flags |= FlagCompressed
		}
	}

	header := Header{
		Version:  FormatVersion,
		Flags:    flags,
		DataLen:  uint64(len(data)),
		Checksum: c.checksum(data),
	}
	copy(header.Magic[:], MagicBytes)

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	if _, err := buf.Write(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserialises the binary cache format back into a document.
func (c *Codec) Decode(raw []byte) (Document, error) {
	var doc Document
	if len(raw) < 20 { // minimum header size
		return doc, errors.New("data too short")
	}

	buf := bytes.NewReader(raw)

	var header Header
	if err := binary.Read(buf, binary.LittleEndian, &header); err != nil {
		return doc, err
	}
	if string(header.Magic[:]) != MagicBytes {
		return doc, errors.New("invalid magic bytes")
	}
	if header.Version > FormatVersion {
		return doc, errors.New("unsupported format version")
	}

	data := make([]byte, header.DataLen)
	if _, err := io.ReadFull(buf, data); err != nil {
		return doc, err
	}
	if c.checksum(data) != header.Checksum {
		return doc, errors.New("checksum mismatch")
	}

	if header.Flags&FlagCompressed != 0 {
		decompressed, err := c.decompressData(data)
		if err != nil {
			return doc, err
		}
		data = decompressed
	}

	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return doc, err
	}
	return doc, nil
}

func (c *Codec) compressData(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, c.compLevel)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Codec) decompressData(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// checksum calculates a simple rolling checksum over the payload.
func (c *Codec) checksum(data []byte) uint32 {
	var sum uint32
	for i := 0; i < len(data); i++ {
		sum = sum*31 + uint32(data[i])
	}
	return sum
}
