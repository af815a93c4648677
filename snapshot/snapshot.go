package snapshot

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/EnvSys/rsgislib/blobstore"
	"github.com/EnvSys/rsgislib/cluster"
	"github.com/EnvSys/rsgislib/codec"
)

var (
	fileMagic      = [4]byte{'R', 'S', 'C', '0'}
	headerVersion  = uint16(1)
	headerFixedLen = 16 // excludes variable codec name bytes
)

// centreRecord is the serialized form of one cluster centre.
type centreRecord struct {
	ID     int       `json:"id"`
	Mean   []float64 `json:"mean"`
	StdDev []float64 `json:"stddev,omitempty"`
	Count  uint64    `json:"count,omitempty"`
}

// payload is the codec-encoded body of a centre file.
type payload struct {
	Bands   int            `json:"bands"`
	Centres []centreRecord `json:"centres"`
}

// Option configures Save and Encode.
type Option func(*options)

type options struct {
	codec       codec.Codec
	compression Compression
}

// WithCodec sets the codec used to encode centre records.
func WithCodec(c codec.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithCompression sets the payload compression.
func WithCompression(c Compression) Option {
	return func(o *options) { o.compression = c }
}

func applyOptions(opts []Option) options {
	o := options{codec: codec.Default, compression: CompressionNone}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Encode serializes a centre set into the self-describing file format.
func Encode(set *cluster.Set, opts ...Option) ([]byte, error) {
	o := applyOptions(opts)

	p := payload{Bands: set.Bands()}
	for _, c := range set.Centroids() {
		p.Centres = append(p.Centres, centreRecord{
			ID:     c.ID,
			Mean:   c.Mean,
			StdDev: c.StdDev,
			Count:  c.Count,
		})
	}

	body, err := o.codec.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode centres: %w", err)
	}
	body, err = compressBlock(body, o.compression)
	if err != nil {
		return nil, fmt.Errorf("compress centres: %w", err)
	}

	name := o.codec.Name()
	if len(name) > 255 {
		return nil, fmt.Errorf("codec name too long: %q", name)
	}

	var buf bytes.Buffer
	buf.Grow(headerFixedLen + len(name) + len(body))
	buf.Write(fileMagic[:])
	var fixed [12]byte
	binary.LittleEndian.PutUint16(fixed[0:2], headerVersion)
	fixed[2] = uint8(o.compression)
	fixed[3] = uint8(len(name))
	// fixed[4:12] reserved
	buf.Write(fixed[:])
	buf.WriteString(name)
	buf.Write(body)
	return buf.Bytes(), nil
}

// Decode parses a centre file produced by Encode.
func Decode(data []byte) (*cluster.Set, error) {
	if len(data) < headerFixedLen {
		return nil, io.ErrUnexpectedEOF
	}
	if [4]byte(data[:4]) != fileMagic {
		return nil, fmt.Errorf("not a cluster centre file: bad magic")
	}
	fixed := data[4:headerFixedLen]
	if v := binary.LittleEndian.Uint16(fixed[0:2]); v != headerVersion {
		return nil, fmt.Errorf("unsupported centre file version: %d", v)
	}
	compression := Compression(fixed[2])
	nameLen := int(fixed[3])
	if len(data) < headerFixedLen+nameLen {
		return nil, io.ErrUnexpectedEOF
	}
	name := string(data[headerFixedLen : headerFixedLen+nameLen])

	c, ok := codec.ByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown codec: %q", name)
	}

	body, err := decompressBlock(data[headerFixedLen+nameLen:], compression)
	if err != nil {
		return nil, fmt.Errorf("decompress centres: %w", err)
	}

	var p payload
	if err := c.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode centres: %w", err)
	}

	centres := make([]*cluster.Centroid, 0, len(p.Centres))
	for _, r := range p.Centres {
		centres = append(centres, &cluster.Centroid{
			ID:     r.ID,
			Mean:   r.Mean,
			StdDev: r.StdDev,
			Count:  r.Count,
		})
	}
	return cluster.RestoreSet(p.Bands, centres)
}

// Save encodes a centre set and writes it to the store under name.
func Save(ctx context.Context, store blobstore.BlobStore, name string, set *cluster.Set, opts ...Option) error {
	data, err := Encode(set, opts...)
	if err != nil {
		return err
	}
	return store.Put(ctx, name, data)
}

// Load reads a centre file from the store and decodes it.
func Load(ctx context.Context, store blobstore.BlobStore, name string) (*cluster.Set, error) {
	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
