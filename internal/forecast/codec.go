package forecast

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/miradorstack/mirador-netforecast/internal/utils"
)

const (
	artifactMagic   = "NFCA"
	artifactVersion = byte(1)
)

var (
	blobEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	blobDecoder, _ = zstd.NewReader(nil)
)

// Encode serialises an artifact as magic + version + zstd(gob(artifact)).
func Encode(a *Artifact) ([]byte, error) {
	if a == nil {
		return nil, utils.ErrModelUnavailable
	}
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(a); err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	header := make([]byte, 0, len(artifactMagic)+1+payload.Len()/2)
	header = append(header, artifactMagic...)
	header = append(header, artifactVersion)
	return blobEncoder.EncodeAll(payload.Bytes(), header), nil
}

// Decode parses and validates a blob produced by Encode. Any failure wraps
// utils.ErrArtifactCorrupt.
func Decode(blob []byte) (*Artifact, error) {
	if len(blob) < len(artifactMagic)+1 {
		return nil, fmt.Errorf("%w: blob too short", utils.ErrArtifactCorrupt)
	}
	if string(blob[:len(artifactMagic)]) != artifactMagic {
		return nil, fmt.Errorf("%w: bad magic", utils.ErrArtifactCorrupt)
	}
	if v := blob[len(artifactMagic)]; v != artifactVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", utils.ErrArtifactCorrupt, v)
	}
	raw, err := blobDecoder.DecodeAll(blob[len(artifactMagic)+1:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", utils.ErrArtifactCorrupt, err)
	}
	var a Artifact
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", utils.ErrArtifactCorrupt, err)
	}
	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrArtifactCorrupt, err)
	}
	return &a, nil
}
