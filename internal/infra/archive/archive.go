// Package archive exports and imports single careers as zstd-compressed JSON.
//
// Layout: one JSON header line, then the player document.
package archive

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/cosanostra-game/server/internal/domain/player"
)

// Version is the current archive format.
const Version = 1

// ContentType is served with exported archives.
const ContentType = "application/zstd"

// MaxDecodedSize caps the decompressed archive. A career is a few kilobytes.
const MaxDecodedSize = 1 << 20

var (
	ErrBadVersion = errors.New("unsupported archive version")
	ErrMismatch   = errors.New("archive header does not match its player")
	ErrTooLarge   = errors.New("archive exceeds the decoded size limit")
)

// cappedReader fails with ErrTooLarge once more than its budget is read.
type cappedReader struct {
	r    io.Reader
	left int64
}

func (c *cappedReader) Read(b []byte) (int, error) {
	if c.left <= 0 {
		return 0, ErrTooLarge
	}
	if int64(len(b)) > c.left {
		b = b[:c.left]
	}
	n, err := c.r.Read(b)
	c.left -= int64(n)
	return n, err
}

// Header identifies an archive.
type Header struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	PlayerID   string    `json:"player_id"`
}

// Export writes p to w.
func Export(w io.Writer, p player.Player, now time.Time) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("failed to create encoder: %w", err)
	}
	bw := bufio.NewWriter(enc)

	hb, err := json.Marshal(Header{Version: Version, ExportedAt: now.UTC(), PlayerID: p.ID})
	if err != nil {
		enc.Close()
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		enc.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := json.NewEncoder(bw).Encode(p); err != nil {
		enc.Close()
		return fmt.Errorf("failed to encode player: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return fmt.Errorf("failed to flush archive: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

// Import reads an archive written by Export. Archives that decompress past
// MaxDecodedSize are refused with ErrTooLarge.
func Import(r io.Reader) (player.Player, Header, error) {
	var (
		p   player.Player
		hdr Header
	)
	dec, err := zstd.NewReader(r, zstd.WithDecoderMaxMemory(8*MaxDecodedSize), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return p, hdr, fmt.Errorf("failed to create decoder: %w", err)
	}
	defer dec.Close()

	br := bufio.NewReader(&cappedReader{r: dec, left: MaxDecodedSize})
	line, err := br.ReadBytes('\n')
	if err != nil {
		return p, hdr, fmt.Errorf("failed to read header: %w", err)
	}
	if err := json.Unmarshal(line, &hdr); err != nil {
		return p, hdr, fmt.Errorf("failed to decode header: %w", err)
	}
	if hdr.Version != Version {
		return p, hdr, fmt.Errorf("%w: %d", ErrBadVersion, hdr.Version)
	}
	if err := json.NewDecoder(br).Decode(&p); err != nil {
		return p, hdr, fmt.Errorf("failed to decode player: %w", err)
	}
	if p.ID != hdr.PlayerID {
		return p, hdr, ErrMismatch
	}
	return p, hdr, nil
}
