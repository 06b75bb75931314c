// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/decommission/lib/codec"
	"github.com/bureau-foundation/decommission/lib/decommission"
	"github.com/bureau-foundation/decommission/lib/inventory"
	"github.com/bureau-foundation/decommission/lib/sealed"
	"github.com/bureau-foundation/decommission/lib/secret"
)

// archiveMagic opens every unsealed archive stream.
var archiveMagic = []byte("VKDA")

const (
	archiveVersion = 1
	digestLength   = 32
	headerLength   = 4 + 1 + 1 + digestLength
)

// ArchiveVersion is the current archive format version.
const ArchiveVersion = archiveVersion

var (
	// ErrSealedArchive is returned when a sealed archive is read
	// without an identity.
	ErrSealedArchive = errors.New("report: archive is sealed, an identity is required")

	// ErrDigestMismatch means the archive payload does not match its
	// recorded digest.
	ErrDigestMismatch = errors.New("report: archive digest mismatch")

	// ErrNotArchive means the stream does not start with the archive
	// header.
	ErrNotArchive = errors.New("report: not a decommission archive")
)

// Compression selects the archive compressor.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression maps "zstd", "lz4", and "none" to a Compression.
// Empty selects zstd.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "zstd", "":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	case "none":
		return CompressionNone, nil
	default:
		return 0, fmt.Errorf("report: unknown compression %q", name)
	}
}

// Archive is everything recorded about one scan or run.
type Archive struct {
	Version   int                  `json:"version"`
	CreatedAt time.Time            `json:"created_at"`
	Inventory *inventory.Inventory `json:"inventory"`

	// Ledger is nil for scan-only archives.
	Ledger *decommission.Ledger `json:"ledger,omitempty"`
}

// ArchiveOptions controls WriteArchive.
type ArchiveOptions struct {
	Compression Compression

	// Recipients are age public keys. When non-empty the archive is
	// sealed so only their identities can read it.
	Recipients []string

	// Passphrase seals the archive with scrypt instead. age does not
	// allow it alongside Recipients.
	Passphrase *secret.Buffer
}

// WriteArchive encodes archive to w and returns the hex BLAKE3 digest
// of the encoded payload.
func WriteArchive(w io.Writer, archive *Archive, options ArchiveOptions) (string, error) {
	if archive.Inventory == nil {
		return "", fmt.Errorf("report: archive has no inventory")
	}
	if archive.Version == 0 {
		archive.Version = archiveVersion
	}
	payload, err := codec.Marshal(archive)
	if err != nil {
		return "", fmt.Errorf("report: encoding archive: %w", err)
	}
	digest := blake3.Sum256(payload)

	destination := w
	var seal io.WriteCloser
	switch {
	case len(options.Recipients) > 0 && options.Passphrase != nil:
		return "", fmt.Errorf("report: archive recipients and passphrase are mutually exclusive")
	case len(options.Recipients) > 0:
		seal, err = sealed.Seal(w, options.Recipients)
	case options.Passphrase != nil:
		seal, err = sealed.SealWithPassphrase(w, options.Passphrase)
	}
	if err != nil {
		return "", err
	}
	if seal != nil {
		destination = seal
	}

	header := make([]byte, 0, headerLength)
	header = append(header, archiveMagic...)
	header = append(header, archiveVersion, byte(options.Compression))
	header = append(header, digest[:]...)
	if _, err := destination.Write(header); err != nil {
		return "", fmt.Errorf("report: writing archive header: %w", err)
	}

	compressor, err := newCompressor(destination, options.Compression)
	if err != nil {
		return "", err
	}
	if _, err := compressor.Write(payload); err != nil {
		return "", fmt.Errorf("report: writing archive payload: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return "", fmt.Errorf("report: finishing %s stream: %w", options.Compression, err)
	}
	if seal != nil {
		if err := seal.Close(); err != nil {
			return "", fmt.Errorf("report: finishing sealed archive: %w", err)
		}
	}
	return hex.EncodeToString(digest[:]), nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newCompressor(w io.Writer, compression Compression) (io.WriteCloser, error) {
	switch compression {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionZstd:
		encoder, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("report: creating zstd encoder: %w", err)
		}
		return encoder, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("report: unknown compression %d", uint8(compression))
	}
}

// ReadArchive decodes an archive written by WriteArchive. identity is
// an age secret key or passphrase and is required only for sealed
// archives. The returned digest is the verified payload digest.
func ReadArchive(r io.Reader, identity *secret.Buffer) (*Archive, string, error) {
	buffered := bufio.NewReader(r)
	magic, err := buffered.Peek(sealed.MagicLength)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, "", fmt.Errorf("report: reading archive: %w", err)
	}

	var source io.Reader = buffered
	if sealed.IsSealed(magic) {
		if identity == nil {
			return nil, "", ErrSealedArchive
		}
		source, err = sealed.Open(buffered, identity)
		if err != nil {
			return nil, "", err
		}
	}

	header := make([]byte, headerLength)
	if _, err := io.ReadFull(source, header); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrNotArchive, err)
	}
	if !bytes.Equal(header[:4], archiveMagic) {
		return nil, "", ErrNotArchive
	}
	if version := header[4]; version != archiveVersion {
		return nil, "", fmt.Errorf("report: unsupported archive version %d", version)
	}
	compression := Compression(header[5])
	recorded := header[6:]

	payload, err := decompress(source, compression)
	if err != nil {
		return nil, "", err
	}
	digest := blake3.Sum256(payload)
	if !bytes.Equal(digest[:], recorded) {
		return nil, "", ErrDigestMismatch
	}

	var archive Archive
	if err := codec.Unmarshal(payload, &archive); err != nil {
		return nil, "", fmt.Errorf("report: decoding archive: %w", err)
	}
	return &archive, hex.EncodeToString(digest[:]), nil
}

func decompress(r io.Reader, compression Compression) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return io.ReadAll(r)
	case CompressionZstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("report: creating zstd decoder: %w", err)
		}
		defer decoder.Close()
		data, err := io.ReadAll(decoder)
		if err != nil {
			return nil, fmt.Errorf("report: decompressing zstd: %w", err)
		}
		return data, nil
	case CompressionLZ4:
		data, err := io.ReadAll(lz4.NewReader(r))
		if err != nil {
			return nil, fmt.Errorf("report: decompressing lz4: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("report: unknown compression %d", uint8(compression))
	}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ArchiveName is "{org}_report_{YYYY-MM-DD_HHMMSS}.vkda".
func ArchiveName(organization string, at time.Time) string {
	return unsafeFileChars.ReplaceAllString(organization, "-") +
		"_report_" + at.Format("2006-01-02_150405") + ".vkda"
}

// SaveArchive writes archive into directory under ArchiveName and
// returns the path and digest. The file is written under a temporary
// name and renamed into place.
func SaveArchive(directory string, archive *Archive, options ArchiveOptions) (string, string, error) {
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return "", "", fmt.Errorf("report: creating %s: %w", directory, err)
	}
	path := filepath.Join(directory, ArchiveName(archive.Inventory.Organization, archive.CreatedAt))

	file, err := os.CreateTemp(directory, ".archive-*")
	if err != nil {
		return "", "", fmt.Errorf("report: creating archive file: %w", err)
	}
	defer os.Remove(file.Name())

	digest, err := WriteArchive(file, archive, options)
	if err != nil {
		file.Close()
		return "", "", err
	}
	if err := file.Close(); err != nil {
		return "", "", fmt.Errorf("report: closing archive file: %w", err)
	}
	if err := os.Rename(file.Name(), path); err != nil {
		return "", "", fmt.Errorf("report: installing archive: %w", err)
	}
	return path, digest, nil
}

// OpenArchive reads an archive file.
func OpenArchive(path string, identity *secret.Buffer) (*Archive, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("report: opening archive: %w", err)
	}
	defer file.Close()
	return ReadArchive(file, identity)
}
