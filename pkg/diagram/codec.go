package diagram

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// .lbd files are a JSON document, optionally zlib-compressed and
// AES-256-GCM encrypted, wrapped in a small binary envelope.
const (
	envelopeMagic   = "LABELBOARD1"
	envelopeVersion = uint16(1)
	flagCompressed  = uint16(1 << 0)
	flagEncrypted   = uint16(1 << 1)

	saltSize       = 16
	nonceSize      = 12
	envelopeHeader = len(envelopeMagic) + 2 + 2 + saltSize + nonceSize + 8
	kdfIterations  = 200000
)

var (
	ErrInvalidEnvelope = errors.New("diagram: invalid file envelope")
	ErrUnsupportedVer  = errors.New("diagram: unsupported envelope version")
	ErrPasswordNeeded  = errors.New("diagram: password required")
	ErrBadPassword     = errors.New("diagram: invalid password")
)

type EncryptionOptions struct {
	Enabled  bool
	Password string
}

type SaveOptions struct {
	Compression bool
	Encryption  EncryptionOptions
}

type LoadOptions struct {
	Password string
}

type EnvelopeInfo struct {
	Wrapped    bool
	Compressed bool
	Encrypted  bool
	Version    uint16
}

// EncodeJSON serializes the diagram. The payload is plain JSON so exported
// documents stay inspectable outside the editor.
func EncodeJSON(d *Diagram) ([]byte, error) {
	if d == nil {
		return nil, errors.New("diagram: document is nil")
	}
	return json.MarshalIndent(d, "", "  ")
}

// DecodeJSON is lenient: malformed payloads yield a fresh default diagram
// rather than an error, so a corrupt save never locks the user out.
func DecodeJSON(b []byte) *Diagram {
	var d Diagram
	if err := json.Unmarshal(b, &d); err != nil {
		return New("")
	}
	Normalize(&d)
	return &d
}

func Save(path string, d *Diagram) error {
	return SaveWithOptions(path, d, SaveOptions{Compression: true})
}

func SaveWithOptions(path string, d *Diagram, opts SaveOptions) error {
	blob, err := EncodeJSON(d)
	if err != nil {
		return err
	}

	if opts.Compression {
		blob, err = compressBytes(blob)
		if err != nil {
			return err
		}
	}
	if opts.Encryption.Enabled && strings.TrimSpace(opts.Encryption.Password) == "" {
		return ErrPasswordNeeded
	}

	blob, err = encodeEnvelope(blob, opts)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func Load(path string) (*Diagram, error) {
	return LoadWithOptions(path, LoadOptions{})
}

func LoadWithOptions(path string, opts LoadOptions) (*Diagram, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	payload, err := decodeEnvelope(b, opts)
	if err != nil {
		return nil, err
	}
	return DecodeJSON(payload), nil
}

func InspectEnvelope(path string) (EnvelopeInfo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return EnvelopeInfo{}, err
	}
	return inspectEnvelopeBytes(b)
}

func isEnvelope(b []byte) bool {
	return len(b) >= len(envelopeMagic) && string(b[:len(envelopeMagic)]) == envelopeMagic
}

func inspectEnvelopeBytes(b []byte) (EnvelopeInfo, error) {
	info := EnvelopeInfo{}
	if !isEnvelope(b) {
		return info, nil
	}
	if len(b) < envelopeHeader {
		return info, ErrInvalidEnvelope
	}
	version := binary.LittleEndian.Uint16(b[len(envelopeMagic) : len(envelopeMagic)+2])
	if version != envelopeVersion {
		return info, fmt.Errorf("%w: %d", ErrUnsupportedVer, version)
	}
	flags := binary.LittleEndian.Uint16(b[len(envelopeMagic)+2 : len(envelopeMagic)+4])
	info.Wrapped = true
	info.Compressed = flags&flagCompressed != 0
	info.Encrypted = flags&flagEncrypted != 0
	info.Version = version
	return info, nil
}

func encodeEnvelope(payload []byte, opts SaveOptions) ([]byte, error) {
	flags := uint16(0)
	if opts.Compression {
		flags |= flagCompressed
	}
	if opts.Encryption.Enabled {
		flags |= flagEncrypted
	}

	salt := make([]byte, saltSize)
	nonce := make([]byte, nonceSize)
	if opts.Encryption.Enabled {
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return nil, err
		}

		key := pbkdf2.Key([]byte(opts.Encryption.Password), salt, kdfIterations, 32, sha256.New)
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, err
		}
		payload = gcm.Seal(nil, nonce, payload, nil)
	}

	out := make([]byte, envelopeHeader)
	copy(out[:len(envelopeMagic)], []byte(envelopeMagic))
	binary.LittleEndian.PutUint16(out[len(envelopeMagic):len(envelopeMagic)+2], envelopeVersion)
	binary.LittleEndian.PutUint16(out[len(envelopeMagic)+2:len(envelopeMagic)+4], flags)
	copy(out[len(envelopeMagic)+4:len(envelopeMagic)+4+saltSize], salt)
	copy(out[len(envelopeMagic)+4+saltSize:len(envelopeMagic)+4+saltSize+nonceSize], nonce)
	binary.LittleEndian.PutUint64(out[len(envelopeMagic)+4+saltSize+nonceSize:], uint64(len(payload)))
	out = append(out, payload...)
	return out, nil
}

func decodeEnvelope(b []byte, opts LoadOptions) ([]byte, error) {
	info, err := inspectEnvelopeBytes(b)
	if err != nil {
		return nil, err
	}
	if !info.Wrapped {
		return nil, ErrInvalidEnvelope
	}
	flags := binary.LittleEndian.Uint16(b[len(envelopeMagic)+2 : len(envelopeMagic)+4])
	salt := append([]byte(nil), b[len(envelopeMagic)+4:len(envelopeMagic)+4+saltSize]...)
	nonce := append([]byte(nil), b[len(envelopeMagic)+4+saltSize:len(envelopeMagic)+4+saltSize+nonceSize]...)
	payloadLen := binary.LittleEndian.Uint64(b[len(envelopeMagic)+4+saltSize+nonceSize:])
	if uint64(len(b)-envelopeHeader) != payloadLen {
		return nil, ErrInvalidEnvelope
	}
	payload := append([]byte(nil), b[envelopeHeader:]...)

	if flags&flagEncrypted != 0 {
		if strings.TrimSpace(opts.Password) == "" {
			return nil, ErrPasswordNeeded
		}
		key := pbkdf2.Key([]byte(opts.Password), salt, kdfIterations, 32, sha256.New)
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, err
		}
		payload, err = gcm.Open(nil, nonce, payload, nil)
		if err != nil {
			return nil, ErrBadPassword
		}
	}

	if flags&flagCompressed != 0 {
		payload, err = decompressBytes(payload)
		if err != nil {
			return nil, err
		}
	}
	return payload, nil
}

func compressBytes(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(in); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressBytes(in []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
