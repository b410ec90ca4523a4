package security

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrFileEmpty    = errors.New("file is empty")
	ErrFileTooLarge = errors.New("file exceeds the maximum allowed size")
)

// signature is a magic byte sequence expected at offset.
type signature struct {
	offset int
	magic  []byte
}

type fileType struct {
	signatures []signature
	mimes      []string
}

// FilePolicy is a whitelist of file types with a size limit.
type FilePolicy struct {
	name     string
	maxBytes int64
	types    map[string]fileType
}

// FileInfo describes an accepted upload.
type FileInfo struct {
	Extension   string
	ContentType string
	Size        int64
}

var (
	ebml = []signature{{0, []byte{0x1A, 0x45, 0xDF, 0xA3}}}
	ftyp = []signature{{4, []byte("ftyp")}}
)

// RecordingPolicy accepts interview recordings.
func RecordingPolicy(maxBytes int64) FilePolicy {
	return FilePolicy{
		name:     "recording",
		maxBytes: maxBytes,
		types: map[string]fileType{
			".webm": {ebml, []string{"video/webm", "audio/webm"}},
			".mp4":  {ftyp, []string{"video/mp4", "audio/mp4"}},
			".m4a":  {ftyp, []string{"audio/x-m4a", "audio/mp4", "video/mp4"}},
			".ogg":  {[]signature{{0, []byte("OggS")}}, []string{"audio/ogg", "video/ogg", "application/ogg"}},
			".wav":  {[]signature{{8, []byte("WAVE")}}, []string{"audio/wav", "audio/x-wav"}},
			".mp3": {[]signature{
				{0, []byte("ID3")},
				{0, []byte{0xFF, 0xFB}},
				{0, []byte{0xFF, 0xF3}},
				{0, []byte{0xFF, 0xF2}},
			}, []string{"audio/mpeg"}},
		},
	}
}

// ResumePolicy accepts candidate resumes.
func ResumePolicy(maxBytes int64) FilePolicy {
	return FilePolicy{
		name:     "resume",
		maxBytes: maxBytes,
		types: map[string]fileType{
			".pdf":  {[]signature{{0, []byte("%PDF")}}, []string{"application/pdf"}},
			".doc":  {[]signature{{0, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}}}, []string{"application/msword", "application/x-ole-storage"}},
			".docx": {[]signature{{0, []byte{0x50, 0x4B, 0x03, 0x04}}}, []string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"}},
			".txt":  {nil, []string{"text/plain"}},
		},
	}
}

// Validate checks size, extension whitelist, magic bytes and the sniffed MIME type.
// application/octet-stream is never accepted.
func (p FilePolicy) Validate(filename string, data []byte) (FileInfo, error) {
	if len(data) == 0 {
		return FileInfo{}, ErrFileEmpty
	}
	if p.maxBytes > 0 && int64(len(data)) > p.maxBytes {
		return FileInfo{}, ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return FileInfo{}, errors.New("file has no extension")
	}
	ft, ok := p.types[ext]
	if !ok {
		return FileInfo{}, fmt.Errorf("%s file extension not allowed: %s", p.name, ext)
	}

	if len(ft.signatures) > 0 && !matchesSignature(data, ft.signatures) {
		return FileInfo{}, errors.New("file content does not match extension")
	}

	detected := mimetype.Detect(data)
	if detected.Is("application/octet-stream") {
		return FileInfo{}, errors.New("file type could not be determined")
	}
	for _, allowed := range ft.mimes {
		if detected.Is(allowed) {
			contentType, _, _ := strings.Cut(detected.String(), ";")
			return FileInfo{Extension: ext, ContentType: contentType, Size: int64(len(data))}, nil
		}
	}
	return FileInfo{}, fmt.Errorf("MIME type not allowed: %s", detected.String())
}

// Extensions lists the accepted extensions, for error messages.
func (p FilePolicy) Extensions() []string {
	out := make([]string, 0, len(p.types))
	for ext := range p.types {
		out = append(out, ext)
	}
	return out
}

func matchesSignature(data []byte, sigs []signature) bool {
	for _, sig := range sigs {
		end := sig.offset + len(sig.magic)
		if len(data) >= end && bytes.Equal(data[sig.offset:end], sig.magic) {
			return true
		}
	}
	return false
}
