// Package receiver accepts uploaded artifacts and persists them.
package receiver

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/scan-io-git/lintgraph/internal/upload"
	shrderrors "github.com/scan-io-git/lintgraph/pkg/shared/errors"
)

// Fallback names used when the sender gives none.
const (
	DefaultPayloadName   = "received_payload.json"
	DefaultMalformedName = "received_malformed_json.bin"
	DefaultFilePrefix    = "received_file"
	DefaultSafeName      = "default_safe_filename"
	DefaultExtension     = ".dat"
)

const jsonMediaType = "application/json"

// Kind tells how a payload was interpreted.
type Kind int

const (
	KindEnvelope Kind = iota
	KindRawJSON
	KindMalformedJSON
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindEnvelope:
		return "envelope"
	case KindRawJSON:
		return "raw_json"
	case KindMalformedJSON:
		return "malformed_json"
	case KindBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Decision is what Parse concluded about a request: the bare file name to
// store under and the bytes to store.
type Decision struct {
	Kind          Kind
	Filename      string
	Content       []byte
	FileType      string
	PathInProject string
	Warning       string
}

// Parse interprets a request body. Only an empty body or an envelope with
// undecodable content is an error; anything else is stored somehow.
func Parse(contentType string, body []byte, header http.Header) (*Decision, error) {
	if len(body) == 0 {
		return nil, shrderrors.Wrap(shrderrors.ErrInputMalformed, "no data received")
	}

	mediaType := MediaType(contentType)
	headerName := header.Get(upload.HeaderOriginalFilename)
	d := &Decision{
		Content:       body,
		FileType:      header.Get(upload.HeaderFileType),
		PathInProject: header.Get(upload.HeaderPathInProject),
	}

	var name, fallbackExt string
	switch {
	case mediaType == jsonMediaType && !json.Valid(body):
		d.Kind = KindMalformedJSON
		d.Warning = "Content-Type is application/json but the body is not valid JSON, saving raw data"
		name = firstNonEmpty(headerName, DefaultMalformedName)
		fallbackExt = ".json"

	case mediaType == jsonMediaType:
		env, ok, err := decodeEnvelope(body)
		if err != nil {
			return nil, err
		}
		if ok {
			d.Kind = KindEnvelope
			d.Content = env.content
			name = env.OriginalFilename
			fallbackExt = path.Ext(toSlash(env.OriginalFilename))
			d.FileType = firstNonEmpty(env.FileType, d.FileType)
			d.PathInProject = firstNonEmpty(env.FilePathInProject, d.PathInProject)
			break
		}
		d.Kind = KindRawJSON
		name = firstNonEmpty(headerName, DefaultPayloadName)
		fallbackExt = ".json"

	default:
		d.Kind = KindBinary
		ext := ExtensionFor(mediaType)
		name = firstNonEmpty(headerName, DefaultFilePrefix+ext)
		fallbackExt = ext
	}

	d.Filename = SanitizeFilename(name, fallbackExt)
	return d, nil
}

type decodedEnvelope struct {
	upload.Envelope
	content []byte
}

// decodeEnvelope reports ok only for a JSON object carrying both envelope members.
func decodeEnvelope(body []byte) (*decodedEnvelope, bool, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false, nil
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &members); err != nil {
		return nil, false, nil
	}
	_, hasContent := members["file_content_base64"]
	_, hasName := members["original_filename"]
	if !hasContent || !hasName {
		return nil, false, nil
	}

	var env decodedEnvelope
	if err := json.Unmarshal(trimmed, &env.Envelope); err != nil {
		return nil, false, shrderrors.Wrap(shrderrors.ErrInputMalformed, "invalid envelope: %v", err)
	}
	content, err := decodeBase64(env.FileContentBase64)
	if err != nil {
		return nil, false, shrderrors.Wrap(shrderrors.ErrInputMalformed, "invalid base64 data for %s: %v", env.OriginalFilename, err)
	}
	env.content = content
	return &env, true, nil
}

// decodeBase64 ignores line breaks and accepts missing padding.
func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	if strings.HasSuffix(s, "=") || len(s)%4 == 0 {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

// MediaType strips parameters and lowercases a Content-Type value.
func MediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// ExtensionFor guesses a file extension for a media type.
func ExtensionFor(mediaType string) string {
	if m := mimetype.Lookup(mediaType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return DefaultExtension
}

// SanitizeFilename reduces name to its last path element, accepting either
// separator. Names that reduce to nothing usable become DefaultSafeName
// followed by fallbackExt.
func SanitizeFilename(name, fallbackExt string) string {
	base := toSlash(name)
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == ".." {
		if fallbackExt == "." {
			fallbackExt = ""
		}
		return DefaultSafeName + fallbackExt
	}
	return base
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
