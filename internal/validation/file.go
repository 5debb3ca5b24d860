package validation

import (
	"encoding/base64"
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidData  = errors.New("data is not valid base64")
	ErrDataTooLarge = errors.New("data exceeds the upload size limit")
)

// DecodeData decodes base64 upload content. Padded and unpadded standard
// encodings are accepted, as are line breaks. The size limit applies to the
// decoded bytes and is checked before decoding as well.
func DecodeData(data string, maxSize int64) ([]byte, error) {
	data = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, data)

	if maxSize > 0 && int64(base64.RawStdEncoding.DecodedLen(len(strings.TrimRight(data, "=")))) > maxSize {
		return nil, ErrDataTooLarge
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(data)
		if err != nil {
			return nil, ErrInvalidData
		}
	}

	if maxSize > 0 && int64(len(decoded)) > maxSize {
		return nil, ErrDataTooLarge
	}

	return decoded, nil
}

// ContentType returns the MIME type for a stored file from its name's
// extension, or application/octet-stream when the extension is unknown.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
	}
	return "application/octet-stream"
}

// SniffContentType detects the MIME type from the first bytes of content.
// Used for re-encoded derivatives, whose format need not match the name.
func SniffContentType(head []byte) string {
	if len(head) == 0 {
		return "application/octet-stream"
	}

	// Read first 512 bytes for magic number detection
	if len(head) > 512 {
		head = head[:512]
	}
	return http.DetectContentType(head)
}
