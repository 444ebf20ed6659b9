package storage

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// SniffLen is how many leading bytes DetectAudio needs
const SniffLen = 3072

var allowedMIME = map[string]struct{}{
	"audio/mpeg":  {},
	"audio/wav":   {},
	"audio/x-wav": {},
	"audio/wave":  {},
	"audio/ogg":   {},
	"audio/mp3":   {},
	"audio/m4a":   {},
	"audio/aac":   {},
	"audio/mp4":   {},
	"video/mp4":   {},
}

var allowedExt = map[string]struct{}{
	".mp3": {},
	".wav": {},
	".ogg": {},
	".m4a": {},
	".aac": {},
	".mp4": {},
}

// AllowedUpload reports whether the declared content type or the file extension is on the
// accepted list. Either one is enough.
func AllowedUpload(contentType, filename string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if _, ok := allowedMIME[mediaType]; ok {
		return true
	}
	_, ok := allowedExt[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// DetectAudio inspects the leading bytes of an upload. It returns the detected MIME type and
// false when the content is recognisably something other than audio or video. Content the
// detector cannot identify is given the benefit of the doubt.
func DetectAudio(head []byte) (string, bool) {
	detected := mimetype.Detect(head)
	for m := detected; m != nil; m = m.Parent() {
		mt := m.String()
		if strings.HasPrefix(mt, "audio/") || strings.HasPrefix(mt, "video/") || mt == "application/ogg" {
			return detected.String(), true
		}
	}
	return detected.String(), detected.Is("application/octet-stream")
}

// AudioExtension picks the file extension stored for an upload: the client's extension when
// it is an accepted one, otherwise the one matching the sniffed MIME type
func AudioExtension(filename, detectedMIME string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExt[ext]; ok {
		return ext
	}
	if m := mimetype.Lookup(detectedMIME); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ext
}
