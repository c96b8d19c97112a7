package traffic

import (
	"fmt"
	"mime"
	"strings"
)

// MediaType is the structured form of a MIME string such as
// "application/ld+json; charset=utf-8".
type MediaType struct {
	Type     string            // normalized "media/subtype[+suffix]"
	Media    string            // top-level type, e.g. "application"
	Subtype  string            // subtype without the suffix, e.g. "ld"
	Protocol string            // "media/subtype" without suffix or parameters
	Suffix   string            // structured-syntax suffix; empty when absent
	Params   map[string]string // lowercased parameter map
}

// Kind returns the codec dispatch key: the structured-syntax suffix when
// present, otherwise the subtype. "application/json" and
// "application/ld+json" both dispatch as "json".
func (mt MediaType) Kind() string {
	if mt.Suffix != "" {
		return mt.Suffix
	}
	return mt.Subtype
}

// ParseMediaType parses a raw header value into a MediaType. The suffix is
// optional; a bare "media/subtype" pair is valid.
func ParseMediaType(value string) (MediaType, error) {
	normalized, params, err := mime.ParseMediaType(value)
	if err != nil {
		return MediaType{}, fmt.Errorf("parse media type %q: %w", value, err)
	}

	media, rest, found := strings.Cut(normalized, "/")
	if !found || media == "" || rest == "" {
		return MediaType{}, fmt.Errorf("parse media type %q: missing subtype", value)
	}

	subtype, suffix, _ := strings.Cut(rest, "+")
	if subtype == "" {
		return MediaType{}, fmt.Errorf("parse media type %q: missing subtype", value)
	}

	return MediaType{
		Type:     normalized,
		Media:    media,
		Subtype:  subtype,
		Protocol: media + "/" + subtype,
		Suffix:   suffix,
		Params:   params,
	}, nil
}
