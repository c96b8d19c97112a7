package traffic

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Media kinds understood by the content codec. A kind is the suffix-or-
// subtype dispatch key produced by MediaType.Kind.
const (
	KindJSON     = "json"
	KindPlain    = "plain"
	KindFormData = "form-data"

	// kindOctetStream is the effective kind of a request that carries no
	// Content-Type header, per content negotiation convention.
	kindOctetStream = "octet-stream"
)

// maxMultipartMemory is the maximum memory used for multipart form parsing (32 MB).
const maxMultipartMemory = 32 << 20

// ErrUnsupported reports that no codec handles the requested media kind.
var ErrUnsupported = errors.New("unsupported media kind")

// Content is a decoded request body tagged with its negotiated kind.
type Content struct {
	Type string
	Data any
}

// Decode reads and decodes the request body for the given kind. The second
// return value is false when no decoder handles the kind; that is a
// distinguishable empty result, not an error. Errors report a body that the
// matching decoder could not parse.
func Decode(r *http.Request, kind string) (any, bool, error) {
	switch kind {
	case KindJSON:
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, true, fmt.Errorf("read body: %w", err)
		}
		if len(raw) == 0 {
			return nil, true, nil
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, true, fmt.Errorf("decode json: %w", err)
		}
		return v, true, nil
	case KindPlain:
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, true, fmt.Errorf("read body: %w", err)
		}
		return string(raw), true, nil
	case KindFormData:
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return nil, true, fmt.Errorf("parse multipart form: %w", err)
		}
		fields := make(map[string]any, len(r.MultipartForm.Value))
		for name, values := range r.MultipartForm.Value {
			if len(values) > 0 {
				fields[name] = values[0]
			}
		}
		return fields, true, nil
	default:
		return nil, false, nil
	}
}

// Encode renders v as a transmittable body for the given kind. The second
// return value is false when no encoder handles the kind.
func Encode(v any, kind string) ([]byte, bool, error) {
	switch kind {
	case KindJSON:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, true, fmt.Errorf("encode json: %w", err)
		}
		return b, true, nil
	case KindPlain:
		return []byte(coerceString(v)), true, nil
	default:
		return nil, false, nil
	}
}

// coerceString renders a value as plain text the way fmt would.
func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case error:
		return s.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// contentTypeFor maps a media kind back to the Content-Type header value
// used when transmitting it.
func contentTypeFor(kind string) string {
	switch kind {
	case KindJSON:
		return "application/json"
	case KindPlain:
		return "text/plain; charset=utf-8"
	case KindFormData:
		return "multipart/form-data"
	default:
		return "application/octet-stream"
	}
}
