package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/kartoza/aquacheck/internal/quality"
)

// maxBodyBytes bounds API request bodies; five readings never need more.
const maxBodyBytes = 64 << 10

var errMalformedBody = errors.New("request body must be a JSON object")

// jsonInput maps a decoded JSON object onto quality.RawInput. Numbers keep
// their literal text so parsing happens once, in the validator.
type jsonInput map[string]json.RawMessage

func (j jsonInput) Get(name string) (string, bool) {
	raw, ok := j[name]
	if !ok {
		return "", false
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return string(raw), true
	}

	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}

// readInput extracts the five readings from a JSON or form-encoded request.
func readInput(w http.ResponseWriter, r *http.Request) (quality.RawInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		return quality.FormInput(r.PostForm), nil
	}

	var in jsonInput
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&in); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if in == nil {
		return nil, errMalformedBody
	}
	return in, nil
}
