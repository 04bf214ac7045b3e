package queue

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ContentType converts payloads of one Go type to and from stored bytes.
type ContentType interface {
	Name() string
	Encode(content any) ([]byte, error)
	Decode(data []byte) (any, error)
}

// Built-in content types.
var (
	StringContent ContentType = stringContent{}
	BytesContent  ContentType = bytesContent{}
	JSONContent   ContentType = jsonContent{}
)

var contentTypes = map[string]ContentType{
	StringContent.Name(): StringContent,
	BytesContent.Name():  BytesContent,
	JSONContent.Name():   JSONContent,
}

// LookupContentType resolves a content type by name.
func LookupContentType(name string) (ContentType, error) {
	ct, ok := contentTypes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown content type %q (known: %s)", ErrContentType, name, strings.Join(ContentTypeNames(), ", "))
	}
	return ct, nil
}

// ContentTypeNames lists the registered content type names.
func ContentTypeNames() []string {
	names := make([]string, 0, len(contentTypes))
	for name := range contentTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseContent converts textual input, as received from the CLI or API, into
// a payload of ct.
func ParseContent(ct ContentType, raw string) (any, error) {
	switch ct.Name() {
	case BytesContent.Name():
		return []byte(raw), nil
	case JSONContent.Name():
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("%w: payload is not valid JSON", ErrContentType)
		}
		return json.RawMessage(raw), nil
	default:
		return raw, nil
	}
}

type stringContent struct{}

func (stringContent) Name() string { return "string" }

func (stringContent) Encode(content any) ([]byte, error) {
	s, ok := content.(string)
	if !ok {
		return nil, fmt.Errorf("%w: want string, got %T", ErrContentType, content)
	}
	return []byte(s), nil
}

func (stringContent) Decode(data []byte) (any, error) { return string(data), nil }

type bytesContent struct{}

func (bytesContent) Name() string { return "bytes" }

func (bytesContent) Encode(content any) ([]byte, error) {
	b, ok := content.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: want []byte, got %T", ErrContentType, content)
	}
	return append([]byte{}, b...), nil
}

func (bytesContent) Decode(data []byte) (any, error) { return append([]byte{}, data...), nil }

type jsonContent struct{}

func (jsonContent) Name() string { return "json" }

func (jsonContent) Encode(content any) ([]byte, error) {
	switch v := content.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, fmt.Errorf("%w: invalid JSON payload", ErrContentType)
		}
		return append([]byte{}, v...), nil
	case nil:
		return nil, fmt.Errorf("%w: nil JSON payload", ErrContentType)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrContentType, err)
		}
		return data, nil
	}
}

func (jsonContent) Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: stored payload is not valid JSON", ErrContentType)
	}
	return json.RawMessage(append([]byte{}, data...)), nil
}
