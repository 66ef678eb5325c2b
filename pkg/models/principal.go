package models

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Principal is an owner or editor identity as it arrives from the remote:
// either a plain text string or a richer identity map. It always normalizes to
// a trimmed string.
type Principal string

func (p Principal) String() string {
	return string(p)
}

func (p Principal) MarshalCBOR() ([]byte, error) {
	return getCborEncoder().Marshal(string(p))
}

func (p *Principal) UnmarshalCBOR(data []byte) error {
	var raw any
	if err := getCborDecoder().Unmarshal(data, &raw); err != nil {
		return err
	}
	s, err := principalFromAny(raw)
	if err != nil {
		return err
	}
	*p = Principal(s)
	return nil
}

// NormalizePrincipal accepts the shapes a caller may hold an identity in and
// returns the comparable string form.
func NormalizePrincipal(v any) (string, error) {
	return principalFromAny(v)
}

func principalFromAny(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(t), nil
	case Principal:
		return strings.TrimSpace(string(t)), nil
	case fmt.Stringer:
		return strings.TrimSpace(t.String()), nil
	case map[string]any:
		for _, k := range []string{"principal", "id", "text"} {
			if inner, ok := t[k]; ok {
				return principalFromAny(inner)
			}
		}
		return "", fmt.Errorf("identity map has no principal field")
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			if ks, ok := k.(string); ok {
				m[ks] = val
			}
		}
		return principalFromAny(m)
	case []byte:
		return strings.TrimSpace(string(t)), nil
	case cbor.RawMessage:
		var inner any
		if err := getCborDecoder().Unmarshal(t, &inner); err != nil {
			return "", err
		}
		return principalFromAny(inner)
	}
	return "", fmt.Errorf("unsupported identity type %T", v)
}
