package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Rows is a list response after shape normalization.
type Rows []map[string]any

// decodeRows accepts every list shape the API has been seen to return:
//
//	[...]
//	{"list": [...]}
//	{"data": [...]}
//	{"data": {"data": [...]}}
//	{"data": {"list": [...]}}
//
// null and an absent list decode to no rows. Numbers stay json.Number.
func decodeRows(raw json.RawMessage) (Rows, error) {
	return decodeRowsDepth(raw, 0)
}

func decodeRowsDepth(raw json.RawMessage, depth int) (Rows, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Rows{}, nil
	}
	switch trimmed[0] {
	case '[':
		var rows Rows
		if err := unmarshalNumbers(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("rows: %w", err)
		}
		if rows == nil {
			rows = Rows{}
		}
		return rows, nil
	case '{':
		if depth >= 2 {
			return nil, fmt.Errorf("list nested too deeply")
		}
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("envelope: %w", err)
		}
		if list, ok := envelope["list"]; ok {
			return decodeRowsDepth(list, depth+1)
		}
		if data, ok := envelope["data"]; ok {
			return decodeRowsDepth(data, depth+1)
		}
		if msg, ok := envelope["message"]; ok {
			var text string
			_ = json.Unmarshal(msg, &text)
			return nil, fmt.Errorf("no rows in response: %s", text)
		}
		return nil, fmt.Errorf("no list or data key in response")
	default:
		return nil, fmt.Errorf("unexpected response shape %q", string(trimmed[:1]))
	}
}

func unmarshalNumbers(data []byte, dest any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(dest)
}
