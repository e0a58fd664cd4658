package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var ErrUnknownKind = errors.New("unknown record kind")

func tagged(kind Kind, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	head := `{"typeName":` + strconv.Quote(string(kind))
	body = bytes.TrimSpace(body)
	if len(body) <= 2 {
		return []byte(head + "}"), nil
	}
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head...)
	out = append(out, ',')
	return append(out, body[1:]...), nil
}

// Decode parses a tagged record. A JSON null decodes to a nil Record.
func Decode(data []byte) (Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var head struct {
		TypeName Kind `json:"typeName"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	switch head.TypeName {
	case KindPlayer:
		return decodeAs[Player](data)
	case KindRole:
		return decodeAs[Role](data)
	case KindWoodLog:
		return decodeAs[WoodLog](data)
	case KindMessage:
		return decodeAs[Message](data)
	case KindParams:
		return decodeAs[Params](data)
	case KindTimedAction:
		return decodeAs[TimedAction](data)
	case KindVote:
		return decodeAs[Vote](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, head.TypeName)
	}
}

func decodeAs[T Record](data []byte) (Record, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %T: %w", v, err)
	}
	return v, nil
}
