package json

import (
	"bytes"
	"encoding/json"
	"errors"

	E "github.com/sagernet/sing-fetch/common/exceptions"
)

type SyntaxError = json.SyntaxError

func Marshal(value any) ([]byte, error) {
	return json.Marshal(value)
}

func Unmarshal(content []byte, value any) error {
	return json.Unmarshal(content, value)
}

// UnmarshalExtended decodes a commented configuration document into value.
// Unknown fields are rejected and syntax errors carry their row and column.
func UnmarshalExtended(content []byte, value any) error {
	decoder := json.NewDecoder(bytes.NewReader(StripComments(content)))
	decoder.DisallowUnknownFields()
	err := decoder.Decode(value)
	if err == nil {
		return nil
	}
	var syntaxError *SyntaxError
	if errors.As(err, &syntaxError) {
		offset := min(int(syntaxError.Offset), len(content))
		prefix := content[:offset]
		row := bytes.Count(prefix, []byte{'\n'}) + 1
		column := len(prefix) - bytes.LastIndexByte(prefix, '\n') - 1
		return E.Extend(syntaxError, "row ", row, ", column ", column)
	}
	return err
}
