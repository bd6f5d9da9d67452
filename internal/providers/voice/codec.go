package voice

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/angelmondragon/personacast-backend/internal/providers"
)

func jsonBody(v any) (io.Reader, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, &providers.Error{Provider: providerName, Operation: "encode", Err: err}
	}
	return bytes.NewReader(raw), nil
}

func decode(raw []byte, out any) error {
	return json.Unmarshal(raw, out)
}
