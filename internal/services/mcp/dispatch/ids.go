package dispatch

import (
	"bytes"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// maxExactID bounds the integer ids that survive jsonrpc.MakeID, which
// carries numbers as float64.
const maxExactID = 1 << 53

// peekID reads the id of a message before full decoding so error replies can
// echo it. exact is false when an id is present but cannot be echoed
// unchanged: fractions, exponents, integers beyond 2^53 and non-scalar values.
// A line that is not an object reports no id.
func peekID(line []byte) (id jsonrpc.ID, exact bool) {
	var head struct {
		ID any `json:"id"`
	}
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&head); err != nil {
		return jsonrpc.ID{}, true
	}

	switch v := head.ID.(type) {
	case nil:
		return jsonrpc.ID{}, true
	case string:
		id, err := jsonrpc.MakeID(v)
		return id, err == nil
	case json.Number:
		n, err := v.Int64()
		if err != nil || n > maxExactID || n < -maxExactID {
			return jsonrpc.ID{}, false
		}
		id, err := jsonrpc.MakeID(float64(n))
		return id, err == nil
	default:
		return jsonrpc.ID{}, false
	}
}
