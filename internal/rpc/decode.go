package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errNotJSON = errors.New("reply is not valid JSON")

// decodeReply interprets a downstream reply. Accepted shapes:
//
//	{"success":true,"data":X}            -> X
//	{"success":true,"data":X,"total":N}  -> the object without "success"
//	{"success":false,"error":{...}}      -> upstream failure
//	{"response":X,"isDisposed":true}     -> X, decoded again
//	{"err":{...},"isDisposed":true}      -> upstream failure
//	anything else that is valid JSON     -> returned as-is
//
// An empty reply is treated as JSON null.
func decodeReply(data []byte) (json.RawMessage, *Failure, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return json.RawMessage("null"), nil, nil
	}
	if !json.Valid(data) {
		return nil, nil, errNotJSON
	}
	if data[0] != '{' {
		return json.RawMessage(data), nil, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, nil, err
	}

	// Framework-level reply wrapper.
	if _, ok := obj["isDisposed"]; ok {
		if raw, ok := obj["err"]; ok && !isNull(raw) {
			return nil, upstreamFailure(raw), nil
		}
		if raw, ok := obj["response"]; ok {
			return decodeReply(raw)
		}
		return json.RawMessage("null"), nil, nil
	}

	rawSuccess, ok := obj["success"]
	if !ok {
		return json.RawMessage(data), nil, nil
	}
	var success bool
	if err := json.Unmarshal(rawSuccess, &success); err != nil {
		// "success" is not a bool; not our envelope.
		return json.RawMessage(data), nil, nil
	}

	if !success {
		f := upstreamFailure(obj["error"])
		if f.Message == "" {
			f.Message = stringField(obj, "message")
		}
		if f.Status == 0 {
			f.Status = intField(obj, "statusCode")
		}
		return nil, f, nil
	}

	delete(obj, "success")
	delete(obj, "timestamp")
	delete(obj, "message")
	rawData, hasData := obj["data"]
	if len(obj) == 1 && hasData {
		return rawData, nil, nil
	}
	if len(obj) == 0 {
		return json.RawMessage("null"), nil, nil
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return nil, nil, err
	}
	return out, nil, nil
}

// upstreamFailure reads an error value that is either a string or an object
// {code, message, details, statusCode}.
func upstreamFailure(raw json.RawMessage) *Failure {
	f := &Failure{Kind: KindUpstream}
	if len(raw) == 0 || isNull(raw) {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f.Message = s
		return f
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		f.Message = string(raw)
		return f
	}
	f.Code = stringField(obj, "code")
	f.Message = stringField(obj, "message")
	f.Status = intField(obj, "statusCode")
	if f.Status == 0 {
		f.Status = intField(obj, "status")
	}
	if d, ok := obj["details"]; ok && !isNull(d) {
		var details map[string]any
		if err := json.Unmarshal(d, &details); err == nil {
			f.Details = details
		} else {
			var v any
			if err := json.Unmarshal(d, &v); err == nil {
				f.Details = map[string]any{"details": v}
			}
		}
	}
	return f
}

func stringField(obj map[string]json.RawMessage, k string) string {
	var s string
	if raw, ok := obj[k]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

func intField(obj map[string]json.RawMessage, k string) int {
	var n float64
	if raw, ok := obj[k]; ok {
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0
		}
	}
	return int(n)
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
