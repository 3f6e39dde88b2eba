package core

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Request is a prepared ledger request. It is registered once and consumed by
// exactly one submission.
type Request struct {
	ReqID    int64
	TxnType  string
	Body     string
	ReadLike bool
}

// readTxnTypes are ledger queries that may be answered by a subset of nodes.
var readTxnTypes = map[string]struct{}{
	"3":   {}, // GET_TXN
	"104": {}, // GET_ATTR
	"105": {}, // GET_NYM
	"107": {}, // GET_SCHEMA
	"108": {}, // GET_CLAIM_DEF
	"119": {}, // GET_AUTH_RULE
	"121": {}, // GET_TXN_AUTHR_AGRMT
	"123": {}, // GET_TXN_AUTHR_AGRMT_AML
}

// ParseRequest validates a JSON request body. The body must be an object with
// an "operation" object; "reqId" is optional.
func ParseRequest(body string) (*Request, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil, inputError("request body is required")
	}
	decoder := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	decoder.UseNumber()
	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil {
		return nil, WrapPoolError(err, KindInput, "request body is not a JSON object")
	}
	operation, ok := raw["operation"].(map[string]any)
	if !ok {
		return nil, inputError("request body must contain an operation object")
	}

	req := &Request{Body: trimmed}
	switch typed := operation["type"].(type) {
	case string:
		req.TxnType = strings.TrimSpace(typed)
	case json.Number:
		req.TxnType = typed.String()
	}
	if value, present := raw["reqId"]; present && value != nil {
		number, ok := value.(json.Number)
		if !ok {
			return nil, inputError("reqId must be an integer")
		}
		reqID, err := number.Int64()
		if err != nil {
			return nil, WrapPoolError(err, KindInput, "reqId must be an integer")
		}
		req.ReqID = reqID
	}
	_, req.ReadLike = readTxnTypes[req.TxnType]
	return req, nil
}
