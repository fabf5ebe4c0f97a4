package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	req, rpcErr := ParseRequest([]byte(`{"jsonrpc":"2.0","id":7,"method":"tools/list"}`))
	require.Nil(t, rpcErr)
	assert.Equal(t, "tools/list", req.Method)
	assert.Equal(t, 7.0, req.ID)
	assert.False(t, req.IsNotification())

	req, rpcErr = ParseRequest([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	require.Nil(t, rpcErr)
	assert.True(t, req.IsNotification())
}

func TestParseRequestErrors(t *testing.T) {
	_, rpcErr := ParseRequest([]byte(`{not json`))
	require.NotNil(t, rpcErr)
	assert.Equal(t, ParseErrorCode, rpcErr.Code)

	req, rpcErr := ParseRequest([]byte(`{"jsonrpc":"1.0","id":"a","method":"x"}`))
	require.NotNil(t, rpcErr)
	assert.Equal(t, InvalidRequestCode, rpcErr.Code)
	assert.Equal(t, "a", req.ID)
}

func TestDecodeParams(t *testing.T) {
	var params struct {
		Name string `json:"name"`
	}

	req := &Request{Params: json.RawMessage(`{"name":"save_json_doc_to_db"}`)}
	require.NoError(t, req.DecodeParams(&params))
	assert.Equal(t, "save_json_doc_to_db", params.Name)

	params.Name = "kept"
	require.NoError(t, (&Request{}).DecodeParams(&params))
	require.NoError(t, (&Request{Params: json.RawMessage(`null`)}).DecodeParams(&params))
	assert.Equal(t, "kept", params.Name)

	assert.Error(t, (&Request{Params: json.RawMessage(`[1,2]`)}).DecodeParams(&params))
}

func TestResponseAlwaysCarriesID(t *testing.T) {
	data, err := json.Marshal(NewResponse(nil, nil, ParseError("bad")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error","data":"bad"}}`, string(data))

	data, err = json.Marshal(NewResponse(&Request{ID: 1}, map[string]interface{}{}, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":{}}`, string(data))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "JSON-RPC error -32601: Method not found", MethodNotFoundError(nil).Error())
	assert.Equal(t, InvalidParamsCode, InvalidParamsError(nil).Code)
	assert.Equal(t, InternalErrorCode, InternalError(nil).Code)
}

func TestNewNotification(t *testing.T) {
	data, err := json.Marshal(NewNotification("notifications/message", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"notifications/message"}`, string(data))
}
