package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const DefaultTimeout = 15 * time.Second

// Error is an error object returned by the node. It is terminal: the node
// understood the request and refused it.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (e *Error) ErrorCode() string {
	return fmt.Sprintf("rpc_%d", e.Code)
}

// JSON-RPC codes the node uses for an unknown API or method.
const (
	CodeMethodNotFound = -32601
	CodeAssertion      = -32000
	CodeAssertionAlt   = -32003
)

type request struct {
	JsonRpc string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	Id      uint64      `json:"id"`
}

type response struct {
	Id     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
}

// Client talks JSON-RPC 2.0 over HTTP to a single API node.
type Client struct {
	url  string
	http *http.Client
	log  *logrus.Logger
	seq  uint64
}

func Dial(url string, timeout time.Duration, log *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	id := atomic.AddUint64(&c.seq, 1)
	body, err := json.Marshal(&request{JsonRpc: "2.0", Method: method, Params: params, Id: id})
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", method)
	}
	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "rpc.Call() build request")
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithFields(logrus.Fields{"method": method, "node": c.url}).Debug("rpc.Call() failed: ", err)
		return nil, errors.Wrapf(err, "call %s", method)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s response", method)
	}
	if resp.StatusCode != http.StatusOK && len(raw) == 0 {
		return nil, errors.Errorf("call %s: http status %d", method, resp.StatusCode)
	}
	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrapf(err, "decode %s response (http %d)", method, resp.StatusCode)
	}
	if out.Error != nil {
		return nil, out.Error
	}
	return out.Result, nil
}

// IsMethodNotFound reports whether err says the node lacks the API or method.
func IsMethodNotFound(err error) bool {
	var rpcErr *Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	if rpcErr.Code == CodeMethodNotFound {
		return true
	}
	return containsAny(rpcErr.Message, "Could not find method", "Could not find API")
}

// IsNodeError reports whether err came back from the node rather than the
// transport.
func IsNodeError(err error) bool {
	var rpcErr *Error
	return errors.As(err, &rpcErr)
}
