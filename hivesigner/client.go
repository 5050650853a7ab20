// Package hivesigner broadcasts operations through the HiveSigner OAuth2 API.
package hivesigner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coschain/hivebridge/prototype"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://hivesigner.com"
	DefaultTimeout = 30 * time.Second
)

// Error is the error object HiveSigner returns on a rejected broadcast.
type Error struct {
	Status      int
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("hivesigner %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("hivesigner %s (http %d)", e.Code, e.Status)
}

func (e *Error) ErrorCode() string {
	return e.Code
}

type broadcastRequest struct {
	Operations []prototype.Operation `json:"operations"`
}

type broadcastResponse struct {
	Result *struct {
		Id string `json:"id"`
	} `json:"result"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Client implements iservices.ISigner. HiveSigner tokens only carry the
// posting authority, so active scope requests are refused locally.
type Client struct {
	baseURL     string
	accessToken string
	http        *http.Client
	log         *logrus.Logger
}

func NewClient(baseURL, accessToken string, timeout time.Duration, log *logrus.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		http:        &http.Client{Timeout: timeout},
		log:         log,
	}
}

func (c *Client) SetAccessToken(token string) {
	c.accessToken = token
}

func (c *Client) Broadcast(ctx context.Context, ops []prototype.Operation, scope prototype.KeyScope) (string, error) {
	if c.accessToken == "" {
		return "", prototype.NewChainError(prototype.KindAuthUnavailable, "no_token", prototype.ErrSignerUnavailable.Error())
	}
	if scope != prototype.KeyScopePosting {
		return "", prototype.NewChainError(prototype.KindAuthUnavailable, "invalid_scope",
			fmt.Sprintf("hivesigner cannot sign with %s authority", scope))
	}
	body, err := json.Marshal(&broadcastRequest{Operations: ops})
	if err != nil {
		return "", errors.Wrap(err, "encode operations")
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/broadcast", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.Wrap(err, "hivesigner broadcast")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read hivesigner response")
	}
	var out broadcastResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", errors.Errorf("hivesigner http %d: unreadable response", resp.StatusCode)
	}
	if out.Error != "" || resp.StatusCode != http.StatusOK {
		hsErr := &Error{Status: resp.StatusCode, Code: out.Error, Description: out.ErrorDescription}
		if hsErr.Code == "" {
			hsErr.Code = "invalid_request"
		}
		c.log.WithFields(logrus.Fields{"code": hsErr.Code, "status": resp.StatusCode}).Warn("hivesigner rejected broadcast")
		return "", hsErr
	}
	if out.Result == nil || out.Result.Id == "" {
		return "", errors.New("hivesigner response carries no transaction id")
	}
	return out.Result.Id, nil
}

// VoteURL builds the hosted signing link for a single vote. weight is in basis
// points.
func VoteURL(baseURL, voter, author, permlink string, weight int16) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	q := url.Values{}
	q.Set("author", author)
	q.Set("permlink", permlink)
	q.Set("voter", voter)
	q.Set("weight", fmt.Sprintf("%d", weight))
	return strings.TrimRight(baseURL, "/") + "/sign/vote?" + q.Encode()
}
