// Package client is an HTTP client for the farmd API server.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/obsfarm/farmd/server"
)

type Client struct {
	hc       *http.Client
	Endpoint string
}

func New(endpoint string) *Client {
	return &Client{
		hc:       &http.Client{},
		Endpoint: strings.TrimRight(endpoint, "/"),
	}
}

// RemoteError is a non-2xx reply from the server, carrying the coded error
// the ledger reported.
type RemoteError struct {
	Status int
	server.ErrorResponse
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("server replied %d code=%d message=%s",
		e.Status, e.Code, e.Message)
}

func (c *Client) do(method, path string, reqPtr, respPtr interface{}) error {
	var body io.Reader
	if reqPtr != nil {
		bs, err := json.Marshal(reqPtr)
		if err != nil {
			return err
		}
		body = bytes.NewReader(bs)
	}
	req, err := http.NewRequest(method, c.Endpoint+path, body)
	if err != nil {
		return err
	}
	if reqPtr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	bs, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		re := &RemoteError{Status: resp.StatusCode}
		if err := json.Unmarshal(bs, &re.ErrorResponse); err != nil {
			re.Message = string(bs)
		}
		return re
	}
	if respPtr != nil {
		return json.Unmarshal(bs, respPtr)
	}
	return nil
}

func (c *Client) Deposit(account, amount string) error {
	return c.do(http.MethodPost, "/api/v1/deposit",
		&server.OperationRequest{Account: account, Amount: amount}, nil)
}

func (c *Client) Withdraw(account, amount string) error {
	return c.do(http.MethodPost, "/api/v1/withdraw",
		&server.OperationRequest{Account: account, Amount: amount}, nil)
}

func (c *Client) Claim(account string) error {
	return c.do(http.MethodPost, "/api/v1/claim",
		&server.OperationRequest{Account: account}, nil)
}

func (c *Client) Sweep(caller, asset, to, amount string) error {
	return c.do(http.MethodPost, "/api/v1/sweep",
		&server.SweepRequest{Caller: caller, Asset: asset, To: to, Amount: amount}, nil)
}

func (c *Client) GetAccount(account string) (*server.AccountResponse, error) {
	resp := &server.AccountResponse{}
	if err := c.do(http.MethodGet, "/api/v1/account/"+account, nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetStats() (*server.StatsResponse, error) {
	resp := &server.StatsResponse{}
	if err := c.do(http.MethodGet, "/api/v1/stats", nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// MonitorRewards streams reward payout events until the handler returns an
// error or the connection drops.
func (c *Client) MonitorRewards(handler func(*server.RewardPaidEvent) error) error {
	endpoint := strings.Replace(c.Endpoint, "http", "ws", 1)
	conn, resp, err := websocket.DefaultDialer.Dial(endpoint+"/api/v1/events", nil)
	if err != nil {
		return err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()
	for {
		ev := &server.RewardPaidEvent{}
		if err := conn.ReadJSON(ev); err != nil {
			return err
		}
		if err := handler(ev); err != nil {
			return err
		}
	}
}
