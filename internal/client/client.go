package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/action"
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/domain"
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/infra"
)

const maxRetries = 3

// Client submits actions to a running node over HTTP on behalf of one
// identity. Transport failures are retried with exponential backoff;
// contract rejections come back as errors and are never retried, since
// resubmitting a rejected action just appends another rejection to the log.
type Client struct {
	baseURL  string
	identity string
	http     *http.Client
}

// SubmitResult is the node's answer to an accepted action.
type SubmitResult struct {
	Seq     uint64 `json:"seq"`
	Message string `json:"message"`
}

// DigestResult carries the node's current state digest.
type DigestResult struct {
	Seq    uint64 `json:"seq"`
	Digest []byte `json:"digest"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New creates a client for the node at baseURL acting as identity.
func New(baseURL, identity string) *Client {
	return &Client{
		baseURL:  baseURL,
		identity: identity,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Register deploys the orderbook with its base asset.
func (c *Client) Register(ctx context.Context, baseAsset string) (SubmitResult, error) {
	return c.submit(ctx, &action.Register{BaseAsset: baseAsset})
}

// Deposit credits the client's identity with amount of token, asserting a
// transfer whose recipient is the contract.
func (c *Client) Deposit(ctx context.Context, contractName, token string, amount uint64) (SubmitResult, error) {
	return c.submit(ctx, &action.DepositAsset{
		Transfer: action.TokenTransfer{
			Kind:      action.TransferKind,
			Token:     token,
			Recipient: contractName,
			Amount:    amount,
		},
	})
}

// InsertOrder places an order on the named market.
func (c *Client) InsertOrder(ctx context.Context, market string, side domain.Side, price float64, quantity uint64) (SubmitResult, error) {
	return c.submit(ctx, &action.InsertOrder{
		OrderAsset:    market,
		OrderSide:     side,
		OrderPrice:    price,
		OrderQuantity: quantity,
	})
}

func (c *Client) submit(ctx context.Context, act action.Action) (SubmitResult, error) {
	payload, err := action.Encode(act)
	if err != nil {
		return SubmitResult{}, err
	}

	body, err := json.Marshal(map[string]interface{}{
		"identity": c.identity,
		"kind":     act.ActionKind().String(),
		"payload":  json.RawMessage(payload),
	})
	if err != nil {
		return SubmitResult{}, err
	}

	var result SubmitResult
	err = c.doWithRetry(ctx, http.MethodPost, "/v1/actions", body, &result)
	return result, err
}

// GetState fetches the node's current orderbook state.
func (c *Client) GetState(ctx context.Context) (*domain.OrderBookState, error) {
	var state domain.OrderBookState
	if err := c.doWithRetry(ctx, http.MethodGet, "/v1/state", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// GetDigest fetches the node's current state digest.
func (c *Client) GetDigest(ctx context.Context) (DigestResult, error) {
	var result DigestResult
	err := c.doWithRetry(ctx, http.MethodGet, "/v1/digest", nil, &result)
	return result, err
}

func (c *Client) doWithRetry(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := infra.CalculateBackoff(attempt - 1)
			slog.Debug("Retrying request",
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := c.do(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err

		// 4xx means the node understood us and said no; retrying cannot help.
		if _, ok := err.(*RejectionError); ok {
			return err
		}
	}

	return fmt.Errorf("request failed after %d retries: %w", maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		var er errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error == "" {
			return &RejectionError{Status: resp.StatusCode, Reason: resp.Status}
		}
		return &RejectionError{Status: resp.StatusCode, Reason: er.Error}
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("node error: %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// RejectionError is a deterministic refusal from the node or contract.
type RejectionError struct {
	Status int
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("rejected (%d): %s", e.Status, e.Reason)
}
