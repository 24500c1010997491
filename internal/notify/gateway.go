// Package notify pushes messages to mechanics and requesters through an
// external push gateway, and decides who to notify about new requests.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"roadside-service/pkg/metrics"
)

// Gateway is the push-gateway collaborator. Delivery is best effort: failures
// are counted, never retried.
type Gateway struct {
	url string
	hc  *http.Client
}

// NewGateway creates a client for the given gateway endpoint.
func NewGateway(url string) *Gateway {
	return &Gateway{
		url: url,
		hc:  &http.Client{Timeout: 10 * time.Second},
	}
}

type pushMessage struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type gatewayResponse struct {
	Data []struct {
		Status  string `json:"status"` // "ok" | "error"
		Message string `json:"message,omitempty"`
	} `json:"data"`
}

// DeliveryResult summarises one bulk send.
type DeliveryResult struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// SendBulk pushes one message to every token in a single gateway call.
func (g *Gateway) SendBulk(ctx context.Context, tokens []string, title, body string, data map[string]string) (*DeliveryResult, error) {
	if len(tokens) == 0 {
		return &DeliveryResult{}, nil
	}

	batch := make([]pushMessage, len(tokens))
	for i, t := range tokens {
		batch[i] = pushMessage{To: t, Title: title, Body: body, Data: data}
	}
	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.hc.Do(req)
	if err != nil {
		metrics.PushesFailed.Add(float64(len(tokens)))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.PushesFailed.Add(float64(len(tokens)))
		return nil, fmt.Errorf("push gateway returned %d", resp.StatusCode)
	}

	var gr gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, err
	}

	result := &DeliveryResult{}
	for _, d := range gr.Data {
		if d.Status == "ok" {
			result.Accepted++
		} else {
			result.Rejected++
			if d.Message != "" {
				result.Errors = append(result.Errors, d.Message)
			}
		}
	}
	metrics.PushesSent.Add(float64(result.Accepted))
	metrics.PushesFailed.Add(float64(result.Rejected))
	return result, nil
}
