package docconv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ActivityScanner/internal/ports"
)

// Client talks to the external document conversion service that turns PDFs
// and scanned posters into plain text (OCR included).
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.DocumentConverter = (*Client)(nil)

// NewClient creates a reusable HTTP client for the conversion service.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// Convert asks the service to fetch the document at url and return its text.
func (c *Client) Convert(ctx context.Context, url string) (string, error) {
	payload := map[string]any{
		"url": url,
	}

	var resp struct {
		Text string `json:"text"`
	}
	if err := c.post(ctx, "/convert", payload, &resp); err != nil {
		return "", err
	}
	if resp.Text == "" {
		return "", fmt.Errorf("%w: service returned no text for %s", ports.ErrConversionFailed, url)
	}

	return resp.Text, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrFetchTimeout, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: conversion service returned %s", ports.ErrConversionFailed, resp.Status)
	default:
		return fmt.Errorf("%w: conversion service returned %s", ports.ErrBadInput, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
