package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

const ordersPath = "/wp-json/wc/v3/orders"

// OrderSubmitter creates the sales order in the commerce system. A returned
// order is committed and can no longer be abandoned.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, order *CommerceOrder) (*SubmittedOrder, error)
}

// SubmittedOrder is the part of the commerce API response the pipeline keeps.
type SubmittedOrder struct {
	ID     int64  `json:"id"`
	Number string `json:"number"`
	Status string `json:"status"`
}

type commerceErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WooCommerceClient submits orders to the WooCommerce REST API.
type WooCommerceClient struct {
	client  *resty.Client
	timeout time.Duration
}

// NewWooCommerceClient creates a new commerce API client
func NewWooCommerceClient(client *resty.Client, timeout time.Duration) *WooCommerceClient {
	return &WooCommerceClient{
		client:  client,
		timeout: timeout,
	}
}

// SubmitOrder posts the order once. Order creation is not idempotent on the
// commerce side, so a failed attempt is never repeated here.
func (c *WooCommerceClient) SubmitOrder(ctx context.Context, order *CommerceOrder) (*SubmittedOrder, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var created SubmittedOrder
	var apiErr commerceErrorResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(order).
		SetResult(&created).
		SetError(&apiErr).
		Post(ordersPath)
	if err != nil {
		return nil, fmt.Errorf("posting order: %w", err)
	}
	if resp.IsError() {
		if apiErr.Message != "" {
			return nil, fmt.Errorf("commerce api returned %d (%s): %s", resp.StatusCode(), apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("commerce api returned %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}
	if created.ID <= 0 {
		return nil, fmt.Errorf("commerce api response has no order id: %s", truncate(resp.String(), 200))
	}

	log.Printf("✅ [ORDER] Created order id=%d number=%s", created.ID, created.Number)
	return &created, nil
}
