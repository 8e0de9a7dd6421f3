package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dreamware/kvring/internal/gossip"
	"github.com/dreamware/kvring/internal/transport"
)

func postGossip(ctx context.Context, client *transport.Client, peerAddr string, msg gossip.Message) error {
	url := fmt.Sprintf("http://%s/gossip", peerAddr)
	return client.PostJSON(ctx, url, msg, nil)
}

func probeHealth(ctx context.Context, client *transport.Client, addr string, port int) error {
	url := fmt.Sprintf("http://%s:%d/health", addr, port)
	status, err := client.DoJSON(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("probe %s: http %d", url, status)
	}
	return nil
}
