package utils

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// DefaultRPCTimeout bounds a single RPC round trip.
const DefaultRPCTimeout = 10 * time.Second

// NewEthClientWithConfig dials baseURL with the given HTTP headers and query
// parameters attached to every request.
func NewEthClientWithConfig(
	ctx context.Context,
	baseURL string,
	httpHeaders map[string]string,
	queryParams map[string]string,
) (*ethclient.Client, error) {
	endpoint, err := addQueryParams(baseURL, queryParams)
	if err != nil {
		return nil, err
	}
	headers := make(http.Header, len(httpHeaders))
	for key, value := range httpHeaders {
		headers.Set(key, value)
	}
	client, err := rpc.DialOptions(ctx, endpoint, rpc.WithHeaders(headers))
	if err != nil {
		return nil, err
	}
	return ethclient.NewClient(client), nil
}

func addQueryParams(endpoint string, queryParams map[string]string) (string, error) {
	if len(queryParams) == 0 {
		return endpoint, nil
	}
	uri, err := url.ParseRequestURI(endpoint)
	if err != nil {
		return "", err
	}
	values := uri.Query()
	for key, value := range queryParams {
		values.Add(key, value)
	}
	uri.RawQuery = values.Encode()
	return uri.String(), nil
}

// SanitizeHexString strips a leading 0x.
func SanitizeHexString(hex string) string {
	return strings.TrimPrefix(strings.TrimPrefix(hex, "0x"), "0X")
}
