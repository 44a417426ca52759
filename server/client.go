package server

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// Client calls a ReductionServer.
type Client struct {
	reduce  *connect.Client[ReduceRequest, ReduceResponse]
	inspect *connect.Client[InspectRequest, InspectResponse]
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:4567".
func NewClient(httpClient connect.HTTPClient, baseURL string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	codec := connect.WithCodec(cborCodec{})
	return &Client{
		reduce:  connect.NewClient[ReduceRequest, ReduceResponse](httpClient, baseURL+ReduceProcedure, codec),
		inspect: connect.NewClient[InspectRequest, InspectResponse](httpClient, baseURL+InspectProcedure, codec),
	}
}

// Reduce normalizes source on the server.
func (c *Client) Reduce(ctx context.Context, req *ReduceRequest) (*ReduceResponse, error) {
	resp, err := c.reduce.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Inspect describes source without reducing it.
func (c *Client) Inspect(ctx context.Context, req *InspectRequest) (*InspectResponse, error) {
	resp, err := c.inspect.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
