package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// QueueList summarizes the registered queues.
func (c *Client) QueueList() (*QueueListResponse, error) {
	return call[QueueListResponse](c, "QueueList", QueueListRequest{})
}

// QueueShow lists items of a queue.
func (c *Client) QueueShow(req QueueShowRequest) (*QueueShowResponse, error) {
	return call[QueueShowResponse](c, "QueueShow", req)
}

// QueueSubmit submits new content.
func (c *Client) QueueSubmit(req QueueSubmitRequest) (*QueueSubmitResponse, error) {
	return call[QueueSubmitResponse](c, "QueueSubmit", req)
}

// QueueBlacklist abandons an item.
func (c *Client) QueueBlacklist(queue, item string) (*QueueItemResponse, error) {
	return call[QueueItemResponse](c, "QueueBlacklist", QueueItemRequest{Queue: queue, Item: item})
}

// QueueRemove deletes an item.
func (c *Client) QueueRemove(queue, item string) (*QueueItemResponse, error) {
	return call[QueueItemResponse](c, "QueueRemove", QueueItemRequest{Queue: queue, Item: item})
}

// QueueRelaunch dispatches an item again.
func (c *Client) QueueRelaunch(queue, item string) (*QueueItemResponse, error) {
	return call[QueueItemResponse](c, "QueueRelaunch", QueueItemRequest{Queue: queue, Item: item})
}

// QueueUpdate replaces the payload of an item.
func (c *Client) QueueUpdate(req QueueUpdateRequest) (*QueueItemResponse, error) {
	return call[QueueItemResponse](c, "QueueUpdate", req)
}

// QueueForgetOwner removes the items of an owner.
func (c *Client) QueueForgetOwner(queue, owner string) (*QueueForgetOwnerResponse, error) {
	return call[QueueForgetOwnerResponse](c, "QueueForgetOwner", QueueForgetOwnerRequest{Queue: queue, Owner: owner})
}

// QueuePurge purges blacklisted items.
func (c *Client) QueuePurge(queue string) (*QueuePurgeResponse, error) {
	return call[QueuePurgeResponse](c, "QueuePurge", QueuePurgeRequest{Queue: queue})
}

// AdminSetActive switches the administrative status.
func (c *Client) AdminSetActive(active bool) (*AdminSetActiveResponse, error) {
	return call[AdminSetActiveResponse](c, "AdminSetActive", AdminSetActiveRequest{Active: active})
}
