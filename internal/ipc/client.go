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
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Run executes a command in a workspace.
func (c *Client) Run(req RunRequest) (*RunResponse, error) {
	var resp RunResponse
	if err := c.client.Call("Devbox.Run", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Test runs a workspace's test suite.
func (c *Client) Test(req TestRequest) (*TestResponse, error) {
	var resp TestResponse
	if err := c.client.Call("Devbox.Test", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shell resolves an interactive session's interpreter, environment, and
// working directory.
func (c *Client) Shell(req ShellRequest) (*ShellResponse, error) {
	var resp ShellResponse
	if err := c.client.Call("Devbox.Shell", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status snapshot.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Devbox.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Workspaces lists registered workspaces.
func (c *Client) Workspaces() (*WorkspacesResponse, error) {
	var resp WorkspacesResponse
	if err := c.client.Call("Devbox.Workspaces", WorkspacesRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RegisterWorkspace registers or re-registers a workspace root.
func (c *Client) RegisterWorkspace(req RegisterWorkspaceRequest) (*RegisterWorkspaceResponse, error) {
	var resp RegisterWorkspaceResponse
	if err := c.client.Call("Devbox.RegisterWorkspace", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SyncComplete signals sync completion for a workspace.
func (c *Client) SyncComplete(workspaceID string) (*SyncCompleteResponse, error) {
	var resp SyncCompleteResponse
	if err := c.client.Call("Devbox.SyncComplete", SyncCompleteRequest{WorkspaceID: workspaceID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History lists recent runs.
func (c *Client) History(req HistoryRequest) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.client.Call("Devbox.History", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Devbox.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown requests daemon shutdown.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.client.Call("Devbox.Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
