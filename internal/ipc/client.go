package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"lectern/internal/trigger"
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

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Lectern.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Lectern.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PlaybackEvent forwards a player event to the daemon.
func (c *Client) PlaybackEvent(ev trigger.Event) (*PlaybackEventResponse, error) {
	var resp PlaybackEventResponse
	req := PlaybackEventRequest{Event: ev}
	if err := c.client.Call("Lectern.PlaybackEvent", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Transcribe enqueues a chapter for transcription.
func (c *Client) Transcribe(req TranscribeRequest) (*TranscribeResponse, error) {
	var resp TranscribeResponse
	if err := c.client.Call("Lectern.Transcribe", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueBook starts background transcription of a book.
func (c *Client) QueueBook(bookID string) (*QueueBookResponse, error) {
	var resp QueueBookResponse
	req := QueueBookRequest{BookID: bookID}
	if err := c.client.Call("Lectern.QueueBook", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelBook drops pending and running work for a book.
func (c *Client) CancelBook(bookID string) (*CancelBookResponse, error) {
	var resp CancelBookResponse
	req := CancelBookRequest{BookID: bookID}
	if err := c.client.Call("Lectern.CancelBook", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteBook removes all transcription state for a book.
func (c *Client) DeleteBook(bookID string) (*DeleteBookResponse, error) {
	var resp DeleteBookResponse
	req := DeleteBookRequest{BookID: bookID}
	if err := c.client.Call("Lectern.DeleteBook", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Captions fetches sentences for a chapter or a timeline window.
func (c *Client) Captions(req CaptionsRequest) (*CaptionsResponse, error) {
	var resp CaptionsResponse
	if err := c.client.Call("Lectern.Captions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Progress reports how far a book has been transcribed.
func (c *Client) Progress(bookID string) (*ProgressResponse, error) {
	var resp ProgressResponse
	req := ProgressRequest{BookID: bookID}
	if err := c.client.Call("Lectern.Progress", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Chapters lists per-chapter transcription state for a book.
func (c *Client) Chapters(bookID string) (*ChaptersResponse, error) {
	var resp ChaptersResponse
	req := ChaptersRequest{BookID: bookID}
	if err := c.client.Call("Lectern.Chapters", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Books lists library books known to the daemon.
func (c *Client) Books() (*BooksResponse, error) {
	var resp BooksResponse
	if err := c.client.Call("Lectern.Books", BooksRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReloadLibrary rescans the library directory.
func (c *Client) ReloadLibrary() (*ReloadLibraryResponse, error) {
	var resp ReloadLibraryResponse
	if err := c.client.Call("Lectern.ReloadLibrary", ReloadLibraryRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health retrieves transcript database diagnostics.
func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.client.Call("Lectern.Health", HealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
