package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
)

var ErrPingFail = errors.New("ping failed")

type Client struct {
	httpC http.Client
}

// Connect attempts to connect to the IPC socket as client.
func Connect() (*Client, error) {
	conn, err := Dial()
	if err != nil {
		return nil, err
	}
	conn.Close()
	client := NewClient(func() (net.Conn, error) { return Dial() })
	if err := client.Ping(); err != nil {
		log.Println("ping error")
		return nil, err
	}
	return client, nil
}

// NewClient returns a client issuing requests over connections from dial.
func NewClient(dial func() (net.Conn, error)) *Client {
	return &Client{httpC: http.Client{
		Transport: &http.Transport{
			DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
				return dial()
			},
		},
	}}
}

func (c *Client) Ping() error {
	if c.makeSimpleRequest(http.MethodGet, PingPath) != nil {
		return ErrPingFail
	}
	return nil
}

func (c *Client) PlayPause() error {
	return c.makeSimpleRequest(http.MethodPost, PlayPausePath)
}

func (c *Client) Next() error {
	return c.makeSimpleRequest(http.MethodPost, NextPath)
}

func (c *Client) Previous() error {
	return c.makeSimpleRequest(http.MethodPost, PreviousPath)
}

func (c *Client) Show() error {
	return c.makeSimpleRequest(http.MethodPost, ShowPath)
}

func (c *Client) Quit() error {
	return c.makeSimpleRequest(http.MethodPost, QuitPath)
}

// Open appends files to the running instance's playlist.
func (c *Client) Open(files []string) error {
	b, err := json.Marshal(OpenFiles{Files: files})
	if err != nil {
		return err
	}
	return c.makeRequest(http.MethodPost, OpenPath, bytes.NewReader(b))
}

func (c *Client) makeSimpleRequest(method string, path string) error {
	return c.makeRequest(method, path, nil)
}

func (c *Client) makeRequest(method, path string, body io.Reader) error {
	var resp *http.Response
	var err error
	switch method {
	case http.MethodGet:
		resp, err = c.httpC.Get("http://cine" + path)
	case http.MethodPost:
		resp, err = c.httpC.Post("http://cine"+path, "application/json", body)
	}

	if err != nil {
		log.Printf("http err: %v\n", err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var r Response
		json.NewDecoder(resp.Body).Decode(&r)
		if r.Error == "" {
			r.Error = resp.Status
		}
		return errors.New(r.Error)
	}
	return nil
}
