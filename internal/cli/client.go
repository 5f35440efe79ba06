package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const actorHeader = "X-Actor-ID"

type client struct {
	base  string
	actor string
	http  *http.Client
}

func clientFrom(cmd *cobra.Command) *client {
	server, _ := cmd.Flags().GetString("server")
	actor, _ := cmd.Flags().GetString("actor")

	return &client{
		base:  strings.TrimRight(server, "/"),
		actor: actor,
		http:  &http.Client{Timeout: 10 * time.Second},
	}
}

// requireActor fails early for commands the server would reject anyway.
func (c *client) requireActor() error {
	if c.actor == "" {
		return errors.New("actor required: pass --actor or set " + envActor)
	}

	return nil
}

// do sends body as JSON and writes the indented response to out. Non-2xx
// responses are written too and reported as an error.
func (c *client) do(ctx context.Context, out io.Writer, method, path string, body any) error {
	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}

		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.actor != "" {
		req.Header.Set(actorHeader, c.actor)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, raw, "", "  ") == nil {
		raw = pretty.Bytes()
	}

	fmt.Fprintln(out, strings.TrimSpace(string(raw)))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	return nil
}
