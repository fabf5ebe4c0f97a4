package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/FreePeak/json-db-mcp-server/pkg/jsonrpc"
)

var serverPath string

var rootCmd = &cobra.Command{
	Use:           "json-db-client",
	Short:         "Talk to json-db-mcp-server over stdio",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the server offers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *stdioClient) error {
			var result struct {
				Tools []struct {
					Name        string `json:"name"`
					Description string `json:"description"`
				} `json:"tools"`
			}
			if err := c.call("tools/list", nil, &result); err != nil {
				return err
			}
			for _, tool := range result.Tools {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", tool.Name, tool.Description)
			}
			return nil
		})
	},
}

var callCmd = &cobra.Command{
	Use:   "call <tool> [json-arguments]",
	Short: "Call a tool and print its text result",
	Long: `Call a tool and print its text result. The command exits non-zero when
the tool reports an error.

Examples:
  json-db-client call create_json_doc_database '{"databaseName":"notes"}'
  json-db-client call save_json_doc_to_db '{"databaseName":"notes","doc":{"title":"hi"}}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		arguments := map[string]interface{}{}
		if len(args) == 2 {
			if err := json.Unmarshal([]byte(args[1]), &arguments); err != nil {
				return fmt.Errorf("arguments must be a JSON object: %w", err)
			}
		}

		return withClient(func(c *stdioClient) error {
			var result struct {
				Content []struct {
					Type string `json:"type"`
					Text string `json:"text"`
				} `json:"content"`
				IsError bool `json:"isError"`
			}
			if err := c.call("tools/call", map[string]interface{}{"name": args[0], "arguments": arguments}, &result); err != nil {
				return err
			}
			for _, content := range result.Content {
				fmt.Fprintln(cmd.OutOrStdout(), content.Text)
			}
			if result.IsError {
				return errToolFailed
			}
			return nil
		})
	},
}

var errToolFailed = errors.New("tool call failed")

func init() {
	rootCmd.PersistentFlags().StringVar(&serverPath, "server", "json-db-mcp-server", "Path to the server binary")
	rootCmd.AddCommand(toolsCmd, callCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errToolFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// stdioClient speaks JSON-RPC to a server child process
type stdioClient struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner
	nextID int
}

// withClient starts the server, performs the MCP handshake and runs fn
func withClient(fn func(c *stdioClient) error) error {
	cmd := exec.Command(serverPath, "-t", "stdio")
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	c := &stdioClient{cmd: cmd, stdin: stdin, stdout: scanner}
	defer c.close()

	var initResult struct {
		ServerInfo struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
	}
	if err := c.call("initialize", map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]interface{}{},
		"clientInfo":      map[string]interface{}{"name": "json-db-client", "version": "0.0.1"},
	}, &initResult); err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}
	if err := c.notify("notifications/initialized"); err != nil {
		return err
	}

	return fn(c)
}

func (c *stdioClient) send(msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = c.stdin.Write(append(data, '\n'))
	return err
}

func (c *stdioClient) notify(method string) error {
	return c.send(jsonrpc.NewNotification(method, nil))
}

// call sends a request and decodes the matching response result into out
func (c *stdioClient) call(method string, params interface{}, out interface{}) error {
	c.nextID++
	id := c.nextID
	if err := c.send(map[string]interface{}{
		"jsonrpc": jsonrpc.Version,
		"id":      id,
		"method":  method,
		"params":  params,
	}); err != nil {
		return fmt.Errorf("failed to send %s: %w", method, err)
	}

	for c.stdout.Scan() {
		var resp struct {
			ID     json.RawMessage `json:"id"`
			Result json.RawMessage `json:"result"`
			Error  *jsonrpc.Error  `json:"error"`
		}
		if err := json.Unmarshal(c.stdout.Bytes(), &resp); err != nil {
			return fmt.Errorf("invalid response: %w", err)
		}
		if string(resp.ID) != fmt.Sprint(id) {
			continue
		}
		if resp.Error != nil {
			return resp.Error
		}
		return json.Unmarshal(resp.Result, out)
	}
	if err := c.stdout.Err(); err != nil {
		return err
	}
	return fmt.Errorf("server closed the connection before answering %s", method)
}

func (c *stdioClient) close() {
	_ = c.stdin.Close()
	_ = c.cmd.Wait()
}
