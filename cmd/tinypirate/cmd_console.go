// Tiny Pirate - conversational agent dispatch core
// License: MIT

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/tinypirate/tinypirate/pkg/eventlog"
	"github.com/tinypirate/tinypirate/pkg/gateway"
)

// consoleClient talks to a running gateway over its HTTP API.
type consoleClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func (c *consoleClient) do(method, path string, body any, out any) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr gateway.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("gateway returned %s", resp.Status)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *consoleClient) submit(text string) (gateway.SubmitResponse, error) {
	var resp gateway.SubmitResponse
	err := c.do(http.MethodPost, "/api/submit", map[string]string{"text": text}, &resp)
	return resp, err
}

func (c *consoleClient) fetchSince(since uint64) (eventlog.FetchResult, error) {
	var result eventlog.FetchResult
	err := c.do(http.MethodGet, fmt.Sprintf("/api/events?since=%d", since), nil, &result)
	return result, err
}

// buildConsoleClient fills empty server/key from the environment, then
// falls back to the default loopback gateway address.
func buildConsoleClient(server, apiKey string) *consoleClient {
	if server == "" {
		server = os.Getenv("TINYPIRATE_SERVER")
	}
	if server == "" {
		server = "http://127.0.0.1:18890"
	}
	if apiKey == "" {
		apiKey = os.Getenv("TINYPIRATE_API_KEY")
	}

	return &consoleClient{
		baseURL: strings.TrimRight(server, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func newConsoleClient(args []string) *consoleClient {
	var server, apiKey string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--server", "-s":
			if i+1 < len(args) {
				server = args[i+1]
				i++
			}
		case "--key", "-k":
			if i+1 < len(args) {
				apiKey = args[i+1]
				i++
			}
		}
	}
	return buildConsoleClient(server, apiKey)
}

// consoleCmd runs an interactive console against a running gateway:
// each line is submitted as a command, and new events are tailed in the
// background via the polling API.
func consoleCmd() {
	client := newConsoleClient(os.Args[2:])

	var health gateway.HealthResponse
	if err := client.do(http.MethodGet, "/api/health", nil, &health); err != nil {
		fmt.Printf("Error: gateway unreachable at %s: %v\n", client.baseURL, err)
		fmt.Println("Start it with: tinypirate gateway")
		os.Exit(1)
	}

	// Start tailing from the current high watermark so only events caused
	// after the console started are printed.
	since := uint64(0)
	if initial, err := client.fetchSince(0); err == nil {
		since = initial.Watermark
	}

	fmt.Printf("%s Connected to %s (Ctrl+C to exit)\n", logo, client.baseURL)
	fmt.Println("  Prefix a trigger with / or type plain text for chat.")
	fmt.Println()

	stop := make(chan struct{})
	go tailEvents(client, since, stop)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("%s You: ", logo),
		HistoryFile:     filepath.Join(os.TempDir(), ".tinypirate_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				close(stop)
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			close(stop)
			fmt.Println("Goodbye!")
			return
		}

		if _, err := client.submit(input); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

// tailEvents polls the event feed and prints anything new.
func tailEvents(client *consoleClient, since uint64, stop chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		result, err := client.fetchSince(since)
		if err != nil {
			continue
		}
		for _, ev := range result.Events {
			printEvent(ev)
		}
		since = result.Watermark
	}
}

func printEvent(ev eventlog.Event) {
	switch ev.Kind {
	case eventlog.KindError:
		fmt.Printf("\n%s ⚠ %s\n", logo, ev.Body)
	case eventlog.KindStatus:
		fmt.Printf("\n%s … %s\n", logo, ev.Body)
	default:
		fmt.Printf("\n%s %s\n", logo, ev.Body)
	}
}
