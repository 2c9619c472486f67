package browser

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mlindner/flowsync/internal/models"
)

// pollInterval paces the readyState polling loop during navigation.
var pollInterval = 500 * time.Millisecond

// cdpClient is a minimal Chrome DevTools Protocol client, just enough to
// drive one cookie-refresh session: navigate and read/write cookies.
type cdpClient struct {
	debugPort int
	conn      *websocket.Conn
	mu        sync.Mutex
	msgID     uint64
	pending   map[uint64]chan json.RawMessage
}

func newCDPClient(debugPort int) *cdpClient {
	return &cdpClient{
		debugPort: debugPort,
		pending:   make(map[uint64]chan json.RawMessage),
	}
}

// connect finds a page target on the debug endpoint and dials its websocket.
func (c *cdpClient) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	resp, err := httpClient.Get(fmt.Sprintf("http://127.0.0.1:%d/json/list", c.debugPort))
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}
	defer resp.Body.Close()

	var targets []struct {
		Type                 string `json:"type"`
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return fmt.Errorf("failed to decode targets: %w", err)
	}

	var wsURL string
	for _, t := range targets {
		if t.Type == "page" {
			wsURL = t.WebSocketDebuggerURL
			break
		}
	}
	if wsURL == "" {
		return fmt.Errorf("no page target found")
	}

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to CDP: %w", err)
	}
	c.conn = conn

	go c.readMessages()
	return nil
}

func (c *cdpClient) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *cdpClient) readMessages() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var response struct {
			ID     uint64          `json:"id"`
			Result json.RawMessage `json:"result"`
			Error  *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(msg, &response); err != nil {
			continue
		}
		if response.ID == 0 {
			continue // event, not a command reply
		}

		c.mu.Lock()
		ch, ok := c.pending[response.ID]
		if ok {
			delete(c.pending, response.ID)
		}
		c.mu.Unlock()

		if ok {
			if response.Error != nil {
				ch <- json.RawMessage(fmt.Sprintf(`{"error":%q}`, response.Error.Message))
			} else {
				ch <- response.Result
			}
		}
	}
}

func (c *cdpClient) call(method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("not connected")
	}

	id := atomic.AddUint64(&c.msgID, 1)
	ch := make(chan json.RawMessage, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	msg := map[string]any{
		"id":     id,
		"method": method,
	}
	if params != nil {
		msg["params"] = params
	}

	c.mu.Lock()
	err := conn.WriteJSON(msg)
	c.mu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("failed to send CDP command: %w", err)
	}

	select {
	case result := <-ch:
		var errCheck struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(result, &errCheck) == nil && errCheck.Error != "" {
			return nil, fmt.Errorf("CDP error: %s", errCheck.Error)
		}
		return result, nil
	case <-time.After(30 * time.Second):
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("CDP command timeout")
	}
}

// navigate loads the URL and polls document.readyState until the page is
// usable. A page that never becomes ready within the timeout fails the
// session; a hung page must not be mistaken for a refreshed one.
func (c *cdpClient) navigate(url string, timeout time.Duration) error {
	if _, err := c.call("Page.navigate", map[string]any{"url": url}); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}

	time.Sleep(pollInterval)

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		state, err := c.evaluate("document.readyState")
		if err == nil && (state == "complete" || state == "interactive") {
			return nil
		}
		time.Sleep(pollInterval)
	}
	return fmt.Errorf("page not ready after %s", timeout)
}

func (c *cdpClient) evaluate(expression string) (string, error) {
	result, err := c.call("Runtime.evaluate", map[string]any{
		"expression":    expression,
		"returnByValue": true,
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		Result struct {
			Value any `json:"value"`
		} `json:"result"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return "", fmt.Errorf("failed to decode evaluate result: %w", err)
	}
	return fmt.Sprintf("%v", resp.Result.Value), nil
}

// getCookies returns the browser's cookies, optionally scoped to the given
// URLs. An empty slice of URLs returns all cookies.
func (c *cdpClient) getCookies(urls []string) ([]models.Cookie, error) {
	params := map[string]any{}
	if len(urls) > 0 {
		params["urls"] = urls
	}
	result, err := c.call("Network.getCookies", params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Cookies []models.Cookie `json:"cookies"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode cookies: %w", err)
	}
	return resp.Cookies, nil
}

// setCookies installs cookies into the browser before navigation.
func (c *cdpClient) setCookies(cookies []models.Cookie) error {
	_, err := c.call("Network.setCookies", map[string]any{"cookies": cookies})
	return err
}
