// Package remote implements the proxy node for capabilities running in other
// processes. A remote node resolves the peer's capability card from its
// well-known path, then forwards run input and state over HTTP; every
// transport failure is recovered into a Failed result so a dead peer
// degrades the workflow instead of crashing it.
package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/core"
)

// CardWellKnownPath is where a peer serves its capability descriptor.
const CardWellKnownPath = "/.well-known/capability.json"

// Card describes a remotely invokable capability.
type Card struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version,omitempty"`
	// URL is the invoke endpoint. Relative values are resolved against the
	// card's base URL.
	URL string `json:"url"`
}

// invokeRequest is the payload forwarded to the peer.
type invokeRequest struct {
	Input string         `json:"input"`
	State map[string]any `json:"state,omitempty"`
}

// invokeResponse is the peer's reply. State carries the keys the peer wrote,
// which are merged into the live run state.
type invokeResponse struct {
	Output string         `json:"output"`
	State  map[string]any `json:"state,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Node proxies execution to a peer process. The capability card is resolved
// lazily on first use and cached for the node's lifetime.
type Node struct {
	name        string
	description string
	baseURL     string
	outputKey   string
	client      *http.Client

	mu   sync.Mutex
	card *Card
}

// Option configures a remote Node.
type Option func(*Node)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(n *Node) { n.client = client }
}

// WithOutputKey stores the node's output under key instead of its name.
func WithOutputKey(key string) Option {
	return func(n *Node) { n.outputKey = key }
}

// NewNode creates a proxy for the capability served at baseURL. The name is
// a local placeholder until the card is resolved; admission records and
// output keys use the local name so bindings stay stable even if the peer
// renames itself.
func NewNode(name, baseURL string, opts ...Option) *Node {
	n := &Node{
		name:        name,
		description: "Proxies execution to " + baseURL,
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Name returns the node's local identity.
func (n *Node) Name() string { return n.name }

// Description returns the proxy's description, refined by the resolved card.
func (n *Node) Description() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.card != nil && n.card.Description != "" {
		return n.card.Description
	}

	return n.description
}

// OutputKey implements core.OutputKeyer.
func (n *Node) OutputKey() string { return n.outputKey }

// Run implements core.Node. It never returns an error: transport failures
// are captured in a Failed result.
func (n *Node) Run(rc *core.RunContext) (*core.Result, error) {
	res := core.NewResult(n.name)
	res.Status = core.StatusRunning

	card, err := n.resolveCard(rc)
	if err != nil {
		return n.failed(res, fmt.Errorf("resolve capability card: %w", err)), nil
	}

	body, err := json.Marshal(invokeRequest{
		Input: rc.Input,
		State: rc.State.Snapshot(),
	})
	if err != nil {
		return n.failed(res, fmt.Errorf("encode invoke request: %w", err)), nil
	}

	req, err := http.NewRequestWithContext(rc.Context, http.MethodPost, n.invokeURL(card), bytes.NewReader(body))
	if err != nil {
		return n.failed(res, fmt.Errorf("build invoke request: %w", err)), nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return n.failed(res, fmt.Errorf("invoke %s: %w", card.Name, err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return n.failed(res, fmt.Errorf("peer returned %d", resp.StatusCode)), nil
	}

	var reply invokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return n.failed(res, fmt.Errorf("decode invoke response: %w", err)), nil
	}
	if reply.Error != "" {
		return n.failed(res, fmt.Errorf("peer error: %s", reply.Error)), nil
	}

	rc.State.Apply(reply.State)
	res.Output = reply.Output

	return res.Finish(core.StatusSucceeded), nil
}

// resolveCard fetches and caches the peer's capability card.
func (n *Node) resolveCard(rc *core.RunContext) (*Card, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.card != nil {
		return n.card, nil
	}

	req, err := http.NewRequestWithContext(rc.Context, http.MethodGet, n.baseURL+CardWellKnownPath, nil)
	if err != nil {
		return nil, err
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("card endpoint returned %d", resp.StatusCode)
	}

	var card Card
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("decode card: %w", err)
	}
	if card.URL == "" {
		return nil, fmt.Errorf("card for %q has no invoke url", card.Name)
	}

	n.card = &card
	rc.Logger.Debug("capability card resolved", "node", n.name, "peer", card.Name, "url", card.URL)

	return n.card, nil
}

// invokeURL resolves the card's invoke endpoint against the base URL.
func (n *Node) invokeURL(card *Card) string {
	if strings.HasPrefix(card.URL, "http://") || strings.HasPrefix(card.URL, "https://") {
		return card.URL
	}

	return n.baseURL + "/" + strings.TrimLeft(card.URL, "/")
}

// failed finalizes a transport failure into a Failed result.
func (n *Node) failed(res *core.Result, err error) *core.Result {
	res.Error = err.Error()
	res.Output = fmt.Sprintf("[%s unavailable: %s]", n.name, err.Error())

	return res.Finish(core.StatusFailed)
}
