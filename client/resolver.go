package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kolosal-ai/seqflow/types"
)

// Resolver translates stable human-readable agent names into the
// server's current agent ids. Ids change across server restarts, so the
// directory is cached per client and re-fetched wholesale whenever a
// lookup misses; the cache is never partially merged.
type Resolver struct {
	client *Client

	mu     sync.RWMutex
	byName map[string]types.AgentInfo
	loaded bool

	// refreshGroup collapses concurrent refreshes into one fetch.
	refreshGroup singleflight.Group
}

func newResolver(c *Client) *Resolver {
	return &Resolver{
		client: c,
		byName: make(map[string]types.AgentInfo),
	}
}

// Resolve returns the current id for the named agent, refreshing the
// directory on first use and once more on a miss. A name absent after a
// fresh fetch fails with AGENT_NOT_FOUND.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	if id, ok := r.lookup(name); ok {
		return id, nil
	}
	if err := r.Refresh(ctx); err != nil {
		return "", err
	}
	if id, ok := r.lookup(name); ok {
		return id, nil
	}
	return "", types.NewError(types.ErrAgentNotFound,
		fmt.Sprintf("agent %q not found in directory", name))
}

// ResolveAll resolves every name or fails atomically: when any name is
// missing after a refresh, no partial mapping is returned.
func (r *Resolver) ResolveAll(ctx context.Context, names []string) (map[string]string, error) {
	missing := r.missingOf(names)
	if len(missing) > 0 {
		if err := r.Refresh(ctx); err != nil {
			return nil, err
		}
		missing = r.missingOf(names)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, types.NewError(types.ErrAgentNotFound,
			fmt.Sprintf("agents not found in directory: %s", strings.Join(missing, ", ")))
	}

	resolved := make(map[string]string, len(names))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		resolved[name] = r.byName[name].ID
	}
	return resolved, nil
}

// Agents returns the known agent directory, fetching it when the cache
// is cold.
func (r *Resolver) Agents(ctx context.Context) ([]types.AgentInfo, error) {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if !loaded {
		if err := r.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	agents := make([]types.AgentInfo, 0, len(r.byName))
	for _, info := range r.byName {
		agents = append(agents, info)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })
	return agents, nil
}

// Refresh fetches the directory and replaces the cache atomically.
// Concurrent callers share a single fetch.
func (r *Resolver) Refresh(ctx context.Context) error {
	_, err, _ := r.refreshGroup.Do("refresh", func() (any, error) {
		agents, err := r.fetchDirectory(ctx)
		if err != nil {
			r.client.metrics.CacheRefresh(false)
			return nil, err
		}

		fresh := make(map[string]types.AgentInfo, len(agents))
		for _, a := range agents {
			if a.Name == "" || a.ID == "" {
				continue
			}
			fresh[a.Name] = a
		}

		r.mu.Lock()
		r.byName = fresh
		r.loaded = true
		r.mu.Unlock()

		r.client.metrics.CacheRefresh(true)
		r.client.logger.Debug("agent directory refreshed", zap.Int("agents", len(fresh)))
		return nil, nil
	})
	return err
}

func (r *Resolver) lookup(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded {
		return "", false
	}
	info, ok := r.byName[name]
	return info.ID, ok
}

func (r *Resolver) missingOf(names []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var missing []string
	for _, name := range names {
		if !r.loaded {
			missing = append(missing, name)
			continue
		}
		if _, ok := r.byName[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func (r *Resolver) fetchDirectory(ctx context.Context) ([]types.AgentInfo, error) {
	req, err := r.client.newRequest(ctx, http.MethodGet, "/agents", nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.httpClient.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrServerUnavailable, "agent directory fetch failed").
			WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.ErrServerUnavailable,
			fmt.Sprintf("agent directory fetch failed with status %d", resp.StatusCode)).
			WithHTTPStatus(resp.StatusCode).WithRetryable(resp.StatusCode >= 500)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory response: %w", err)
	}

	var agents []types.AgentInfo
	if err := json.Unmarshal(body, &agents); err == nil {
		return agents, nil
	}
	var wrapped struct {
		Data []types.AgentInfo `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode agent directory: %w", err)
	}
	return wrapped.Data, nil
}
