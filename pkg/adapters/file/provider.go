// Package file implements a flow provider over YAML definitions on disk.
// Each flow lives in <dir>/<flow id>.yaml.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/espalier/pkg/domain"
)

var extensions = []string{".yaml", ".yml"}

// Provider implements ports.FlowProvider by lazily parsing YAML flow files.
// Parsed flows are cached until Reload.
type Provider struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*domain.Flow
}

// NewProvider creates a provider rooted at dir.
func NewProvider(dir string) (*Provider, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("flow directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("flow directory %s is not a directory", dir)
	}
	return &Provider{
		dir:   dir,
		cache: make(map[string]*domain.Flow),
	}, nil
}

// GetFlow parses and returns the flow with the given id.
func (p *Provider) GetFlow(ctx context.Context, id string) (*domain.Flow, error) {
	p.mu.RLock()
	flow, ok := p.cache[id]
	p.mu.RUnlock()
	if ok {
		return flow, nil
	}

	flow, err := p.load(id)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[id] = flow
	p.mu.Unlock()
	return flow, nil
}

// ListFlows returns the flow ids available on disk.
func (p *Provider) ListFlows(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("read flow directory: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		for _, allowed := range extensions {
			if ext == allowed {
				ids = append(ids, strings.TrimSuffix(name, ext))
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Reload drops the parse cache so edited files are picked up.
func (p *Provider) Reload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = make(map[string]*domain.Flow)
}

func (p *Provider) load(id string) (*domain.Flow, error) {
	// Flow ids map to file names; refuse anything that escapes the directory.
	if id != filepath.Base(id) || id == "" || id == "." {
		return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, id)
	}

	var data []byte
	var err error
	for _, ext := range extensions {
		data, err = os.ReadFile(filepath.Join(p.dir, id+ext))
		if err == nil {
			break
		}
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, id)
		}
		return nil, fmt.Errorf("read flow %s: %w", id, err)
	}

	var flow domain.Flow
	if err := yaml.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("parse flow %s: %w", id, err)
	}
	if flow.ID == "" {
		flow.ID = id
	}
	if flow.ID != id {
		return nil, fmt.Errorf("flow file %s declares id %q", id, flow.ID)
	}
	if flow.RootID == "" {
		return nil, fmt.Errorf("flow %s has no root node", id)
	}
	// Node map keys double as node ids when the node omits its own.
	for key, node := range flow.Nodes {
		if node == nil {
			return nil, fmt.Errorf("flow %s: node %s is empty", id, key)
		}
		if node.ID == "" {
			node.ID = key
		}
	}
	return &flow, nil
}
