package server

import (
	"bytes"
	"fmt"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xob0t/signstencil/pkg/generator"
)

// ── Asset Manager ──

// asset is an uploaded background photo, decoded once at upload.
type asset struct {
	ID      string
	Name    string
	Mime    string
	Data    []byte
	Img     image.Image
	Created time.Time
}

type assetInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Mime   string `json:"mime"`
	Size   int    `json:"size"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

func (a *asset) info() assetInfo {
	b := a.Img.Bounds()
	return assetInfo{
		ID: a.ID, Name: a.Name, Mime: a.Mime, Size: len(a.Data),
		Width: b.Dx(), Height: b.Dy(),
		URL: "/api/assets/" + a.ID,
	}
}

type assetManager struct {
	mu     sync.RWMutex
	assets map[string]*asset
}

func newAssetManager() *assetManager {
	return &assetManager{assets: make(map[string]*asset)}
}

// add decodes data and stores it under a fresh id.
func (am *assetManager) add(name string, data []byte) (*asset, error) {
	img, format, err := generator.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	a := &asset{
		ID:      uuid.NewString(),
		Name:    name,
		Mime:    "image/" + format,
		Data:    data,
		Img:     img,
		Created: time.Now(),
	}
	am.mu.Lock()
	am.assets[a.ID] = a
	am.mu.Unlock()
	return a, nil
}

func (am *assetManager) get(id string) (*asset, bool) {
	am.mu.RLock()
	a, ok := am.assets[id]
	am.mu.RUnlock()
	return a, ok
}

func (am *assetManager) listAll() []assetInfo {
	am.mu.RLock()
	all := make([]*asset, 0, len(am.assets))
	for _, a := range am.assets {
		all = append(all, a)
	}
	am.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Created.Before(all[j].Created) })
	out := make([]assetInfo, len(all))
	for i, a := range all {
		out[i] = a.info()
	}
	return out
}

func (am *assetManager) remove(id string) bool {
	am.mu.Lock()
	defer am.mu.Unlock()
	if _, ok := am.assets[id]; !ok {
		return false
	}
	delete(am.assets, id)
	return true
}
