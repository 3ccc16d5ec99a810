package cache

import (
	"sync"

	"github.com/notes-bin/slotbed/internal/model"
)

// Resolved 按页面缓存解析出的图片位结果。
// 替换成功后原地更新单个位，不触发整页重算；读写都拷贝，调用方拿不到内部 map。
type Resolved struct {
	mu    sync.RWMutex
	pages map[string]map[string]*model.CurrentImage
}

func NewResolved() *Resolved {
	return &Resolved{pages: make(map[string]map[string]*model.CurrentImage)}
}

func (c *Resolved) Get(pageID string) (map[string]*model.CurrentImage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	slots, ok := c.pages[pageID]
	if !ok {
		return nil, false
	}
	return copySlots(slots), true
}

func (c *Resolved) Set(pageID string, slots map[string]*model.CurrentImage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[pageID] = copySlots(slots)
}

// Update 替换成功后修补单个位；页面缓存里没有这个位时整页作废，下次读重新解析
func (c *Resolved) Update(pageID, slotID string, img *model.CurrentImage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	slots, ok := c.pages[pageID]
	if !ok {
		return
	}
	if _, ok := slots[slotID]; !ok {
		delete(c.pages, pageID)
		return
	}
	slots[slotID] = img
}

func (c *Resolved) Drop(pageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pages, pageID)
}

func copySlots(slots map[string]*model.CurrentImage) map[string]*model.CurrentImage {
	out := make(map[string]*model.CurrentImage, len(slots))
	for k, v := range slots {
		out[k] = v
	}
	return out
}
