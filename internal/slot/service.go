package slot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/notes-bin/slotbed/internal/model"
	"github.com/notes-bin/slotbed/internal/storage"
)

// Log 只追加的媒体日志
type Log interface {
	Insert(ctx context.Context, rec *model.MediaRecord) error
	DeleteWhere(ctx context.Context, owner string, paths []string) error
	QueryByPrefix(ctx context.Context, owner, prefix string) ([]model.MediaRecord, error)
}

// Policy 管理员能力判定
type Policy interface {
	Check(identity string) bool
}

// Service 图片位的解析与替换，所有页面共用一个实例，注册表按调用传入。
// slotId 只在页面注册表内唯一，命名空间段按页面派生（见 pageNamespace），
// 不同页面声明同名 slotId 互不影响。
type Service struct {
	log       Log
	store     storage.ObjectStore
	policy    Policy
	owner     string
	namespace string
	now       func() time.Time
}

func NewService(log Log, store storage.ObjectStore, policy Policy, owner, namespace string) *Service {
	return &Service{
		log:       log,
		store:     store,
		policy:    policy,
		owner:     owner,
		namespace: namespace,
		now:       time.Now,
	}
}

// pageNamespace 路径里的命名空间段，全局前缀加页面 ID。
// 保持四段路径约定不变，页面身份藏在命名空间段里。
func (s *Service) pageNamespace(pageID string) string {
	return fmt.Sprintf("%s-%s", s.namespace, pageID)
}

// Resolve 计算 pageID 页面注册表中每个图片位当前生效的图片。
// 没有记录的位映射为 nil，这是正常结果不是错误。
// 无副作用，相同日志状态下重复调用结果一致。
func (s *Service) Resolve(ctx context.Context, pageID string, registry []model.SlotDescriptor) (map[string]*model.CurrentImage, error) {
	// 一次批量查询拿到页面整个命名空间的快照，不逐个位查
	records, err := s.log.QueryByPrefix(ctx, s.owner, namespacePrefix(s.owner, s.pageNamespace(pageID)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolutionUnavailable, err)
	}

	// 按 createdAt 倒序排，不信任插入顺序
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	result := make(map[string]*model.CurrentImage, len(registry))
	known := make(map[string]bool, len(registry))
	for _, d := range registry {
		result[d.SlotID] = nil
		known[d.SlotID] = true
	}

	// 倒序下先见者即最新；注册表之外的 slotId 直接跳过
	for _, rec := range records {
		id := slotIDFromPath(rec.Path)
		if id == "" || !known[id] || result[id] != nil {
			continue
		}
		result[id] = &model.CurrentImage{
			Path: rec.Path,
			URL:  s.store.PublicURL(rec.Path),
		}
	}
	return result, nil
}

// Replace 先退役旧图再安装新图。
// 旧记录和旧对象的两路删除各自独立、尽力而为，失败只记日志；
// 新记录必须在新对象上传成功之后才写入。
func (s *Service) Replace(ctx context.Context, identity, pageID, slotID string, body io.Reader, size int64, contentType, filename string) (*model.CurrentImage, error) {
	// 鉴权先于一切存储访问
	if !s.policy.Check(identity) {
		return nil, ErrUnauthorized
	}

	namespace := s.pageNamespace(pageID)
	prefix := slotPrefix(s.owner, namespace, slotID)
	stale, err := s.log.QueryByPrefix(ctx, s.owner, prefix)
	if err != nil {
		// 旧记录查不到只影响清理，不阻塞本次替换
		slog.Warn("Stale record query failed", "slot_id", slotID, "error", err)
		stale = nil
	}
	if len(stale) > 0 {
		paths := make([]string, len(stale))
		for i, rec := range stale {
			paths[i] = rec.Path
		}
		if err := s.store.RemoveMany(ctx, paths); err != nil {
			slog.Warn("Stale blob cleanup failed", "slot_id", slotID, "error", err)
		}
		if err := s.log.DeleteWhere(ctx, s.owner, paths); err != nil {
			slog.Warn("Stale record cleanup failed", "slot_id", slotID, "error", err)
		}
	}

	now := s.now()
	path := buildPath(s.owner, namespace, slotID, now, sanitizeFilename(filename))
	if err := s.store.Put(ctx, path, body, size, contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	rec := &model.MediaRecord{Owner: s.owner, Path: path, CreatedAt: now}
	if err := s.log.Insert(ctx, rec); err != nil {
		// 对象已存在但没有记录指向它，接受为孤儿，不回收
		return nil, fmt.Errorf("%w: %v", ErrRecordPersistFailed, err)
	}

	return &model.CurrentImage{Path: path, URL: s.store.PublicURL(path)}, nil
}
