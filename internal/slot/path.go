package slot

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 对象路径约定：<owner>/<namespace>/<slotId>/<毫秒时间戳>_<原始文件名>
// 固定四段，Resolver 和 Mutator 都靠段位置反推 slotId，段数不符的路径一律忽略。
// namespace 段按页面派生（全局前缀-页面 ID），同名 slotId 在不同页面下路径不同。
const pathSegments = 4

func buildPath(owner, namespace, slotID string, ts time.Time, filename string) string {
	return fmt.Sprintf("%s/%s/%s/%d_%s", owner, namespace, slotID, ts.UnixMilli(), filename)
}

// slotPrefix 单个图片位的查询前缀，末尾带 / 保证精确段匹配（"a" 不会匹配到 "ab/..."）
func slotPrefix(owner, namespace, slotID string) string {
	return fmt.Sprintf("%s/%s/%s/", owner, namespace, slotID)
}

// namespacePrefix 整个命名空间的查询前缀，Resolve 的批量查询用
func namespacePrefix(owner, namespace string) string {
	return fmt.Sprintf("%s/%s/", owner, namespace)
}

// slotIDFromPath 从路径中取出 slotId，段数不符返回空串
func slotIDFromPath(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) != pathSegments {
		return ""
	}
	return parts[2]
}

// sanitizeFilename 去掉目录部分，空名退化为随机名
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return uuid.New().String()
	}
	return name
}
