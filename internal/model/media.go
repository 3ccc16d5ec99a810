package model

import "time"

// MediaRecord 一次上传产生的日志行，只追加，仅被替换操作删除
type MediaRecord struct {
	Owner     string    `json:"owner"`      // 管理员身份
	Path      string    `json:"path"`       // owner/namespace/slotId/时间戳_文件名
	CreatedAt time.Time `json:"created_at"` // 上传时间
}

// CurrentImage 某个图片位当前生效的图片，派生结果，不落库
type CurrentImage struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}
