package slot

import "errors"

var (
	// ErrUnauthorized 调用者不是管理员，任何存储访问发生之前就被拒绝
	ErrUnauthorized = errors.New("caller is not the administrator")
	// ErrResolutionUnavailable 批量读取日志失败，整次解析不可用
	ErrResolutionUnavailable = errors.New("media log unavailable")
	// ErrUploadFailed 新图片写入对象存储失败，未写入任何记录
	ErrUploadFailed = errors.New("blob upload failed")
	// ErrRecordPersistFailed 图片已上传但记录写入失败，产生一个无引用的孤儿对象
	ErrRecordPersistFailed = errors.New("media record persist failed")
)
