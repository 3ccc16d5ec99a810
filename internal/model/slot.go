package model

// SlotDescriptor 页面上一个固定图片位的静态描述，构建期定义，运行期只读
type SlotDescriptor struct {
	SlotID         string `json:"slot_id"`         // 页面注册表内唯一
	DisplayTitle   string `json:"display_title"`   // 展示标题
	GenerationHint string `json:"generation_hint"` // 供设计师或生成工具参考，核心逻辑不使用
}

// PageRegistry 一个页面声明的全部图片位
type PageRegistry struct {
	PageID string           `json:"page_id"` // 页面 ID
	Slots  []SlotDescriptor `json:"slots"`   // 图片位列表
}

// Contains 判断 slotID 是否在注册表中
func (r PageRegistry) Contains(slotID string) bool {
	for _, d := range r.Slots {
		if d.SlotID == slotID {
			return true
		}
	}
	return false
}
