package auth

// AdminPolicy 判断调用者是否持有唯一的管理员身份。
// 纯比较，无副作用；身份缺失或配置缺失一律按非管理员处理。
type AdminPolicy struct {
	adminID string
}

func NewAdminPolicy(adminID string) *AdminPolicy {
	return &AdminPolicy{adminID: adminID}
}

func (p *AdminPolicy) Check(identity string) bool {
	if p == nil || p.adminID == "" || identity == "" {
		return false
	}
	return identity == p.adminID
}
