package domain

import "strings"

type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
)

var roles = []Role{RoleSuperAdmin, RoleAdmin, RoleUser}

// ParseRole 只接受封闭枚举内的取值
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Capabilities 由角色一次性推导，向下传递；调用方不再比较角色字符串
type Capabilities struct {
	CanMutatePipeline bool `json:"canMutatePipeline"`
	CanManageUsers    bool `json:"canManageUsers"`
	CanEditLeads      bool `json:"canEditLeads"`
	CanEditFranchises bool `json:"canEditFranchises"`
}

// CapabilitiesFor 未知角色（含"有账号无 profile"）得到零值，即最小权限
func CapabilitiesFor(r Role) Capabilities {
	switch r {
	case RoleSuperAdmin, RoleAdmin:
		return Capabilities{
			CanMutatePipeline: true,
			CanManageUsers:    true,
			CanEditLeads:      true,
			CanEditFranchises: true,
		}
	}
	return Capabilities{}
}

// Caller 当前请求的身份，由鉴权中间件构造一次
type Caller struct {
	UserID       string       `json:"userId"`
	Email        string       `json:"email"`
	Role         Role         `json:"role,omitempty"`
	HasProfile   bool         `json:"hasProfile"`
	Capabilities Capabilities `json:"capabilities"`
	Service      bool         `json:"-"` // 使用 service key 调用
}

func NewCaller(userID, email string, role Role, hasProfile bool) Caller {
	c := Caller{UserID: userID, Email: email, HasProfile: hasProfile}
	if hasProfile && role.Valid() {
		c.Role = role
		c.Capabilities = CapabilitiesFor(role)
	}
	return c
}

// ServiceCaller 持有 service key 的调用方，视同最高权限
func ServiceCaller() Caller {
	return Caller{Service: true, Role: RoleSuperAdmin, HasProfile: true, Capabilities: CapabilitiesFor(RoleSuperAdmin)}
}
