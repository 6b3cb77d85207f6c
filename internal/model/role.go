// Package model 定义了与数据库表对应的数据结构
// 以及聊天核心在各层之间传递的值类型
package model

import "strings"

// Role 聊天角色
// 只有两个取值，所有入口处必须通过 ParseRole 转换
type Role string

// 角色常量
const (
	RoleVendor   Role = "vendor"   // 店铺卖家
	RoleCustomer Role = "customer" // 买家
)

// AllRoles 返回全部角色，顺序固定
func AllRoles() []Role {
	return []Role{RoleVendor, RoleCustomer}
}

// ParseRole 将外部输入的字符串解析为角色
// 参数:
//   - s: 原始字符串（大小写不敏感，会去除首尾空白）
//
// 返回:
//   - Role: 解析后的角色
//   - bool: 是否为合法角色
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleVendor:
		return RoleVendor, true
	case RoleCustomer:
		return RoleCustomer, true
	default:
		return "", false
	}
}

// Valid 判断角色是否合法
func (r Role) Valid() bool {
	return r == RoleVendor || r == RoleCustomer
}

func (r Role) String() string {
	return string(r)
}
