package model

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
)

// AddressLength 地址字节数
const AddressLength = 20

// ErrInvalidAddress 地址格式无效
var ErrInvalidAddress = errors.New("invalid address")

// Address 不透明的定长身份标识，账本只做相等比较
type Address [AddressLength]byte

// ParseAddress 解析 0x 前缀的 40 位十六进制字符串，大小写不敏感
func ParseAddress(s string) (Address, error) {
	var addr Address
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return addr, ErrInvalidAddress
	}
	s = s[2:]
	if len(s) != AddressLength*2 {
		return addr, ErrInvalidAddress
	}
	if _, err := hex.Decode(addr[:], []byte(s)); err != nil {
		return Address{}, ErrInvalidAddress
	}
	return addr, nil
}

// MustParseAddress 仅用于测试
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// IsZero 是否为零地址
func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
