package model

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/holiman/uint256"
)

// ErrAmountOverflow 金额运算溢出
var ErrAmountOverflow = errors.New("amount overflow")

// ErrInvalidAmountFormat 金额格式无效
var ErrInvalidAmountFormat = errors.New("invalid amount format")

// Amount 以最小单位（wei）表示的金额，256 位无符号整数，值语义
type Amount struct {
	v uint256.Int
}

// NewAmount 由 uint64 构造金额
func NewAmount(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// MaxAmount 可表示的最大金额
func MaxAmount() Amount {
	var a Amount
	a.v.SetAllOne()
	return a
}

// ParseAmount 解析十进制整数字符串，不接受小数、符号和空串
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidAmountFormat
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return Amount{}, ErrInvalidAmountFormat
		}
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Amount{}, ErrInvalidAmountFormat
	}
	return Amount{v: *v}, nil
}

// MustParseAmount 仅用于常量和测试
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero 是否为零
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Cmp 比较大小，返回 -1、0、1
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// Add 带溢出检查的加法
func (a Amount) Add(b Amount) (Amount, error) {
	var out Amount
	if _, overflow := out.v.AddOverflow(&a.v, &b.v); overflow {
		return Amount{}, ErrAmountOverflow
	}
	return out, nil
}

// SaturatingAdd 溢出时返回最大值
func (a Amount) SaturatingAdd(b Amount) Amount {
	out, err := a.Add(b)
	if err != nil {
		return MaxAmount()
	}
	return out
}

// Sub 带下溢检查的减法
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.Cmp(b) < 0 {
		return Amount{}, ErrAmountOverflow
	}
	var out Amount
	out.v.Sub(&a.v, &b.v)
	return out, nil
}

// DivUint64 整数除法，除数为 0 时返回 0
func (a Amount) DivUint64(d uint64) Amount {
	if d == 0 {
		return Amount{}
	}
	var out Amount
	out.v.Div(&a.v, uint256.NewInt(d))
	return out
}

func (a Amount) String() string {
	return a.v.Dec()
}

// MarshalJSON 以十进制字符串输出，避免前端精度丢失
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON 接受十进制字符串或 JSON 整数
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
