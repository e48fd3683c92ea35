package util

import (
	"errors"
	"time"

	"campaign-ledger/internal/model"

	"github.com/dgrijalva/jwt-go"
)

// TokenTTL 令牌有效期
const TokenTTL = 24 * time.Hour

// GenerateToken 为已通过钱包签名验证的地址签发令牌
func GenerateToken(addr model.Address, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"address": addr.String(),
		"exp":     time.Now().Add(TokenTTL).Unix(),
	})

	return token.SignedString([]byte(secret))
}

// ValidateToken 校验令牌并返回调用者地址
func ValidateToken(tokenString, secret string) (model.Address, error) {
	if tokenString == "" {
		return model.Address{}, errors.New("令牌为空")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("不支持的签名算法")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return model.Address{}, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		raw, ok := claims["address"].(string)
		if !ok {
			return model.Address{}, errors.New("无效的地址声明")
		}
		addr, err := model.ParseAddress(raw)
		if err != nil {
			return model.Address{}, errors.New("无效的地址声明")
		}
		return addr, nil
	}

	return model.Address{}, errors.New("无效的令牌")
}
