package storage

import (
	"context"
	"io"
)

// Storage 保存账本导出文件，返回可访问的位置
type Storage interface {
	Save(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// Close 释放持有连接的存储后端（如 GCS），其余后端无需关闭
func Close(s Storage) error {
	if closer, ok := s.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
