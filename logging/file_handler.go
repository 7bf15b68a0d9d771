package logging

import (
	"os"

	"github.com/windofthesky/mysql-router/xerrors"
)

// FileHandler 独占一个以追加模式打开的日志文件，写入串行化沿用 StreamHandler。
type FileHandler struct {
	*StreamHandler

	path string
	f    *os.File
}

// NewFileHandler 以追加模式打开（必要时创建）path，返回写入该文件的输出端。
func NewFileHandler(path string, level Level) (*FileHandler, error) {
	if path == "" {
		return nil, xerrors.InvalidArg("log file path is empty")
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrInternal, "open log file failed").WithContext("path", path)
	}
	return &FileHandler{
		StreamHandler: NewStreamHandler(f, level),
		path:          path,
		f:             f,
	}, nil
}

// Path 返回日志文件路径。
func (h *FileHandler) Path() string {
	return h.path
}

// Close 关闭文件，可重复调用。之后的写入返回 Closed 错误。
func (h *FileHandler) Close() error {
	return h.shutdown(h.f.Close)
}
