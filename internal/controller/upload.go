package controller

import (
	"fmt"
	"io"
	"solveit_backend/internal/util"
)

// readUpload 读取上传内容，超过上限返回 ErrValidation 而不是截断
func readUpload(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read uploaded file", util.ErrValidation)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: uploaded file exceeds %d MiB", util.ErrValidation, limit>>20)
	}
	return data, nil
}
