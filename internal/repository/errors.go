package repository

import (
	"errors"
	"fmt"

	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"gorm.io/gorm"
)

// translateError 将 gorm 错误归一为业务错误：唯一约束冲突单独暴露，其余视为存储不可用
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return util.ErrDuplicate
	case errors.Is(err, gorm.ErrRecordNotFound):
		return err
	case errors.Is(err, util.ErrProgressionSchemaMissing):
		return err
	default:
		return fmt.Errorf("%w: %v", util.ErrStoreUnavailable, err)
	}
}
