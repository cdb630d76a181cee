package model

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// IsMySQLDuplicateKeyError 判断是否为 MySQL 唯一键冲突错误（错误码 1062）
func IsMySQLDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
