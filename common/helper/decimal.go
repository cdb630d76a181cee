package helper

import (
	"github.com/shopspring/decimal"
)

// TrimDecimal 将 decimal 对象输出为定点字符串
// 代币金额以最小单位（wei）整数计，因此固定 0 位小数
func TrimDecimal(val decimal.Decimal) string {
	return val.StringFixed(0)
}
