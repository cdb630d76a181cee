package chain

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// 回执校验失败的终态错误，命中后该哈希不被标记为已处理，但本次结算拒绝
var (
	ErrTransactionFailed = errors.New("transaction failed on chain")
	ErrWrongRecipient    = errors.New("transaction recipient is not the minter address")
	ErrPrincipalNotFound = errors.New("deposit log for principal not found in receipt")
	ErrAmountParse       = errors.New("deposit amount malformed in receipt")
)

// VerifiedDeposit 校验通过后提取出的存款事实
type VerifiedDeposit struct {
	Amount decimal.Decimal // 存款金额（wei 整数）
	From   string          // 存款人地址（链上 from，小写）
}

// Verify 对照回执核验一笔存款：
//  1. 回执状态必须为成功
//  2. 收款方必须是铸币账户
//  3. 必须存在铸币账户发出的、第三个 topic（下标 2）命中本服务存款地址的日志
//  4. 日志 data 即存款金额（32字节大端整数）
//
// depositAddress 为 DepositAddress 派生出的 bytes32 十六进制
func Verify(r *Receipt, minterAddress, depositAddress string) (*VerifiedDeposit, error) {
	if !statusOK(r.Status) {
		return nil, ErrTransactionFailed
	}

	minter := strings.ToLower(strings.TrimSpace(minterAddress))
	if strings.ToLower(strings.TrimSpace(r.To)) != minter {
		return nil, ErrWrongRecipient
	}

	want := strings.ToLower(strings.TrimSpace(depositAddress))
	for _, lg := range r.Logs {
		if strings.ToLower(strings.TrimSpace(lg.Address)) != minter {
			continue
		}
		// 铸币事件的存款地址固定在第三个 indexed topic，其他位置不作数
		if len(lg.Topics) < 3 || strings.ToLower(strings.TrimSpace(lg.Topics[2])) != want {
			continue
		}
		amount, err := parseHexAmount(lg.Data)
		if err != nil {
			return nil, err
		}
		return &VerifiedDeposit{
			Amount: amount,
			From:   strings.ToLower(strings.TrimSpace(r.From)),
		}, nil
	}

	return nil, ErrPrincipalNotFound
}

func statusOK(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	return s == "0x1" || s == "0x01"
}

// parseHexAmount 将 0x 开头的十六进制串解析为十进制 wei 整数
func parseHexAmount(data string) (decimal.Decimal, error) {
	s := strings.TrimPrefix(strings.TrimSpace(data), "0x")
	if s == "" {
		return decimal.Zero, ErrAmountParse
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok || n.Sign() < 0 {
		return decimal.Zero, ErrAmountParse
	}
	return decimal.NewFromBigInt(n, 0), nil
}
