package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"roulette-server/common/helper"
	"roulette-server/common/logger"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 提现 / 划转的终态错误，与账本服务返回的错误码一一对应
var (
	ErrAmountTooLow           = errors.New("amount below ledger fee")
	ErrInsufficientFunds      = errors.New("insufficient funds on ledger")
	ErrInsufficientAllowance  = errors.New("insufficient allowance on ledger")
	ErrTemporarilyUnavailable = errors.New("ledger temporarily unavailable")
)

// Client ICRC 账本操作接口，可注入以便测试
// 金额单位均为 wei（十进制整数）
type Client interface {
	// BalanceOf 查询 owner 在账本上的余额
	BalanceOf(ctx context.Context, owner string) (decimal.Decimal, error)
	// Transfer 从本服务账户向 to 转账，返回账本块高
	Transfer(ctx context.Context, to string, amount decimal.Decimal) (uint64, error)
	// Approve 授权 spender 支配本服务账户的额度，返回账本块高
	Approve(ctx context.Context, spender string, amount decimal.Decimal) (uint64, error)
	// Withdraw 烧掉本服务账户余额并提现到链上地址，返回账本块高
	Withdraw(ctx context.Context, to string, amount decimal.Decimal) (uint64, error)
}

// httpClient 通过账本网关服务（HTTP/JSON）执行 ICRC 操作
type httpClient struct {
	baseURL         string
	ledgerPrincipal string
	minterPrincipal string
}

// New 创建账本客户端
func New(baseURL, ledgerPrincipal, minterPrincipal string) Client {
	return &httpClient{
		baseURL:         baseURL,
		ledgerPrincipal: ledgerPrincipal,
		minterPrincipal: minterPrincipal,
	}
}

type ledgerRequest struct {
	Ledger  string `json:"ledger"`
	Owner   string `json:"owner,omitempty"`
	To      string `json:"to,omitempty"`
	Spender string `json:"spender,omitempty"`
	Amount  string `json:"amount,omitempty"`
}

type ledgerResponse struct {
	BlockIndex uint64 `json:"block_index"`
	Balance    string `json:"balance"`
	ErrorCode  string `json:"error_code"`
	ErrorMsg   string `json:"error_msg"`
}

func (c *httpClient) call(ctx context.Context, path string, req ledgerRequest) (*ledgerResponse, error) {
	req.Ledger = c.ledgerPrincipal

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	respBytes, statusCode, err := helper.HttpDoTimeout(body, "POST",
		c.baseURL+path, map[string]string{"Content-Type": "application/json"}, helper.LedgerTimeout)
	if err != nil {
		logger.Warn("ledger request failed",
			zap.String("path", path),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrTemporarilyUnavailable, err)
	}
	if statusCode != 200 {
		return nil, fmt.Errorf("%w: http status %d", ErrTemporarilyUnavailable, statusCode)
	}

	var resp ledgerResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrTemporarilyUnavailable, err)
	}
	if resp.ErrorCode != "" {
		return nil, mapLedgerError(resp.ErrorCode, resp.ErrorMsg)
	}

	return &resp, nil
}

// mapLedgerError 将账本服务错误码映射为本地终态错误
func mapLedgerError(code, msg string) error {
	switch code {
	case "AMOUNT_TOO_LOW":
		return ErrAmountTooLow
	case "INSUFFICIENT_FUNDS":
		return ErrInsufficientFunds
	case "INSUFFICIENT_ALLOWANCE":
		return ErrInsufficientAllowance
	case "TEMPORARILY_UNAVAILABLE":
		return ErrTemporarilyUnavailable
	default:
		return fmt.Errorf("%w: %s: %s", ErrTemporarilyUnavailable, code, msg)
	}
}

func (c *httpClient) BalanceOf(ctx context.Context, owner string) (decimal.Decimal, error) {
	resp, err := c.call(ctx, "/icrc1/balance_of", ledgerRequest{Owner: owner})
	if err != nil {
		return decimal.Zero, err
	}
	bal, err := decimal.NewFromString(resp.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed balance %q", ErrTemporarilyUnavailable, resp.Balance)
	}
	return bal, nil
}

func (c *httpClient) Transfer(ctx context.Context, to string, amount decimal.Decimal) (uint64, error) {
	resp, err := c.call(ctx, "/icrc1/transfer", ledgerRequest{To: to, Amount: amount.String()})
	if err != nil {
		return 0, err
	}
	return resp.BlockIndex, nil
}

func (c *httpClient) Approve(ctx context.Context, spender string, amount decimal.Decimal) (uint64, error) {
	resp, err := c.call(ctx, "/icrc2/approve", ledgerRequest{Spender: spender, Amount: amount.String()})
	if err != nil {
		return 0, err
	}
	return resp.BlockIndex, nil
}

func (c *httpClient) Withdraw(ctx context.Context, to string, amount decimal.Decimal) (uint64, error) {
	// 提现 = 先授权 minter，再由 minter 烧币出金
	resp, err := c.call(ctx, "/minter/withdraw_eth", ledgerRequest{
		Spender: c.minterPrincipal,
		To:      to,
		Amount:  amount.String(),
	})
	if err != nil {
		return 0, err
	}
	return resp.BlockIndex, nil
}
