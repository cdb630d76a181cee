package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"roulette-server/common/helper"
	"roulette-server/common/logger"
	"roulette-server/internal/metrics"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrReceiptUnavailable 表示回执暂时取不到（节点超时、回执未出块等）
// 该错误属于可重试错误，调用方不得据此入账或标记已处理
var ErrReceiptUnavailable = errors.New("transaction receipt unavailable")

// Log 回执中的事件日志
type Log struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

// Receipt eth_getTransactionReceipt 返回的交易回执（只保留校验所需字段）
type Receipt struct {
	Status string `json:"status"` // "0x1"=成功 "0x0"=失败
	From   string `json:"from"`
	To     string `json:"to"`
	TxHash string `json:"transactionHash"`
	Logs   []Log  `json:"logs"`
}

// Oracle 链上回执查询接口，可注入以便测试
type Oracle interface {
	GetReceipt(ctx context.Context, txHash string) (*Receipt, error)
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result *Receipt `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// rpcOracle 通过 EVM JSON-RPC 节点查询回执
type rpcOracle struct {
	url string
}

// NewRPCOracle 创建 JSON-RPC 回执查询客户端
func NewRPCOracle(url string) Oracle {
	return &rpcOracle{url: url}
}

func (o *rpcOracle) GetReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	start := time.Now()
	result := "error"
	defer func() { metrics.RecordOracle(result, start) }()

	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_getTransactionReceipt",
		Params:  []interface{}{txHash},
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	respBytes, statusCode, err := helper.HttpDoTimeoutForOracle(reqBody, "POST",
		o.url, map[string]string{"Content-Type": "application/json"}, helper.OracleTimeout)
	if err != nil {
		logger.Warn("oracle rpc request failed",
			zap.String("tx_hash", txHash),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrReceiptUnavailable, err)
	}
	if statusCode != 200 {
		logger.Warn("oracle rpc bad status",
			zap.String("tx_hash", txHash),
			zap.Int("status_code", statusCode))
		return nil, fmt.Errorf("%w: http status %d", ErrReceiptUnavailable, statusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBytes, &rpcResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrReceiptUnavailable, err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("%w: rpc error %d: %s", ErrReceiptUnavailable, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	// result 为 null 表示回执尚未出块
	if rpcResp.Result == nil {
		result = "unavailable"
		return nil, ErrReceiptUnavailable
	}

	result = "hit"
	return rpcResp.Result, nil
}
