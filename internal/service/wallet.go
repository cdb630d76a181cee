package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	chelper "roulette-server/common/helper"
	"roulette-server/internal/chain"
	"roulette-server/internal/config"
	infmysql "roulette-server/internal/infra/mysql"
	infrds "roulette-server/internal/infra/redis"
	"roulette-server/internal/ledger"
	"roulette-server/internal/model"
	"roulette-server/internal/store"

	decimal "github.com/shopspring/decimal"
)

// WalletService 玩家钱包读写：余额、流水、存款地址、提现
type WalletService interface {
	GetBalance(ctx context.Context, player string) (string, error)
	ListTransactions(ctx context.Context, player string, limit int) ([]model.Transaction, error)
	ListLedger(ctx context.Context, player string, limit int) ([]model.WalletLedger, error)
	// DepositAddress 返回充值时铸币日志应命中的 bytes32 地址（由本服务 principal 派生，与玩家无关）
	DepositAddress(ctx context.Context) (string, error)
	// Withdraw 扣减玩家余额并经账本出金，返回账本块高与剩余余额
	Withdraw(ctx context.Context, in WithdrawInput) (*WithdrawOutput, error)
}

type WithdrawInput struct {
	Player    string
	Recipient string // 链上收款地址
	Amount    string // wei 十进制字符串
	TraceID   string
}

type WithdrawOutput struct {
	BlockIndex uint64 `json:"block_index"`
	NewBalance string `json:"new_balance"`
}

var ErrInvalidAmount = errors.New("invalid amount")

// invalidateBalanceCache 余额变更后删除查询缓存（降级容错）
func invalidateBalanceCache(ctx context.Context, player string) {
	if r := infrds.Client(); r != nil {
		_ = r.Del(ctx, infrds.PlayerBalanceKey(player)).Err()
	}
}

type walletService struct {
	store    store.Store
	ledger   ledger.Client
	canister string // 本服务 principal，存款地址由它派生
}

// NewWalletService 生产构造
func NewWalletService() WalletService {
	cfg := config.GetCurrent()
	baseURL := ""
	topic := ""
	if cfg != nil {
		baseURL = cfg.Ledger.ServiceURL
		topic = cfg.RocketMQ.TopicSettle
	}
	return &walletService{
		store:    store.NewMySQL(infmysql.SQLX(), topic),
		ledger:   ledger.New(baseURL, config.LedgerPrincipal(), config.MinterPrincipal()),
		canister: config.CanisterPrincipal(),
	}
}

// NewWalletServiceWith 测试构造
func NewWalletServiceWith(st store.Store, lc ledger.Client, canister string) WalletService {
	return &walletService{store: st, ledger: lc, canister: canister}
}

// 余额查询缓存 TTL：容忍秒级滞后，余额变更时主动失效
const balanceCacheTTL = 3 * time.Second

func (s *walletService) GetBalance(ctx context.Context, player string) (string, error) {
	// 余额键为小写链上地址，与结算落账保持一致
	player = strings.ToLower(strings.TrimSpace(player))

	if r := infrds.Client(); r != nil {
		if v, err := r.Get(ctx, infrds.PlayerBalanceKey(player)).Result(); err == nil && v != "" {
			return v, nil
		}
	}

	bal, err := s.store.GetBalance(ctx, player)
	if err != nil {
		return "", err
	}
	out := chelper.TrimDecimal(bal)

	if r := infrds.Client(); r != nil {
		_ = r.Set(ctx, infrds.PlayerBalanceKey(player), out, balanceCacheTTL).Err()
	}
	return out, nil
}

func (s *walletService) ListTransactions(ctx context.Context, player string, limit int) ([]model.Transaction, error) {
	return s.store.ListTransactions(ctx, strings.ToLower(strings.TrimSpace(player)), limit)
}

func (s *walletService) ListLedger(ctx context.Context, player string, limit int) ([]model.WalletLedger, error) {
	return s.store.ListLedger(ctx, strings.ToLower(strings.TrimSpace(player)), limit)
}

func (s *walletService) DepositAddress(ctx context.Context) (string, error) {
	addr, err := chain.DepositAddress(s.canister)
	if err != nil {
		return "", fmt.Errorf("canister principal misconfigured: %w", err)
	}
	return addr, nil
}

// Withdraw 提现主流程：
// 先扣内部余额（余额永不为负），再经账本出金；出金失败则补偿回滚扣款
func (s *walletService) Withdraw(ctx context.Context, in WithdrawInput) (*WithdrawOutput, error) {
	player := strings.ToLower(strings.TrimSpace(in.Player))
	if player == "" {
		return nil, ErrInvalidPlayer
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil || !amount.IsPositive() || amount.Exponent() < 0 {
		return nil, ErrInvalidAmount
	}

	// 最小提现额（wei），默认 1，可经配置中心热调
	if minWei := config.GetThreshold("min_withdraw_wei", 1); amount.LessThan(decimal.NewFromInt(minWei)) {
		return nil, ledger.ErrAmountTooLow
	}

	fmt.Printf("[Withdraw]  收到提现请求: player=%s, recipient=%s, amount=%s, trace_id=%s\n",
		player, in.Recipient, amount.String(), in.TraceID)

	// 1. 扣减内部余额，不足额在此处被拒绝
	newBalance, err := s.store.Adjust(ctx, player, amount.Neg(), "withdraw",
		"withdraw to "+in.Recipient, in.TraceID)
	if err != nil {
		fmt.Printf("[Withdraw]  扣款失败: player=%s, error=%v, trace_id=%s\n",
			player, err, in.TraceID)
		return nil, err
	}
	invalidateBalanceCache(ctx, player)

	// 2. 账本出金
	blockIndex, err := s.ledger.Withdraw(ctx, strings.TrimSpace(in.Recipient), amount)
	if err != nil {
		fmt.Printf("[Withdraw]  账本出金失败，补偿回滚扣款: player=%s, error=%v, trace_id=%s\n",
			player, err, in.TraceID)
		// 补偿：把扣掉的金额加回去
		if _, rerr := s.store.Adjust(ctx, player, amount, "adjust",
			"withdraw refund: "+err.Error(), in.TraceID); rerr != nil {
			// 补偿失败只能靠账本审计人工对账
			fmt.Printf("[Withdraw]  补偿回滚失败: player=%s, amount=%s, error=%v, trace_id=%s\n",
				player, amount.String(), rerr, in.TraceID)
		}
		invalidateBalanceCache(ctx, player)
		return nil, err
	}

	fmt.Printf("[Withdraw]  提现成功: player=%s, block_index=%d, new_balance=%s, trace_id=%s\n",
		player, blockIndex, chelper.TrimDecimal(newBalance), in.TraceID)

	return &WithdrawOutput{
		BlockIndex: blockIndex,
		NewBalance: chelper.TrimDecimal(newBalance),
	}, nil
}
