package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	chelper "roulette-server/common/helper"
	"roulette-server/internal/chain"
	"roulette-server/internal/config"
	infmysql "roulette-server/internal/infra/mysql"
	infrds "roulette-server/internal/infra/redis"
	"roulette-server/internal/game"
	"roulette-server/internal/metrics"
	"roulette-server/internal/state"
	"roulette-server/internal/store"

	"github.com/google/uuid"
	decimal "github.com/shopspring/decimal"
)

// SettleInput 输入参数
// TxHash 与 Player 必填；BetKind/BetValue 描述押注
type SettleInput struct {
	TxHash   string
	Player   string // 玩家链上出资地址（0x + 40 位十六进制）
	BetKind  string // number|color|evenodd
	BetValue string // 号码 / red|black|green / even|odd
	TraceID  string
}

type SettleOutput struct {
	TxHash     string `json:"tx_hash"`
	Player     string `json:"player"`
	Bet        string `json:"bet"`
	SpinResult int    `json:"spin_result"`
	Color      string `json:"color"`
	Parity     string `json:"parity"`
	Won        bool   `json:"won"`
	Amount     string `json:"amount"`      // 存款本金（wei）
	Delta      string `json:"delta"`       // 押注净变动（wei，可为负）
	NewBalance string `json:"new_balance"` // 结算后余额（wei）
}

type SettleService interface {
	Settle(ctx context.Context, in SettleInput) (*SettleOutput, error)
}

const (
	// Redis 进行中锁 TTL：结算含一次链上 RPC，放宽到 45 秒
	settleLockTTL = 45 * time.Second
	// 结果缓存 TTL：重复提交同一哈希时直接返回第一次结算结果
	settleResultTTL = 1 * time.Minute
)

var (
	ErrDuplicateInFlight = errors.New("duplicate settle request in flight")
	ErrInvalidTxHash     = errors.New("invalid transaction hash")
	ErrInvalidPlayer     = errors.New("invalid player address")
	ErrInvalidBet        = errors.New("invalid bet")
	// ErrPlayerMismatch 表示回执的出资方不是请求声称的玩家
	ErrPlayerMismatch = errors.New("receipt sender does not match claimed player")
)

// 交易哈希：0x + 64 位十六进制；玩家地址：0x + 40 位十六进制
var (
	txHashPattern  = regexp.MustCompile(`^0x[0-9a-f]{64}$`)
	ethAddrPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)
)

type settleService struct {
	store    store.Store
	oracle   chain.Oracle
	spin     game.SpinFunc
	minter   string
	canister string // 本服务 principal，存款地址由它派生
}

// NewSettleService 生产构造：MySQL 存储 + JSON-RPC 回执查询 + crypto/rand 转盘
func NewSettleService() SettleService {
	cfg := config.GetCurrent()
	rpcURL := ""
	topic := ""
	if cfg != nil {
		rpcURL = cfg.Chain.RPCURL
		topic = cfg.RocketMQ.TopicSettle
	}
	return &settleService{
		store:    store.NewMySQL(infmysql.SQLX(), topic),
		oracle:   chain.NewRPCOracle(rpcURL),
		spin:     game.DefaultSpin,
		minter:   config.MinterAddress(),
		canister: config.CanisterPrincipal(),
	}
}

// NewSettleServiceWith 测试构造：全部依赖可注入
func NewSettleServiceWith(st store.Store, oracle chain.Oracle, spin game.SpinFunc, minter, canister string) SettleService {
	return &settleService{store: st, oracle: oracle, spin: spin, minter: minter, canister: canister}
}

// Settle 处理结算主流程：
// 幂等检查 → 回执核验 → 转盘 → 原子落账
func (s *settleService) Settle(ctx context.Context, in SettleInput) (*SettleOutput, error) {

	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordSettle(result, strings.ToLower(in.BetKind), start) }()

	// ========== 入参校验 ==========
	// 1. 交易哈希统一小写并校验格式
	// 2. 玩家地址统一小写并校验格式
	// 3. 押注玩法与下注值联合校验
	// ==============================

	txHash := strings.ToLower(strings.TrimSpace(in.TxHash))
	if !txHashPattern.MatchString(txHash) {
		fmt.Printf("[Settle]  非法交易哈希: tx_hash=%s, trace_id=%s\n", in.TxHash, in.TraceID)
		return nil, ErrInvalidTxHash
	}

	player := strings.ToLower(strings.TrimSpace(in.Player))
	if !ethAddrPattern.MatchString(player) {
		fmt.Printf("[Settle]  非法玩家地址: player=%s, trace_id=%s\n", in.Player, in.TraceID)
		return nil, ErrInvalidPlayer
	}

	bet, err := game.ParseBet(in.BetKind, in.BetValue)
	if err != nil {
		fmt.Printf("[Settle]  非法押注: bet_kind=%s, bet_value=%s, error=%v, trace_id=%s\n",
			in.BetKind, in.BetValue, err, in.TraceID)
		return nil, fmt.Errorf("%w: %v", ErrInvalidBet, err)
	}

	// 由本服务 canister principal 派生存款地址，回执日志必须命中该地址
	depositAddr, err := chain.DepositAddress(s.canister)
	if err != nil {
		fmt.Printf("[Settle]  canister principal 配置异常: canister=%s, error=%v, trace_id=%s\n",
			s.canister, err, in.TraceID)
		return nil, fmt.Errorf("canister principal misconfigured: %w", err)
	}

	fmt.Printf("[Settle]  收到结算请求: tx_hash=%s, player=%s, bet=%s, trace_id=%s\n",
		txHash, player, bet.String(), in.TraceID)

	st := state.StateCreated

	// Redis 快路径：结果缓存存在即说明该哈希刚结算过，直接拒绝
	if r := infrds.Client(); r != nil {
		if n, _ := r.Exists(ctx, infrds.SettleResultKey(txHash)).Result(); n > 0 {
			fmt.Printf("[Settle]  Redis 缓存命中: tx_hash=%s, trace_id=%s\n", txHash, in.TraceID)
			return nil, store.ErrAlreadyProcessed
		}

		// 进行中锁，吸收同哈希的并发重复提交
		lockValue := uuid.New().String()
		lockKey := infrds.SettleLockKey(txHash)
		ok, _ := r.SetNX(ctx, lockKey, lockValue, settleLockTTL).Result()
		if !ok {
			fmt.Printf("[Settle]  重复请求进行中: tx_hash=%s, trace_id=%s\n", txHash, in.TraceID)
			return nil, ErrDuplicateInFlight
		}

		// 使用 Lua 脚本原子释放锁（仅当锁值匹配时删除）
		defer func() {
			script := `
				if redis.call("get", KEYS[1]) == ARGV[1] then
					return redis.call("del", KEYS[1])
				else
					return 0
				end
			`
			res, err := r.Eval(ctx, script, []string{lockKey}, lockValue).Result()
			if err != nil {
				fmt.Printf("[Settle] 释放分布式锁失败: tx_hash=%s, error=%v, trace_id=%s\n",
					txHash, err, in.TraceID)
			} else if res == int64(0) {
				fmt.Printf("[Settle] 分布式锁已被其他请求释放或过期: tx_hash=%s, trace_id=%s\n",
					txHash, in.TraceID)
			}
		}()
	}

	// DB 快路径：已结算过的哈希直接拒绝
	// 正确性仍由 transactions.tx_hash 唯一键兜底，这里只省一次链上 RPC
	if done, err := s.store.HasProcessed(ctx, txHash); err == nil && done {
		fmt.Printf("[Settle]  交易已结算过: tx_hash=%s, trace_id=%s\n", txHash, in.TraceID)
		_, _ = state.NextState(st, state.EvtDuplicate)
		return nil, store.ErrAlreadyProcessed
	}
	st, _ = state.NextState(st, state.EvtDedupOK)

	// ========== 链上回执核验 ==========
	// 注意：RPC 调用不持有任何锁 / 事务，悬挂点之后的状态可能已被并发改写，
	// 因此核验结论只作为入账前提，幂等仍由数据库唯一键保证
	// ==================================
	receipt, err := s.oracle.GetReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, chain.ErrReceiptUnavailable) {
			fmt.Printf("[Settle]  回执暂不可得，可稍后重试: tx_hash=%s, error=%v, trace_id=%s\n",
				txHash, err, in.TraceID)
			st, _ = state.NextState(st, state.EvtUnavailable)
			_ = st
			return nil, err
		}
		return nil, err
	}

	dep, err := chain.Verify(receipt, s.minter, depositAddr)
	if err != nil {
		fmt.Printf("[Settle]  回执核验失败: tx_hash=%s, error=%v, trace_id=%s\n",
			txHash, err, in.TraceID)
		st, _ = state.NextState(st, state.EvtVerifyFail)
		_ = st
		return nil, err
	}
	if !dep.Amount.IsPositive() {
		fmt.Printf("[Settle]  存款金额非正: tx_hash=%s, amount=%s, trace_id=%s\n",
			txHash, dep.Amount.String(), in.TraceID)
		return nil, chain.ErrAmountParse
	}

	// 出资方必须就是声称的玩家，拿别人的存款哈希下注直接拒绝，不消耗哈希
	if dep.From != player {
		fmt.Printf("[Settle]  玩家与出资方不符: tx_hash=%s, player=%s, from=%s, trace_id=%s\n",
			txHash, player, dep.From, in.TraceID)
		st, _ = state.NextState(st, state.EvtVerifyFail)
		_ = st
		return nil, ErrPlayerMismatch
	}
	st, _ = state.NextState(st, state.EvtVerifyOK)

	// ========== 转盘与押注判定 ==========
	spin, err := s.spin()
	if err != nil {
		return nil, err
	}
	won, odds := game.Resolve(bet, spin)

	// 净变动：中奖 = 本金×净赔率，未中 = -本金
	delta := dep.Amount.Neg()
	if won {
		delta = dep.Amount.Mul(decimal.NewFromInt(odds))
	}
	st, _ = state.NextState(st, state.EvtResolve)

	fmt.Printf("[Settle]  转盘结果: tx_hash=%s, spin=%d(%s/%s), bet=%s, won=%v, amount=%s, delta=%s, trace_id=%s\n",
		txHash, spin, game.ColorOf(spin), game.ParityOf(spin), bet.String(), won,
		chelper.TrimDecimal(dep.Amount), chelper.TrimDecimal(delta), in.TraceID)

	// ========== 原子落账 ==========
	// 哈希占位先于余额变更，重复哈希与余额不足都会整笔回滚
	newBalance, err := s.store.ApplySettlement(ctx, &store.Settlement{
		TxHash:     txHash,
		Player:     player,
		Depositor:  dep.From,
		Amount:     dep.Amount,
		Bet:        bet,
		SpinResult: spin,
		Won:        won,
		Delta:      delta,
		TraceID:    in.TraceID,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyProcessed) {
			fmt.Printf("[Settle]  唯一键拦截重复结算: tx_hash=%s, trace_id=%s\n", txHash, in.TraceID)
			_, _ = state.NextState(st, state.EvtDuplicate)
			return nil, err
		}
		fmt.Printf("[Settle]  落账失败: tx_hash=%s, error=%v, trace_id=%s\n",
			txHash, err, in.TraceID)
		_, _ = state.NextState(st, state.EvtCommitFail)
		return nil, err
	}
	st, _ = state.NextState(st, state.EvtCommitOK)
	_ = st

	result = "success"
	out := &SettleOutput{
		TxHash:     txHash,
		Player:     player,
		Bet:        bet.String(),
		SpinResult: spin,
		Color:      game.ColorOf(spin),
		Parity:     game.ParityOf(spin),
		Won:        won,
		Amount:     chelper.TrimDecimal(dep.Amount),
		Delta:      chelper.TrimDecimal(delta),
		NewBalance: chelper.TrimDecimal(newBalance),
	}

	// 写入 Redis 结果缓存并失效余额缓存（降级容错）
	if r := infrds.Client(); r != nil {
		if b, e := json.Marshal(out); e == nil {
			_ = r.Set(ctx, infrds.SettleResultKey(txHash), b, settleResultTTL).Err()
		}
		_ = r.Del(ctx, infrds.PlayerBalanceKey(player)).Err()
	}

	return out, nil
}
