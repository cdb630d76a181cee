package helper

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	beegocontext "github.com/beego/beego/v2/server/web/context"
)

// IsJSONContentType 判断是否为 JSON 请求
func IsJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.Contains(ct, "json")
}

// 交易哈希格式：0x + 64 位十六进制（预编译正则）
var txHashRe = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// IsTxHashFormat 判断交易哈希格式
func IsTxHashFormat(s string) bool {
	return txHashRe.MatchString(strings.TrimSpace(s))
}

// wei 金额格式：非负十进制整数（预编译正则）
var weiRe = regexp.MustCompile(`^(?:0|[1-9]\d*)$`)

// IsWeiFormat 判断 wei 金额格式（整数，不允许小数）
func IsWeiFormat(s string) bool {
	return weiRe.MatchString(strings.TrimSpace(s))
}

// principal 文本：小写字母数字按 5 字符分组以短横线连接
var principalRe = regexp.MustCompile(`^[a-z0-9]{1,5}(-[a-z0-9]{1,5})*$`)

// IsPrincipalFormat 粗校验 principal 文本格式（校验和由解码环节验证）
func IsPrincipalFormat(s string) bool {
	return principalRe.MatchString(strings.ToLower(strings.TrimSpace(s)))
}

// 以太坊地址：0x + 40 位十六进制
var ethAddrRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsEthAddressFormat 判断以太坊地址格式
func IsEthAddressFormat(s string) bool {
	return ethAddrRe.MatchString(strings.TrimSpace(s))
}

// 默认输入保护参数
const (
	defaultJSONMaxBytes int64         = 1 << 20 // 1MB
	defaultParseTimeout time.Duration = 1 * time.Second
)

type deadlineReader struct {
	r        io.Reader
	deadline time.Time
}

func (dr *deadlineReader) Read(p []byte) (int, error) {
	if time.Now().After(dr.deadline) {
		return 0, fmt.Errorf("read timeout")
	}
	return dr.r.Read(p)
}

// jsonBodyReader 在 JSON 分支下为请求体增加大小限制与解析超时保护
func jsonBodyReader(ctx *beegocontext.Context) io.Reader {
	lr := io.LimitReader(ctx.Request.Body, defaultJSONMaxBytes)
	return &deadlineReader{r: lr, deadline: time.Now().Add(defaultParseTimeout)}
}

// GetTraceID 统一提取 trace_id：优先从中间件注入的数据取，其次从常见请求头降级
func GetTraceID(ctx *beegocontext.Context) string {
	if v := ctx.Input.GetData("trace_id"); v != nil {
		return fmt.Sprint(v)
	}
	if h := strings.TrimSpace(ctx.Input.Header("X-Trace-ID")); h != "" {
		return h
	}
	if h := strings.TrimSpace(ctx.Input.Header("Trace-Id")); h != "" {
		return h
	}
	return ""
}

// parseByContentType 按 Content-Type 选择解析函数，减少重复 if/else 分支
func parseByContentType[T any](ctx *beegocontext.Context,
	jsonParser func(io.Reader) (T, bool, string),
	formParser func(*beegocontext.Context) (T, bool, string),
) (T, bool, string) {
	ct := ctx.Input.Header("Content-Type")
	if IsJSONContentType(ct) {
		return jsonParser(jsonBodyReader(ctx))
	}
	return formParser(ctx)
}

// -------- Settle helpers --------

// SettleParsed 为解析后的结算入参（与控制器/服务层解耦）
type SettleParsed struct {
	TxHash   string `json:"tx_hash"`
	Player   string `json:"player"`
	BetKind  string `json:"bet_kind"`  // number|color|evenodd
	BetValue string `json:"bet_value"` // 号码 / red|black|green / even|odd
}

// ParseSettleFromJSON 解析 JSON 到 SettleParsed。失败返回 false 与错误消息。
func ParseSettleFromJSON(r io.Reader) (SettleParsed, bool, string) {
	var out SettleParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return SettleParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

// ParseSettleFromForm 从表单读取字段，返回 SettleParsed
func ParseSettleFromForm(ctx *beegocontext.Context) (SettleParsed, bool, string) {
	var out SettleParsed
	out.TxHash = strings.TrimSpace(ctx.Input.Query("tx_hash"))
	out.Player = strings.TrimSpace(ctx.Input.Query("player"))
	out.BetKind = strings.TrimSpace(ctx.Input.Query("bet_kind"))
	out.BetValue = strings.TrimSpace(ctx.Input.Query("bet_value"))
	return out, true, ""
}

// ValidateSettle 对通用字段做二次校验（适用于 JSON 与 FORM）。失败返回 false 与错误消息。
func ValidateSettle(in *SettleParsed) (bool, string) {
	in.TxHash = strings.TrimSpace(in.TxHash)
	in.Player = strings.TrimSpace(in.Player)
	in.BetKind = strings.ToLower(strings.TrimSpace(in.BetKind))
	in.BetValue = strings.ToLower(strings.TrimSpace(in.BetValue))

	if in.TxHash == "" || in.Player == "" || in.BetKind == "" || in.BetValue == "" {
		return false, "missing required fields: tx_hash/player/bet_kind/bet_value"
	}
	if !IsTxHashFormat(in.TxHash) {
		return false, "tx_hash must be 0x-prefixed 64 hex chars"
	}
	// 额外长度保护，避免异常超长输入
	if len(in.Player) > 64 || len(in.BetValue) > 16 {
		return false, "invalid request"
	}
	// 玩家即链上出资地址，回执核验阶段会与 from 比对
	if !IsEthAddressFormat(in.Player) {
		return false, "player must be a 0x-prefixed 40 hex address"
	}
	switch in.BetKind {
	case "number", "color", "evenodd":
	default:
		return false, "bet_kind must be number|color|evenodd"
	}
	return true, ""
}

// ParseAndValidateSettle 按 Content-Type 自动解析并做统一校验
func ParseAndValidateSettle(ctx *beegocontext.Context) (SettleParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseSettleFromJSON, ParseSettleFromForm)
	if !ok {
		return SettleParsed{}, false, msg
	}
	if ok, msg := ValidateSettle(&out); !ok {
		return SettleParsed{}, false, msg
	}
	return out, true, ""
}

// -------- Withdraw helpers --------

type WithdrawParsed struct {
	Player    string `json:"player"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"` // wei 整数字符串
}

func ParseWithdrawFromJSON(r io.Reader) (WithdrawParsed, bool, string) {
	var out WithdrawParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return WithdrawParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseWithdrawFromForm(ctx *beegocontext.Context) (WithdrawParsed, bool, string) {
	var out WithdrawParsed
	out.Player = strings.TrimSpace(ctx.Input.Query("player"))
	out.Recipient = strings.TrimSpace(ctx.Input.Query("recipient"))
	out.Amount = strings.TrimSpace(ctx.Input.Query("amount"))
	return out, true, ""
}

func ValidateWithdraw(in *WithdrawParsed) (bool, string) {
	in.Player = strings.TrimSpace(in.Player)
	in.Recipient = strings.TrimSpace(in.Recipient)
	in.Amount = strings.TrimSpace(in.Amount)

	if in.Player == "" || in.Recipient == "" || in.Amount == "" {
		return false, "missing required fields: player/recipient/amount"
	}
	if !IsEthAddressFormat(in.Player) {
		return false, "player must be a 0x-prefixed 40 hex address"
	}
	if !IsEthAddressFormat(in.Recipient) {
		return false, "recipient must be 0x-prefixed 40 hex chars"
	}
	if len(in.Amount) > 32 || !IsWeiFormat(in.Amount) {
		return false, "amount must be a non-negative integer (wei)"
	}
	return true, ""
}

// ParseAndValidateWithdraw 按 Content-Type 自动解析并做统一校验
func ParseAndValidateWithdraw(ctx *beegocontext.Context) (WithdrawParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseWithdrawFromJSON, ParseWithdrawFromForm)
	if !ok {
		return WithdrawParsed{}, false, msg
	}
	if ok, msg := ValidateWithdraw(&out); !ok {
		return WithdrawParsed{}, false, msg
	}
	return out, true, ""
}

// -------- Treasury helpers --------

type TreasuryOpParsed struct {
	To      string `json:"to"`      // transfer 目标 principal
	Spender string `json:"spender"` // approve 目标 principal
	Amount  string `json:"amount"`  // wei 整数字符串
}

func ParseTreasuryOpFromJSON(r io.Reader) (TreasuryOpParsed, bool, string) {
	var out TreasuryOpParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return TreasuryOpParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseTreasuryOpFromForm(ctx *beegocontext.Context) (TreasuryOpParsed, bool, string) {
	var out TreasuryOpParsed
	out.To = strings.TrimSpace(ctx.Input.Query("to"))
	out.Spender = strings.TrimSpace(ctx.Input.Query("spender"))
	out.Amount = strings.TrimSpace(ctx.Input.Query("amount"))
	return out, true, ""
}

// ValidateTreasuryOp 校验金库操作入参；target 取 to 或 spender 中非空者
func ValidateTreasuryOp(in *TreasuryOpParsed) (bool, string) {
	in.To = strings.TrimSpace(in.To)
	in.Spender = strings.TrimSpace(in.Spender)
	in.Amount = strings.TrimSpace(in.Amount)

	target := in.To
	if target == "" {
		target = in.Spender
	}
	if target == "" || in.Amount == "" {
		return false, "missing required fields: to|spender/amount"
	}
	if !IsPrincipalFormat(target) {
		return false, "target must be a principal text"
	}
	if len(in.Amount) > 32 || !IsWeiFormat(in.Amount) {
		return false, "amount must be a non-negative integer (wei)"
	}
	return true, ""
}

// 金库提现走 minter 出金，目标是链上地址而非 principal，单独一套入参
type TreasuryWithdrawParsed struct {
	To     string `json:"to"`     // 链上收款地址
	Amount string `json:"amount"` // wei 整数字符串
}

func ParseTreasuryWithdrawFromJSON(r io.Reader) (TreasuryWithdrawParsed, bool, string) {
	var out TreasuryWithdrawParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return TreasuryWithdrawParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseTreasuryWithdrawFromForm(ctx *beegocontext.Context) (TreasuryWithdrawParsed, bool, string) {
	var out TreasuryWithdrawParsed
	out.To = strings.TrimSpace(ctx.Input.Query("to"))
	out.Amount = strings.TrimSpace(ctx.Input.Query("amount"))
	return out, true, ""
}

func ValidateTreasuryWithdraw(in *TreasuryWithdrawParsed) (bool, string) {
	in.To = strings.TrimSpace(in.To)
	in.Amount = strings.TrimSpace(in.Amount)

	if in.To == "" || in.Amount == "" {
		return false, "missing required fields: to/amount"
	}
	if !IsEthAddressFormat(in.To) {
		return false, "to must be 0x-prefixed 40 hex chars"
	}
	if len(in.Amount) > 32 || !IsWeiFormat(in.Amount) {
		return false, "amount must be a non-negative integer (wei)"
	}
	return true, ""
}

// ParseAndValidateTreasuryWithdraw 按 Content-Type 自动解析并做统一校验
func ParseAndValidateTreasuryWithdraw(ctx *beegocontext.Context) (TreasuryWithdrawParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseTreasuryWithdrawFromJSON, ParseTreasuryWithdrawFromForm)
	if !ok {
		return TreasuryWithdrawParsed{}, false, msg
	}
	if ok, msg := ValidateTreasuryWithdraw(&out); !ok {
		return TreasuryWithdrawParsed{}, false, msg
	}
	return out, true, ""
}

// ParseAndValidateTreasuryOp 按 Content-Type 自动解析并做统一校验
func ParseAndValidateTreasuryOp(ctx *beegocontext.Context) (TreasuryOpParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseTreasuryOpFromJSON, ParseTreasuryOpFromForm)
	if !ok {
		return TreasuryOpParsed{}, false, msg
	}
	if ok, msg := ValidateTreasuryOp(&out); !ok {
		return TreasuryOpParsed{}, false, msg
	}
	return out, true, ""
}
