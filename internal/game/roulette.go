package game

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// BetKind 玩法类型
type BetKind string

const (
	BetNumber  BetKind = "number"  // 单号直注
	BetColor   BetKind = "color"   // 红黑
	BetEvenOdd BetKind = "evenodd" // 单双
)

// 颜色 / 奇偶取值
const (
	ColorRed   = "red"
	ColorBlack = "black"
	ColorGreen = "green"
	ParityEven = "even"
	ParityOdd  = "odd"
)

// 赔率为净赔率：中奖净入账 = 本金 × 赔率，未中奖扣除本金
const (
	OddsNumber  = 35
	OddsColor   = 1
	OddsEvenOdd = 1
)

// 欧式轮盘红色号码集合
var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// Bet 一注
// Kind=number 时 Number 有效（0..36）；其余玩法 Choice 有效
type Bet struct {
	Kind   BetKind
	Number int
	Choice string
}

// ParseBet 解析并校验玩法与下注值
func ParseBet(kind, value string) (Bet, error) {
	k := BetKind(strings.ToLower(strings.TrimSpace(kind)))
	v := strings.ToLower(strings.TrimSpace(value))

	switch k {
	case BetNumber:
		n, err := strconv.Atoi(v)
		if err != nil {
			return Bet{}, fmt.Errorf("invalid number bet value: %q", value)
		}
		if n < 0 || n > 36 {
			return Bet{}, fmt.Errorf("number bet out of range: %d", n)
		}
		return Bet{Kind: k, Number: n}, nil
	case BetColor:
		if v != ColorRed && v != ColorBlack && v != ColorGreen {
			return Bet{}, fmt.Errorf("invalid color bet value: %q (expected red|black|green)", value)
		}
		return Bet{Kind: k, Choice: v}, nil
	case BetEvenOdd:
		if v != ParityEven && v != ParityOdd {
			return Bet{}, fmt.Errorf("invalid evenodd bet value: %q (expected even|odd)", value)
		}
		return Bet{Kind: k, Choice: v}, nil
	default:
		return Bet{}, fmt.Errorf("unknown bet kind: %q", kind)
	}
}

// String 便于日志与账本备注
func (b Bet) String() string {
	if b.Kind == BetNumber {
		return fmt.Sprintf("%s:%d", b.Kind, b.Number)
	}
	return fmt.Sprintf("%s:%s", b.Kind, b.Choice)
}

// ColorOf 返回号码颜色：0 为绿色
func ColorOf(n int) string {
	if n == 0 {
		return ColorGreen
	}
	if redNumbers[n] {
		return ColorRed
	}
	return ColorBlack
}

// ParityOf 返回号码奇偶：0 既不算单也不算双，返回空串
func ParityOf(n int) string {
	if n == 0 {
		return ""
	}
	if n%2 == 0 {
		return ParityEven
	}
	return ParityOdd
}

// Resolve 判定一注在给定结果下是否中奖，并返回净赔率
// 0 出现时仅 Number(0) 与 Color(green) 中奖，红黑与单双均失败
func Resolve(b Bet, spin int) (won bool, odds int64) {
	switch b.Kind {
	case BetNumber:
		return b.Number == spin, OddsNumber
	case BetColor:
		return ColorOf(spin) == b.Choice, OddsColor
	case BetEvenOdd:
		return ParityOf(spin) == b.Choice, OddsEvenOdd
	default:
		return false, 0
	}
}

// SpinFunc 产生一个 0..36 的转盘结果，可注入以便测试
type SpinFunc func() (int, error)

// DefaultSpin 使用 crypto/rand 产生均匀分布的转盘结果
func DefaultSpin() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(37))
	if err != nil {
		return 0, fmt.Errorf("spin failed: %w", err)
	}
	return int(n.Int64()), nil
}
