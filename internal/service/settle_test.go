package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"roulette-server/internal/chain"
	"roulette-server/internal/store"
)

const (
	testMinter = "0xb44b5e756a894775fc32eddf3314bb1b1944dc34"
	// 本服务 principal（匿名 principal "2vxsx-fae"），存款地址由它派生
	testCanister = "2vxsx-fae"
	// 玩家即链上出资地址，与回执 from 一致
	testPlayer = "0x00000000000000000000000000000000000000a1"
)

var testDepositAddr = "0x0104" + strings.Repeat("0", 60)

// fakeOracle 固定回执的回执源
type fakeOracle struct {
	receipt *chain.Receipt
	err     error
}

func (f *fakeOracle) GetReceipt(ctx context.Context, txHash string) (*chain.Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	r := *f.receipt
	r.TxHash = txHash
	return &r, nil
}

func depositReceipt(amountHex string) *chain.Receipt {
	return &chain.Receipt{
		Status: "0x1",
		From:   testPlayer,
		To:     testMinter,
		Logs: []chain.Log{
			{
				Address: testMinter,
				// 存款地址固定写在第三个 indexed topic
				Topics: []string{"0x" + strings.Repeat("00", 32), "0x" + strings.Repeat("11", 32), testDepositAddr},
				Data:   amountHex,
			},
		},
	}
}

func fixedSpin(n int) func() (int, error) {
	return func() (int, error) { return n, nil }
}

func validHash(seed byte) string {
	return "0x" + strings.Repeat(string([]byte{seed}), 64)
}

func newTestSettle(st store.Store, oracle chain.Oracle, spin int) SettleService {
	return NewSettleServiceWith(st, oracle, fixedSpin(spin), testMinter, testCanister)
}

func TestSettleWin(t *testing.T) {
	st := store.NewMemory()
	// 本金 100 wei，押红，开 1（红）
	oracle := &fakeOracle{receipt: depositReceipt("0x64")}
	svc := newTestSettle(st, oracle, 1)

	out, err := svc.Settle(context.Background(), SettleInput{
		TxHash:   validHash('a'),
		Player:   testPlayer,
		BetKind:  "color",
		BetValue: "red",
		TraceID:  "t1",
	})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !out.Won || out.SpinResult != 1 || out.Color != "red" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if out.Amount != "100" || out.Delta != "100" || out.NewBalance != "200" {
		t.Fatalf("math wrong: amount=%s delta=%s balance=%s", out.Amount, out.Delta, out.NewBalance)
	}
}

func TestSettleLoss(t *testing.T) {
	st := store.NewMemory()
	// 押红，开 0（绿）：红黑通输
	oracle := &fakeOracle{receipt: depositReceipt("0x64")}
	svc := newTestSettle(st, oracle, 0)

	out, err := svc.Settle(context.Background(), SettleInput{
		TxHash:   validHash('b'),
		Player:   testPlayer,
		BetKind:  "color",
		BetValue: "red",
	})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if out.Won || out.Delta != "-100" || out.NewBalance != "0" {
		t.Fatalf("loss math wrong: %+v", out)
	}
}

func TestSettleGreenWinsOnZero(t *testing.T) {
	st := store.NewMemory()
	// 押绿，开 0：绿是合法颜色注且中奖
	oracle := &fakeOracle{receipt: depositReceipt("0x64")}
	svc := newTestSettle(st, oracle, 0)

	out, err := svc.Settle(context.Background(), SettleInput{
		TxHash:   validHash('7'),
		Player:   testPlayer,
		BetKind:  "color",
		BetValue: "green",
	})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !out.Won || out.Color != "green" || out.Delta != "100" || out.NewBalance != "200" {
		t.Fatalf("green bet on zero wrong: %+v", out)
	}
}

func TestSettleNumberOdds(t *testing.T) {
	st := store.NewMemory()
	oracle := &fakeOracle{receipt: depositReceipt("0x0a")} // 10 wei
	svc := newTestSettle(st, oracle, 7)

	out, err := svc.Settle(context.Background(), SettleInput{
		TxHash:   validHash('c'),
		Player:   testPlayer,
		BetKind:  "number",
		BetValue: "7",
	})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	// 直注净赔率 35：10 + 350 = 360
	if out.Delta != "350" || out.NewBalance != "360" {
		t.Fatalf("number odds wrong: delta=%s balance=%s", out.Delta, out.NewBalance)
	}
}

func TestSettleIdempotent(t *testing.T) {
	st := store.NewMemory()
	oracle := &fakeOracle{receipt: depositReceipt("0x64")}
	svc := newTestSettle(st, oracle, 1)

	in := SettleInput{
		TxHash:   validHash('d'),
		Player:   testPlayer,
		BetKind:  "color",
		BetValue: "red",
	}
	if _, err := svc.Settle(context.Background(), in); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	_, err := svc.Settle(context.Background(), in)
	if !errors.Is(err, store.ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}

	// 重复提交不应再次入账
	bal, _ := st.GetBalance(context.Background(), testPlayer)
	if bal.String() != "200" {
		t.Fatalf("balance after replay: %s", bal.String())
	}
}

func TestSettleConcurrentReplay(t *testing.T) {
	st := store.NewMemory()
	oracle := &fakeOracle{receipt: depositReceipt("0x64")}
	svc := newTestSettle(st, oracle, 1)

	in := SettleInput{
		TxHash:   validHash('e'),
		Player:   testPlayer,
		BetKind:  "evenodd",
		BetValue: "odd",
	}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Settle(context.Background(), in)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var okCount int
	for err := range errs {
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, store.ErrAlreadyProcessed), errors.Is(err, ErrDuplicateInFlight):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 {
		t.Fatalf("exactly one settle should win, got %d", okCount)
	}

	bal, _ := st.GetBalance(context.Background(), testPlayer)
	if bal.String() != "200" {
		t.Fatalf("balance after concurrent replay: %s", bal.String())
	}
}

func TestSettleReceiptUnavailable(t *testing.T) {
	st := store.NewMemory()
	oracle := &fakeOracle{err: chain.ErrReceiptUnavailable}
	svc := newTestSettle(st, oracle, 1)

	h := validHash('f')
	_, err := svc.Settle(context.Background(), SettleInput{
		TxHash: h, Player: testPlayer, BetKind: "color", BetValue: "red",
	})
	if !errors.Is(err, chain.ErrReceiptUnavailable) {
		t.Fatalf("expected ErrReceiptUnavailable, got %v", err)
	}

	// 暂不可得不占用哈希，之后回执就绪可重试成功
	done, _ := st.HasProcessed(context.Background(), h)
	if done {
		t.Fatalf("unavailable receipt must not mark hash processed")
	}
	oracle.err = nil
	oracle.receipt = depositReceipt("0x64")
	if _, err := svc.Settle(context.Background(), SettleInput{
		TxHash: h, Player: testPlayer, BetKind: "color", BetValue: "red",
	}); err != nil {
		t.Fatalf("retry after receipt ready: %v", err)
	}
}

func TestSettlePlayerMismatch(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	// 回执合法，但出资方是别人：拿他人存款哈希下注必须被拒
	r := depositReceipt("0x64")
	r.From = "0x00000000000000000000000000000000000000b2"
	svc := newTestSettle(st, &fakeOracle{receipt: r}, 1)

	h := validHash('8')
	_, err := svc.Settle(ctx, SettleInput{TxHash: h, Player: testPlayer, BetKind: "color", BetValue: "red"})
	if !errors.Is(err, ErrPlayerMismatch) {
		t.Fatalf("expected ErrPlayerMismatch, got %v", err)
	}
	// 不占用哈希，真正的出资方之后仍可结算
	if done, _ := st.HasProcessed(ctx, h); done {
		t.Fatalf("mismatched claim must not mark hash processed")
	}
	if bal, _ := st.GetBalance(ctx, testPlayer); bal.String() != "0" {
		t.Fatalf("mismatched claim must not mutate balance: %s", bal.String())
	}
	if _, err := svc.Settle(ctx, SettleInput{
		TxHash: h, Player: r.From, BetKind: "color", BetValue: "red",
	}); err != nil {
		t.Fatalf("true depositor settle after mismatch: %v", err)
	}
}

func TestSettleVerifyRejections(t *testing.T) {
	ctx := context.Background()

	// 链上执行失败
	r := depositReceipt("0x64")
	r.Status = "0x0"
	svc := newTestSettle(store.NewMemory(), &fakeOracle{receipt: r}, 1)
	_, err := svc.Settle(ctx, SettleInput{TxHash: validHash('1'), Player: testPlayer, BetKind: "color", BetValue: "red"})
	if !errors.Is(err, chain.ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got %v", err)
	}

	// 收款方不是铸币账户
	r = depositReceipt("0x64")
	r.To = "0x0000000000000000000000000000000000000bad"
	svc = newTestSettle(store.NewMemory(), &fakeOracle{receipt: r}, 1)
	_, err = svc.Settle(ctx, SettleInput{TxHash: validHash('2'), Player: testPlayer, BetKind: "color", BetValue: "red"})
	if !errors.Is(err, chain.ErrWrongRecipient) {
		t.Fatalf("expected ErrWrongRecipient, got %v", err)
	}

	// 日志第三个 topic 未命中本服务存款地址
	r = depositReceipt("0x64")
	r.Logs[0].Topics[2] = "0x" + strings.Repeat("ff", 32)
	st := store.NewMemory()
	svc = newTestSettle(st, &fakeOracle{receipt: r}, 1)
	h := validHash('3')
	_, err = svc.Settle(ctx, SettleInput{TxHash: h, Player: testPlayer, BetKind: "color", BetValue: "red"})
	if !errors.Is(err, chain.ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound, got %v", err)
	}
	// 核验失败不占用哈希
	if done, _ := st.HasProcessed(ctx, h); done {
		t.Fatalf("rejected receipt must not mark hash processed")
	}

	// 零金额存款拒绝
	svc = newTestSettle(store.NewMemory(), &fakeOracle{receipt: depositReceipt("0x00")}, 1)
	_, err = svc.Settle(ctx, SettleInput{TxHash: validHash('4'), Player: testPlayer, BetKind: "color", BetValue: "red"})
	if !errors.Is(err, chain.ErrAmountParse) {
		t.Fatalf("expected ErrAmountParse for zero amount, got %v", err)
	}
}

func TestSettleInputValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestSettle(store.NewMemory(), &fakeOracle{receipt: depositReceipt("0x64")}, 1)

	// 非法哈希
	for _, h := range []string{"", "0x123", "deadbeef", "0x" + strings.Repeat("g", 64), "0x" + strings.Repeat("A", 64)} {
		_, err := svc.Settle(ctx, SettleInput{TxHash: h, Player: testPlayer, BetKind: "color", BetValue: "red"})
		if h == "0x"+strings.Repeat("A", 64) {
			// 大写哈希会被统一小写后接受
			if errors.Is(err, ErrInvalidTxHash) {
				t.Fatalf("uppercase hash should be normalized")
			}
			continue
		}
		if !errors.Is(err, ErrInvalidTxHash) {
			t.Fatalf("hash %q expected ErrInvalidTxHash, got %v", h, err)
		}
	}

	// 空 / 非法玩家地址
	for _, p := range []string{"", "2vxsx-fae", "0x123", "0x" + strings.Repeat("g", 40)} {
		_, err := svc.Settle(ctx, SettleInput{TxHash: validHash('5'), Player: p, BetKind: "color", BetValue: "red"})
		if !errors.Is(err, ErrInvalidPlayer) {
			t.Fatalf("player %q expected ErrInvalidPlayer, got %v", p, err)
		}
	}
	// 大写地址统一小写后接受
	_, err := svc.Settle(ctx, SettleInput{
		TxHash: validHash('5'), Player: strings.ToUpper(testPlayer[2:]), BetKind: "color", BetValue: "red",
	})
	if !errors.Is(err, ErrInvalidPlayer) {
		// 缺 0x 前缀应当被拒
		t.Fatalf("missing 0x prefix expected ErrInvalidPlayer, got %v", err)
	}
	if _, err := svc.Settle(ctx, SettleInput{
		TxHash: validHash('5'), Player: "0x" + strings.ToUpper(testPlayer[2:]), BetKind: "color", BetValue: "red",
	}); errors.Is(err, ErrInvalidPlayer) {
		t.Fatalf("uppercase player address should be normalized")
	}

	// 非法押注
	_, err = svc.Settle(ctx, SettleInput{TxHash: validHash('6'), Player: testPlayer, BetKind: "color", BetValue: "blue"})
	if !errors.Is(err, ErrInvalidBet) {
		t.Fatalf("bad bet expected ErrInvalidBet, got %v", err)
	}
	_, err = svc.Settle(ctx, SettleInput{TxHash: validHash('6'), Player: testPlayer, BetKind: "number", BetValue: "37"})
	if !errors.Is(err, ErrInvalidBet) {
		t.Fatalf("out-of-range number expected ErrInvalidBet, got %v", err)
	}
}
