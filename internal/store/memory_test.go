package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"roulette-server/internal/game"

	"github.com/shopspring/decimal"
)

func testSettlement(txHash, player string, amount, delta int64, won bool) *Settlement {
	return &Settlement{
		TxHash:     txHash,
		Player:     player,
		Depositor:  "0xdepositor",
		Amount:     decimal.NewFromInt(amount),
		Bet:        game.Bet{Kind: game.BetColor, Choice: game.ColorRed},
		SpinResult: 1,
		Won:        won,
		Delta:      decimal.NewFromInt(delta),
		TraceID:    "trace-1",
	}
}

func txh(seed string) string {
	return "0x" + strings.Repeat(seed, 64/len(seed))
}

func TestApplySettlementWin(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	// 本金 100，红黑中奖 delta=+100，余额应为 200
	after, err := st.ApplySettlement(ctx, testSettlement(txh("a"), "p1", 100, 100, true))
	if err != nil {
		t.Fatalf("ApplySettlement: %v", err)
	}
	if after.String() != "200" {
		t.Fatalf("after got %s want 200", after.String())
	}

	bal, err := st.GetBalance(ctx, "p1")
	if err != nil || bal.String() != "200" {
		t.Fatalf("GetBalance got %s err %v", bal.String(), err)
	}

	// 账本应有两条：deposit 与 payout
	rows, err := st.ListLedger(ctx, "p1", 10)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ledger rows=%d err=%v", len(rows), err)
	}
}

func TestApplySettlementLoss(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	// 本金 100，未中 delta=-100，净变动为 0
	after, err := st.ApplySettlement(ctx, testSettlement(txh("b"), "p1", 100, -100, false))
	if err != nil {
		t.Fatalf("ApplySettlement: %v", err)
	}
	if !after.IsZero() {
		t.Fatalf("after got %s want 0", after.String())
	}
}

func TestApplySettlementDuplicateHash(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	h := txh("c")
	if _, err := st.ApplySettlement(ctx, testSettlement(h, "p1", 100, 100, true)); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	_, err := st.ApplySettlement(ctx, testSettlement(h, "p1", 100, 100, true))
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}

	// 重复未二次入账
	bal, _ := st.GetBalance(ctx, "p1")
	if bal.String() != "200" {
		t.Fatalf("balance mutated on duplicate: %s", bal.String())
	}

	ok, err := st.HasProcessed(ctx, h)
	if err != nil || !ok {
		t.Fatalf("HasProcessed=%v err=%v", ok, err)
	}
}

func TestApplySettlementConcurrentReplay(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()
	h := txh("d")

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.ApplySettlement(ctx, testSettlement(h, "p1", 100, 100, true))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var okCount, dupCount int
	for err := range errs {
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, ErrAlreadyProcessed):
			dupCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 || dupCount != 15 {
		t.Fatalf("ok=%d dup=%d, want 1/15", okCount, dupCount)
	}

	bal, _ := st.GetBalance(ctx, "p1")
	if bal.String() != "200" {
		t.Fatalf("balance after replay storm: %s", bal.String())
	}
}

func TestAdjustNonNegative(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	if _, err := st.ApplySettlement(ctx, testSettlement(txh("e"), "p1", 100, 100, true)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// 扣款至 50
	after, err := st.Adjust(ctx, "p1", decimal.NewFromInt(-150), "withdraw", "", "t")
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if after.String() != "50" {
		t.Fatalf("after got %s want 50", after.String())
	}

	// 超额扣款被拒绝，余额不变
	_, err = st.Adjust(ctx, "p1", decimal.NewFromInt(-51), "withdraw", "", "t")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	bal, _ := st.GetBalance(ctx, "p1")
	if bal.String() != "50" {
		t.Fatalf("balance mutated on rejected adjust: %s", bal.String())
	}

	// 扣到恰好 0 是允许的
	if _, err := st.Adjust(ctx, "p1", decimal.NewFromInt(-50), "withdraw", "", "t"); err != nil {
		t.Fatalf("adjust to zero: %v", err)
	}
}

func TestListTransactions(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	_, _ = st.ApplySettlement(ctx, testSettlement(txh("1"), "p1", 100, -100, false))
	_, _ = st.ApplySettlement(ctx, testSettlement(txh("2"), "p1", 200, -200, false))
	_, _ = st.ApplySettlement(ctx, testSettlement(txh("3"), "p2", 300, -300, false))

	list, err := st.ListTransactions(ctx, "p1", 10)
	if err != nil || len(list) != 2 {
		t.Fatalf("p1 txs=%d err=%v", len(list), err)
	}
	list, _ = st.ListTransactions(ctx, "p1", 1)
	if len(list) != 1 {
		t.Fatalf("limit not applied: %d", len(list))
	}
	list, _ = st.ListTransactions(ctx, "p3", 10)
	if len(list) != 0 {
		t.Fatalf("unknown player should be empty: %d", len(list))
	}
	// 空 player 返回全量快照
	list, _ = st.ListTransactions(ctx, "", 10)
	if len(list) != 3 {
		t.Fatalf("snapshot should contain all txs: %d", len(list))
	}
}
