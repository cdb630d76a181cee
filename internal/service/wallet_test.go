package service

import (
	"context"
	"errors"
	"testing"

	"roulette-server/internal/ledger"
	"roulette-server/internal/store"

	"github.com/shopspring/decimal"
)

// fakeLedger 可控失败的账本客户端
type fakeLedger struct {
	withdrawErr error
	blockIndex  uint64
}

func (f *fakeLedger) BalanceOf(ctx context.Context, owner string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (f *fakeLedger) Transfer(ctx context.Context, to string, amount decimal.Decimal) (uint64, error) {
	return f.blockIndex, f.withdrawErr
}

func (f *fakeLedger) Approve(ctx context.Context, spender string, amount decimal.Decimal) (uint64, error) {
	return f.blockIndex, f.withdrawErr
}

func (f *fakeLedger) Withdraw(ctx context.Context, to string, amount decimal.Decimal) (uint64, error) {
	if f.withdrawErr != nil {
		return 0, f.withdrawErr
	}
	return f.blockIndex, nil
}

func seedBalance(t *testing.T, st store.Store, player string, amount int64) {
	t.Helper()
	if _, err := st.Adjust(context.Background(), player, decimal.NewFromInt(amount), "adjust", "seed", "t"); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
}

func TestWithdrawSuccess(t *testing.T) {
	st := store.NewMemory()
	seedBalance(t, st, testPlayer, 1000)
	svc := NewWalletServiceWith(st, &fakeLedger{blockIndex: 42}, testCanister)

	out, err := svc.Withdraw(context.Background(), WithdrawInput{
		Player: testPlayer, Recipient: "0xrecipient", Amount: "400", TraceID: "t",
	})
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if out.BlockIndex != 42 || out.NewBalance != "600" {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	st := store.NewMemory()
	seedBalance(t, st, testPlayer, 100)
	svc := NewWalletServiceWith(st, &fakeLedger{}, testCanister)

	_, err := svc.Withdraw(context.Background(), WithdrawInput{
		Player: testPlayer, Recipient: "0xr", Amount: "101",
	})
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	bal, _ := svc.GetBalance(context.Background(), testPlayer)
	if bal != "100" {
		t.Fatalf("balance mutated on rejected withdraw: %s", bal)
	}
}

func TestWithdrawLedgerFailureCompensates(t *testing.T) {
	st := store.NewMemory()
	seedBalance(t, st, testPlayer, 1000)
	svc := NewWalletServiceWith(st, &fakeLedger{withdrawErr: ledger.ErrTemporarilyUnavailable}, testCanister)

	_, err := svc.Withdraw(context.Background(), WithdrawInput{
		Player: testPlayer, Recipient: "0xr", Amount: "400",
	})
	if !errors.Is(err, ledger.ErrTemporarilyUnavailable) {
		t.Fatalf("expected ledger error, got %v", err)
	}

	// 出金失败后扣款被补偿，余额回到原值
	bal, _ := svc.GetBalance(context.Background(), testPlayer)
	if bal != "1000" {
		t.Fatalf("compensation missing, balance=%s", bal)
	}

	// 账本留痕：扣款 + 退款两条流水
	rows, err := svc.ListLedger(context.Background(), testPlayer, 10)
	if err != nil {
		t.Fatalf("ListLedger: %v", err)
	}
	if len(rows) != 3 { // seed + withdraw + refund
		t.Fatalf("ledger rows=%d want 3", len(rows))
	}
}

func TestWithdrawInvalidAmount(t *testing.T) {
	st := store.NewMemory()
	seedBalance(t, st, testPlayer, 1000)
	svc := NewWalletServiceWith(st, &fakeLedger{}, testCanister)

	for _, a := range []string{"", "0", "-5", "1.5", "abc"} {
		_, err := svc.Withdraw(context.Background(), WithdrawInput{
			Player: testPlayer, Recipient: "0xr", Amount: a,
		})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %q expected ErrInvalidAmount, got %v", a, err)
		}
	}

	_, err := svc.Withdraw(context.Background(), WithdrawInput{Player: "", Recipient: "0xr", Amount: "1"})
	if !errors.Is(err, ErrInvalidPlayer) {
		t.Fatalf("empty player expected ErrInvalidPlayer, got %v", err)
	}
}

func TestDepositAddressService(t *testing.T) {
	svc := NewWalletServiceWith(store.NewMemory(), &fakeLedger{}, testCanister)

	// 地址由本服务 principal 派生，与玩家无关
	addr, err := svc.DepositAddress(context.Background())
	if err != nil {
		t.Fatalf("DepositAddress: %v", err)
	}
	if addr != testDepositAddr {
		t.Fatalf("unexpected address: %s", addr)
	}

	// canister principal 配置异常时报错
	bad := NewWalletServiceWith(store.NewMemory(), &fakeLedger{}, "nope!")
	if _, err := bad.DepositAddress(context.Background()); err == nil {
		t.Fatalf("expected error for bad canister principal")
	}
}
