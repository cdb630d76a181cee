package service

import (
	"context"
	"errors"
	"testing"

	"roulette-server/internal/ledger"
)

func TestTreasuryWithdraw(t *testing.T) {
	svc := NewTreasuryServiceWith(&fakeLedger{blockIndex: 7}, testCanister)

	idx, err := svc.Withdraw(context.Background(), TreasuryWithdrawInput{
		To: testPlayer, Amount: "500", TraceID: "t",
	})
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if idx != 7 {
		t.Fatalf("block index got %d", idx)
	}

	// 非法金额与空目标
	for _, a := range []string{"", "0", "-1", "1.5", "abc"} {
		if _, err := svc.Withdraw(context.Background(), TreasuryWithdrawInput{To: testPlayer, Amount: a}); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %q expected ErrInvalidAmount, got %v", a, err)
		}
	}
	if _, err := svc.Withdraw(context.Background(), TreasuryWithdrawInput{To: "", Amount: "1"}); !errors.Is(err, ErrInvalidPlayer) {
		t.Fatalf("empty target expected ErrInvalidPlayer, got %v", err)
	}

	// 账本失败透传
	bad := NewTreasuryServiceWith(&fakeLedger{withdrawErr: ledger.ErrTemporarilyUnavailable}, testCanister)
	if _, err := bad.Withdraw(context.Background(), TreasuryWithdrawInput{To: testPlayer, Amount: "1"}); !errors.Is(err, ledger.ErrTemporarilyUnavailable) {
		t.Fatalf("expected ErrTemporarilyUnavailable, got %v", err)
	}
}
