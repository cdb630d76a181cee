package chain

import (
	"errors"
	"strings"
	"testing"
)

const testMinter = "0xb44b5e756a894775fc32eddf3314bb1b1944dc34"

var testDeposit = "0x0104" + strings.Repeat("0", 60)

func goodReceipt() *Receipt {
	return &Receipt{
		Status: "0x1",
		From:   "0xAbCd000000000000000000000000000000000001",
		To:     testMinter,
		TxHash: "0x" + strings.Repeat("ab", 32),
		Logs: []Log{
			{
				Address: testMinter,
				// 存款地址固定在第三个 indexed topic
				Topics: []string{"0x" + strings.Repeat("00", 32), "0x" + strings.Repeat("11", 32), testDeposit},
				Data:   "0x0de0b6b3a7640000", // 1e18
			},
		},
	}
}

func TestVerifyHappyPath(t *testing.T) {
	dep, err := Verify(goodReceipt(), testMinter, testDeposit)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if dep.Amount.String() != "1000000000000000000" {
		t.Fatalf("amount got %s", dep.Amount.String())
	}
	if dep.From != "0xabcd000000000000000000000000000000000001" {
		t.Fatalf("from not lowercased: %s", dep.From)
	}
}

func TestVerifyStatusVariants(t *testing.T) {
	r := goodReceipt()
	r.Status = "0x01"
	if _, err := Verify(r, testMinter, testDeposit); err != nil {
		t.Fatalf("0x01 should be success: %v", err)
	}
	for _, s := range []string{"0x0", "0x00", "", "failed"} {
		r := goodReceipt()
		r.Status = s
		if _, err := Verify(r, testMinter, testDeposit); !errors.Is(err, ErrTransactionFailed) {
			t.Fatalf("status %q expected ErrTransactionFailed, got %v", s, err)
		}
	}
}

func TestVerifyWrongRecipient(t *testing.T) {
	r := goodReceipt()
	r.To = "0x0000000000000000000000000000000000000bad"
	if _, err := Verify(r, testMinter, testDeposit); !errors.Is(err, ErrWrongRecipient) {
		t.Fatalf("expected ErrWrongRecipient, got %v", err)
	}
}

func TestVerifyRecipientCaseInsensitive(t *testing.T) {
	r := goodReceipt()
	r.To = strings.ToUpper(testMinter)
	r.Logs[0].Address = "0xB44B5E756A894775FC32EDDF3314BB1B1944DC34"
	if _, err := Verify(r, testMinter, testDeposit); err != nil {
		t.Fatalf("case-insensitive match failed: %v", err)
	}
}

func TestVerifyPrincipalNotFound(t *testing.T) {
	// 第三个 topic 不是本服务的存款地址
	r := goodReceipt()
	r.Logs[0].Topics[2] = "0x" + strings.Repeat("ff", 32)
	if _, err := Verify(r, testMinter, testDeposit); !errors.Is(err, ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound, got %v", err)
	}

	// 存款地址出现在其他 topic 位置不作数
	r = goodReceipt()
	r.Logs[0].Topics = []string{testDeposit, "0x" + strings.Repeat("11", 32), "0x" + strings.Repeat("ff", 32)}
	if _, err := Verify(r, testMinter, testDeposit); !errors.Is(err, ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound for wrong topic index, got %v", err)
	}

	// topic 不足三个
	r = goodReceipt()
	r.Logs[0].Topics = []string{"0x" + strings.Repeat("00", 32), testDeposit}
	if _, err := Verify(r, testMinter, testDeposit); !errors.Is(err, ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound for short topics, got %v", err)
	}

	// 日志来源不是铸币账户则忽略该条日志
	r = goodReceipt()
	r.Logs[0].Address = "0x0000000000000000000000000000000000000bad"
	if _, err := Verify(r, testMinter, testDeposit); !errors.Is(err, ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound for foreign log, got %v", err)
	}

	// 没有任何日志
	r = goodReceipt()
	r.Logs = nil
	if _, err := Verify(r, testMinter, testDeposit); !errors.Is(err, ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound for empty logs, got %v", err)
	}
}

func TestVerifyAmountParse(t *testing.T) {
	for _, data := range []string{"", "0x", "0xzzzz"} {
		r := goodReceipt()
		r.Logs[0].Data = data
		if _, err := Verify(r, testMinter, testDeposit); !errors.Is(err, ErrAmountParse) {
			t.Fatalf("data %q expected ErrAmountParse, got %v", data, err)
		}
	}

	// 零金额是合法的十六进制，由上层判定是否可入账
	r := goodReceipt()
	r.Logs[0].Data = "0x00"
	dep, err := Verify(r, testMinter, testDeposit)
	if err != nil {
		t.Fatalf("zero amount should parse: %v", err)
	}
	if !dep.Amount.IsZero() {
		t.Fatalf("expected zero, got %s", dep.Amount.String())
	}
}
