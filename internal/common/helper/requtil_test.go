package helper

import (
	"strings"
	"testing"
)

func TestIsTxHashFormat(t *testing.T) {
	ok := []string{
		"0x" + strings.Repeat("a", 64),
		"0x" + strings.Repeat("A", 64),
		"  0x" + strings.Repeat("0", 64) + "  ",
	}
	for _, s := range ok {
		if !IsTxHashFormat(s) {
			t.Fatalf("should accept %q", s)
		}
	}
	bad := []string{
		"",
		"0x",
		"0x123",
		strings.Repeat("a", 66),
		"0x" + strings.Repeat("g", 64),
		"0x" + strings.Repeat("a", 63),
		"0x" + strings.Repeat("a", 65),
	}
	for _, s := range bad {
		if IsTxHashFormat(s) {
			t.Fatalf("should reject %q", s)
		}
	}
}

func TestIsWeiFormat(t *testing.T) {
	for _, s := range []string{"0", "1", "100", "1000000000000000000"} {
		if !IsWeiFormat(s) {
			t.Fatalf("should accept %q", s)
		}
	}
	for _, s := range []string{"", "01", "-1", "1.5", "1e18", "abc", "+1"} {
		if IsWeiFormat(s) {
			t.Fatalf("should reject %q", s)
		}
	}
}

func TestIsPrincipalFormat(t *testing.T) {
	for _, s := range []string{"2vxsx-fae", "apia6-jaaaa-aaaar-qabma-cai", "aaaaa"} {
		if !IsPrincipalFormat(s) {
			t.Fatalf("should accept %q", s)
		}
	}
	for _, s := range []string{"", "-abc", "abc-", "abcdef", "aaa--bbb", "aaa_bbb", "has space"} {
		if IsPrincipalFormat(s) {
			t.Fatalf("should reject %q", s)
		}
	}
}

func TestIsEthAddressFormat(t *testing.T) {
	if !IsEthAddressFormat("0xb44b5e756a894775fc32eddf3314bb1b1944dc34") {
		t.Fatalf("should accept canonical address")
	}
	for _, s := range []string{"", "0x123", "b44b5e756a894775fc32eddf3314bb1b1944dc34", "0x" + strings.Repeat("z", 40)} {
		if IsEthAddressFormat(s) {
			t.Fatalf("should reject %q", s)
		}
	}
}

func TestValidateSettle(t *testing.T) {
	player := "0x" + strings.Repeat("a1", 20)
	good := SettleParsed{
		TxHash:   "0x" + strings.Repeat("a", 64),
		Player:   player,
		BetKind:  "Color",
		BetValue: "GREEN",
	}
	if ok, msg := ValidateSettle(&good); !ok {
		t.Fatalf("should pass: %s", msg)
	}
	// 校验时统一小写
	if good.BetKind != "color" || good.BetValue != "green" {
		t.Fatalf("not normalized: %+v", good)
	}

	cases := []SettleParsed{
		{},
		{TxHash: "bad", Player: player, BetKind: "color", BetValue: "red"},
		{TxHash: "0x" + strings.Repeat("a", 64), Player: "2vxsx-fae", BetKind: "color", BetValue: "red"},
		{TxHash: "0x" + strings.Repeat("a", 64), Player: "not valid!", BetKind: "color", BetValue: "red"},
		{TxHash: "0x" + strings.Repeat("a", 64), Player: player, BetKind: "split", BetValue: "1"},
		{TxHash: "0x" + strings.Repeat("a", 64), Player: "0x" + strings.Repeat("a", 70), BetKind: "color", BetValue: "red"},
	}
	for i, c := range cases {
		if ok, _ := ValidateSettle(&c); ok {
			t.Fatalf("case %d should fail: %+v", i, c)
		}
	}
}

func TestValidateWithdraw(t *testing.T) {
	player := "0x" + strings.Repeat("a1", 20)
	good := WithdrawParsed{
		Player:    player,
		Recipient: "0xb44b5e756a894775fc32eddf3314bb1b1944dc34",
		Amount:    "100",
	}
	if ok, msg := ValidateWithdraw(&good); !ok {
		t.Fatalf("should pass: %s", msg)
	}

	cases := []WithdrawParsed{
		{},
		{Player: player, Recipient: "nope", Amount: "100"},
		{Player: player, Recipient: good.Recipient, Amount: "1.5"},
		{Player: player, Recipient: good.Recipient, Amount: strings.Repeat("9", 33)},
		{Player: "2vxsx-fae", Recipient: good.Recipient, Amount: "100"},
		{Player: "bad!!", Recipient: good.Recipient, Amount: "100"},
	}
	for i, c := range cases {
		if ok, _ := ValidateWithdraw(&c); ok {
			t.Fatalf("case %d should fail: %+v", i, c)
		}
	}
}

func TestValidateTreasuryOp(t *testing.T) {
	to := TreasuryOpParsed{To: "apia6-jaaaa-aaaar-qabma-cai", Amount: "100"}
	if ok, msg := ValidateTreasuryOp(&to); !ok {
		t.Fatalf("transfer target should pass: %s", msg)
	}
	sp := TreasuryOpParsed{Spender: "jzenf-aiaaa-aaaar-qaa7q-cai", Amount: "100"}
	if ok, msg := ValidateTreasuryOp(&sp); !ok {
		t.Fatalf("approve target should pass: %s", msg)
	}

	cases := []TreasuryOpParsed{
		{},
		{To: "apia6-jaaaa-aaaar-qabma-cai"},
		{To: "bad!!", Amount: "100"},
		{To: "apia6-jaaaa-aaaar-qabma-cai", Amount: "-1"},
	}
	for i, c := range cases {
		if ok, _ := ValidateTreasuryOp(&c); ok {
			t.Fatalf("case %d should fail: %+v", i, c)
		}
	}
}

func TestValidateTreasuryWithdraw(t *testing.T) {
	good := TreasuryWithdrawParsed{
		To:     "0xb44b5e756a894775fc32eddf3314bb1b1944dc34",
		Amount: "100",
	}
	if ok, msg := ValidateTreasuryWithdraw(&good); !ok {
		t.Fatalf("should pass: %s", msg)
	}

	cases := []TreasuryWithdrawParsed{
		{},
		{To: good.To},
		{To: "apia6-jaaaa-aaaar-qabma-cai", Amount: "100"},
		{To: good.To, Amount: "1.5"},
		{To: good.To, Amount: strings.Repeat("9", 33)},
	}
	for i, c := range cases {
		if ok, _ := ValidateTreasuryWithdraw(&c); ok {
			t.Fatalf("case %d should fail: %+v", i, c)
		}
	}
}

func TestIsJSONContentType(t *testing.T) {
	for _, ct := range []string{"application/json", "application/json; charset=utf-8", "APPLICATION/JSON"} {
		if !IsJSONContentType(ct) {
			t.Fatalf("should accept %q", ct)
		}
	}
	for _, ct := range []string{"", "text/plain", "application/x-www-form-urlencoded"} {
		if IsJSONContentType(ct) {
			t.Fatalf("should reject %q", ct)
		}
	}
}
