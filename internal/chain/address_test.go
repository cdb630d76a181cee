package chain

import (
	"errors"
	"strings"
	"testing"
)

func TestDepositAddressAnonymousPrincipal(t *testing.T) {
	// 匿名 principal，payload 为单字节 0x04
	addr, err := DepositAddress("2vxsx-fae")
	if err != nil {
		t.Fatalf("DepositAddress: %v", err)
	}
	want := "0x0104" + strings.Repeat("0", 60)
	if addr != want {
		t.Fatalf("got %s want %s", addr, want)
	}
}

func TestDepositAddressFormat(t *testing.T) {
	addr, err := DepositAddress("apia6-jaaaa-aaaar-qabma-cai")
	if err != nil {
		t.Fatalf("DepositAddress: %v", err)
	}
	if !strings.HasPrefix(addr, "0x") || len(addr) != 66 {
		t.Fatalf("malformed bytes32: %s", addr)
	}
	// 首字节是 payload 长度：canister principal 为 10 字节
	if addr[2:4] != "0a" {
		t.Fatalf("length prefix wrong: %s", addr[2:4])
	}
}

func TestDepositAddressCaseAndWhitespace(t *testing.T) {
	a, err := DepositAddress("2vxsx-fae")
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	b, err := DepositAddress("  2VXSX-FAE  ")
	if err != nil {
		t.Fatalf("upper+space: %v", err)
	}
	if a != b {
		t.Fatalf("case normalization broken: %s != %s", a, b)
	}
}

func TestDepositAddressInvalid(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"!!!!",
		"aaaa",              // 太短，不足 crc+payload
		"2vxsx-faf",         // 尾字符篡改，校验和不匹配
		"2vxsx-fae-2vxsx-fae-2vxsx-fae-2vxsx-fae-2vxsx-fae-2vxsx-fae-2vxsx-fae", // 超长
	}
	for _, c := range cases {
		if _, err := DepositAddress(c); err == nil {
			t.Fatalf("expected error for %q", c)
		} else if !errors.Is(err, ErrInvalidPrincipal) {
			t.Fatalf("expected ErrInvalidPrincipal for %q, got %v", c, err)
		}
	}
}
