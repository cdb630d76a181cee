package game

import (
	"testing"
)

func TestParseBet(t *testing.T) {
	cases := []struct {
		kind, value string
		ok          bool
	}{
		{"number", "0", true},
		{"number", "36", true},
		{"number", "17", true},
		{"number", "37", false},
		{"number", "-1", false},
		{"number", "abc", false},
		{"color", "red", true},
		{"color", "black", true},
		{"color", "green", true},
		{"color", "blue", false},
		{"color", "", false},
		{"evenodd", "even", true},
		{"evenodd", "odd", true},
		{"evenodd", "zero", false},
		{"split", "1-2", false},
		{"", "1", false},
	}
	for _, c := range cases {
		_, err := ParseBet(c.kind, c.value)
		if c.ok && err != nil {
			t.Fatalf("ParseBet(%q,%q) unexpected error: %v", c.kind, c.value, err)
		}
		if !c.ok && err == nil {
			t.Fatalf("ParseBet(%q,%q) expected error", c.kind, c.value)
		}
	}

	// 大小写与空白容错
	b, err := ParseBet(" Color ", " RED ")
	if err != nil {
		t.Fatalf("ParseBet trim/lower: %v", err)
	}
	if b.Kind != BetColor || b.Choice != ColorRed {
		t.Fatalf("ParseBet normalize got %+v", b)
	}
}

func TestColorOf(t *testing.T) {
	if ColorOf(0) != ColorGreen {
		t.Fatalf("0 should be green, got %s", ColorOf(0))
	}
	reds := []int{1, 3, 5, 7, 9, 12, 14, 16, 18, 19, 21, 23, 25, 27, 30, 32, 34, 36}
	seen := map[int]bool{}
	for _, n := range reds {
		if ColorOf(n) != ColorRed {
			t.Fatalf("%d should be red, got %s", n, ColorOf(n))
		}
		seen[n] = true
	}
	for n := 1; n <= 36; n++ {
		if !seen[n] && ColorOf(n) != ColorBlack {
			t.Fatalf("%d should be black, got %s", n, ColorOf(n))
		}
	}
}

func TestParityOf(t *testing.T) {
	if ParityOf(0) != "" {
		t.Fatalf("0 is neither even nor odd, got %q", ParityOf(0))
	}
	if ParityOf(2) != ParityEven || ParityOf(36) != ParityEven {
		t.Fatalf("even parity wrong")
	}
	if ParityOf(1) != ParityOdd || ParityOf(35) != ParityOdd {
		t.Fatalf("odd parity wrong")
	}
}

func TestResolve(t *testing.T) {
	// 单号直注
	won, odds := Resolve(Bet{Kind: BetNumber, Number: 7}, 7)
	if !won || odds != OddsNumber {
		t.Fatalf("number hit: won=%v odds=%d", won, odds)
	}
	won, _ = Resolve(Bet{Kind: BetNumber, Number: 7}, 8)
	if won {
		t.Fatalf("number miss should lose")
	}
	won, odds = Resolve(Bet{Kind: BetNumber, Number: 0}, 0)
	if !won || odds != OddsNumber {
		t.Fatalf("betting zero straight-up should win on zero")
	}

	// 红黑
	won, odds = Resolve(Bet{Kind: BetColor, Choice: ColorRed}, 1)
	if !won || odds != OddsColor {
		t.Fatalf("red on 1: won=%v odds=%d", won, odds)
	}
	won, _ = Resolve(Bet{Kind: BetColor, Choice: ColorBlack}, 1)
	if won {
		t.Fatalf("black on 1 should lose")
	}

	// 0 出现时红黑、单双均输，仅押绿中奖
	for _, b := range []Bet{
		{Kind: BetColor, Choice: ColorRed},
		{Kind: BetColor, Choice: ColorBlack},
		{Kind: BetEvenOdd, Choice: ParityEven},
		{Kind: BetEvenOdd, Choice: ParityOdd},
	} {
		if won, _ := Resolve(b, 0); won {
			t.Fatalf("%s should lose on zero", b.String())
		}
	}
	won, odds = Resolve(Bet{Kind: BetColor, Choice: ColorGreen}, 0)
	if !won || odds != OddsColor {
		t.Fatalf("green should win on zero: won=%v odds=%d", won, odds)
	}
	if won, _ := Resolve(Bet{Kind: BetColor, Choice: ColorGreen}, 1); won {
		t.Fatalf("green should lose on non-zero")
	}

	// 单双
	won, odds = Resolve(Bet{Kind: BetEvenOdd, Choice: ParityEven}, 18)
	if !won || odds != OddsEvenOdd {
		t.Fatalf("even on 18: won=%v odds=%d", won, odds)
	}
	won, _ = Resolve(Bet{Kind: BetEvenOdd, Choice: ParityOdd}, 18)
	if won {
		t.Fatalf("odd on 18 should lose")
	}
}

func TestBetString(t *testing.T) {
	if s := (Bet{Kind: BetNumber, Number: 7}).String(); s != "number:7" {
		t.Fatalf("got %s", s)
	}
	if s := (Bet{Kind: BetColor, Choice: ColorRed}).String(); s != "color:red" {
		t.Fatalf("got %s", s)
	}
}

func TestDefaultSpinRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		n, err := DefaultSpin()
		if err != nil {
			t.Fatalf("spin error: %v", err)
		}
		if n < 0 || n > 36 {
			t.Fatalf("spin out of range: %d", n)
		}
	}
}
