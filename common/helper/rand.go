package helper

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
)

// GenerateRandNum 返回 [min, max) 的随机整数
// 仅用于退避抖动等非安全场景，开奖随机数走 crypto/rand
func GenerateRandNum(min, max int) int {
	if max <= min {
		return min
	}
	rngMu.Lock()
	defer rngMu.Unlock()

	return min + rng.Intn(max-min)
}
