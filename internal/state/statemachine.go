package state

import "fmt"

// State 结算流程状态
const (
	StateCreated   = "created"   // 请求已受理
	StateDeduped   = "deduped"   // 幂等检查通过（哈希未结算过）
	StateVerified  = "verified"  // 回执核验通过
	StateResolved  = "resolved"  // 转盘结果与押注判定完成
	StateCommitted = "committed" // 账务已落库
	StateRejected  = "rejected"  // 终态拒绝（回执不符/重复哈希/余额不足）
	StateDeferred  = "deferred"  // 可重试（回执暂不可得）
)

// Event 结算事件
const (
	EvtDedupOK     = "dedup_ok"
	EvtDuplicate   = "duplicate"
	EvtVerifyOK    = "verify_ok"
	EvtVerifyFail  = "verify_fail"
	EvtUnavailable = "unavailable"
	EvtResolve     = "resolve"
	EvtCommitOK    = "commit_ok"
	EvtCommitFail  = "commit_fail"
)

// NextState 根据当前状态与事件计算下一个状态，非法转换报错
func NextState(cur, evt string) (string, error) {
	switch cur {
	case StateCreated:
		switch evt {
		case EvtDedupOK:
			return StateDeduped, nil
		case EvtDuplicate:
			return StateRejected, nil
		}
	case StateDeduped:
		switch evt {
		case EvtVerifyOK:
			return StateVerified, nil
		case EvtVerifyFail:
			return StateRejected, nil
		case EvtUnavailable:
			return StateDeferred, nil
		}
	case StateVerified:
		if evt == EvtResolve {
			return StateResolved, nil
		}
	case StateResolved:
		switch evt {
		case EvtCommitOK:
			return StateCommitted, nil
		case EvtCommitFail:
			return StateRejected, nil
		case EvtDuplicate:
			return StateRejected, nil
		}
	}
	return cur, fmt.Errorf("invalid transition: %s --%s--> ?", cur, evt)
}
