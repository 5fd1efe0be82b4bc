package markup

import (
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultGrowthThreshold 默认的增长阈值（字符数）
// 提取结果相对上次提交至少增长这么多才触发新的提交
// 阈值过小会导致预览端频繁整页重建，过大则预览明显滞后
const DefaultGrowthThreshold = 500

// Throttler 按增长量节流的提交判定器
// 流式过程中每收到一段增量都会产生一个新的提取快照，
// Throttler 决定哪些快照值得推给预览端
type Throttler struct {
	growthThreshold int // 触发提交所需的最小增长量
	lastPushedLen   int // 上次提交的快照长度
}

// NewThrottler 创建 Throttler 实例
// 参数:
//   - growthThreshold: 增长阈值，<= 0 时使用默认值
//
// 返回:
//   - *Throttler: 节流器实例
func NewThrottler(growthThreshold int) *Throttler {
	if growthThreshold <= 0 {
		growthThreshold = DefaultGrowthThreshold
	}
	return &Throttler{growthThreshold: growthThreshold}
}

// Offer 判断中间快照是否应该提交
// 只有非空且相对上次提交增长达到阈值的快照才提交
// 参数:
//   - extracted: 当前的提取快照
//
// 返回:
//   - bool: 是否应该提交
func (t *Throttler) Offer(extracted string) bool {
	if extracted == "" {
		return false
	}
	if len(extracted)-t.lastPushedLen < t.growthThreshold {
		return false
	}
	t.lastPushedLen = len(extracted)
	return true
}

// Flush 流结束时的最终提交判定
// 不看增长量，只要快照非空就提交，保证预览端
// 最终一定能看到完整的生成结果
// 参数:
//   - extracted: 最终的提取快照
//
// 返回:
//   - bool: 是否应该提交（快照为空时为 false）
func (t *Throttler) Flush(extracted string) bool {
	if extracted == "" {
		return false
	}
	t.lastPushedLen = len(extracted)
	return true
}

// Reset 重置节流状态
// 新的生成会话开始时调用
func (t *Throttler) Reset() {
	t.lastPushedLen = 0
}

// Accumulator 一次生成会话的流式缓冲区
// 累积模型输出的原始增量，维护提取与节流状态
// Append 只会被会话所在的单个 goroutine 调用，
// 但 Abandon 可能来自发起重启的其他 goroutine
type Accumulator struct {
	mu        sync.Mutex
	raw       strings.Builder // 原始输出缓冲区
	throttler *Throttler
	abandoned atomic.Bool // 会话是否已被新会话取代
}

// NewAccumulator 创建 Accumulator 实例
// 参数:
//   - growthThreshold: 增长阈值，<= 0 时使用默认值
//
// 返回:
//   - *Accumulator: 缓冲区实例
func NewAccumulator(growthThreshold int) *Accumulator {
	return &Accumulator{throttler: NewThrottler(growthThreshold)}
}

// Append 追加一段原始增量并返回最新的提取快照
// 参数:
//   - delta: 模型输出的文本增量
//
// 返回:
//   - string: 追加后的提取快照
//   - bool: 该快照是否达到了提交条件
func (a *Accumulator) Append(delta string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.raw.WriteString(delta)
	extracted := ExtractHTML(a.raw.String())
	return extracted, a.throttler.Offer(extracted)
}

// Finalize 流结束时取最终快照
// 返回:
//   - string: 最终的提取快照
//   - bool: 是否应该提交（快照为空时为 false）
func (a *Accumulator) Finalize() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	extracted := ExtractHTML(a.raw.String())
	return extracted, a.throttler.Flush(extracted)
}

// Raw 返回当前的原始缓冲区内容
func (a *Accumulator) Raw() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.raw.String()
}

// Fenced 原始输出中是否出现过 HTML 围栏
// 无围栏的提取结果只用于实时预览，不作为完整页面持久化
func (a *Accumulator) Fenced() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.Contains(a.raw.String(), htmlFence)
}

// Abandon 标记会话已被取代
// 用户在生成过程中发起新请求时，旧会话被标记后
// 其后续增量一律丢弃，不再产生任何提交
func (a *Accumulator) Abandon() {
	a.abandoned.Store(true)
}

// Abandoned 检查会话是否已被取代
func (a *Accumulator) Abandoned() bool {
	return a.abandoned.Load()
}
