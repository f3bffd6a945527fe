package otlp

import (
	"go.uber.org/zap"

	"github.com/HelgeSverre/llmflow-sub000/pricing"
	"github.com/HelgeSverre/llmflow-sub000/types"
)

// maxErrors 限制一次摄入汇总里携带的错误条数。
const maxErrors = 10

// Normalizer 把 OTLP 载荷归一化为内部记录。
// 价格表按构造注入，归一化本身无共享可变状态，可并发调用。
type Normalizer struct {
	pricing *pricing.Calculator
	logger  *zap.Logger
}

// NewNormalizer 创建归一化器。
func NewNormalizer(calc *pricing.Calculator, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{pricing: calc, logger: logger}
}

// reject 记录一条被拒绝的记录，错误消息超过上限后只计数。
func reject(summary *types.IngestSummary, msg string) {
	summary.Rejected++
	if len(summary.Errors) < maxErrors {
		summary.Errors = append(summary.Errors, msg)
	}
}
