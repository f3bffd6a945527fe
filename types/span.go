package types

// SpanKind 标识一次被记录操作的类别。
// 取值是一个封闭集合：代理记录的调用固定为 llm，
// OTLP 归一化根据属性与名称启发式分类，无法识别时回退 custom。
type SpanKind string

const (
	SpanKindTrace     SpanKind = "trace"
	SpanKindLLM       SpanKind = "llm"
	SpanKindAgent     SpanKind = "agent"
	SpanKindChain     SpanKind = "chain"
	SpanKindTool      SpanKind = "tool"
	SpanKindRetrieval SpanKind = "retrieval"
	SpanKindEmbedding SpanKind = "embedding"
	SpanKindCustom    SpanKind = "custom"
)

// Valid 返回 kind 是否属于封闭集合。
func (k SpanKind) Valid() bool {
	switch k {
	case SpanKindTrace, SpanKindLLM, SpanKindAgent, SpanKindChain,
		SpanKindTool, SpanKindRetrieval, SpanKindEmbedding, SpanKindCustom:
		return true
	}
	return false
}

// Span 是一次被记录的操作：一次 LLM 调用或外部上报的子步骤。
// SpanID 由上游或客户端指定；TraceID 不允许为空（缺省时取 SpanID 本身）。
// ParentID 为空表示根 span；非空时不要求指向已存储的 span，
// 树重建允许悬空父节点。
//
// 属性、标签与请求/响应快照按序列化文本存储，
// 以容纳任意 provider / instrumentation 的形状。
type Span struct {
	RowID            uint     `json:"-" gorm:"primaryKey;autoIncrement"`
	SpanID           string   `json:"span_id" gorm:"index;size:64"`
	TraceID          string   `json:"trace_id" gorm:"index;size:64;not null"`
	ParentID         *string  `json:"parent_id" gorm:"index;size:64"`
	StartTime        int64    `json:"start_time" gorm:"index"` // epoch ms
	Duration         int64    `json:"duration"`                // ms
	Kind             SpanKind `json:"kind" gorm:"index;size:16"`
	Name             string   `json:"name"`
	Provider         string   `json:"provider" gorm:"index;size:32"`
	Model            string   `json:"model" gorm:"index;size:64"`
	PromptTokens     int      `json:"prompt_tokens"`
	CompletionTokens int      `json:"completion_tokens"`
	TotalTokens      int      `json:"total_tokens"`
	Cost             float64  `json:"cost"`
	StatusCode       int      `json:"status_code"`
	Error            string   `json:"error,omitempty"`
	Request          string   `json:"request,omitempty"`    // 请求快照（序列化）
	Response         string   `json:"response,omitempty"`   // 响应快照（序列化）
	Tags             string   `json:"tags,omitempty"`       // JSON 数组
	Attributes       string   `json:"attributes,omitempty"` // JSON 对象
	Input            string   `json:"input,omitempty"`
	Output           string   `json:"output,omitempty"`
	ServiceName      string   `json:"service_name" gorm:"index;size:128"`
}

// TableName 指定 GORM 表名。
func (Span) TableName() string { return "spans" }

// Root 返回该 span 是否为根（无父节点）。
func (s *Span) Root() bool { return s.ParentID == nil || *s.ParentID == "" }
