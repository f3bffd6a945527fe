package types

// LogRecord 是一条外部上报的日志记录。
// 与 Span 仅通过 TraceID/SpanID 松散关联，不做引用完整性约束。
// 插入后不可变。
type LogRecord struct {
	RowID             uint   `json:"-" gorm:"primaryKey;autoIncrement"`
	Timestamp         int64  `json:"timestamp" gorm:"index"`  // epoch ms
	ObservedTimestamp int64  `json:"observed_timestamp"`      // epoch ms
	SeverityNumber    int    `json:"severity_number" gorm:"index"`
	SeverityText      string `json:"severity_text" gorm:"size:16"`
	Body              string `json:"body"` // 字符串或结构化序列化结果
	TraceID           string `json:"trace_id,omitempty" gorm:"index;size:64"`
	SpanID            string `json:"span_id,omitempty" gorm:"size:64"`
	EventName         string `json:"event_name,omitempty" gorm:"index;size:128"`
	ServiceName       string `json:"service_name" gorm:"index;size:128"`
	ScopeName         string `json:"scope_name,omitempty" gorm:"size:128"`
	Attributes        string `json:"attributes,omitempty"`          // JSON 对象
	ResourceAttrs     string `json:"resource_attributes,omitempty"` // JSON 对象
}

// TableName 指定 GORM 表名。
func (LogRecord) TableName() string { return "log_records" }
