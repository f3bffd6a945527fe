package types

// MetricType 是指标点的类别封闭集合。
type MetricType string

const (
	MetricTypeSum       MetricType = "sum"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// MetricPoint 是一个归一化后的指标数据点。
// ValueInt / ValueDouble 按上游上报的表示二选一填充；
// histogram 类型的桶数据整体序列化进 Histogram 字段。
type MetricPoint struct {
	RowID         uint       `json:"-" gorm:"primaryKey;autoIncrement"`
	Timestamp     int64      `json:"timestamp" gorm:"index"` // epoch ms
	Name          string     `json:"name" gorm:"index;size:255"`
	Description   string     `json:"description,omitempty"`
	Unit          string     `json:"unit,omitempty" gorm:"size:32"`
	Type          MetricType `json:"type" gorm:"index;size:16"`
	ValueInt      *int64     `json:"value_int,omitempty"`
	ValueDouble   *float64   `json:"value_double,omitempty"`
	Histogram     string     `json:"histogram,omitempty"` // HistogramData 的 JSON
	ServiceName   string     `json:"service_name" gorm:"index;size:128"`
	ScopeName     string     `json:"scope_name,omitempty" gorm:"size:128"`
	Attributes    string     `json:"attributes,omitempty"`          // JSON 对象
	ResourceAttrs string     `json:"resource_attributes,omitempty"` // JSON 对象
}

// TableName 指定 GORM 表名。
func (MetricPoint) TableName() string { return "metric_points" }

// HistogramData 是 histogram 指标点的桶载荷，按 JSON 存入 MetricPoint.Histogram。
type HistogramData struct {
	Bounds []float64 `json:"bounds,omitempty"`
	Counts []uint64  `json:"counts,omitempty"`
	Count  uint64    `json:"count"`
	Sum    float64   `json:"sum"`
	Min    *float64  `json:"min,omitempty"`
	Max    *float64  `json:"max,omitempty"`
}
