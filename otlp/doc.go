// Package otlp 把外部 instrumentation 上报的 OTLP/HTTP JSON 载荷
// （resourceSpans / resourceLogs / resourceMetrics）归一化为系统内部的
// Span / LogRecord / MetricPoint 记录。
//
// 归一化逐条独立进行：单条坏记录计入 rejected 并跳过，绝不中断整批；
// 顶层集合整体缺失是空操作成功而不是错误。线格式的类型化 KeyValue
// 在这里一次性展平为封闭变体（types.AttrMap），不再向系统内部传递。
package otlp
