// Package handlers 实现 HTTP API 处理器：OTLP 摄入、遥测查询、
// 聚合统计与健康检查。
package handlers
