// llmflow 是本地 LLM 可观测入口：同一个进程既做转发-记录代理，
// 也接收 OTLP/HTTP JSON 导出，并提供查询 API 与实时推送。
package main
