// Package api 定义 HTTP API 的公共请求/响应形状。
package api
