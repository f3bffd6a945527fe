package types

// 统一的错误码，用于对齐 HTTP 状态与恢复策略。
// 只有存储错误允许作为硬失败向外部调用方传播；
// 上游协议错误、流式解析错误与 OTLP 记录错误都在本地恢复。
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "FLOW_INVALID_REQUEST" // 入站请求无法解析
	ErrUnauthorized   ErrorCode = "FLOW_UNAUTHORIZED"    // 上游拒绝凭证
	ErrRateLimited    ErrorCode = "FLOW_RATE_LIMITED"    // 上游限流
	ErrUpstreamError  ErrorCode = "FLOW_UPSTREAM_ERROR"  // 上游 5xx/网络错误
	ErrStorageFailure ErrorCode = "FLOW_STORAGE_FAILURE" // 记录写入失败
)

type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
}

func (e *Error) Error() string { return e.Message }
