/*
包 server 提供 HTTP 服务器生命周期管理：非阻塞启动、优雅关闭
与系统信号监听。

Manager 封装 net/http.Server，统一监听、服务、关闭与错误传播。
内置 SIGINT/SIGTERM 处理，收到信号后在配置的超时内完成请求排空。
*/
package server
