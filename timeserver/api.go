// Package timeserver 中断驱动的时间服务. 一个协程独占时间管理器,
// 所有客户端调用都被投递到这个协程中执行.
package timeserver

import "github.com/pingcap/errors"

// Task 投递到服务协程执行的任务
type Task func()

// TimerFunc 定时器回调, 在服务协程中执行
type TimerFunc func()

// ServerState 服务状态常量
type ServerState = int32

const (
	// StateCreated 已创建, 但未启动
	StateCreated ServerState = 0
	// StateRunning 正在运行
	StateRunning ServerState = 1
	// StateClosed 已关闭
	StateClosed ServerState = 2
)

// Errors that could be occurred during time server operations.
var (
	ErrServerNotStarted = errors.New("time server not started")
	ErrServerClosed     = errors.New("time server closed")
	ErrClientClosed     = errors.New("time client closed")
)
