package timeserver

import (
	"sync/atomic"

	"github.com/bwmarrin/snowflake"
	"github.com/lonng/platsupport/internal/env"
	"github.com/lonng/platsupport/internal/log"
	"github.com/lonng/platsupport/timer/timemanager"
	"github.com/lonng/platsupport/timer/timerapi"
	"github.com/pingcap/errors"
	"github.com/timandy/routine"
)

// Server 时间服务
type Server struct {
	name    string                // 服务名称
	state   atomic.Int32          // 服务状态
	goid    atomic.Uint64         // 服务协程的 ID
	chDie   chan struct{}         // 关闭信号通道
	chDone  chan struct{}         // 服务协程已退出
	chTasks chan Task             // 任务队列
	chIRQ   chan struct{}         // 合并后的中断信号
	lt      timerapi.LogicalTimer // 逻辑定时器, 由服务协程关闭
	tm      *timemanager.Manager  // 只能在服务协程中访问
	node    *snowflake.Node       // 生成客户端 ID
	clients map[int64]*Client     // 只能在服务协程中访问
}

// NewServer 构造一个新的时间服务, 需要调用 Start() 方法来启动.
// 服务持有 lt, 关闭时一并销毁.
func NewServer(name string, lt timerapi.LogicalTimer, opts ...Option) (*Server, error) {
	if lt == nil {
		return nil, errors.Annotate(timerapi.ErrInvalidArgument, "nil logical timer")
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.Backlog <= 0 {
		return nil, errors.Annotatef(timerapi.ErrInvalidArgument, "backlog %d", o.Backlog)
	}
	tm, err := timemanager.New(lt, o.Capacity, o.Manager...)
	if err != nil {
		return nil, err
	}
	node, err := snowflake.NewNode(o.NodeID)
	if err != nil {
		return nil, errors.Annotatef(timerapi.ErrInvalidArgument, "snowflake node %d: %v", o.NodeID, err)
	}
	return &Server{
		name:    name,
		chDie:   make(chan struct{}),
		chDone:  make(chan struct{}),
		chTasks: make(chan Task, o.Backlog),
		chIRQ:   make(chan struct{}, 1),
		lt:      lt,
		tm:      tm,
		node:    node,
		clients: make(map[int64]*Client),
	}, nil
}

// Name 服务名称
func (s *Server) Name() string {
	return s.name
}

// runTask 执行一个任务, 捕获 panic
func (s *Server) runTask(task Task) {
	if task == nil {
		return
	}
	defer func() {
		if err := recover(); err != nil {
			log.Error("Time server [%v] execute task error.", s.name, routine.NewRuntimeError(err))
		}
	}()
	task()
}

// runTimer 执行一个定时器回调, 捕获 panic
func (s *Server) runTimer(t *Timer, fn TimerFunc) {
	if fn == nil {
		return
	}
	defer func() {
		if err := recover(); err != nil {
			log.Error("Time server [%v] execute timer %v of client %v error.", s.name, t.slot, t.client.id, routine.NewRuntimeError(err))
		}
	}()
	fn()
}

// handleIRQ 应答硬件中断, 触发到期的定时器并重新设置硬件
func (s *Server) handleIRQ() {
	if err := s.lt.HandleIRQ(); err != nil {
		log.Error("Time server [%v] handle irq error.", s.name, err)
	}
	if err := s.tm.Update(); err != nil {
		log.Error("Time server [%v] update timeouts error.", s.name, err)
	}
}

// forward 把一根中断线上的信号合并到 chIRQ
func (s *Server) forward(irq <-chan struct{}) {
	for {
		select {
		case <-irq:
			select {
			case s.chIRQ <- struct{}{}:
			default:
			}
		case <-s.chDie:
			return
		}
	}
}

// run 服务协程的主循环
func (s *Server) run() {
	s.goid.Store(routine.Goid())
	if env.Debug {
		log.Info("Time server [%v] staring.", s.name)
	}

	defer func() {
		s.lt.Destroy()
		close(s.chDone)
		if env.Debug {
			log.Info("Time server [%v] closed.", s.name)
		}
	}()

	for {
		select {
		case <-s.chIRQ:
			s.handleIRQ()

		case task := <-s.chTasks:
			s.runTask(task)

		case <-s.chDie:
			return
		}
	}
}

// Start 启动服务
func (s *Server) Start() {
	if !s.state.CompareAndSwap(StateCreated, StateRunning) {
		return
	}
	for _, irq := range s.lt.IRQs() {
		go s.forward(irq)
	}
	go s.run()
}

// Close 关闭服务, 不在服务协程中调用时等待主循环退出
func (s *Server) Close() {
	if !s.state.CompareAndSwap(StateRunning, StateClosed) {
		return
	}
	close(s.chDie)
	if !s.inLoop() {
		<-s.chDone
	}
}

// State 返回服务的当前状态
func (s *Server) State() ServerState {
	return s.state.Load()
}

// Execute 提交一个任务到服务协程
func (s *Server) Execute(task Task) bool {
	if s.state.Load() == StateClosed {
		if env.Debug {
			log.Info("Time server [%v] already closed, new tasks are not accepted.", s.name)
		}
		return false
	}
	select {
	case s.chTasks <- task:
		return true
	case <-s.chDie:
		return false
	}
}

// inLoop 当前是否在服务协程中
func (s *Server) inLoop() bool {
	return s.goid.Load() == routine.Goid()
}

// call 在服务协程中同步执行 fn. 已经在服务协程中时直接执行.
func (s *Server) call(fn func() error) error {
	switch s.state.Load() {
	case StateCreated:
		return ErrServerNotStarted
	case StateClosed:
		return ErrServerClosed
	}
	if s.inLoop() {
		return fn()
	}

	done := make(chan error, 1)
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				err := routine.NewRuntimeError(r)
				log.Error("Time server [%v] execute call error.", s.name, err)
				done <- err
			}
		}()
		done <- fn()
	}
	if !s.Execute(task) {
		return ErrServerClosed
	}
	select {
	case err := <-done:
		return err
	case <-s.chDone:
		// 主循环退出前可能刚好执行完
		select {
		case err := <-done:
			return err
		default:
			return ErrServerClosed
		}
	}
}

// Now 读取逻辑定时器的时间
func (s *Server) Now() (uint64, error) {
	var now uint64
	err := s.call(func() error {
		var err error
		now, err = s.tm.GetTime()
		return err
	})
	return now, err
}

// NewClient 创建一个客户端
func (s *Server) NewClient() (*Client, error) {
	c := &Client{
		id:     s.node.Generate().Int64(),
		server: s,
		timers: make(map[int]*Timer),
	}
	err := s.call(func() error {
		s.clients[c.id] = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Clients 返回客户端数量
func (s *Server) Clients() (int, error) {
	var n int
	err := s.call(func() error {
		n = len(s.clients)
		return nil
	})
	return n, err
}
