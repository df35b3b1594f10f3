package env

import "time"

//goland:noinspection GoVarAndConstTypeMayBeOmitted,GoCommentStart
var (
	Debug           bool          = false                 //调试模式
	TimerSlack      time.Duration = time.Microsecond      //新超时比已设置的硬件超时早多少才重新设置硬件
	TimerBackstop   time.Duration = 10 * time.Microsecond //设置硬件超时返回 "时间已过" 时的补救延迟
	DefaultCapacity int           = 64                    //超时复用器默认槽位数
	TaskBacklog     int           = 256                   //时间服务的待处理任务队列长度
	DelayLogEvery   time.Duration = time.Second           //忙等延迟时 "时间未变化" 日志的最小间隔
)
