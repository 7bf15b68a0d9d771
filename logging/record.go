package logging

import "time"

// Record 描述一次日志事件。
// 每次通过域门限的调用只构造一次，之后不再修改；注册表不会缓存它。
type Record struct {
	Level     Level
	ProcessID int
	Created   time.Time
	Domain    string
	Message   string
}
