package license

import (
	"context"
	"fmt"
	"sync"

	"github.com/looplab/fsm"
)

// 许可状态迁移事件
const (
	EventActivate   = "activate"
	EventDeactivate = "deactivate"
	EventStartTrial = "start_trial"
)

// Machine 许可状态机
// 状态只会被管理员/开发者面板显式改写，状态机负责校验改写是否合法。
// 过期判定不在这里：那是 Gate 在读取时重新计算的。
type Machine struct {
	mu  sync.Mutex
	fsm *fsm.FSM
}

// NewMachine 以当前存储的状态创建状态机
func NewMachine(current string) *Machine {
	if current == "" {
		current = StatusTrial
	}

	m := &Machine{}
	m.fsm = fsm.NewFSM(
		current,
		fsm.Events{
			{Name: EventActivate, Src: []string{StatusTrial, StatusInactive}, Dst: StatusActive},
			{Name: EventDeactivate, Src: []string{StatusTrial, StatusActive}, Dst: StatusInactive},
			{Name: EventStartTrial, Src: []string{StatusActive, StatusInactive}, Dst: StatusTrial},
		},
		fsm.Callbacks{},
	)

	return m
}

// Current 获取当前状态
func (m *Machine) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fsm.Current()
}

// TransitionTo 迁移到目标状态
// 目标与当前相同视为空操作；非法目标或非法迁移返回错误。
func (m *Machine) TransitionTo(ctx context.Context, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fsm.Current() == target {
		return nil
	}

	var event string
	switch target {
	case StatusActive:
		event = EventActivate
	case StatusInactive:
		event = EventDeactivate
	case StatusTrial:
		event = EventStartTrial
	default:
		return fmt.Errorf("unknown license status %q", target)
	}

	if err := m.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("transition to %s: %w", target, err)
	}
	return nil
}
