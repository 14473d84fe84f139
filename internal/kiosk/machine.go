// Package kiosk 签到终端的客户端流程：打开扫码设备，解码一次后提交签到。
package kiosk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"github.com/gannfg/obelisk-learning-sub002/pkg/logger"
	"go.uber.org/zap"
)

type State string

const (
	StateIdle     State = "idle"
	StateScanning State = "scanning"
	StateChecking State = "checking"
	StateSuccess  State = "success"
	StateError    State = "error"
)

// AdminBlockedMessage 管理员打开签到终端时展示的固定提示
const AdminBlockedMessage = "Admins cannot check in to workshops by scanning. Use manual attendance from the admin console instead."

var ErrClosed = errors.New("kiosk closed")

// Capture 扫码设备。Open 返回解码结果通道，Close 必须可重复调用。
type Capture interface {
	Open(ctx context.Context) (<-chan string, error)
	Close() error
}

// Submitter 将扫码结果提交给服务端
type Submitter interface {
	Submit(ctx context.Context, sessionToken, payload string) (*Outcome, error)
}

// Outcome 服务端签到结果中终端关心的部分
type Outcome struct {
	WorkshopID       uint     `json:"workshopId"`
	WorkshopTitle    string   `json:"workshopTitle"`
	AlreadyCheckedIn bool     `json:"alreadyCheckedIn"`
	XPAwarded        int      `json:"xpAwarded"`
	TotalXP          int      `json:"totalXp"`
	Level            int      `json:"level"`
	LeveledUp        bool     `json:"leveledUp"`
	Milestones       []int    `json:"milestones"`
	BadgesGranted    []string `json:"badgesGranted"`
}

// Snapshot 某一时刻的终端状态，供界面渲染
type Snapshot struct {
	State     State
	Message   string
	Retryable bool
	Outcome   *Outcome
	Err       error
}

type Machine struct {
	SessionToken string
	Role         model.UserRole
	Capture      Capture
	Submitter    Submitter
	// OnChange 每次状态变化后调用，不能在回调中再调用 Machine 的方法
	OnChange func(Snapshot)

	mu          sync.Mutex
	state       State
	message     string
	err         error
	outcome     *Outcome
	captureOpen bool
	stopLoop    context.CancelFunc
	closed      bool
}

func NewMachine(sessionToken string, role model.UserRole, capture Capture, submitter Submitter) *Machine {
	return &Machine{
		SessionToken: sessionToken,
		Role:         role,
		Capture:      capture,
		Submitter:    submitter,
		state:        StateIdle,
	}
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	return Snapshot{
		State:     m.state,
		Message:   m.message,
		Retryable: m.state == StateError && !errors.Is(m.err, util.ErrRoleForbidden),
		Outcome:   m.outcome,
		Err:       m.err,
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// transitionLocked 调用方持有锁，返回需要在锁外通知的快照
func (m *Machine) transitionLocked(state State, message string, err error) Snapshot {
	m.state = state
	m.message = message
	m.err = err
	return m.snapshotLocked()
}

func (m *Machine) emit(s Snapshot) {
	if m.OnChange != nil {
		m.OnChange(s)
	}
}

// Start idle → scanning。管理员直接进入不可重试的错误状态；
// 扫码设备不可用时进入可重试的错误状态并提示手动输入。
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.state != StateIdle {
		m.mu.Unlock()
		return fmt.Errorf("cannot start scanning from state %s", m.state)
	}

	if m.Role.IsAdmin() {
		snap := m.transitionLocked(StateError, AdminBlockedMessage, util.ErrRoleForbidden)
		m.mu.Unlock()
		m.emit(snap)
		return util.ErrRoleForbidden
	}

	payloads, err := m.Capture.Open(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %v", util.ErrCaptureUnavailable, err)
		snap := m.transitionLocked(StateError, "Scanner unavailable. Type the code from the screen to check in manually.", err)
		m.mu.Unlock()
		m.emit(snap)
		return err
	}
	m.captureOpen = true

	loopCtx, cancel := context.WithCancel(ctx)
	m.stopLoop = cancel
	snap := m.transitionLocked(StateScanning, "Point the camera at the workshop QR code.", nil)
	m.mu.Unlock()
	m.emit(snap)

	go m.readLoop(ctx, loopCtx, payloads)
	return nil
}

func (m *Machine) readLoop(ctx, loopCtx context.Context, payloads <-chan string) {
	for {
		select {
		case <-loopCtx.Done():
			return
		case p, ok := <-payloads:
			if !ok {
				return
			}
			if m.HandleDecode(ctx, p) {
				return
			}
		}
	}
}

// releaseCaptureLocked 同步释放扫码设备，调用方持有锁
func (m *Machine) releaseCaptureLocked() {
	if m.stopLoop != nil {
		m.stopLoop()
		m.stopLoop = nil
	}
	if !m.captureOpen {
		return
	}
	m.captureOpen = false
	if err := m.Capture.Close(); err != nil {
		logger.Log.Warn("release capture failed", zap.Error(err))
	}
}

// HandleDecode 处理一次解码结果。只有扫描中的第一次解码会被接受，返回是否接受。
func (m *Machine) HandleDecode(ctx context.Context, payload string) bool {
	m.mu.Lock()
	if m.state != StateScanning {
		m.mu.Unlock()
		return false
	}
	m.releaseCaptureLocked()
	snap := m.transitionLocked(StateChecking, "Checking you in...", nil)
	m.mu.Unlock()
	m.emit(snap)

	m.submit(ctx, payload)
	return true
}

// ManualEntry 没有摄像头时手动输入，状态转换与解码一致
func (m *Machine) ManualEntry(ctx context.Context, payload string) error {
	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return ErrClosed
	case m.Role.IsAdmin():
		m.mu.Unlock()
		return util.ErrRoleForbidden
	case m.state == StateScanning, m.state == StateIdle:
	case m.state == StateError && errors.Is(m.err, util.ErrCaptureUnavailable):
	default:
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("cannot accept manual entry in state %s", state)
	}
	m.releaseCaptureLocked()
	snap := m.transitionLocked(StateChecking, "Checking you in...", nil)
	m.mu.Unlock()
	m.emit(snap)

	m.submit(ctx, payload)
	return nil
}

func (m *Machine) submit(ctx context.Context, payload string) {
	outcome, err := m.Submitter.Submit(ctx, m.SessionToken, payload)

	m.mu.Lock()
	var snap Snapshot
	if err != nil {
		m.outcome = nil
		snap = m.transitionLocked(StateError, Reason(err), err)
	} else {
		m.outcome = outcome
		snap = m.transitionLocked(StateSuccess, successMessage(outcome), nil)
	}
	m.mu.Unlock()
	m.emit(snap)
}

// Cancel 只在扫描中有效，检查中的请求不可取消
func (m *Machine) Cancel() bool {
	m.mu.Lock()
	if m.state != StateScanning {
		m.mu.Unlock()
		return false
	}
	m.releaseCaptureLocked()
	snap := m.transitionLocked(StateIdle, "", nil)
	m.mu.Unlock()
	m.emit(snap)
	return true
}

// Retry success|error → idle，管理员被拒绝的错误不可重试
func (m *Machine) Retry() error {
	m.mu.Lock()
	if m.state != StateSuccess && m.state != StateError {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("cannot retry from state %s", state)
	}
	if errors.Is(m.err, util.ErrRoleForbidden) {
		m.mu.Unlock()
		return util.ErrRoleForbidden
	}
	m.outcome = nil
	snap := m.transitionLocked(StateIdle, "", nil)
	m.mu.Unlock()
	m.emit(snap)
	return nil
}

// Close 任意状态下释放扫码设备，可重复调用
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseCaptureLocked()
	m.closed = true
}

// Reason 将签到错误转换为面向用户的说明
func Reason(err error) string {
	switch {
	case errors.Is(err, util.ErrRoleForbidden):
		return AdminBlockedMessage
	case errors.Is(err, util.ErrTokenMismatch):
		return "This QR code belongs to a different workshop. Scan the code shown for this session."
	case errors.Is(err, util.ErrTokenExpired):
		return "Check-in for this workshop has closed."
	case errors.Is(err, util.ErrWorkshopNotFound):
		return "This check-in link is not valid."
	case errors.Is(err, util.ErrStoreUnavailable):
		return "The check-in service is temporarily unavailable. Please try again."
	case errors.Is(err, util.ErrCaptureUnavailable):
		return "Scanner unavailable. Type the code from the screen to check in manually."
	default:
		return fmt.Sprintf("Check-in failed: %v", err)
	}
}

func successMessage(o *Outcome) string {
	if o == nil {
		return "Checked in."
	}
	if o.AlreadyCheckedIn {
		return fmt.Sprintf("You are already checked in to %s.", o.WorkshopTitle)
	}
	msg := fmt.Sprintf("Checked in to %s", o.WorkshopTitle)
	if o.XPAwarded > 0 {
		msg += fmt.Sprintf(" (+%d XP)", o.XPAwarded)
	}
	if o.LeveledUp {
		msg += fmt.Sprintf(". Level up! You are now level %d", o.Level)
	}
	return msg + "."
}
