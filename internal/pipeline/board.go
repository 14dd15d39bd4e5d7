package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"franchise-crm/internal/domain"
)

var ErrPermissionDenied = errors.New("you do not have permission to move leads in the pipeline")

type State int

const (
	StateSynced      State = iota // 与服务端一致
	StatePending                  // 乐观更新已生效，持久化写入进行中
	StateReconciling              // 写入失败，正在重新拉取
	StateStale                    // 重新拉取也失败，本地分组可能过期
)

func (s State) String() string {
	switch s {
	case StateSynced:
		return "synced"
	case StatePending:
		return "pending"
	case StateReconciling:
		return "reconciling"
	case StateStale:
		return "stale"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Store 看板依赖的持久化端
type Store interface {
	AppendStatus(ctx context.Context, leadID, from, to string) error
	FetchLeads(ctx context.Context) ([]domain.LeadView, error)
}

// Board 客户端看板：按阶段分组 + 乐观移动，失败后整体重拉
type Board struct {
	store Store
	caps  domain.Capabilities

	mu       sync.Mutex
	columns  []Column
	state    State
	inflight int
	onChange func(State)
}

func NewBoard(store Store, caps domain.Capabilities) *Board {
	return &Board{store: store, caps: caps, columns: Group(nil)}
}

// OnChange 状态变化回调，在锁外调用
func (b *Board) OnChange(fn func(State)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

func (b *Board) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Columns 深拷贝，调用方可随意修改
func (b *Board) Columns() []Column {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Column, len(b.columns))
	for i, c := range b.columns {
		leads := make([]domain.LeadView, len(c.Leads))
		copy(leads, c.Leads)
		out[i] = Column{Stage: c.Stage, Count: c.Count, Leads: leads}
	}
	return out
}

func (b *Board) StageOf(leadID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.columns {
		for _, l := range c.Leads {
			if l.ID == leadID {
				return c.Stage.ID, true
			}
		}
	}
	return "", false
}

func (b *Board) set(s State) {
	b.mu.Lock()
	changed := b.state != s
	b.state = s
	fn := b.onChange
	b.mu.Unlock()
	if changed && fn != nil {
		fn(s)
	}
}

// Load 全量拉取并重新分组
func (b *Board) Load(ctx context.Context) error {
	leads, err := b.store.FetchLeads(ctx)
	if err != nil {
		b.set(StateStale)
		return err
	}
	b.mu.Lock()
	b.columns = Group(leads)
	b.mu.Unlock()
	b.set(StateSynced)
	return nil
}

// Move 把 lead 从 src 移到 dst。无权限时不改状态也不访问存储；
// 持久化失败时重新拉取全部 lead，返回原始错误
func (b *Board) Move(ctx context.Context, leadID, src, dst string) error {
	if src == dst {
		return nil
	}
	if !b.caps.CanMutatePipeline {
		return ErrPermissionDenied
	}
	if !Valid(dst) {
		return domain.Validationf("unknown stage %q", dst)
	}

	b.mu.Lock()
	if err := b.moveLocked(leadID, src, dst); err != nil {
		b.mu.Unlock()
		return err
	}
	b.inflight++
	b.mu.Unlock()
	b.set(StatePending)

	err := b.store.AppendStatus(ctx, leadID, src, dst)

	b.mu.Lock()
	b.inflight--
	idle := b.inflight == 0
	b.mu.Unlock()

	if err == nil {
		if idle {
			b.set(StateSynced)
		}
		return nil
	}

	b.set(StateReconciling)
	if lerr := b.Load(ctx); lerr != nil {
		return fmt.Errorf("move lead %s: %w (reload failed: %v)", leadID, err, lerr)
	}
	return fmt.Errorf("move lead %s: %w", leadID, err)
}

func (b *Board) moveLocked(leadID, src, dst string) error {
	from := &b.columns[byID[Normalize(src)]]
	pos := -1
	for i, l := range from.Leads {
		if l.ID == leadID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return domain.Validationf("lead %s is not in stage %s", leadID, src)
	}
	lead := from.Leads[pos]
	from.Leads = append(from.Leads[:pos:pos], from.Leads[pos+1:]...)
	from.Count = len(from.Leads)

	lead.Stage = dst
	to := &b.columns[byID[dst]]
	to.Leads = append(to.Leads, lead)
	to.Count = len(to.Leads)
	return nil
}
