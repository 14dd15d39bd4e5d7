package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Saga 顺序执行步骤；某步失败时逆序执行已完成步骤的补偿
type Saga struct {
	steps []sagaStep
	// 补偿使用独立的超时，不随请求取消
	CompensateTimeout time.Duration
	log               *zap.Logger
}

type sagaStep struct {
	name string
	do   func(context.Context) error
	undo func(context.Context) error
}

func NewSaga(l *zap.Logger, compensateTimeout time.Duration) *Saga {
	if l == nil {
		l = zap.NewNop()
	}
	if compensateTimeout <= 0 {
		compensateTimeout = 5 * time.Second
	}
	return &Saga{CompensateTimeout: compensateTimeout, log: l}
}

// Step undo 可以为 nil
func (s *Saga) Step(name string, do, undo func(context.Context) error) *Saga {
	s.steps = append(s.steps, sagaStep{name: name, do: do, undo: undo})
	return s
}

// RollbackError 步骤失败且至少一个补偿也失败
type RollbackError struct {
	Step         string
	Err          error
	Compensation error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("step %q failed: %v; compensation failed: %v", e.Step, e.Err, e.Compensation)
}

func (e *RollbackError) Unwrap() []error { return []error{e.Err, e.Compensation} }

// Run 全部成功返回 nil；补偿成功时返回失败步骤的原始错误
func (s *Saga) Run(ctx context.Context) error {
	for i, st := range s.steps {
		if err := st.do(ctx); err != nil {
			if cerr := s.rollback(ctx, i); cerr != nil {
				return &RollbackError{Step: st.name, Err: err, Compensation: cerr}
			}
			return err
		}
	}
	return nil
}

func (s *Saga) rollback(ctx context.Context, failedAt int) error {
	var errs []error
	for i := failedAt - 1; i >= 0; i-- {
		st := s.steps[i]
		if st.undo == nil {
			continue
		}
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.CompensateTimeout)
		err := st.undo(cctx)
		cancel()
		if err != nil {
			s.log.Error("compensation failed", zap.String("step", st.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", st.name, err))
			continue
		}
		s.log.Warn("compensated", zap.String("step", st.name))
	}
	return errors.Join(errs...)
}
