package xactor

import "context"

type result struct {
	resp interface{}
	err  error
}

type mail struct {
	ctx      context.Context
	req      interface{}
	t        mailType
	resultCh chan *result
}

func newMail(ctx context.Context, t mailType, req interface{}) *mail {
	return &mail{ctx: ctx, t: t, req: req, resultCh: make(chan *result, 1)}
}

type mailBox struct {
	mailCh chan *mail
}

func newMailBox() *mailBox {
	return &mailBox{
		mailCh: make(chan *mail, mailMaxCount),
	}
}

func (box *mailBox) recvMail() <-chan *mail {
	return box.mailCh
}

// sendMail blocks while the box is full, which throttles producers to the
// actor's pace. It gives up once the actor is closed or ctx ends.
func (box *mailBox) sendMail(ctx context.Context, m *mail, closeCh <-chan struct{}) error {
	// 关闭后不再接收mail
	select {
	case <-closeCh:
		return ErrActorClosed
	default:
	}
	select {
	case box.mailCh <- m:
		return nil
	case <-closeCh:
		return ErrActorClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
