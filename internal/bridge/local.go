package bridge

import "context"

// Local calls a Dispatcher in-process with the same argument encoding the
// HTTP transport uses.
type Local struct {
	D *Dispatcher
}

func (l Local) call(ctx context.Context, op Op, args ...any) (*Reply, error) {
	c, err := NewCall(op, args...)
	if err != nil {
		return nil, err
	}
	return l.D.Dispatch(ctx, c)
}

func (l Local) Install(ctx context.Context) (Reply, error) {
	r, err := l.call(ctx, OpInstall)
	return deref(r), err
}

func (l Local) Start(ctx context.Context, flags []string) (Reply, error) {
	r, err := l.call(ctx, OpStart, flags)
	return deref(r), err
}

func (l Local) Stop(ctx context.Context) (Reply, error) {
	r, err := l.call(ctx, OpStop)
	return deref(r), err
}

func (l Local) Quit(ctx context.Context) error {
	_, err := l.call(ctx, OpQuit)
	return err
}

func (l Local) OpenExternalLink(ctx context.Context, url string) error {
	_, err := l.call(ctx, OpOpenExternalLink, url)
	return err
}

func deref(r *Reply) Reply {
	if r == nil {
		return Reply{}
	}
	return *r
}
