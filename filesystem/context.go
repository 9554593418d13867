package filesystem

// nodeContext carries the state of one Node operation. When the Storage
// prefers attributes the first probe is kept and every later guard in the
// same operation reads that snapshot; otherwise each guard probes again.
// Calling Close unwinds the registered cleanup callbacks in reverse order.
//
// NOTE: nodeContext is not thread-safe and must not outlive the operation
// that created it.
type nodeContext struct {
	node      *FileNode
	op        string
	preferred bool
	attrs     *Attributes
	closeFns  []func()
}

// begin validates the Storage and starts a context for op
func (n *FileNode) begin(op string) (*nodeContext, error) {
	if err := n.storage.Validate(); err != nil {
		return nil, n.fail(op, err)
	}
	return &nodeContext{
		node:      n,
		op:        op,
		preferred: n.storage.IsAttributesPreferred(),
	}, nil
}

// Attributes returns the snapshot for this operation. A probe failure is
// returned as an [ErrProbe] error.
func (ctx *nodeContext) Attributes() (Attributes, error) {
	if ctx.attrs != nil {
		return *ctx.attrs, ctx.probeErr(*ctx.attrs)
	}
	a := probe(ctx.node.storage, ctx.node.abs, ctx.node.vpath)
	if ctx.preferred {
		ctx.attrs = &a
	}
	return a, ctx.probeErr(a)
}

func (ctx *nodeContext) probeErr(a Attributes) error {
	if a.Err == nil {
		return nil
	}
	return ctx.fail(probeError(a.Err))
}

// is evaluates one predicate against the current attributes
func (ctx *nodeContext) is(pred func(Attributes) bool) (bool, error) {
	a, err := ctx.Attributes()
	if err != nil {
		return false, err
	}
	return pred(a), nil
}

// readTest fails for a missing, unreadable or hidden path, in that order
func (ctx *nodeContext) readTest() error {
	checks := []struct {
		pred func(Attributes) bool
		err  error
	}{
		{func(a Attributes) bool { return a.Exists }, ErrNotFound},
		{func(a Attributes) bool { return a.Readable }, ErrNotReadable},
		{func(a Attributes) bool { return !a.Hidden }, ErrHidden},
	}
	for _, c := range checks {
		ok, err := ctx.is(c.pred)
		if err != nil {
			return err
		}
		if !ok {
			return ctx.fail(c.err)
		}
	}
	return nil
}

func (ctx *nodeContext) fail(err error) error {
	return ctx.node.fail(ctx.op, err)
}

// AddClose pushes a cleanup callback onto the end of the stack
func (ctx *nodeContext) AddClose(fn func()) {
	ctx.closeFns = append(ctx.closeFns, fn)
}

// Close unwinds all cleanup callbacks in reverse order.
// Safe to call on a nil context so callers can `defer ctx.Close()` right
// after a successful begin.
func (ctx *nodeContext) Close() {
	if ctx == nil {
		return
	}
	for i := len(ctx.closeFns) - 1; i >= 0; i-- {
		ctx.closeFns[i]()
	}
	ctx.closeFns = nil
	ctx.attrs = nil
}
