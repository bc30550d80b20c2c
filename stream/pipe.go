package stream

type pipeOptions struct {
	end bool
}

// PipeOption configures Pipe
type PipeOption func(*pipeOptions)

// WithEnd controls whether the destination is ended when the source ends.
// Enabled by default.
func WithEnd(end bool) PipeOption {
	return func(o *pipeOptions) {
		o.end = end
	}
}

type pipeListener struct {
	stream interface{ Off(ListenerID) }
	id     ListenerID
}

// Pipeline is an active pipe from a source to a destination.
type Pipeline[T any] struct {
	src       ReadableStream[T]
	dst       WritableStream[T]
	end       bool
	paused    bool
	active    bool
	listeners []pipeListener
}

// Pipe moves everything read from src into dst. When dst reports a full
// buffer the source is paused until dst drains. Both ends get a "pipe"
// notification now and an "unpipe" notification when the pipe is torn down,
// which happens when src ends, either end fails or closes, or Unpipe is
// called.
func Pipe[T any](src ReadableStream[T], dst WritableStream[T], opts ...PipeOption) *Pipeline[T] {
	o := pipeOptions{end: true}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pipeline[T]{src: src, dst: dst, end: o.end, active: true}
	p.track(src, src.OnReadable(p.flow))
	p.track(src, src.OnEnd(p.onEnd))
	p.track(src, src.observeError(p.onError))
	p.track(src, src.OnClose(p.Unpipe))
	p.track(dst, dst.OnDrain(p.onDrain))
	p.track(dst, dst.observeError(p.onError))
	p.track(dst, dst.OnClose(p.Unpipe))

	src.notifyPipe(dst)
	dst.notifyPipe(src)
	src.Loop().NextTick(p.flow)
	return p
}

func (p *Pipeline[T]) track(s interface{ Off(ListenerID) }, id ListenerID) {
	p.listeners = append(p.listeners, pipeListener{stream: s, id: id})
}

func (p *Pipeline[T]) flow() {
	if !p.active || p.paused {
		return
	}
	for {
		chunk := p.src.Read()
		if chunk == nil {
			return
		}
		if !p.dst.Write(chunk, nil) {
			p.paused = true
			p.src.Pause()
			return
		}
	}
}

func (p *Pipeline[T]) onDrain() {
	if !p.active || !p.paused {
		return
	}
	p.paused = false
	p.src.Resume()
	p.flow()
}

func (p *Pipeline[T]) onEnd() {
	if !p.active {
		return
	}
	if p.end {
		p.dst.End()
	}
	p.Unpipe()
}

func (p *Pipeline[T]) onError(error) {
	p.Unpipe()
}

// Unpipe tears the pipe down. The source is resumed if the pipe had paused
// it. Calling Unpipe more than once is a no-op.
func (p *Pipeline[T]) Unpipe() {
	if !p.active {
		return
	}
	p.active = false
	for _, l := range p.listeners {
		l.stream.Off(l.id)
	}
	p.listeners = nil
	if p.paused {
		p.paused = false
		p.src.Resume()
	}
	p.src.notifyUnpipe(p.dst)
	p.dst.notifyUnpipe(p.src)
}

// Active reports whether the pipe is still moving data.
func (p *Pipeline[T]) Active() bool { return p.active }

// Source returns the piped source.
func (p *Pipeline[T]) Source() ReadableStream[T] { return p.src }

// Destination returns the piped destination.
func (p *Pipeline[T]) Destination() WritableStream[T] { return p.dst }
