package stream

// Concat reads src to the end and calls done once with everything it
// produced. On error done receives what was read so far and the error.
func Concat[T any](src ReadableStream[T], done func(items []T, err error)) {
	var items []T
	called := false
	finish := func(err error) {
		if called {
			return
		}
		called = true
		done(items, err)
	}

	src.OnReadable(func() {
		for {
			chunk := src.Read()
			if chunk == nil {
				return
			}
			items = append(items, chunk...)
		}
	})
	src.OnEnd(func() { finish(nil) })
	src.OnError(finish)
}
