// Package fs opens files as byte streams on a loop.
//
// CreateReadStream and CreateWriteStream wrap an *os.File in a
// stream.SourceStream or stream.TargetStream; the blocking syscalls run on
// goroutines and their results are posted back to the loop. ReadFile and
// WriteFile are one-shot helpers built on the two streams.
//
//	lp := loop.New()
//	src, err := fs.CreateReadStream(lp, "in.txt")
//	if err != nil { ... }
//	dst, err := fs.CreateWriteStream(lp, "out.txt", fs.Truncate)
//	if err != nil { ... }
//	stream.Pipe[byte](src, dst)
//	err = lp.Run(ctx)
package fs
