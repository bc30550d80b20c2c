// Package config loads StreamKit settings.
//
// A Loader starts from Default(), merges each layer added with AddLayer in
// order, then applies STREAMKIT_* environment variables. Layers are JSON or
// YAML, picked by file extension, and only the keys a layer names override
// earlier values:
//
//	loader := config.NewLoader()
//	loader.AddLayer("streamkit.yaml")
//	loader.AddLayer("local.json")
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	r := stream.NewReadable(lp, producer, cfg.Streams.StreamOptions()...)
//
// Recognised overrides:
//
//	STREAMKIT_SERVER_LISTEN
//	STREAMKIT_METRICS_PORT
//	STREAMKIT_STREAMS_HIGH_WATER_MARK
//	STREAMKIT_STREAMS_UNHANDLED_ERRORS
//	STREAMKIT_NATS_URLS (comma-separated)
//
// Durations accept Go syntax ("250ms", "5s"), a day suffix ("14d"), or a
// number of nanoseconds.
//
// SafeConfig guards a Config shared across goroutines; Get returns a deep
// copy and Update validates before swapping.
//
// Files are size limited, must be regular files, and relative paths may not
// resolve outside the working directory.
package config
