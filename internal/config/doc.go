// Package config loads the regionlatency-server configuration from a YAML file.
//
// Config fields:
//   - Server.HTTPPort       : listen port (default 8000)
//   - Server.ShutdownTimeout: graceful shutdown deadline (default 5s)
//   - Server.MaxBodyBytes   : request body limit for POST / (default 1 MiB)
//   - Server.CORS           : allowed origins ("*" reflects any origin) and
//     whether credentials are allowed (default: any origin, credentials on)
//   - Data.Path             : telemetry dataset file; empty selects the dataset
//     embedded in the binary. Relative paths resolve against the config
//     file's directory.
//   - Log.Level             : debug | info | warn | error (default info)
//
// Load(path) applies defaults before unmarshalling, then validates.
//
// Watch(ctx, path, onChange) re-reads the file on every change using fsnotify.
// The server applies only Log.Level from a reload; the dataset is never
// reloaded.
package config
