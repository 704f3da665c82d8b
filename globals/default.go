package globals

import "github.com/hashicorp/go-hclog"

// AppLogger is the process-wide logger. Its level is adjusted in main after
// the configuration has been read.
var AppLogger = hclog.New(&hclog.LoggerOptions{
	Name:  "member-chat",
	Level: hclog.LevelFromString("INFO"),
})
