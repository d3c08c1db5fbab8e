// Package logging is a hierarchical, configuration-driven logging library.
//
// Loggers are named nodes in a dot-separated namespace owned by a Manager.
// A record logged on "a.b" is checked against the logger's effective level
// and filter, then published to the handlers of "a.b", "a" and the root
// logger in that order, unless a logger on the way disables parent handlers.
//
// The Manager only holds weak references to loggers: a logger that nothing
// else references is collected and its name is purged from the registry.
// Loggers whose handlers were created from configuration stay pinned until
// the next Reset.
//
// Handlers shipped with the package:
//
//	StreamHandler   any io.Writer
//	ConsoleHandler  stderr
//	FileHandler     rotating numbered files guarded by a ".lck" lock file
//	SocketHandler   TCP stream
//	MemoryHandler   circular buffer pushed to a target handler
//
// Configuration uses the key families "<logger>.level", "<logger>.handlers",
// "<logger>.useParentHandlers" and "<Handler>.<property>", read from a
// properties or YAML document.
package logging
