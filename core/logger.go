package core

// Logger is the application-wide logging contract.
// Implementations may forward entries to an external error tracker;
// extra args may carry errors or arbitrary context maps.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
