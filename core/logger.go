package core

// Logger logs messages; args may contain errors, maps of extra data and the acting user.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// LogPerson identifies the user a log entry is about.
type LogPerson struct {
	ID    string
	Name  string
	Email string
}
