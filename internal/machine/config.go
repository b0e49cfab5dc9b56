package machine

// Config carries the small set of run-time knobs the CLI layer exposes.
// There is no config file and no environment variable surface — every field
// here is populated straight from parsed flags.
type Config struct {
	Trace    bool // log each Step() to the configured logger
	LimitFPS bool // carried for the CLI; Machine never reads it and StepFrame does not throttle
}
