package appconf

// Environment is the deployment environment the process runs in.
type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment converts a lowercase environment name to an Environment.
// Anything unrecognized is Development.
func EnvFlagToEnvironment(env string) Environment {
	switch env {
	case "test":
		return Test
	case "production":
		return Production
	default:
		return Development
	}
}

// Config is the API server configuration.
type Config struct {
	Port      int
	Env       Environment
	ApiKeys   []string
	RateLimit int
	Verbose   bool

	// GzipMinSize is the smallest response body, in bytes, that is gzipped.
	// Zero selects the default; a negative value turns compression off.
	GzipMinSize int
}

// DefaultGzipMinSize is the compression threshold when none is configured.
const DefaultGzipMinSize = 1024
