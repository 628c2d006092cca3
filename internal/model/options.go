package model

type Option func(*loadConfig)

type loadConfig struct {
	libraryPath    string
	inputName      string
	outputName     string
	intraOpThreads int
}

// WithLibraryPath points onnxruntime_go at a specific onnxruntime shared
// library instead of the platform default.
func WithLibraryPath(path string) Option {
	return func(c *loadConfig) {
		c.libraryPath = path
	}
}

// WithInputName selects the network input by name. Defaults to the first input.
func WithInputName(name string) Option {
	return func(c *loadConfig) {
		c.inputName = name
	}
}

// WithOutputName selects the network output by name. Defaults to the first output.
func WithOutputName(name string) Option {
	return func(c *loadConfig) {
		c.outputName = name
	}
}

// WithIntraOpThreads caps the threads onnxruntime uses inside one operator.
// Zero leaves the runtime default.
func WithIntraOpThreads(n int) Option {
	return func(c *loadConfig) {
		c.intraOpThreads = n
	}
}
