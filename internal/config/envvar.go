package config

const (
	// EnvPort overrides server.port.
	EnvPort = "PORT"

	// EnvEnvironment selects development or production logging.
	EnvEnvironment = "POKEDEX_ENV"

	// EnvModelURL overrides model.url.
	EnvModelURL = "POKEDEX_MODEL_URL"

	// EnvModelsDir overrides model.dir.
	EnvModelsDir = "POKEDEX_MODELS_DIR"

	// EnvONNXLibrary overrides model.library_path.
	EnvONNXLibrary = "POKEDEX_ONNX_LIBRARY"
)
