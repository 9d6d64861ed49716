package main

// Exit codes shared by all commands.
const (
	ExitSuccess       = 0 // Success
	ExitError         = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError   = 2 // Configuration error (missing repository, invalid config)
	ExitDataError     = 3 // Data error (Ollama not available, store corruption)
	ExitNotFound      = 4 // Concept or era not found
	ExitModelNotFound = 5 // Embedding model not found
	ExitAuthError     = 6 // Generation API authentication failure
	ExitAPIError      = 7 // Generation API failure after retries
)
