package tools

import "fmt"

// UnknownToolError is returned when a call names a tool the registry does not
// hold. The engine renders it into the conversation instead of aborting.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("Unknown tool: %s", e.Name)
}

// ExecutionError wraps a failure raised while decoding, validating or running
// a tool.
type ExecutionError struct {
	Name string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("Error executing tool %s: %v", e.Name, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
