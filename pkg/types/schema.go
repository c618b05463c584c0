package types

// ValidationResult contains the result of validating one parameters mapping.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	SchemaID string   `json:"schema_id,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// OperationInfo describes a validated operation of a driver family.
type OperationInfo struct {
	Family     string   `json:"family"`
	Category   string   `json:"category"`
	Operation  string   `json:"operation"`
	Args       []string `json:"args"`
	ParamIndex int      `json:"param_index"`
	SchemaPath string   `json:"schema_path"`
}
