package metadata

// Rule is a guard expression evaluated before a write. The expression sees
// `record` (the filtered payload), `id` (the target key, nil on create) and
// `action` ("create" or "update"); a true result rejects the write.
type Rule struct {
	Name       string `json:"name" yaml:"name"`
	Expression string `json:"expression" yaml:"expression"`
	Field      string `json:"field,omitempty" yaml:"field,omitempty"`
	Message    string `json:"message" yaml:"message"`
}
