package llm

// Response from an LLM.
type Response struct {
	ID         string   `json:"id"`
	Model      string   `json:"model"`
	StopReason string   `json:"stop_reason,omitempty"`
	Message    *Message `json:"message"`
	Usage      Usage    `json:"usage"`
}

// FunctionCalls returns the tool invocations requested by the model, if any.
// A response with no function calls is the model's final answer.
func (r *Response) FunctionCalls() []*FunctionCall {
	if r.Message == nil {
		return nil
	}
	return r.Message.FunctionCalls
}

// Text returns the text content of the response message.
func (r *Response) Text() string {
	if r.Message == nil {
		return ""
	}
	return r.Message.Content
}
