package llm

// Option is a function that configures a generation.
type Option func(*Config)

// Config holds configuration parameters for LLM generation.
type Config struct {
	Model        string
	SystemPrompt string
	MaxTokens    *int
	Temperature  *float64
	Tools        []Tool
	ToolChoice   string
}

// Apply invokes the given options against this config.
func (c *Config) Apply(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// WithModel sets the model used for the generation.
func WithModel(model string) Option {
	return func(config *Config) {
		config.Model = model
	}
}

// WithSystemPrompt sets the system prompt.
func WithSystemPrompt(systemPrompt string) Option {
	return func(config *Config) {
		config.SystemPrompt = systemPrompt
	}
}

// WithMaxTokens sets the max tokens.
func WithMaxTokens(maxTokens int) Option {
	return func(config *Config) {
		config.MaxTokens = &maxTokens
	}
}

// WithTemperature sets the temperature.
func WithTemperature(temperature float64) Option {
	return func(config *Config) {
		config.Temperature = &temperature
	}
}

// WithTools declares the tools available to the model.
func WithTools(tools ...Tool) Option {
	return func(config *Config) {
		config.Tools = tools
	}
}

// WithToolChoice sets the tool choice mode ("auto", "none", "required").
func WithToolChoice(toolChoice string) Option {
	return func(config *Config) {
		config.ToolChoice = toolChoice
	}
}
