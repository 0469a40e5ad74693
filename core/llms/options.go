package llms

// GenerationOptions are sampling settings shared by providers. Nil fields
// leave the provider default in place.
type GenerationOptions struct {
	Temperature     *float32
	TopP            *float32
	TopK            *float32
	MaxOutputTokens int32
}

type GenerationOption func(*GenerationOptions)

func WithTemperature(temperature float32) GenerationOption {
	return func(o *GenerationOptions) { o.Temperature = &temperature }
}

func WithTopP(topP float32) GenerationOption {
	return func(o *GenerationOptions) { o.TopP = &topP }
}

func WithTopK(topK float32) GenerationOption {
	return func(o *GenerationOptions) { o.TopK = &topK }
}

func WithMaxOutputTokens(maxTokens int32) GenerationOption {
	return func(o *GenerationOptions) { o.MaxOutputTokens = maxTokens }
}

func NewGenerationOptions(opts ...GenerationOption) GenerationOptions {
	options := GenerationOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
