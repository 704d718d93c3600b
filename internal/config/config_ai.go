package config

// Operation names used across config, prompts and metrics
const (
	OperationAnalyze      = "analyze"
	OperationConversation = "conversation"
	OperationEvaluate     = "evaluate"
)

// applyOperationDefaults fills unset operation values from the global AI config
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		timeout := c.AI.Timeout
		opCfg.Timeout = &timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.Temperature == nil {
		temperature := c.AI.Temperature
		opCfg.Temperature = &temperature
	}
	if opCfg.MaxOutputTokens == nil {
		maxTokens := c.AI.MaxOutputTokens
		opCfg.MaxOutputTokens = &maxTokens
	}
}

// GetAnalyzeConfig returns the résumé analysis model config with global fallbacks
func (c *Config) GetAnalyzeConfig() OperationAIConfig {
	config := c.AI.Analyze
	c.applyOperationDefaults(&config)
	return config
}

// GetConversationConfig returns the interview model config with global fallbacks
func (c *Config) GetConversationConfig() OperationAIConfig {
	config := c.AI.Conversation
	c.applyOperationDefaults(&config)
	return config
}

// GetEvaluateConfig returns the fit report model config with global fallbacks
func (c *Config) GetEvaluateConfig() OperationAIConfig {
	config := c.AI.Evaluate
	c.applyOperationDefaults(&config)
	return config
}

// GetOperationConfig looks up an operation by name.
func (c *Config) GetOperationConfig(operation string) (OperationAIConfig, bool) {
	switch operation {
	case OperationAnalyze:
		return c.GetAnalyzeConfig(), true
	case OperationConversation:
		return c.GetConversationConfig(), true
	case OperationEvaluate:
		return c.GetEvaluateConfig(), true
	default:
		return OperationAIConfig{}, false
	}
}

// operations returns pointers to every operation block, keyed by name
func (c *Config) operations() map[string]*OperationAIConfig {
	return map[string]*OperationAIConfig{
		OperationAnalyze:      &c.AI.Analyze,
		OperationConversation: &c.AI.Conversation,
		OperationEvaluate:     &c.AI.Evaluate,
	}
}
