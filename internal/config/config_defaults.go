package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	setAIDefaults(v)
	setCloudDefaults(v)
	setConversationDefaults(v)
	setServerDefaults(v)
	setAppDefaults(v)
	setVaultDefaults(v)
	setObservabilityDefaults(v)
}

func setAIDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.5-flash-lite")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.maxOutputTokens", 1024)

	// Résumé analysis: one structured extraction per upload
	v.SetDefault("ai.analyze.timeout", 60*time.Second)
	v.SetDefault("ai.analyze.temperature", 0.2)
	v.SetDefault("ai.analyze.maxOutputTokens", 1024)

	// Interview turns: short replies, low-to-moderate temperature
	v.SetDefault("ai.conversation.timeout", 30*time.Second)
	v.SetDefault("ai.conversation.temperature", 0.3)
	v.SetDefault("ai.conversation.maxOutputTokens", 500)

	// Fit reports: longer, factual
	v.SetDefault("ai.evaluate.timeout", 90*time.Second)
	v.SetDefault("ai.evaluate.temperature", 0.2)
	v.SetDefault("ai.evaluate.maxOutputTokens", 2048)

	for _, op := range []string{"analyze", "conversation", "evaluate"} {
		prefix := "ai." + op + ".circuitBreaker."
		v.SetDefault(prefix+"enabled", true)
		v.SetDefault(prefix+"maxRequests", 3)
		v.SetDefault(prefix+"interval", 60*time.Second)
		v.SetDefault(prefix+"timeout", 60*time.Second)
		v.SetDefault(prefix+"minRequests", 3)
		v.SetDefault(prefix+"failureThreshold", 0.6)
	}
}

func setCloudDefaults(v *viper.Viper) {
	v.SetDefault("gcp.projectId", "ai-recruiter-prod")
	v.SetDefault("gcp.location", "europe-central2")
	v.SetDefault("gcp.credentialsFile", "")
	v.SetDefault("gcp.credentialsJson", "")

	v.SetDefault("storage.backend", "gcs")
	v.SetDefault("storage.bucket", "demo-cv-rekrutacja-hrdreamer2")
	v.SetDefault("storage.localDir", "./data/cv")

	v.SetDefault("warehouse.backend", "bigquery")
	v.SetDefault("warehouse.dataset", "rekrutacja_hr")
	v.SetDefault("warehouse.table", "Kandydaci")
	v.SetDefault("warehouse.listLimit", 100)

	v.SetDefault("knowledge.enabled", true)
	v.SetDefault("knowledge.location", "eu")
	v.SetDefault("knowledge.dataStoreId", "ai-rekruter-wiedza_1759606950652")
	v.SetDefault("knowledge.servingConfig", "default_config")
	v.SetDefault("knowledge.pageSize", 3)
	v.SetDefault("knowledge.separator", "\n---\n")
	v.SetDefault("knowledge.timeout", 10*time.Second)
}

func setConversationDefaults(v *viper.Viper) {
	v.SetDefault("conversation.sentinel", "[END OF CONVERSATION]")
	v.SetDefault("conversation.closingPhrases", []string{
		"thank you", "goodbye", "bye",
		"dziękuję", "do widzenia", "koniec",
	})
	v.SetDefault("conversation.language", "English")
	v.SetDefault("conversation.jobQueryMode", "firstLine")
	v.SetDefault("conversation.apologyReply", "Sorry, something went wrong on our side. Please try again later.")
	v.SetDefault("conversation.noContextPlaceholder", "No additional information in the knowledge base.")
	v.SetDefault("conversation.noTranscriptPlaceholder", "No interview transcript is available for this candidate.")

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.redis.addr", "localhost:6379")
	v.SetDefault("session.redis.password", "")
	v.SetDefault("session.redis.db", 0)
	v.SetDefault("session.redis.keyPrefix", "airecruiter:session:")

	v.SetDefault("jobDescription.file", "")
	v.SetDefault("jobDescription.watch", false)
	v.SetDefault("jobDescription.debounceDelay", time.Second)
}

func setServerDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 120*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)

	v.SetDefault("server.tls.mode", "disabled")
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")

	v.SetDefault("server.apiKeys", []string{})

	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
}

func setAppDefaults(v *viper.Viper) {
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 10*1024*1024) // 10MB, résumés are often PDFs
}

func setVaultDefaults(v *viper.Viper) {
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.geminiKey", "")
	v.SetDefault("vault.secrets.gcpCredentials", "")
	v.SetDefault("vault.secrets.redisPassword", "")
}

func setObservabilityDefaults(v *viper.Viper) {
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "airecruiter")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)

	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	v.SetDefault("observability.customMetrics.aiOperations.enabled", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackDuration", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.businessMetrics.enabled", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackSuccessRates", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)

	v.SetDefault("observability.console.prettyPrint", true)

	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})

	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
	v.SetDefault("observability.healthCheck.aiModelCheckTimeout", 10*time.Second)
}
