package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/chatcore",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		LogLevel: "info",
		Engine: EngineConfig{
			MaxToolDepth:          8,
			RequestTimeoutSeconds: 120,
		},
		Tools: ToolsConfig{
			SearchBaseURL:    "https://www.googleapis.com",
			ComputeBaseURL:   "https://api.wolframalpha.com",
			FetchChunkTokens: 4096,
			FetchMaxBytes:    2 << 20,
		},
		Security: SecurityConfig{
			CredentialStorage: SecurityPlainText,
		},
		Providers: []ProviderConfig{
			{ID: "openai", Enabled: true, BaseURL: getProviderDefaultBaseURL("openai")},
			{ID: "openrouter", Enabled: true, BaseURL: getProviderDefaultBaseURL("openrouter")},
			{ID: "anthropic", Enabled: true, BaseURL: getProviderDefaultBaseURL("anthropic")},
			{ID: "ollama", Enabled: true, BaseURL: getProviderDefaultBaseURL("ollama"), Models: []string{"llama3.1:latest"}},
		},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# chatcore system configuration
# Location: ~/.config/chatcore/settings.toml
# This file uses TOML format: https://toml.io

# Directory where chats, settings and credentials are stored
data_directory = "~/.local/share/chatcore"
`
}

func GenerateUserConfigTemplate() string {
	return `# chatcore user configuration
# Location: <data_directory>/config.toml

# One of debug, info, warn, error. CHATCORE_DEBUG=1 forces debug.
log_level = "info"

[engine]
# Maximum tool recursion depth per turn. At the cap the model is asked
# to answer without tools.
max_tool_depth = 8
# Seconds to wait for a backend to start answering. Streamed replies
# are not cut off.
request_timeout_seconds = 120
# Model used for chat titles (empty: the chat model)
title_model = ""

[tools]
search_base_url = "https://www.googleapis.com"
compute_base_url = "https://api.wolframalpha.com"
fetch_chunk_tokens = 4096
fetch_max_bytes = 2097152
# Model used to summarize fetched pages (empty: the chat model)
summary_model = ""

# MCP tool servers started over stdio. Their tools are offered as
# "<id>_<tool>".
# [[tools.plugins]]
# id = "files"
# enabled = false
# command = "npx"
# args = ["-y", "@modelcontextprotocol/server-filesystem", "/tmp"]
# secret_env = ["API_KEY"]

[security]
# "plaintext" or "ssh_key"
credential_storage = "plaintext"
ssh_key_path = ""

[[providers]]
id = "openai"
enabled = true
base_url = "https://api.openai.com/v1"

[[providers]]
id = "openrouter"
enabled = true
base_url = "https://openrouter.ai/api/v1"

[[providers]]
id = "anthropic"
enabled = true
base_url = "https://api.anthropic.com"

[[providers]]
id = "ollama"
enabled = true
base_url = "http://localhost:11434"
models = ["llama3.1:latest"]
`
}
