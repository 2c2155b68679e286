package settings

import "sort"

// compiledDefaults is the last layer of the fallback chain. Local and
// bring-your-own-key providers ship disabled.
var compiledDefaults = map[string]Descriptor{
	"openai": {
		Name: "openai", Enabled: true, DefaultModel: "gpt-4o-mini",
		MaxOutputCap: 16384, RequestsPerMinute: 500, TimeoutSeconds: 60, RetryCount: 2, Temperature: 0.7,
	},
	"anthropic": {
		Name: "anthropic", Enabled: true, DefaultModel: "claude-3-5-haiku-latest",
		MaxOutputCap: 8192, RequestsPerMinute: 50, TimeoutSeconds: 60, RetryCount: 2, Temperature: 0.7,
	},
	"gemini": {
		Name: "gemini", Enabled: true, DefaultModel: "gemini-1.5-flash",
		MaxOutputCap: 8192, RequestsPerMinute: 60, TimeoutSeconds: 60, RetryCount: 2, Temperature: 0.7,
	},
	"ollama": {
		Name: "ollama", Enabled: false, DefaultModel: "llama3.2",
		MaxOutputCap: 4096, RequestsPerMinute: 0, TimeoutSeconds: 120, RetryCount: 0, Temperature: 0.7,
	},
	"mistral": {
		Name: "mistral", Enabled: false, DefaultModel: "mistral-small-latest",
		MaxOutputCap: 8192, RequestsPerMinute: 60, TimeoutSeconds: 60, RetryCount: 2, Temperature: 0.7,
	},
	"groq": {
		Name: "groq", Enabled: false, DefaultModel: "llama-3.1-8b-instant",
		MaxOutputCap: 8192, RequestsPerMinute: 30, TimeoutSeconds: 60, RetryCount: 2, Temperature: 0.7,
	},
	"deepseek": {
		Name: "deepseek", Enabled: false, DefaultModel: "deepseek-chat",
		MaxOutputCap: 8192, RequestsPerMinute: 60, TimeoutSeconds: 60, RetryCount: 2, Temperature: 0.7,
	},
}

// DefaultTable returns a copy of the compiled default table.
func DefaultTable() map[string]Descriptor {
	table := make(map[string]Descriptor, len(compiledDefaults))
	for name, d := range compiledDefaults {
		table[name] = d
	}
	return table
}

func sortedNames(table map[string]Descriptor) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
