package llm

import "strings"

// defaultModel is the base model id, prefixed with an inference-profile
// region class at resolution time.
const defaultModel = "anthropic.claude-sonnet-4-20250514-v1:0"

// ResolveModelID picks the model id for this deployment. A non-empty
// override (BEDROCK_MODEL_ID) wins; otherwise the default model is
// prefixed by the inference-profile class of the AWS region.
func ResolveModelID(override, region string) string {
	if override != "" {
		return override
	}
	prefix := "us"
	switch {
	case strings.HasPrefix(region, "eu-"):
		prefix = "eu"
	case strings.HasPrefix(region, "ap-"):
		prefix = "apac"
	}
	return prefix + "." + defaultModel
}
