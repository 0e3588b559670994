// Package fallback builds the canned replies served when no live provider
// call is possible. Nothing here touches the network.
package fallback

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/techchat/server/internal/agent/conversations"
	"github.com/techchat/server/internal/agent/model"
)

var (
	debugPattern = regexp.MustCompile(`(?i)error|exception|bug|fail|stack|crash`)
	dsaPattern   = regexp.MustCompile(`(?i)dsa|algorithm|leetcode|array|tree|graph`)
)

// Build picks a reply by reason first, then by a keyword match on the
// sanitized message.
func Build(rawMessage string, reason model.FallbackReason, provider model.ProviderIdentity) string {
	label := provider.Label()

	if reason == model.ReasonQuotaExceeded {
		return quotaReply(label)
	}

	normalized := strings.ToLower(conversations.Sanitize(rawMessage))
	switch {
	case debugPattern.MatchString(normalized):
		return debugReply(label)
	case dsaPattern.MatchString(normalized):
		return dsaReply(label)
	default:
		return fmt.Sprintf(
			"%s is currently unavailable because the configured key appears invalid or exhausted. Please rotate %s and retry.",
			label, provider.CredentialVar(),
		)
	}
}

func quotaReply(label string) string {
	return strings.Join([]string{
		fmt.Sprintf("%s quota is exhausted for the configured API key.", label),
		fmt.Sprintf("Enable billing or raise the usage limit for this project in the %s console.", label),
		"Fallback replies stay active until quota is restored.",
	}, "\n")
}

func debugReply(label string) string {
	return label + " is unavailable. Debug checklist:\n" +
		"1) Reproduce with minimal input\n" +
		"2) Inspect first user-code stack frame\n" +
		"3) Add logs at input/output boundaries\n" +
		"4) Validate nil values and async branches\n" +
		"5) Apply one fix at a time"
}

func dsaReply(label string) string {
	return label + " is unavailable. Problem-solving checklist:\n" +
		"- Restate the problem, inputs, outputs and constraints\n" +
		"- Work one small example by hand\n" +
		"- Write the brute force first and note its complexity\n" +
		"- Pick the data structure that removes the bottleneck (hash map, heap, two pointers, BFS/DFS)\n" +
		"- Test edge cases: empty input, duplicates, limits"
}
