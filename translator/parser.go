package translator

import (
	"strings"
)

// ============================================================================
// RESPONSE PARSER: Pulls code out of a model reply
// ============================================================================
// Models wrap code in markdown fences more often than not. The first fence
// whose info word is one of the accepted tags wins; its body runs up to the
// next fence (or the end of the reply). Without such a fence the whole reply
// is taken as code. Both results are trimmed.
// ============================================================================

// CodeTags are the fence tags accepted for scripts.
var CodeTags = []string{"starlark", "python", "py", "star"}

// PlanTags are the fence tags accepted for plans.
var PlanTags = []string{"json"}

const fence = "```"

// ExtractCode returns the script inside the first code-tagged fence, or the
// trimmed reply.
func ExtractCode(reply string) string {
	return ExtractFenced(reply, CodeTags...)
}

// ExtractFenced returns the body of the first fence tagged with one of tags
// (case-insensitive), or the trimmed reply when there is none.
func ExtractFenced(reply string, tags ...string) string {
	rest := reply
	for {
		start := strings.Index(rest, fence)
		if start < 0 {
			return strings.TrimSpace(reply)
		}
		rest = rest[start+len(fence):]

		info := rest
		if end := strings.IndexAny(info, " \t\r\n`"); end >= 0 {
			info = info[:end]
		}
		if hasTag(info, tags) {
			body := rest[len(info):]
			if end := strings.Index(body, fence); end >= 0 {
				body = body[:end]
			}
			return strings.TrimSpace(body)
		}

		// Skip the body of a block with some other tag.
		end := strings.Index(rest, fence)
		if end < 0 {
			return strings.TrimSpace(reply)
		}
		rest = rest[end+len(fence):]
	}
}

func hasTag(info string, tags []string) bool {
	for _, tag := range tags {
		if strings.EqualFold(info, tag) {
			return true
		}
	}
	return false
}
