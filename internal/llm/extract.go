package llm

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	jsonBlockRegex = regexp.MustCompile(fmt.Sprintf("(?s)%s(?:json)?\\s*(.*?)\\s*%s", "```", "```"))
	thinkRegex     = regexp.MustCompile(`(?s)<think>.*?</think>`)
)

// ExtractJSON pulls the JSON object out of a completion. It drops
// <think> blocks, prefers a fenced ```json block and otherwise takes the
// text between the first '{' and the last '}'.
func ExtractJSON(response string) (string, bool) {
	response = thinkRegex.ReplaceAllString(response, "")
	// An unterminated think block still precedes the answer.
	if i := strings.LastIndex(response, "</think>"); i >= 0 {
		response = response[i+len("</think>"):]
	}
	response = strings.TrimSpace(response)

	if matches := jsonBlockRegex.FindStringSubmatch(response); len(matches) > 1 {
		if block := strings.TrimSpace(matches[1]); strings.HasPrefix(block, "{") {
			return block, true
		}
	}

	first := strings.Index(response, "{")
	last := strings.LastIndex(response, "}")
	if first == -1 || last <= first {
		return "", false
	}
	return response[first : last+1], true
}
