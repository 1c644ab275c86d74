package agent

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildHints returns the site-scoping hints for a run that starts at
// startURL, followed by any user hints.
func BuildHints(startURL, userHints string) string {
	userHints = strings.TrimSpace(userHints)

	u, err := url.Parse(startURL)
	if err != nil || u.Host == "" {
		return userHints
	}

	host := strings.ToLower(u.Host)
	path := strings.TrimRight(u.Path, "/")

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are working on %s. The start page is %s.", host, startURL)
	if path != "" {
		fmt.Fprintf(&sb, "\nStay within the section whose URL starts with %s where possible. "+
			"Do not move to other top-level sections through the global header menu unless the task asks for it.", path)
	}
	sb.WriteString("\nDo not leave this domain and do not open external search engines.")
	if userHints != "" {
		sb.WriteString("\n")
		sb.WriteString(userHints)
	}
	return sb.String()
}
