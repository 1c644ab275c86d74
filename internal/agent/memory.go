package agent

import (
	"fmt"
	"strings"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/llm"
)

// LoopGuard detects the agent repeating itself. It never blocks an action;
// it produces notes that go into the model-visible memory.
type LoopGuard struct {
	lastActionKey string
	repeatCount   int
	loopThreshold int

	recentKeys    []string
	maxRecent     int
	patternLen    int
	patternCounts map[string]int

	triggered int
}

func NewLoopGuard(loopThreshold int) *LoopGuard {
	if loopThreshold <= 1 {
		loopThreshold = 2
	}
	return &LoopGuard{
		loopThreshold: loopThreshold,
		maxRecent:     10,
		patternLen:    2,
		patternCounts: make(map[string]int),
	}
}

func (g *LoopGuard) makeKey(url string, action llm.ActionCommand) string {
	return url + "|" + action.String()
}

// Observe records the actions executed on url during one step and returns
// the notes to show the model, if any.
func (g *LoopGuard) Observe(url string, actions []llm.ActionCommand) []string {
	var notes []string
	for _, action := range actions {
		key := g.makeKey(url, action)
		if note := g.check(key, action); note != "" {
			notes = append(notes, note)
		}
		g.add(key)
	}
	if len(notes) > 0 {
		g.triggered++
	}
	return notes
}

func (g *LoopGuard) check(key string, action llm.ActionCommand) string {
	if key == g.lastActionKey && g.repeatCount+1 >= g.loopThreshold {
		return fmt.Sprintf(
			"SYSTEM NOTE: The same action %s has now been executed %d times in a row on this page. "+
				"Do NOT repeat it again. Choose a different action or finish if the goal is already achieved.",
			action.String(), g.repeatCount+1,
		)
	}

	if len(g.recentKeys) >= g.patternLen-1 {
		seq := append([]string{}, g.recentKeys[len(g.recentKeys)-(g.patternLen-1):]...)
		seq = append(seq, key)
		if seq[0] == seq[len(seq)-1] {
			return ""
		}
		if g.patternCounts[strings.Join(seq, "->")] >= 1 {
			return fmt.Sprintf(
				"SYSTEM NOTE: The sequence of %d actions ending with %s has already occurred before. "+
					"Do NOT repeat this pattern. Try a different action.",
				g.patternLen, action.String(),
			)
		}
	}
	return ""
}

func (g *LoopGuard) add(key string) {
	if key == g.lastActionKey {
		g.repeatCount++
	} else {
		g.lastActionKey = key
		g.repeatCount = 1
	}

	g.recentKeys = append(g.recentKeys, key)
	if len(g.recentKeys) > g.maxRecent {
		g.recentKeys = g.recentKeys[len(g.recentKeys)-g.maxRecent:]
	}
	if len(g.recentKeys) >= g.patternLen {
		seq := g.recentKeys[len(g.recentKeys)-g.patternLen:]
		g.patternCounts[strings.Join(seq, "->")]++
	}
}

// Triggered reports how many steps produced a loop note.
func (g *LoopGuard) Triggered() int {
	return g.triggered
}
