// Package protocol defines the contract between loopdash and the agent loop
// it observes.
//
// Loops and agent runners report progress by calling the loopdash CLI (or by
// writing the files it reads directly). This package documents those
// commands and formats so that a runner can be instructed, via a system
// prompt, on how to keep the dashboard current.
//
// Example agent system prompt snippet:
//
//	You have access to the `loopdash` CLI to report progress:
//	  loopdash story next                              - Pick the next ready story
//	  loopdash story start <id>                        - Mark a story as in progress
//	  loopdash story pass <id>                         - Mark a story as passing
//	  loopdash emit --agent A --id S --type spawned    - Report a subagent
package protocol

import "strings"

// EventLogFormat describes one line of .loopdash/agents/<agent>/events.jsonl.
const EventLogFormat = `{"subagent_id":"<id>","parent_agent_id":"<parent id, optional>","event_type":"spawned|progress|completed|failed","depth":0,"description":"<task>","timestamp":"<RFC3339>","error":"<failed only>","duration_secs":0}`

// AgentInstructions returns a system prompt fragment that teaches an agent
// loop how to report stories and subagents to loopdash. agentID is the name
// the loop should use for --agent; empty leaves a placeholder.
func AgentInstructions(projectName, agentID string) string {
	if strings.TrimSpace(agentID) == "" {
		agentID = "<your-agent-name>"
	}
	r := strings.NewReplacer("{project}", projectName, "{agent}", agentID, "{format}", EventLogFormat)
	return r.Replace(instructionsTemplate)
}

const instructionsTemplate = "You are working on the project \"{project}\", monitored by loopdash.\n" + `
## Stories

Stories live in .loopdash/stories.yaml. A story is ready once every story it
depends on passes.

- ` + "`loopdash story next`" + ` - Print the ready story to work on next
- ` + "`loopdash stories`" + ` - Show all stories by dependency layer and status
- ` + "`loopdash story start <id>`" + ` - Record that you are working on a story
- ` + "`loopdash story pass <id>`" + ` - Mark a story as passing once its checks succeed
- ` + "`loopdash story fail <id>`" + ` - Mark a story as not passing
- ` + "`loopdash story add <id> --title \"...\" --dep <id>`" + ` - Add a follow-up story

## Subagents

Report every subagent you start so the operator can follow the tree.

- ` + "`loopdash emit --agent {agent} --id <sub-id> --type spawned --desc \"...\"`" + `
- ` + "`loopdash emit --agent {agent} --id <sub-id> --parent <parent-id> --depth 1 --type spawned`" + `
- ` + "`loopdash emit --agent {agent} --id <sub-id> --type progress`" + `
- ` + "`loopdash emit --agent {agent} --id <sub-id> --type completed`" + `
- ` + "`loopdash emit --agent {agent} --id <sub-id> --type failed --error \"...\"`" + `

Runners that cannot shell out may append lines to
.loopdash/agents/{agent}/events.jsonl directly, one JSON object per line:

	{format}

Write whole lines only; a line without a trailing newline is not read yet.

## Loop Protocol

1. **Pick**: Run ` + "`loopdash story next`" + ` and ` + "`loopdash story start <id>`" + `
2. **Work**: Build and test, reporting each subagent you spawn
3. **Verify**: Run the story's checks
4. **Record**: ` + "`loopdash story pass <id>`" + ` or ` + "`loopdash story fail <id>`" + `
`
