package worker

import (
	"regexp"
	"strings"
)

type Command string

const (
	CmdNone        Command = ""
	CmdHelp        Command = "help"
	CmdRooms       Command = "rooms"
	CmdSummaryAll  Command = "summary_all"
	CmdSummaryRoom Command = "summary_room"
	CmdTodoAll     Command = "todo_all"
	CmdTodoRoom    Command = "todo_room"
)

// Patterns are tried in order so "summary all" never reaches the room form.
var commandPatterns = []struct {
	cmd Command
	re  *regexp.Regexp
}{
	{CmdHelp, regexp.MustCompile(`(?i)^help$`)},
	{CmdRooms, regexp.MustCompile(`(?i)^rooms$`)},
	{CmdSummaryAll, regexp.MustCompile(`(?i)^summary\s+all$`)},
	{CmdSummaryRoom, regexp.MustCompile(`(?i)^summary\s+(\S+)$`)},
	{CmdTodoAll, regexp.MustCompile(`(?i)^todo\s+all$`)},
	{CmdTodoRoom, regexp.MustCompile(`(?i)^todo\s+(\S+)$`)},
}

var commandPrefixes = map[string]bool{
	"help": true, "rooms": true, "room": true, "summary": true,
	"todo": true, "task": true, "tasks": true,
}

// ParseCommand matches a normalized message body. arg is the room code for
// the per-room commands.
func ParseCommand(body string) (cmd Command, arg string) {
	body = strings.ToLower(strings.TrimSpace(body))
	for _, p := range commandPatterns {
		m := p.re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		if len(m) > 1 {
			arg = m[1]
		}
		return p.cmd, arg
	}
	return CmdNone, ""
}

// LooksLikeCommand reports whether the first word is a command keyword.
func LooksLikeCommand(body string) bool {
	fields := strings.Fields(strings.ToLower(body))
	return len(fields) > 0 && commandPrefixes[fields[0]]
}
