package skills

import "strings"

// Command identifies a skill category. The value is the tag stored with
// engagement records.
type Command string

const (
	CommandSay           Command = "SAY"
	CommandSearch        Command = "SEARCH"
	CommandTime          Command = "TIME"
	CommandWikipedia     Command = "WIKIPEDIA"
	CommandJoke          Command = "JOKE"
	CommandReadSchedule  Command = "READ_SCHEDULE"
	CommandScheduleEvent Command = "SCHEDULE_EVENT"
	CommandExit          Command = "EXIT"
	CommandPredict       Command = "PREDICT"
	CommandUnknown       Command = "UNKNOWN"
)

// Trigger phrases per command. Classification searches these as substrings
// of the whole joined query, in the order of classificationOrder.
var triggerPhrases = map[Command][]string{
	CommandSay:           {"say", "greet", "repeat"},
	CommandSearch:        {"search", "look up", "google"},
	CommandTime:          {"time", "what time is it", "what is the time", "can you tell me the time", "tell me the time"},
	CommandWikipedia:     {"wikipedia", "summarize"},
	CommandJoke:          {"joke", "can you tell me a joke", "tell me something funny", "something funny"},
	CommandReadSchedule:  {"what do i have", "do i have plans", "am i busy", "read my", "read schedule"},
	CommandScheduleEvent: {"book", "schedule", "create"},
	CommandExit:          {"quit", "exit", "leave", "finish", "end", "close", "goodbye", "good night"},
	CommandPredict:       {"predict"},
}

// classificationOrder fixes the phrase-match priority: a query matching
// several categories resolves to the earliest one here.
var classificationOrder = []Command{
	CommandReadSchedule,
	CommandScheduleEvent,
	CommandTime,
	CommandJoke,
	CommandExit,
	CommandSearch,
	CommandPredict,
}

// fallbackKeywords maps a literal first token to a command when no trigger
// phrase matched.
var fallbackKeywords = map[string]Command{
	"say":       CommandSay,
	"search":    CommandSearch,
	"time":      CommandTime,
	"wikipedia": CommandWikipedia,
	"joke":      CommandJoke,
	"quit":      CommandExit,
}

// Classify resolves a tokenized query to a command. Phrase matches keep the
// query intact; the keyword fallback consumes the first token. Queries that
// match nothing classify as CommandUnknown.
func Classify(query []string) (Command, []string) {
	joined := strings.Join(query, " ")
	for _, command := range classificationOrder {
		for _, phrase := range triggerPhrases[command] {
			if strings.Contains(joined, phrase) {
				return command, query
			}
		}
	}

	if len(query) > 0 {
		if command, ok := fallbackKeywords[query[0]]; ok {
			return command, query[1:]
		}
	}
	return CommandUnknown, query
}
