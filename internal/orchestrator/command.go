package orchestrator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mikey/llm-mailbot/internal/core"
)

// Kind identifies what a chat message asks for
type Kind string

const (
	KindHelp             Kind = "help"
	KindListRules        Kind = "rules"
	KindAddRule          Kind = "rule_add"
	KindRemoveRule       Kind = "rule_remove"
	KindClearRules       Kind = "rules_clear"
	KindClassify         Kind = "classify"
	KindRecent           Kind = "recent"
	KindShowInstructions Kind = "instructions_show"
	KindSetInstructions  Kind = "instructions_set"
	KindList             Kind = "list"
	KindSearch           Kind = "search"
	KindCompose          Kind = "compose"
	KindRevise           Kind = "revise"
	KindApprove          Kind = "approve"
	KindSend             Kind = "send"
	KindCancel           Kind = "cancel"
	KindStatus           Kind = "draft"
)

// Command is a parsed chat message
type Command struct {
	Kind Kind

	// rule add / remove
	Rule     core.Rule
	Pattern  string
	Position int

	// classify, list, recent, search
	Bucket string
	Limit  int
	Query  string

	// compose
	Recipient string
	Intent    string
	Tone      string

	// revise, instructions
	Text string
}

// ParseError explains why a message could not be understood
type ParseError struct {
	Usage string
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Usage == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s. Usage: %s", e.Msg, e.Usage)
}

const (
	usageRuleAdd    = "rule add <sender|subject|contains> <pattern> -> <folder>"
	usageRuleRemove = "rule remove <pattern|#n>"
	usageClassify   = "classify <folder> [limit]"
	usageSearch     = "search <text>"
	usageCompose    = "write to <name|address>: <what to say>"
	usageRevise     = "revise <changes>"
)

// Parse turns free text into a Command. Keywords are case-insensitive.
func Parse(text string) (Command, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Command{Kind: KindHelp}, nil
	}

	head, rest := splitWord(text)
	switch strings.ToLower(head) {
	case "help", "?", "commands":
		return Command{Kind: KindHelp}, nil

	case "rules", "rule":
		return parseRule(rest)

	case "classify", "reclassify", "file", "sort":
		bucket, limit := splitLimit(rest)
		if bucket == "" {
			return Command{}, &ParseError{Usage: usageClassify, Msg: "Which folder should I classify?"}
		}
		return Command{Kind: KindClassify, Bucket: bucket, Limit: limit}, nil

	case "recent", "history":
		_, limit := splitLimit(rest)
		return Command{Kind: KindRecent, Limit: limit}, nil

	case "instructions", "instruction":
		if rest == "" {
			return Command{Kind: KindShowInstructions}, nil
		}
		if strings.EqualFold(rest, "clear") || strings.EqualFold(rest, "reset") {
			return Command{Kind: KindSetInstructions}, nil
		}
		return Command{Kind: KindSetInstructions, Text: rest}, nil

	case "list", "summary", "summarize":
		bucket, limit := splitLimit(rest)
		if bucket == "" {
			bucket = "INBOX"
		}
		return Command{Kind: KindList, Bucket: bucket, Limit: limit}, nil

	case "search", "find":
		if rest == "" {
			return Command{}, &ParseError{Usage: usageSearch, Msg: "What should I search for?"}
		}
		return Command{Kind: KindSearch, Query: rest}, nil

	case "write", "email", "compose", "mail":
		return parseCompose(rest)

	case "revise", "change", "edit", "rewrite":
		if rest == "" {
			return Command{}, &ParseError{Usage: usageRevise, Msg: "What should I change?"}
		}
		if strings.EqualFold(head, "revise") {
			return Command{Kind: KindRevise, Text: rest}, nil
		}
		return Command{Kind: KindRevise, Text: text}, nil

	case "approve", "ok", "looks":
		return Command{Kind: KindApprove}, nil

	case "send", "yes", "confirm":
		return Command{Kind: KindSend}, nil

	case "cancel", "abort", "discard":
		return Command{Kind: KindCancel}, nil

	case "draft", "status":
		return Command{Kind: KindStatus}, nil
	}

	return Command{}, &ParseError{Msg: fmt.Sprintf("I don't understand %q. Type \"help\" for the commands", head)}
}

func parseRule(rest string) (Command, error) {
	verb, args := splitWord(rest)
	switch strings.ToLower(verb) {
	case "", "list", "show":
		return Command{Kind: KindListRules}, nil

	case "clear", "reset":
		return Command{Kind: KindClearRules}, nil

	case "add", "new":
		typ, body := splitWord(args)
		matchType, err := core.ParseMatchType(typ)
		if err != nil {
			return Command{}, &ParseError{Usage: usageRuleAdd, Msg: "Unknown match type " + strconv.Quote(typ)}
		}
		pattern, folder, ok := strings.Cut(body, "->")
		pattern, folder = unquote(pattern), unquote(folder)
		if !ok || pattern == "" || folder == "" {
			return Command{}, &ParseError{Usage: usageRuleAdd, Msg: "A rule needs a pattern and a folder"}
		}
		return Command{
			Kind: KindAddRule,
			Rule: core.Rule{Pattern: pattern, Folder: folder, MatchType: matchType},
		}, nil

	case "remove", "delete", "rm":
		args = strings.TrimSpace(args)
		if args == "" {
			return Command{}, &ParseError{Usage: usageRuleRemove, Msg: "Which rule should I remove?"}
		}
		if strings.HasPrefix(args, "#") {
			n, err := strconv.Atoi(strings.TrimSpace(args[1:]))
			if err != nil {
				return Command{}, &ParseError{Usage: usageRuleRemove, Msg: "Rule numbers look like #2"}
			}
			return Command{Kind: KindRemoveRule, Position: n}, nil
		}
		return Command{Kind: KindRemoveRule, Pattern: unquote(args)}, nil
	}

	return Command{}, &ParseError{
		Usage: "rules | " + usageRuleAdd + " | " + usageRuleRemove + " | rules clear",
		Msg:   fmt.Sprintf("Unknown rule command %q", verb),
	}
}

// parseCompose accepts "to <who>: <intent>", "<who>: <intent>" and
// "to <who> about <intent>", with an optional "(<tone>)" after the recipient
func parseCompose(rest string) (Command, error) {
	word, after := splitWord(rest)
	if strings.EqualFold(word, "to") {
		rest = after
	}

	who, intent, ok := strings.Cut(rest, ":")
	if !ok {
		lower := strings.ToLower(rest)
		if i := strings.Index(lower, " about "); i >= 0 {
			who, intent, ok = rest[:i], rest[i+len(" about "):], true
		}
	}
	who, intent = strings.TrimSpace(who), strings.TrimSpace(intent)
	if !ok || who == "" || intent == "" {
		return Command{}, &ParseError{Usage: usageCompose, Msg: "Tell me who to write to and what to say"}
	}

	var tone string
	if open := strings.LastIndex(who, "("); open > 0 && strings.HasSuffix(who, ")") {
		tone = strings.TrimSpace(who[open+1 : len(who)-1])
		who = strings.TrimSpace(who[:open])
	}

	return Command{Kind: KindCompose, Recipient: who, Intent: intent, Tone: tone}, nil
}

func splitWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' })
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}

// splitLimit separates a trailing number from a folder name
func splitLimit(s string) (string, int) {
	s = strings.TrimSpace(s)
	i := strings.LastIndexAny(s, " \t")
	last := s[i+1:]
	if n, err := strconv.Atoi(last); err == nil && n > 0 {
		return unquote(s[:max(i, 0)]), n
	}
	return unquote(s), 0
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\'') {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
