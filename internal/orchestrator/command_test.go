package orchestrator

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/llm-mailbot/internal/core"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"", Command{Kind: KindHelp}},
		{"HELP", Command{Kind: KindHelp}},
		{"rules", Command{Kind: KindListRules}},
		{"rule list", Command{Kind: KindListRules}},
		{"rules clear", Command{Kind: KindClearRules}},
		{"rule add sender linkedin -> Social", Command{
			Kind: KindAddRule,
			Rule: core.Rule{Pattern: "linkedin", Folder: "Social", MatchType: core.MatchSender},
		}},
		{"rule add Subject 'weekly report' -> 📰 News", Command{
			Kind: KindAddRule,
			Rule: core.Rule{Pattern: "weekly report", Folder: "📰 News", MatchType: core.MatchSubject},
		}},
		{"rule remove #2", Command{Kind: KindRemoveRule, Position: 2}},
		{"rule remove linkedin", Command{Kind: KindRemoveRule, Pattern: "linkedin"}},
		{"classify INBOX", Command{Kind: KindClassify, Bucket: "INBOX"}},
		{"classify Old Mail 20", Command{Kind: KindClassify, Bucket: "Old Mail", Limit: 20}},
		{"recent 5", Command{Kind: KindRecent, Limit: 5}},
		{"instructions", Command{Kind: KindShowInstructions}},
		{"instructions shops are promotions", Command{Kind: KindSetInstructions, Text: "shops are promotions"}},
		{"instructions clear", Command{Kind: KindSetInstructions}},
		{"list", Command{Kind: KindList, Bucket: "INBOX"}},
		{"summarize Work 3", Command{Kind: KindList, Bucket: "Work", Limit: 3}},
		{"search invoice 42", Command{Kind: KindSearch, Query: "invoice 42"}},
		{"write to Jean: lunch on friday?", Command{Kind: KindCompose, Recipient: "Jean", Intent: "lunch on friday?"}},
		{"email bob@example.com about the report", Command{Kind: KindCompose, Recipient: "bob@example.com", Intent: "the report"}},
		{"compose to Jean (formal): thanks", Command{Kind: KindCompose, Recipient: "Jean", Intent: "thanks", Tone: "formal"}},
		{"revise make it shorter", Command{Kind: KindRevise, Text: "make it shorter"}},
		{"change the tone to formal", Command{Kind: KindRevise, Text: "change the tone to formal"}},
		{"approve", Command{Kind: KindApprove}},
		{"Yes", Command{Kind: KindSend}},
		{"confirm", Command{Kind: KindSend}},
		{"cancel", Command{Kind: KindCancel}},
		{"draft", Command{Kind: KindStatus}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		in      string
		message string
	}{
		{"rule add sender linkedin", "Usage: rule add"},
		{"rule add from linkedin -> Social", "Unknown match type"},
		{"rule remove #two", "#2"},
		{"rule rename x", "Unknown rule command"},
		{"classify", "Which folder"},
		{"classify 10", "Which folder"},
		{"search", "What should I search for"},
		{"write to jean", "Tell me who to write to"},
		{"revise", "What should I change"},
		{"dance", "I don't understand"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := Parse(tt.in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
