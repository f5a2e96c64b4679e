package msglog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flexapi/explorer/internal/model"
)

func TestIsEmptyReply(t *testing.T) {
	tests := []struct {
		text     string
		expected bool
	}{
		{"R1|0|", true},
		{"R1|0", true},
		{"R12|00000000|", true},
		{"R12|0| ", true},
		{"R1|0|slice 0", false},
		{"R1|50000015|", false},
		{"R1||", false},
		{"R1", false},
		{"C1|0|", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, IsEmptyReply(tt.text), "IsEmptyReply(%q)", tt.text)
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		text       string
		command    bool
		status     bool
		idleStatus bool
		reply      bool
	}{
		{"C3|sub slice all", true, false, false, false},
		{"S4A3B2C1|slice 0 RF_frequency=14.100000", false, true, false, false},
		{"S05F2A3B1|radio callsign=N0CALL", false, true, false, false},
		{"S0|interlock state=READY", false, false, true, false},
		{"R3|0|", false, false, false, true},
		{"V1.4.0.0", false, false, false, false},
		{"garbage", false, false, false, false},
		{"", false, false, false, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.command, IsCommand(tt.text), "IsCommand(%q)", tt.text)
		assert.Equal(t, tt.status, IsStatus(tt.text), "IsStatus(%q)", tt.text)
		assert.Equal(t, tt.idleStatus, IsIdleStatus(tt.text), "IsIdleStatus(%q)", tt.text)
		assert.Equal(t, tt.reply, IsReply(tt.text), "IsReply(%q)", tt.text)
	}
}

func TestSuppress(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		isInput  bool
		settings model.FilterSettings
		drop     bool
		reason   string
	}{
		{"empty reply hidden", "R1|0|", true, model.FilterSettings{}, true, ReasonEmptyReply},
		{"empty reply shown", "R1|0|", true, model.FilterSettings{ShowReplies: true}, false, ""},
		{"reply with payload kept", "R1|0|3", true, model.FilterSettings{}, false, ""},
		{"error reply kept", "R1|5000002D|", true, model.FilterSettings{}, false, ""},
		{"sent reply-like text kept", "R1|0|", false, model.FilterSettings{}, false, ""},
		{"idle status ignored", "S0|interlock state=READY", true, model.FilterSettings{IgnoreIdleStatus: true}, true, ReasonIdleStatus},
		{"idle status kept", "S0|interlock state=READY", true, model.FilterSettings{}, false, ""},
		{"handle status kept", "S1A|slice 0 mode=USB", true, model.FilterSettings{IgnoreIdleStatus: true}, false, ""},
		{"ping hidden", "C9|ping", false, model.FilterSettings{}, true, ReasonPing},
		{"ping shown", "C9|ping", false, model.FilterSettings{ShowPings: true}, false, ""},
		{"reply rule before ping rule", "R9|0|", true, model.FilterSettings{ShowPings: true}, true, ReasonEmptyReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drop, reason := Suppress(tt.text, tt.isInput, tt.settings)
			assert.Equal(t, tt.drop, drop)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func sampleHistory() []model.Message {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	texts := []struct {
		text    string
		isInput bool
	}{
		{"C1|info", false},
		{"R1|0|model=FLEX-6600", true},
		{"S0|interlock state=READY", true},
		{"S4A3B2C1|slice 0 mode=USB", true},
		{"C2|slice tune 0 14.1", false},
		{"R2|50000015|", true},
		{"M10000001|message", true},
		{"", true},
	}
	out := make([]model.Message, len(texts))
	for i, tt := range texts {
		out[i] = model.NewMessage(tt.text, tt.isInput, start, start.Add(time.Duration(i)*time.Second))
	}
	return out
}

func texts(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func TestApply(t *testing.T) {
	history := sampleHistory()

	tests := []struct {
		name     string
		settings model.FilterSettings
		expected []string
	}{
		{"all", model.FilterSettings{Kind: model.FilterAll}, texts(history)},
		{"prefix", model.FilterSettings{Kind: model.FilterPrefix, Text: "C"}, []string{"C1|info", "C2|slice tune 0 14.1"}},
		{"prefix empty text", model.FilterSettings{Kind: model.FilterPrefix}, texts(history)},
		{"includes", model.FilterSettings{Kind: model.FilterIncludes, Text: "slice"}, []string{"S4A3B2C1|slice 0 mode=USB", "C2|slice tune 0 14.1"}},
		{"includes empty text", model.FilterSettings{Kind: model.FilterIncludes}, texts(history)},
		{"excludes", model.FilterSettings{Kind: model.FilterExcludes, Text: "|"}, []string{""}},
		{"excludes empty text", model.FilterSettings{Kind: model.FilterExcludes}, texts(history)},
		{"command", model.FilterSettings{Kind: model.FilterCommand}, []string{"C1|info", "C2|slice tune 0 14.1"}},
		{"status", model.FilterSettings{Kind: model.FilterStatus}, []string{"S4A3B2C1|slice 0 mode=USB"}},
		{"reply", model.FilterSettings{Kind: model.FilterReply}, []string{"R1|0|model=FLEX-6600", "R2|50000015|"}},
		{"idle status", model.FilterSettings{Kind: model.FilterIdleStatus}, []string{"S0|interlock state=READY"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			visible := Apply(history, tt.settings)
			assert.Equal(t, tt.expected, texts(visible))
		})
	}
}

func TestApply_MatchesFullRecompute(t *testing.T) {
	history := sampleHistory()

	for _, kind := range model.FilterKinds() {
		for _, text := range []string{"", "S", "slice", "|0|"} {
			settings := model.FilterSettings{Kind: kind, Text: text}

			var expected []model.Message
			for _, m := range history {
				if Match(m, settings) {
					expected = append(expected, m)
				}
			}

			first := Apply(history, settings)
			second := Apply(history, settings)
			assert.Equal(t, texts(expected), texts(first), "kind=%s text=%q", kind, text)
			assert.Equal(t, first, second, "Apply must be idempotent for kind=%s", kind)
		}
	}
}

func TestApply_DoesNotAliasHistory(t *testing.T) {
	history := sampleHistory()
	visible := Apply(history, model.FilterSettings{Kind: model.FilterAll})
	visible[0].Text = "changed"
	assert.Equal(t, "C1|info", history[0].Text)
}
