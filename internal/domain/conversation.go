package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/stockroom/internal/credparse"
)

type Flow string

const (
	FlowIssue  Flow = "issue"
	FlowIngest Flow = "ingest"
)

type Step string

const (
	StepChooseType     Step = "choose_type"
	StepChooseQuantity Step = "choose_quantity"
	StepCustomType     Step = "custom_type"
	StepPasteText      Step = "paste_text"
)

// Conversation is the in-progress state of one actor's dialog. The
// zero value of the interface (nil) is idle.
type Conversation interface {
	Flow() Flow
	CurrentStep() Step
	conversation()
}

type IssueState struct {
	Step     Step
	Type     ResourceType
	Quantity int
}

func (IssueState) Flow() Flow { return FlowIssue }
func (s IssueState) CurrentStep() Step { return s.Step }
func (IssueState) conversation() {}

type IngestState struct {
	Step    Step
	Type    ResourceType
	Custom  bool
	Rows    []credparse.Credential
	Skipped int
}

func (IngestState) Flow() Flow { return FlowIngest }
func (s IngestState) CurrentStep() Step { return s.Step }
func (IngestState) conversation() {}

const (
	InputBack   = "back"
	InputCancel = "cancel"
	InputCustom = "other"
)

func IsBack(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	return text == InputBack || text == "/back"
}

func IsCancel(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	return text == InputCancel || text == "/cancel"
}

type Prompt string

const (
	PromptIdle           Prompt = "idle"
	PromptCancelled      Prompt = "cancelled"
	PromptChooseType     Prompt = "choose_type"
	PromptChooseQuantity Prompt = "choose_quantity"
	PromptCustomType     Prompt = "custom_type"
	PromptPasteText      Prompt = "paste_text"
	PromptDone           Prompt = "done"
)

// DialogPolicy is the data transitions validate against.
type DialogPolicy struct {
	IssueTypes  []ResourceType
	IngestTypes []ResourceType
	MaxQuantity int
}

func containsType(types []ResourceType, t ResourceType) bool {
	for _, known := range types {
		if known == t {
			return true
		}
	}
	return false
}

// Transition is the pure result of feeding one message to a conversation.
// Next nil means idle. Completed carries the fully collected state whose
// effect the caller must run.
type Transition struct {
	Next      Conversation
	Prompt    Prompt
	Rejection string
	Completed Conversation
}

func (t Transition) Rejected() bool {
	return t.Rejection != ""
}

func Start(flow Flow) Transition {
	switch flow {
	case FlowIssue:
		return Transition{Next: IssueState{Step: StepChooseType}, Prompt: PromptChooseType}
	case FlowIngest:
		return Transition{Next: IngestState{Step: StepChooseType}, Prompt: PromptChooseType}
	default:
		return Transition{Prompt: PromptIdle}
	}
}

// Advance is total: every (state, input) pair yields a transition.
func Advance(state Conversation, input string, policy DialogPolicy) Transition {
	if state == nil {
		return Transition{Prompt: PromptIdle}
	}
	if IsCancel(input) {
		return Transition{Prompt: PromptCancelled}
	}
	if IsBack(input) {
		return Back(state)
	}

	switch s := state.(type) {
	case IssueState:
		return advanceIssue(s, input, policy)
	case IngestState:
		return advanceIngest(s, input, policy)
	default:
		return Transition{Prompt: PromptIdle}
	}
}

func Back(state Conversation) Transition {
	switch s := state.(type) {
	case IssueState:
		if s.Step == StepChooseQuantity {
			return Transition{Next: IssueState{Step: StepChooseType}, Prompt: PromptChooseType}
		}
	case IngestState:
		switch s.Step {
		case StepCustomType:
			return Transition{Next: IngestState{Step: StepChooseType}, Prompt: PromptChooseType}
		case StepPasteText:
			if s.Custom {
				return Transition{Next: IngestState{Step: StepCustomType, Custom: true}, Prompt: PromptCustomType}
			}
			return Transition{Next: IngestState{Step: StepChooseType}, Prompt: PromptChooseType}
		}
	}
	return Transition{Prompt: PromptIdle}
}

func stay(state Conversation, prompt Prompt, format string, args ...any) Transition {
	return Transition{Next: state, Prompt: prompt, Rejection: fmt.Sprintf(format, args...)}
}

func advanceIssue(s IssueState, input string, policy DialogPolicy) Transition {
	switch s.Step {
	case StepChooseType:
		resourceType := NormalizeType(input)
		if !containsType(policy.IssueTypes, resourceType) {
			return stay(s, PromptChooseType, "unknown type %q", strings.TrimSpace(input))
		}
		return Transition{Next: IssueState{Step: StepChooseQuantity, Type: resourceType}, Prompt: PromptChooseQuantity}
	case StepChooseQuantity:
		quantity, err := strconv.Atoi(strings.TrimSpace(input))
		if err != nil || quantity < 1 || quantity > policy.MaxQuantity {
			return stay(s, PromptChooseQuantity, "quantity must be a number from 1 to %d", policy.MaxQuantity)
		}
		return Transition{
			Prompt:    PromptDone,
			Completed: IssueState{Step: StepChooseQuantity, Type: s.Type, Quantity: quantity},
		}
	default:
		return Transition{Prompt: PromptIdle}
	}
}

func advanceIngest(s IngestState, input string, policy DialogPolicy) Transition {
	switch s.Step {
	case StepChooseType:
		if strings.EqualFold(strings.TrimSpace(input), InputCustom) {
			return Transition{Next: IngestState{Step: StepCustomType, Custom: true}, Prompt: PromptCustomType}
		}
		resourceType := NormalizeType(input)
		if !containsType(policy.IngestTypes, resourceType) {
			return stay(s, PromptChooseType, "unknown type %q, send %q to name a new one", strings.TrimSpace(input), InputCustom)
		}
		return Transition{Next: IngestState{Step: StepPasteText, Type: resourceType}, Prompt: PromptPasteText}
	case StepCustomType:
		resourceType := NormalizeType(input)
		if !resourceType.Valid() {
			return stay(s, PromptCustomType, "type must be a single word")
		}
		return Transition{Next: IngestState{Step: StepPasteText, Type: resourceType, Custom: true}, Prompt: PromptPasteText}
	case StepPasteText:
		rows, skipped := credparse.ParseBlock(input)
		if len(rows) == 0 {
			return stay(s, PromptPasteText, "no credentials recognized in %d line(s)", skipped)
		}
		return Transition{
			Prompt: PromptDone,
			Completed: IngestState{
				Step:    StepPasteText,
				Type:    s.Type,
				Custom:  s.Custom,
				Rows:    rows,
				Skipped: skipped,
			},
		}
	default:
		return Transition{Prompt: PromptIdle}
	}
}

// ConversationRecord is the persisted form of a conversation. Collected
// rows and quantities are never stored.
type ConversationRecord struct {
	Flow      Flow         `json:"flow" toml:"flow"`
	Step      Step         `json:"step" toml:"step"`
	Type      ResourceType `json:"type,omitempty" toml:"type,omitempty"`
	Custom    bool         `json:"custom,omitempty" toml:"custom,omitempty"`
	UpdatedAt time.Time    `json:"updated_at" toml:"updated_at"`
}

func EncodeConversation(state Conversation, at time.Time) ConversationRecord {
	record := ConversationRecord{Flow: state.Flow(), Step: state.CurrentStep(), UpdatedAt: at.UTC()}
	switch s := state.(type) {
	case IssueState:
		record.Type = s.Type
	case IngestState:
		record.Type = s.Type
		record.Custom = s.Custom
	}
	return record
}

func (r ConversationRecord) Decode() (Conversation, error) {
	switch r.Flow {
	case FlowIssue:
		switch r.Step {
		case StepChooseType:
			return IssueState{Step: r.Step}, nil
		case StepChooseQuantity:
			if r.Type == "" {
				break
			}
			return IssueState{Step: r.Step, Type: r.Type}, nil
		}
	case FlowIngest:
		switch r.Step {
		case StepChooseType:
			return IngestState{Step: r.Step}, nil
		case StepCustomType:
			return IngestState{Step: r.Step, Custom: true}, nil
		case StepPasteText:
			if r.Type == "" {
				break
			}
			return IngestState{Step: r.Step, Type: r.Type, Custom: r.Custom}, nil
		}
	}
	return nil, fmt.Errorf("%w: flow %q step %q", ErrConversationCorrupt, r.Flow, r.Step)
}
