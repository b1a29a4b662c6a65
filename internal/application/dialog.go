package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bnema/stockroom/internal/credparse"
	"github.com/bnema/stockroom/internal/domain"
	"github.com/bnema/stockroom/internal/ports"
)

const (
	CommandIssue  = "/issue"
	CommandUpload = "/upload"
)

const (
	idleHint    = "No dialog in progress. Send /issue to take resources or /upload to add stock."
	restartHint = "Your previous dialog could not be resumed. Send /issue or /upload to start again."
	failureText = "Something went wrong on our side. Nothing was changed, please try again."
)

type Inbound struct {
	Actor domain.Actor
	// Key identifies the conversation; it defaults to the actor id.
	Key  string
	Text string
}

type Reply struct {
	Text     string
	Flow     domain.Flow
	Step     domain.Step
	Options  []string
	Rejected bool
	Issued   []domain.Resource
	Ingested *IngestResult
}

type DialogConfig struct {
	Types       []domain.ResourceType
	IngestPrice decimal.Decimal
}

// Dialog drives the multi-step issue and upload conversations. It owns the
// side effects; the transitions themselves are pure domain functions.
type Dialog struct {
	conversations ports.ConversationStore
	inventory     ports.Inventory
	allocation    *AllocationService
	ingestion     *IngestionService
	config        DialogConfig
	logger        zerolog.Logger
}

func NewDialog(conversations ports.ConversationStore, inventory ports.Inventory, allocation *AllocationService, ingestion *IngestionService, config DialogConfig, logger zerolog.Logger) *Dialog {
	return &Dialog{
		conversations: conversations,
		inventory:     inventory,
		allocation:    allocation,
		ingestion:     ingestion,
		config:        config,
		logger:        logger,
	}
}

func capabilityFor(flow domain.Flow) domain.Capability {
	if flow == domain.FlowIngest {
		return domain.CapabilityIngest
	}
	return domain.CapabilityIssue
}

// Handle feeds one message to the actor's conversation. Only store
// failures come back as errors; the reply is always safe to show.
func (d *Dialog) Handle(ctx context.Context, in Inbound) (Reply, error) {
	key := in.Key
	if key == "" {
		key = strconv.FormatInt(int64(in.Actor.ID), 10)
	}
	log := d.logger.With().
		Str("request_id", ulid.Make().String()).
		Int64("actor_id", int64(in.Actor.ID)).
		Str("role", string(in.Actor.Role)).
		Logger()
	text := strings.TrimSpace(in.Text)

	switch strings.ToLower(text) {
	case CommandIssue:
		return d.start(ctx, log, key, in.Actor, domain.FlowIssue)
	case CommandUpload:
		return d.start(ctx, log, key, in.Actor, domain.FlowIngest)
	}

	state, err := d.conversations.Get(ctx, key)
	switch {
	case errors.Is(err, domain.ErrConversationNotFound):
		state = nil
	case errors.Is(err, domain.ErrConversationCorrupt):
		log.Warn().Err(err).Msg("dropping unreadable conversation")
		if err := d.conversations.Clear(ctx, key); err != nil {
			return Reply{Text: failureText}, fmt.Errorf("clear conversation: %w", err)
		}
		return Reply{Text: restartHint}, nil
	case err != nil:
		return Reply{Text: failureText}, fmt.Errorf("load conversation: %w", err)
	}

	if state == nil {
		if domain.IsCancel(text) || domain.IsBack(text) {
			return Reply{Text: "Nothing to cancel. " + idleHint}, nil
		}
		return Reply{Text: idleHint}, nil
	}

	if err := in.Actor.Require(capabilityFor(state.Flow())); err != nil {
		if clearErr := d.conversations.Clear(ctx, key); clearErr != nil {
			return Reply{Text: failureText}, fmt.Errorf("clear conversation: %w", clearErr)
		}
		return Reply{Text: err.Error(), Rejected: true}, nil
	}

	policy, err := d.policy(ctx)
	if err != nil {
		return Reply{Text: failureText}, err
	}

	transition := domain.Advance(state, text, policy)
	log.Debug().
		Str("flow", string(state.Flow())).
		Str("step", string(state.CurrentStep())).
		Str("prompt", string(transition.Prompt)).
		Bool("rejected", transition.Rejected()).
		Msg("dialog transition")

	if transition.Completed != nil {
		if err := d.conversations.Clear(ctx, key); err != nil {
			return Reply{Text: failureText}, fmt.Errorf("clear conversation: %w", err)
		}
		return d.complete(ctx, log, in.Actor, transition.Completed)
	}

	if transition.Next == nil {
		if err := d.conversations.Clear(ctx, key); err != nil {
			return Reply{Text: failureText}, fmt.Errorf("clear conversation: %w", err)
		}
		if transition.Prompt == domain.PromptCancelled {
			return Reply{Text: "Cancelled."}, nil
		}
		return Reply{Text: "Back to the main menu. " + idleHint}, nil
	}

	if err := d.conversations.Set(ctx, key, transition.Next); err != nil {
		return Reply{Text: failureText}, fmt.Errorf("save conversation: %w", err)
	}
	reply := d.prompt(transition.Next, policy)
	if transition.Rejected() {
		reply.Rejected = true
		reply.Text = capitalize(transition.Rejection) + ". " + reply.Text
	}
	return reply, nil
}

func (d *Dialog) start(ctx context.Context, log zerolog.Logger, key string, actor domain.Actor, flow domain.Flow) (Reply, error) {
	if err := actor.Require(capabilityFor(flow)); err != nil {
		return Reply{Text: err.Error(), Rejected: true}, nil
	}

	policy, err := d.policy(ctx)
	if err != nil {
		return Reply{Text: failureText}, err
	}

	transition := domain.Start(flow)
	if err := d.conversations.Set(ctx, key, transition.Next); err != nil {
		return Reply{Text: failureText}, fmt.Errorf("save conversation: %w", err)
	}
	log.Debug().Str("flow", string(flow)).Msg("dialog started")
	return d.prompt(transition.Next, policy), nil
}

func (d *Dialog) policy(ctx context.Context) (domain.DialogPolicy, error) {
	known := make(map[domain.ResourceType]struct{}, len(d.config.Types))
	for _, t := range d.config.Types {
		if t = domain.NormalizeType(string(t)); t != "" {
			known[t] = struct{}{}
		}
	}

	stocked, err := d.inventory.Types(ctx)
	if err != nil {
		return domain.DialogPolicy{}, fmt.Errorf("list types: %w", err)
	}
	for _, t := range stocked {
		known[t] = struct{}{}
	}

	types := make([]domain.ResourceType, 0, len(known))
	for t := range known {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return domain.DialogPolicy{IssueTypes: types, IngestTypes: types, MaxQuantity: d.allocation.MaxPerRequest()}, nil
}

func (d *Dialog) prompt(state domain.Conversation, policy domain.DialogPolicy) Reply {
	reply := Reply{Flow: state.Flow(), Step: state.CurrentStep()}
	names := typeNames(policy.IssueTypes)

	switch s := state.(type) {
	case domain.IssueState:
		switch s.Step {
		case domain.StepChooseType:
			reply.Text = "Which type do you need? " + strings.Join(names, ", ") + "."
			reply.Options = names
		case domain.StepChooseQuantity:
			reply.Text = fmt.Sprintf("How many %s? Send a number from 1 to %d.", s.Type, policy.MaxQuantity)
			for n := 1; n <= policy.MaxQuantity; n++ {
				reply.Options = append(reply.Options, strconv.Itoa(n))
			}
		}
	case domain.IngestState:
		switch s.Step {
		case domain.StepChooseType:
			reply.Text = "Which type are you uploading? " + strings.Join(names, ", ") + ", or send " + domain.InputCustom + " for a new type."
			reply.Options = append(names, domain.InputCustom)
		case domain.StepCustomType:
			reply.Text = "Send the name of the new type, one word."
		case domain.StepPasteText:
			reply.Text = fmt.Sprintf("Paste %s credentials, one per line (login:password[:proxy]).", s.Type)
		}
	}
	reply.Options = append(reply.Options, domain.InputBack, domain.InputCancel)
	return reply
}

func (d *Dialog) complete(ctx context.Context, log zerolog.Logger, actor domain.Actor, completed domain.Conversation) (Reply, error) {
	switch s := completed.(type) {
	case domain.IssueState:
		issued, err := d.allocation.Allocate(ctx, actor, s.Type, s.Quantity)
		if err != nil {
			return rejectionOrFailure(log, err)
		}
		return Reply{Flow: domain.FlowIssue, Text: IssuedText(s.Type, s.Quantity, issued), Issued: issued}, nil
	case domain.IngestState:
		result, err := d.ingestion.IngestRows(ctx, actor, s.Type, s.Rows, s.Skipped, d.config.IngestPrice)
		if err != nil {
			return rejectionOrFailure(log, err)
		}
		return Reply{Flow: domain.FlowIngest, Text: IngestText(result), Ingested: &result}, nil
	default:
		return Reply{Text: idleHint}, nil
	}
}

func rejectionOrFailure(log zerolog.Logger, err error) (Reply, error) {
	if domain.IsRejection(err) {
		return Reply{Text: err.Error(), Rejected: true}, nil
	}
	log.Error().Err(err).Msg("dialog effect failed")
	return Reply{Text: failureText}, err
}

// IssuedText lists issued credentials, one per line.
func IssuedText(resourceType domain.ResourceType, requested int, issued []domain.Resource) string {
	if len(issued) == 0 {
		return fmt.Sprintf("No free %s resources right now.", resourceType)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Issued %d of %d %s:", len(issued), requested, resourceType)
	for _, r := range issued {
		fmt.Fprintf(&b, "\n#%d %s", r.ID, credparse.Format(credparse.Credential{Login: r.Login, Password: r.Password, Proxy: r.Proxy}))
	}
	return b.String()
}

func IngestText(result IngestResult) string {
	return fmt.Sprintf("Uploaded %s: %d added, %d duplicates, %d failed, %d unreadable lines.",
		result.Type, result.Inserted, result.Duplicates, result.Failed, result.Skipped)
}

func typeNames(types []domain.ResourceType) []string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return names
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
