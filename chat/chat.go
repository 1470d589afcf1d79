package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/apexhq/apex/internal/auth"
	"github.com/apexhq/apex/internal/cli"
	"github.com/apexhq/apex/internal/configuration"
	"github.com/apexhq/apex/internal/file"
	"github.com/apexhq/apex/internal/gen"
	"github.com/apexhq/apex/internal/history"
	"github.com/apexhq/apex/internal/types"
	"github.com/apexhq/apex/session"
	"github.com/apexhq/apex/store"
	"github.com/apexhq/apex/turn"
)

// Video turns poll for minutes; everything else finishes well within the
// configured request timeout.
const videoTurnTimeout = 15 * time.Minute

// NewCmd instantiates and returns the chat command.
func NewCmd(config *configuration.Config, s *store.Store, logger zerolog.Logger) *cobra.Command {
	var opts struct {
		ConversationID string
		Mode           string
	}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Converse with Apex",
		Long:  "Back and forth conversation with the Apex assistant",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			identity := auth.NewStaticProvider(config.User)
			user, err := identity.CurrentUser()
			cobra.CheckErr(err)

			client, err := gen.NewGeminiClient(cmd.Context(), config.GeminiAPIKey, gen.Models{
				Chat:  config.Models.Chat,
				Image: config.Models.Image,
				Video: config.Models.Video,
				Title: config.Models.Title,
			})
			cobra.CheckErr(err)

			printer := newPrinter(s)
			sessions := session.NewCache(client, logger)
			orchestrator := turn.New(s, sessions, client, logger, turn.WithObserver(printer))

			// Resolve the conversation to converse in.
			var conversation *types.Conversation
			if opts.ConversationID != "" {
				var ok bool
				conversation, ok = s.GetConversation(opts.ConversationID)
				if !ok {
					cobra.CheckErr(fmt.Errorf("conversation %q not found", opts.ConversationID))
				}
			} else {
				conversation = s.CreateConversation()
			}
			if opts.Mode != "" {
				mode, ok := types.ParseMode(opts.Mode)
				if !ok {
					cobra.CheckErr(fmt.Errorf("unknown mode %q", opts.Mode))
				}
				orchestrator.SetMode(conversation.ID, mode)
			}

			r := &repl{
				config:       config,
				store:        s,
				orchestrator: orchestrator,
				regenerator:  turn.NewRegenerator(orchestrator),
				printer:      printer,
				prompts:      history.New(),
				conversation: conversation.ID,
			}
			r.printer.SetActive(conversation.ID)

			conversationID := conversation.ID
			conversation, ok := s.GetConversation(conversationID)
			if !ok {
				cobra.CheckErr(fmt.Errorf("conversation %q not found", conversationID))
			}
			cli.Title("APEX CHAT [%s](%s)", conversation.Mode, conversation.ID)
			cli.UserCommand("Signed in as %s (%s). Type /help for commands.\n", user.DisplayName, user.Provider)
			r.printHistory(conversation)
			cli.Separator()
			r.loop(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&opts.ConversationID, "id", "", "resume an existing conversation")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "set the conversation mode (default, code, image, video, deepsearch)")
	cmd.AddCommand(newListCmd(s))
	return cmd
}

// repl drives the interactive loop. It is the "UI" collaborator of the
// orchestration core: it submits turns, observes store changes through the
// printer, and surfaces toasts.
type repl struct {
	config       *configuration.Config
	store        *store.Store
	orchestrator *turn.Orchestrator
	regenerator  *turn.Regenerator
	printer      *printer
	prompts      *history.History

	conversation string
	attachment   *types.Attachment
}

func (r *repl) loop(ctx context.Context) {
	for {
		text, err := cli.PromptUser(r.prompts.Path())
		cobra.CheckErr(err)
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "/") {
			if done := r.handleCommand(ctx, text); done {
				return
			}
			continue
		}
		r.prompts.Add(text)
		r.send(ctx, text)
	}
}

func (r *repl) send(ctx context.Context, text string) {
	if r.orchestrator.Busy() {
		cli.Notification("A turn is already in flight.\n")
		return
	}
	conversation, ok := r.store.GetConversation(r.conversation)
	if !ok {
		cli.Notification("Conversation no longer exists.\n")
		return
	}

	timeout := time.Duration(r.config.RequestTimeout) * time.Second
	if conversation.Mode == types.ModeVideo {
		timeout = videoTurnTimeout
	}
	turnCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cli.AIOutput("APEX: ")
	attachment := r.attachment
	r.attachment = nil
	if err := r.orchestrator.Send(turnCtx, r.conversation, text, attachment); err != nil {
		cli.Notification("\n%v\n", err)
		return
	}
	cli.AIOutput("\n")
	r.printTail()
}

// printTail renders the finalized model message's non-text payloads:
// grounding sources and generated attachments.
func (r *repl) printTail() {
	conversation, ok := r.store.GetConversation(r.conversation)
	if !ok || len(conversation.Messages) == 0 {
		return
	}
	last := conversation.Messages[len(conversation.Messages)-1]
	if last.Role != types.RoleModel {
		return
	}
	for _, source := range last.Sources {
		cli.SourceInfo("source: %s (%s)\n", source.Title, source.URI)
	}
	if last.Attachment != nil {
		path, err := file.WriteAttachment(r.config.DownloadDir, last.Attachment)
		if err != nil {
			cli.Notification("Failed to save %s: %v\n", last.Attachment.Name, err)
			return
		}
		cli.UserCommand("Saved %s (%s) to %s\n", last.Attachment.Name, last.Attachment.MIMEType, path)
	}
}

func (r *repl) printHistory(conversation *types.Conversation) {
	for _, message := range conversation.Messages {
		switch message.Role {
		case types.RoleUser:
			cli.UserInput("> %s\n", message.Content)
		case types.RoleModel:
			cli.AIOutput(message.Content + "\n")
		}
	}
}

func (r *repl) handleCommand(ctx context.Context, text string) bool {
	fields := strings.Fields(text)
	command, args := fields[0], fields[1:]
	switch command {
	case "/help":
		cli.UserCommand(helpText)
	case "/quit", "/exit":
		return true
	case "/mode":
		r.setMode(args)
	case "/regen":
		r.regenerate(ctx)
	case "/like":
		r.feedback(types.FeedbackLiked)
	case "/dislike":
		r.feedback(types.FeedbackDisliked)
	case "/rename":
		if len(args) == 0 {
			cli.Notification("usage: /rename <title>\n")
			return false
		}
		r.store.SetTitle(r.conversation, strings.Join(args, " "))
	case "/attach":
		r.attach(args)
	case "/new":
		conversation := r.store.CreateConversation()
		r.conversation = conversation.ID
		r.printer.SetActive(conversation.ID)
		cli.Title("APEX CHAT [%s](%s)", conversation.Mode, conversation.ID)
	case "/delete":
		if !cli.QueryUser("Delete this conversation?") {
			return false
		}
		r.orchestrator.DeleteConversation(r.conversation)
		conversation := r.store.CreateConversation()
		r.conversation = conversation.ID
		r.printer.SetActive(conversation.ID)
		cli.Title("APEX CHAT [%s](%s)", conversation.Mode, conversation.ID)
	case "/prompts":
		for _, prompt := range r.prompts.Recent(10) {
			cli.UserInput("> %s\n", prompt)
		}
	default:
		cli.Notification("Unknown command %s. Type /help for commands.\n", command)
	}
	return false
}

func (r *repl) setMode(args []string) {
	if len(args) != 1 {
		cli.Notification("usage: /mode <default|code|image|video|deepsearch>\n")
		return
	}
	mode, ok := types.ParseMode(args[0])
	if !ok {
		cli.Notification("Unknown mode %q.\n", args[0])
		return
	}
	r.orchestrator.SetMode(r.conversation, mode)
	cli.UserCommand("Mode set to %s.\n", mode)
}

// regenerate replays the turn that produced the trailing model message.
func (r *repl) regenerate(ctx context.Context) {
	conversation, ok := r.store.GetConversation(r.conversation)
	if !ok || len(conversation.Messages) == 0 {
		return
	}
	last := conversation.Messages[len(conversation.Messages)-1]
	if last.Role != types.RoleModel {
		cli.Notification("Nothing to regenerate.\n")
		return
	}
	timeout := time.Duration(r.config.RequestTimeout) * time.Second
	if conversation.Mode == types.ModeVideo {
		timeout = videoTurnTimeout
	}
	turnCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cli.AIOutput("APEX: ")
	if err := r.regenerator.Regenerate(turnCtx, r.conversation, last.ID); err != nil {
		cli.Notification("\n%v\n", err)
		return
	}
	cli.AIOutput("\n")
	r.printTail()
}

func (r *repl) feedback(feedback types.Feedback) {
	conversation, ok := r.store.GetConversation(r.conversation)
	if !ok {
		return
	}
	for i := len(conversation.Messages) - 1; i >= 0; i-- {
		if conversation.Messages[i].Role == types.RoleModel {
			r.store.ToggleFeedback(r.conversation, conversation.Messages[i].ID, feedback)
			return
		}
	}
}

func (r *repl) attach(args []string) {
	if len(args) != 1 {
		cli.Notification("usage: /attach <path>\n")
		return
	}
	attachment, err := file.ReadAttachment(args[0])
	if err != nil {
		cli.Notification("%v\n", err)
		return
	}
	r.attachment = attachment
	cli.UserCommand("Attached %s (%s). It will be sent with your next message.\n", attachment.Name, attachment.MIMEType)
}

const helpText = `Commands:
  /mode <m>      switch mode (default, code, image, video, deepsearch)
  /attach <path> attach a file to your next message
  /regen         regenerate the last response
  /like          like the last response (repeat to clear)
  /dislike       dislike the last response (repeat to clear)
  /rename <t>    rename this conversation
  /new           start a new conversation
  /delete        delete this conversation
  /prompts       show recent prompts
  /quit          exit
`
