package chat

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/apexhq/apex/internal/cli"
	"github.com/apexhq/apex/internal/types"
	"github.com/apexhq/apex/store"
)

// newListCmd instantiates and returns the conversation list command.
func newListCmd(s *store.Store) *cobra.Command {
	var opts struct {
		Limit int
	}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all conversations",
		Long:  "List all conversations, newest first",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			cli.Title("APEX CONVERSATIONS")

			conversations := s.ListConversations()
			if opts.Limit > 0 && len(conversations) > opts.Limit {
				conversations = conversations[:opts.Limit]
			}
			for _, conversation := range conversations {
				cli.UserCommand("%s (%s) [%s] - %s\n",
					conversation.Title, conversation.ID, conversation.Mode,
					time.UnixMicro(conversation.UpdateTimestamp).Format(time.DateTime))
				description := ""
				for i := 0; i < 3 && i < len(conversation.Messages); i++ {
					if conversation.Messages[i].Role == types.RoleUser {
						description += "> " + conversation.Messages[i].Content + "\n"
					}
				}
				cli.UserInput("%s", description)
			}
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", 50, "Maximum conversations to show")
	return cmd
}
