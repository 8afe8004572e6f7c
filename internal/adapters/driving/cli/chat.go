package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/replyguard/internal/core/domain"
)

var (
	chatToken string
	chatJSON  bool
)

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Draft a reply to a customer message",
	Long: `Masks the message, looks up the customer by --token, retrieves context
from the index and asks the configured LLM for a reply. Masked values in
the reply are shown as partial masks only.

Without a configured or reachable LLM the offline generator answers.`,
	Args:        cobra.MinimumNArgs(1),
	Annotations: map[string]string{annotationGenerates: "true"},
	RunE:        runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatToken, "token", "t", "", "customer token")
	chatCmd.Flags().BoolVar(&chatJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(chatCmd)
}

type chatOutput struct {
	Reply   string   `json:"reply"`
	Sources []string `json:"sources"`
	Offline bool     `json:"offline"`
}

func runChat(cmd *cobra.Command, args []string) error {
	if err := requireService(replyService != nil, "reply service"); err != nil {
		return err
	}

	resp, err := replyService.Reply(cmd.Context(), domain.ReplyRequest{
		UserText:  strings.Join(args, " "),
		UserToken: chatToken,
	})
	if err != nil {
		return err
	}

	out := chatOutput{Reply: resp.Reply, Sources: make([]string, len(resp.Sources)), Offline: resp.Offline}
	for i, src := range resp.Sources {
		out.Sources[i] = domain.SearchResult{Metadata: src}.Label()
	}

	if chatJSON {
		return printJSON(cmd, out)
	}

	cmd.Println(out.Reply)
	if len(out.Sources) > 0 {
		cmd.Printf("\nSources: %s\n", strings.Join(out.Sources, ", "))
	}
	if out.Offline {
		cmd.PrintErrln("(offline reply: no LLM configured or reachable)")
	}
	return nil
}
