package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var maskJSON bool

var maskCmd = &cobra.Command{
	Use:   "mask <text>",
	Short: "Mask PII in text",
	Long: `Replaces emails, phone numbers and national ids with numbered tokens
such as <EMAIL_1> and prints each token with its partial mask.
Original values are never printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMask,
}

func init() {
	maskCmd.Flags().BoolVar(&maskJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(maskCmd)
}

type maskToken struct {
	Token   string `json:"token"`
	Kind    string `json:"kind"`
	Display string `json:"display"`
}

type maskOutput struct {
	Masked string      `json:"masked"`
	Tokens []maskToken `json:"tokens"`
}

func runMask(cmd *cobra.Command, args []string) error {
	if err := requireService(maskingService != nil, "masking service"); err != nil {
		return err
	}

	masked, mapping := maskingService.Mask(strings.Join(args, " "))

	out := maskOutput{Masked: masked, Tokens: make([]maskToken, 0, mapping.Len())}
	for _, tok := range mapping.Tokens() {
		out.Tokens = append(out.Tokens, maskToken{
			Token:   tok.String(),
			Kind:    tok.Kind().String(),
			Display: maskingService.UnmaskForDisplay(tok.String(), mapping),
		})
	}

	if maskJSON {
		return printJSON(cmd, out)
	}

	cmd.Println(out.Masked)
	if len(out.Tokens) == 0 {
		return nil
	}
	cmd.Println()
	for _, t := range out.Tokens {
		cmd.Printf("  %-12s %-12s %s\n", t.Token, t.Kind, t.Display)
	}
	return nil
}
