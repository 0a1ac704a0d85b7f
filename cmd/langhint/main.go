// langhint inspects the language detector and translation policy offline,
// without a bot token or API key.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/relaytranslate/relaytranslate/internal/langhint"
	"github.com/relaytranslate/relaytranslate/internal/translation"
)

// Version is set at compile time via ldflags.
var Version = "dev"

// policyFlags selects the policy the same way the bot does.
type policyFlags struct {
	target string
	file   string
}

func (f *policyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.target, "target", "ur", "Target language for Chinese messages (ur or en)")
	cmd.Flags().StringVar(&f.file, "policy", "", "YAML policy file (overrides --target)")
}

func (f *policyFlags) load() (translation.Policy, error) {
	if f.file != "" {
		return translation.LoadPolicy(f.file)
	}
	target, err := translation.ParseLanguage(f.target)
	if err != nil {
		return translation.Policy{}, fmt.Errorf("--target %q: %w", f.target, err)
	}
	return translation.PolicyFor(target)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "langhint",
		Short: "Inspect language detection and translation routing",
		Long: `langhint runs the bot's language detector and translation policy locally.

Commands:
  detect     Detect the language of text and show where it would be routed
  policy     Show the translation directions of a policy
  keywords   List the Tagalog keywords used by the detector`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newDetectCmd(),
		newPolicyCmd(),
		newKeywordsCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// detection is one line of detect output.
type detection struct {
	Text   string `json:"text"`
	Hint   string `json:"hint"`
	Code   string `json:"code,omitempty"`
	Target string `json:"target,omitempty"`
}

func newDetectCmd() *cobra.Command {
	var (
		policy  policyFlags
		asJSON  bool
		perLine bool
	)

	cmd := &cobra.Command{
		Use:   "detect [text...]",
		Short: "Detect the language of text",
		Long: `Detect the language hint of the given text and the target language the
policy would translate it into. Without arguments, text is read from stdin;
with --lines every input line is detected separately.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := policy.load()
			if err != nil {
				return err
			}

			inputs, err := detectInputs(cmd.InOrStdin(), args, perLine)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			for _, text := range inputs {
				d := detect(p, text)
				if asJSON {
					if err := enc.Encode(d); err != nil {
						return err
					}
					continue
				}
				target := "-"
				if d.Target != "" {
					target = d.Target
				}
				fmt.Fprintf(out, "%-8s %-3s %s\n", d.Hint, target, d.Text)
			}
			return nil
		},
	}

	policy.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON object per input")
	cmd.Flags().BoolVar(&perLine, "lines", false, "Detect each stdin line separately")

	return cmd
}

func detectInputs(stdin io.Reader, args []string, perLine bool) ([]string, error) {
	if len(args) > 0 {
		return []string{strings.Join(args, " ")}, nil
	}

	if !perLine {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return []string{strings.TrimSpace(string(data))}, nil
	}

	var lines []string
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return lines, nil
}

func detect(p translation.Policy, text string) detection {
	hint := langhint.Detect(text)
	d := detection{Text: text, Hint: hint.String(), Code: hint.Code()}
	if target, ok := p.Target(hint); ok {
		d.Target = string(target)
	}
	return d
}

func newPolicyCmd() *cobra.Command {
	var policy policyFlags

	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Show translation directions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := policy.load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			directions := p.Directions()
			if len(directions) == 0 {
				fmt.Fprintln(out, "no translation directions")
				return nil
			}
			for _, d := range directions {
				fmt.Fprintf(out, "%s -> %s\n", d.Source.DisplayName(), d.Target.DisplayName())
			}
			return nil
		},
	}

	policy.register(cmd)
	return cmd
}

func newKeywordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keywords",
		Short: "List Tagalog detection keywords",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, kw := range langhint.Keywords() {
				fmt.Fprintln(cmd.OutOrStdout(), kw)
			}
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "langhint version %s\n", Version)
		},
	}
}
