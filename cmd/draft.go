package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/starforge/starforge/internal/config"
	"github.com/starforge/starforge/internal/llm"
	"github.com/starforge/starforge/internal/schema"
	"github.com/starforge/starforge/internal/ui"
	"github.com/starforge/starforge/internal/version"
)

var (
	draftPrompt string
	draftOutput string
	draftModel  string
)

var DraftCmd = &cobra.Command{
	Use:          "draft",
	Short:        "Draft a warehouse document from a prose description",
	Long:         "Ask an LLM to draft a warehouse document from a description of the business domain. The draft is validated before it is written; defects are reported but do not block the write, since a flawed draft is still a useful starting point.",
	RunE:         runDraft,
	SilenceUsage: true,
}

func init() {
	DraftCmd.Flags().StringVarP(&draftPrompt, "prompt", "p", "", "Description of the warehouse to draft (required)")
	DraftCmd.Flags().StringVarP(&draftOutput, "output", "o", "", "Write the document to this path instead of stdout")
	DraftCmd.Flags().StringVar(&draftModel, "model", "", "Chat model to use (default: llm_model from starforge.yaml)")
	DraftCmd.MarkFlagRequired("prompt")
}

func runDraft(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	model := draftModel
	if model == "" {
		model = cfg.LLMModel
	}

	gen, err := llm.NewOpenAI(model)
	if err != nil {
		return err
	}

	spinner, _ := ui.Spinner(fmt.Sprintf("Drafting warehouse document with %s...", model))
	result, err := llm.Draft(cmd.Context(), gen, draftPrompt)
	if spinner != nil {
		if err != nil {
			spinner.Fail("Draft failed")
		} else {
			spinner.Success("Draft ready")
		}
	}
	if err != nil {
		return err
	}

	if len(result.Defects) > 0 {
		ui.Warn("The draft has %d defects. Review it before planning:", len(result.Defects))
		ui.Defects(result.Defects)
	}

	body, err := schema.Marshal(result.Spec)
	if err != nil {
		return err
	}
	if draftOutput == "" {
		fmt.Print(string(body))
		return nil
	}

	if err := ui.Markdown("```yaml\n" + string(body) + "```\n"); err != nil {
		return err
	}
	header := fmt.Sprintf("Drafted by %s via starforge v%s\nReview every type and key before applying.", model, version.App())
	if err := schema.WriteFile(draftOutput, result.Spec, header); err != nil {
		return err
	}
	ui.Success("Wrote %d dimensions and %d facts to %s", len(result.Spec.Dimensions), len(result.Spec.Facts), draftOutput)
	return nil
}
