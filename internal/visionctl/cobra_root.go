package visionctl

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"visiond/pkg/types"
)

// Config carries persistent CLI settings.
type Config struct {
	Addr string
}

// BuildRootCmd constructs the Cobra command tree for visionctl.
func BuildRootCmd(cfg *Config, out io.Writer) *cobra.Command {
	if out == nil {
		out = os.Stdout
	}
	root := &cobra.Command{
		Use:           "visionctl",
		Short:         "Client for a running visiond",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("addr", cfg.Addr, "Base URL of the daemon (defaults VISIONCTL_ADDR or http://127.0.0.1:8080)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if f := cmd.InheritedFlags().Lookup("addr"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.Addr = v
			}
		}
	}

	statusCmd := &cobra.Command{Use: "status", Short: "Show daemon session state", RunE: func(cmd *cobra.Command, args []string) error {
		return NewClient(cfg.Addr, out).Status(cmd.Context())
	}}

	assetsCmd := &cobra.Command{Use: "assets", Short: "List model package files and local state", RunE: func(cmd *cobra.Command, args []string) error {
		return NewClient(cfg.Addr, out).Assets(cmd.Context())
	}}

	provisionCmd := &cobra.Command{Use: "provision", Short: "Download missing model files, printing progress", RunE: func(cmd *cobra.Command, args []string) error {
		return NewClient(cfg.Addr, out).Provision(cmd.Context())
	}}

	cancelCmd := &cobra.Command{Use: "cancel", Short: "Stop the in-flight run", RunE: func(cmd *cobra.Command, args []string) error {
		return NewClient(cfg.Addr, out).Cancel(cmd.Context())
	}}

	var (
		genImage  string
		genSystem string
		genMax    int
	)
	generateCmd := &cobra.Command{
		Use:     "generate [prompt]",
		Short:   "Stream a generation for a prompt and optional image",
		Example: "  visionctl generate --image photo.png \"Describe this image\"",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return fmt.Errorf("prompt must not be empty")
			}
			req := types.GenerateRequest{
				Prompt:       args[0],
				ImagePath:    genImage,
				SystemPrompt: genSystem,
				MaxTokens:    genMax,
			}
			return NewClient(cfg.Addr, out).Generate(cmd.Context(), req)
		},
	}
	generateCmd.Flags().StringVar(&genImage, "image", "", "Path to the input image on the daemon host")
	generateCmd.Flags().StringVar(&genSystem, "system", "", "System prompt override")
	generateCmd.Flags().IntVar(&genMax, "max-tokens", 0, "Max new tokens (0=server default)")

	root.AddCommand(statusCmd, assetsCmd, provisionCmd, cancelCmd, generateCmd)
	return root
}
