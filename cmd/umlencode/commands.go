package main

import (
	"fmt"
	"io"
	"os"

	"umlgen-backend/internal/plantuml"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "umlencode",
		Short:         "Encode and decode PlantUML render tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newEncodeCmd(), newDecodeCmd(), newURLCmd())
	return root
}

func newEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode [file]",
		Short: "Print the token for a PlantUML file (stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(cmd, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), plantuml.Encode(src))
			return nil
		},
	}
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <token>",
		Short: "Print the PlantUML source behind a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := plantuml.Decode(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), src)
			return nil
		},
	}
}

func newURLCmd() *cobra.Command {
	var serverURL, format string
	cmd := &cobra.Command{
		Use:   "url [file]",
		Short: "Print the full render URL for a PlantUML file (stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(cmd, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), plantuml.NewRenderer(serverURL, format).URL(src))
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "http://www.plantuml.com/plantuml", "render service base URL")
	cmd.Flags().StringVar(&format, "format", "svg", "image format: svg, png or txt")
	return cmd
}

func readSource(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		b, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}
