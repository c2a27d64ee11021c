package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tessellate-ai/memring"
	"github.com/tessellate-ai/memring/config"
	"github.com/tessellate-ai/memring/memory"
)

func newCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "memring",
		Short: "Tiered conversational memory",
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")

	cmd.AddCommand(
		newChatCmd(&configFile),
	)

	return cmd
}

func newChatCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive session against the memory rings",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			conf, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			if err := config.ResolveConfig(conf.OpenAI); err != nil {
				return err
			}
			if err := config.ResolveConfig(conf.Memory); err != nil {
				return err
			}

			m, err := memring.NewMemring(cmd.Context(), memring.WithConfig(conf))
			if err != nil {
				return errors.Wrapf(err, "failed to initialize memory")
			}
			defer m.Close()

			session := uuid.New()
			fmt.Printf("session %s (ctrl-d to quit)\n", session)

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}

				bundle, err := m.BuildContext(cmd.Context(), session, text)
				if err != nil {
					return err
				}
				for _, item := range bundle.RetrievedMemories {
					fmt.Printf("  [%s/%s] %s\n", item.Ring, item.Kind, item.Content)
				}
				for _, entity := range bundle.RelatedEntities {
					fmt.Printf("  [entity] %s\n", entity)
				}

				if _, err := m.WriteTurn(cmd.Context(), session, memory.RoleUser, text); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.NewConfig(), nil
	}
	return config.LoadFile(path)
}
