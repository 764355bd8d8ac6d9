package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/StudioSol/set"
	"github.com/olekukonko/tablewriter"
	"github.com/raykavin/cryptoalert"
	"github.com/raykavin/cryptoalert/internal/config"
	"github.com/raykavin/cryptoalert/pkg/command"
	"github.com/raykavin/cryptoalert/pkg/core"
	"github.com/raykavin/cryptoalert/pkg/storage"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:     "cryptoalert",
		Short:   "Telegram price alerts for DexScreener tokens",
		Version: "1.0.0",
	}

	// Add commands
	rootCmd.AddCommand(buildRunCmd())
	rootCmd.AddCommand(buildTokensCmd())

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the Telegram bot and the price monitor",
		RunE:  runBot,
	}
}

func buildTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "List every tracked token",
		RunE:  runTokens,
	}
}

func runBot(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot, err := cryptoalert.NewBot(ctx, settings)
	if err != nil {
		return err
	}

	return bot.Run(ctx)
}

func runTokens(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := storage.Open(ctx, settings.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	all, err := store.ListAllTracked(ctx)
	if err != nil {
		return err
	}

	printTokens(cmd.OutOrStdout(), all)
	return nil
}

// printTokens renders the tracked tokens ordered by user with totals in the footer
func printTokens(out io.Writer, all map[int64][]core.TrackedToken) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"User", "Address", "Last check", "Last price"})

	addresses := set.NewLinkedHashSetString()
	for _, telegramID := range core.SortedUserIDs(all) {
		for _, token := range all[telegramID] {
			addresses.Add(token.Address)

			price := "-"
			if token.LastPrice.Valid {
				price = token.LastPrice.Decimal.String()
			}

			table.Append([]string{
				fmt.Sprint(telegramID),
				token.Address,
				token.LastCheck.UTC().Format(command.TimeLayout),
				price,
			})
		}
	}

	tokens := lo.SumBy(lo.Values(all), func(tokens []core.TrackedToken) int {
		return len(tokens)
	})
	users := len(lo.PickBy(all, func(_ int64, tokens []core.TrackedToken) bool {
		return len(tokens) > 0
	}))

	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)
	table.SetFooter([]string{fmt.Sprintf("%d users", users), fmt.Sprintf("%d addresses", addresses.Length()), "", fmt.Sprintf("%d tokens", tokens)})
	table.Render()
}
