package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/sheikh-saqib/educoin-ledger/internal/config"
	"github.com/sheikh-saqib/educoin-ledger/internal/ledger"
	"github.com/sheikh-saqib/educoin-ledger/internal/logging"
	"github.com/sheikh-saqib/educoin-ledger/internal/storage"
)

const usage = `usage: educoin <command> [args]

commands:
  roster                      list students and balances
  award <student> [amount]    mint coins to a student (default 1)
  transfer <from> <to> <n>    move n coins between students
  leaderboard                 students ranked by balance
  history                     every transaction in order`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err := run(context.Background(), os.Args[1], os.Args[2:]); err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	l := ledger.NewLedger(store, cfg.Roster, ledger.WithLogger(logger))

	switch cmd {
	case "roster":
		return showRoster(ctx, l)
	case "award":
		return award(ctx, l, args)
	case "transfer":
		return transfer(ctx, l, args)
	case "leaderboard":
		return showLeaderboard(ctx, l)
	case "history":
		return showHistory(ctx, l)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

func award(ctx context.Context, l *ledger.Ledger, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: educoin award <student> [amount]")
	}
	amount := int64(1)
	if len(args) == 2 {
		n, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		amount = n
	}

	if _, err := l.Mint(ctx, args[0], amount); err != nil {
		return err
	}
	pterm.Success.Printfln("%d coin(s) awarded to %s", amount, args[0])
	return nil
}

func transfer(ctx context.Context, l *ledger.Ledger, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: educoin transfer <from> <to> <amount>")
	}
	amount, err := parseAmount(args[2])
	if err != nil {
		return err
	}

	_, ok, err := l.Transfer(ctx, args[0], args[1], amount)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s does not have enough coins", args[0])
	}
	pterm.Success.Printfln("%d coin(s) transferred from %s to %s", amount, args[0], args[1])
	return nil
}

func showRoster(ctx context.Context, l *ledger.Ledger) error {
	state, err := l.Load(ctx)
	if err != nil {
		return err
	}
	data := pterm.TableData{{"Student", "Balance"}}
	for _, name := range state.Roster() {
		data = append(data, []string{name, strconv.FormatInt(state.Students[name], 10)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func showLeaderboard(ctx context.Context, l *ledger.Ledger) error {
	standings, err := l.Leaderboard(ctx)
	if err != nil {
		return err
	}
	pterm.DefaultSection.Println("Leaderboard")
	data := pterm.TableData{{"#", "Student", "Coins"}}
	for i, s := range standings {
		data = append(data, []string{strconv.Itoa(i + 1), s.Student, strconv.FormatInt(s.Balance, 10)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func showHistory(ctx context.Context, l *ledger.Ledger) error {
	history, err := l.TransactionHistory(ctx)
	if err != nil {
		return err
	}
	pterm.DefaultSection.Println("Transaction History")
	if len(history) == 0 {
		pterm.Info.Println("no transactions yet")
		return nil
	}
	for _, tx := range history {
		pterm.Println(tx.String())
	}
	return nil
}

func parseAmount(raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ledger.ErrInvalidAmount, raw)
	}
	return n, nil
}
