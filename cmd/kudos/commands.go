package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"

	"celokudos/internal/app"
	"celokudos/internal/debug"
	"celokudos/internal/kudos"
	"celokudos/internal/query"
	"celokudos/internal/ui"
	"celokudos/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
)

// fallbackSymbol is shown when the token symbol cannot be read
const fallbackSymbol = "cUSD"

func runSend(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	to := fs.String("to", "", "recipient address")
	amount := fs.String("amount", "", "amount in whole tokens, e.g. 1.5")
	message := fs.String("message", "", "message stored with the kudos")
	private := fs.Bool("private", false, "keep the kudos out of the public feed")
	connector := fs.String("connector", "", "wallet connector (env, keystore); empty auto-connects")
	wait := fs.Bool("wait", true, "wait until the send transaction is mined")
	if err := fs.Parse(args); err != nil {
		return err
	}

	session, err := a.Connect(ctx, *connector, os.Stderr)
	if err != nil {
		return err
	}
	defer session.Disconnect()
	ui.Header(os.Stdout, session)

	if err := kudos.CheckFunds(ctx, a.Chain, session, *amount); err != nil {
		return err
	}

	tracker := kudos.NewTracker()
	updates, cancel := tracker.Subscribe(16)
	sendDone := make(chan kudos.TxState, 1)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range updates {
			if update.State.Status == kudos.TxIdle {
				continue
			}
			ui.RenderUpdate(os.Stdout, update)
			if update.Leg == kudos.LegSend && update.State.Status.Terminal() {
				select {
				case sendDone <- update.State:
				default:
				}
			}
		}
	}()

	form := ui.NewForm(a.Orchestrator, session,
		ui.WithFormTracker(tracker),
		ui.WithPhaseFunc(func(p ui.Phase) {
			slog.Debug("Form phase changed", "phase", p.String())
		}),
	)
	form.Recipient = *to
	form.Amount = *amount
	form.Message = *message
	form.IsPublic = !*private

	result, err := form.Submit(ctx)
	if err == nil && *wait {
		select {
		case state := <-sendDone:
			if state.Status == kudos.TxFailed {
				err = fmt.Errorf("send transaction failed: %w", state.Err)
			}
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	cancel()
	<-printed

	form.Render(os.Stdout)
	if err != nil {
		return err
	}

	ui.RenderResult(os.Stdout, result)
	debug.PrintResult(result)
	return nil
}

func runGet(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: kudos get <id>")
	}

	id, ok := new(big.Int).SetString(fs.Arg(0), 10)
	if !ok || id.Sign() < 0 {
		return fmt.Errorf("invalid kudos id %q", fs.Arg(0))
	}

	record, err := a.Queries.GetByID(ctx, id)
	if err != nil {
		return err
	}

	ui.RenderKudos(os.Stdout, record, tokenSymbol(ctx, a))
	debug.PrintKudos(record)
	return nil
}

// listFlags are shared by the paginated list commands
type listFlags struct {
	fs        *flag.FlagSet
	address   *string
	connector *string
	page      *uint64
	limit     *uint64
}

func newListFlags(name string, a *app.App) *listFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return &listFlags{
		fs:        fs,
		address:   fs.String("address", "", "address to query; defaults to the connected wallet"),
		connector: fs.String("connector", "", "wallet connector used when --address is empty"),
		page:      fs.Uint64("page", 0, "zero-based page number"),
		limit:     fs.Uint64("limit", a.Config.DefaultPageSize, "page size"),
	}
}

// session resolves --address into a watch session, or connects a wallet
func (f *listFlags) session(ctx context.Context, a *app.App) (*wallet.Session, error) {
	if *f.address != "" {
		addr, err := parseAddress(*f.address)
		if err != nil {
			return nil, err
		}
		return wallet.NewWatchSession(addr), nil
	}
	return a.Connect(ctx, *f.connector, os.Stderr)
}

// close forgets a wallet connected by session; watch sessions hold no key
func (f *listFlags) close(session *wallet.Session) {
	if *f.address == "" {
		session.Disconnect()
	}
}

func runSent(ctx context.Context, a *app.App, args []string) error {
	f := newListFlags("sent", a)
	if err := f.fs.Parse(args); err != nil {
		return err
	}
	session, err := f.session(ctx, a)
	if err != nil {
		return err
	}
	defer f.close(session)

	offset, limit := query.Page(*f.page, *f.limit)
	records, err := a.Queries.GetSentByCurrentUser(ctx, session, offset, limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Kudos sent by %s\n", session.Address().Hex())
	ui.RenderKudosList(os.Stdout, records, tokenSymbol(ctx, a))
	return nil
}

func runReceived(ctx context.Context, a *app.App, args []string) error {
	f := newListFlags("received", a)
	if err := f.fs.Parse(args); err != nil {
		return err
	}
	session, err := f.session(ctx, a)
	if err != nil {
		return err
	}
	defer f.close(session)

	offset, limit := query.Page(*f.page, *f.limit)
	records, err := a.Queries.GetReceivedForCurrentUser(ctx, session, offset, limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Kudos received by %s\n", session.Address().Hex())
	ui.RenderKudosList(os.Stdout, records, tokenSymbol(ctx, a))
	return nil
}

func runFeed(ctx context.Context, a *app.App, args []string) error {
	f := newListFlags("feed", a)
	if err := f.fs.Parse(args); err != nil {
		return err
	}

	offset, limit := query.Page(*f.page, *f.limit)
	records, err := a.Queries.GetPublicFeed(ctx, offset, limit)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "Public kudos")
	ui.RenderKudosList(os.Stdout, records, tokenSymbol(ctx, a))
	return nil
}

func runRecent(ctx context.Context, a *app.App, args []string) error {
	f := newListFlags("recent", a)
	// recent has its own default page size
	*f.limit = query.DefaultRecentLimit
	if err := f.fs.Parse(args); err != nil {
		return err
	}
	session, err := f.session(ctx, a)
	if err != nil {
		return err
	}
	defer f.close(session)

	recent, err := a.Queries.GetRecent(ctx, session.Address(), *f.limit)
	if err != nil {
		return err
	}

	symbol := tokenSymbol(ctx, a)
	fmt.Fprintln(os.Stdout, "Recently sent")
	ui.RenderKudosList(os.Stdout, recent.Sent, symbol)
	fmt.Fprintln(os.Stdout)
	fmt.Fprintln(os.Stdout, "Recently received")
	ui.RenderKudosList(os.Stdout, recent.Received, symbol)
	return nil
}

func runStats(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	address := fs.String("address", "", "also show the stats of this address")
	connector := fs.String("connector", "", "also show the stats of the connected wallet")
	if err := fs.Parse(args); err != nil {
		return err
	}

	symbol := tokenSymbol(ctx, a)
	stats, err := a.Queries.GetPlatformStats(ctx)
	if err != nil {
		return err
	}
	ui.RenderStats(os.Stdout, stats, symbol)
	if total, err := a.Queries.GetTotalKudos(ctx); err != nil {
		slog.Warn("Could not read total kudos", "error", err)
	} else {
		fmt.Fprintf(os.Stdout, "Kudos on chain: %s\n", total)
	}

	var session *wallet.Session
	switch {
	case *address != "":
		addr, err := parseAddress(*address)
		if err != nil {
			return err
		}
		session = wallet.NewWatchSession(addr)
	case *connector != "":
		if session, err = a.Connect(ctx, *connector, os.Stderr); err != nil {
			return err
		}
		defer session.Disconnect()
	default:
		return nil
	}

	userStats, err := a.Queries.GetUserStats(ctx, session)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout)
	fmt.Fprintf(os.Stdout, "Stats of %s\n", session.Address().Hex())
	ui.RenderUserStats(os.Stdout, userStats, symbol)
	return nil
}

func runWatch(ctx context.Context, a *app.App, args []string) error {
	observer := a.NewObserver()
	if err := observer.Start(ctx); err != nil {
		return fmt.Errorf("failed to watch events (a websocket RPC URL is required): %w", err)
	}
	defer observer.Stop()

	slog.Info("Watching kudos events, press Ctrl+C to stop",
		"contract", a.Chain.KudosAddress().Hex(),
	)
	<-ctx.Done()
	slog.Warn("Interrupt received, shutting down...")
	return nil
}

func runServe(ctx context.Context, a *app.App, args []string) error {
	if err := a.Serve(ctx); err != nil {
		return err
	}
	slog.Info("Server stopped")
	return nil
}

func parseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func tokenSymbol(ctx context.Context, a *app.App) string {
	symbol, err := a.Chain.TokenSymbol(ctx)
	if err != nil || symbol == "" {
		slog.Debug("Could not read token symbol", "error", err)
		return fallbackSymbol
	}
	return symbol
}
