// warden-check is an informal debugging CLI for the moderation engine: it
// reads message lines from stdin, evaluates each one, and prints the
// resulting decision.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	cli "github.com/urfave/cli/v2"

	"github.com/warden-chat/warden/engine"
	"github.com/warden-chat/warden/event"
)

func main() {
	app := cli.App{
		Name:  "warden-check",
		Usage: "evaluate chat messages from stdin against the moderation engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to YAML engine config (defaults used when empty)",
			},
			&cli.StringFlag{
				Name:  "rules",
				Usage: "path to YAML rules file (fixture rules used when empty)",
			},
			&cli.StringFlag{
				Name:  "actor",
				Usage: "actor ID to evaluate as",
				Value: "cli-actor",
			},
			&cli.StringFlag{
				Name:  "guild",
				Usage: "guild ID to evaluate in",
				Value: "cli-guild",
			},
			&cli.DurationFlag{
				Name:  "account-age",
				Usage: "simulated account age",
				Value: 30 * 24 * time.Hour,
			},
			&cli.Float64Flag{
				Name:  "message-rate",
				Usage: "simulated messages per minute",
			},
		},
		Action: runCheck,
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
	slog.SetDefault(slog.New(h))
	if err := app.Run(os.Args); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(-1)
	}
}

func runCheck(cctx *cli.Context) error {
	ctx := context.Background()

	cfg := engine.DefaultConfig()
	if p := cctx.String("config"); p != "" {
		var err error
		cfg, err = engine.LoadConfigYAML(p)
		if err != nil {
			return err
		}
	}

	eng, err := engine.New(cfg, slog.Default(), nil, nil)
	if err != nil {
		return err
	}
	if p := cctx.String("rules"); p != "" {
		if err := eng.LoadRules(p); err != nil {
			return err
		}
	} else {
		for _, r := range engine.FixtureRules() {
			if err := eng.AddRule(r); err != nil {
				return err
			}
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		mc := event.NewContext(event.MessageEvent{
			ActorID:   cctx.String("actor"),
			GuildID:   cctx.String("guild"),
			ChannelID: "cli",
			Content:   line,
			Author: event.ActorMeta{
				CreatedAt:   time.Now().Add(-cctx.Duration("account-age")),
				TrustScore:  1.0,
				MessageRate: cctx.Float64("message-rate"),
			},
			Timestamp: time.Now(),
		})
		d, err := eng.Evaluate(ctx, mc)
		if err != nil {
			return err
		}
		fmt.Printf("%s\tconf=%.2f\trules=%s\treasons=%s\n",
			strings.ToUpper(string(d.Action)), d.Confidence,
			strings.Join(d.TriggeredRules, ","), strings.Join(d.Reasons, "; "))
	}
	return scanner.Err()
}
