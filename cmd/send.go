package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/newswatch/internal/model"
	"github.com/sells-group/newswatch/pkg/webex"
)

var sendDate string

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Deliver the latest briefing snapshot to the team channel",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dateKey := sendDate
		if dateKey == "" {
			var err error
			dateKey, err = priorDayKey()
			if err != nil {
				return err
			}
		}

		store, local, err := buildCheckpointStore(ctx)
		if err != nil {
			return err
		}
		defer local.Close()

		snap, err := store.ReadLatest(ctx, dateKey)
		if err != nil {
			return eris.Wrapf(err, "send: no snapshot for %s", dateKey)
		}
		if len(snap.Messages) == 0 {
			zap.L().Info("send: snapshot has no messages, nothing to deliver",
				zap.String("date", dateKey), zap.String("run_id", snap.RunID))
			return nil
		}

		if cfg.Webex.Token == "" || cfg.Webex.RoomID == "" {
			return eris.New("send: webex token and room_id must be configured")
		}
		wx := webex.NewClient(cfg.Webex.Token, cfg.Webex.RoomID)

		if cfg.Webex.Digest {
			if err := wx.SendMarkdown(ctx, digestMarkdown(dateKey, snap.Messages, snap.Partners)); err != nil {
				return eris.Wrap(err, "send: deliver digest")
			}
			zap.L().Info("send: digest delivered",
				zap.String("date", dateKey), zap.Int("items", len(snap.Messages)))
			return nil
		}

		sent, failed := 0, 0
		var indirect []model.BriefMessage
		for _, m := range snap.Messages {
			if m.Relevance != model.RelevanceDirect {
				indirect = append(indirect, m)
				continue
			}
			if err := wx.SendMarkdown(ctx, m.Format()); err != nil {
				zap.L().Warn("send: message failed",
					zap.String("url", m.ArticleURL), zap.Error(err))
				failed++
				continue
			}
			sent++
		}

		if len(indirect) > 0 {
			if err := wx.SendMarkdown(ctx, indirectMarkdown(dateKey, indirect, snap.Partners)); err != nil {
				zap.L().Warn("send: briefing list failed", zap.Error(err))
				failed++
			} else {
				sent++
			}
		}

		zap.L().Info("send: delivery finished",
			zap.String("date", dateKey),
			zap.Int("sent", sent),
			zap.Int("failed", failed),
		)
		if sent == 0 && failed > 0 {
			return eris.New("send: every delivery attempt failed")
		}
		return nil
	},
}

// priorDayKey computes the default snapshot date: yesterday in the
// collection timezone.
func priorDayKey() (string, error) {
	loc, err := time.LoadLocation(cfg.Collect.Timezone)
	if err != nil {
		return "", eris.Wrapf(err, "send: load timezone %s", cfg.Collect.Timezone)
	}
	return time.Now().In(loc).AddDate(0, 0, -1).Format("2006-01-02"), nil
}

// digestMarkdown renders the whole briefing as one document.
func digestMarkdown(dateKey string, messages []model.BriefMessage, partners []model.PartnerEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# 📰 AI News Brief — %s\n\n", dateKey)

	var direct, indirect []model.BriefMessage
	for _, m := range messages {
		if m.Relevance == model.RelevanceDirect {
			direct = append(direct, m)
		} else {
			indirect = append(indirect, m)
		}
	}

	if len(direct) > 0 {
		b.WriteString("## Needs attention\n\n")
		for _, m := range direct {
			fmt.Fprintf(&b, "**[%s]** %s\n\n🔗 %s\n\n", m.Category, m.Summary, m.ArticleURL)
		}
	}
	if len(indirect) > 0 {
		b.WriteString("## Also noted\n\n")
		for _, m := range indirect {
			fmt.Fprintf(&b, "- %s (%s)\n", m.Summary, m.ArticleURL)
		}
		b.WriteString("\n")
	}
	writePartners(&b, partners)
	return b.String()
}

// indirectMarkdown renders the one-liner list plus partner candidates sent
// after the individual direct messages.
func indirectMarkdown(dateKey string, indirect []model.BriefMessage, partners []model.PartnerEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Also noted — %s**\n\n", dateKey)
	for _, m := range indirect {
		fmt.Fprintf(&b, "- %s (%s)\n", m.Summary, m.ArticleURL)
	}
	b.WriteString("\n")
	writePartners(&b, partners)
	return b.String()
}

func writePartners(b *strings.Builder, partners []model.PartnerEntry) {
	if len(partners) == 0 {
		return
	}
	b.WriteString("## Partnership candidates\n\n")
	for _, p := range partners {
		fmt.Fprintf(b, "- **%s** (%s): %s — %s\n", p.Name, p.Field, p.RecentAchievement, p.CollaborationPoint)
	}
}

func init() {
	sendCmd.Flags().StringVar(&sendDate, "date", "", "snapshot date to deliver (YYYY-MM-DD, default: yesterday)")
	rootCmd.AddCommand(sendCmd)
}
