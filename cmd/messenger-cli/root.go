package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tmaslen/serverless-fb-messenger/config"
	"github.com/tmaslen/serverless-fb-messenger/logger"
	"github.com/tmaslen/serverless-fb-messenger/services"
	"github.com/tmaslen/serverless-fb-messenger/webhooks"
)

// cli carries the state shared by every subcommand once the root has run.
type cli struct {
	messenger *services.Messenger
}

func newRootCmd() *cobra.Command {
	app := &cli{}

	root := &cobra.Command{
		Use:           "messenger-cli",
		Short:         "Send messages and manage the page profile from the command line",
		Long:          "Reads PAGE_ACCESS_TOKEN and GRAPH_API_URL from the environment (or .env) and calls the Messenger Send and Profile APIs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(cmd.Context())
			if err != nil {
				return err
			}

			log, err := logger.New("text", cfg.LogLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(log)

			graph := services.NewGraphClient(cfg.PageAccessToken,
				services.WithBaseURL(cfg.GraphAPIURL),
				services.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
			)
			app.messenger = services.NewMessenger(graph)
			return nil
		},
	}

	root.AddCommand(
		newSendTextCmd(app),
		newSendImageCmd(app),
		newSendShareCmd(app),
		newGetStartedCmd(app),
	)

	return root
}

// report prints the outcome of a send. Remote rejections print the error
// object the Graph API returned.
func report(w io.Writer, err error) error {
	if err == nil {
		fmt.Fprintln(w, "sent")
		return nil
	}

	var apiErr *services.RemoteAPIError
	if errors.As(err, &apiErr) && len(apiErr.Raw) > 0 {
		fmt.Fprintf(w, "rejected: %s\n", apiErr.Raw)
	}
	return err
}

// parseReplies turns "title=payload" flag values into replies. A payload that
// looks like a JSON object is sent as that object, anything else as a string.
func parseReplies(values []string) ([]services.Reply, error) {
	if len(values) == 0 {
		return nil, nil
	}

	replies := make([]services.Reply, 0, len(values))
	for _, value := range values {
		title, payload, ok := strings.Cut(value, "=")
		if !ok || title == "" {
			return nil, fmt.Errorf("invalid reply %q: expected title=payload", value)
		}
		replies = append(replies, services.Reply{
			Text:    title,
			Payload: webhooks.DecodePayload(payload),
		})
	}
	return replies, nil
}
