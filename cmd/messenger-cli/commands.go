package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/tmaslen/serverless-fb-messenger/services"
	"github.com/tmaslen/serverless-fb-messenger/webhooks"
)

func newSendTextCmd(app *cli) *cobra.Command {
	var (
		to           string
		text         string
		quickReplies []string
		buttons      []string
	)

	cmd := &cobra.Command{
		Use:   "send-text",
		Short: "Send a text message, optionally with quick replies or buttons",
		Long:  "Sends a text message. When any --button is given the message is sent as a button template and quick replies are dropped.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			qr, err := parseReplies(quickReplies)
			if err != nil {
				return err
			}
			btns, err := parseReplies(buttons)
			if err != nil {
				return err
			}

			err = app.messenger.SendMessage(cmd.Context(), services.TextMessage{
				UserID:       to,
				Text:         text,
				QuickReplies: qr,
				Buttons:      btns,
			})
			return report(cmd.OutOrStdout(), err)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "recipient page-scoped user ID")
	cmd.Flags().StringVar(&text, "text", "", "message text")
	cmd.Flags().StringArrayVar(&quickReplies, "quick-reply", nil, "quick reply as title=payload (repeatable)")
	cmd.Flags().StringArrayVar(&buttons, "button", nil, "postback button as title=payload (repeatable)")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func newSendImageCmd(app *cli) *cobra.Command {
	var (
		to           string
		url          string
		quickReplies []string
	)

	cmd := &cobra.Command{
		Use:   "send-image",
		Short: "Send an image by URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			qr, err := parseReplies(quickReplies)
			if err != nil {
				return err
			}

			err = app.messenger.SendImage(cmd.Context(), services.ImageMessage{
				UserID:       to,
				URL:          url,
				QuickReplies: qr,
			})
			return report(cmd.OutOrStdout(), err)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "recipient page-scoped user ID")
	cmd.Flags().StringVar(&url, "url", "", "image URL")
	cmd.Flags().StringArrayVar(&quickReplies, "quick-reply", nil, "quick reply as title=payload (repeatable)")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newSendShareCmd(app *cli) *cobra.Command {
	var to, title, subtitle, imageURL string

	cmd := &cobra.Command{
		Use:   "send-share",
		Short: "Send a shareable card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := app.messenger.SendShareMessage(cmd.Context(), services.ShareMessage{
				UserID:   to,
				Title:    title,
				Subtitle: subtitle,
				ImageURL: imageURL,
			})
			return report(cmd.OutOrStdout(), err)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "recipient page-scoped user ID")
	cmd.Flags().StringVar(&title, "title", "", "card title")
	cmd.Flags().StringVar(&subtitle, "subtitle", "", "card subtitle")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "card image URL")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newGetStartedCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-started",
		Short: "Manage the page's Get Started button",
	}

	set := &cobra.Command{
		Use:   "set PAYLOAD",
		Short: "Set the payload sent when a user taps Get Started",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return errors.New("payload must not be empty")
			}
			err := app.messenger.AddGetStartedPage(cmd.Context(), webhooks.DecodePayload(args[0]))
			return report(cmd.OutOrStdout(), err)
		},
	}

	remove := &cobra.Command{
		Use:   "remove",
		Short: "Remove the Get Started button",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return report(cmd.OutOrStdout(), app.messenger.RemoveGetStartedPage(cmd.Context()))
		},
	}

	cmd.AddCommand(set, remove)
	return cmd
}
